// Package money formats and sums ledger amounts in Brazilian reais. Amounts
// travel as decimal.Decimal through the pipeline and are converted to integer
// centavos here, so arithmetic on totals never accumulates float error.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// BRL is the ledger currency (ISO-4217).
const BRL = "BRL"

// Spoken and displayed amounts read "R$ 1.234,56".
var formatter = money.NewFormatter(2, ",", ".", "R$", "$ 1")

// Money is an amount of reais backed by go-money centavos.
type Money struct {
	m *money.Money
}

// New creates a Money value from centavos.
func New(cents int64) *Money {
	return &Money{m: money.New(cents, BRL)}
}

// FromDecimal rounds a decimal amount half away from zero to centavos.
func FromDecimal(amount decimal.Decimal) *Money {
	return New(amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// Zero returns R$ 0,00.
func Zero() *Money {
	return New(0)
}

// Cents returns the amount in centavos.
func (m *Money) Cents() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m.Cents() == 0
}

// IsNegative returns true if the amount is less than zero
func (m *Money) IsNegative() bool {
	return m.Cents() < 0
}

// Abs returns the absolute value
func (m *Money) Abs() *Money {
	if m == nil || m.m == nil {
		return Zero()
	}
	return &Money{m: m.m.Absolute()}
}

// Add returns m + other. Both values are BRL, so currencies always match.
func (m *Money) Add(other *Money) *Money {
	return New(m.Cents() + other.Cents())
}

// Subtract returns m - other.
func (m *Money) Subtract(other *Money) *Money {
	return New(m.Cents() - other.Cents())
}

// Compare returns -1 if m < other, 0 if equal, 1 if m > other
func (m *Money) Compare(other *Money) int {
	switch a, b := m.Cents(), other.Cents(); {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Display returns the amount formatted for speech and screens, e.g. "R$ 140,96".
func (m *Money) Display() string {
	return formatter.Format(m.Cents())
}

// String returns the amount as a decimal string (e.g., "140.96")
func (m *Money) String() string {
	return m.ToDecimal().StringFixed(2)
}

// ToDecimal converts back to decimal.Decimal
func (m *Money) ToDecimal() decimal.Decimal {
	return decimal.New(m.Cents(), -2)
}

// PercentageOf returns what percentage m is of total, e.g. 25.5 for 25.5%.
func (m *Money) PercentageOf(total *Money) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(m.Cents()).Div(decimal.NewFromInt(total.Cents())).Mul(decimal.NewFromInt(100))
}

// Sum adds decimal amounts exactly.
func Sum(amounts ...decimal.Decimal) *Money {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(FromDecimal(a))
	}
	return total
}

// Format renders a decimal amount as reais.
func Format(amount decimal.Decimal) string {
	return FromDecimal(amount).Display()
}

// MarshalJSON encodes the amount as a decimal string.
func (m *Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a decimal string or number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	*m = *FromDecimal(d)
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("failed to scan amount: %w", err)
	}
	*m = *FromDecimal(d)
	return nil
}

// Value implements driver.Valuer.
func (m *Money) Value() (driver.Value, error) {
	return m.String(), nil
}
