package insights

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/echo-voice-assistant/pkg/db"
)

// MonthTotals holds the ledger aggregates for one month. Expenses are the
// user's reported share: shared bills count amount × report_weight.
type MonthTotals struct {
	Expenses     decimal.Decimal
	Incomes      decimal.Decimal
	Investments  decimal.Decimal
	ExpenseCount int
}

// Balance is what is left after expenses and investments.
func (t MonthTotals) Balance() decimal.Decimal {
	return t.Incomes.Sub(t.Expenses).Sub(t.Investments)
}

// IsEmpty reports whether nothing was recorded in the month.
func (t MonthTotals) IsEmpty() bool {
	return t.Expenses.IsZero() && t.Incomes.IsZero() && t.Investments.IsZero()
}

// TopCategory represents spending in one expense category
type TopCategory struct {
	CategoryID   *uuid.UUID
	CategoryName string
	Amount       decimal.Decimal
	MonthlyLimit *decimal.Decimal
	TxCount      int
}

// InsightsRepository defines the aggregate queries the narrator needs
type InsightsRepository interface {
	GetMonthTotals(ctx context.Context, userID uuid.UUID, monthStart time.Time) (*MonthTotals, error)
	GetTopCategories(ctx context.Context, userID uuid.UUID, monthStart time.Time, limit int) ([]TopCategory, error)
}

// Repository handles database queries for insights
type Repository struct {
	db db.DBTX
}

// NewRepository creates a new insights repository
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// GetMonthTotals sums expenses, incomes and investments for the month starting at monthStart
func (r *Repository) GetMonthTotals(ctx context.Context, userID uuid.UUID, monthStart time.Time) (*MonthTotals, error) {
	start, end := monthBounds(monthStart)

	query := `
		SELECT
			(SELECT COALESCE(SUM(ROUND(amount * COALESCE(report_weight, 1), 2)), 0)
			   FROM expenses WHERE user_id = $1 AND date >= $2 AND date < $3),
			(SELECT COUNT(*) FROM expenses WHERE user_id = $1 AND date >= $2 AND date < $3),
			(SELECT COALESCE(SUM(amount), 0)
			   FROM incomes WHERE user_id = $1 AND date >= $2 AND date < $3),
			(SELECT COALESCE(SUM(amount), 0)
			   FROM investments WHERE user_id = $1 AND month = $4)
	`

	var t MonthTotals
	if err := r.db.QueryRow(ctx, query, userID, start, end, start.Format("2006-01")).
		Scan(&t.Expenses, &t.ExpenseCount, &t.Incomes, &t.Investments); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTopCategories returns the month's expense categories by reported spend
func (r *Repository) GetTopCategories(ctx context.Context, userID uuid.UUID, monthStart time.Time, limit int) ([]TopCategory, error) {
	start, end := monthBounds(monthStart)

	query := `
		SELECT e.category_id, COALESCE(c.name, 'Sem categoria') AS category_name, c.monthly_limit,
		       SUM(ROUND(e.amount * COALESCE(e.report_weight, 1), 2)) AS total_amount,
		       COUNT(*) AS tx_count
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = $1
		  AND e.date >= $2
		  AND e.date < $3
		GROUP BY e.category_id, c.name, c.monthly_limit
		ORDER BY total_amount DESC
		LIMIT $4
	`

	rows, err := r.db.Query(ctx, query, userID, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []TopCategory
	for rows.Next() {
		var (
			c            TopCategory
			monthlyLimit decimal.NullDecimal
		)
		if err := rows.Scan(&c.CategoryID, &c.CategoryName, &monthlyLimit, &c.Amount, &c.TxCount); err != nil {
			return nil, err
		}
		if monthlyLimit.Valid {
			c.MonthlyLimit = &monthlyLimit.Decimal
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

func monthBounds(monthStart time.Time) (time.Time, time.Time) {
	start := time.Date(monthStart.Year(), monthStart.Month(), 1, 0, 0, 0, 0, monthStart.Location())
	return start, start.AddDate(0, 1, 0)
}
