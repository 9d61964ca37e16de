// Package assistant holds the types shared by the voice assistant pipeline:
// intents, slots, commands and their lifecycle, and the domain error kinds.
package assistant

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Intent is the closed set of actions an utterance can request.
type Intent string

const (
	IntentAddExpense     Intent = "add_expense"
	IntentAddIncome      Intent = "add_income"
	IntentAddInvestment  Intent = "add_investment"
	IntentMonthBalance   Intent = "get_month_balance"
	IntentListRecent     Intent = "list_recent_transactions"
	IntentUpdate         Intent = "update_transaction"
	IntentDelete         Intent = "delete_transaction"
	IntentCreateCategory Intent = "create_category"
	IntentMonthInsights  Intent = "monthly_insights"
	IntentUnknown        Intent = "unknown"
)

// RequiresConfirmation reports whether commands with this intent mutate the
// ledger and therefore wait for a confirmation turn.
func (i Intent) RequiresConfirmation() bool {
	switch i {
	case IntentAddExpense, IntentAddIncome, IntentAddInvestment,
		IntentUpdate, IntentDelete, IntentCreateCategory:
		return true
	}
	return false
}

// IsAdd reports whether the intent records new ledger entries.
func (i Intent) IsAdd() bool {
	return i == IntentAddExpense || i == IntentAddIncome || i == IntentAddInvestment
}

// TransactionType is the ledger an entry belongs to.
type TransactionType string

const (
	TypeExpense    TransactionType = "expense"
	TypeIncome     TransactionType = "income"
	TypeInvestment TransactionType = "investment"
)

// TypeForIntent maps an add intent to the entry type it writes.
func TypeForIntent(i Intent) TransactionType {
	switch i {
	case IntentAddIncome:
		return TypeIncome
	case IntentAddInvestment:
		return TypeInvestment
	default:
		return TypeExpense
	}
}

// CategorySource tags how a category was chosen.
type CategorySource string

const (
	SourceMapping       CategorySource = "mapping"
	SourceKeyword       CategorySource = "keyword"
	SourceNameMatch     CategorySource = "name_match"
	SourceSimilarity    CategorySource = "similarity"
	SourceFallback      CategorySource = "fallback"
	SourceUncategorized CategorySource = "fallback_uncategorized"
	SourceSpeech        CategorySource = "speech"
)

// ResolvedCategory is the resolver's pick for one entry. ID is nil when the
// fallback found no category at all.
type ResolvedCategory struct {
	ID         *uuid.UUID     `json:"id,omitempty"`
	Name       string         `json:"name"`
	Confidence float64        `json:"confidence"`
	Source     CategorySource `json:"source"`
}

// CategoryOption is one ranked disambiguation candidate.
type CategoryOption struct {
	ID         *uuid.UUID `json:"id,omitempty"`
	Name       string     `json:"name"`
	Confidence float64    `json:"confidence,omitempty"`
}

// Resolution is the snapshot stored on a command for one entry.
type Resolution struct {
	Selected            *ResolvedCategory `json:"selected,omitempty"`
	Candidates          []CategoryOption  `json:"candidates,omitempty"`
	NeedsDisambiguation bool              `json:"needsDisambiguation"`
}

// Item is one ledger entry recovered from an utterance.
type Item struct {
	Amount           *decimal.Decimal  `json:"amount,omitempty"`
	Description      string            `json:"description,omitempty"`
	Date             string            `json:"date,omitempty"`
	Month            string            `json:"month,omitempty"`
	Category         *ResolvedCategory `json:"category,omitempty"`
	InstallmentCount *int              `json:"installmentCount,omitempty"`
	ReportWeight     *decimal.Decimal  `json:"reportWeight,omitempty"`
	TransactionType  TransactionType   `json:"transactionType"`
}

// ReportedAmount is the share of Amount attributed to the user.
func (it Item) ReportedAmount() decimal.Decimal {
	if it.Amount == nil {
		return decimal.Zero
	}
	if it.ReportWeight == nil {
		return *it.Amount
	}
	return it.Amount.Mul(*it.ReportWeight).Round(2)
}

// SlotVariant discriminates the Slots union.
type SlotVariant string

const (
	VariantEmpty    SlotVariant = "empty"
	VariantSingle   SlotVariant = "single"
	VariantMulti    SlotVariant = "multi"
	VariantTarget   SlotVariant = "target"
	VariantCategory SlotVariant = "category"
	VariantPeriod   SlotVariant = "period"
)

// Target identifies an existing record for update/delete and the new values.
type Target struct {
	Description string           `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	NewAmount   *decimal.Decimal `json:"newAmount,omitempty"`
	Type        TransactionType  `json:"type,omitempty"`
}

// NewCategory carries a create_category request.
type NewCategory struct {
	Name   string          `json:"name"`
	Target TransactionType `json:"target"`
	Color  string          `json:"color,omitempty"`
}

// Slots is the typed result of slot extraction. Exactly one of the embedded
// Item (single entry), Items (two or more entries), Target, NewCategory or
// Period is set, as named by Variant.
type Slots struct {
	Variant SlotVariant `json:"variant"`
	*Item
	Items       []Item       `json:"items,omitempty"`
	Target      *Target      `json:"target,omitempty"`
	NewCategory *NewCategory `json:"newCategory,omitempty"`
	Period      string       `json:"period,omitempty"`
}

// Entries returns the ledger entries in order; a single entry counts as one.
func (s Slots) Entries() []Item {
	if len(s.Items) > 0 {
		return s.Items
	}
	if s.Item != nil {
		return []Item{*s.Item}
	}
	return nil
}

// SetEntry replaces the i-th entry in place.
func (s *Slots) SetEntry(i int, it Item) {
	if len(s.Items) > 0 {
		s.Items[i] = it
		return
	}
	if s.Item != nil && i == 0 {
		*s.Item = it
	}
}

// Status is a command's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending_confirmation"
	StatusConfirmed Status = "confirmed"
	StatusDenied    Status = "denied"
	StatusExpired   Status = "expired"
	StatusExecuted  Status = "executed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDenied, StatusExpired, StatusExecuted, StatusFailed:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusDenied, StatusExpired},
	StatusConfirmed: {StatusExecuted, StatusFailed},
}

// CanTransition reports whether from -> to is a forward edge of the lifecycle.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SessionStatus is a device session's state.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionExpired SessionStatus = "expired"
	SessionClosed  SessionStatus = "closed"
)

// Session groups the turns of one device and user.
type Session struct {
	ID        uuid.UUID
	UserID    *uuid.UUID
	DeviceID  string
	Locale    string
	Status    SessionStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Command is one interpreted utterance and its lifecycle.
type Command struct {
	ID                   uuid.UUID
	SessionID            uuid.UUID
	UserID               uuid.UUID
	RawText              string
	NormalizedText       string
	Intent               Intent
	Confidence           float64
	Slots                Slots
	Resolutions          []Resolution
	RequiresConfirmation bool
	Status               Status
	IdempotencyKey       string
	ExecutionResult      json.RawMessage
	ErrorMessage         *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NeedsDisambiguation reports whether any entry is still waiting for a
// spoken category choice.
func (c *Command) NeedsDisambiguation() bool {
	for _, r := range c.Resolutions {
		if r.NeedsDisambiguation {
			return true
		}
	}
	return false
}

// ConfirmMethod is how the user answered.
type ConfirmMethod string

const (
	MethodVoice  ConfirmMethod = "voice"
	MethodText   ConfirmMethod = "text"
	MethodButton ConfirmMethod = "button"
)

// Confirmation is the append-only record of a confirm turn.
type Confirmation struct {
	ID         uuid.UUID
	CommandID  uuid.UUID
	Confirmed  bool
	SpokenText string
	Method     ConfirmMethod
	CreatedAt  time.Time
}

// CategoryMapping is a learned phrase to category association.
type CategoryMapping struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Phrase     string
	Type       TransactionType
	CategoryID uuid.UUID
	Confidence float64
	UsageCount int
	LastUsedAt time.Time
}

// Category is a user category from either the expense or income table.
type Category struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Name         string
	Color        string
	Type         TransactionType
	MonthlyLimit *decimal.Decimal
}
