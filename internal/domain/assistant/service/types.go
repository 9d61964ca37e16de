package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
)

// TurnType discriminates inbound turns.
type TurnType string

const (
	TurnInterpret TurnType = "interpret"
	TurnConfirm   TurnType = "confirm"
	TurnInsights  TurnType = "insights"
)

// Response statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// InterpretRequest asks the assistant to understand one utterance.
type InterpretRequest struct {
	DeviceID string
	Locale   string
	Text     string
}

// ConfirmRequest answers a pending command.
type ConfirmRequest struct {
	DeviceID   string
	CommandID  uuid.UUID
	Confirmed  bool
	SpokenText string
	Method     assistant.ConfirmMethod
}

// InsightsRequest asks for the narrated report of a month (yyyy-MM, empty for
// the current month).
type InsightsRequest struct {
	DeviceID string
	Locale   string
	Month    string
}

// Response is the outcome of any turn. SpeakText is always set.
type Response struct {
	Status               string                     `json:"status"`
	RequiresConfirmation bool                       `json:"requiresConfirmation"`
	SpeakText            string                     `json:"speakText"`
	CommandID            *uuid.UUID                 `json:"commandId,omitempty"`
	Intent               assistant.Intent           `json:"intent,omitempty"`
	Options              []assistant.CategoryOption `json:"options,omitempty"`
	Payload              any                        `json:"payload,omitempty"`
	Error                string                     `json:"error,omitempty"`
}

// EntryResult describes one written ledger row.
type EntryResult struct {
	ID             uuid.UUID                 `json:"id"`
	Type           assistant.TransactionType `json:"type"`
	Description    string                    `json:"description"`
	Amount         decimal.Decimal           `json:"amount"`
	ReportedAmount decimal.Decimal           `json:"reportedAmount"`
	Category       string                    `json:"category,omitempty"`
	Date           string                    `json:"date,omitempty"`
	Month          string                    `json:"month,omitempty"`
}

// RecordResult describes the row an update or delete touched.
type RecordResult struct {
	ID          uuid.UUID                 `json:"id"`
	Type        assistant.TransactionType `json:"type"`
	Description string                    `json:"description"`
	Amount      decimal.Decimal           `json:"amount"`
	NewAmount   *decimal.Decimal          `json:"newAmount,omitempty"`
	Date        string                    `json:"date,omitempty"`
	Deleted     bool                      `json:"deleted,omitempty"`
}

// CategoryResult describes a created category.
type CategoryResult struct {
	ID    uuid.UUID                 `json:"id"`
	Name  string                    `json:"name"`
	Type  assistant.TransactionType `json:"type"`
	Color string                    `json:"color"`
}

// BalanceResult is the payload of get_month_balance.
type BalanceResult struct {
	Month       string          `json:"month"`
	Expenses    decimal.Decimal `json:"expenses"`
	Incomes     decimal.Decimal `json:"incomes"`
	Investments decimal.Decimal `json:"investments"`
	Balance     decimal.Decimal `json:"balance"`
}

// ExecutionResult is what a command stores once it ran.
type ExecutionResult struct {
	Entries  []EntryResult   `json:"entries,omitempty"`
	Record   *RecordResult   `json:"record,omitempty"`
	Category *CategoryResult `json:"category,omitempty"`
	Balance  *BalanceResult  `json:"balance,omitempty"`
	Recent   []RecordResult  `json:"recent,omitempty"`
	Insights any             `json:"insights,omitempty"`
	Speak    string          `json:"speak"`
}

// Clock returns the current time. Tests pin it.
type Clock func() time.Time
