// Package repository provides persistence for assistant sessions, commands,
// confirmations and the ledger records commands write to.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
)

// Entry is one ledger row to insert. Date is used by expenses and incomes,
// Month (yyyy-MM) by investments.
type Entry struct {
	Type             assistant.TransactionType
	Description      string
	Amount           decimal.Decimal
	CategoryID       *uuid.UUID
	Date             time.Time
	Month            string
	InstallmentCount *int
	ReportWeight     *decimal.Decimal
}

// Record is an existing ledger row as seen by update, delete and listing.
type Record struct {
	ID           uuid.UUID
	Type         assistant.TransactionType
	Description  string
	Amount       decimal.Decimal
	ReportWeight *decimal.Decimal
	CategoryName string
	Date         time.Time
	Month        string
	CreatedAt    time.Time
}

// Transition is a compare-and-swap status change on a command.
type Transition struct {
	From   assistant.Status
	To     assistant.Status
	Result json.RawMessage
	Error  *string
}

// Store is everything the assistant service persists or reads.
type Store interface {
	// Sessions
	FindActiveSession(ctx context.Context, deviceID string, userID uuid.UUID) (*assistant.Session, error)
	CreateSession(ctx context.Context, s *assistant.Session) error
	TouchSession(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	ExpireSession(ctx context.Context, id uuid.UUID) error
	ExpireIdleSessions(ctx context.Context, now time.Time) (int64, error)

	// Commands
	CreateCommand(ctx context.Context, c *assistant.Command) (replayed bool, err error)
	GetCommand(ctx context.Context, id, userID uuid.UUID) (*assistant.Command, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, t Transition) error
	UpdateCommandSlots(ctx context.Context, id uuid.UUID, slots assistant.Slots, resolutions []assistant.Resolution) error
	RecordCommandError(ctx context.Context, id uuid.UUID, message string) error
	ExpireStalePending(ctx context.Context, createdBefore time.Time) (int64, error)
	ListCommands(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]assistant.Command, error)
	InsertConfirmation(ctx context.Context, c *assistant.Confirmation) error

	// Categories
	ListCategories(ctx context.Context, userID uuid.UUID, t assistant.TransactionType) ([]assistant.Category, error)
	CreateCategory(ctx context.Context, c *assistant.Category) error

	// Ledger
	InsertEntries(ctx context.Context, userID uuid.UUID, entries []Entry) ([]uuid.UUID, error)
	FindRecords(ctx context.Context, userID uuid.UUID, types []assistant.TransactionType, limit int) ([]Record, error)
	UpdateRecordAmount(ctx context.Context, userID uuid.UUID, t assistant.TransactionType, id uuid.UUID, amount decimal.Decimal) error
	DeleteRecord(ctx context.Context, userID uuid.UUID, t assistant.TransactionType, id uuid.UUID) error
}
