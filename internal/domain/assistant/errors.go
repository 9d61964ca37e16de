package assistant

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is a malformed turn; no command is created.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated means no user could be resolved for the turn.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound is an unknown command or no matching ledger record.
	ErrNotFound = errors.New("not found")
	// ErrExpired is a confirmation outside the confirmation window.
	ErrExpired = errors.New("confirmation window expired")
	// ErrConflict means the command left the expected status before we did.
	ErrConflict = errors.New("command status changed concurrently")
	// ErrUnresolvedCategory means the spoken answer matched none of the
	// offered categories. The command stays confirmed and can be answered again.
	ErrUnresolvedCategory = errors.New("category could not be resolved from speech")
	// ErrStore wraps persistence failures.
	ErrStore = errors.New("store failure")
)

// ValidationError names the missing or invalid field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid or missing field %q", e.Field)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StoreError wraps an underlying persistence error.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
