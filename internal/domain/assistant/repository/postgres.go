package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/db"
)

const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db db.Pool
}

// NewPostgresStore creates a new PostgreSQL assistant store
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

var _ Store = (*PostgresStore)(nil)

// FindActiveSession returns the newest active session of a device and user.
// Expiry is left to the caller.
func (r *PostgresStore) FindActiveSession(ctx context.Context, deviceID string, userID uuid.UUID) (*assistant.Session, error) {
	query := `
		SELECT id, user_id, device_id, locale, status, expires_at, created_at, updated_at
		FROM assistant_sessions
		WHERE device_id = $1 AND user_id = $2 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1`

	var (
		s      assistant.Session
		status string
	)
	err := r.db.QueryRow(ctx, query, deviceID, userID).Scan(
		&s.ID, &s.UserID, &s.DeviceID, &s.Locale, &status, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, assistant.ErrNotFound
	}
	if err != nil {
		return nil, assistant.StoreError("find session", err)
	}
	s.Status = assistant.SessionStatus(status)
	return &s, nil
}

// CreateSession inserts a new active session
func (r *PostgresStore) CreateSession(ctx context.Context, s *assistant.Session) error {
	query := `
		INSERT INTO assistant_sessions (id, user_id, device_id, locale, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = assistant.SessionActive
	}

	err := r.db.QueryRow(ctx, query, s.ID, s.UserID, s.DeviceID, s.Locale, string(s.Status), s.ExpiresAt).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return assistant.StoreError("create session", err)
	}
	return nil
}

// TouchSession slides the session expiry forward.
func (r *PostgresStore) TouchSession(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	query := `UPDATE assistant_sessions SET expires_at = $2, updated_at = now() WHERE id = $1 AND status = 'active'`
	result, err := r.db.Exec(ctx, query, id, expiresAt)
	if err != nil {
		return assistant.StoreError("touch session", err)
	}
	if result.RowsAffected() == 0 {
		return assistant.ErrNotFound
	}
	return nil
}

// ExpireSession marks one session expired.
func (r *PostgresStore) ExpireSession(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE assistant_sessions SET status = 'expired', updated_at = now() WHERE id = $1 AND status = 'active'`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return assistant.StoreError("expire session", err)
	}
	return nil
}

// ExpireIdleSessions marks every active session past its expiry as expired.
func (r *PostgresStore) ExpireIdleSessions(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE assistant_sessions SET status = 'expired', updated_at = now() WHERE status = 'active' AND expires_at <= $1`
	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, assistant.StoreError("expire idle sessions", err)
	}
	return result.RowsAffected(), nil
}

const commandColumns = `id, session_id, user_id, raw_text, normalized_text, intent, confidence, slots,
		category_resolution, requires_confirmation, status, idempotency_key, execution_result,
		error_message, created_at, updated_at`

// CreateCommand inserts c. When a command with the same idempotency key
// already exists, c is overwritten with the stored one and replayed is true.
func (r *PostgresStore) CreateCommand(ctx context.Context, c *assistant.Command) (bool, error) {
	query := `
		INSERT INTO assistant_commands (id, session_id, user_id, raw_text, normalized_text, intent, confidence,
			slots, category_resolution, requires_confirmation, status, idempotency_key, execution_result,
			error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING created_at, updated_at`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	slots, resolutions, err := encodeSlots(c.Slots, c.Resolutions)
	if err != nil {
		return false, err
	}

	err = r.db.QueryRow(ctx, query,
		c.ID,
		c.SessionID,
		c.UserID,
		c.RawText,
		c.NormalizedText,
		string(c.Intent),
		c.Confidence,
		slots,
		resolutions,
		c.RequiresConfirmation,
		string(c.Status),
		c.IdempotencyKey,
		nullableJSON(c.ExecutionResult),
		c.ErrorMessage,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := r.getCommandByKey(ctx, c.IdempotencyKey)
		if err != nil {
			return false, err
		}
		*c = *existing
		return true, nil
	}
	if err != nil {
		return false, assistant.StoreError("create command", err)
	}
	return false, nil
}

func (r *PostgresStore) getCommandByKey(ctx context.Context, key string) (*assistant.Command, error) {
	query := `SELECT ` + commandColumns + ` FROM assistant_commands WHERE idempotency_key = $1`
	c, err := scanCommand(r.db.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, assistant.ErrNotFound
	}
	if err != nil {
		return nil, assistant.StoreError("get command", err)
	}
	return c, nil
}

// GetCommand loads a command owned by userID.
func (r *PostgresStore) GetCommand(ctx context.Context, id, userID uuid.UUID) (*assistant.Command, error) {
	query := `SELECT ` + commandColumns + ` FROM assistant_commands WHERE id = $1 AND user_id = $2`
	c, err := scanCommand(r.db.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, assistant.ErrNotFound
	}
	if err != nil {
		return nil, assistant.StoreError("get command", err)
	}
	return c, nil
}

// TransitionStatus moves a command from t.From to t.To only if it is still in
// t.From. Losing that race returns ErrConflict.
func (r *PostgresStore) TransitionStatus(ctx context.Context, id uuid.UUID, t Transition) error {
	if !assistant.CanTransition(t.From, t.To) {
		return fmt.Errorf("illegal transition %s -> %s: %w", t.From, t.To, assistant.ErrConflict)
	}

	query := `
		UPDATE assistant_commands
		SET status = $3,
		    execution_result = COALESCE($4, execution_result),
		    error_message = COALESCE($5, error_message),
		    updated_at = now()
		WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, string(t.From), string(t.To), nullableJSON(t.Result), t.Error)
	if err != nil {
		return assistant.StoreError("transition command", err)
	}
	if result.RowsAffected() == 0 {
		return assistant.ErrConflict
	}
	return nil
}

// UpdateCommandSlots stores slots and resolutions changed after creation.
func (r *PostgresStore) UpdateCommandSlots(ctx context.Context, id uuid.UUID, slots assistant.Slots, resolutions []assistant.Resolution) error {
	encodedSlots, encodedResolutions, err := encodeSlots(slots, resolutions)
	if err != nil {
		return err
	}
	query := `UPDATE assistant_commands SET slots = $2, category_resolution = $3, updated_at = now() WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, encodedSlots, encodedResolutions)
	if err != nil {
		return assistant.StoreError("update command slots", err)
	}
	if result.RowsAffected() == 0 {
		return assistant.ErrNotFound
	}
	return nil
}

// RecordCommandError stores an error message without changing the status.
func (r *PostgresStore) RecordCommandError(ctx context.Context, id uuid.UUID, message string) error {
	query := `UPDATE assistant_commands SET error_message = $2, updated_at = now() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, message); err != nil {
		return assistant.StoreError("record command error", err)
	}
	return nil
}

// ExpireStalePending expires commands left pending since before createdBefore.
func (r *PostgresStore) ExpireStalePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	query := `
		UPDATE assistant_commands
		SET status = 'expired', error_message = $2, updated_at = now()
		WHERE status = 'pending_confirmation' AND created_at < $1`

	result, err := r.db.Exec(ctx, query, createdBefore, assistant.ErrExpired.Error())
	if err != nil {
		return 0, assistant.StoreError("expire pending commands", err)
	}
	return result.RowsAffected(), nil
}

// ListCommands returns the user's commands created in [from, to) oldest first.
func (r *PostgresStore) ListCommands(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]assistant.Command, error) {
	query := `SELECT ` + commandColumns + `
		FROM assistant_commands
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, assistant.StoreError("list commands", err)
	}
	defer rows.Close()

	var commands []assistant.Command
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, assistant.StoreError("scan command", err)
		}
		commands = append(commands, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, assistant.StoreError("list commands", err)
	}
	return commands, nil
}

// InsertConfirmation appends a confirmation to the audit log
func (r *PostgresStore) InsertConfirmation(ctx context.Context, c *assistant.Confirmation) error {
	query := `
		INSERT INTO assistant_confirmations (id, command_id, confirmed, spoken_text, method)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, query, c.ID, c.CommandID, c.Confirmed, c.SpokenText, string(c.Method)).Scan(&c.CreatedAt)
	if err != nil {
		return assistant.StoreError("insert confirmation", err)
	}
	return nil
}

// ListCategories returns the user's categories of one ledger ordered by name.
// Investments have no categories.
func (r *PostgresStore) ListCategories(ctx context.Context, userID uuid.UUID, t assistant.TransactionType) ([]assistant.Category, error) {
	var query string
	switch t {
	case assistant.TypeExpense:
		query = `SELECT id, user_id, name, color, monthly_limit FROM categories WHERE user_id = $1 ORDER BY name`
	case assistant.TypeIncome:
		query = `SELECT id, user_id, name, color, NULL::numeric FROM income_categories WHERE user_id = $1 ORDER BY name`
	default:
		return nil, nil
	}

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, assistant.StoreError("list categories", err)
	}
	defer rows.Close()

	var categories []assistant.Category
	for rows.Next() {
		var (
			c            = assistant.Category{Type: t}
			monthlyLimit decimal.NullDecimal
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &monthlyLimit); err != nil {
			return nil, assistant.StoreError("scan category", err)
		}
		if monthlyLimit.Valid {
			c.MonthlyLimit = &monthlyLimit.Decimal
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, assistant.StoreError("list categories", err)
	}
	return categories, nil
}

// CreateCategory inserts an expense or income category. A case-insensitive
// name collision returns ErrConflict.
func (r *PostgresStore) CreateCategory(ctx context.Context, c *assistant.Category) error {
	var table string
	switch c.Type {
	case assistant.TypeExpense:
		table = "categories"
	case assistant.TypeIncome:
		table = "income_categories"
	default:
		return &assistant.ValidationError{Field: "target"}
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `INSERT INTO ` + table + ` (id, user_id, name, color) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.Exec(ctx, query, c.ID, c.UserID, c.Name, c.Color); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("category %q: %w", c.Name, assistant.ErrConflict)
		}
		return assistant.StoreError("create category", err)
	}
	return nil
}

// InsertEntries writes all entries in one transaction and returns their ids in
// order. Nothing is written when any insert fails.
func (r *PostgresStore) InsertEntries(ctx context.Context, userID uuid.UUID, entries []Entry) ([]uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, assistant.StoreError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		id := uuid.New()
		switch e.Type {
		case assistant.TypeExpense:
			_, err = tx.Exec(ctx, `
				INSERT INTO expenses (id, user_id, category_id, description, amount, report_weight, installment_count, date)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				id, userID, e.CategoryID, e.Description, e.Amount, e.ReportWeight, e.InstallmentCount, e.Date)
		case assistant.TypeIncome:
			_, err = tx.Exec(ctx, `
				INSERT INTO incomes (id, user_id, category_id, description, amount, date)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				id, userID, e.CategoryID, e.Description, e.Amount, e.Date)
		case assistant.TypeInvestment:
			_, err = tx.Exec(ctx, `
				INSERT INTO investments (id, user_id, description, amount, month)
				VALUES ($1, $2, $3, $4, $5)`,
				id, userID, e.Description, e.Amount, e.Month)
		default:
			return nil, &assistant.ValidationError{Field: "transactionType"}
		}
		if err != nil {
			return nil, assistant.StoreError("insert "+string(e.Type), err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, assistant.StoreError("commit entries", err)
	}
	return ids, nil
}

// FindRecords returns the user's most recent ledger rows of the given types,
// newest first by date (investments by month).
func (r *PostgresStore) FindRecords(ctx context.Context, userID uuid.UUID, types []assistant.TransactionType, limit int) ([]Record, error) {
	query := `
		SELECT id, kind, description, amount, report_weight, category_name, sort_date, month, created_at
		FROM (
			SELECT e.id, 'expense' AS kind, e.description, e.amount, e.report_weight,
			       COALESCE(c.name, '') AS category_name, e.date AS sort_date, '' AS month, e.created_at
			FROM expenses e
			LEFT JOIN categories c ON c.id = e.category_id
			WHERE e.user_id = $1
			UNION ALL
			SELECT i.id, 'income', i.description, i.amount, NULL::numeric,
			       COALESCE(c.name, ''), i.date, '', i.created_at
			FROM incomes i
			LEFT JOIN income_categories c ON c.id = i.category_id
			WHERE i.user_id = $1
			UNION ALL
			SELECT v.id, 'investment', v.description, v.amount, NULL::numeric,
			       '', to_date(v.month || '-01', 'YYYY-MM-DD'), v.month::text, v.created_at
			FROM investments v
			WHERE v.user_id = $1
		) r
		WHERE r.kind = ANY($2)
		ORDER BY r.sort_date DESC, r.created_at DESC
		LIMIT $3`

	kinds := make([]string, len(types))
	for i, t := range types {
		kinds[i] = string(t)
	}

	rows, err := r.db.Query(ctx, query, userID, kinds, limit)
	if err != nil {
		return nil, assistant.StoreError("find records", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec    Record
			kind   string
			weight decimal.NullDecimal
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.Description, &rec.Amount, &weight,
			&rec.CategoryName, &rec.Date, &rec.Month, &rec.CreatedAt); err != nil {
			return nil, assistant.StoreError("scan record", err)
		}
		rec.Type = assistant.TransactionType(kind)
		if weight.Valid {
			rec.ReportWeight = &weight.Decimal
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, assistant.StoreError("find records", err)
	}
	return records, nil
}

// UpdateRecordAmount changes the amount of one ledger row.
func (r *PostgresStore) UpdateRecordAmount(ctx context.Context, userID uuid.UUID, t assistant.TransactionType, id uuid.UUID, amount decimal.Decimal) error {
	table, err := ledgerTable(t)
	if err != nil {
		return err
	}
	result, err := r.db.Exec(ctx, `UPDATE `+table+` SET amount = $3 WHERE id = $1 AND user_id = $2`, id, userID, amount)
	if err != nil {
		return assistant.StoreError("update "+string(t), err)
	}
	if result.RowsAffected() == 0 {
		return assistant.ErrNotFound
	}
	return nil
}

// DeleteRecord removes one ledger row.
func (r *PostgresStore) DeleteRecord(ctx context.Context, userID uuid.UUID, t assistant.TransactionType, id uuid.UUID) error {
	table, err := ledgerTable(t)
	if err != nil {
		return err
	}
	result, err := r.db.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return assistant.StoreError("delete "+string(t), err)
	}
	if result.RowsAffected() == 0 {
		return assistant.ErrNotFound
	}
	return nil
}

func ledgerTable(t assistant.TransactionType) (string, error) {
	switch t {
	case assistant.TypeExpense:
		return "expenses", nil
	case assistant.TypeIncome:
		return "incomes", nil
	case assistant.TypeInvestment:
		return "investments", nil
	}
	return "", &assistant.ValidationError{Field: "transactionType"}
}

func scanCommand(row pgx.Row) (*assistant.Command, error) {
	var (
		c                  assistant.Command
		intent, status     string
		slots, resolutions []byte
		executionResult    []byte
	)
	err := row.Scan(
		&c.ID,
		&c.SessionID,
		&c.UserID,
		&c.RawText,
		&c.NormalizedText,
		&intent,
		&c.Confidence,
		&slots,
		&resolutions,
		&c.RequiresConfirmation,
		&status,
		&c.IdempotencyKey,
		&executionResult,
		&c.ErrorMessage,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Intent = assistant.Intent(intent)
	c.Status = assistant.Status(status)
	if len(slots) > 0 {
		if err := json.Unmarshal(slots, &c.Slots); err != nil {
			return nil, fmt.Errorf("failed to decode slots: %w", err)
		}
	}
	if len(resolutions) > 0 {
		if err := json.Unmarshal(resolutions, &c.Resolutions); err != nil {
			return nil, fmt.Errorf("failed to decode category resolution: %w", err)
		}
	}
	if len(executionResult) > 0 {
		c.ExecutionResult = json.RawMessage(executionResult)
	}
	return &c, nil
}

func encodeSlots(slots assistant.Slots, resolutions []assistant.Resolution) ([]byte, []byte, error) {
	encodedSlots, err := json.Marshal(slots)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode slots: %w", err)
	}
	if resolutions == nil {
		resolutions = []assistant.Resolution{}
	}
	encodedResolutions, err := json.Marshal(resolutions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode category resolution: %w", err)
	}
	return encodedSlots, encodedResolutions, nil
}

// nullableJSON maps an empty payload to SQL NULL.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
