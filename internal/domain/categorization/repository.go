package categorization

import (
	"context"

	"github.com/google/uuid"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/db"
)

// Repository handles database operations for learned category mappings
type Repository struct {
	db db.DBTX
}

// NewRepository creates a new categorization repository
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// FindMappings fetches the mappings for an exact phrase, most recently used first
func (r *Repository) FindMappings(ctx context.Context, userID uuid.UUID, phrase string, t assistant.TransactionType) ([]assistant.CategoryMapping, error) {
	query := `
		SELECT id, user_id, phrase, type, category_id, confidence, usage_count, last_used_at
		FROM assistant_category_mappings
		WHERE user_id = $1 AND phrase = $2 AND type = $3
		ORDER BY last_used_at DESC, usage_count DESC
	`

	rows, err := r.db.Query(ctx, query, userID, phrase, string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []assistant.CategoryMapping
	for rows.Next() {
		var (
			m   assistant.CategoryMapping
			typ string
		)
		if err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.Phrase,
			&typ,
			&m.CategoryID,
			&m.Confidence,
			&m.UsageCount,
			&m.LastUsedAt,
		); err != nil {
			return nil, err
		}
		m.Type = assistant.TransactionType(typ)
		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}

// UpsertMapping records a phrase to category association, bumping usage and
// recency when it already exists
func (r *Repository) UpsertMapping(ctx context.Context, m assistant.CategoryMapping) error {
	query := `
		INSERT INTO assistant_category_mappings (user_id, phrase, type, category_id, confidence, usage_count, last_used_at)
		VALUES ($1, $2, $3, $4, $5, 1, now())
		ON CONFLICT (user_id, phrase, type, category_id) DO UPDATE SET
			usage_count = assistant_category_mappings.usage_count + 1,
			confidence = GREATEST(assistant_category_mappings.confidence, EXCLUDED.confidence),
			last_used_at = now()
	`

	_, err := r.db.Exec(ctx, query, m.UserID, m.Phrase, string(m.Type), m.CategoryID, m.Confidence)
	return err
}
