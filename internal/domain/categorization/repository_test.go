package categorization

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
)

var mappingColumns = []string{"id", "user_id", "phrase", "type", "category_id", "confidence", "usage_count", "last_used_at"}

func TestRepository_FindMappings(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	userID, recent, older := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, phrase, type, category_id`).
		WithArgs(userID, "almoco na unit", "expense").
		WillReturnRows(pgxmock.NewRows(mappingColumns).
			AddRow(uuid.New(), userID, "almoco na unit", "expense", recent, 0.95, 4, now).
			AddRow(uuid.New(), userID, "almoco na unit", "expense", older, 0.88, 9, now.Add(-time.Hour)))

	mappings, err := repo.FindMappings(context.Background(), userID, "almoco na unit", assistant.TypeExpense)
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	assert.Equal(t, recent, mappings[0].CategoryID)
	assert.Equal(t, assistant.TypeExpense, mappings[0].Type)
	assert.Equal(t, 4, mappings[0].UsageCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindMappings_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectQuery(`SELECT id, user_id, phrase`).
		WithArgs(userID, "uber", "expense").
		WillReturnError(errors.New("connection reset"))

	_, err = NewRepository(mock).FindMappings(context.Background(), userID, "uber", assistant.TypeExpense)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpsertMapping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := assistant.CategoryMapping{
		UserID:     uuid.New(),
		Phrase:     "uber",
		Type:       assistant.TypeExpense,
		CategoryID: uuid.New(),
		Confidence: MappingConfidence,
	}

	mock.ExpectExec(`INSERT INTO assistant_category_mappings`).
		WithArgs(m.UserID, m.Phrase, "expense", m.CategoryID, m.Confidence).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewRepository(mock).UpsertMapping(context.Background(), m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Learning a phrase and resolving it again goes through the repository.
func TestService_LearnThenResolve(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewService(NewRepository(mock), testLogger())
	userID := uuid.New()
	cats := categories(assistant.TypeExpense, "Alimentação", "Trabalho")
	req := Request{UserID: userID, Type: assistant.TypeExpense, Description: "Almoço na Unit", Categories: cats}

	mock.ExpectQuery(`SELECT id, user_id, phrase`).
		WithArgs(userID, "almoco na unit", "expense").
		WillReturnRows(pgxmock.NewRows(mappingColumns))

	first, err := svc.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, assistant.SourceKeyword, first.Selected.Source)

	mock.ExpectExec(`INSERT INTO assistant_category_mappings`).
		WithArgs(userID, "almoco na unit", "expense", cats[1].ID, MappingConfidence).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, svc.Learn(context.Background(), userID, assistant.TypeExpense, "Almoço na Unit", cats[1].ID, MappingConfidence))

	mock.ExpectQuery(`SELECT id, user_id, phrase`).
		WithArgs(userID, "almoco na unit", "expense").
		WillReturnRows(pgxmock.NewRows(mappingColumns).
			AddRow(uuid.New(), userID, "almoco na unit", "expense", cats[1].ID, MappingConfidence, 1, time.Now()))

	second, err := svc.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Trabalho", second.Selected.Name)
	assert.Equal(t, assistant.SourceMapping, second.Selected.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}
