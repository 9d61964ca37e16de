package insights

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	totals     map[string]*MonthTotals
	totalsErr  map[string]error
	categories []TopCategory
	catErr     error
}

func (f *fakeRepo) GetMonthTotals(_ context.Context, _ uuid.UUID, monthStart time.Time) (*MonthTotals, error) {
	key := monthStart.Format("2006-01")
	if err := f.totalsErr[key]; err != nil {
		return nil, err
	}
	if t, ok := f.totals[key]; ok {
		return t, nil
	}
	return &MonthTotals{}, nil
}

func (f *fakeRepo) GetTopCategories(context.Context, uuid.UUID, time.Time, int) ([]TopCategory, error) {
	return f.categories, f.catErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_GetMonthlyInsights(t *testing.T) {
	userID := uuid.New()
	now := time.Date(2026, 4, 3, 12, 0, 0, 0, time.UTC)

	t.Run("narrates current against previous", func(t *testing.T) {
		repo := &fakeRepo{totals: map[string]*MonthTotals{
			"2026-03": {Expenses: dec("1100"), Incomes: dec("3000"), Investments: dec("200")},
			"2026-02": {Expenses: dec("1000")},
		}}
		svc := NewService(repo, testLogger())

		got, err := svc.GetMonthlyInsights(context.Background(), userID, march2026, now)
		require.NoError(t, err)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, TimingClosed, got.Timing)
		assert.Contains(t, highlightTexts(got), "Você gastou 10% a mais que em fevereiro de 2026.")
	})

	t.Run("current month failure is an error", func(t *testing.T) {
		repo := &fakeRepo{totalsErr: map[string]error{"2026-03": errors.New("timeout")}}
		_, err := NewService(repo, testLogger()).GetMonthlyInsights(context.Background(), userID, march2026, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get month totals")
	})

	t.Run("previous month and categories are optional", func(t *testing.T) {
		repo := &fakeRepo{
			totals:    map[string]*MonthTotals{"2026-03": {Expenses: dec("100"), Incomes: dec("50")}},
			totalsErr: map[string]error{"2026-02": errors.New("timeout")},
			catErr:    errors.New("timeout"),
		}
		got, err := NewService(repo, testLogger()).GetMonthlyInsights(context.Background(), userID, march2026, now)
		require.NoError(t, err)
		for _, h := range got.Highlights {
			assert.NotEqual(t, HighlightComparison, h.Kind)
		}
	})
}
