package insights

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// TopCategoryLimit bounds how many categories the narrator looks at.
const TopCategoryLimit = 5

// Service handles insights business logic
type Service struct {
	repo   InsightsRepository
	logger *slog.Logger
}

// NewService creates a new insights service
func NewService(repo InsightsRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetMonthlyInsights narrates the month starting at monthStart as seen from now.
func (s *Service) GetMonthlyInsights(ctx context.Context, userID uuid.UUID, monthStart, now time.Time) (*MonthlyInsights, error) {
	current, err := s.repo.GetMonthTotals(ctx, userID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to get month totals: %w", err)
	}

	previous, err := s.repo.GetMonthTotals(ctx, userID, monthStart.AddDate(0, -1, 0))
	if err != nil {
		// The comparison is optional; narrate without it.
		s.logger.Warn("failed to get previous month totals", "user_id", userID, "error", err)
		previous = &MonthTotals{}
	}

	categories, err := s.repo.GetTopCategories(ctx, userID, monthStart, TopCategoryLimit)
	if err != nil {
		s.logger.Warn("failed to get top categories", "user_id", userID, "error", err)
		categories = nil
	}

	out := Narrate(monthStart, now, *current, *previous, categories)
	out.UserID = userID

	s.logger.Debug("narrated month",
		"user_id", userID,
		"month", out.Month,
		"timing", out.Timing,
		"highlights", len(out.Highlights),
	)
	return out, nil
}

// GetMonthTotals returns the raw aggregates for one month.
func (s *Service) GetMonthTotals(ctx context.Context, userID uuid.UUID, monthStart time.Time) (*MonthTotals, error) {
	totals, err := s.repo.GetMonthTotals(ctx, userID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to get month totals: %w", err)
	}
	return totals, nil
}
