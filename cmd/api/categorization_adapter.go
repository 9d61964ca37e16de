package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	assistantservice "github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/service"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/categorization"
)

// categorizationAdapter adapts categorization.Service to the assistant's
// Resolver. When the mapping store is unavailable it resolves again from the
// dictionaries alone, so a turn never fails on a mapping lookup.
type categorizationAdapter struct {
	svc     *categorization.Service
	offline *categorization.Service
	logger  *slog.Logger
}

// newCategorizationAdapter creates a new adapter
func newCategorizationAdapter(svc *categorization.Service, logger *slog.Logger) assistantservice.Resolver {
	return &categorizationAdapter{
		svc:     svc,
		offline: categorization.NewService(nil, logger),
		logger:  logger,
	}
}

// Resolve implements assistantservice.Resolver
func (a *categorizationAdapter) Resolve(ctx context.Context, req categorization.Request) (assistant.Resolution, error) {
	res, err := a.svc.Resolve(ctx, req)
	if err == nil {
		return res, nil
	}
	a.logger.WarnContext(ctx, "mapping lookup failed, resolving without learned mappings",
		slog.String("user_id", req.UserID.String()),
		slog.Any("error", err),
	)
	return a.offline.Resolve(ctx, req)
}

// Learn implements assistantservice.Resolver
func (a *categorizationAdapter) Learn(ctx context.Context, userID uuid.UUID, t assistant.TransactionType, description string, categoryID uuid.UUID, confidence float64) error {
	return a.svc.Learn(ctx, userID, t, description, categoryID, confidence)
}
