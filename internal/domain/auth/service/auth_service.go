// Package service authenticates assistant devices with bearer access tokens.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// AuthService validates device tokens and mints them for operators.
type AuthService struct {
	tokenManager TokenManager
	logger       *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(tokenManager TokenManager, logger *slog.Logger) *AuthService {
	return &AuthService{tokenManager: tokenManager, logger: logger}
}

// ValidateAccessToken validates an access token and returns the user it
// belongs to.
func (s *AuthService) ValidateAccessToken(_ context.Context, accessToken string) (uuid.UUID, error) {
	if accessToken == "" {
		return uuid.Nil, fmt.Errorf("access token required: %w", ErrInvalidToken)
	}
	claims, err := s.tokenManager.ValidateAccessToken(accessToken)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID()
}

// IssueDeviceToken mints an access token for a user's device.
func (s *AuthService) IssueDeviceToken(ctx context.Context, userID uuid.UUID, deviceID string) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("user id required")
	}
	token, err := s.tokenManager.GenerateAccessToken(userID, deviceID)
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "issued device token",
		slog.String("user_id", userID.String()),
		slog.String("device_id", deviceID),
	)
	return token, nil
}
