// Package interceptors holds the HTTP middleware shared by every route:
// bearer authentication, rate limiting and request logging.
package interceptors

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenValidator resolves a bearer token to its user.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, accessToken string) (uuid.UUID, error)
}

// WithUserID stores the authenticated user id on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext returns the authenticated user id, if any.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// Auth rejects requests without a valid "Authorization: Bearer" token with
// 401 and a spoken fallback, and puts the user id on the request context.
func Auth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				unauthorized(w)
				return
			}
			userID, err := validator.ValidateAccessToken(r.Context(), strings.TrimSpace(token))
			if err != nil {
				logger.DebugContext(r.Context(), "rejected access token", slog.Any("error", err))
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID.String())))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"status":    "error",
		"error":     "authentication required",
		"speakText": "Você precisa entrar na sua conta para continuar.",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
