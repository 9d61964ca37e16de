package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer         = "echo-voice-assistant"
	defaultAccessTokenTTL = 24 * time.Hour
)

var (
	// ErrInvalidToken covers malformed, expired and wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid access token")
)

// Claims are the access token claims. The subject is the user id.
type Claims struct {
	DeviceID string `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return id, nil
}

// TokenManager issues and validates access tokens.
type TokenManager interface {
	GenerateAccessToken(userID uuid.UUID, deviceID string) (string, error)
	ValidateAccessToken(token string) (*Claims, error)
}

// JWTManager signs HS256 access tokens with a shared secret.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

var _ TokenManager = (*JWTManager)(nil)

// NewJWTManager creates a token manager. A non-positive ttl uses one day.
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}
	return &JWTManager{secret: []byte(secret), issuer: defaultIssuer, ttl: ttl, now: time.Now}
}

// GenerateAccessToken signs a token for userID, optionally bound to a device.
func (m *JWTManager) GenerateAccessToken(userID uuid.UUID, deviceID string) (string, error) {
	now := m.now()
	claims := Claims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken verifies signature, issuer and expiry.
func (m *JWTManager) ValidateAccessToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
