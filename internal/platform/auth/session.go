package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"notebridge/internal/platform/config"
)

// Verification failure reasons. All of them mean the client must discard the
// token and restart authentication; the distinction is for logging and tests.
var (
	ErrExpired          = errors.New("session token expired")
	ErrInvalidSignature = errors.New("session token signature invalid")
	ErrMalformed        = errors.New("session token malformed")
)

// SessionService mints and verifies signed session tokens. The payload is
// deliberately minimal: subject and expiry, nothing else. Verification never
// touches the database.
type SessionService struct {
	config config.SessionConfig
}

func NewSessionService(cfg config.SessionConfig) *SessionService {
	return &SessionService{config: cfg}
}

func (s *SessionService) Issue(externalID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   externalID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

// Verify returns the external identity bound to the token.
func (s *SessionService) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return []byte(s.config.Secret), nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrInvalidSignature
		default:
			return "", ErrMalformed
		}
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrMalformed
	}

	return claims.Subject, nil
}
