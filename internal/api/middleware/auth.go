package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	apiContext "notebridge/internal/api/context"
	"notebridge/internal/pkg/errors"
	"notebridge/internal/platform/auth"
	"notebridge/internal/platform/repositories"
)

// AuthMiddleware is the request-level half of the authorization gate: it
// verifies the bearer session token, resolves the user, and re-checks the
// license on every request. License revocation takes precedence over a valid
// session; it is not a login-time-only check.
type AuthMiddleware struct {
	sessions *auth.SessionService
	users    *repositories.UserRepository
	licenses *repositories.LicenseRepository
}

func NewAuthMiddleware(sessions *auth.SessionService, users *repositories.UserRepository, licenses *repositories.LicenseRepository) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, users: users, licenses: licenses}
}

func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.CodeSessionInvalid, "Missing authorization header", nil)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			errors.WriteError(w, http.StatusUnauthorized, errors.CodeSessionInvalid, "Invalid authorization header format", nil)
			return
		}

		externalID, err := m.sessions.Verify(parts[1])
		if err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.CodeSessionInvalid, "Invalid or expired session token", nil)
			return
		}

		user, err := m.users.GetByExternalID(externalID)
		if err != nil {
			errors.WriteError(w, http.StatusInternalServerError, errors.CodeInternal, "Database error", nil)
			return
		}
		if user == nil {
			// A valid signature for an unknown identity should not happen;
			// treat it the same as a bad token.
			log.Warn().Str("external_id", externalID).Msg("valid session for unknown user")
			errors.WriteError(w, http.StatusUnauthorized, errors.CodeSessionInvalid, "Unknown user", nil)
			return
		}

		lic, err := m.licenses.GetByUser(externalID)
		if err != nil {
			errors.WriteError(w, http.StatusInternalServerError, errors.CodeInternal, "Database error", nil)
			return
		}
		if lic == nil || !lic.IsActive {
			errors.WriteError(w, http.StatusForbidden, errors.CodeLicenseInvalid, "License is revoked or missing", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.CurrentUser, user)
		next(w, r.WithContext(ctx))
	}
}
