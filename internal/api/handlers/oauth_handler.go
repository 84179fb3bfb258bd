package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"notebridge/internal/engine/license"
	"notebridge/internal/engine/oauth"
	"notebridge/internal/pkg/errors"
	"notebridge/internal/platform/auth"
	"notebridge/internal/platform/models"
	"notebridge/internal/platform/repositories"
)

type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*oauth.TokenGrant, error)
}

type OAuthHandler struct {
	exchanger CodeExchanger
	licenses  *license.Service
	users     *repositories.UserRepository
	sessions  *auth.SessionService
}

func NewOAuthHandler(exchanger CodeExchanger, licenses *license.Service, users *repositories.UserRepository, sessions *auth.SessionService) *OAuthHandler {
	return &OAuthHandler{
		exchanger: exchanger,
		licenses:  licenses,
		users:     users,
		sessions:  sessions,
	}
}

type CallbackRequest struct {
	Code       string `json:"code"`
	LicenseKey string `json:"license_key"`
}

type CallbackResponse struct {
	SessionToken       string `json:"session_token"`
	WorkspaceName      string `json:"workspace_name"`
	NeedsResourceSetup bool   `json:"needs_resource_setup"`
}

// Callback completes the authorization flow: exchange the code, claim the
// license against the exchanged identity, upsert the user, issue a session.
// If the license is not usable the exchanged credentials are discarded and no
// user row or session is created.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.CodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Code == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.CodeInvalidInput, "Missing authorization code", nil)
		return
	}
	if req.LicenseKey == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.CodeInvalidInput, "Missing license key", nil)
		return
	}

	grant, err := h.exchanger.ExchangeCode(r.Context(), req.Code)
	if err != nil {
		// Surfaced verbatim; the code is single-use so there is no retry.
		log.Error().Err(err).Msg("oauth code exchange failed")
		errors.WriteError(w, http.StatusBadGateway, errors.CodeExchangeFailed, err.Error(), nil)
		return
	}

	outcome, err := h.licenses.Activate(req.LicenseKey, grant.ExternalID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.CodeInternal, "Database error", nil)
		return
	}
	if !outcome.OK() {
		log.Warn().Str("outcome", string(outcome)).Str("external_id", grant.ExternalID).Msg("license activation rejected")
		errors.WriteError(w, http.StatusForbidden, errors.CodeLicenseInvalid, activationMessage(outcome), map[string]string{"outcome": string(outcome)})
		return
	}

	user := &models.User{
		ExternalID:    grant.ExternalID,
		WorkspaceID:   grant.WorkspaceID,
		WorkspaceName: grant.WorkspaceName,
		AccessToken:   grant.AccessToken,
		RefreshToken:  grant.RefreshToken,
	}
	if err := h.users.Upsert(user); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.CodeInternal, "Failed to store user", nil)
		return
	}

	// Re-read so needs_resource_setup reflects a returning user's existing
	// target, which the upsert preserves.
	stored, err := h.users.GetByExternalID(grant.ExternalID)
	if err != nil || stored == nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.CodeInternal, "Failed to load user", nil)
		return
	}

	token, err := h.sessions.Issue(grant.ExternalID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.CodeInternal, "Failed to issue session", nil)
		return
	}

	writeJSON(w, http.StatusOK, CallbackResponse{
		SessionToken:       token,
		WorkspaceName:      stored.WorkspaceName,
		NeedsResourceSetup: !stored.HasTargetResource(),
	})
}

func activationMessage(outcome license.Outcome) string {
	switch outcome {
	case license.OutcomeAlreadyActivatedByOtherUser:
		return "License key is already in use by another account"
	case license.OutcomeRevoked:
		return "License key has been revoked"
	case license.OutcomeInvalidFormat:
		return "License key format is invalid"
	default:
		return "License key not found"
	}
}
