package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/rs/zerolog/log"
	apiContext "notebridge/internal/api/context"
	"notebridge/internal/engine/gate"
	"notebridge/internal/engine/workspace"
	"notebridge/internal/pkg/errors"
	"notebridge/internal/platform/models"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func currentUser(r *http.Request) *models.User {
	return r.Context().Value(apiContext.CurrentUser).(*models.User)
}

// writeGateError maps gate outcomes to the stable status/code contract every
// content-producing endpoint shares.
func writeGateError(w http.ResponseWriter, err error) {
	switch {
	case stderrors.Is(err, gate.ErrNoTargetConfigured):
		errors.WriteError(w, http.StatusBadRequest, errors.CodeNoTargetConfigured, "No target resource configured", nil)
	case stderrors.Is(err, gate.ErrReauthRequired):
		errors.WriteError(w, http.StatusUnauthorized, errors.CodeReauthRequired, "External access revoked, please re-authenticate", nil)
	case stderrors.Is(err, gate.ErrResourceGone):
		errors.WriteError(w, http.StatusGone, errors.CodeResourceDeleted, "Target resource was deleted, please pick a new one", nil)
	case stderrors.Is(err, workspace.ErrUnauthorized):
		// Still rejected after the one refresh retry. The stored pair is no
		// good; only a fresh authorization can recover.
		errors.WriteError(w, http.StatusUnauthorized, errors.CodeReauthRequired, "External access revoked, please re-authenticate", nil)
	default:
		var apiErr *workspace.APIError
		if stderrors.As(err, &apiErr) {
			log.Error().Err(err).Msg("workspace api call failed")
			errors.WriteError(w, http.StatusBadGateway, errors.CodeInternal, "Workspace call failed", nil)
			return
		}
		log.Error().Err(err).Msg("request failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.CodeInternal, "Internal error", nil)
	}
}
