package handlers

import (
	"encoding/json"
	"net/http"

	"notebridge/internal/engine/license"
	"notebridge/internal/pkg/errors"
)

type LicenseHandler struct {
	licenses *license.Service
}

func NewLicenseHandler(licenses *license.Service) *LicenseHandler {
	return &LicenseHandler{licenses: licenses}
}

type ActivateRequest struct {
	Key        string `json:"key"`
	ExternalID string `json:"external_id"`
}

type ActivateResponse struct {
	Outcome license.Outcome `json:"outcome"`
}

// Activate binds a key to an external identity. Internal endpoint used by the
// callback flow; the outcome is reported rather than mapped to an HTTP error
// so the caller can branch on it.
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.CodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Key == "" || req.ExternalID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.CodeInvalidInput, "key and external_id are required", nil)
		return
	}

	outcome, err := h.licenses.Activate(req.Key, req.ExternalID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.CodeInternal, "Database error", nil)
		return
	}

	writeJSON(w, http.StatusOK, ActivateResponse{Outcome: outcome})
}
