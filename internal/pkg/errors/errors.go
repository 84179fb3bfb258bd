package errors

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// Machine-readable codes. The client reconciler keys its transitions off
// these strings, so they are part of the API contract.
const (
	CodeSessionInvalid     = "session_invalid"
	CodeLicenseInvalid     = "license_invalid"
	CodeReauthRequired     = "reauth_required"
	CodeResourceDeleted    = "resource_deleted"
	CodeNoTargetConfigured = "no_target_configured"
	CodeExchangeFailed     = "exchange_failed"
	CodeInvalidInput       = "invalid_input"
	CodeNotFound           = "not_found"
	CodeInternal           = "internal_error"
)

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}
