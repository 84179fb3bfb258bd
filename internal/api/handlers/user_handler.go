package handlers

import (
	"encoding/json"
	"net/http"

	"notebridge/internal/pkg/errors"
	"notebridge/internal/platform/repositories"
)

type UserHandler struct {
	users *repositories.UserRepository
}

func NewUserHandler(users *repositories.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

type UserInfoResponse struct {
	WorkspaceName     string `json:"workspace_name"`
	HasTargetResource bool   `json:"has_target_resource"`
	ExternalID        string `json:"external_id"`
}

func (h *UserHandler) Info(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	writeJSON(w, http.StatusOK, UserInfoResponse{
		WorkspaceName:     user.WorkspaceName,
		HasTargetResource: user.HasTargetResource(),
		ExternalID:        user.ExternalID,
	})
}

type SetTargetResourceRequest struct {
	ResourceID string `json:"resource_id"`
}

func (h *UserHandler) SetTargetResource(w http.ResponseWriter, r *http.Request) {
	var req SetTargetResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.CodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.ResourceID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.CodeInvalidInput, "Missing resource_id", nil)
		return
	}

	user := currentUser(r)
	if err := h.users.SetTargetResource(user.ExternalID, req.ResourceID); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.CodeInternal, "Failed to update target resource", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
