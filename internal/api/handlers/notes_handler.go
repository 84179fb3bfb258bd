package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"notebridge/internal/engine/gate"
	"notebridge/internal/pkg/errors"
)

type PageCreator interface {
	CreatePage(ctx context.Context, token, parentID, title string, paragraphs []string) (string, error)
}

// NotesHandler is the content-producing endpoint: it writes a note as a new
// page under the user's target resource, through the gate.
type NotesHandler struct {
	gate      *gate.Gate
	workspace PageCreator
}

func NewNotesHandler(g *gate.Gate, ws PageCreator) *NotesHandler {
	return &NotesHandler{gate: g, workspace: ws}
}

type CreateNoteRequest struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
}

type CreateNoteResponse struct {
	OK     bool   `json:"ok"`
	PageID string `json:"page_id"`
}

func (h *NotesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.CodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Title == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.CodeInvalidInput, "Missing title", nil)
		return
	}

	user := currentUser(r)

	var pageID string
	err := h.gate.DoWithTarget(r.Context(), user, func(token, targetID string) error {
		id, err := h.workspace.CreatePage(r.Context(), token, targetID, req.Title, req.Paragraphs)
		if err != nil {
			return err
		}
		pageID = id
		return nil
	})
	if err != nil {
		writeGateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateNoteResponse{OK: true, PageID: pageID})
}
