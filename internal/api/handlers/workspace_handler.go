package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"notebridge/internal/engine/gate"
	"notebridge/internal/engine/workspace"
)

type PageSearcher interface {
	SearchPages(ctx context.Context, token, query string) ([]*workspace.Page, bool, error)
}

// WorkspaceHandler proxies page search so the client can offer a resource
// picker. Goes through the gate: a stale access token is refreshed here the
// same way as on a content request.
type WorkspaceHandler struct {
	gate      *gate.Gate
	workspace PageSearcher
}

func NewWorkspaceHandler(g *gate.Gate, ws PageSearcher) *WorkspaceHandler {
	return &WorkspaceHandler{gate: g, workspace: ws}
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	Pages   []*workspace.Page `json:"pages"`
	HasMore bool              `json:"has_more"`
}

func (h *WorkspaceHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if r.Body != nil {
		// Empty body means "list everything"
		json.NewDecoder(r.Body).Decode(&req)
	}

	user := currentUser(r)

	var res SearchResponse
	err := h.gate.Do(r.Context(), user, func(token string) error {
		pages, hasMore, err := h.workspace.SearchPages(r.Context(), token, req.Query)
		if err != nil {
			return err
		}
		res.Pages = pages
		res.HasMore = hasMore
		return nil
	})
	if err != nil {
		writeGateError(w, err)
		return
	}

	if res.Pages == nil {
		res.Pages = []*workspace.Page{}
	}
	writeJSON(w, http.StatusOK, res)
}
