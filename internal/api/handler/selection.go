package handler

import (
	"net/http"

	"github.com/avolkov/scholarchat/internal/api/middleware"
	"github.com/avolkov/scholarchat/internal/api/response"
	"github.com/avolkov/scholarchat/internal/session"
	"github.com/go-chi/chi/v5"
)

// SelectionHandler exposes the retrieval-context selection set.
type SelectionHandler struct {
	sessions *session.Manager
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(sessions *session.Manager) *SelectionHandler {
	return &SelectionHandler{sessions: sessions}
}

// Toggle flips membership of a source item
func (h *SelectionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	state := h.sessions.Get(r.Context(), sessionID)

	itemID := chi.URLParam(r, "itemID")
	selected := state.Selection.Toggle(itemID)

	response.OK(w, map[string]any{
		"item_id":        itemID,
		"selected":       selected,
		"selected_items": state.Selection.IDs(),
	})
}

// Get returns the selected item ids
func (h *SelectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	state := h.sessions.Get(r.Context(), sessionID)

	response.OK(w, map[string]any{
		"selected_items": state.Selection.IDs(),
	})
}
