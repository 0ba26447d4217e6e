package handler

import (
	"net/http"

	"github.com/avolkov/scholarchat/internal/api/middleware"
	"github.com/avolkov/scholarchat/internal/api/response"
	"github.com/avolkov/scholarchat/internal/search"
	"github.com/avolkov/scholarchat/internal/session"
)

// SearchHandler passes queries to the article search collaborator and
// records the results as the session's known source items.
type SearchHandler struct {
	sessions *session.Manager
	svc      search.Service
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(sessions *session.Manager, svc search.Service) *SearchHandler {
	return &SearchHandler{sessions: sessions, svc: svc}
}

// Search fetches articles for ?q= and updates the session source items
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	query := r.URL.Query().Get("q")
	items, err := h.svc.Search(r.Context(), query)
	if err != nil {
		response.BadGateway(w, "search service unavailable")
		return
	}

	state := h.sessions.Get(r.Context(), sessionID)
	state.SetSourceItems(items)

	response.OK(w, items)
}
