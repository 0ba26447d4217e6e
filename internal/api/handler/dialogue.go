package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avolkov/scholarchat/internal/api/middleware"
	"github.com/avolkov/scholarchat/internal/api/response"
	"github.com/avolkov/scholarchat/internal/domain"
	"github.com/avolkov/scholarchat/internal/engine"
	"github.com/avolkov/scholarchat/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DialogueHandler exposes dialogue navigation and turn submission.
type DialogueHandler struct {
	sessions *session.Manager
	router   *engine.Router
	archiver engine.TurnArchiver
}

// NewDialogueHandler creates a new dialogue handler
func NewDialogueHandler(sessions *session.Manager, router *engine.Router, archiver engine.TurnArchiver) *DialogueHandler {
	return &DialogueHandler{sessions: sessions, router: router, archiver: archiver}
}

// controller builds the per-session controller for this request.
func (h *DialogueHandler) controller(r *http.Request) (*engine.Controller, string, bool) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		return nil, "", false
	}
	state := h.sessions.Get(r.Context(), sessionID)
	return engine.NewController(sessionID, state, h.router, h.archiver), sessionID, true
}

// List returns all dialogues of the session in creation order
func (h *DialogueHandler) List(w http.ResponseWriter, r *http.Request) {
	ctrl, _, ok := h.controller(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	response.OK(w, ctrl.State().Store.ListDialogues())
}

// Create starts a new dialogue and makes it current
func (h *DialogueHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctrl, sessionID, ok := h.controller(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	dialogue, locator := ctrl.NewDialogue()
	h.sessions.Persist(sessionID)

	response.Created(w, map[string]any{
		"dialogue": dialogue,
		"locator":  locator,
	})
}

// Get returns a single dialogue
func (h *DialogueHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctrl, _, ok := h.controller(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	dialogue, err := ctrl.State().Store.SelectDialogue(chi.URLParam(r, "dialogueID"))
	if err != nil {
		response.NotFound(w, "dialogue not found")
		return
	}

	response.OK(w, dialogue)
}

// SetCurrent makes a dialogue current and returns the locator
func (h *DialogueHandler) SetCurrent(w http.ResponseWriter, r *http.Request) {
	ctrl, sessionID, ok := h.controller(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	dialogueID := chi.URLParam(r, "dialogueID")
	locator, err := ctrl.SelectCurrent(dialogueID)
	if err != nil {
		response.NotFound(w, "dialogue not found")
		return
	}
	h.sessions.Persist(sessionID)

	response.OK(w, map[string]string{
		"current_dialogue_id": dialogueID,
		"locator":             locator,
	})
}

type submitTurnRequest struct {
	Query    string `json:"query" validate:"max=4000"`
	Provider string `json:"provider" validate:"omitempty,oneof=openai gemini"`
}

// SubmitTurn runs one user turn against the dialogue in the URL
func (h *DialogueHandler) SubmitTurn(w http.ResponseWriter, r *http.Request) {
	ctrl, sessionID, ok := h.controller(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req submitTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := ctrl.SubmitTurn(r.Context(), chi.URLParam(r, "dialogueID"), req.Query, req.Provider)
	if err != nil {
		if errors.Is(err, domain.ErrDialogueNotFound) {
			response.NotFound(w, "dialogue not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}
	h.sessions.Persist(sessionID)

	response.OK(w, result)
}

// State returns the read-only session view
func (h *DialogueHandler) State(w http.ResponseWriter, r *http.Request) {
	ctrl, _, ok := h.controller(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	response.OK(w, ctrl.State().Snapshot())
}
