package engine

import (
	"context"
	"time"

	"github.com/avolkov/scholarchat/internal/domain"
	"github.com/avolkov/scholarchat/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const newDialogueSummary = "New Dialogue"

// TurnArchiver persists finished messages outside the volatile session
// store. Archiving is best effort; the session store stays
// authoritative.
type TurnArchiver interface {
	ArchiveMessage(ctx context.Context, sessionID, dialogueID string, msg domain.Message) error
}

// Controller bridges the session store and the response router to the
// presentation layer: it owns navigation between dialogues and drives
// turn submission. One Controller serves one client session.
type Controller struct {
	sessionID string
	state     *session.State
	router    *Router
	archiver  TurnArchiver
}

// NewController creates a controller for one client session. archiver
// may be nil.
func NewController(sessionID string, state *session.State, router *Router, archiver TurnArchiver) *Controller {
	return &Controller{
		sessionID: sessionID,
		state:     state,
		router:    router,
		archiver:  archiver,
	}
}

// State exposes the controller's session state for read-only views.
func (c *Controller) State() *session.State {
	return c.state
}

// SelectCurrent makes the dialogue current and returns the synchronized
// locator. Unknown ids are surfaced to the caller, not swallowed.
func (c *Controller) SelectCurrent(id string) (string, error) {
	if _, err := c.state.Store.SelectDialogue(id); err != nil {
		return "", err
	}
	c.state.SetCurrentDialogueID(id)
	return FormatLocator(id), nil
}

// RestoreFromLocator re-selects the dialogue a shared locator points
// at. A locator referencing an unknown dialogue leaves the current
// indicator untouched.
func (c *Controller) RestoreFromLocator(locator string) (string, error) {
	id := ParseLocator(locator)
	if id == "" {
		return "", domain.ErrDialogueNotFound
	}
	return c.SelectCurrent(id)
}

// NewDialogue creates a fresh dialogue, makes it current and returns it
// together with the updated locator.
func (c *Controller) NewDialogue() (*domain.Dialogue, string) {
	d := c.state.Store.CreateDialogue(newDialogueSummary)
	c.state.SetCurrentDialogueID(d.ID)
	return d, FormatLocator(d.ID)
}

// TurnResult is everything a completed turn produced.
type TurnResult struct {
	Turn      *Turn            `json:"turn"`
	User      domain.Message   `json:"user"`
	Assistant domain.Message   `json:"assistant"`
	Dialogue  *domain.Dialogue `json:"dialogue"`
}

// SubmitTurn runs one user turn against the dialogue identified by
// dialogueID, which is captured here at call time and never re-read.
// The user message is appended immediately; after the router settles,
// the assistant message is appended to that same captured dialogue via
// the live store, no matter how long the gateway took or where the user
// has navigated since. Gateway failures surface as apology content,
// never as an error; the only error is an unknown dialogue id.
func (c *Controller) SubmitTurn(ctx context.Context, dialogueID, query, provider string) (*TurnResult, error) {
	// History snapshot for the chat payload, taken before the turn's
	// own user message is appended.
	dialogue, err := c.state.Store.SelectDialogue(dialogueID)
	if err != nil {
		return nil, err
	}

	turn := &Turn{
		ID:         uuid.NewString(),
		DialogueID: dialogueID,
		Query:      query,
		Provider:   provider,
		State:      TurnIdle,
	}

	userMsg := domain.Message{
		ID:      uuid.NewString(),
		TurnID:  turn.ID,
		Role:    domain.RoleUser,
		Content: query,
	}
	if _, err := c.state.Store.AppendMessage(dialogueID, userMsg); err != nil {
		return nil, err
	}
	c.archive(dialogueID, userMsg)

	contextTexts := c.state.Selection.MaterializeContext(c.state.SourceItems())
	c.router.Respond(ctx, turn, dialogue, contextTexts)

	assistantMsg := domain.Message{
		ID:      uuid.NewString(),
		TurnID:  turn.ID,
		Role:    domain.RoleAssistant,
		Content: turn.Content,
	}
	updated, err := c.state.Store.AppendMessage(dialogueID, assistantMsg)
	if err != nil {
		return nil, err
	}
	c.archive(dialogueID, assistantMsg)

	c.maybeTitle(dialogue, turn)

	return &TurnResult{
		Turn:      turn,
		User:      userMsg,
		Assistant: assistantMsg,
		Dialogue:  updated,
	}, nil
}

// maybeTitle replaces the placeholder summary of a fresh dialogue with
// its first real question, truncated.
func (c *Controller) maybeTitle(dialogue *domain.Dialogue, turn *Turn) {
	if dialogue.Summary != newDialogueSummary || len(dialogue.Messages) > 0 || turn.Backend == BackendNone {
		return
	}
	title := turn.Query
	if runes := []rune(title); len(runes) > 30 {
		title = string(runes[:30]) + "..."
	}
	if err := c.state.Store.SetSummary(dialogue.ID, title); err != nil {
		log.Warn().Err(err).Str("dialogue_id", dialogue.ID).Msg("failed to update dialogue summary")
	}
}

// archive hands a message to the archiver in the background, in the
// same fire-and-forget fashion the turn itself never waits on.
func (c *Controller) archive(dialogueID string, msg domain.Message) {
	if c.archiver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.archiver.ArchiveMessage(ctx, c.sessionID, dialogueID, msg); err != nil {
			log.Warn().
				Err(err).
				Str("dialogue_id", dialogueID).
				Str("message_id", msg.ID).
				Msg("failed to archive message")
		}
	}()
}
