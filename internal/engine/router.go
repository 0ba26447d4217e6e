package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/avolkov/scholarchat/internal/domain"
	"github.com/avolkov/scholarchat/internal/gateway"
	"github.com/rs/zerolog/log"
)

// Canned replies carried over from the source behavior.
const (
	// ReplyEmptyQuery answers a blank query without any gateway call.
	ReplyEmptyQuery = "Feel free to ask me anything!"
	// ReplyFailure replaces the answer whenever a gateway call fails.
	ReplyFailure = "Sorry, I couldn't process your request at the moment."
	// ReplyNoAnswer softens the retrieval gateway's no-answer sentinel.
	ReplyNoAnswer = "I'm sorry, I don't have the information you're looking for."

	noAnswerSentinel = "I don't know."
)

// TurnState tracks one outgoing query through its lifecycle.
type TurnState string

const (
	TurnIdle       TurnState = "idle"
	TurnDispatched TurnState = "dispatched"
	TurnFulfilled  TurnState = "fulfilled"
	TurnFailed     TurnState = "failed"
)

// Backend identifies which service a turn was dispatched against.
type Backend string

const (
	BackendNone      Backend = "none"
	BackendChat      Backend = "chat"
	BackendRetrieval Backend = "retrieval"
)

// Turn is the record of a single routed query.
type Turn struct {
	ID         string    `json:"id"`
	DialogueID string    `json:"dialogue_id"`
	Query      string    `json:"query"`
	Provider   string    `json:"provider,omitempty"`
	Backend    Backend   `json:"backend"`
	State      TurnState `json:"state"`
	Content    string    `json:"-"`
}

// Router decides which backend answers a query, assembles its payload
// and degrades every gateway fault to a displayable reply. One attempt
// per turn, no retry, no backoff; a failure never propagates past the
// router.
type Router struct {
	completers *gateway.Registry
	retriever  gateway.Retriever
}

// NewRouter creates a response router over the configured gateways.
func NewRouter(completers *gateway.Registry, retriever gateway.Retriever) *Router {
	return &Router{completers: completers, retriever: retriever}
}

// Respond runs the turn state machine to completion. The turn always
// settles as Fulfilled or Failed with displayable content; Respond
// never returns an error to the caller.
//
// dialogue is the history snapshot taken when the turn was issued (it
// must not include the turn's own user message); contextTexts is the
// selection materialized against the currently known source items. An
// empty selection routes to the chat backend, anything else to the
// retrieval backend.
func (r *Router) Respond(ctx context.Context, turn *Turn, dialogue *domain.Dialogue, contextTexts []string) {
	if strings.TrimSpace(turn.Query) == "" {
		turn.Backend = BackendNone
		turn.State = TurnFulfilled
		turn.Content = ReplyEmptyQuery
		return
	}

	if len(contextTexts) == 0 {
		r.respondChat(ctx, turn, dialogue)
		return
	}
	r.respondRetrieval(ctx, turn, contextTexts)
}

func (r *Router) respondChat(ctx context.Context, turn *Turn, dialogue *domain.Dialogue) {
	turn.Backend = BackendChat

	completer, err := r.completers.Get(turn.Provider)
	if err != nil {
		r.settle(turn, "", gateway.NewFault(gateway.FaultUnavailable, "%v", err))
		return
	}

	turn.State = TurnDispatched
	content, err := completer.Complete(ctx, gateway.BuildChatPayload(dialogue, turn.Query))
	r.settle(turn, content, err)
}

func (r *Router) respondRetrieval(ctx context.Context, turn *Turn, contextTexts []string) {
	turn.Backend = BackendRetrieval
	turn.State = TurnDispatched

	content, err := r.retriever.Retrieve(ctx, gateway.BuildRetrievalPayload(contextTexts, turn.Query))
	if err == nil && content == noAnswerSentinel {
		content = ReplyNoAnswer
	}
	r.settle(turn, content, err)
}

// settle maps the gateway outcome onto the turn: success carries the
// content through, any fault becomes the fixed apology reply.
func (r *Router) settle(turn *Turn, content string, err error) {
	if err != nil {
		turn.State = TurnFailed
		turn.Content = ReplyFailure

		ev := log.Warn().
			Str("turn_id", turn.ID).
			Str("dialogue_id", turn.DialogueID).
			Str("backend", string(turn.Backend))
		var fault *gateway.Fault
		if errors.As(err, &fault) {
			ev = ev.Str("fault", string(fault.Kind))
		}
		ev.Err(err).Msg("turn failed")
		return
	}

	turn.State = TurnFulfilled
	turn.Content = content
}
