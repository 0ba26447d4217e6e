package gateway

import "context"

// ChatMessage is one entry in a chat-completion request body.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RetrievalRequest is the request body for the retrieval gateway. Texts
// carry the materialized source snippets; no conversation history is
// included.
type RetrievalRequest struct {
	Texts    []string `json:"texts"`
	Question string   `json:"question"`
}

// ChatCompleter generates an answer from the full conversation history.
// Implementations report failures exclusively as *Fault.
type ChatCompleter interface {
	// Name returns the provider identifier
	Name() string

	// Complete returns the answer text for the given message sequence
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// Retriever answers a question constrained to the supplied context
// texts. Implementations report failures exclusively as *Fault.
type Retriever interface {
	Retrieve(ctx context.Context, req RetrievalRequest) (string, error)
}
