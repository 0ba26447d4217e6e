package domain

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single utterance in a dialogue. TurnID correlates a user
// message with the assistant message produced for the same turn, even
// when pairs from overlapping turns interleave.
type Message struct {
	ID      string      `json:"id"`
	TurnID  string      `json:"turn_id,omitempty"`
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Dialogue represents one conversation thread. Messages are append-only
// and kept in send order.
type Dialogue struct {
	ID       string    `json:"id"`
	Summary  string    `json:"summary"`
	Messages []Message `json:"messages"`
}

// Clone returns a deep copy safe to hand outside the session store.
func (d *Dialogue) Clone() *Dialogue {
	if d == nil {
		return nil
	}
	out := &Dialogue{
		ID:       d.ID,
		Summary:  d.Summary,
		Messages: make([]Message, len(d.Messages)),
	}
	copy(out.Messages, d.Messages)
	return out
}

// SourceItem is one article returned by the search collaborator. It is
// read-only to the engine and only referenced by id in the selection.
type SourceItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}
