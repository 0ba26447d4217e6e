package session

import (
	"sync"

	"github.com/avolkov/scholarchat/internal/domain"
	"github.com/google/uuid"
)

// Store owns the dialogue map for one client session and is its single
// point of mutation. Every append is applied against the store's
// current state, never against a snapshot captured by the caller, so a
// turn that resolves after the user has moved on still lands in the
// dialogue it was issued from.
type Store struct {
	mu        sync.Mutex
	dialogues map[string]*domain.Dialogue
	order     []string
}

// NewStore creates an empty dialogue store
func NewStore() *Store {
	return &Store{
		dialogues: make(map[string]*domain.Dialogue),
	}
}

// CreateDialogue allocates a dialogue with a fresh id and an empty
// message sequence. It does not change the current-dialogue indicator;
// that decision belongs to the controller.
func (s *Store) CreateDialogue(summary string) *domain.Dialogue {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &domain.Dialogue{
		ID:      uuid.NewString(),
		Summary: summary,
	}
	s.dialogues[d.ID] = d
	s.order = append(s.order, d.ID)
	return d.Clone()
}

// SelectDialogue returns a copy of the dialogue with the given id, or
// domain.ErrDialogueNotFound. Pure lookup, no mutation.
func (s *Store) SelectDialogue(id string) (*domain.Dialogue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dialogues[id]
	if !ok {
		return nil, domain.ErrDialogueNotFound
	}
	return d.Clone(), nil
}

// AppendMessage appends msg to the end of the dialogue's message
// sequence and returns the updated dialogue. The append always targets
// the live dialogue under the store lock; callers holding a stale copy
// of the dialogue cannot overwrite messages added since they read it.
func (s *Store) AppendMessage(dialogueID string, msg domain.Message) (*domain.Dialogue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dialogues[dialogueID]
	if !ok {
		return nil, domain.ErrDialogueNotFound
	}
	d.Messages = append(d.Messages, msg)
	return d.Clone(), nil
}

// SetSummary replaces the dialogue summary. Used to title a fresh
// dialogue after its first turn.
func (s *Store) SetSummary(dialogueID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dialogues[dialogueID]
	if !ok {
		return domain.ErrDialogueNotFound
	}
	d.Summary = summary
	return nil
}

// ListDialogues returns copies of all dialogues in creation order.
func (s *Store) ListDialogues() []*domain.Dialogue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Dialogue, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.dialogues[id].Clone())
	}
	return out
}

// Restore installs dialogues fetched at session start. It replaces the
// store contents and is only meant to be called before the session
// serves its first operation.
func (s *Store) Restore(dialogues []*domain.Dialogue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dialogues = make(map[string]*domain.Dialogue, len(dialogues))
	s.order = s.order[:0]
	for _, d := range dialogues {
		if d == nil || d.ID == "" {
			continue
		}
		s.dialogues[d.ID] = d.Clone()
		s.order = append(s.order, d.ID)
	}
}
