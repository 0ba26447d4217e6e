package session

import (
	"sync"

	"github.com/avolkov/scholarchat/internal/domain"
)

// State holds everything the engine tracks for one client session: the
// dialogue store, the selection set, the current-dialogue indicator and
// the source items last returned by the search collaborator. The store
// mutates dialogues, the controller mutates the current id and the
// selection set mutates its own membership; nothing else writes here.
type State struct {
	Store     *Store
	Selection *SelectionSet

	mu        sync.Mutex
	currentID string
	sources   []domain.SourceItem
}

// NewState creates an empty session state
func NewState() *State {
	return &State{
		Store:     NewStore(),
		Selection: NewSelectionSet(),
	}
}

// CurrentDialogueID returns the current-dialogue indicator, empty if no
// dialogue has been made current yet.
func (s *State) CurrentDialogueID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// SetCurrentDialogueID updates the current-dialogue indicator.
func (s *State) SetCurrentDialogueID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentID = id
}

// SourceItems returns the source items the selection materializes
// against.
func (s *State) SourceItems() []domain.SourceItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.SourceItem, len(s.sources))
	copy(out, s.sources)
	return out
}

// SetSourceItems records the latest search results as the known source
// items.
func (s *State) SetSourceItems(items []domain.SourceItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sources = make([]domain.SourceItem, len(items))
	copy(s.sources, items)
}

// View is the read-only projection of a session handed to the
// presentation layer.
type View struct {
	Dialogues         []*domain.Dialogue  `json:"dialogues"`
	CurrentDialogueID string              `json:"current_dialogue_id,omitempty"`
	SelectedItems     []string            `json:"selected_items"`
	SourceItems       []domain.SourceItem `json:"source_items"`
}

// Snapshot builds a point-in-time view of the session.
func (s *State) Snapshot() View {
	return View{
		Dialogues:         s.Store.ListDialogues(),
		CurrentDialogueID: s.CurrentDialogueID(),
		SelectedItems:     s.Selection.IDs(),
		SourceItems:       s.SourceItems(),
	}
}
