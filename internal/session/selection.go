package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/avolkov/scholarchat/internal/domain"
)

// SelectionSet tracks which source items the user has marked as
// retrieval context for the next outgoing query. Membership order is
// irrelevant; materialization follows source-item input order.
type SelectionSet struct {
	mu      sync.Mutex
	members map[string]bool
}

// NewSelectionSet creates an empty selection
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{members: make(map[string]bool)}
}

// Toggle flips membership for itemID and reports the new state.
// Toggling twice restores the original membership.
func (s *SelectionSet) Toggle(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.members[itemID] {
		delete(s.members, itemID)
		return false
	}
	s.members[itemID] = true
	return true
}

// Selected reports whether itemID is currently in the set.
func (s *SelectionSet) Selected(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[itemID]
}

// IDs returns the selected item ids, sorted for stable output.
func (s *SelectionSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MaterializeContext renders the selected items as context texts, in
// the order the items appear in sourceItems (input order, not insertion
// order of the set). An empty selection yields an empty sequence.
func (s *SelectionSet) MaterializeContext(sourceItems []domain.SourceItem) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var texts []string
	for _, item := range sourceItems {
		if s.members[item.ID] {
			texts = append(texts, fmt.Sprintf("%s: %s", item.Title, item.Description))
		}
	}
	return texts
}
