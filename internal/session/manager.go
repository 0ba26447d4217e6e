package session

import (
	"context"
	"sync"
	"time"

	"github.com/avolkov/scholarchat/internal/domain"
	"github.com/rs/zerolog/log"
)

// Snapshot is the serializable part of a session, persisted between
// client sessions on a best-effort basis.
type Snapshot struct {
	Dialogues         []*domain.Dialogue `json:"dialogues"`
	CurrentDialogueID string             `json:"current_dialogue_id,omitempty"`
}

// Snapshotter loads and saves session snapshots. Implementations must
// treat absence as a normal outcome: Load returns (nil, nil) on a miss.
type Snapshotter interface {
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Save(ctx context.Context, sessionID string, snap *Snapshot) error
}

// Manager hands out one State per client session. History is fetched
// exactly once, when a session id is first seen; a failed fetch starts
// the session empty.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*sessionEntry
	snapshots Snapshotter
}

// sessionEntry defers publishing its state until the one-time history
// fetch has finished. Concurrent Gets for the same id block on the
// Once, so no caller can mutate a state that Restore later replaces.
type sessionEntry struct {
	once  sync.Once
	state *State
}

// NewManager creates a session manager. snapshots may be nil, in which
// case every session starts empty and nothing is persisted.
func NewManager(snapshots Snapshotter) *Manager {
	return &Manager{
		sessions:  make(map[string]*sessionEntry),
		snapshots: snapshots,
	}
}

// Get returns the state for sessionID, creating it on first use. The
// first caller for a new id restores the snapshot before the state
// becomes visible; later callers wait for that restore, never racing it.
func (m *Manager) Get(ctx context.Context, sessionID string) *State {
	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{}
		m.sessions[sessionID] = entry
	}
	m.mu.Unlock()

	entry.once.Do(func() {
		state := NewState()
		if m.snapshots != nil {
			snap, err := m.snapshots.Load(ctx, sessionID)
			if err != nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to load session snapshot")
			} else if snap != nil {
				state.Store.Restore(snap.Dialogues)
				state.SetCurrentDialogueID(snap.CurrentDialogueID)
			}
		}
		entry.state = state
	})
	return entry.state
}

// Persist saves the session snapshot in the background. Failures are
// logged and otherwise ignored; the in-memory state stays authoritative.
func (m *Manager) Persist(sessionID string) {
	if m.snapshots == nil {
		return
	}

	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok || entry.state == nil {
		return
	}
	state := entry.state

	snap := &Snapshot{
		Dialogues:         state.Store.ListDialogues(),
		CurrentDialogueID: state.CurrentDialogueID(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.snapshots.Save(ctx, sessionID, snap); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to save session snapshot")
		}
	}()
}
