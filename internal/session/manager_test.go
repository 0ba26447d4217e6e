package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avolkov/scholarchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshotter struct {
	mu    sync.Mutex
	snaps map[string]*Snapshot
	loads int
	saved chan struct{}
	fail  bool
}

func newFakeSnapshotter() *fakeSnapshotter {
	return &fakeSnapshotter{
		snaps: make(map[string]*Snapshot),
		saved: make(chan struct{}, 8),
	}
}

func (f *fakeSnapshotter) Load(_ context.Context, sessionID string) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.fail {
		return nil, errors.New("snapshot store down")
	}
	return f.snaps[sessionID], nil
}

func (f *fakeSnapshotter) Save(_ context.Context, sessionID string, snap *Snapshot) error {
	f.mu.Lock()
	f.snaps[sessionID] = snap
	f.mu.Unlock()
	f.saved <- struct{}{}
	return nil
}

func TestManager_GetCreatesOnce(t *testing.T) {
	m := NewManager(nil)

	s1 := m.Get(context.Background(), "session-1")
	s2 := m.Get(context.Background(), "session-1")
	other := m.Get(context.Background(), "session-2")

	assert.Same(t, s1, s2)
	assert.NotSame(t, s1, other)
}

func TestManager_RestoresSnapshot(t *testing.T) {
	snaps := newFakeSnapshotter()
	snaps.snaps["session-1"] = &Snapshot{
		Dialogues: []*domain.Dialogue{
			{ID: "d1", Summary: "old dialogue", Messages: []domain.Message{
				{ID: "m1", Role: domain.RoleUser, Content: "earlier question"},
			}},
		},
		CurrentDialogueID: "d1",
	}
	m := NewManager(snaps)

	state := m.Get(context.Background(), "session-1")
	assert.Equal(t, "d1", state.CurrentDialogueID())
	list := state.Store.ListDialogues()
	require.Len(t, list, 1)
	assert.Len(t, list[0].Messages, 1)

	// Second Get must not hit the snapshot store again.
	m.Get(context.Background(), "session-1")
	snaps.mu.Lock()
	assert.Equal(t, 1, snaps.loads)
	snaps.mu.Unlock()
}

// gatedSnapshotter blocks Load on a gate so a second Get can race the
// one-time history fetch.
type gatedSnapshotter struct {
	snap    *Snapshot
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedSnapshotter) Load(_ context.Context, _ string) (*Snapshot, error) {
	g.entered <- struct{}{}
	<-g.gate
	return g.snap, nil
}

func (g *gatedSnapshotter) Save(_ context.Context, _ string, _ *Snapshot) error {
	return nil
}

// A Get arriving while the snapshot is still loading must wait for the
// restore instead of receiving a state whose mutations the restore then
// wipes.
func TestManager_GetWaitsForSnapshotLoad(t *testing.T) {
	snaps := &gatedSnapshotter{
		snap: &Snapshot{
			Dialogues:         []*domain.Dialogue{{ID: "restored", Summary: "from snapshot"}},
			CurrentDialogueID: "restored",
		},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	m := NewManager(snaps)

	first := make(chan *State, 1)
	go func() {
		first <- m.Get(context.Background(), "session-1")
	}()
	<-snaps.entered

	second := make(chan *State, 1)
	go func() {
		second <- m.Get(context.Background(), "session-1")
	}()

	select {
	case <-second:
		t.Fatal("second Get returned before the snapshot restore finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(snaps.gate)
	s1 := <-first
	s2 := <-second
	assert.Same(t, s1, s2)
	assert.Equal(t, "restored", s1.CurrentDialogueID())

	// Mutations made once the state is visible survive alongside the
	// restored history.
	created := s2.Store.CreateDialogue("made after restore")
	_, err := s2.Store.AppendMessage(created.ID, domain.Message{ID: "m1", Role: domain.RoleUser, Content: "q"})
	require.NoError(t, err)

	got, err := s1.Store.SelectDialogue(created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
	_, err = s1.Store.SelectDialogue("restored")
	require.NoError(t, err)
}

func TestManager_LoadFailureStartsEmpty(t *testing.T) {
	snaps := newFakeSnapshotter()
	snaps.fail = true
	m := NewManager(snaps)

	state := m.Get(context.Background(), "session-1")
	assert.Empty(t, state.Store.ListDialogues())
	assert.Empty(t, state.CurrentDialogueID())
}

func TestManager_Persist(t *testing.T) {
	snaps := newFakeSnapshotter()
	m := NewManager(snaps)

	state := m.Get(context.Background(), "session-1")
	d := state.Store.CreateDialogue("summary")
	state.SetCurrentDialogueID(d.ID)

	m.Persist("session-1")
	select {
	case <-snaps.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for persist")
	}

	snaps.mu.Lock()
	defer snaps.mu.Unlock()
	snap := snaps.snaps["session-1"]
	require.NotNil(t, snap)
	require.Len(t, snap.Dialogues, 1)
	assert.Equal(t, d.ID, snap.CurrentDialogueID)

	// Unknown session ids are ignored.
	m.Persist("never-seen")
}
