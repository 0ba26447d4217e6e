package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avolkov/scholarchat/internal/session"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotPrefix = "session:"
	snapshotTTL    = 24 * time.Hour
)

// SnapshotStore keeps best-effort session snapshots in Redis, serving
// the one-time history fetch at session start. Entries expire; a miss
// simply starts the session empty.
type SnapshotStore struct {
	client *Client
}

// NewSnapshotStore creates a new snapshot store
func NewSnapshotStore(client *Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

// Load retrieves the snapshot for a session, (nil, nil) on a miss.
func (s *SnapshotStore) Load(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	key := fmt.Sprintf("%s%s", snapshotPrefix, sessionID)

	data, err := s.client.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Save stores the snapshot with a TTL.
func (s *SnapshotStore) Save(ctx context.Context, sessionID string, snap *session.Snapshot) error {
	key := fmt.Sprintf("%s%s", snapshotPrefix, sessionID)

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.rdb.Set(ctx, key, data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
