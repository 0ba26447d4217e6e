package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/avolkov/scholarchat/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TurnArchive persists dialogue messages outside the volatile session
// store. Writes are best effort and idempotent on message id, so a
// retried or duplicated archive call is harmless.
type TurnArchive struct {
	pool *pgxpool.Pool
}

// NewTurnArchive creates a new turn archive
func NewTurnArchive(db *DB) *TurnArchive {
	return &TurnArchive{pool: db.Pool}
}

// ArchiveMessage inserts one message.
func (a *TurnArchive) ArchiveMessage(ctx context.Context, sessionID, dialogueID string, msg domain.Message) error {
	query := `
		INSERT INTO dialogue_messages (id, session_id, dialogue_id, turn_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := a.pool.Exec(ctx, query,
		msg.ID,
		sessionID,
		dialogueID,
		msg.TurnID,
		string(msg.Role),
		msg.Content,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to archive message: %w", err)
	}
	return nil
}
