// Package pg implements the Postgres-backed stores shared by multiple
// server and worker processes.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ventabot/ventabot/internal/store"
)

// ConversationStore implements store.ConversationStore on the
// conversations table. The append is a read-modify-write upsert, matching
// the last-write-wins contract of the interface.
type ConversationStore struct {
	db          *sql.DB
	windowTurns int
	ttl         time.Duration
}

func NewConversationStore(db *sql.DB, windowTurns int, ttl time.Duration) *ConversationStore {
	return &ConversationStore{db: db, windowTurns: windowTurns, ttl: ttl}
}

func (s *ConversationStore) History(ctx context.Context, key string) (string, error) {
	var history string
	err := s.db.QueryRowContext(ctx,
		`SELECT history FROM conversations WHERE key = $1 AND expires_at > now()`,
		key,
	).Scan(&history)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load conversation: %w", err)
	}
	return history, nil
}

func (s *ConversationStore) AppendTurn(ctx context.Context, key, role, text string) error {
	history, err := s.History(ctx, key)
	if err != nil {
		return err
	}

	updated := store.AppendWindowed(history, role, text, s.windowTurns)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (key, history, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET history = $2, expires_at = $3`,
		key, updated, time.Now().Add(s.ttl),
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (s *ConversationStore) Clear(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}

// SweepExpired deletes expired conversations. Called periodically by the
// worker process.
func (s *ConversationStore) SweepExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("sweep conversations: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
