// Package store manages the sliding-window conversation memory keyed by
// sender. History is a single rendered string per conversation: turns in
// "[ROLE]: text" form joined by a separator, capped to the most recent
// turns, expiring after a fixed TTL.
package store

import (
	"context"
	"strings"
)

// TurnSeparator joins rendered turns in the stored history string.
const TurnSeparator = "\n---\n"

// Conversation roles as rendered into history.
const (
	RoleCustomer = "CLIENTE"
	RoleAgent    = "AGENTE"
)

// ConversationStore is the sliding-window history backend. Writes are
// last-write-wins: concurrent turns from one sender may drop each other,
// which is accepted for a chat memory.
type ConversationStore interface {
	// History returns the rendered history string, or "" when the
	// conversation is absent or expired.
	History(ctx context.Context, key string) (string, error)
	// AppendTurn adds "[role]: text", trims to the window, and refreshes
	// the TTL.
	AppendTurn(ctx context.Context, key, role, text string) error
	// Clear removes the conversation entirely.
	Clear(ctx context.Context, key string) error
}

// ConversationKey builds the canonical store key for a sender.
// Format: conv:{sender}
func ConversationKey(sender string) string {
	return "conv:" + sender
}

// RenderTurn formats one turn the way it is stored and shown to agents.
func RenderTurn(role, text string) string {
	return "[" + role + "]: " + text
}

// AppendWindowed appends a rendered turn to a history string and trims it
// to the last maxTurns turns. Both store implementations share this so the
// window semantics cannot drift between backends.
func AppendWindowed(history, role, text string, maxTurns int) string {
	var turns []string
	if history != "" {
		turns = strings.Split(history, TurnSeparator)
	}
	turns = append(turns, RenderTurn(role, text))
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	return strings.Join(turns, TurnSeparator)
}
