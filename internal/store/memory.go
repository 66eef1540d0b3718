package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	history   string
	expiresAt time.Time
}

// MemoryConversationStore keeps conversations in process memory.
// Used in standalone deployments and tests; a janitor goroutine sweeps
// expired entries so long-lived processes do not accumulate dead chats.
type MemoryConversationStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	windowTurns int
	ttl         time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryConversationStore builds a store with the given window size and
// TTL and starts the expiry janitor.
func NewMemoryConversationStore(windowTurns int, ttl time.Duration) *MemoryConversationStore {
	s := &MemoryConversationStore{
		entries:     make(map[string]memoryEntry),
		windowTurns: windowTurns,
		ttl:         ttl,
		stop:        make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryConversationStore) History(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", nil
	}
	return e.history, nil
}

func (s *MemoryConversationStore) AppendTurn(ctx context.Context, key, role, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history string
	if e, ok := s.entries[key]; ok && time.Now().Before(e.expiresAt) {
		history = e.history
	}
	s.entries[key] = memoryEntry{
		history:   AppendWindowed(history, role, text, s.windowTurns),
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryConversationStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close stops the janitor goroutine.
func (s *MemoryConversationStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryConversationStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
