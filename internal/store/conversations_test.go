package store

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestAppendWindowed(t *testing.T) {
	t.Run("first turn", func(t *testing.T) {
		got := AppendWindowed("", RoleCustomer, "hola", 10)
		want := "[CLIENTE]: hola"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("turns joined by separator", func(t *testing.T) {
		h := AppendWindowed("", RoleCustomer, "hola", 10)
		h = AppendWindowed(h, RoleAgent, "buenas", 10)
		want := "[CLIENTE]: hola\n---\n[AGENTE]: buenas"
		if h != want {
			t.Errorf("got %q, want %q", h, want)
		}
	})

	t.Run("window keeps last N turns", func(t *testing.T) {
		h := ""
		for i := 0; i < 15; i++ {
			h = AppendWindowed(h, RoleCustomer, "m"+string(rune('a'+i)), 10)
		}
		turns := strings.Split(h, TurnSeparator)
		if len(turns) != 10 {
			t.Fatalf("got %d turns, want 10", len(turns))
		}
		if turns[0] != "[CLIENTE]: mf" {
			t.Errorf("oldest kept turn = %q, want [CLIENTE]: mf", turns[0])
		}
		if turns[9] != "[CLIENTE]: mo" {
			t.Errorf("newest turn = %q, want [CLIENTE]: mo", turns[9])
		}
	})
}

func TestConversationKey(t *testing.T) {
	if got := ConversationKey("+5215512345678"); got != "conv:+5215512345678" {
		t.Errorf("ConversationKey = %q", got)
	}
}

func TestMemoryConversationStore(t *testing.T) {
	ctx := context.Background()

	t.Run("append and read", func(t *testing.T) {
		s := NewMemoryConversationStore(10, time.Hour)
		defer s.Close()

		key := ConversationKey("+521555")
		if err := s.AppendTurn(ctx, key, RoleCustomer, "hola"); err != nil {
			t.Fatal(err)
		}
		if err := s.AppendTurn(ctx, key, RoleAgent, "buenas"); err != nil {
			t.Fatal(err)
		}

		h, err := s.History(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if h != "[CLIENTE]: hola\n---\n[AGENTE]: buenas" {
			t.Errorf("history = %q", h)
		}
	})

	t.Run("missing conversation is empty", func(t *testing.T) {
		s := NewMemoryConversationStore(10, time.Hour)
		defer s.Close()

		h, err := s.History(ctx, "conv:nobody")
		if err != nil {
			t.Fatal(err)
		}
		if h != "" {
			t.Errorf("history = %q, want empty", h)
		}
	})

	t.Run("expired conversation is empty", func(t *testing.T) {
		s := NewMemoryConversationStore(10, time.Millisecond)
		defer s.Close()

		key := ConversationKey("+521555")
		if err := s.AppendTurn(ctx, key, RoleCustomer, "hola"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)

		h, err := s.History(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if h != "" {
			t.Errorf("history after TTL = %q, want empty", h)
		}
	})

	t.Run("clear removes the conversation", func(t *testing.T) {
		s := NewMemoryConversationStore(10, time.Hour)
		defer s.Close()

		key := ConversationKey("+521555")
		if err := s.AppendTurn(ctx, key, RoleCustomer, "hola"); err != nil {
			t.Fatal(err)
		}
		if err := s.Clear(ctx, key); err != nil {
			t.Fatal(err)
		}

		h, _ := s.History(ctx, key)
		if h != "" {
			t.Errorf("history after clear = %q, want empty", h)
		}
	})

	t.Run("window enforced across appends", func(t *testing.T) {
		s := NewMemoryConversationStore(4, time.Hour)
		defer s.Close()

		key := ConversationKey("+521555")
		for i := 0; i < 9; i++ {
			if err := s.AppendTurn(ctx, key, RoleCustomer, "turno"); err != nil {
				t.Fatal(err)
			}
		}

		h, _ := s.History(ctx, key)
		if got := len(strings.Split(h, TurnSeparator)); got != 4 {
			t.Errorf("got %d turns, want 4", got)
		}
	})
}
