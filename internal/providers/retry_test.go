package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:        3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestRetryDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient server error", func(t *testing.T) {
		calls := 0
		got, err := RetryDo(ctx, fastRetryConfig(), func() (string, error) {
			calls++
			if calls < 3 {
				return "", &HTTPError{Status: 503, Body: "unavailable"}
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "ok" || calls != 3 {
			t.Errorf("got %q after %d calls", got, calls)
		}
	})

	t.Run("client error fails immediately", func(t *testing.T) {
		calls := 0
		_, err := RetryDo(ctx, fastRetryConfig(), func() (string, error) {
			calls++
			return "", &HTTPError{Status: 400, Body: "bad request"}
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("got %d calls, want 1", calls)
		}
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || httpErr.Status != 400 {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("gives up after max tries", func(t *testing.T) {
		calls := 0
		_, err := RetryDo(ctx, fastRetryConfig(), func() (string, error) {
			calls++
			return "", &HTTPError{Status: 429, Body: "rate limited"}
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 3 {
			t.Errorf("got %d calls, want 3", calls)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"not-a-number", 0},
		{"-1", 0},
	}
	for _, tt := range tests {
		if got := ParseRetryAfter(tt.in); got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
