package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestMemoryQueueFinishesJob(t *testing.T) {
	q := NewMemoryQueue(Options{MaxRetries: 3})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go q.Run(ctx, 2, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var in map[string]string
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, err
		}
		return map[string]string{"echo": in["body"]}, nil
	})

	id, err := q.Enqueue(ctx, map[string]string{"body": "hola"})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		job, err := q.Job(ctx, id)
		return err == nil && job.Status == StatusFinished
	})

	job, err := q.Job(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	var result map[string]string
	if err := json.Unmarshal(job.Result, &result); err != nil {
		t.Fatal(err)
	}
	if result["echo"] != "hola" {
		t.Errorf("result = %v", result)
	}
	if job.StartedAt == nil || job.EndedAt == nil {
		t.Error("missing timestamps")
	}
}

func TestMemoryQueueRetriesThenFails(t *testing.T) {
	q := NewMemoryQueue(Options{MaxRetries: 3})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int32
	go q.Run(ctx, 1, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		attempts.Add(1)
		return nil, errors.New("always fails")
	})

	id, err := q.Enqueue(ctx, map[string]string{"body": "x"})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		job, err := q.Job(ctx, id)
		return err == nil && job.Status == StatusFailed
	})

	// Initial attempt plus 3 retries.
	if got := attempts.Load(); got != 4 {
		t.Errorf("attempts = %d, want 4", got)
	}
	job, _ := q.Job(ctx, id)
	if job.Error != "always fails" {
		t.Errorf("error = %q", job.Error)
	}
	if job.RetriesLeft != 0 {
		t.Errorf("retries_left = %d", job.RetriesLeft)
	}
}

func TestMemoryQueueRecoversOnRetry(t *testing.T) {
	q := NewMemoryQueue(Options{MaxRetries: 3})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int32
	go q.Run(ctx, 1, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	})

	id, err := q.Enqueue(ctx, map[string]string{"body": "x"})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		job, err := q.Job(ctx, id)
		return err == nil && job.Status == StatusFinished
	})
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestMemoryQueueStats(t *testing.T) {
	q := NewMemoryQueue(Options{MaxRetries: 0})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(ctx, map[string]int{"i": i}); err != nil {
			t.Fatal(err)
		}
	}

	s, err := q.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Queued != 3 || s.Finished != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestMemoryQueueUnknownJob(t *testing.T) {
	q := NewMemoryQueue(Options{})
	id, _ := q.Enqueue(context.Background(), "x")
	other, _ := q.Job(context.Background(), id)
	if other == nil {
		t.Fatal("enqueued job should be readable")
	}

	if _, err := q.Job(context.Background(), uuid.New()); err == nil {
		t.Error("expected error for unknown job")
	}
}
