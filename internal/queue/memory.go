package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MemoryQueue keeps jobs in process memory. It backs standalone
// deployments where the server embeds its own workers, and the tests.
type MemoryQueue struct {
	opts Options

	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
	work chan uuid.UUID
}

func NewMemoryQueue(opts Options) *MemoryQueue {
	return &MemoryQueue{
		opts: opts.withDefaults(),
		jobs: make(map[uuid.UUID]*Job),
		work: make(chan uuid.UUID, 1024),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, payload interface{}) (uuid.UUID, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	job := &Job{
		ID:          uuid.Must(uuid.NewV7()),
		Payload:     raw,
		Status:      StatusQueued,
		RetriesLeft: q.opts.MaxRetries,
		EnqueuedAt:  time.Now(),
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()

	select {
	case q.work <- job.ID:
	default:
		q.mu.Lock()
		delete(q.jobs, job.ID)
		q.mu.Unlock()
		return uuid.Nil, fmt.Errorf("queue full")
	}
	return job.ID, nil
}

// Run consumes jobs with the given number of workers until ctx ends.
func (q *MemoryQueue) Run(ctx context.Context, workers int, h Handler) error {
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case id := <-q.work:
					q.process(ctx, id, h)
				}
			}
		})
	}

	g.Go(func() error { return q.sweep(ctx) })
	return g.Wait()
}

func (q *MemoryQueue) process(ctx context.Context, id uuid.UUID, h Handler) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	now := time.Now()
	job.Status = StatusStarted
	job.StartedAt = &now
	payload := job.Payload
	q.mu.Unlock()

	jobCtx, cancel := context.WithTimeout(ctx, q.opts.JobTimeout)
	result, err := h(jobCtx, payload)
	cancel()

	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok = q.jobs[id]
	if !ok {
		return
	}
	ended := time.Now()

	if err == nil {
		job.Status = StatusFinished
		job.Result = marshalResult(result)
		job.EndedAt = &ended
		return
	}

	job.Error = err.Error()
	if job.RetriesLeft > 0 {
		job.RetriesLeft--
		job.Status = StatusQueued
		job.StartedAt = nil
		select {
		case q.work <- id:
		default:
			job.Status = StatusFailed
			job.EndedAt = &ended
		}
		slog.Warn("job retry", "job_id", id, "retries_left", job.RetriesLeft, "error", err)
		return
	}

	job.Status = StatusFailed
	job.EndedAt = &ended
	slog.Error("job failed", "job_id", id, "error", err)
}

func (q *MemoryQueue) Job(ctx context.Context, id uuid.UUID) (*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	cp := *job
	return &cp, nil
}

func (q *MemoryQueue) Stats(ctx context.Context) (Stats, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var s Stats
	for _, job := range q.jobs {
		switch job.Status {
		case StatusQueued:
			s.Queued++
		case StatusStarted:
			s.Started++
		case StatusFinished:
			s.Finished++
		case StatusFailed:
			s.Failed++
		}
	}
	return s, nil
}

// sweep drops finished and failed jobs after their retention windows.
func (q *MemoryQueue) sweep(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := time.Now()
			q.mu.Lock()
			for id, job := range q.jobs {
				if job.EndedAt == nil {
					continue
				}
				ttl := q.opts.ResultTTL
				if job.Status == StatusFailed {
					ttl = q.opts.FailureTTL
				}
				if now.Sub(*job.EndedAt) > ttl {
					delete(q.jobs, id)
				}
			}
			q.mu.Unlock()
		}
	}
}
