package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PostgresQueue coordinates multiple worker processes over a jobs table.
// Workers claim with FOR UPDATE SKIP LOCKED so each job runs exactly once
// per attempt regardless of how many processes poll.
type PostgresQueue struct {
	db   *sql.DB
	opts Options

	pollInterval time.Duration
}

func NewPostgresQueue(db *sql.DB, opts Options) *PostgresQueue {
	return &PostgresQueue{
		db:           db,
		opts:         opts.withDefaults(),
		pollInterval: 500 * time.Millisecond,
	}
}

func (q *PostgresQueue) Enqueue(ctx context.Context, payload interface{}) (uuid.UUID, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	id := uuid.Must(uuid.NewV7())
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO jobs (id, payload, status, retries_left, enqueued_at)
		 VALUES ($1, $2, $3, $4, now())`,
		id, []byte(raw), StatusQueued, q.opts.MaxRetries,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

func (q *PostgresQueue) Run(ctx context.Context, workers int, h Handler) error {
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error { return q.worker(ctx, h) })
	}
	g.Go(func() error { return q.sweep(ctx) })
	return g.Wait()
}

func (q *PostgresQueue) worker(ctx context.Context, h Handler) error {
	for {
		job, err := q.claim(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			slog.Error("claim job", "error", err)
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(q.pollInterval):
			}
			continue
		}

		jobCtx, cancel := context.WithTimeout(ctx, q.opts.JobTimeout)
		result, err := h(jobCtx, job.Payload)
		cancel()

		if err := q.finish(ctx, job, result, err); err != nil {
			slog.Error("finish job", "job_id", job.ID, "error", err)
		}
	}
}

// claim marks the oldest queued job as started and returns it, or nil
// when the queue is empty.
func (q *PostgresQueue) claim(ctx context.Context) (*Job, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE jobs SET status = $1, started_at = now()
		 WHERE id = (
			SELECT id FROM jobs WHERE status = $2
			ORDER BY enqueued_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		 )
		 RETURNING id, payload, retries_left`,
		StatusStarted, StatusQueued,
	)

	var job Job
	if err := row.Scan(&job.ID, &job.Payload, &job.RetriesLeft); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	job.Status = StatusStarted
	return &job, nil
}

func (q *PostgresQueue) finish(ctx context.Context, job *Job, result interface{}, jobErr error) error {
	if jobErr == nil {
		_, err := q.db.ExecContext(ctx,
			`UPDATE jobs SET status = $1, result = $2, error = '', ended_at = now() WHERE id = $3`,
			StatusFinished, []byte(marshalResult(result)), job.ID,
		)
		return err
	}

	if job.RetriesLeft > 0 {
		slog.Warn("job retry", "job_id", job.ID, "retries_left", job.RetriesLeft-1, "error", jobErr)
		_, err := q.db.ExecContext(ctx,
			`UPDATE jobs SET status = $1, retries_left = retries_left - 1,
			        error = $2, started_at = NULL WHERE id = $3`,
			StatusQueued, jobErr.Error(), job.ID,
		)
		return err
	}

	slog.Error("job failed", "job_id", job.ID, "error", jobErr)
	_, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = $1, error = $2, ended_at = now() WHERE id = $3`,
		StatusFailed, jobErr.Error(), job.ID,
	)
	return err
}

func (q *PostgresQueue) Job(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, payload, status, retries_left, COALESCE(result, ''), COALESCE(error, ''),
		        enqueued_at, started_at, ended_at
		 FROM jobs WHERE id = $1`, id)

	var job Job
	var result []byte
	if err := row.Scan(&job.ID, &job.Payload, &job.Status, &job.RetriesLeft,
		&result, &job.Error, &job.EnqueuedAt, &job.StartedAt, &job.EndedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	if len(result) > 0 {
		job.Result = result
	}
	return &job, nil
}

func (q *PostgresQueue) Stats(ctx context.Context) (Stats, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var s Stats
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		switch status {
		case StatusQueued:
			s.Queued = n
		case StatusStarted:
			s.Started = n
		case StatusFinished:
			s.Finished = n
		case StatusFailed:
			s.Failed = n
		}
	}
	return s, rows.Err()
}

// sweep deletes finished jobs past the result TTL and failed jobs past
// the failure TTL.
func (q *PostgresQueue) sweep(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, err := q.db.ExecContext(ctx,
				`DELETE FROM jobs
				 WHERE (status = $1 AND ended_at < now() - $2::interval)
				    OR (status = $3 AND ended_at < now() - $4::interval)`,
				StatusFinished, fmt.Sprintf("%d seconds", int(q.opts.ResultTTL.Seconds())),
				StatusFailed, fmt.Sprintf("%d seconds", int(q.opts.FailureTTL.Seconds())),
			)
			if err != nil {
				slog.Error("sweep jobs", "error", err)
			}
		}
	}
}
