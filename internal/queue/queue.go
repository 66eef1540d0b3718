// Package queue decouples webhook intake from pipeline execution. Jobs
// carry the normalized inbound message; workers claim them, run the
// handler under a per-job timeout, and retry failures a bounded number
// of times.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrJobNotFound is returned by Job for unknown or expired job IDs.
var ErrJobNotFound = errors.New("job not found")

// Job statuses.
const (
	StatusQueued   = "queued"
	StatusStarted  = "started"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// Job is one unit of asynchronous work.
type Job struct {
	ID          uuid.UUID       `json:"id"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	RetriesLeft int             `json:"retries_left"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
}

// Stats counts jobs by status.
type Stats struct {
	Queued   int `json:"queued"`
	Started  int `json:"started"`
	Finished int `json:"finished"`
	Failed   int `json:"failed"`
}

// Handler processes one job payload. The returned value is stored as the
// job result; an error consumes one retry.
type Handler func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// Queue is the job backend. Run blocks until ctx is canceled.
type Queue interface {
	Enqueue(ctx context.Context, payload interface{}) (uuid.UUID, error)
	Run(ctx context.Context, workers int, h Handler) error
	Job(ctx context.Context, id uuid.UUID) (*Job, error)
	Stats(ctx context.Context) (Stats, error)
}

// Options bound job execution; zero values fall back to the defaults used
// by the original deployment.
type Options struct {
	JobTimeout time.Duration
	MaxRetries int
	ResultTTL  time.Duration
	FailureTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.JobTimeout <= 0 {
		o.JobTimeout = 120 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.ResultTTL <= 0 {
		o.ResultTTL = time.Hour
	}
	if o.FailureTTL <= 0 {
		o.FailureTTL = 24 * time.Hour
	}
	return o
}

func marshalPayload(payload interface{}) (json.RawMessage, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(payload)
}

func marshalResult(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
