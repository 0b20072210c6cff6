package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Task lifecycle states as stored in queue_jobs.status.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusRetry      = "retry"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Task is one unit of deferred work (document rendering, notifications).
type Task struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}

// Handler is the function that processes a task
type Handler func(ctx context.Context, t *Task) error

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	// simple exponential: base 2^attempt seconds, capped
	d := time.Duration(1<<uint(attempt)) * time.Second
	max := 5 * time.Minute
	if d > max {
		return max
	}
	return d
}
