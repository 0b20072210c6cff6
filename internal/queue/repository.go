package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garnizeh/repairdesk/internal/db"
)

// Repository persists queue tasks. Every timestamp column in queue_jobs and
// dead_letter_jobs holds Unix milliseconds.
type Repository struct {
	db *db.DB
}

func NewRepository(d *db.DB) *Repository { return &Repository{db: d} }

func nowMilli() int64 { return time.Now().UTC().UnixMilli() }

// Enqueue inserts a task and returns the new ID
func (r *Repository) Enqueue(ctx context.Context, t *Task) (int64, error) {
	if t.MaxAttempts == 0 {
		t.MaxAttempts = 5
	}
	if t.ScheduledAt.IsZero() {
		t.ScheduledAt = time.Now()
	}
	now := nowMilli()
	q := `INSERT INTO queue_jobs(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES(?,?,?,?,?,?,?,?,?)`
	res, err := r.db.Exec(ctx, q, t.Type, string(t.Payload), StatusQueued, t.Attempts, t.MaxAttempts, t.Priority, t.ScheduledAt.UTC().UnixMilli(), now, now)
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	return res.LastInsertId()
}

// Claim marks the next due task as processing and returns it in one
// statement, so two workers can never pick up the same row. Returns nil when
// nothing is due.
func (r *Repository) Claim(ctx context.Context) (*Task, error) {
	now := nowMilli()
	q := `UPDATE queue_jobs
	      SET status = ?, updated = ?
	      WHERE id = (
	          SELECT id FROM queue_jobs
	          WHERE status IN (?, ?)
	            AND (next_try_at IS NULL OR next_try_at <= ?)
	            AND scheduled_at <= ?
	          ORDER BY priority ASC, scheduled_at ASC
	          LIMIT 1)
	      RETURNING id, type, payload, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`
	row := r.db.QueryRow(ctx, q, StatusProcessing, now, StatusQueued, StatusRetry, now, now)

	var (
		t         Task
		payload   sql.NullString
		scheduled int64
		nextTry   sql.NullInt64
		lastError sql.NullString
		created   int64
		updated   int64
	)
	if err := row.Scan(&t.ID, &t.Type, &payload, &t.Attempts, &t.MaxAttempts, &t.Priority, &scheduled, &nextTry, &lastError, &created, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("claim task: %w", err)
	}
	t.Status = StatusProcessing
	t.ScheduledAt = time.UnixMilli(scheduled)
	t.Created = time.UnixMilli(created)
	t.Updated = time.UnixMilli(updated)
	if payload.Valid {
		t.Payload = json.RawMessage(payload.String)
	}
	if nextTry.Valid {
		nt := time.UnixMilli(nextTry.Int64)
		t.NextTryAt = &nt
	}
	if lastError.Valid {
		t.LastError = lastError.String
	}
	return &t, nil
}

// Complete marks a claimed task done.
func (r *Repository) Complete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE queue_jobs SET status = ?, updated = ? WHERE id = ?`, StatusDone, nowMilli(), id)
	return err
}

// Reschedule puts a claimed task back for retry with its attempt counter,
// next try time and last error.
func (r *Repository) Reschedule(ctx context.Context, t *Task) error {
	var nextTry any
	if t.NextTryAt != nil {
		nextTry = t.NextTryAt.UnixMilli()
	}
	q := `UPDATE queue_jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	_, err := r.db.Exec(ctx, q, StatusRetry, t.Attempts, nextTry, t.LastError, nowMilli(), t.ID)
	return err
}

// MoveToDeadLetter records an exhausted task in dead_letter_jobs and deletes
// it from the queue.
func (r *Repository) MoveToDeadLetter(ctx context.Context, t *Task) error {
	tx, err := r.db.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	insert := `INSERT INTO dead_letter_jobs(job_id, type, payload, attempts, last_error, failed_at) VALUES(?,?,?,?,?,?)`
	if _, err := tx.ExecContext(ctx, insert, t.ID, t.Type, string(t.Payload), t.Attempts, t.LastError, nowMilli()); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_jobs WHERE id = ?`, t.ID); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetTask returns a task by id from queue_jobs, or nil when it is gone
// (dead-lettered tasks are removed; completed tasks stay with status done).
func (r *Repository) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := r.db.QueryRow(ctx, `SELECT id, type, status, attempts, max_attempts, priority FROM queue_jobs WHERE id = ?`, id)
	var t Task
	if err := row.Scan(&t.ID, &t.Type, &t.Status, &t.Attempts, &t.MaxAttempts, &t.Priority); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}
