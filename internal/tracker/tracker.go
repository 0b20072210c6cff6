package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/garnizeh/repairdesk/internal/models"
	"github.com/garnizeh/repairdesk/pkg/repository"
)

var (
	// ErrJobNotFound means the id does not reference a job in the raw collection.
	ErrJobNotFound = errors.New("job not found")
	// ErrUnknownStatus means the requested status is not an enumerated value.
	ErrUnknownStatus = errors.New("unknown status")
)

// Controller owns the raw job collection fetched from the store and the
// derived view computed from it. The raw collection is the single source of
// truth; the view is recomputed after every state-owning mutation (fetch
// completion, status-update completion, criteria change) and never mutated
// directly.
type Controller struct {
	store  repository.JobRepo
	logger *slog.Logger

	mu       sync.RWMutex
	jobs     []models.Job
	view     []models.Job
	criteria Criteria
	selected string

	// refreshSeq tags each fetch; a completed fetch is applied only when its
	// tag is still the newest issued, so a stale response can never overwrite
	// fresher data.
	refreshSeq uint64
}

func NewController(store repository.JobRepo, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:    store,
		logger:   logger,
		criteria: DefaultCriteria(),
	}
}

// Refresh fetches the full joined job collection and replaces the raw
// collection atomically. On store failure the collection is left unchanged.
// Safe to invoke concurrently with itself: each call takes a sequence token
// and only the most recently issued fetch may apply its result.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.refreshSeq++
	seq := c.refreshSeq
	c.mu.Unlock()

	fetched, err := c.store.ListJoined(ctx)
	if err != nil {
		c.logger.Error("fetch jobs", "err", err)
		return fmt.Errorf("fetch jobs: %w", err)
	}
	applyJoinDefaults(fetched)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.refreshSeq {
		// a newer fetch was issued while this one was in flight
		c.logger.Debug("discarding stale fetch", "seq", seq, "latest", c.refreshSeq)
		return nil
	}
	c.jobs = fetched
	c.recompute()
	c.logger.Debug("job collection refreshed", "count", len(fetched))
	return nil
}

// Jobs returns a snapshot copy of the raw collection.
func (c *Controller) Jobs() []models.Job {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Job, len(c.jobs))
	copy(out, c.jobs)
	return out
}

// View returns a snapshot copy of the derived collection under the current
// criteria.
func (c *Controller) View() []models.Job {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Job, len(c.view))
	copy(out, c.view)
	return out
}

// Criteria returns the current filter criteria.
func (c *Controller) Criteria() Criteria {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.criteria
}

// SetCriteria replaces the filter criteria and recomputes the derived view.
func (c *Controller) SetCriteria(cr Criteria) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria = cr
	c.recompute()
}

// SetQuery replaces only the free-text search and recomputes the view.
func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria.Query = q
	c.recompute()
}

// Select marks a job as the target of the status-update workflow.
func (c *Controller) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(id) < 0 {
		return ErrJobNotFound
	}
	c.selected = id
	return nil
}

// Deselect clears the transient selection.
func (c *Controller) Deselect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = ""
}

// Selected returns the currently selected job, if any.
func (c *Controller) Selected() (models.Job, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(c.selected); i >= 0 {
		return c.jobs[i], true
	}
	return models.Job{}, false
}

// UpdateSelectedStatus applies a status change to the selected job. A guarded
// no-op when nothing is selected.
func (c *Controller) UpdateSelectedStatus(ctx context.Context, status models.Status) error {
	c.mu.RLock()
	id := c.selected
	c.mu.RUnlock()
	if id == "" {
		return nil
	}
	return c.UpdateStatus(ctx, id, status)
}

// UpdateStatus runs the two-phase status transition: remote write first, then
// local reconciliation. The local collection is touched only after the store
// acknowledges success, so no rollback machinery is needed; on failure the
// raw collection is byte-for-byte unchanged.
func (c *Controller) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}

	c.mu.RLock()
	i := c.indexOf(id)
	var current models.Status
	if i >= 0 {
		current = c.jobs[i].Status
	}
	c.mu.RUnlock()
	if i < 0 {
		return ErrJobNotFound
	}
	if !current.CanTransition(status) {
		return fmt.Errorf("%w: %q -> %q", ErrUnknownStatus, current, status)
	}

	if err := c.store.UpdateStatus(ctx, id, status); err != nil {
		c.logger.Error("update job status", "id", id, "status", status, "err", err)
		return fmt.Errorf("update job status: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// reconcile on a fresh copy and swap the whole reference, so a concurrent
	// reader never observes a partial update
	next := make([]models.Job, len(c.jobs))
	copy(next, c.jobs)
	if i := c.indexOf(id); i >= 0 {
		next[i].Status = status
	}
	c.jobs = next
	if c.selected == id {
		c.selected = ""
	}
	c.recompute()
	c.logger.Info("job status updated", "id", id, "status", status)
	return nil
}

// indexOf returns the position of id in the raw collection, or -1. Callers
// must hold the mutex.
func (c *Controller) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range c.jobs {
		if c.jobs[i].ID == id {
			return i
		}
	}
	return -1
}

// recompute rebuilds the derived view. Callers must hold the write lock.
func (c *Controller) recompute() {
	c.view = Derive(c.jobs, c.criteria, time.Now())
}

// applyJoinDefaults fills the denormalized customer fields with placeholders
// when the join yielded nothing, mirroring what stores without COALESCE
// support would return.
func applyJoinDefaults(jobs []models.Job) {
	for i := range jobs {
		if jobs[i].CustomerName == "" {
			jobs[i].CustomerName = models.UnknownCustomer
		}
		if jobs[i].CustomerPhone == "" {
			jobs[i].CustomerPhone = models.NotAvailable
		}
		if jobs[i].CustomerEmail == "" {
			jobs[i].CustomerEmail = models.NotAvailable
		}
	}
}
