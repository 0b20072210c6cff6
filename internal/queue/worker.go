package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"log/slog"
)

const (
	idleInterval = 100 * time.Millisecond
	errorBackoff = time.Second
)

// WorkerPool drains the queue with a fixed number of goroutines. Each worker
// claims one task at a time (the claim flips the row to processing, so a task
// is handled exactly once) and decides completion, retry or dead-letter from
// the handler result.
type WorkerPool struct {
	repo     *Repository
	handlers map[string]Handler
	logger   *slog.Logger
	workers  int
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewWorkerPool(repo *Repository, handlers map[string]Handler, logger *slog.Logger, workers int) *WorkerPool {
	if workers <= 0 {
		workers = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{repo: repo, handlers: handlers, logger: logger, workers: workers, stop: make(chan struct{})}
}

// Start launches the worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Stop signals workers to stop and waits for them
func (p *WorkerPool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *WorkerPool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Info("worker stopping", "id", id)
			return
		case <-ctx.Done():
			p.logger.Info("context canceled, worker exiting", "id", id)
			return
		default:
		}

		task, err := p.repo.Claim(ctx)
		if err != nil {
			p.logger.Error("claim task", "err", err)
			time.Sleep(errorBackoff)
			continue
		}
		if task == nil {
			time.Sleep(idleInterval)
			continue
		}
		p.process(ctx, task)
	}
}

// process runs the handler for a claimed task and settles its outcome.
func (p *WorkerPool) process(ctx context.Context, task *Task) {
	h, ok := p.handlers[task.Type]
	if !ok {
		task.Status = StatusFailed
		task.LastError = "no handler for type " + task.Type
		if err := p.repo.MoveToDeadLetter(ctx, task); err != nil {
			p.logger.Error("move to dead letter", "id", task.ID, "err", err)
		}
		return
	}

	if err := h(ctx, task); err != nil {
		p.settleFailure(ctx, task, err)
		return
	}
	if err := p.repo.Complete(ctx, task.ID); err != nil {
		p.logger.Error("complete task", "id", task.ID, "err", err)
	}
}

func (p *WorkerPool) settleFailure(ctx context.Context, task *Task, cause error) {
	task.Attempts++
	task.LastError = cause.Error()

	if task.Attempts >= task.MaxAttempts {
		task.Status = StatusFailed
		if err := p.repo.MoveToDeadLetter(ctx, task); err != nil {
			p.logger.Error("move to dead letter", "id", task.ID, "err", err)
		}
		return
	}

	next := time.Now().Add(BackoffDuration(task.Attempts))
	task.NextTryAt = &next
	if err := p.repo.Reschedule(ctx, task); err != nil {
		p.logger.Error("reschedule task", "id", task.ID, "err", err)
	}
}

// Enqueue marshals the payload and persists a new task
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	t := &Task{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: time.Now()}
	return p.repo.Enqueue(ctx, t)
}
