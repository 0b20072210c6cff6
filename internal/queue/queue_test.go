package queue_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbfs "github.com/garnizeh/repairdesk/db"
	dbpkg "github.com/garnizeh/repairdesk/internal/db"
	"github.com/garnizeh/repairdesk/internal/queue"
)

func setupRepo(t *testing.T) *queue.Repository {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := dbpkg.New(ctx, dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, dbpkg.Migrate(ctx, d, dbfs.Migrations))
	return queue.NewRepository(d)
}

func TestEnqueueAndClaim(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.Enqueue(ctx, &queue.Task{Type: "share.document", Payload: []byte(`{"job_id":"j1"}`), Priority: 100})
	require.NoError(t, err)
	assert.NotZero(t, id)

	task, err := repo.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "share.document", task.Type)
	assert.Equal(t, queue.StatusProcessing, task.Status)
	assert.JSONEq(t, `{"job_id":"j1"}`, string(task.Payload))
}

func TestClaimIsExclusive(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Enqueue(ctx, &queue.Task{Type: "once"})
	require.NoError(t, err)

	first, err := repo.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)

	// the claim flipped the row to processing, so nobody else can take it
	second, err := repo.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestClaimRespectsPriority(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Enqueue(ctx, &queue.Task{Type: "low", Priority: 200})
	require.NoError(t, err)
	_, err = repo.Enqueue(ctx, &queue.Task{Type: "high", Priority: 10})
	require.NoError(t, err)

	task, err := repo.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	// lower number wins
	assert.Equal(t, "high", task.Type)
}

func TestClaimEmpty(t *testing.T) {
	repo := setupRepo(t)

	task, err := repo.Claim(context.Background())
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestCompleteAndReschedule(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.Enqueue(ctx, &queue.Task{Type: "work"})
	require.NoError(t, err)

	task, err := repo.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)

	// push the task back for retry; it becomes claimable once due
	task.Attempts = 1
	task.LastError = "flaky"
	past := time.Now().Add(-time.Second)
	task.NextTryAt = &past
	require.NoError(t, repo.Reschedule(ctx, task))

	got, err := repo.GetTask(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, queue.StatusRetry, got.Status)
	assert.Equal(t, 1, got.Attempts)

	task, err = repo.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.NoError(t, repo.Complete(ctx, task.ID))

	got, err = repo.GetTask(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, queue.StatusDone, got.Status)
}

func TestMoveToDeadLetter(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.Enqueue(ctx, &queue.Task{Type: "doomed"})
	require.NoError(t, err)

	task, err := repo.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	task.LastError = "handler exploded"
	require.NoError(t, repo.MoveToDeadLetter(ctx, task))

	gone, err := repo.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func waitForTask(t *testing.T, repo *queue.Repository, id int64, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := repo.GetTask(context.Background(), id)
		require.NoError(t, err)
		if task == nil && want == "" {
			return
		}
		if task != nil && task.Status == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("task %d never reached state %q", id, want)
}

func TestWorkerPoolProcessesTask(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	handled := make(chan string, 1)
	handlers := map[string]queue.Handler{
		"ping": func(ctx context.Context, task *queue.Task) error {
			handled <- string(task.Payload)
			return nil
		},
	}

	pool := queue.NewWorkerPool(repo, handlers, nil, 1)
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, "ping", map[string]string{"k": "v"}, 100, 3)
	require.NoError(t, err)

	select {
	case payload := <-handled:
		assert.JSONEq(t, `{"k":"v"}`, payload)
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}
	waitForTask(t, repo, id, queue.StatusDone)
}

func TestWorkerPoolHandlesTaskOnce(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	runs := make(chan int64, 16)
	handlers := map[string]queue.Handler{
		"count": func(ctx context.Context, task *queue.Task) error {
			runs <- task.ID
			return nil
		},
	}

	// several workers racing over the same rows
	pool := queue.NewWorkerPool(repo, handlers, nil, 4)
	pool.Start(ctx)
	defer pool.Stop()

	ids := make(map[int64]bool)
	for i := 0; i < 5; i++ {
		id, err := pool.Enqueue(ctx, "count", nil, 100, 3)
		require.NoError(t, err)
		ids[id] = true
	}
	for id := range ids {
		waitForTask(t, repo, id, queue.StatusDone)
	}

	seen := make(map[int64]int)
	for {
		select {
		case id := <-runs:
			seen[id]++
		default:
			for id, n := range seen {
				assert.Equalf(t, 1, n, "task %d handled %d times", id, n)
			}
			assert.Len(t, seen, len(ids))
			return
		}
	}
}

func TestWorkerPoolDeadLettersAfterMaxAttempts(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	handlers := map[string]queue.Handler{
		"boom": func(ctx context.Context, task *queue.Task) error {
			return errors.New("always fails")
		},
	}

	pool := queue.NewWorkerPool(repo, handlers, nil, 1)
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, "boom", nil, 100, 1)
	require.NoError(t, err)

	// single attempt, then straight to the dead letter table
	waitForTask(t, repo, id, "")
}

func TestWorkerPoolUnknownTypeIsDeadLettered(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	pool := queue.NewWorkerPool(repo, map[string]queue.Handler{}, nil, 1)
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, "nobody-home", nil, 100, 3)
	require.NoError(t, err)

	waitForTask(t, repo, id, "")
}

func TestBackoffDuration(t *testing.T) {
	assert.Equal(t, time.Second, queue.BackoffDuration(0))
	assert.Equal(t, 2*time.Second, queue.BackoffDuration(1))
	assert.Equal(t, 4*time.Second, queue.BackoffDuration(2))
	// capped
	assert.Equal(t, 5*time.Minute, queue.BackoffDuration(30))
}
