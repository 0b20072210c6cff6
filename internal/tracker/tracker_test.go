package tracker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/repairdesk/internal/models"
	"github.com/garnizeh/repairdesk/internal/tracker"
	"github.com/garnizeh/repairdesk/pkg/repository/mock"
)

func seededStore(t *testing.T) *mock.Store {
	t.Helper()
	store := mock.NewStore()
	t0 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	store.Jobs = []models.Job{
		{ID: "job-1", CustomerName: "Ana Souza", CustomerPhone: "5550001111", DeviceModel: "Pixel 8", SerialNumber: "SN1", Status: models.StatusReceived, CreatedAt: t0},
		{ID: "job-2", CustomerName: "Bruno Lima", CustomerPhone: "5559872222", DeviceModel: "iPhone 13", SerialNumber: "SN2", Status: models.StatusInProgress, CreatedAt: t0.Add(24 * time.Hour)},
	}
	return store
}

func TestRefreshReplacesRawCollection(t *testing.T) {
	store := seededStore(t)
	c := tracker.NewController(store, nil)

	require.NoError(t, c.Refresh(context.Background()))

	jobs := c.Jobs()
	require.Len(t, jobs, 2)
	// default criteria: newest first
	view := c.View()
	require.Len(t, view, 2)
	assert.Equal(t, "job-2", view[0].ID)
	assert.Equal(t, "job-1", view[1].ID)
}

func TestRefreshFailureLeavesCollectionUnchanged(t *testing.T) {
	store := seededStore(t)
	c := tracker.NewController(store, nil)
	require.NoError(t, c.Refresh(context.Background()))
	before := c.Jobs()

	store.ListErr = errors.New("store unreachable")
	err := c.Refresh(context.Background())

	require.Error(t, err)
	assert.Equal(t, before, c.Jobs())
}

func TestRefreshFillsJoinPlaceholders(t *testing.T) {
	store := mock.NewStore()
	store.Jobs = []models.Job{{ID: "orphan", Status: models.StatusReceived, CreatedAt: time.Now()}}
	c := tracker.NewController(store, nil)

	require.NoError(t, c.Refresh(context.Background()))

	jobs := c.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, models.UnknownCustomer, jobs[0].CustomerName)
	assert.Equal(t, models.NotAvailable, jobs[0].CustomerPhone)
	assert.Equal(t, models.NotAvailable, jobs[0].CustomerEmail)
}

// scriptedStore hands control of each ListJoined round trip to the test.
type scriptedStore struct {
	calls chan chan []models.Job
}

func (s *scriptedStore) ListJoined(ctx context.Context) ([]models.Job, error) {
	r := make(chan []models.Job)
	s.calls <- r
	return <-r, nil
}

func (s *scriptedStore) CreateJob(ctx context.Context, j *models.Job) (string, error) {
	return "", errors.New("not implemented")
}

func (s *scriptedStore) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	return nil
}

func TestStaleFetchNeverOverwritesNewerData(t *testing.T) {
	store := &scriptedStore{calls: make(chan chan []models.Job, 2)}
	c := tracker.NewController(store, nil)

	older := []models.Job{{ID: "old", Status: models.StatusReceived, CreatedAt: time.Now()}}
	newer := []models.Job{{ID: "new", Status: models.StatusReceived, CreatedAt: time.Now()}}

	done1 := make(chan error, 1)
	go func() { done1 <- c.Refresh(context.Background()) }()
	reply1 := <-store.calls

	done2 := make(chan error, 1)
	go func() { done2 <- c.Refresh(context.Background()) }()
	reply2 := <-store.calls

	// the second (newer) fetch completes first
	reply2 <- newer
	require.NoError(t, <-done2)
	require.Len(t, c.Jobs(), 1)
	assert.Equal(t, "new", c.Jobs()[0].ID)

	// the first fetch completes late with stale data and must be discarded
	reply1 <- older
	require.NoError(t, <-done1)
	require.Len(t, c.Jobs(), 1)
	assert.Equal(t, "new", c.Jobs()[0].ID)
}

func TestUpdateStatusTwoPhase(t *testing.T) {
	store := seededStore(t)
	c := tracker.NewController(store, nil)
	require.NoError(t, c.Refresh(context.Background()))

	require.NoError(t, c.UpdateStatus(context.Background(), "job-1", models.StatusCompleted))

	jobs := c.Jobs()
	var completed int
	for _, j := range jobs {
		if j.Status == models.StatusCompleted {
			completed++
			assert.Equal(t, "job-1", j.ID)
			assert.Equal(t, "Ana Souza", j.CustomerName)
			assert.Equal(t, "SN1", j.SerialNumber)
		}
	}
	assert.Equal(t, 1, completed)
	// the remote write happened
	assert.Equal(t, 1, store.UpdateCalls)
	assert.Equal(t, models.StatusCompleted, store.Jobs[0].Status)
}

func TestUpdateStatusStoreFailureLeavesCollectionUnchanged(t *testing.T) {
	store := seededStore(t)
	c := tracker.NewController(store, nil)
	require.NoError(t, c.Refresh(context.Background()))
	before := c.Jobs()

	store.UpdateErr = errors.New("write refused")
	err := c.UpdateStatus(context.Background(), "job-1", models.StatusCompleted)

	require.Error(t, err)
	assert.Equal(t, before, c.Jobs())
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	store := seededStore(t)
	c := tracker.NewController(store, nil)
	require.NoError(t, c.Refresh(context.Background()))

	err := c.UpdateStatus(context.Background(), "job-1", models.Status("shipped"))

	require.ErrorIs(t, err, tracker.ErrUnknownStatus)
	assert.Equal(t, 0, store.UpdateCalls)
}

func TestUpdateStatusRejectsUnknownJob(t *testing.T) {
	store := seededStore(t)
	c := tracker.NewController(store, nil)
	require.NoError(t, c.Refresh(context.Background()))

	err := c.UpdateStatus(context.Background(), "job-404", models.StatusCompleted)

	require.ErrorIs(t, err, tracker.ErrJobNotFound)
	assert.Equal(t, 0, store.UpdateCalls)
}

func TestUpdateSelectedStatusIsGuarded(t *testing.T) {
	store := seededStore(t)
	c := tracker.NewController(store, nil)
	require.NoError(t, c.Refresh(context.Background()))

	// nothing selected: no-op, no store call
	require.NoError(t, c.UpdateSelectedStatus(context.Background(), models.StatusOnHold))
	assert.Equal(t, 0, store.UpdateCalls)

	require.NoError(t, c.Select("job-2"))
	require.NoError(t, c.UpdateSelectedStatus(context.Background(), models.StatusOnHold))
	assert.Equal(t, 1, store.UpdateCalls)

	// selection is cleared after a successful update
	_, ok := c.Selected()
	assert.False(t, ok)
}

func TestSelectUnknownJob(t *testing.T) {
	store := seededStore(t)
	c := tracker.NewController(store, nil)
	require.NoError(t, c.Refresh(context.Background()))

	require.ErrorIs(t, c.Select("nope"), tracker.ErrJobNotFound)
}

func TestSetCriteriaRecomputesView(t *testing.T) {
	store := seededStore(t)
	c := tracker.NewController(store, nil)
	require.NoError(t, c.Refresh(context.Background()))

	cr := tracker.DefaultCriteria()
	cr.Status = string(models.StatusInProgress)
	c.SetCriteria(cr)

	view := c.View()
	require.Len(t, view, 1)
	assert.Equal(t, "job-2", view[0].ID)

	c.SetQuery("pixel")
	view = c.View()
	require.Len(t, view, 0)
}
