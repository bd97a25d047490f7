package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/sheets-ledger/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, status jobs.JobStatus) *jobs.ExportJob {
	t.Helper()
	var got *jobs.ExportJob
	require.Eventually(t, func() bool {
		job, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		got = job
		return job.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := func(ctx context.Context, job jobs.Job) error {
		export := job.(*jobs.ExportJob)
		export.RecordCount = 3
		export.Location = "gs://bucket/exports/x.json"
		return nil
	}
	require.NoError(t, q.Start(ctx, handler))

	job := &jobs.ExportJob{Target: "gcs"}
	require.NoError(t, q.PublishExport(ctx, job))
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, 3, job.MaxRetries)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 3, done.RecordCount)
	assert.Equal(t, "gs://bucket/exports/x.json", done.Location)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)

	require.NoError(t, q.Stop(context.Background()))
}

func TestQueue_RetriesThenFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store).WithRetries(2, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	handler := func(ctx context.Context, job jobs.Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("sink unavailable")
	}
	require.NoError(t, q.Start(ctx, handler))

	job := &jobs.ExportJob{Target: "bigquery"}
	require.NoError(t, q.PublishExport(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 2, failed.RetryCount)
	assert.Equal(t, "sink unavailable", failed.Error)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	require.NoError(t, q.Close())
}

func TestQueue_RetryAfterStopFailsJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store).WithRetries(3, 200*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	handler := func(ctx context.Context, job jobs.Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("sink unavailable")
	}
	require.NoError(t, q.Start(ctx, handler))

	job := &jobs.ExportJob{Target: "notion"}
	require.NoError(t, q.PublishExport(ctx, job))

	waitForStatus(t, store, job.JobID, jobs.JobStatusRetrying)
	require.NoError(t, q.Stop(context.Background()))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Contains(t, failed.Error, "sink unavailable")
	assert.Contains(t, failed.Error, "queue is closed")
	assert.NotNil(t, failed.CompletedAt)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueue_ClosedRejectsWork(t *testing.T) {
	q := NewQueue(1, NewStore())
	require.NoError(t, q.Close())

	assert.Error(t, q.PublishExport(context.Background(), &jobs.ExportJob{Target: "gcs"}))
	assert.Error(t, q.Start(context.Background(), func(context.Context, jobs.Job) error { return nil }))

	// Stopping twice is fine.
	assert.NoError(t, q.Stop(context.Background()))
}
