package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/sheets-ledger/internal/jobs"
	"github.com/google/uuid"
)

// DefaultWorkers is the number of concurrent workers started by Start.
const DefaultWorkers = 2

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// Suitable for a single instance; queued jobs are lost on restart.
type Queue struct {
	jobChan   chan *jobs.ExportJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool

	workers    int
	maxRetries int
	backoff    time.Duration
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before PublishExport blocks.
func NewQueue(bufferSize int, store jobs.JobStore) *Queue {
	return &Queue{
		jobChan:    make(chan *jobs.ExportJob, bufferSize),
		closeChan:  make(chan struct{}),
		store:      store,
		workers:    DefaultWorkers,
		maxRetries: 3,
		backoff:    time.Second,
	}
}

// WithRetries sets the default retry budget and the linear backoff step.
func (q *Queue) WithRetries(maxRetries int, backoff time.Duration) *Queue {
	q.maxRetries = maxRetries
	q.backoff = backoff
	return q
}

// PublishExport implements the Publisher interface.
func (q *Queue) PublishExport(ctx context.Context, job *jobs.ExportJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.maxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the Consumer interface.
// It starts the worker goroutines and returns immediately.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

// worker processes jobs from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.ExportJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	retry := false
	if err != nil {
		job.Error = err.Error()

		if job.RetryCount < job.MaxRetries {
			job.RetryCount++
			job.Status = jobs.JobStatusRetrying
			retry = true
		} else {
			job.Status = jobs.JobStatusFailed
		}
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	if retry {
		// Linear backoff; the job is owned by the timer from here on.
		backoff := time.Duration(job.RetryCount) * q.backoff
		time.AfterFunc(backoff, func() {
			job.Status = jobs.JobStatusPending
			job.StartedAt = nil
			job.CompletedAt = nil
			if err := q.PublishExport(ctx, job); err != nil {
				q.failRetry(job, err)
			}
		})
	}
}

// failRetry marks a job failed when its retry could not be queued, for
// example because the queue stopped during the backoff.
func (q *Queue) failRetry(job *jobs.ExportJob, err error) {
	completedAt := time.Now()
	job.CompletedAt = &completedAt
	job.Status = jobs.JobStatusFailed
	job.Error = fmt.Sprintf("%s (retry not scheduled: %v)", job.Error, err)

	if q.store != nil {
		// The worker context may already be cancelled.
		_ = q.store.SaveJob(context.Background(), job)
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
