// Copyright 2026 Polisight Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/storage"
)

// Handler executes one job and returns its result payload.
type Handler func(ctx context.Context, job *core.Job) ([]byte, error)

// waiter signals job completion to blocked callers. The channel is
// closed exactly once, no matter how many times completion is reported.
type waiter struct {
	done chan struct{}
	once sync.Once
}

func (w *waiter) signal() {
	w.once.Do(func() { close(w.done) })
}

// Queue is the asynchronous job queue. Jobs are persisted as pending
// before Enqueue returns, claimed by at most one worker each, and
// their outcomes written through storage before waiters are signaled.
type Queue struct {
	repo     storage.JobRepository
	pool     *ants.Pool
	logger   *slog.Logger
	closed   bool
	closedMu sync.RWMutex

	handlersMu sync.RWMutex
	handlers   map[core.JobType]Handler

	waitersMu sync.Mutex
	waiters   map[core.ID]*waiter
}

// Option configures a Queue.
type Option func(*Queue) error

// WithPoolSize sets the worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(q *Queue) error {
		if size < 1 {
			size = 1
		}
		if q.pool != nil {
			q.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		q.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) error {
		if logger == nil {
			logger = slog.Default()
		}
		q.logger = logger.With("component", "jobqueue")
		return nil
	}
}

// NewQueue creates a job queue over the given repository.
func NewQueue(repo storage.JobRepository, opts ...Option) (*Queue, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	q := &Queue{
		repo:     repo,
		pool:     pool,
		logger:   slog.Default().With("component", "jobqueue"),
		handlers: map[core.JobType]Handler{},
		waiters:  map[core.ID]*waiter{},
	}

	for _, opt := range opts {
		if optErr := opt(q); optErr != nil {
			q.pool.Release()
			return nil, optErr
		}
	}
	return q, nil
}

// Register installs the handler for a job type. Jobs of an unregistered
// type cannot be enqueued.
func (q *Queue) Register(jobType core.JobType, handler Handler) error {
	if err := core.ValidateJobType(jobType); err != nil {
		return err
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.handlers[jobType] = handler
	return nil
}

// Enqueue persists a pending job and submits it to the worker pool.
// Returns without blocking on execution.
func (q *Queue) Enqueue(ctx context.Context, jobType core.JobType, payload []byte) (*core.Job, error) {
	if q.isClosed() {
		return nil, ErrQueueClosed
	}
	if _, ok := q.handler(jobType); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, jobType)
	}
	if len(payload) == 0 {
		return nil, core.ErrEmptyPayload
	}

	job, err := q.repo.AddJob(ctx, &core.Job{Type: jobType, Payload: payload})
	if err != nil {
		return nil, err
	}
	q.ensureWaiter(job.Id)

	if err := q.pool.Submit(func() { q.run(job.Id) }); err != nil {
		// Persisted but not scheduled; the job stays pending and is
		// picked up by Recover on the next start.
		q.logger.Error("submit to worker pool failed", "jobId", job.Id, "err", err)
	}
	return job, nil
}

// run claims and executes one job. At most one worker runs a given job:
// run is submitted exactly once per enqueue, and recovery resubmits
// only jobs still pending in storage.
func (q *Queue) run(id core.ID) {
	ctx := context.Background()

	job, err := q.repo.GetJob(ctx, id)
	if err != nil {
		q.logger.Error("load job for execution", "jobId", id, "err", err)
		return
	}
	if job.Status.Terminal() {
		q.signal(id)
		return
	}

	job.Status = core.JobStatusProcessing
	if err := q.repo.UpdateJob(ctx, job); err != nil {
		q.logger.Error("mark job processing", "jobId", id, "err", err)
		return
	}

	handler, ok := q.handler(job.Type)
	if !ok {
		q.Fail(ctx, id, fmt.Errorf("%w: %s", ErrNoHandler, job.Type))
		return
	}

	result, err := handler(ctx, job)
	if err != nil {
		q.Fail(ctx, id, err)
		return
	}
	q.Complete(ctx, id, result)
}

// Complete records a successful outcome. Idempotent: completing an
// already-terminal job is a no-op.
func (q *Queue) Complete(ctx context.Context, id core.ID, result []byte) error {
	return q.finish(ctx, id, func(job *core.Job) {
		job.Status = core.JobStatusCompleted
		job.Result = result
		job.Error = ""
	})
}

// Fail records a failed outcome. Idempotent like Complete.
func (q *Queue) Fail(ctx context.Context, id core.ID, cause error) error {
	return q.finish(ctx, id, func(job *core.Job) {
		job.Status = core.JobStatusFailed
		job.Error = cause.Error()
	})
}

func (q *Queue) finish(ctx context.Context, id core.ID, apply func(*core.Job)) error {
	job, err := q.repo.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		// Outcome already recorded; the second completion is a no-op.
		q.signal(id)
		return nil
	}

	apply(job)
	job.CompletedAt = time.Now().UTC()
	if err := q.repo.UpdateJob(ctx, job); err != nil {
		return err
	}

	// Signal only after the outcome is durable.
	q.signal(id)
	return nil
}

// WaitFor blocks until the job reaches a terminal state, the context is
// cancelled, or the timeout elapses. The timeout is advisory to this
// waiter only: the job keeps running and later waiters can still
// collect its outcome. Duplicate waiters all observe the same outcome.
func (q *Queue) WaitFor(ctx context.Context, id core.ID, timeout time.Duration) (*core.Job, error) {
	w := q.ensureWaiter(id)

	// The persisted row is checked after subscribing so a completion
	// racing with this call cannot be missed.
	job, err := q.repo.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Purged jobs were terminal; consume the entry this
			// subscription created.
			q.signal(id)
		}
		return nil, err
	}
	if job.Status.Terminal() {
		// The pre-completion entry was consumed when the outcome was
		// written; this one exists only for this late subscription.
		q.signal(id)
		return job, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.done:
		return q.repo.GetJob(ctx, id)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("%w: job %d after %s", ErrWaitTimeout, id, timeout)
	}
}

// Status returns the persisted state of a job without blocking.
func (q *Queue) Status(ctx context.Context, id core.ID) (*core.Job, error) {
	return q.repo.GetJob(ctx, id)
}

// Recover resubmits jobs that were persisted as pending but never
// executed, e.g. after a process restart.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	pending, err := q.repo.PendingJobs(ctx)
	if err != nil {
		return 0, err
	}
	for _, job := range pending {
		id := job.Id
		q.ensureWaiter(id)
		if err := q.pool.Submit(func() { q.run(id) }); err != nil {
			return 0, err
		}
	}
	if len(pending) > 0 {
		q.logger.Info("recovered pending jobs", "count", len(pending))
	}
	return len(pending), nil
}

// StaleJobs surfaces jobs stuck in processing longer than the given
// age, for operator inspection.
func (q *Queue) StaleJobs(ctx context.Context, olderThan time.Duration) ([]*core.Job, error) {
	return q.repo.StaleJobs(ctx, olderThan)
}

// CleanupTerminal removes terminal jobs older than the retention
// window. Status and WaitFor calls for a purged job return
// storage.ErrNotFound.
func (q *Queue) CleanupTerminal(ctx context.Context, olderThan time.Duration) (int, error) {
	return q.repo.PurgeTerminal(ctx, olderThan)
}

// Release stops the worker pool. Jobs still pending in storage are
// recovered on the next start.
func (q *Queue) Release() {
	q.closedMu.Lock()
	q.closed = true
	q.closedMu.Unlock()
	q.pool.Release()
}

func (q *Queue) isClosed() bool {
	q.closedMu.RLock()
	defer q.closedMu.RUnlock()
	return q.closed
}

func (q *Queue) handler(jobType core.JobType) (Handler, bool) {
	q.handlersMu.RLock()
	defer q.handlersMu.RUnlock()
	h, ok := q.handlers[jobType]
	return h, ok
}

// ensureWaiter returns the completion waiter for a job, creating it if
// absent.
func (q *Queue) ensureWaiter(id core.ID) *waiter {
	q.waitersMu.Lock()
	defer q.waitersMu.Unlock()
	w, ok := q.waiters[id]
	if !ok {
		w = &waiter{done: make(chan struct{})}
		q.waiters[id] = w
	}
	return w
}

// signal closes the job's completion channel exactly once and drops the
// map entry. Late subscribers read the persisted row instead.
func (q *Queue) signal(id core.ID) {
	q.waitersMu.Lock()
	w, ok := q.waiters[id]
	if ok {
		delete(q.waiters, id)
	}
	q.waitersMu.Unlock()
	if ok {
		w.signal()
	}
}
