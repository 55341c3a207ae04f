// Package worker runs conversions in the background.
//
// Go Pattern: Goroutines and channels are Go's concurrency primitives. The
// pool is the usual Go shape: a buffered channel as the job queue, N
// goroutines reading from it, and HTTP handlers submitting without blocking.
//
// Clients poll their session for progress instead of holding the request
// open for the length of an AI call.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Submit when no slot is free.
var ErrQueueFull = errors.New("job queue is full; try again later")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("worker pool is stopped")

// Runner is the work a job performs. *pipeline.Pipeline implements it.
//
// Go Pattern: The interface lives with its consumer. The worker package
// never imports pipeline; any type with these two methods can be queued.
type Runner interface {
	// Run executes a conversion that has already been begun.
	Run(ctx context.Context) error
	// Cancel rolls back a begun conversion that will never run.
	Cancel() error
}

// Job is one queued conversion.
type Job struct {
	ID         string // session ID
	Runner     Runner
	EnqueuedAt time.Time
}

// Pool manages a pool of worker goroutines.
type Pool struct {
	// Go Pattern: A buffered channel holds up to queueSize jobs before a
	// send would block.
	jobs    chan Job
	workers int
	timeout time.Duration
	logger  *zap.Logger

	// mu guards closed so Submit never sends on a closed channel.
	mu     sync.RWMutex
	closed bool

	// Go Pattern: sync.WaitGroup counts running workers; Stop waits on it.
	wg sync.WaitGroup

	// Cancelled by Stop; every job context derives from it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a worker pool. Each job runs with its own context bounded
// by timeout, detached from the HTTP request that submitted it.
func NewPool(workers, queueSize int, timeout time.Duration, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	p.logger.Info("🚀 Starting background workers", zap.Int("workers", p.workers))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop cancels running jobs, rolls back queued ones and waits for every
// worker to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.logger.Info("⏹️  Stopping workers...")
	p.cancel()
	close(p.jobs)
	p.wg.Wait()
	p.logger.Info("✅ All workers stopped")
}

// Submit adds a job to the queue without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrStopped
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	// Go Pattern: `select` with `default` turns the send into a try-send,
	// so a full queue is reported instead of stalling the handler.
	select {
	case p.jobs <- job:
		p.logger.Info("📥 Job queued", zap.String("session_id", job.ID), zap.Int("queued", len(p.jobs)))
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueSize returns the current number of jobs in the queue.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

// worker is the main loop for each worker goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log := p.logger.With(zap.Int("worker", id))
	log.Debug("👷 Worker started")

	// Go Pattern: `range` over a channel reads until it is closed and drained.
	for job := range p.jobs {
		if p.ctx.Err() != nil {
			// Shutting down: whatever is still queued never runs.
			if err := job.Runner.Cancel(); err != nil {
				log.Warn("⚠️  Could not roll back queued job", zap.String("session_id", job.ID), zap.Error(err))
			}
			continue
		}

		p.process(log, job)
	}

	log.Debug("👷 Worker stopped")
}

func (p *Pool) process(log *zap.Logger, job Job) {
	log = log.With(zap.String("session_id", job.ID))
	log.Info("👷 Processing conversion", zap.Duration("waited", time.Since(job.EnqueuedAt)))

	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	started := time.Now()
	err := p.run(ctx, job)
	if err != nil {
		log.Error("❌ Conversion job failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return
	}
	log.Info("✅ Conversion job completed", zap.Duration("elapsed", time.Since(started)))
}

// run keeps a panicking conversion from taking the worker down with it.
//
// Go Pattern: recover only works inside a deferred function. The named
// return lets the deferred closure replace the result.
func (p *Pool) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversion panicked: %v", r)
		}
	}()
	return job.Runner.Run(ctx)
}
