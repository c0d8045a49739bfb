package service

import (
	"context"
	"easyforms/forms-api/internal/metrics"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("job queue full")
	ErrStopped   = errors.New("job queue stopped")
)

// Job is a unit of background work. Jobs get a context that is cancelled
// when the dispatcher is stopped and its drain timeout runs out.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher runs best-effort jobs (mostly mail deliveries that must not
// hold up the request) on a fixed pool of workers. Enqueue never blocks;
// when the queue is full the job is dropped.
type Dispatcher struct {
	jobs    chan Job
	running atomic.Int32
	workers int

	// mu guards stopped and the close of jobs
	mu      sync.RWMutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewDispatcher creates a dispatcher with the given amount of workers and
// queue capacity. Non-positive values fall back to a single worker and an
// unbuffered queue.
func NewDispatcher(workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	zap.L().Debug("Initializing job queue", zap.Int("workers", workers), zap.Int("queue_size", queueSize))

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (d *Dispatcher) StartWorkerPool() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for job := range d.jobs {
		err := job.Run(d.ctx)
		d.running.Add(-1)

		if err != nil {
			metrics.MailDeliveries.WithLabelValues("failure").Inc()
			zap.L().Error("Background job finished with an error", zap.String("job", job.Name), zap.Error(err))
			continue
		}

		metrics.MailDeliveries.WithLabelValues("success").Inc()
		zap.L().Debug("Background job finished successfully", zap.String("job", job.Name))
	}
}

// Enqueue adds job to the queue without blocking. It fails with
// ErrQueueFull when the queue is full and ErrStopped after Stop.
func (d *Dispatcher) Enqueue(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		metrics.MailDeliveries.WithLabelValues("dropped").Inc()
		return ErrStopped
	}

	// counted before the send so a fast worker can't decrement first
	n := d.running.Add(1)

	select {
	case d.jobs <- job:
		zap.L().Debug("New job enqueued", zap.Int32("enqueued", n), zap.String("job", job.Name))
		return nil
	default:
		d.running.Add(-1)
		metrics.MailDeliveries.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Go enqueues fn and logs instead of returning when it can't.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) {
	if err := d.Enqueue(Job{Name: name, Run: fn}); err != nil {
		zap.L().Warn("Dropped background job", zap.String("job", name), zap.Error(err))
	}
}

// Pending returns the amount of enqueued and running jobs.
func (d *Dispatcher) Pending() int {
	return int(d.running.Load())
}

// Stop closes the queue and waits for workers to finish what's left. If
// that takes longer than timeout the jobs' context is cancelled.
func (d *Dispatcher) Stop(timeout time.Duration) {
	d.once.Do(func() {
		d.mu.Lock()
		d.stopped = true
		close(d.jobs)
		d.mu.Unlock()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			zap.L().Warn("Job queue didn't drain in time, cancelling remaining jobs", zap.Int("pending", d.Pending()))
			d.cancel()
			<-done
		}

		d.cancel()
	})
}
