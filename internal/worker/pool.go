package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/infrastructure/metrics"
)

// ErrQueueFull is returned by Submit when the pool cannot accept more work.
var ErrQueueFull = errors.New("worker queue is full")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("worker pool stopped")

// Task is one unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
	// OnError is called with the task's error, if any, after Run returns.
	OnError func(err error)
}

// Pool manages multiple background workers.
type Pool struct {
	workers     []*Worker
	queue       chan Task
	workerCount int
	taskTimeout time.Duration
	log         zerolog.Logger
	wg          sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// Config contains worker pool configuration.
type Config struct {
	WorkerCount int
	QueueSize   int
	TaskTimeout time.Duration
}

// NewPool creates a new worker pool.
func NewPool(cfg Config, log zerolog.Logger) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.WorkerCount
	}
	return &Pool{
		queue:       make(chan Task, cfg.QueueSize),
		workerCount: cfg.WorkerCount,
		taskTimeout: cfg.TaskTimeout,
		log:         log.With().Str("component", "worker-pool").Logger(),
	}
}

// Start initializes and starts all workers.
func (p *Pool) Start(ctx context.Context) {
	p.log.Info().Int("worker_count", p.workerCount).Int("queue_size", cap(p.queue)).Msg("starting worker pool")

	p.workers = make([]*Worker, p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		worker := NewWorker(i+1, p.queue, p.taskTimeout, p.log)
		p.workers[i] = worker

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Start(ctx)
		}(worker)
	}
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.queue <- task:
		metrics.WorkerQueueDepth.Set(float64(len(p.queue)))
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth returns the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}

// Stop lets workers drain queued tasks and waits for them, up to timeout.
func (p *Pool) Stop(timeout time.Duration) {
	p.log.Info().Msg("stopping worker pool")

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info().Msg("all workers stopped gracefully")
	case <-time.After(timeout):
		p.log.Warn().Msg("worker pool shutdown timed out")
	}
}
