package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/infrastructure/metrics"
)

// Worker processes tasks from the pool queue.
type Worker struct {
	id          int
	queue       <-chan Task
	taskTimeout time.Duration
	log         zerolog.Logger
}

// NewWorker creates a new background worker.
func NewWorker(id int, queue <-chan Task, taskTimeout time.Duration, log zerolog.Logger) *Worker {
	return &Worker{
		id:          id,
		queue:       queue,
		taskTimeout: taskTimeout,
		log:         log.With().Int("worker_id", id).Str("component", "worker").Logger(),
	}
}

// Start processes tasks until the queue closes. Tasks already queued when ctx
// is cancelled still run, with a cancelled context.
func (w *Worker) Start(ctx context.Context) {
	w.log.Debug().Msg("worker started")
	for task := range w.queue {
		metrics.WorkerQueueDepth.Set(float64(len(w.queue)))
		w.process(ctx, task)
	}
	w.log.Debug().Msg("worker stopped")
}

func (w *Worker) process(ctx context.Context, task Task) {
	taskCtx := ctx
	if w.taskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, w.taskTimeout)
		defer cancel()
	}

	err := w.run(taskCtx, task)
	if err != nil {
		w.log.Warn().Err(err).Str("task", task.Name).Msg("task failed")
	}
	if task.OnError != nil && err != nil {
		task.OnError(err)
	}
}

func (w *Worker) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	if task.Run == nil {
		return nil
	}
	return task.Run(ctx)
}
