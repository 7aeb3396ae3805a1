// Package worker runs queued crawl jobs on a single goroutine.
package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/job"
	"github.com/JakeFAU/company-intel-crawler/internal/queue/memory"
)

// Source yields accepted job tickets.
type Source interface {
	Dequeue(ctx context.Context) (job.Ticket, error)
}

// Executor runs a ticket to completion.
type Executor interface {
	Execute(ctx context.Context, t job.Ticket) error
}

// Worker consumes tickets one at a time, so runs never overlap.
type Worker struct {
	queue  Source
	exec   Executor
	logger *zap.Logger
}

// New constructs a Worker.
func New(queue Source, exec Executor, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{queue: queue, exec: exec, logger: logger}
}

// Run blocks, executing tickets until ctx ends or the queue is closed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		t, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, memory.ErrClosed) {
				return nil
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", t.JobID), zap.Int("targets", len(t.Targets)))
		if err := w.exec.Execute(ctx, t); err != nil {
			w.logger.Warn("job ended with error", zap.String("job_id", t.JobID), zap.Error(err))
		}
	}
}
