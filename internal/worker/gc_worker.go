package worker

import (
	"context"
	"sync"
	"time"

	"github.com/soullink-tracker/server/internal/idempotency"
	"github.com/soullink-tracker/server/internal/logger"
)

// DefaultGCInterval is how often expired idempotency records are swept.
const DefaultGCInterval = time.Hour

// IdempotencyGCWorker periodically enqueues a sweep of expired
// idempotency records onto the shared worker pool.
type IdempotencyGCWorker struct {
	exec     *idempotency.Executor
	pool     *Pool
	interval time.Duration
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewIdempotencyGCWorker creates a new GC worker. An interval <= 0 falls
// back to DefaultGCInterval.
func NewIdempotencyGCWorker(exec *idempotency.Executor, pool *Pool, interval time.Duration) *IdempotencyGCWorker {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	return &IdempotencyGCWorker{
		exec:     exec,
		pool:     pool,
		interval: interval,
		shutdown: make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (w *IdempotencyGCWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		log := logger.FromContext(context.Background())
		log.Info(LogMsgIdempotencyGCStarted, "interval", w.interval)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.pool.Enqueue(gcJob{exec: w.exec})
			case <-w.shutdown:
				return
			}
		}
	}()
}

// Trigger enqueues an immediate sweep, outside the regular schedule.
func (w *IdempotencyGCWorker) Trigger() {
	w.pool.Enqueue(gcJob{exec: w.exec})
}

// Shutdown stops the schedule loop. Jobs already enqueued still run.
func (w *IdempotencyGCWorker) Shutdown() {
	close(w.shutdown)
	w.wg.Wait()
}

type gcJob struct {
	exec *idempotency.Executor
}

func (j gcJob) Process(ctx context.Context) error {
	log := logger.FromContext(ctx)

	removed, err := j.exec.GC(ctx)
	if err != nil {
		log.Error(LogMsgIdempotencyGCFailed, "error", err)
		return err
	}

	log.Info(LogMsgIdempotencyGCCompleted, "removed", removed)
	return nil
}
