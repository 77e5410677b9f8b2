// Package worker runs the recomputation loop behind the trigger queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/creatorvc/scout/internal/adapters/mq/queue"
	"github.com/creatorvc/scout/pkg/logger"
	"github.com/creatorvc/scout/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultBatchTimeout = 30 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Recomputer rebuilds and publishes the scores of one category.
type Recomputer interface {
	Recompute(ctx context.Context, category string) error
}

// Queue defines how workers receive recompute triggers.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Trigger
}

// Worker processes triggers until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker after the trigger in
	// flight finishes.
	Shutdown(ctx context.Context) error
}

// RecomputeWorker implements Worker over a Recomputer.
type RecomputeWorker struct {
	queue      Queue
	recomputer Recomputer
	name       string

	batchTimeout time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewRecomputeWorker creates a worker with configuration options.
func NewRecomputeWorker(q Queue, recomputer Recomputer, opts ...Option) *RecomputeWorker {
	w := &RecomputeWorker{
		queue:        q,
		recomputer:   recomputer,
		name:         "worker",
		batchTimeout: defaultBatchTimeout,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		logger:       logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *RecomputeWorker) Run(ctx context.Context) {
	defer close(w.done)

	triggers := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case trig, ok := <-triggers:
			if !ok {
				return
			}
			if err := w.process(ctx, trig); err != nil {
				w.logger.Error(ctx, "recompute failed",
					logger.String("category", trig.Category),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *RecomputeWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one recomputation under the batch timeout.
func (w *RecomputeWorker) process(ctx context.Context, trig queue.Trigger) error {
	start := time.Now()
	defer func() {
		metrics.RecordBatchDuration(float64(time.Since(start).Microseconds()) / 1000)
	}()

	batchCtx, cancel := context.WithTimeout(ctx, w.batchTimeout)
	defer cancel()

	if err := w.recomputer.Recompute(batchCtx, trig.Category); err != nil {
		return fmt.Errorf("recompute category %s: %w", trig.Category, err)
	}

	w.logger.Debug(ctx, "recompute finished",
		logger.String("category", trig.Category),
		logger.Int64("wait_ms", time.Since(trig.EnqueuedAt).Milliseconds()),
	)
	return nil
}

// Pool manages a fixed set of workers sharing one trigger queue.
// Triggers for distinct categories recompute in parallel; the
// recomputer is responsible for serializing batches of one category.
type Pool struct {
	workers []*RecomputeWorker
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers.
func NewPool(workerCount int, q Queue, recomputer Recomputer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*RecomputeWorker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range pool.workers {
		named := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewRecomputeWorker(q, recomputer, named...)
	}
	return pool
}

// Run starts every worker and blocks until all have stopped.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *RecomputeWorker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}
	wg.Wait()
}

// Shutdown stops every worker, waiting for in-flight recomputations.
func (p *Pool) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("worker pool shutdown: %w", firstErr)
	}
	p.logger.Info(ctx, "worker pool stopped", logger.Int("workers", len(p.workers)))
	return nil
}
