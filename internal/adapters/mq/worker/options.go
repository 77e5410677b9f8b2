package worker

import (
	"time"

	"github.com/creatorvc/scout/pkg/logger"
)

// Option applies a configuration option to the RecomputeWorker.
type Option func(*RecomputeWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *RecomputeWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithBatchTimeout bounds how long one recomputation may run.
func WithBatchTimeout(d time.Duration) Option {
	return func(w *RecomputeWorker) {
		if d > 0 {
			w.batchTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *RecomputeWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
