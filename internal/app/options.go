package service

import (
	"time"

	"github.com/creatorvc/scout/internal/adapters/repository"
	"github.com/creatorvc/scout/internal/domain/compose"
	"github.com/creatorvc/scout/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSnapshotLog injects a prebuilt snapshot log, bypassing the
// database path.
func WithSnapshotLog(log repository.SnapshotLog) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithDatabasePath sets the SQLite path. Empty keeps the in-memory log.
func WithDatabasePath(path string) Option {
	return func(s *Service) {
		s.dbPath = path
	}
}

// WithTriggerMode selects when recomputation runs (on_ingest or interval).
func WithTriggerMode(mode string) Option {
	return func(s *Service) {
		if mode == TriggerOnIngest || mode == TriggerInterval {
			s.triggerMode = mode
		}
	}
}

// WithRecomputeInterval sets the period for interval trigger mode.
func WithRecomputeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the trigger queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithBatchTimeout bounds one category recomputation.
func WithBatchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.batchTimeout = d
		}
	}
}

// WithCohortMinSize sets the smallest category cohort scored on its own.
func WithCohortMinSize(n int) Option {
	return func(s *Service) {
		if n > 1 {
			s.cohortMinSize = n
		}
	}
}

// WithTrendWindow sets the number of trailing snapshots used for trends.
func WithTrendWindow(n int) Option {
	return func(s *Service) {
		if n > 1 {
			s.trendWindow = n
		}
	}
}

// WithWinsorMultiple sets the outlier cap multiple for growth deltas.
func WithWinsorMultiple(m float64) Option {
	return func(s *Service) {
		if m > 1 {
			s.winsorMult = m
		}
	}
}

// WithAnnualize reports growth per year instead of per cycle.
func WithAnnualize(annualize bool) Option {
	return func(s *Service) {
		s.annualize = annualize
	}
}

// WithWeights sets the score composition weights.
func WithWeights(w compose.Weights) Option {
	return func(s *Service) {
		s.weights = &w
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
