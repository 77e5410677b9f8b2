// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"

	"github.com/creatorvc/scout/internal/domain/model"
)

// Trigger modes for the recompute pipeline.
const (
	TriggerOnIngest = "on_ingest"
	TriggerInterval = "interval"
)

// Weights enumerates every weight used by the score composer. Each map
// must sum to 1.0; the loader rejects anything else.
type Weights struct {
	// Overall composition.
	Content  float64 `koanf:"content_weight"`
	Audience float64 `koanf:"audience_weight"`
	Brand    float64 `koanf:"brand_weight"`

	// Per-metric maps feeding each sub-score.
	ContentMetrics  map[string]float64 `koanf:"content_metrics"`
	AudienceMetrics map[string]float64 `koanf:"audience_metrics"`
	BrandMetrics    map[string]float64 `koanf:"brand_metrics"`
}

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath points at the SQLite snapshot log. Empty selects the
	// in-memory log (useful for tests and throwaway runs).
	DBPath string `koanf:"db_path"`

	// TriggerMode selects when categories are recomputed:
	// on_ingest (every accepted snapshot) or interval (scheduled).
	TriggerMode string `koanf:"trigger_mode"`

	// RecomputeIntervalSec drives the scheduler in interval mode.
	RecomputeIntervalSec int `koanf:"recompute_interval_sec"`

	// BatchTimeoutSec bounds one category recompute batch.
	BatchTimeoutSec int `koanf:"batch_timeout_sec"`

	// TriggerQueueSize bounds the pending recompute trigger queue.
	TriggerQueueSize int `koanf:"trigger_queue_size"`

	// WorkerCount sets the number of concurrent recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the ingest idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// CohortMinSize is the smallest category cohort scored on its own;
	// below it the normalizer falls back to the global cohort.
	CohortMinSize int `koanf:"cohort_min_size"`

	// TrendWindow is the number of trailing collection cycles examined
	// by the trend calculator.
	TrendWindow int `koanf:"trend_window"`

	// WinsorMultiple caps single-cycle deltas at this multiple of the
	// trailing median delta.
	WinsorMultiple float64 `koanf:"winsor_multiple"`

	// Annualize reports growth per year instead of per cycle.
	Annualize bool `koanf:"annualize"`

	// MaxPageSize caps list query limits.
	MaxPageSize int `koanf:"max_page_size"`

	// Weights configures score composition.
	Weights Weights `koanf:"weights"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use
// and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9090",
		DBPath:               "",
		TriggerMode:          TriggerOnIngest,
		RecomputeIntervalSec: 300,
		BatchTimeoutSec:      30,
		TriggerQueueSize:     1024,
		WorkerCount:          runtime.NumCPU(),
		DedupeSize:           100_000,
		CohortMinSize:        5,
		TrendWindow:          6,
		WinsorMultiple:       3.0,
		Annualize:            false,
		MaxPageSize:          100,
		Weights: Weights{
			Content:  0.40,
			Audience: 0.35,
			Brand:    0.25,
			ContentMetrics: map[string]float64{
				model.MetricEngagementRate:   0.45,
				model.MetricAvgLikes:         0.20,
				model.MetricAvgComments:      0.15,
				model.MetricPostingFrequency: 0.20,
			},
			AudienceMetrics: map[string]float64{
				model.MetricAuthenticFollowerRatio: 0.40,
				model.MetricAudienceLoyalty:        0.25,
				model.MetricPurchasingPower:        0.25,
				model.MetricEngagementRate:         0.10,
			},
			BrandMetrics: map[string]float64{
				model.MetricBrandAlignment: 1.0,
			},
		},
	}
}
