package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// weightSumTolerance absorbs float noise when checking weight maps.
const weightSumTolerance = 1e-9

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if SCOUT_CONFIG is set
//  3. env (prefix SCOUT_, double underscore for nesting)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("SCOUT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: SCOUT_ADDR, SCOUT_TRIGGER_MODE, ...
	// Double underscore maps to nesting: SCOUT_WEIGHTS__CONTENT_WEIGHT
	// becomes weights.content_weight. Single underscores are preserved
	// to match the koanf tags on the struct.
	envProvider := env.Provider("SCOUT_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "scout_")
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural invariants that must hold before the
// engine starts. Weight maps are validated to sum to 1.0 at load time
// so composition never silently biases scores.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.TriggerMode != TriggerOnIngest && c.TriggerMode != TriggerInterval {
		return fmt.Errorf("%w: trigger_mode must be %q or %q", ErrInvalidConfig, TriggerOnIngest, TriggerInterval)
	}
	if c.TriggerMode == TriggerInterval && c.RecomputeIntervalSec < 1 {
		return fmt.Errorf("%w: recompute_interval_sec must be positive", ErrInvalidConfig)
	}
	if c.BatchTimeoutSec < 1 {
		return fmt.Errorf("%w: batch_timeout_sec must be positive", ErrInvalidConfig)
	}
	if c.CohortMinSize < 2 {
		return fmt.Errorf("%w: cohort_min_size must be at least 2", ErrInvalidConfig)
	}
	if c.TrendWindow < 2 {
		return fmt.Errorf("%w: trend_window must be at least 2", ErrInvalidConfig)
	}
	if c.WinsorMultiple <= 1 {
		return fmt.Errorf("%w: winsor_multiple must be greater than 1", ErrInvalidConfig)
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("%w: max_page_size must be positive", ErrInvalidConfig)
	}
	return c.Weights.Validate()
}

// Validate checks that every weight map sums to 1.0 and contains no
// negative entries.
func (w *Weights) Validate() error {
	if err := checkSum("overall", map[string]float64{
		"content_weight":  w.Content,
		"audience_weight": w.Audience,
		"brand_weight":    w.Brand,
	}); err != nil {
		return err
	}
	if err := checkSum("content_metrics", w.ContentMetrics); err != nil {
		return err
	}
	if err := checkSum("audience_metrics", w.AudienceMetrics); err != nil {
		return err
	}
	return checkSum("brand_metrics", w.BrandMetrics)
}

func checkSum(name string, weights map[string]float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidWeights, name)
	}
	var sum float64
	for key, v := range weights {
		if v < 0 {
			return fmt.Errorf("%w: %s[%s] is negative", ErrInvalidWeights, name, key)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: %s sums to %v", ErrInvalidWeights, name, sum)
	}
	return nil
}
