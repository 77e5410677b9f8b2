// Package trend derives growth and momentum from a subject's snapshot
// history.
package trend

import (
	"math"
	"sort"
	"time"

	"github.com/creatorvc/scout/internal/domain/model"
)

// Default trend configuration constants.
const (
	defaultWindow         = 6 // trailing collection cycles
	defaultWinsorMultiple = 3.0

	// Momentum tier thresholds, in percent growth.
	highGrowthThreshold = 5.0

	hoursPerYear = 365 * 24
)

// Calculator computes windowed, winsorized growth rates.
type Calculator struct {
	window         int
	winsorMultiple float64
	annualize      bool
	headlineMetric string
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithWindow sets the number of trailing snapshots examined.
func WithWindow(n int) Option {
	return func(c *Calculator) {
		if n > 1 {
			c.window = n
		}
	}
}

// WithWinsorMultiple sets the delta cap as a multiple of the trailing
// median delta.
func WithWinsorMultiple(m float64) Option {
	return func(c *Calculator) {
		if m > 1 {
			c.winsorMultiple = m
		}
	}
}

// WithAnnualize reports growth per year instead of per cycle.
func WithAnnualize(annualize bool) Option {
	return func(c *Calculator) {
		c.annualize = annualize
	}
}

// WithHeadlineMetric overrides the metric the growth rate is derived from.
func WithHeadlineMetric(key string) Option {
	return func(c *Calculator) {
		if key != "" {
			c.headlineMetric = key
		}
	}
}

// New constructs a Calculator with default configuration.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		window:         defaultWindow,
		winsorMultiple: defaultWinsorMultiple,
		headlineMetric: model.MetricFollowerCount,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute derives the trend record from a chronologically ascending
// snapshot history. It returns nil while no prior snapshot exists: a
// missing trend is absent, never zero. With fewer than two usable
// snapshots in the trailing window the growth rate is reported as
// unknown with low confidence.
func (c *Calculator) Compute(history []model.Snapshot) *model.TrendRecord {
	if len(history) < 2 {
		return nil
	}

	// Trailing window: the last N snapshots.
	win := history
	if len(win) > c.window {
		win = win[len(win)-c.window:]
	}

	values := make([]float64, 0, len(win))
	times := make([]time.Time, 0, len(win))
	for _, s := range win {
		if v, ok := s.Metrics[c.headlineMetric]; ok {
			values = append(values, v)
			times = append(times, s.CollectedAt)
		}
	}
	if len(values) < 2 {
		return &model.TrendRecord{Confidence: model.ConfidenceLow}
	}

	deltas := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		deltas[i-1] = values[i] - values[i-1]
	}

	capped, dampened := c.winsorize(deltas)

	base := values[0]
	if base <= 0 {
		// Percentage growth is undefined from a zero baseline.
		return &model.TrendRecord{
			Confidence:      model.ConfidenceLow,
			OutlierDampened: dampened,
		}
	}

	var total float64
	for _, d := range capped {
		total += d
	}

	cycles := float64(len(capped))
	rate := 100 * total / base / cycles
	if c.annualize {
		rate *= cyclesPerYear(times)
	}

	return &model.TrendRecord{
		GrowthRate:      rate,
		GrowthKnown:     true,
		Momentum:        classify(rate),
		Confidence:      model.ConfidenceNormal,
		OutlierDampened: dampened,
	}
}

// winsorize caps any single-cycle delta exceeding the configured
// multiple of the trailing median absolute delta, preserving sign.
// The cap is documented dampening, not silent correction: the second
// return reports whether any delta was capped.
func (c *Calculator) winsorize(deltas []float64) ([]float64, bool) {
	med := medianAbs(deltas)
	if med <= 0 {
		return deltas, false
	}

	limit := c.winsorMultiple * med
	out := make([]float64, len(deltas))
	dampened := false
	for i, d := range deltas {
		if math.Abs(d) > limit {
			out[i] = math.Copysign(limit, d)
			dampened = true
			continue
		}
		out[i] = d
	}
	return out, dampened
}

// medianAbs returns the median of the absolute deltas.
func medianAbs(deltas []float64) float64 {
	abs := make([]float64, len(deltas))
	for i, d := range deltas {
		abs[i] = math.Abs(d)
	}
	sort.Float64s(abs)

	n := len(abs)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return abs[n/2]
	}
	return (abs[n/2-1] + abs[n/2]) / 2
}

// cyclesPerYear estimates collection cycles per year from the median
// gap between observed snapshots.
func cyclesPerYear(times []time.Time) float64 {
	gaps := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		if h := times[i].Sub(times[i-1]).Hours(); h > 0 {
			gaps = append(gaps, h)
		}
	}
	if len(gaps) == 0 {
		return 1
	}
	sort.Float64s(gaps)
	medianGap := gaps[len(gaps)/2]
	if len(gaps)%2 == 0 {
		medianGap = (gaps[len(gaps)/2-1] + gaps[len(gaps)/2]) / 2
	}
	return hoursPerYear / medianGap
}

// classify maps a growth rate to its momentum tier.
func classify(rate float64) model.MomentumTier {
	switch {
	case rate > highGrowthThreshold:
		return model.MomentumHigh
	case rate > 0:
		return model.MomentumPositive
	default:
		return model.MomentumDeclining
	}
}
