// Package compose maps percentile vectors to sub-scores and the
// overall investment score.
package compose

import (
	"math"

	"github.com/creatorvc/scout/internal/domain/model"
)

// Score bounds.
const (
	minScore = 0.0
	maxScore = 100.0
)

// MetricWeights maps metric keys to their share of one sub-score.
type MetricWeights map[string]float64

// Weights enumerates every weight used in composition. The loader
// validates that each map sums to 1.0 before a Composer is built.
type Weights struct {
	Content  float64
	Audience float64
	Brand    float64

	ContentMetrics  MetricWeights
	AudienceMetrics MetricWeights
	BrandMetrics    MetricWeights
}

// Composer combines normalized percentiles into bounded scores. It
// never fails on valid percentile input: a missing sub-metric
// contributes zero and its weight is redistributed proportionally
// among the metrics that are present.
type Composer struct {
	weights Weights
}

// Option applies a configuration option to the Composer.
type Option func(*Composer)

// WithWeights sets the composition weights.
func WithWeights(w Weights) Option {
	return func(c *Composer) {
		c.weights = w
	}
}

// New constructs a Composer with default, evenly spread weights.
func New(opts ...Option) *Composer {
	c := &Composer{
		weights: Weights{
			Content:  1.0 / 3,
			Audience: 1.0 / 3,
			Brand:    1.0 / 3,
			ContentMetrics: MetricWeights{
				model.MetricEngagementRate: 1.0,
			},
			AudienceMetrics: MetricWeights{
				model.MetricAuthenticFollowerRatio: 1.0,
			},
			BrandMetrics: MetricWeights{
				model.MetricBrandAlignment: 1.0,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose produces the three sub-scores and the overall score for one
// subject's percentile vector. lowConfidence is carried through to the
// SubScores so small-cohort results stay visibly flagged.
func (c *Composer) Compose(p model.PercentileVector, lowConfidence bool) (model.SubScores, float64) {
	sub := model.SubScores{
		ContentQuality:  weightedScore(p, c.weights.ContentMetrics),
		AudienceQuality: weightedScore(p, c.weights.AudienceMetrics),
		BrandAlignment:  weightedScore(p, c.weights.BrandMetrics),
		LowConfidence:   lowConfidence,
	}

	overall := clamp(round2(sub.ContentQuality*c.weights.Content +
		sub.AudienceQuality*c.weights.Audience +
		sub.BrandAlignment*c.weights.Brand))

	return sub, overall
}

// weightedScore computes the weighted sum of the present metric
// percentiles, renormalized over the weight actually present.
func weightedScore(p model.PercentileVector, weights MetricWeights) float64 {
	var sum, presentWeight float64
	for key, w := range weights {
		if pct, ok := p[key]; ok {
			sum += pct * w
			presentWeight += w
		}
	}
	if presentWeight == 0 {
		return 0
	}
	return clamp(round2(sum / presentWeight))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v float64) float64 {
	return math.Max(minScore, math.Min(maxScore, v))
}
