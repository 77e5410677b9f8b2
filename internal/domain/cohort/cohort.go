// Package cohort normalizes raw metrics into percentile ranks within a
// peer population.
package cohort

import (
	"sort"

	"github.com/creatorvc/scout/internal/domain/model"
)

// Default normalizer configuration constants.
const (
	defaultMinCohortSize = 5

	// midpointPercentile is emitted for a single-member population,
	// where rank-based percentiles are undefined.
	midpointPercentile = 50.0

	maxPercentile = 100.0
)

// Member is one subject's latest snapshot within the cohort.
type Member struct {
	SubjectID string
	Metrics   model.RawMetrics
}

// Result carries the percentile vectors for every member of the
// requested cohort, all computed over the same peer set.
type Result struct {
	// Percentiles maps subject id to its per-metric percentile vector.
	Percentiles map[string]model.PercentileVector

	// LowConfidence is set whenever the category cohort was below the
	// configured minimum, whether or not the global population could
	// stand in for it.
	LowConfidence bool
}

// Normalizer computes rank-based percentiles with tie averaging.
type Normalizer struct {
	minCohortSize int
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithMinCohortSize sets the smallest category cohort scored on its own.
func WithMinCohortSize(n int) Option {
	return func(c *Normalizer) {
		if n > 1 {
			c.minCohortSize = n
		}
	}
}

// New constructs a Normalizer with default configuration.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		minCohortSize: defaultMinCohortSize,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize computes each category member's percentile rank per metric.
// When the category cohort is smaller than the configured minimum, the
// result is flagged low confidence and the ranks are computed against
// the global population where that is actually larger. Percentile
// vectors are only emitted for the category's own members either way.
func (n *Normalizer) Normalize(category []Member, global []Member) Result {
	population := category
	low := len(category) < n.minCohortSize
	if low && len(global) > len(category) {
		population = global
	}

	out := Result{
		Percentiles:   make(map[string]model.PercentileVector, len(category)),
		LowConfidence: low,
	}
	for _, m := range category {
		out.Percentiles[m.SubjectID] = make(model.PercentileVector)
	}

	for _, key := range metricKeys(population) {
		ranks := percentileRanks(population, key)
		for _, m := range category {
			if p, ok := ranks[m.SubjectID]; ok {
				out.Percentiles[m.SubjectID][key] = p
			}
		}
	}

	return out
}

// metricKeys returns the sorted union of metric keys across members.
func metricKeys(members []Member) []string {
	seen := make(map[string]struct{})
	for _, m := range members {
		for key := range m.Metrics {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// percentileRanks computes percentile = 100*(rank-1)/(n-1) over the
// members carrying the metric, averaging rank positions for tied values.
func percentileRanks(members []Member, key string) map[string]float64 {
	type observation struct {
		subjectID string
		value     float64
	}

	obs := make([]observation, 0, len(members))
	for _, m := range members {
		if v, ok := m.Metrics[key]; ok {
			obs = append(obs, observation{subjectID: m.SubjectID, value: v})
		}
	}
	if len(obs) == 0 {
		return nil
	}

	out := make(map[string]float64, len(obs))
	if len(obs) == 1 {
		out[obs[0].subjectID] = midpointPercentile
		return out
	}

	sort.Slice(obs, func(i, j int) bool {
		if obs[i].value != obs[j].value {
			return obs[i].value < obs[j].value
		}
		return obs[i].subjectID < obs[j].subjectID
	})

	denom := float64(len(obs) - 1)
	for i := 0; i < len(obs); {
		// Walk the run of tied values and average their rank positions.
		j := i
		for j < len(obs) && obs[j].value == obs[i].value {
			j++
		}
		avgRank := float64(i+j-1)/2 + 1 // mean of 1-based positions i+1..j
		p := maxPercentile * (avgRank - 1) / denom
		for k := i; k < j; k++ {
			out[obs[k].subjectID] = p
		}
		i = j
	}

	return out
}
