package seed

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/creatorvc/scout/pkg/logger"
	"github.com/google/uuid"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	archetypeDivisor   = 5
)

// Creator archetypes controlling how metrics drift across cycles.
const (
	archetypeSteadyRiser = 0
	archetypeViralSpiker = 1
	archetypeDecliner    = 2
	archetypeFlat        = 3
	archetypeErratic     = 4
)

// Constants for baseline metric ranges.
const (
	followerBaseMin    = 5_000
	followerBaseRange  = 995_000
	followingBaseMin   = 100
	followingBaseRange = 4_900
	postBaseMin        = 20
	postBaseRange      = 2_000
	engagementMin      = 0.005
	engagementRange    = 0.12
	likesRatioMin      = 0.01
	likesRatioRange    = 0.06
	commentsRatio      = 0.04
	postingFreqMin     = 0.5
	postingFreqRange   = 13.5
	ratioFloorMin      = 0.4
	ratioFloorRange    = 0.59
	spikeMultiplierMin = 3.0
	spikeMultiplier    = 5.0
	spikeChance        = 0.1
)

// creator pairs a generated identity with its drift archetype.
type creator struct {
	subjectID string
	handle    string
	category  string
	archetype int64
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateSnapshots creates cfg.Subjects creators spread across the
// configured categories, each with cfg.Cycles chronological snapshots.
// The returned slice is ordered cycle-major so submission preserves
// per-creator chronological order.
func generateSnapshots(ctx context.Context, cfg *Config, stats *Stats) ([]Snapshot, error) {
	logger.Get().Info(ctx, "generating snapshots",
		logger.Int("subjects", cfg.Subjects),
		logger.Int("cycles", cfg.Cycles),
		logger.Int("categories", len(cfg.Categories)))

	creators := make([]creator, cfg.Subjects)
	for i := range creators {
		id := uuid.New().String()
		arch, _ := rand.Int(rand.Reader, big.NewInt(archetypeDivisor))
		creators[i] = creator{
			subjectID: id,
			handle:    "@" + strings.Split(id, "-")[0],
			category:  cfg.Categories[i%len(cfg.Categories)],
			archetype: arch.Int64(),
		}
	}

	// Collection timestamps walk backwards from now so the newest cycle
	// lands at the current time.
	start := time.Now().UTC().Add(-time.Duration(cfg.Cycles-1) * cfg.CycleGap)

	snapshots := make([]Snapshot, 0, cfg.Subjects*cfg.Cycles)
	baselines := make([]map[string]float64, cfg.Subjects)
	for i := range baselines {
		baselines[i] = generateBaseline()
	}

	for cycle := 0; cycle < cfg.Cycles; cycle++ {
		collectedAt := start.Add(time.Duration(cycle) * cfg.CycleGap).Format(time.RFC3339)
		for i, c := range creators {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if cycle > 0 {
				driftMetrics(baselines[i], c.archetype)
			}
			snapshots = append(snapshots, Snapshot{
				SubjectID:   c.subjectID,
				Handle:      c.handle,
				Category:    c.category,
				CollectedAt: collectedAt,
				RawMetrics:  cloneMetrics(baselines[i]),
			})
		}
	}

	stats.SubjectsGenerated = cfg.Subjects
	stats.SnapshotsGenerated = len(snapshots)
	logger.Get().Info(ctx, "generated snapshots successfully", logger.Int("count", len(snapshots)))

	return snapshots, nil
}

// generateBaseline produces the cycle-zero metric set for one creator.
func generateBaseline() map[string]float64 {
	followers := float64(int64(followerBaseMin + getRandomFloat()*followerBaseRange))
	engagement := engagementMin + getRandomFloat()*engagementRange
	avgLikes := followers * (likesRatioMin + getRandomFloat()*likesRatioRange)

	return map[string]float64{
		"follower_count":           followers,
		"following_count":          float64(int64(followingBaseMin + getRandomFloat()*followingBaseRange)),
		"post_count":               float64(int64(postBaseMin + getRandomFloat()*postBaseRange)),
		"engagement_rate":          engagement,
		"avg_likes":                avgLikes,
		"avg_comments":             avgLikes * commentsRatio,
		"posting_frequency":        postingFreqMin + getRandomFloat()*postingFreqRange,
		"authentic_follower_ratio": ratioFloorMin + getRandomFloat()*ratioFloorRange,
		"audience_loyalty":         getRandomFloat(),
		"purchasing_power":         getRandomFloat(),
		"brand_alignment":          getRandomFloat(),
	}
}

// driftMetrics advances a creator's metrics by one cycle in place.
func driftMetrics(m map[string]float64, archetype int64) {
	var growth float64
	switch archetype {
	case archetypeSteadyRiser:
		// 1% to 4% per cycle.
		growth = 0.01 + getRandomFloat()*0.03
	case archetypeViralSpiker:
		// Mostly modest growth with the occasional viral jump.
		growth = getRandomFloat() * 0.02
		if getRandomFloat() < spikeChance {
			growth = spikeMultiplierMin + getRandomFloat()*spikeMultiplier
		}
	case archetypeDecliner:
		// -3% to -0.5% per cycle.
		growth = -0.03 + getRandomFloat()*0.025
	case archetypeFlat:
		growth = -0.002 + getRandomFloat()*0.004
	default:
		// Erratic: -5% to +5%.
		growth = -0.05 + getRandomFloat()*0.10
	}

	m["follower_count"] = float64(int64(m["follower_count"] * (1 + growth)))
	if m["follower_count"] < 1 {
		m["follower_count"] = 1
	}
	m["post_count"] += float64(int64(m["posting_frequency"]))
	m["avg_likes"] *= 1 + growth*0.5
	m["avg_comments"] = m["avg_likes"] * commentsRatio
	m["engagement_rate"] = jitterClamped(m["engagement_rate"], 0.002, 0.001, 0.5)
	m["audience_loyalty"] = jitterClamped(m["audience_loyalty"], 0.03, 0, 1)
	m["brand_alignment"] = jitterClamped(m["brand_alignment"], 0.02, 0, 1)
}

// jitterClamped nudges v by up to +/-delta and clamps to [lo, hi].
func jitterClamped(v, delta, lo, hi float64) float64 {
	v += (getRandomFloat()*2 - 1) * delta
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cloneMetrics(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
