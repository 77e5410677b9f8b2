package model

// MomentumTier is a coarse classification derived from growth rate.
type MomentumTier string

// Momentum tiers.
const (
	MomentumHigh      MomentumTier = "high"      // growth_rate > 5%
	MomentumPositive  MomentumTier = "positive"  // 0% < growth_rate <= 5%
	MomentumDeclining MomentumTier = "declining" // growth_rate <= 0%
)

// Confidence flags results computed from thin cohorts or history.
type Confidence string

// Confidence levels.
const (
	ConfidenceNormal Confidence = "normal"
	ConfidenceLow    Confidence = "low"
)

// SubScores holds the three composed sub-scores, each in [0,100].
type SubScores struct {
	ContentQuality  float64 `json:"content_quality"`
	AudienceQuality float64 `json:"audience_quality"`
	BrandAlignment  float64 `json:"brand_alignment"`

	// LowConfidence marks scores normalized against the global cohort
	// because the category cohort was below the configured minimum.
	LowConfidence bool `json:"low_confidence,omitempty"`
}

// TrendRecord captures growth and momentum for a subject within one epoch.
// GrowthRate is meaningful only when GrowthKnown is true; with fewer
// than two snapshots in the trailing window the rate is unknown, not zero.
type TrendRecord struct {
	GrowthRate      float64      `json:"growth_rate"`
	GrowthKnown     bool         `json:"growth_known"`
	Momentum        MomentumTier `json:"momentum_tier"`
	Confidence      Confidence   `json:"confidence"`
	OutlierDampened bool         `json:"outlier_dampened,omitempty"`
}

// PercentileVector maps metric keys to percentile ranks (0-100) within
// the cohort that produced them.
type PercentileVector map[string]float64
