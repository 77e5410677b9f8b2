// Package model contains domain models passed between layers.
package model

import "time"

// Canonical raw metric keys delivered by the collection collaborator.
// Unknown keys are stored as-is but only configured ones participate
// in scoring.
const (
	MetricFollowerCount          = "follower_count"
	MetricFollowingCount         = "following_count"
	MetricPostCount              = "post_count"
	MetricEngagementRate         = "engagement_rate"
	MetricAvgLikes               = "avg_likes"
	MetricAvgComments            = "avg_comments"
	MetricPostingFrequency       = "posting_frequency"
	MetricAuthenticFollowerRatio = "authentic_follower_ratio"
	MetricAudienceLoyalty        = "audience_loyalty"
	MetricPurchasingPower        = "purchasing_power"
	MetricBrandAlignment         = "brand_alignment"
)

// CountMetrics lists the metrics that must never be negative.
var CountMetrics = []string{
	MetricFollowerCount,
	MetricFollowingCount,
	MetricPostCount,
}

// RawMetrics maps metric keys to their raw observed values.
type RawMetrics map[string]float64

// Clone returns a deep copy so stored snapshots stay immutable.
func (m RawMetrics) Clone() RawMetrics {
	if m == nil {
		return nil
	}
	out := make(RawMetrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Subject is the immutable identity of a creator account.
// The id is stable; the category follows the latest accepted snapshot.
type Subject struct {
	ID       string `json:"id"`
	Handle   string `json:"handle"`
	Category string `json:"category"`
}

// Snapshot is one raw metric observation for one subject at one point
// in time. Immutable once stored; at most one per (subject, collected_at).
type Snapshot struct {
	SubjectID   string     `json:"subject_id"`
	Handle      string     `json:"handle"`
	Category    string     `json:"category"`
	CollectedAt time.Time  `json:"collected_at"`
	Metrics     RawMetrics `json:"raw_metrics"`
}
