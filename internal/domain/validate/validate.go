// Package validate screens raw metric snapshots before they reach the log.
package validate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/creatorvc/scout/internal/domain/model"
)

// Validator rejects malformed or out-of-order snapshots. It holds no
// state; the caller supplies the subject's last stored timestamp.
type Validator struct {
	requiredMetrics []string
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithRequiredMetrics overrides the metrics every snapshot must carry.
func WithRequiredMetrics(keys ...string) Option {
	return func(v *Validator) {
		if len(keys) > 0 {
			v.requiredMetrics = keys
		}
	}
}

// New constructs a Validator with default configuration.
func New(opts ...Option) *Validator {
	v := &Validator{
		requiredMetrics: []string{model.MetricFollowerCount},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Check returns nil when the snapshot may be appended. last is the
// subject's most recent stored collected_at; hasPrior is false for a
// first-ever snapshot. Equality with last is not reported here: the
// idempotent resubmit case is settled against the log itself.
func (v *Validator) Check(snap model.Snapshot, last time.Time, hasPrior bool) error {
	switch {
	case strings.TrimSpace(snap.SubjectID) == "":
		return fmt.Errorf("%w: subject_id", ErrMissingField)
	case strings.TrimSpace(snap.Handle) == "":
		return fmt.Errorf("%w: handle", ErrMissingField)
	case strings.TrimSpace(snap.Category) == "":
		return fmt.Errorf("%w: category", ErrMissingField)
	case snap.CollectedAt.IsZero():
		return fmt.Errorf("%w: collected_at", ErrMissingField)
	case len(snap.Metrics) == 0:
		return fmt.Errorf("%w: raw_metrics", ErrMissingField)
	}

	for _, key := range v.requiredMetrics {
		if _, ok := snap.Metrics[key]; !ok {
			return fmt.Errorf("%w: raw_metrics.%s", ErrMissingField, key)
		}
	}

	for key, val := range snap.Metrics {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("%w: %s", ErrNotFinite, key)
		}
	}

	for _, key := range model.CountMetrics {
		if val, ok := snap.Metrics[key]; ok && val < 0 {
			return fmt.Errorf("%w: %s", ErrNegativeCount, key)
		}
	}

	// Out-of-order and back-filled snapshots are rejected outright;
	// retroactive epoch recomputation is deliberately unsupported.
	if hasPrior && !snap.CollectedAt.After(last) {
		return fmt.Errorf("%w: collected_at %s not after %s",
			ErrOutOfOrder, snap.CollectedAt.Format(time.RFC3339), last.Format(time.RFC3339))
	}

	return nil
}

// Machine-readable rejection reasons used in API responses and metrics
// labels.
const (
	ReasonMissingField  = "missing_field"
	ReasonNegativeCount = "negative_count"
	ReasonNotFinite     = "not_finite"
	ReasonOutOfOrder    = "out_of_order"
	ReasonInvalid       = "invalid"
)

// Reason maps a validation error to its rejection reason.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return ReasonMissingField
	case errors.Is(err, ErrNegativeCount):
		return ReasonNegativeCount
	case errors.Is(err, ErrNotFinite):
		return ReasonNotFinite
	case errors.Is(err, ErrOutOfOrder):
		return ReasonOutOfOrder
	default:
		return ReasonInvalid
	}
}
