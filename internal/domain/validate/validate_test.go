package validate_test

import (
	"math"
	"testing"
	"time"

	"github.com/creatorvc/scout/internal/domain/model"
	"github.com/creatorvc/scout/internal/domain/validate"
	. "github.com/smartystreets/goconvey/convey"
)

func validSnapshot(ts time.Time) model.Snapshot {
	return model.Snapshot{
		SubjectID:   "sub-1",
		Handle:      "creator_one",
		Category:    "Tech",
		CollectedAt: ts,
		Metrics: model.RawMetrics{
			model.MetricFollowerCount:  100_000,
			model.MetricEngagementRate: 0.034,
		},
	}
}

func TestValidatorCheck(t *testing.T) {
	Convey("Given a validator", t, func() {
		v := validate.New()
		now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

		Convey("When the snapshot is well formed and first for the subject", func() {
			err := v.Check(validSnapshot(now), time.Time{}, false)

			Convey("Then it should pass", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When required fields are missing", func() {
			Convey("And the subject id is empty", func() {
				snap := validSnapshot(now)
				snap.SubjectID = " "
				So(v.Check(snap, time.Time{}, false), ShouldWrap, validate.ErrMissingField)
			})

			Convey("And the metrics map is empty", func() {
				snap := validSnapshot(now)
				snap.Metrics = nil
				So(v.Check(snap, time.Time{}, false), ShouldWrap, validate.ErrMissingField)
			})

			Convey("And the headline metric is absent", func() {
				snap := validSnapshot(now)
				delete(snap.Metrics, model.MetricFollowerCount)
				So(v.Check(snap, time.Time{}, false), ShouldWrap, validate.ErrMissingField)
			})
		})

		Convey("When a count metric is negative", func() {
			snap := validSnapshot(now)
			snap.Metrics[model.MetricFollowerCount] = -5

			Convey("Then it should be rejected", func() {
				err := v.Check(snap, time.Time{}, false)
				So(err, ShouldWrap, validate.ErrNegativeCount)
				So(validate.Reason(err), ShouldEqual, "negative_count")
			})
		})

		Convey("When a metric is NaN", func() {
			snap := validSnapshot(now)
			snap.Metrics[model.MetricEngagementRate] = math.NaN()

			Convey("Then it should be rejected as not finite", func() {
				So(v.Check(snap, time.Time{}, false), ShouldWrap, validate.ErrNotFinite)
			})
		})

		Convey("When the snapshot is out of order", func() {
			snap := validSnapshot(now)

			Convey("And collected_at is before the last stored one", func() {
				err := v.Check(snap, now.Add(time.Hour), true)
				So(err, ShouldWrap, validate.ErrOutOfOrder)
				So(validate.Reason(err), ShouldEqual, "out_of_order")
			})

			Convey("And collected_at equals the last stored one", func() {
				So(v.Check(snap, now, true), ShouldWrap, validate.ErrOutOfOrder)
			})

			Convey("And collected_at is strictly after the last stored one", func() {
				So(v.Check(snap, now.Add(-time.Hour), true), ShouldBeNil)
			})
		})

		Convey("When custom required metrics are configured", func() {
			strict := validate.New(validate.WithRequiredMetrics(
				model.MetricFollowerCount,
				model.MetricEngagementRate,
				model.MetricPostCount,
			))
			snap := validSnapshot(now)

			Convey("Then a missing configured metric rejects", func() {
				So(strict.Check(snap, time.Time{}, false), ShouldWrap, validate.ErrMissingField)
			})
		})
	})
}
