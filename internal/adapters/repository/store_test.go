package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/creatorvc/scout/internal/adapters/repository"
	"github.com/creatorvc/scout/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func snap(subjectID, category string, at time.Time, followers float64) model.Snapshot {
	return model.Snapshot{
		SubjectID:   subjectID,
		Handle:      "@" + subjectID,
		Category:    category,
		CollectedAt: at,
		Metrics: model.RawMetrics{
			model.MetricFollowerCount:  followers,
			model.MetricEngagementRate: 0.05,
		},
	}
}

// eachLog runs the suite against every SnapshotLog implementation.
// Convey re-executes the assertion tree per leaf, so implementations
// are constructed fresh inside the tree via the factory.
func eachLog(t *testing.T, run func(t *testing.T, newLog func() repository.SnapshotLog)) {
	t.Run("memory", func(t *testing.T) {
		run(t, func() repository.SnapshotLog {
			return repository.NewMemoryLog()
		})
	})
	t.Run("sqlite", func(t *testing.T) {
		run(t, func() repository.SnapshotLog {
			log, err := repository.NewSQLiteLog(filepath.Join(t.TempDir(), "scout.db"))
			if err != nil {
				t.Fatalf("open sqlite log: %v", err)
			}
			return log
		})
	})
}

func TestAppendAndHistory(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	eachLog(t, func(t *testing.T, newLog func() repository.SnapshotLog) {
		ctx := context.Background()

		Convey("Given an empty snapshot log", t, func() {
			log := newLog()
			defer log.Close()

			Convey("When three snapshots append for one subject", func() {
				So(log.Append(ctx, snap("alice", "tech", base, 100)), ShouldBeNil)
				So(log.Append(ctx, snap("alice", "tech", base.Add(time.Hour), 110)), ShouldBeNil)
				So(log.Append(ctx, snap("alice", "tech", base.Add(2*time.Hour), 120)), ShouldBeNil)

				Convey("Then history should return them in chronological order", func() {
					history, err := log.History(ctx, "alice", 0)
					So(err, ShouldBeNil)
					So(history, ShouldHaveLength, 3)
					So(history[0].Metrics[model.MetricFollowerCount], ShouldEqual, 100)
					So(history[2].Metrics[model.MetricFollowerCount], ShouldEqual, 120)
				})

				Convey("Then a limited history should keep the newest entries", func() {
					history, err := log.History(ctx, "alice", 2)
					So(err, ShouldBeNil)
					So(history, ShouldHaveLength, 2)
					So(history[0].Metrics[model.MetricFollowerCount], ShouldEqual, 110)
				})

				Convey("Then the latest timestamp should be known", func() {
					at, ok, err := log.LatestTimestamp(ctx, "alice")
					So(err, ShouldBeNil)
					So(ok, ShouldBeTrue)
					So(at.Equal(base.Add(2*time.Hour)), ShouldBeTrue)
				})

				Convey("Then stored identities should be reported, older ones included", func() {
					stored, err := log.Has(ctx, "alice", base)
					So(err, ShouldBeNil)
					So(stored, ShouldBeTrue)

					stored, err = log.Has(ctx, "alice", base.Add(30*time.Minute))
					So(err, ShouldBeNil)
					So(stored, ShouldBeFalse)
				})
			})

			Convey("When the same identity appends twice", func() {
				So(log.Append(ctx, snap("bob", "tech", base, 100)), ShouldBeNil)
				err := log.Append(ctx, snap("bob", "tech", base, 999))

				Convey("Then the resubmission should report a duplicate", func() {
					So(err, ShouldWrap, repository.ErrDuplicate)
					history, _ := log.History(ctx, "bob", 0)
					So(history, ShouldHaveLength, 1)
					So(history[0].Metrics[model.MetricFollowerCount], ShouldEqual, 100)
				})
			})

			Convey("When a subject was never seen", func() {
				_, ok, err := log.LatestTimestamp(ctx, "ghost")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)

				_, err = log.Subject(ctx, "ghost")
				So(err, ShouldWrap, repository.ErrNotFound)
			})
		})
	})
}

func TestLatestViews(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	eachLog(t, func(t *testing.T, newLog func() repository.SnapshotLog) {
		ctx := context.Background()

		Convey("Given subjects across two categories", t, func() {
			log := newLog()
			defer log.Close()

			So(log.Append(ctx, snap("alice", "tech", base, 100)), ShouldBeNil)
			So(log.Append(ctx, snap("alice", "tech", base.Add(time.Hour), 150)), ShouldBeNil)
			So(log.Append(ctx, snap("bob", "tech", base, 200)), ShouldBeNil)
			So(log.Append(ctx, snap("cleo", "beauty", base, 300)), ShouldBeNil)

			Convey("Then LatestByCategory should return one row per subject", func() {
				latest, err := log.LatestByCategory(ctx, "tech")
				So(err, ShouldBeNil)
				So(latest, ShouldHaveLength, 2)
				So(latest[0].SubjectID, ShouldEqual, "alice")
				So(latest[0].Metrics[model.MetricFollowerCount], ShouldEqual, 150)
				So(latest[1].SubjectID, ShouldEqual, "bob")
			})

			Convey("Then LatestAll should span categories", func() {
				latest, err := log.LatestAll(ctx)
				So(err, ShouldBeNil)
				So(latest, ShouldHaveLength, 3)
			})

			Convey("Then Categories should be sorted and current", func() {
				cats, err := log.Categories(ctx)
				So(err, ShouldBeNil)
				So(cats, ShouldResemble, []string{"beauty", "tech"})
			})

			Convey("Then Counts should reflect the log", func() {
				stats, err := log.Counts(ctx)
				So(err, ShouldBeNil)
				So(stats.Subjects, ShouldEqual, 3)
				So(stats.Snapshots, ShouldEqual, 4)
				So(stats.Categories, ShouldEqual, 2)
			})

			Convey("When a newer snapshot moves a subject between categories", func() {
				So(log.Append(ctx, snap("cleo", "tech", base.Add(time.Hour), 320)), ShouldBeNil)

				Convey("Then the subject should follow its latest snapshot", func() {
					subject, err := log.Subject(ctx, "cleo")
					So(err, ShouldBeNil)
					So(subject.Category, ShouldEqual, "tech")

					beauty, err := log.LatestByCategory(ctx, "beauty")
					So(err, ShouldBeNil)
					So(beauty, ShouldBeEmpty)
				})
			})
		})
	})
}

func TestEpochAudit(t *testing.T) {
	eachLog(t, func(t *testing.T, newLog func() repository.SnapshotLog) {
		ctx := context.Background()

		Convey("Given an empty epoch history", t, func() {
			log := newLog()
			defer log.Close()

			Convey("Then the high-water mark should be zero", func() {
				high, err := log.EpochHighWater(ctx)
				So(err, ShouldBeNil)
				So(high, ShouldEqual, 0)
			})

			Convey("When epochs are recorded", func() {
				at := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
				So(log.RecordEpoch(ctx, repository.EpochRecord{
					Epoch: 7, Category: "tech", PublishedAt: at, SubjectCount: 12,
				}), ShouldBeNil)
				So(log.RecordEpoch(ctx, repository.EpochRecord{
					Epoch: 9, Category: "beauty", PublishedAt: at, SubjectCount: 3,
				}), ShouldBeNil)

				Convey("Then the high-water mark should be the largest id", func() {
					high, err := log.EpochHighWater(ctx)
					So(err, ShouldBeNil)
					So(high, ShouldEqual, 9)
				})
			})
		})
	})
}
