package epoch_test

import (
	"context"
	"testing"

	"github.com/creatorvc/scout/internal/domain/epoch"
	"github.com/creatorvc/scout/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr(v float64) *float64 { return &v }

func techView() *epoch.View {
	rows := []epoch.Row{
		{
			SubjectID: "alice", Handle: "@alice_codes", Category: "tech",
			OverallScore: 92, Followers: 1_200_000,
			SubScores: model.SubScores{ContentQuality: 95, AudienceQuality: 90, BrandAlignment: 88},
			Trend:     &model.TrendRecord{GrowthRate: 8.4, GrowthKnown: true, Momentum: model.MomentumHigh},
		},
		{
			SubjectID: "bob", Handle: "@bob_builds", Category: "tech",
			OverallScore: 75, Followers: 400_000,
			SubScores: model.SubScores{ContentQuality: 70, AudienceQuality: 80, BrandAlignment: 75},
			Trend:     &model.TrendRecord{GrowthRate: -1.2, GrowthKnown: true, Momentum: model.MomentumDeclining},
		},
		{
			SubjectID: "carol", Handle: "@carol_reviews", Category: "tech",
			OverallScore: 75, Followers: 900_000,
			SubScores: model.SubScores{ContentQuality: 80, AudienceQuality: 65, BrandAlignment: 82},
		},
		{
			SubjectID: "dave", Handle: "@dave_streams", Category: "tech",
			OverallScore: 40, Followers: 50_000,
			SubScores: model.SubScores{ContentQuality: 35, AudienceQuality: 45, BrandAlignment: 42},
			Trend:     &model.TrendRecord{GrowthRate: 2.1, GrowthKnown: true, Momentum: model.MomentumPositive},
		},
	}
	p := epoch.New()
	view, err := p.Publish(context.Background(), "tech", rows)
	So(err, ShouldBeNil)
	return view
}

func ids(rows []epoch.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.SubjectID
	}
	return out
}

func TestEvaluateDefaults(t *testing.T) {
	Convey("Given a published tech view", t, func() {
		v := techView()

		Convey("When evaluating the zero query", func() {
			rows, total, err := v.Evaluate(epoch.Query{})

			Convey("Then every row should return, best first, ties by subject id", func() {
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 4)
				So(ids(rows), ShouldResemble, []string{"alice", "bob", "carol", "dave"})
			})
		})

		Convey("When evaluating the same query twice", func() {
			a, _, _ := v.Evaluate(epoch.Query{})
			b, _, _ := v.Evaluate(epoch.Query{})

			Convey("Then the ordering should be deterministic", func() {
				So(ids(a), ShouldResemble, ids(b))
			})
		})
	})
}

func TestEvaluateFilters(t *testing.T) {
	Convey("Given a published tech view", t, func() {
		v := techView()

		Convey("When filtering by free text", func() {
			rows, total, err := v.Evaluate(epoch.Query{Text: "ALICE"})

			Convey("Then handles should match case-insensitively", func() {
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 1)
				So(rows[0].SubjectID, ShouldEqual, "alice")
			})
		})

		Convey("When filtering by category text", func() {
			_, total, err := v.Evaluate(epoch.Query{Text: "tech"})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 4)
		})

		Convey("When combining a text and a range filter", func() {
			rows, total, err := v.Evaluate(epoch.Query{
				Text: "tech",
				Ranges: []epoch.RangeFilter{
					{Field: epoch.FieldFollowers, Min: ptr(500_000)},
					{Field: epoch.FieldOverallScore, Max: ptr(80)},
				},
			})

			Convey("Then all conditions should apply conjunctively", func() {
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 1)
				So(rows[0].SubjectID, ShouldEqual, "carol")
			})
		})

		Convey("When a range bounds growth rate", func() {
			rows, total, err := v.Evaluate(epoch.Query{
				Ranges: []epoch.RangeFilter{{Field: epoch.FieldGrowthRate, Min: ptr(0)}},
			})

			Convey("Then rows without a known growth rate should be excluded", func() {
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 2)
				So(ids(rows), ShouldResemble, []string{"alice", "dave"})
			})
		})

		Convey("When a filter names an unknown field", func() {
			_, _, err := v.Evaluate(epoch.Query{
				Ranges: []epoch.RangeFilter{{Field: "charisma", Min: ptr(1)}},
			})

			Convey("Then the query should fail", func() {
				So(err, ShouldWrap, epoch.ErrUnknownField)
			})
		})
	})
}

func TestEvaluateSorting(t *testing.T) {
	Convey("Given a published tech view", t, func() {
		v := techView()

		Convey("When sorting by followers ascending", func() {
			rows, _, err := v.Evaluate(epoch.Query{SortField: epoch.FieldFollowers})

			So(err, ShouldBeNil)
			So(ids(rows), ShouldResemble, []string{"dave", "bob", "carol", "alice"})
		})

		Convey("When sorting by growth rate descending", func() {
			rows, _, err := v.Evaluate(epoch.Query{
				SortField:  epoch.FieldGrowthRate,
				Descending: true,
			})

			Convey("Then rows without a growth rate should sort last", func() {
				So(err, ShouldBeNil)
				So(ids(rows), ShouldResemble, []string{"alice", "dave", "bob", "carol"})
			})
		})

		Convey("When sorting on an unknown field", func() {
			_, _, err := v.Evaluate(epoch.Query{SortField: "stardom"})
			So(err, ShouldWrap, epoch.ErrUnknownField)
		})
	})
}

func TestEvaluatePagination(t *testing.T) {
	Convey("Given a published tech view", t, func() {
		v := techView()

		Convey("When paging through results", func() {
			first, total, err := v.Evaluate(epoch.Query{Limit: 2})
			So(err, ShouldBeNil)
			second, _, err := v.Evaluate(epoch.Query{Offset: 2, Limit: 2})
			So(err, ShouldBeNil)

			Convey("Then pages should tile the full ordering", func() {
				So(total, ShouldEqual, 4)
				So(ids(first), ShouldResemble, []string{"alice", "bob"})
				So(ids(second), ShouldResemble, []string{"carol", "dave"})
			})
		})

		Convey("When the offset runs past the result set", func() {
			rows, total, err := v.Evaluate(epoch.Query{Offset: 10})

			Convey("Then the page should be empty but the total intact", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
				So(total, ShouldEqual, 4)
			})
		})
	})
}
