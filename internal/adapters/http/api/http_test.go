package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/creatorvc/scout/internal/adapters/http/api"
	"github.com/creatorvc/scout/internal/adapters/repository"
	service "github.com/creatorvc/scout/internal/app"
	"github.com/creatorvc/scout/internal/domain/epoch"
	"github.com/creatorvc/scout/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// stubDeps is a deterministic Dependencies implementation for handler
// tests; the service integration is covered in the app package.
type stubDeps struct {
	submitted []model.Snapshot
	submitRes service.SubmitResult
	submitErr error

	listing service.Listing
	listErr error
	lastQ   epoch.Query

	detail    service.SubjectDetail
	detailErr error

	recomputed int
	stats      service.Stats
}

func (s *stubDeps) SubmitSnapshot(_ context.Context, snap model.Snapshot) (service.SubmitResult, error) {
	s.submitted = append(s.submitted, snap)
	return s.submitRes, s.submitErr
}

func (s *stubDeps) ListSubjects(_ context.Context, category string, q epoch.Query) (service.Listing, error) {
	s.lastQ = q
	if s.listErr != nil {
		return service.Listing{}, s.listErr
	}
	listing := s.listing
	listing.Category = category
	return listing, nil
}

func (s *stubDeps) GetSubject(_ context.Context, _ string) (service.SubjectDetail, error) {
	return s.detail, s.detailErr
}

func (s *stubDeps) RecomputeAll(_ context.Context) (int, error) {
	return s.recomputed, nil
}

func (s *stubDeps) GetStats(_ context.Context) (service.Stats, error) {
	return s.stats, nil
}

func newTestServer(deps *stubDeps, opts ...api.ServerOption) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestPostSnapshot(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{submitRes: service.SubmitResult{Status: service.StatusAccepted}}
		srv := newTestServer(deps)
		defer srv.Close()

		body := `{
			"subject_id": "creator-1",
			"handle": "@creator",
			"category": "tech",
			"collected_at": "2026-08-01T12:00:00Z",
			"raw_metrics": {"follower_count": 125000, "engagement_rate": 0.047}
		}`

		Convey("When a valid snapshot posts", func() {
			resp, decoded := postJSON(t, srv.URL+"/snapshots", body)

			Convey("Then it should be accepted with 202", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				So(decoded["status"], ShouldEqual, "accepted")
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].Metrics[model.MetricFollowerCount], ShouldEqual, 125000)
			})
		})

		Convey("When the same snapshot is a duplicate", func() {
			deps.submitRes = service.SubmitResult{Status: service.StatusDuplicate}
			resp, decoded := postJSON(t, srv.URL+"/snapshots", body)

			Convey("Then it should be a 200 no-op", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decoded["status"], ShouldEqual, "duplicate")
			})
		})

		Convey("When validation rejects the snapshot", func() {
			deps.submitRes = service.SubmitResult{Status: service.StatusRejected, Reason: "negative_count"}
			resp, decoded := postJSON(t, srv.URL+"/snapshots", body)

			Convey("Then it should return 422 with the reason", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusUnprocessableEntity)
				So(decoded["status"], ShouldEqual, "rejected")
				So(decoded["reason"], ShouldEqual, "negative_count")
			})
		})

		Convey("When the body is not JSON", func() {
			resp, decoded := postJSON(t, srv.URL+"/snapshots", "{not json")

			Convey("Then it should return 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(decoded["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When collected_at is not RFC3339", func() {
			resp, _ := postJSON(t, srv.URL+"/snapshots", `{
				"subject_id": "creator-1", "handle": "@creator",
				"category": "tech", "collected_at": "yesterday",
				"raw_metrics": {"follower_count": 1}
			}`)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the method is GET", func() {
			resp, err := http.Get(srv.URL + "/snapshots")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestListSubjects(t *testing.T) {
	publishedAt := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	growth := 8.4

	Convey("Given a published listing", t, func() {
		deps := &stubDeps{
			listing: service.Listing{
				Epoch:       42,
				PublishedAt: publishedAt,
				Total:       2,
				Rows: []epoch.Row{
					{
						SubjectID: "alice", Handle: "@alice", Category: "tech",
						Rank: 1, OverallScore: 92.5, Followers: 1_200_000,
						SubScores: model.SubScores{ContentQuality: 95},
						Trend: &model.TrendRecord{
							GrowthRate: growth, GrowthKnown: true,
							Momentum: model.MomentumHigh, Confidence: model.ConfidenceNormal,
						},
					},
					{
						SubjectID: "bob", Handle: "@bob", Category: "tech",
						Rank: 2, OverallScore: 60,
					},
				},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When listing a category", func() {
			resp, decoded := getJSON(t, srv.URL+"/subjects?category=tech")

			Convey("Then rows should serialize with epoch metadata", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decoded["epoch"], ShouldEqual, 42)
				So(decoded["total"], ShouldEqual, 2)
				results := decoded["results"].([]any)
				So(results, ShouldHaveLength, 2)
				first := results[0].(map[string]any)
				So(first["subject_id"], ShouldEqual, "alice")
				So(first["rank"], ShouldEqual, 1)
				trend := first["trend"].(map[string]any)
				So(trend["growth_rate"], ShouldEqual, growth)
				So(trend["momentum"], ShouldEqual, "high")
				second := results[1].(map[string]any)
				So(second["trend"], ShouldBeNil)
			})
		})

		Convey("When passing filters and sort parameters", func() {
			resp, _ := getJSON(t, srv.URL+"/subjects?category=tech&q=ali&sort=followers&order=desc&min_followers=1000&max_overall_score=95&offset=0&limit=10")

			Convey("Then they should translate into the evaluated query", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.lastQ.Text, ShouldEqual, "ali")
				So(deps.lastQ.SortField, ShouldEqual, "followers")
				So(deps.lastQ.Descending, ShouldBeTrue)
				So(deps.lastQ.Limit, ShouldEqual, 10)
				So(deps.lastQ.Ranges, ShouldHaveLength, 2)
			})
		})

		Convey("When the category is missing", func() {
			resp, _ := getJSON(t, srv.URL+"/subjects")
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the category has no epoch yet", func() {
			deps.listErr = fmt.Errorf("%w: gaming", epoch.ErrNoEpoch)
			resp, decoded := getJSON(t, srv.URL+"/subjects?category=gaming")

			Convey("Then it should return 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(decoded["code"], ShouldEqual, "no_epoch")
			})
		})

		Convey("When the sort field is unknown", func() {
			deps.listErr = fmt.Errorf("%w: charisma", epoch.ErrUnknownField)
			resp, _ := getJSON(t, srv.URL+"/subjects?category=tech&sort=charisma")
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit exceeds the maximum", func() {
			srv2 := newTestServer(deps, api.WithMaxPageSize(5))
			defer srv2.Close()
			resp, _ := getJSON(t, srv2.URL+"/subjects?category=tech&limit=50")
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetSubject(t *testing.T) {
	Convey("Given a subject with history", t, func() {
		at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		row := epoch.Row{
			SubjectID: "alice", Handle: "@alice", Category: "tech",
			Rank: 1, OverallScore: 92.5,
		}
		deps := &stubDeps{
			detail: service.SubjectDetail{
				Subject: model.Subject{ID: "alice", Handle: "@alice", Category: "tech"},
				Row:     &row,
				Epoch:   7,
				History: []model.Snapshot{
					{SubjectID: "alice", CollectedAt: at, Metrics: model.RawMetrics{model.MetricFollowerCount: 100}},
					{SubjectID: "alice", CollectedAt: at.Add(time.Hour), Metrics: model.RawMetrics{model.MetricFollowerCount: 110}},
				},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When fetching the subject", func() {
			resp, decoded := getJSON(t, srv.URL+"/subjects/alice")

			Convey("Then the response should carry score and history", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decoded["subject_id"], ShouldEqual, "alice")
				So(decoded["epoch"], ShouldEqual, 7)
				score := decoded["score"].(map[string]any)
				So(score["overall_score"], ShouldEqual, 92.5)
				So(decoded["history"].([]any), ShouldHaveLength, 2)
			})
		})

		Convey("When the subject is unknown", func() {
			deps.detailErr = fmt.Errorf("ghost: %w", repository.ErrNotFound)
			resp, decoded := getJSON(t, srv.URL+"/subjects/ghost")

			Convey("Then it should return 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(decoded["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When the path carries extra segments", func() {
			resp, _ := getJSON(t, srv.URL+"/subjects/alice/extra")
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRecomputeAndStats(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{
			recomputed: 3,
			stats: service.Stats{
				Started: true, Subjects: 10, Snapshots: 40,
				Categories: 3, Workers: 4,
				Epochs: map[string]uint64{"tech": 9},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When forcing a recompute", func() {
			resp, decoded := postJSON(t, srv.URL+"/recompute", "")

			Convey("Then every category should be triggered", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				So(decoded["categories_triggered"], ShouldEqual, 3)
			})
		})

		Convey("When reading stats", func() {
			resp, decoded := getJSON(t, srv.URL+"/stats")

			Convey("Then counters should serialize", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decoded["subjects"], ShouldEqual, 10)
				So(decoded["epochs"].(map[string]any)["tech"], ShouldEqual, 9)
			})
		})

		Convey("When checking health", func() {
			resp, decoded := getJSON(t, srv.URL+"/healthz")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decoded["status"], ShouldEqual, "ok")
		})

		Convey("When scraping metrics", func() {
			resp, err := http.Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}
