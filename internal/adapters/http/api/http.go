// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	service "github.com/creatorvc/scout/internal/app"
	"github.com/creatorvc/scout/internal/domain/epoch"
	"github.com/creatorvc/scout/internal/domain/model"
)

// defaultMaxPageSize caps the page size accepted on list queries.
const defaultMaxPageSize = 100

// Dependencies required by HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	SubmitSnapshot(ctx context.Context, snap model.Snapshot) (service.SubmitResult, error)
	ListSubjects(ctx context.Context, category string, q epoch.Query) (service.Listing, error)
	GetSubject(ctx context.Context, subjectID string) (service.SubjectDetail, error)
	RecomputeAll(ctx context.Context) (int, error)
	GetStats(ctx context.Context) (service.Stats, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	snapshotsHandler *SnapshotsHandler
	subjectsHandler  *SubjectsHandler
	recomputeHandler *RecomputeHandler
	statsHandler     *StatsHandler
	healthHandler    *HealthHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithMaxPageSize caps the limit accepted by list queries.
func WithMaxPageSize(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.subjectsHandler.maxPageSize = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	s := &Server{
		snapshotsHandler: NewSnapshotsHandler(deps),
		subjectsHandler:  NewSubjectsHandler(deps, defaultMaxPageSize),
		recomputeHandler: NewRecomputeHandler(deps),
		statsHandler:     NewStatsHandler(deps),
		healthHandler:    NewHealthHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/snapshots", MetricsMiddleware(s.snapshotsHandler.HandlePostSnapshot, "snapshots"))
	mux.HandleFunc("/recompute", MetricsMiddleware(s.recomputeHandler.HandleRecompute, "recompute"))
	mux.HandleFunc("/subjects", MetricsMiddleware(s.subjectsHandler.HandleListSubjects, "subjects"))
	mux.HandleFunc("/subjects/", MetricsMiddleware(s.subjectsHandler.HandleGetSubject, "subject"))
}

// snapshotRequest mirrors the OpenAPI schema for POST /snapshots.
type snapshotRequest struct {
	SubjectID   string             `json:"subject_id"`
	Handle      string             `json:"handle"`
	Category    string             `json:"category"`
	CollectedAt string             `json:"collected_at"`
	RawMetrics  map[string]float64 `json:"raw_metrics"`
}

type ackResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// subScoresJSON is the wire shape of a subject's sub-scores.
type subScoresJSON struct {
	ContentQuality  float64 `json:"content_quality"`
	AudienceQuality float64 `json:"audience_quality"`
	BrandAlignment  float64 `json:"brand_alignment"`
	LowConfidence   bool    `json:"low_confidence"`
}

// trendJSON is the wire shape of a trend record. GrowthRate is null
// when the rate could not be derived.
type trendJSON struct {
	GrowthRate      *float64 `json:"growth_rate"`
	Momentum        string   `json:"momentum,omitempty"`
	Confidence      string   `json:"confidence"`
	OutlierDampened bool     `json:"outlier_dampened"`
}

// rowJSON is one published score row.
type rowJSON struct {
	SubjectID    string        `json:"subject_id"`
	Handle       string        `json:"handle"`
	Category     string        `json:"category"`
	Rank         int           `json:"rank"`
	OverallScore float64       `json:"overall_score"`
	SubScores    subScoresJSON `json:"sub_scores"`
	Trend        *trendJSON    `json:"trend,omitempty"`
	Followers    float64       `json:"followers"`
	ComputedAt   time.Time     `json:"computed_at"`
}

func toRowJSON(row epoch.Row) rowJSON {
	out := rowJSON{
		SubjectID:    row.SubjectID,
		Handle:       row.Handle,
		Category:     row.Category,
		Rank:         row.Rank,
		OverallScore: row.OverallScore,
		SubScores: subScoresJSON{
			ContentQuality:  row.SubScores.ContentQuality,
			AudienceQuality: row.SubScores.AudienceQuality,
			BrandAlignment:  row.SubScores.BrandAlignment,
			LowConfidence:   row.SubScores.LowConfidence,
		},
		Followers:  row.Followers,
		ComputedAt: row.ComputedAt,
	}
	if row.Trend != nil {
		t := &trendJSON{
			Confidence:      string(row.Trend.Confidence),
			Momentum:        string(row.Trend.Momentum),
			OutlierDampened: row.Trend.OutlierDampened,
		}
		if row.Trend.GrowthKnown {
			rate := row.Trend.GrowthRate
			t.GrowthRate = &rate
		}
		out.Trend = t
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
