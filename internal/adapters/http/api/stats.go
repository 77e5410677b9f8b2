package api

import (
	"net/http"
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	deps Dependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps Dependencies) *StatsHandler {
	return &StatsHandler{deps: deps}
}

type statsResponse struct {
	Started       bool              `json:"started"`
	Subjects      int               `json:"subjects"`
	Snapshots     int               `json:"snapshots"`
	Categories    int               `json:"categories"`
	QueueDepth    int               `json:"queue_depth"`
	Workers       int               `json:"workers"`
	DedupeEntries int64             `json:"dedupe_entries"`
	Epochs        map[string]uint64 `json:"epochs"`
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.stats"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	stats, err := h.deps.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Started:       stats.Started,
		Subjects:      stats.Subjects,
		Snapshots:     stats.Snapshots,
		Categories:    stats.Categories,
		QueueDepth:    stats.QueueDepth,
		Workers:       stats.Workers,
		DedupeEntries: stats.DedupeEntries,
		Epochs:        stats.Epochs,
	})
}
