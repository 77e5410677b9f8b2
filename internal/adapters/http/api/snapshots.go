package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/creatorvc/scout/internal/app"
	"github.com/creatorvc/scout/internal/domain/model"
)

// SnapshotsHandler handles snapshot ingestion requests.
type SnapshotsHandler struct {
	deps Dependencies
}

// NewSnapshotsHandler creates a new snapshots handler.
func NewSnapshotsHandler(deps Dependencies) *SnapshotsHandler {
	return &SnapshotsHandler{deps: deps}
}

// HandlePostSnapshot handles POST /snapshots requests.
func (h *SnapshotsHandler) HandlePostSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_snapshot"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	collectedAt, err := parseCollectedAt(req.CollectedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.SubmitSnapshot(r.Context(), model.Snapshot{
		SubjectID:   req.SubjectID,
		Handle:      req.Handle,
		Category:    req.Category,
		CollectedAt: collectedAt,
		Metrics:     model.RawMetrics(req.RawMetrics),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	switch res.Status {
	case service.StatusAccepted:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: res.Status})
	case service.StatusDuplicate:
		writeJSON(w, http.StatusOK, ackResponse{Status: res.Status})
	default:
		writeJSON(w, http.StatusUnprocessableEntity, ackResponse{Status: res.Status, Reason: res.Reason})
	}
}

func parseCollectedAt(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("missing collected_at")
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid collected_at; must be RFC3339")
	}
	return at.UTC(), nil
}
