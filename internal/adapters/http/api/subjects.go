package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/creatorvc/scout/internal/adapters/repository"
	"github.com/creatorvc/scout/internal/domain/epoch"
	"github.com/creatorvc/scout/internal/domain/model"
)

// SubjectsHandler handles ranked listing and subject detail requests.
type SubjectsHandler struct {
	deps        Dependencies
	maxPageSize int
}

// NewSubjectsHandler creates a new subjects handler.
func NewSubjectsHandler(deps Dependencies, maxPageSize int) *SubjectsHandler {
	return &SubjectsHandler{deps: deps, maxPageSize: maxPageSize}
}

// listResponse is the wire shape for GET /subjects.
type listResponse struct {
	Category    string    `json:"category"`
	Epoch       uint64    `json:"epoch"`
	PublishedAt time.Time `json:"published_at"`
	Total       int       `json:"total"`
	Offset      int       `json:"offset"`
	Limit       int       `json:"limit"`
	Results     []rowJSON `json:"results"`
}

// HandleListSubjects handles GET /subjects requests.
//
// Query parameters: category (required), q (free text), sort, order,
// offset, limit, plus min_<field>/max_<field> numeric bounds for any
// sortable field.
func (h *SubjectsHandler) HandleListSubjects(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_subjects"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	params := r.URL.Query()
	category := params.Get("category")
	if category == "" {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("missing category")))
		return
	}

	q, err := h.parseQuery(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	listing, err := h.deps.ListSubjects(r.Context(), category, q)
	if err != nil {
		switch {
		case errors.Is(err, epoch.ErrNoEpoch):
			writeError(w, http.StatusNotFound, "no_epoch", err)
		case errors.Is(err, epoch.ErrUnknownField):
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}

	results := make([]rowJSON, len(listing.Rows))
	for i, row := range listing.Rows {
		results[i] = toRowJSON(row)
	}
	writeJSON(w, http.StatusOK, listResponse{
		Category:    listing.Category,
		Epoch:       listing.Epoch,
		PublishedAt: listing.PublishedAt,
		Total:       listing.Total,
		Offset:      q.Offset,
		Limit:       q.Limit,
		Results:     results,
	})
}

// parseQuery translates URL parameters into an epoch query.
func (h *SubjectsHandler) parseQuery(params url.Values) (epoch.Query, error) {
	q := epoch.Query{
		Text:  params.Get("q"),
		Limit: h.maxPageSize,
	}

	if sortField := params.Get("sort"); sortField != "" {
		q.SortField = sortField
	}
	switch order := params.Get("order"); order {
	case "", "asc":
	case "desc":
		q.Descending = true
	default:
		return epoch.Query{}, fmt.Errorf("invalid order %q; use asc or desc", order)
	}

	if raw := params.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return epoch.Query{}, errors.New("invalid offset")
		}
		q.Offset = offset
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return epoch.Query{}, errors.New("invalid limit")
		}
		if limit > h.maxPageSize {
			return epoch.Query{}, fmt.Errorf("limit exceeds maximum of %d", h.maxPageSize)
		}
		q.Limit = limit
	}

	for key, values := range params {
		bound, field, ok := rangeParam(key)
		if !ok || len(values) == 0 {
			continue
		}
		val, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			return epoch.Query{}, fmt.Errorf("invalid %s", key)
		}
		filter := epoch.RangeFilter{Field: field}
		if bound == "min" {
			filter.Min = &val
		} else {
			filter.Max = &val
		}
		q.Ranges = append(q.Ranges, filter)
	}

	return q, nil
}

// rangeParam splits a min_<field> or max_<field> parameter name.
func rangeParam(key string) (bound, field string, ok bool) {
	switch {
	case strings.HasPrefix(key, "min_"):
		return "min", strings.TrimPrefix(key, "min_"), true
	case strings.HasPrefix(key, "max_"):
		return "max", strings.TrimPrefix(key, "max_"), true
	}
	return "", "", false
}

// historyEntryJSON is one snapshot in a subject's history.
type historyEntryJSON struct {
	CollectedAt time.Time          `json:"collected_at"`
	RawMetrics  map[string]float64 `json:"raw_metrics"`
}

// subjectResponse is the wire shape for GET /subjects/{id}.
type subjectResponse struct {
	SubjectID string             `json:"subject_id"`
	Handle    string             `json:"handle"`
	Category  string             `json:"category"`
	Epoch     uint64             `json:"epoch,omitempty"`
	Score     *rowJSON           `json:"score,omitempty"`
	History   []historyEntryJSON `json:"history"`
}

// HandleGetSubject handles GET /subjects/{subject_id} requests.
func (h *SubjectsHandler) HandleGetSubject(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_subject"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	subjectID := strings.TrimPrefix(r.URL.Path, "/subjects/")
	if subjectID == "" || strings.Contains(subjectID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	detail, err := h.deps.GetSubject(r.Context(), subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	resp := subjectResponse{
		SubjectID: detail.Subject.ID,
		Handle:    detail.Subject.Handle,
		Category:  detail.Subject.Category,
		Epoch:     detail.Epoch,
		History:   toHistoryJSON(detail.History),
	}
	if detail.Row != nil {
		row := toRowJSON(*detail.Row)
		resp.Score = &row
	}
	writeJSON(w, http.StatusOK, resp)
}

func toHistoryJSON(history []model.Snapshot) []historyEntryJSON {
	out := make([]historyEntryJSON, len(history))
	for i, snap := range history {
		out[i] = historyEntryJSON{
			CollectedAt: snap.CollectedAt,
			RawMetrics:  snap.Metrics,
		}
	}
	return out
}
