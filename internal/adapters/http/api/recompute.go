package api

import "net/http"

// RecomputeHandler handles on-demand recomputation requests.
type RecomputeHandler struct {
	deps Dependencies
}

// NewRecomputeHandler creates a new recompute handler.
func NewRecomputeHandler(deps Dependencies) *RecomputeHandler {
	return &RecomputeHandler{deps: deps}
}

type recomputeResponse struct {
	CategoriesTriggered int `json:"categories_triggered"`
}

// HandleRecompute handles POST /recompute requests, marking every
// known category dirty.
func (h *RecomputeHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.recompute"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	count, err := h.deps.RecomputeAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, recomputeResponse{CategoriesTriggered: count})
}
