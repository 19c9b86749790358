package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/plant-doctor/internal/constants"
	"github.com/kozaktomas/plant-doctor/internal/database"
)

const maxRunListLimit = 100

// RunsHandler serves the comparison run history
type RunsHandler struct {
	logger *slog.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(logger *slog.Logger) *RunsHandler {
	return &RunsHandler{logger: logger}
}

// RunsResponse is a page of stored runs
type RunsResponse struct {
	Runs  []database.RunRecord `json:"runs"`
	Count int                  `json:"count"`
}

// List returns the most recent runs
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	reader, err := database.GetRunReader(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}

	limit := constants.DefaultRunListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunListLimit)
	}

	runs, err := reader.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	count, err := reader.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count runs", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to count runs")
		return
	}
	if runs == nil {
		runs = []database.RunRecord{}
	}

	respondJSON(w, http.StatusOK, RunsResponse{Runs: runs, Count: count})
}

// Get returns a single run
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	reader, err := database.GetRunReader(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := reader.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get run", "run_id", sanitizeForLog(id), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}

	respondJSON(w, http.StatusOK, run)
}
