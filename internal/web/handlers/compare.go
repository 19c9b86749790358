package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/plant-doctor/internal/database"
	"github.com/kozaktomas/plant-doctor/internal/pipeline"
)

// CompareHandler runs the clustering pipeline on demand
type CompareHandler struct {
	comparator *pipeline.Comparator
	logger     *slog.Logger
}

// NewCompareHandler creates a new compare handler
func NewCompareHandler(comparator *pipeline.Comparator, logger *slog.Logger) *CompareHandler {
	return &CompareHandler{
		comparator: comparator,
		logger:     logger,
	}
}

// Compare rebuilds the cluster tree from the source directory and returns the summary.
// Only one run may be active; concurrent requests get 409. A run always completes,
// even when the client goes away, so the tree is never left half-built.
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	result, err := h.comparator.TryRun(ctx)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("comparison failed", "error", err)
		respondError(w, http.StatusInternalServerError, "comparison failed: "+err.Error())
		return
	}

	if writer, err := database.GetRunWriter(ctx); err == nil {
		if err := writer.Save(ctx, database.FromResult(result)); err != nil {
			h.logger.Error("failed to save run history", "run_id", result.RunID, "error", err)
		}
	}

	respondJSON(w, http.StatusOK, result)
}
