package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kozaktomas/plant-doctor/internal/materialize"
)

// ClustersHandler exposes the current destination tree for review
type ClustersHandler struct {
	destDir string
	logger  *slog.Logger
}

// NewClustersHandler creates a new clusters handler
func NewClustersHandler(destDir string, logger *slog.Logger) *ClustersHandler {
	return &ClustersHandler{
		destDir: destDir,
		logger:  logger,
	}
}

// ClusterInfo describes one cluster folder
type ClusterInfo struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Files []string `json:"files"`
}

// ClustersResponse lists the clusters of the last run
type ClustersResponse struct {
	Clusters []ClusterInfo `json:"clusters"`
	Total    int           `json:"total"`
}

// List returns the clusters currently materialized in the destination directory
func (h *ClustersHandler) List(w http.ResponseWriter, r *http.Request) {
	tree, err := materialize.List(h.destDir)
	if err != nil {
		h.logger.Error("failed to read clusters", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read clusters")
		return
	}

	summary := make(materialize.Summary, len(tree))
	for name, files := range tree {
		summary[name] = len(files)
	}

	response := ClustersResponse{
		Clusters: make([]ClusterInfo, 0, len(tree)),
		Total:    summary.Total(),
	}
	for _, name := range summary.Names() {
		response.Clusters = append(response.Clusters, ClusterInfo{
			Name:  name,
			Count: summary[name],
			Files: tree[name],
		})
	}

	respondJSON(w, http.StatusOK, response)
}
