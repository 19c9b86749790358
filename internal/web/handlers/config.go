package handlers

import (
	"net/http"

	"github.com/kozaktomas/plant-doctor/internal/config"
	"github.com/kozaktomas/plant-doctor/internal/database"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the effective clustering configuration
type ConfigResponse struct {
	SourceDir           string  `json:"source_dir"`
	DestDir             string  `json:"dest_dir"`
	Eps                 float64 `json:"eps"`
	MinSamples          int     `json:"min_samples"`
	Hash                string  `json:"hash"`
	Workers             int     `json:"workers"`
	SharedNoise         bool    `json:"shared_noise"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	MaxImageSize        int     `json:"max_image_size"`
	HistoryEnabled      bool    `json:"history_enabled"`
}

// Get returns the effective configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	c := h.config.Cluster
	respondJSON(w, http.StatusOK, ConfigResponse{
		SourceDir:           c.SourceDir,
		DestDir:             c.DestDir,
		Eps:                 c.Eps,
		MinSamples:          c.MinSamples,
		Hash:                c.Hash,
		Workers:             c.Workers,
		SharedNoise:         c.SharedNoise,
		ConfidenceThreshold: h.config.Intake.ConfidenceThreshold,
		MaxImageSize:        h.config.Intake.MaxImageSize,
		HistoryEnabled:      database.IsInitialized(),
	})
}
