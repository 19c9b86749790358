package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/plant-doctor/internal/config"
	"github.com/kozaktomas/plant-doctor/internal/database/mock"
)

func TestNewConfigHandler(t *testing.T) {
	cfg := &config.Config{}

	handler := NewConfigHandler(cfg)

	if handler.config != cfg {
		t.Error("expected handler to hold reference to config")
	}
}

func TestConfigHandler_Get(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cluster.Eps = 0.3
	cfg.Cluster.Hash = "dhash"
	handler := NewConfigHandler(cfg)

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/config", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var result ConfigResponse
	parseJSONResponse(t, recorder, &result)

	if result.Eps != 0.3 {
		t.Errorf("expected eps 0.3, got %v", result.Eps)
	}
	if result.MinSamples != 1 {
		t.Errorf("expected min_samples 1, got %d", result.MinSamples)
	}
	if result.Hash != "dhash" {
		t.Errorf("expected hash 'dhash', got '%s'", result.Hash)
	}
	if result.SourceDir != cfg.Cluster.SourceDir {
		t.Errorf("expected source dir '%s', got '%s'", cfg.Cluster.SourceDir, result.SourceDir)
	}
	if result.ConfidenceThreshold != 0.7 {
		t.Errorf("expected confidence threshold 0.7, got %v", result.ConfidenceThreshold)
	}
	if result.HistoryEnabled {
		t.Error("expected history to be disabled without a store")
	}
}

func TestConfigHandler_Get_HistoryEnabled(t *testing.T) {
	registerStore(t, mock.NewMockRunStore())
	handler := NewConfigHandler(testConfig(t))

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/config", nil))

	var result ConfigResponse
	parseJSONResponse(t, recorder, &result)
	if !result.HistoryEnabled {
		t.Error("expected history to be enabled")
	}
}
