package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/plant-doctor/internal/intake"
	"github.com/kozaktomas/plant-doctor/internal/logging"
)

func newSubmissionsHandler(t *testing.T) (*SubmissionsHandler, string) {
	t.Helper()
	cfg := testConfig(t)
	in := intake.New(cfg.Cluster.SourceDir, cfg.Intake, logging.Discard())
	return NewSubmissionsHandler(in, logging.Discard()), cfg.Cluster.SourceDir
}

func TestSubmissionsHandler_Submit_Queued(t *testing.T) {
	handler, source := newSubmissionsHandler(t)

	req := multipartRequest(t, "/api/v1/submissions", map[string]string{
		"label":      "Tomato Early_blight",
		"confidence": "0.35",
	}, "leaf.png", pngImage(t, 90))
	recorder := httptest.NewRecorder()

	handler.Submit(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)

	var decision intake.Decision
	parseJSONResponse(t, recorder, &decision)
	if !decision.Queued {
		t.Fatal("expected submission to be queued")
	}
	if decision.Label != "tomato-early-blight" {
		t.Errorf("expected normalized label, got %q", decision.Label)
	}
	if _, err := os.Stat(filepath.Join(source, decision.StoredAs)); err != nil {
		t.Errorf("expected stored file: %v", err)
	}
}

func TestSubmissionsHandler_Submit_Confident(t *testing.T) {
	handler, source := newSubmissionsHandler(t)

	req := multipartRequest(t, "/api/v1/submissions", map[string]string{
		"label":      "Healthy",
		"confidence": "0.93",
	}, "leaf.png", pngImage(t, 90))
	recorder := httptest.NewRecorder()

	handler.Submit(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	entries, err := os.ReadDir(source)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("confident submissions must not be stored, found %d files", len(entries))
	}
}

func TestSubmissionsHandler_Submit_BadRequests(t *testing.T) {
	handler, _ := newSubmissionsHandler(t)

	tests := []struct {
		name          string
		fields        map[string]string
		filename      string
		data          []byte
		expectedError string
	}{
		{"missing confidence", map[string]string{"label": "x"}, "leaf.png", []byte("x"), "confidence must be a number"},
		{"missing file", map[string]string{"confidence": "0.1"}, "", nil, "file is required"},
		{"confidence out of range", map[string]string{"confidence": "1.5"}, "leaf.png", []byte("x"), ""},
		{"nan confidence", map[string]string{"confidence": "NaN"}, "leaf.png", pngImage(t, 90), ""},
		{"not an image", map[string]string{"confidence": "0.1"}, "leaf.png", []byte("not an image"), ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.Submit(recorder, multipartRequest(t, "/api/v1/submissions", tc.fields, tc.filename, tc.data))

			assertStatusCode(t, recorder, http.StatusBadRequest)
			if tc.expectedError != "" {
				assertJSONError(t, recorder, tc.expectedError)
			}
		})
	}
}

func TestSubmissionsHandler_Submit_NotMultipart(t *testing.T) {
	handler, _ := newSubmissionsHandler(t)
	recorder := httptest.NewRecorder()

	handler.Submit(recorder, httptest.NewRequest("POST", "/api/v1/submissions", nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "failed to parse multipart form")
}
