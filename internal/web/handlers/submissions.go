package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kozaktomas/plant-doctor/internal/constants"
	"github.com/kozaktomas/plant-doctor/internal/intake"
)

// SubmissionsHandler accepts classified images into the comparison source directory
type SubmissionsHandler struct {
	intake *intake.Intake
	logger *slog.Logger
}

// NewSubmissionsHandler creates a new submissions handler
func NewSubmissionsHandler(in *intake.Intake, logger *slog.Logger) *SubmissionsHandler {
	return &SubmissionsHandler{
		intake: in,
		logger: logger,
	}
}

// Submit handles a multipart upload with fields file, label and confidence.
// Low-confidence images are stored for the next comparison run (201); confident ones are
// acknowledged without being stored (200).
func (h *SubmissionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	confidence, err := strconv.ParseFloat(r.FormValue("confidence"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "confidence must be a number")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	decision, err := h.intake.Accept(intake.Submission{
		Filename:   header.Filename,
		Label:      r.FormValue("label"),
		Confidence: confidence,
		Data:       data,
	})
	switch {
	case errors.Is(err, intake.ErrInvalidConfidence),
		errors.Is(err, intake.ErrEmptyImage),
		errors.Is(err, intake.ErrInvalidImage):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to store submission", "file", sanitizeForLog(header.Filename), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to store submission")
		return
	}

	status := http.StatusOK
	if decision.Queued {
		status = http.StatusCreated
	}
	respondJSON(w, status, decision)
}
