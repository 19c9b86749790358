// Package intake stores classifier submissions whose confidence is too low to trust,
// so the next comparison run can cluster them for review.
package intake

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kozaktomas/plant-doctor/internal/config"
	"github.com/kozaktomas/plant-doctor/internal/fingerprint"
)

var (
	// ErrInvalidConfidence is returned for a confidence outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
	// ErrEmptyImage is returned for a submission without image data.
	ErrEmptyImage = errors.New("image data is empty")
	// ErrInvalidImage is returned when the submitted data cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")
)

// Submission is an image together with the prediction an external classifier made for it.
type Submission struct {
	Filename   string
	Label      string
	Confidence float64
	Data       []byte
}

// Decision tells the caller what happened to a submission.
type Decision struct {
	Queued      bool    `json:"queued"`
	StoredAs    string  `json:"stored_as,omitempty"`
	Fingerprint string  `json:"fingerprint,omitempty"`
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	Threshold   float64 `json:"threshold"`
}

// Intake writes low-confidence submissions into the comparison source directory.
type Intake struct {
	sourceDir string
	threshold float64
	maxSize   int
	logger    *slog.Logger
}

// New creates an Intake storing images in sourceDir.
func New(sourceDir string, cfg config.IntakeConfig, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{
		sourceDir: sourceDir,
		threshold: cfg.ConfidenceThreshold,
		maxSize:   cfg.MaxImageSize,
		logger:    logger,
	}
}

// Accept queues sub for clustering when its confidence is below the threshold.
// Queued images are downscaled and re-encoded as JPEG under a unique name.
func (in *Intake) Accept(sub Submission) (*Decision, error) {
	if !(sub.Confidence >= 0 && sub.Confidence <= 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidConfidence, sub.Confidence)
	}
	if len(sub.Data) == 0 {
		return nil, ErrEmptyImage
	}

	decision := &Decision{
		Label:      Slug(sub.Label),
		Confidence: sub.Confidence,
		Threshold:  in.threshold,
	}
	if sub.Confidence >= in.threshold {
		in.logger.Debug("submission confident enough, not queued",
			"file", sub.Filename, "label", decision.Label, "confidence", sub.Confidence)
		return decision, nil
	}

	data, err := fingerprint.ResizeImage(sub.Data, in.maxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	hash, err := fingerprint.Compute(data, fingerprint.PHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	if err := os.MkdirAll(in.sourceDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating source directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.jpg", uuid.New().String(), SanitizeFilename(sub.Filename))
	if err := os.WriteFile(filepath.Join(in.sourceDir, name), data, 0o644); err != nil { //nolint:gosec // name is sanitized
		return nil, fmt.Errorf("storing submission: %w", err)
	}

	decision.Queued = true
	decision.StoredAs = name
	decision.Fingerprint = hash.Hash
	in.logger.Info("submission queued for review",
		"file", name, "label", decision.Label, "confidence", sub.Confidence, "hash", hash.Hash)
	return decision, nil
}
