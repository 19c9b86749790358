package database

import (
	"time"

	"github.com/kozaktomas/plant-doctor/internal/pipeline"
)

// RunRecord is a stored comparison run
type RunRecord struct {
	ID          string                 `json:"id"`
	Outcome     string                 `json:"outcome"`
	Message     string                 `json:"message"`
	Eps         float64                `json:"eps"`
	MinSamples  int                    `json:"min_samples"`
	Algorithm   string                 `json:"algorithm"`
	SourceDir   string                 `json:"source_dir"`
	DestDir     string                 `json:"dest_dir"`
	Images      int                    `json:"images"`
	Clusters    int                    `json:"clusters"`
	Summary     map[string]int         `json:"summary"` // nil when no image could be fingerprinted
	Skipped     []pipeline.SkippedFile `json:"skipped"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at"`
}

// FromResult converts a finished pipeline run into a record
func FromResult(r *pipeline.Result) *RunRecord {
	rec := &RunRecord{
		ID:          r.RunID,
		Outcome:     string(r.Outcome),
		Message:     r.Message,
		Eps:         r.Params.Eps,
		MinSamples:  r.Params.MinSamples,
		Algorithm:   string(r.Algorithm),
		SourceDir:   r.SourceDir,
		DestDir:     r.DestDir,
		Images:      r.Images,
		Clusters:    r.Clusters,
		Skipped:     r.Skipped,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
	if r.Summary != nil {
		rec.Summary = make(map[string]int, len(r.Summary))
		for k, v := range r.Summary {
			rec.Summary[k] = v
		}
	}
	if rec.Skipped == nil {
		rec.Skipped = []pipeline.SkippedFile{}
	}
	return rec
}

// Duration returns the wall time of the run
func (r *RunRecord) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
