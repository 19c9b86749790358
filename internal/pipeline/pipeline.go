// Package pipeline runs a full comparison: fingerprint the source directory, cluster
// the fingerprints and rebuild the destination tree with one folder per cluster.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/plant-doctor/internal/cluster"
	"github.com/kozaktomas/plant-doctor/internal/config"
	"github.com/kozaktomas/plant-doctor/internal/features"
	"github.com/kozaktomas/plant-doctor/internal/fingerprint"
	"github.com/kozaktomas/plant-doctor/internal/materialize"
)

// Outcome classifies a finished run.
type Outcome string

const (
	OutcomeNoImages      Outcome = "no_images"
	OutcomeSingleCluster Outcome = "single_cluster"
	OutcomeAllUnique     Outcome = "all_unique"
	OutcomeClustered     Outcome = "clustered"
)

// Stages reported for skipped files.
const (
	StageFingerprint = "fingerprint"
	StageCopy        = "copy"
)

// ErrRunInProgress is returned by TryRun while another run holds the comparator.
var ErrRunInProgress = errors.New("a comparison run is already in progress")

const (
	messageNoImages      = "No images found in the source directory."
	messageSingleCluster = "All images seem similar; consider adjusting the eps parameter."
	messageAllUnique     = "Every image is unique; consider increasing the eps parameter."
)

// Options configure a Comparator.
type Options struct {
	SourceDir  string
	DestDir    string
	Params     cluster.Params
	Algorithm  fingerprint.Algorithm
	Hash       fingerprint.HashFunc // overrides Algorithm when set
	Workers    int
	// SharedNoise keeps every noise image in the single cluster_-1 folder instead of
	// giving each one a singleton cluster.
	SharedNoise bool
}

// OptionsFromConfig builds Options from the cluster section of the configuration.
func OptionsFromConfig(cfg config.ClusterConfig) (Options, error) {
	alg, err := fingerprint.ParseAlgorithm(cfg.Hash)
	if err != nil {
		return Options{}, err
	}
	return Options{
		SourceDir:   cfg.SourceDir,
		DestDir:     cfg.DestDir,
		Params:      cluster.Params{Eps: cfg.Eps, MinSamples: cfg.MinSamples},
		Algorithm:   alg,
		Workers:     cfg.Workers,
		SharedNoise: cfg.SharedNoise,
	}, nil
}

// SkippedFile is an image left out of the result.
type SkippedFile struct {
	Name   string `json:"name"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// Result describes a finished run. Summary is nil when no image could be fingerprinted.
// Clusters counts groups of similar images, each noise image being a group of its own.
type Result struct {
	RunID       string                `json:"run_id"`
	Outcome     Outcome               `json:"outcome"`
	Message     string                `json:"message"`
	Summary     materialize.Summary   `json:"summary"`
	Clusters    int                   `json:"clusters"`
	Images      int                   `json:"images"`
	Skipped     []SkippedFile         `json:"skipped,omitempty"`
	Params      cluster.Params        `json:"params"`
	Algorithm   fingerprint.Algorithm `json:"algorithm"`
	SourceDir   string                `json:"source_dir"`
	DestDir     string                `json:"dest_dir"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt time.Time             `json:"completed_at"`
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Comparator runs comparisons with a fixed configuration. Runs are serialized because
// each one wipes and rebuilds the same destination tree.
type Comparator struct {
	opts   Options
	hash   fingerprint.HashFunc
	logger *slog.Logger

	mu       sync.Mutex
	progress func(done, total int)
}

// New validates opts and creates a Comparator.
func New(opts Options, logger *slog.Logger) (*Comparator, error) {
	if strings.TrimSpace(opts.SourceDir) == "" {
		return nil, errors.New("source directory is required")
	}
	if strings.TrimSpace(opts.DestDir) == "" {
		return nil, errors.New("destination directory is required")
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.Algorithm == "" {
		opts.Algorithm = fingerprint.PHash
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	hash := opts.Hash
	if hash == nil {
		hash = opts.Algorithm.HashFunc()
	}

	return &Comparator{
		opts:   opts,
		hash:   hash,
		logger: logger,
	}, nil
}

// Options returns the configuration the comparator was built with.
func (c *Comparator) Options() Options {
	return c.opts
}

// SetProgress registers a callback invoked after each fingerprinted file.
func (c *Comparator) SetProgress(fn func(done, total int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = fn
}

// Run performs a comparison, waiting for any run already in progress.
func (c *Comparator) Run(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run(ctx)
}

// TryRun performs a comparison or returns ErrRunInProgress without waiting.
func (c *Comparator) TryRun(ctx context.Context) (*Result, error) {
	if !c.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer c.mu.Unlock()
	return c.run(ctx)
}

func (c *Comparator) run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:     uuid.New().String(),
		Params:    c.opts.Params,
		Algorithm: c.opts.Algorithm,
		SourceDir: c.opts.SourceDir,
		DestDir:   c.opts.DestDir,
		StartedAt: time.Now(),
	}
	logger := c.logger.With("run_id", result.RunID)
	logger.Info("starting comparison",
		"source", c.opts.SourceDir,
		"dest", c.opts.DestDir,
		"eps", c.opts.Params.Eps,
		"min_samples", c.opts.Params.MinSamples,
		"hash", c.opts.Algorithm)

	if err := materialize.Reset(c.opts.DestDir, c.opts.SourceDir); err != nil {
		return nil, fmt.Errorf("preparing destination: %w", err)
	}

	if err := c.compare(ctx, result, logger); err != nil {
		// A half-written tree must not pass for the result of a run.
		if rerr := materialize.Reset(c.opts.DestDir, c.opts.SourceDir); rerr != nil {
			logger.Error("failed to discard partial destination", "dest", c.opts.DestDir, "error", rerr)
		}
		return nil, err
	}
	return result, nil
}

// compare runs every stage after the destination reset and fills in result.
func (c *Comparator) compare(ctx context.Context, result *Result, logger *slog.Logger) error {
	scan, err := fingerprint.ScanDir(ctx, c.opts.SourceDir, fingerprint.ScanOptions{
		Hash:     c.hash,
		Workers:  c.opts.Workers,
		Logger:   logger,
		Progress: c.progress,
	})
	if err != nil {
		return fmt.Errorf("fingerprinting: %w", err)
	}
	for _, f := range scan.Failures {
		result.Skipped = append(result.Skipped, SkippedFile{Name: f.Name, Stage: StageFingerprint, Reason: f.Err.Error()})
	}

	if len(scan.Names) == 0 {
		result.Outcome = OutcomeNoImages
		result.Message = messageNoImages
		result.CompletedAt = time.Now()
		logger.Warn("no images to compare", "skipped", len(result.Skipped))
		return nil
	}

	labels, err := cluster.DBSCAN(features.Vectorize(scan.Hashes), c.opts.Params)
	if err != nil {
		return fmt.Errorf("clustering: %w", err)
	}
	if !c.opts.SharedNoise {
		labels = cluster.SplitNoise(labels)
	}

	result.Images = len(scan.Names)
	result.Clusters = cluster.Count(cluster.SplitNoise(labels))
	switch {
	case result.Clusters == 1:
		result.Outcome = OutcomeSingleCluster
		result.Message = messageSingleCluster
	case result.Clusters == result.Images:
		result.Outcome = OutcomeAllUnique
		result.Message = messageAllUnique
	default:
		result.Outcome = OutcomeClustered
		result.Message = fmt.Sprintf("Found %d clusters.", result.Clusters)
	}
	logger.Info(result.Message, "images", result.Images, "clusters", result.Clusters)

	m := materialize.New(c.opts.SourceDir, c.opts.DestDir, c.opts.Workers, logger)
	summary, failures, err := m.Materialize(ctx, scan.Names, labels)
	if err != nil {
		return fmt.Errorf("materializing clusters: %w", err)
	}
	for _, f := range failures {
		result.Skipped = append(result.Skipped, SkippedFile{Name: f.Name, Stage: StageCopy, Reason: f.Err.Error()})
	}

	result.Summary = summary
	result.CompletedAt = time.Now()
	logger.Info("comparison finished",
		"clusters", result.Clusters,
		"copied", summary.Total(),
		"skipped", len(result.Skipped),
		"duration", result.Duration())
	return nil
}
