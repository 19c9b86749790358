package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kozaktomas/plant-doctor/internal/database"
	"github.com/kozaktomas/plant-doctor/internal/pipeline"
)

// RunRepository provides PostgreSQL-backed comparison run history
type RunRepository struct {
	pool *Pool
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(pool *Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

const runColumns = `id, outcome, message, eps, min_samples, algorithm, source_dir, dest_dir,
	images, clusters, summary, skipped, started_at, completed_at`

// Save stores a run in the database
func (r *RunRepository) Save(ctx context.Context, run *database.RunRecord) error {
	var summary []byte
	if run.Summary != nil {
		var err error
		if summary, err = json.Marshal(run.Summary); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
	}
	skipped := run.Skipped
	if skipped == nil {
		skipped = []pipeline.SkippedFile{}
	}
	skippedJSON, err := json.Marshal(skipped)
	if err != nil {
		return fmt.Errorf("encode skipped files: %w", err)
	}

	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			message = EXCLUDED.message,
			eps = EXCLUDED.eps,
			min_samples = EXCLUDED.min_samples,
			algorithm = EXCLUDED.algorithm,
			source_dir = EXCLUDED.source_dir,
			dest_dir = EXCLUDED.dest_dir,
			images = EXCLUDED.images,
			clusters = EXCLUDED.clusters,
			summary = EXCLUDED.summary,
			skipped = EXCLUDED.skipped,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err = r.pool.Exec(ctx, query,
		run.ID, run.Outcome, run.Message, run.Eps, run.MinSamples, run.Algorithm,
		run.SourceDir, run.DestDir, run.Images, run.Clusters,
		nullJSON(summary), string(skippedJSON), run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID, returns nil if not found
func (r *RunRepository) Get(ctx context.Context, id string) (*database.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`

	run, err := scanRun(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first
func (r *RunRepository) List(ctx context.Context, limit int) ([]database.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []database.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Count returns the number of stored runs
func (r *RunRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return count, nil
}

// Prune deletes all but the newest keep runs and reports how many were removed
func (r *RunRepository) Prune(ctx context.Context, keep int) (int, error) {
	query := `DELETE FROM runs WHERE id NOT IN (
		SELECT id FROM runs ORDER BY started_at DESC LIMIT $1
	)`

	res, err := r.pool.Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return int(removed), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*database.RunRecord, error) {
	var run database.RunRecord
	var summary, skipped []byte
	err := row.Scan(
		&run.ID,
		&run.Outcome,
		&run.Message,
		&run.Eps,
		&run.MinSamples,
		&run.Algorithm,
		&run.SourceDir,
		&run.DestDir,
		&run.Images,
		&run.Clusters,
		&summary,
		&skipped,
		&run.StartedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if summary != nil {
		if err := json.Unmarshal(summary, &run.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
	}
	if err := json.Unmarshal(skipped, &run.Skipped); err != nil {
		return nil, fmt.Errorf("decode skipped files: %w", err)
	}
	return &run, nil
}

// nullJSON maps an empty document to SQL NULL. Documents are sent as text;
// lib/pq would encode a []byte as bytea.
func nullJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

var _ database.RunWriter = (*RunRepository)(nil)
