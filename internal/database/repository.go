package database

import (
	"context"
)

// RunReader provides read-only access to the comparison run history
type RunReader interface {
	// Get retrieves a run by ID, returns nil if not found
	Get(ctx context.Context, id string) (*RunRecord, error)
	// List returns the most recent runs, newest first
	List(ctx context.Context, limit int) ([]RunRecord, error)
	// Count returns the total number of stored runs
	Count(ctx context.Context) (int, error)
}

// RunWriter provides write access to the comparison run history
type RunWriter interface {
	RunReader

	// Save stores a run, replacing any run with the same ID
	Save(ctx context.Context, run *RunRecord) error

	// Prune keeps the newest keep runs and deletes the rest, returning the number deleted
	Prune(ctx context.Context, keep int) (int, error)
}
