package database

import (
	"context"
	"errors"
	"sync"
)

// ErrNotInitialized is returned when no storage backend has been registered.
var ErrNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

var (
	providerMu          sync.RWMutex
	postgresRunWriter   func() RunWriter
	postgresInitialized bool
)

// RegisterPostgresBackend registers the PostgreSQL repository constructor.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(runWriter func() RunWriter) {
	providerMu.Lock()
	defer providerMu.Unlock()
	postgresRunWriter = runWriter
	postgresInitialized = runWriter != nil
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return postgresInitialized
}

// GetRunReader returns a RunReader from the PostgreSQL backend
func GetRunReader(ctx context.Context) (RunReader, error) {
	return GetRunWriter(ctx)
}

// GetRunWriter returns a RunWriter from the PostgreSQL backend
func GetRunWriter(ctx context.Context) (RunWriter, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if !postgresInitialized {
		return nil, ErrNotInitialized
	}
	return postgresRunWriter(), nil
}
