// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/plant-doctor/internal/database"
)

// MockRunStore is an in-memory implementation of database.RunWriter
type MockRunStore struct {
	mu   sync.RWMutex
	runs map[string]database.RunRecord

	// Error injection
	GetError   error
	ListError  error
	CountError error
	SaveError  error
	PruneError error
}

// NewMockRunStore creates a new mock run store
func NewMockRunStore() *MockRunStore {
	return &MockRunStore{
		runs: make(map[string]database.RunRecord),
	}
}

// AddRun adds a run to the mock store
func (m *MockRunStore) AddRun(run database.RunRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
}

// Get retrieves a run by ID
func (m *MockRunStore) Get(ctx context.Context, id string) (*database.RunRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

// List returns the most recent runs, newest first
func (m *MockRunStore) List(ctx context.Context, limit int) ([]database.RunRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]database.RunRecord, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Count returns the number of stored runs
func (m *MockRunStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs), nil
}

// Save stores a run
func (m *MockRunStore) Save(ctx context.Context, run *database.RunRecord) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

// Prune keeps the newest keep runs by StartedAt
func (m *MockRunStore) Prune(ctx context.Context, keep int) (int, error) {
	if m.PruneError != nil {
		return 0, m.PruneError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]database.RunRecord, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	removed := 0
	for i := keep; i < len(runs); i++ {
		delete(m.runs, runs[i].ID)
		removed++
	}
	return removed, nil
}

var _ database.RunWriter = (*MockRunStore)(nil)
