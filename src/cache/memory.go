package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cistat/src/status"
)

type memoryEntry struct {
	records []status.BuildRecord
	savedAt time.Time
}

// MemoryStore is an in-memory implementation of Store.
// Used when no cache is configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Load returns the cached records for project.
func (s *MemoryStore) Load(ctx context.Context, project string) ([]status.BuildRecord, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[project]
	if !exists {
		return nil, time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, project)
	}

	// Return a copy
	result := make([]status.BuildRecord, len(entry.records))
	copy(result, entry.records)
	return result, entry.savedAt, nil
}

// Save replaces the cached records for project.
func (s *MemoryStore) Save(ctx context.Context, project string, records []status.BuildRecord, savedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]status.BuildRecord, len(records))
	copy(stored, records)
	s.entries[project] = memoryEntry{records: stored, savedAt: savedAt}
	return nil
}

// Projects lists cached projects, sorted.
func (s *MemoryStore) Projects(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]string, 0, len(s.entries))
	for p := range s.entries {
		projects = append(projects, p)
	}
	sort.Strings(projects)
	return projects, nil
}

// Clear removes every entry.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]memoryEntry)
	return nil
}

// Close closes the store (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
