package mcp

import (
	"sync"

	"cistat/src/aggregate"
)

// maxStoredSnapshots bounds the drill-down store; the oldest request is evicted first.
const maxStoredSnapshots = 32

// SnapshotStore keeps snapshots returned by build_status for later drill-down.
type SnapshotStore interface {
	// Store saves the snapshot for a request.
	Store(requestID string, snap aggregate.Snapshot)
	// Group retrieves one group of a stored snapshot.
	Group(requestID, name string) (aggregate.PipelineGroup, bool)
}

// InMemoryStore is a thread-safe in-memory implementation of SnapshotStore.
type InMemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]aggregate.Snapshot // request_id -> snapshot
	order []string
}

// NewInMemoryStore creates a new in-memory snapshot store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snaps: make(map[string]aggregate.Snapshot)}
}

// Store saves a snapshot, evicting the oldest when full.
func (s *InMemoryStore) Store(requestID string, snap aggregate.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snaps[requestID]; !exists {
		s.order = append(s.order, requestID)
	}
	s.snaps[requestID] = snap

	for len(s.order) > maxStoredSnapshots {
		delete(s.snaps, s.order[0])
		s.order = s.order[1:]
	}
}

// Group retrieves a group by name.
func (s *InMemoryStore) Group(requestID, name string) (aggregate.PipelineGroup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snaps[requestID]
	if !ok {
		return aggregate.PipelineGroup{}, false
	}
	return snap.Group(name)
}
