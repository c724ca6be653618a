package memory

import (
	"context"
	"sort"
	"sync"

	"circle-resolver/internal/domain"
	"circle-resolver/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.ResolvedCircle // keyed by circle_id, append order
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string][]*domain.ResolvedCircle),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends one snapshot. Returns ErrDuplicateKey when a
// snapshot for (circle_id, resolved_at) already exists.
func (s *SnapshotStore) Insert(_ context.Context, snapshot *domain.ResolvedCircle) error {
	if snapshot == nil || snapshot.Config.CircleID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	circleID := snapshot.Config.CircleID
	for _, existing := range s.data[circleID] {
		if existing.ResolvedAtMs == snapshot.ResolvedAtMs {
			return storage.ErrDuplicateKey
		}
	}

	// Store a copy to prevent external mutation
	snapshotCopy := *snapshot
	s.data[circleID] = append(s.data[circleID], &snapshotCopy)
	return nil
}

// GetLatest retrieves the most recent snapshot for a circle.
func (s *SnapshotStore) GetLatest(_ context.Context, circleID string) (*domain.ResolvedCircle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots := s.data[circleID]
	if len(snapshots) == 0 {
		return nil, storage.ErrNotFound
	}

	latest := snapshots[0]
	for _, snap := range snapshots[1:] {
		if snap.ResolvedAtMs > latest.ResolvedAtMs {
			latest = snap
		}
	}

	latestCopy := *latest
	return &latestCopy, nil
}

// ListByCircle retrieves up to limit snapshots for a circle, newest first.
func (s *SnapshotStore) ListByCircle(_ context.Context, circleID string, limit int) ([]*domain.ResolvedCircle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots := s.data[circleID]
	result := make([]*domain.ResolvedCircle, 0, len(snapshots))
	for _, snap := range snapshots {
		snapCopy := *snap
		result = append(result, &snapCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ResolvedAtMs > result[j].ResolvedAtMs
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}
