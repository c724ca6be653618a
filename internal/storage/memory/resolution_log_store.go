package memory

import (
	"context"
	"sort"
	"sync"

	"circle-resolver/internal/domain"
	"circle-resolver/internal/storage"
)

// ResolutionLogStore is an in-memory implementation of storage.ResolutionLogStore.
type ResolutionLogStore struct {
	mu      sync.RWMutex
	entries []*domain.ResolutionLogEntry
}

// NewResolutionLogStore creates a new in-memory resolution log store.
func NewResolutionLogStore() *ResolutionLogStore {
	return &ResolutionLogStore{}
}

// Compile-time interface check.
var _ storage.ResolutionLogStore = (*ResolutionLogStore)(nil)

// InsertBulk appends entries as one batch.
func (s *ResolutionLogStore) InsertBulk(_ context.Context, entries []*domain.ResolutionLogEntry) error {
	for _, e := range entries {
		if e == nil || e.CircleID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		entryCopy := *e
		s.entries = append(s.entries, &entryCopy)
	}
	return nil
}

// GetByCircleID retrieves all entries for a circle, ordered by resolved_at ASC.
func (s *ResolutionLogStore) GetByCircleID(_ context.Context, circleID string) ([]*domain.ResolutionLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ResolutionLogEntry
	for _, e := range s.entries {
		if e.CircleID == circleID {
			entryCopy := *e
			result = append(result, &entryCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ResolvedAtMs < result[j].ResolvedAtMs
	})
	return result, nil
}
