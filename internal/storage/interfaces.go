package storage

import (
	"context"

	"circle-resolver/internal/domain"
)

// SnapshotStore is the append-only history of resolved circle
// snapshots. It is write-behind only: resolution never reads it back,
// so it cannot act as a stale-state cache.
type SnapshotStore interface {
	// Insert appends one snapshot. Returns ErrDuplicateKey when a
	// snapshot for (circle_id, resolved_at) already exists.
	Insert(ctx context.Context, snapshot *domain.ResolvedCircle) error

	// GetLatest retrieves the most recent snapshot for a circle.
	// Returns ErrNotFound when the circle has no history.
	GetLatest(ctx context.Context, circleID string) (*domain.ResolvedCircle, error)

	// ListByCircle retrieves up to limit snapshots for a circle,
	// newest first.
	ListByCircle(ctx context.Context, circleID string, limit int) ([]*domain.ResolvedCircle, error)
}

// ResolutionLogStore is the append-only audit log of projection
// attempts.
type ResolutionLogStore interface {
	// InsertBulk appends entries as one batch.
	InsertBulk(ctx context.Context, entries []*domain.ResolutionLogEntry) error

	// GetByCircleID retrieves all entries for a circle, ordered by
	// resolved_at ASC.
	GetByCircleID(ctx context.Context, circleID string) ([]*domain.ResolutionLogEntry, error)
}
