package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"circle-resolver/internal/domain"
	"circle-resolver/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Snapshots are stored whole as JSONB: history consumers always want
// the complete read model, never a projection of it.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends one snapshot. Returns ErrDuplicateKey when a
// snapshot for (circle_id, resolved_at) already exists.
func (s *SnapshotStore) Insert(ctx context.Context, snapshot *domain.ResolvedCircle) error {
	if snapshot == nil || snapshot.Config.CircleID == "" {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO circle_snapshots (
			circle_id, resolved_at_ms, degraded, member_count, payload
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.pool.Exec(ctx, query,
		snapshot.Config.CircleID,
		snapshot.ResolvedAtMs,
		snapshot.Flags.Degraded(),
		snapshot.CurrentMembers,
		payload,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent snapshot for a circle.
func (s *SnapshotStore) GetLatest(ctx context.Context, circleID string) (*domain.ResolvedCircle, error) {
	query := `
		SELECT payload
		FROM circle_snapshots
		WHERE circle_id = $1
		ORDER BY resolved_at_ms DESC
		LIMIT 1
	`

	var payload []byte
	err := s.pool.QueryRow(ctx, query, circleID).Scan(&payload)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}

	return unmarshalSnapshot(payload)
}

// ListByCircle retrieves up to limit snapshots for a circle, newest first.
func (s *SnapshotStore) ListByCircle(ctx context.Context, circleID string, limit int) ([]*domain.ResolvedCircle, error) {
	query := `
		SELECT payload
		FROM circle_snapshots
		WHERE circle_id = $1
		ORDER BY resolved_at_ms DESC
	`
	args := []interface{}{circleID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.ResolvedCircle
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap, err := unmarshalSnapshot(payload)
		if err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return result, nil
}

func unmarshalSnapshot(payload []byte) (*domain.ResolvedCircle, error) {
	var snap domain.ResolvedCircle
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
