package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"circle-resolver/internal/domain"
	"circle-resolver/internal/storage"
)

// ResolutionLogStore implements storage.ResolutionLogStore using ClickHouse.
// The log is append-only: rows are never updated or deleted.
type ResolutionLogStore struct {
	conn *Conn
}

// NewResolutionLogStore creates a new ResolutionLogStore.
func NewResolutionLogStore(conn *Conn) *ResolutionLogStore {
	return &ResolutionLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ResolutionLogStore = (*ResolutionLogStore)(nil)

// InsertBulk appends entries as one batch.
func (s *ResolutionLogStore) InsertBulk(ctx context.Context, entries []*domain.ResolutionLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	for _, e := range entries {
		if e == nil || e.CircleID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO resolution_log (
			circle_id, resolved_at_ms, outcome, duration_ms, member_count,
			rate_unavailable, rate_stale, next_payout_unavailable,
			membership_truncated, membership_approximate, native_fallback
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range entries {
		err = batch.Append(
			e.CircleID, uint64(e.ResolvedAtMs), string(e.Outcome),
			uint64(e.DurationMs), uint32(e.MemberCount),
			boolFlag(e.Flags.RateUnavailable), boolFlag(e.Flags.RateStale),
			boolFlag(e.Flags.NextPayoutUnavailable),
			boolFlag(e.Flags.MembershipTruncated),
			boolFlag(e.Flags.MembershipApproximate),
			boolFlag(e.Flags.NativeFallback),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByCircleID retrieves all entries for a circle, ordered by resolved_at ASC.
func (s *ResolutionLogStore) GetByCircleID(ctx context.Context, circleID string) ([]*domain.ResolutionLogEntry, error) {
	query := `
		SELECT circle_id, resolved_at_ms, outcome, duration_ms, member_count,
		       rate_unavailable, rate_stale, next_payout_unavailable,
		       membership_truncated, membership_approximate, native_fallback
		FROM resolution_log
		WHERE circle_id = ?
		ORDER BY resolved_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, circleID)
	if err != nil {
		return nil, fmt.Errorf("query by circle id: %w", err)
	}
	defer rows.Close()

	return scanResolutionLog(rows)
}

func scanResolutionLog(rows driver.Rows) ([]*domain.ResolutionLogEntry, error) {
	var result []*domain.ResolutionLogEntry
	for rows.Next() {
		var (
			e           domain.ResolutionLogEntry
			resolvedAt  uint64
			outcome     string
			durationMs  uint64
			memberCount uint32
			flags       [6]uint8
		)
		err := rows.Scan(
			&e.CircleID, &resolvedAt, &outcome, &durationMs, &memberCount,
			&flags[0], &flags[1], &flags[2], &flags[3], &flags[4], &flags[5],
		)
		if err != nil {
			return nil, fmt.Errorf("scan resolution log row: %w", err)
		}
		e.ResolvedAtMs = int64(resolvedAt)
		e.Outcome = domain.ResolutionOutcome(outcome)
		e.DurationMs = int64(durationMs)
		e.MemberCount = int(memberCount)
		e.Flags = domain.SnapshotFlags{
			RateUnavailable:       flags[0] != 0,
			RateStale:             flags[1] != 0,
			NextPayoutUnavailable: flags[2] != 0,
			MembershipTruncated:   flags[3] != 0,
			MembershipApproximate: flags[4] != 0,
			NativeFallback:        flags[5] != 0,
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolution log rows: %w", err)
	}
	return result, nil
}

func boolFlag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
