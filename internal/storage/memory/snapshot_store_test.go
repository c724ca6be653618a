package memory

import (
	"context"
	"errors"
	"testing"

	"circle-resolver/internal/domain"
	"circle-resolver/internal/storage"
)

func snapshot(circleID string, resolvedAtMs int64) *domain.ResolvedCircle {
	return &domain.ResolvedCircle{
		Config: domain.CircleConfig{
			CircleID:  circleID,
			Admin:     "0xadmin",
			CycleType: domain.CycleWeekly,
		},
		CurrentMembers: 3,
		ResolvedAtMs:   resolvedAtMs,
	}
}

func TestSnapshotStore_InsertAndGetLatest(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	for _, ts := range []int64{1000, 3000, 2000} {
		if err := store.Insert(ctx, snapshot("0xc1", ts)); err != nil {
			t.Fatalf("Insert(%d) failed: %v", ts, err)
		}
	}

	latest, err := store.GetLatest(ctx, "0xc1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.ResolvedAtMs != 3000 {
		t.Errorf("ResolvedAtMs = %d, want 3000", latest.ResolvedAtMs)
	}
}

func TestSnapshotStore_DuplicateKey(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Insert(ctx, snapshot("0xc1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := store.Insert(ctx, snapshot("0xc1", 1000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Same instant for a different circle is fine.
	if err := store.Insert(ctx, snapshot("0xc2", 1000)); err != nil {
		t.Errorf("Different circle should insert: %v", err)
	}
}

func TestSnapshotStore_GetLatestNotFound(t *testing.T) {
	store := NewSnapshotStore()
	_, err := store.GetLatest(context.Background(), "0xmissing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotStore_ListByCircle(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	for _, ts := range []int64{1000, 2000, 3000} {
		if err := store.Insert(ctx, snapshot("0xc1", ts)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := store.Insert(ctx, snapshot("0xc2", 500)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	list, err := store.ListByCircle(ctx, "0xc1", 2)
	if err != nil {
		t.Fatalf("ListByCircle failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ResolvedAtMs != 3000 || list[1].ResolvedAtMs != 2000 {
		t.Errorf("Expected newest first, got %d, %d", list[0].ResolvedAtMs, list[1].ResolvedAtMs)
	}
}

func TestSnapshotStore_InvalidInput(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil snapshot: expected ErrInvalidInput, got %v", err)
	}
	if err := store.Insert(ctx, snapshot("", 1000)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty circle id: expected ErrInvalidInput, got %v", err)
	}
}

func TestSnapshotStore_CopiesOnInsert(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	snap := snapshot("0xc1", 1000)
	if err := store.Insert(ctx, snap); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	snap.CurrentMembers = 99

	got, err := store.GetLatest(ctx, "0xc1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if got.CurrentMembers != 3 {
		t.Errorf("Stored snapshot mutated externally: CurrentMembers = %d", got.CurrentMembers)
	}
}
