package memory

import (
	"context"
	"errors"
	"testing"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/storage"
)

func makeSnapshot(id, name string) *domain.TokenSnapshot {
	return &domain.TokenSnapshot{
		ID:         id,
		Kind:       "token",
		Attributes: domain.TokenAttributes{Name: &name},
	}
}

func TestSnapshotStore_UpsertAndGetByID(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, makeSnapshot("A", "first")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, makeSnapshot("A", "second")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "A")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if *got.Attributes.Name != "second" {
		t.Errorf("Name mismatch: got %s, want second", *got.Attributes.Name)
	}
}

func TestSnapshotStore_GetByID_NotFound(t *testing.T) {
	store := NewSnapshotStore()

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotStore_InvalidInput(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil: expected ErrInvalidInput, got %v", err)
	}
	if err := store.Upsert(ctx, &domain.TokenSnapshot{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty id: expected ErrInvalidInput, got %v", err)
	}
}

func TestSnapshotStore_ListOrderedAndDelete(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := store.Upsert(ctx, makeSnapshot(id, id)); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete of missing id failed: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "c" {
		t.Errorf("unexpected list: %v", list)
	}
}

func TestSnapshotStore_CopyIsolation(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	snap := makeSnapshot("A", "orig")
	if err := store.Upsert(ctx, snap); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	*snap.Attributes.Name = "mutated"

	got, _ := store.GetByID(ctx, "A")
	if *got.Attributes.Name != "orig" {
		t.Errorf("stored snapshot mutated: %s", *got.Attributes.Name)
	}
}
