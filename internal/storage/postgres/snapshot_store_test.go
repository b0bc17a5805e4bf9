package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/storage"
)

func TestSnapshotStore_UpsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(pool)
	ctx := context.Background()

	snap := &domain.TokenSnapshot{
		ID:   "A",
		Kind: "token",
		Attributes: domain.TokenAttributes{
			Name:         ptr("Alpha"),
			HoldersCount: ptr(int64(10)),
			PriceUSD:     ptr(0.0012),
			Audit:        &domain.Audit{TopHoldersPerc: 50, LPBurnedPerc: 100},
			Socials:      &domain.Socials{Twitter: ptr("https://x.com/alpha")},
		},
	}

	require.NoError(t, store.Upsert(ctx, snap))

	got, err := store.GetByID(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestSnapshotStore_UpsertReplaces(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(pool)
	ctx := context.Background()

	first := &domain.TokenSnapshot{ID: "B", Kind: "token", Attributes: domain.TokenAttributes{Name: ptr("first"), HoldersCount: ptr(int64(5))}}
	second := &domain.TokenSnapshot{ID: "B", Kind: "token", Attributes: domain.TokenAttributes{Symbol: ptr("SEC")}}

	require.NoError(t, store.Upsert(ctx, first))
	require.NoError(t, store.Upsert(ctx, second))

	got, err := store.GetByID(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, second, got)
	assert.Nil(t, got.Attributes.Name)
	assert.Nil(t, got.Attributes.HoldersCount)
}

func TestSnapshotStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshotStore_ListAndDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(pool)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Upsert(ctx, &domain.TokenSnapshot{ID: id, Kind: "token"}))
	}
	require.NoError(t, store.Delete(ctx, "b"))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[1].ID)
}

func TestSnapshotStore_InvalidInput(t *testing.T) {
	store := NewSnapshotStore(nil)
	assert.ErrorIs(t, store.Upsert(context.Background(), &domain.TokenSnapshot{}), storage.ErrInvalidInput)
}

func TestSnapshotStore_RejectedRow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(pool)
	snap := &domain.TokenSnapshot{
		ID:         "nul",
		Kind:       "token",
		Attributes: domain.TokenAttributes{Name: ptr("bad\x00name")},
	}

	// jsonb rejects \u0000
	err := store.Upsert(context.Background(), snap)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestIsInvalidDataError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"unicode escape", &pgconn.PgError{Code: "22P05"}, true},
		{"not null", &pgconn.PgError{Code: "23502"}, true},
		{"wrapped unique", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"}), true},
		{"connection", &pgconn.PgError{Code: "08006"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isInvalidDataError(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
