package storage

import (
	"context"

	"token-risk-monitor/internal/domain"
)

// SnapshotStore persists the latest snapshot per token id so the registry
// can be restored after a restart. Writes are upserts: a newer snapshot
// replaces the stored one entirely.
type SnapshotStore interface {
	// Upsert stores the snapshot under its id, replacing any previous one.
	Upsert(ctx context.Context, snap *domain.TokenSnapshot) error

	// GetByID retrieves a snapshot by token id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.TokenSnapshot, error)

	// List retrieves all snapshots, ordered by id ASC.
	List(ctx context.Context) ([]*domain.TokenSnapshot, error)

	// Delete removes a snapshot. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}

// ScoreStore provides access to token_scores storage (append-only score history).
type ScoreStore interface {
	// InsertBulk adds multiple records. Fails entire batch on duplicate (token_id, scheme, scored_at).
	InsertBulk(ctx context.Context, records []*domain.ScoreRecord) error

	// GetByTokenID retrieves all records for a token, ordered by scored_at ASC.
	GetByTokenID(ctx context.Context, tokenID string) ([]*domain.ScoreRecord, error)
}
