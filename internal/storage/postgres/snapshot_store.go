package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/observability"
	"token-risk-monitor/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Attributes are stored as JSONB so sparse fields survive the round trip unchanged.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Upsert stores the snapshot, replacing any previous row for the id.
func (s *SnapshotStore) Upsert(ctx context.Context, snap *domain.TokenSnapshot) (err error) {
	if snap == nil || snap.ID == "" {
		return storage.ErrInvalidInput
	}

	attrs, err := json.Marshal(snap.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "snapshot_upsert", time.Since(start).Seconds(), err)
	}()

	query := `
		INSERT INTO token_snapshots (token_id, kind, attributes)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_id) DO UPDATE
		SET kind = EXCLUDED.kind,
		    attributes = EXCLUDED.attributes,
		    updated_at = NOW()
	`

	if _, err = s.pool.Exec(ctx, query, snap.ID, snap.Kind, attrs); err != nil {
		if isInvalidDataError(err) {
			return fmt.Errorf("upsert token snapshot %s: %w: %v", snap.ID, storage.ErrInvalidInput, err)
		}
		return fmt.Errorf("upsert token snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by token id. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, id string) (*domain.TokenSnapshot, error) {
	query := `
		SELECT token_id, kind, attributes
		FROM token_snapshots
		WHERE token_id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token snapshot by id: %w", err)
	}
	return snap, nil
}

// List retrieves all snapshots, ordered by id ASC.
func (s *SnapshotStore) List(ctx context.Context) ([]*domain.TokenSnapshot, error) {
	query := `
		SELECT token_id, kind, attributes
		FROM token_snapshots
		ORDER BY token_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list token snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token snapshot: %w", err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token snapshots: %w", err)
	}
	return result, nil
}

// Delete removes a snapshot by id.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM token_snapshots WHERE token_id = $1`, id); err != nil {
		return fmt.Errorf("delete token snapshot: %w", err)
	}
	return nil
}

// scanSnapshot scans a single row into TokenSnapshot.
func scanSnapshot(row pgx.Row) (*domain.TokenSnapshot, error) {
	var snap domain.TokenSnapshot
	var attrs []byte

	if err := row.Scan(&snap.ID, &snap.Kind, &attrs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attrs, &snap.Attributes); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	return &snap, nil
}
