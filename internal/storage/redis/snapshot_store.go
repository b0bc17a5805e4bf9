// Package redis provides a Redis-backed snapshot store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/storage"
)

// DefaultKey is the hash holding snapshots when no key is configured.
const DefaultKey = "token-risk:snapshots"

// SnapshotStore implements storage.SnapshotStore as a Redis hash of
// token id → snapshot JSON.
type SnapshotStore struct {
	client *goredis.Client
	key    string
}

// NewSnapshotStore creates a new SnapshotStore on the given hash key.
func NewSnapshotStore(client *goredis.Client, key string) *SnapshotStore {
	if key == "" {
		key = DefaultKey
	}
	return &SnapshotStore{client: client, key: key}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Upsert stores the snapshot, replacing any previous value for the id.
func (s *SnapshotStore) Upsert(ctx context.Context, snap *domain.TokenSnapshot) error {
	if snap == nil || snap.ID == "" {
		return storage.ErrInvalidInput
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, snap.ID, data).Err(); err != nil {
		return fmt.Errorf("redis HSET %s: %w", s.key, err)
	}
	return nil
}

// GetByID retrieves a snapshot by token id. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, id string) (*domain.TokenSnapshot, error) {
	data, err := s.client.HGet(ctx, s.key, id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis HGET %s: %w", s.key, err)
	}

	var snap domain.TokenSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// List retrieves all snapshots, ordered by id ASC. Malformed entries are skipped.
func (s *SnapshotStore) List(ctx context.Context) ([]*domain.TokenSnapshot, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s: %w", s.key, err)
	}

	result := make([]*domain.TokenSnapshot, 0, len(values))
	for _, v := range values {
		var snap domain.TokenSnapshot
		if err := json.Unmarshal([]byte(v), &snap); err != nil {
			continue
		}
		if snap.ID == "" {
			continue
		}
		result = append(result, &snap)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Delete removes a snapshot by id.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	if err := s.client.HDel(ctx, s.key, id).Err(); err != nil {
		return fmt.Errorf("redis HDEL %s: %w", s.key, err)
	}
	return nil
}
