package memory

import (
	"context"
	"sort"
	"sync"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenSnapshot // keyed by token id
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.TokenSnapshot),
	}
}

// Upsert stores a copy of the snapshot, replacing any previous one.
func (s *SnapshotStore) Upsert(_ context.Context, snap *domain.TokenSnapshot) error {
	if snap == nil || snap.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[snap.ID] = snap.Clone()
	return nil
}

// GetByID retrieves a snapshot by id. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(_ context.Context, id string) (*domain.TokenSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return snap.Clone(), nil
}

// List retrieves all snapshots, ordered by id ASC.
func (s *SnapshotStore) List(_ context.Context) ([]*domain.TokenSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TokenSnapshot, 0, len(s.data))
	for _, snap := range s.data {
		result = append(result, snap.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Delete removes a snapshot by id.
func (s *SnapshotStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, id)
	return nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
