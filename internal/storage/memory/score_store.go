package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/storage"
)

// ScoreStore is an in-memory implementation of storage.ScoreStore.
type ScoreStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ScoreRecord // keyed by (token_id, scheme, scored_at)
}

// NewScoreStore creates a new in-memory score store.
func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		data: make(map[string]*domain.ScoreRecord),
	}
}

func scoreKey(r *domain.ScoreRecord) string {
	return fmt.Sprintf("%s|%s|%d", r.TokenID, r.Scheme, r.ScoredAt)
}

// InsertBulk adds multiple records. Fails entire batch on duplicate.
func (s *ScoreStore) InsertBulk(_ context.Context, records []*domain.ScoreRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.TokenID == "" {
			return storage.ErrInvalidInput
		}
		key := scoreKey(r)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range records {
		recordCopy := *r
		s.data[scoreKey(r)] = &recordCopy
	}
	return nil
}

// GetByTokenID retrieves all records for a token, ordered by scored_at ASC.
func (s *ScoreStore) GetByTokenID(_ context.Context, tokenID string) ([]*domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreRecord
	for _, r := range s.data {
		if r.TokenID == tokenID {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ScoredAt != result[j].ScoredAt {
			return result[i].ScoredAt < result[j].ScoredAt
		}
		return result[i].Scheme < result[j].Scheme
	})
	return result, nil
}

var _ storage.ScoreStore = (*ScoreStore)(nil)
