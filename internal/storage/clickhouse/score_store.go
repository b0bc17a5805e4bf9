package clickhouse

import (
	"context"
	"fmt"
	"time"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/observability"
	"token-risk-monitor/internal/storage"
)

// ScoreStore implements storage.ScoreStore using ClickHouse.
type ScoreStore struct {
	conn *Conn
}

// NewScoreStore creates a new ScoreStore.
func NewScoreStore(conn *Conn) *ScoreStore {
	return &ScoreStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScoreStore = (*ScoreStore)(nil)

type scoreKey struct {
	tokenID  string
	scheme   string
	scoredAt int64
}

type passKey struct {
	scheme   string
	scoredAt int64
}

// InsertBulk adds multiple records. Fails entire batch on duplicate (token_id, scheme, scored_at).
func (s *ScoreStore) InsertBulk(ctx context.Context, records []*domain.ScoreRecord) (err error) {
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "score_insert", time.Since(start).Seconds(), err)
	}()

	// Check for intra-batch duplicates
	seen := make(map[scoreKey]struct{}, len(records))
	passes := make(map[passKey]struct{})
	for _, r := range records {
		if r == nil || r.TokenID == "" {
			return storage.ErrInvalidInput
		}
		k := scoreKey{r.TokenID, r.Scheme, r.ScoredAt}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		passes[passKey{r.Scheme, r.ScoredAt}] = struct{}{}
	}

	// Check for duplicates against existing rows, one query per pass
	for p := range passes {
		existing, err := s.tokensInPass(ctx, p.scheme, p.scoredAt)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, id := range existing {
			if _, dup := seen[scoreKey{id, p.scheme, p.scoredAt}]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO token_scores (
			token_id, symbol, scheme, base, bot_likelihood, adjusted, tier, scored_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.TokenID, r.Symbol, r.Scheme,
			r.Base, r.BotLikelihood, r.Adjusted,
			r.Tier.String(), uint64(r.ScoredAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTokenID retrieves all records for a token, ordered by scored_at ASC.
func (s *ScoreStore) GetByTokenID(ctx context.Context, tokenID string) ([]*domain.ScoreRecord, error) {
	query := `
		SELECT token_id, symbol, scheme, base, bot_likelihood, adjusted, tier, scored_at
		FROM token_scores FINAL
		WHERE token_id = ?
		ORDER BY scored_at ASC, scheme ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query by token id: %w", err)
	}
	defer rows.Close()

	return scanScores(rows)
}

// tokensInPass returns token ids already stored for a (scheme, scored_at) pass.
func (s *ScoreStore) tokensInPass(ctx context.Context, scheme string, scoredAt int64) ([]string, error) {
	query := `
		SELECT DISTINCT token_id FROM token_scores
		WHERE scheme = ? AND scored_at = ?
	`

	rows, err := s.conn.Query(ctx, query, scheme, uint64(scoredAt))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanScores scans multiple rows.
func scanScores(rows chRows) ([]*domain.ScoreRecord, error) {
	var records []*domain.ScoreRecord

	for rows.Next() {
		var r domain.ScoreRecord
		var tier string
		var scoredAt uint64

		err := rows.Scan(
			&r.TokenID, &r.Symbol, &r.Scheme,
			&r.Base, &r.BotLikelihood, &r.Adjusted,
			&tier, &scoredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan token score row: %w", err)
		}

		parsed, err := domain.ParseRiskTier(tier)
		if err != nil {
			return nil, fmt.Errorf("parse tier %q: %w", tier, err)
		}
		r.Tier = parsed
		r.ScoredAt = int64(scoredAt)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token score rows: %w", err)
	}

	return records, nil
}
