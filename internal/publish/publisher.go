// Package publish sends per-pass token scores to downstream consumers.
package publish

import (
	"context"

	"token-risk-monitor/internal/domain"
)

// Publisher delivers the score records of one ranking pass.
type Publisher interface {
	Publish(ctx context.Context, records []*domain.ScoreRecord) error
	Close() error
}

// ScoreMessage is the wire form of a published score.
type ScoreMessage struct {
	TokenID       string  `json:"token_id"`
	Symbol        string  `json:"symbol,omitempty"`
	Scheme        string  `json:"scheme"`
	Base          float64 `json:"base"`
	BotLikelihood float64 `json:"bot_likelihood"`
	Adjusted      float64 `json:"adjusted"`
	Tier          string  `json:"tier"`
	TierLabel     string  `json:"tier_label"`
	ScoredAt      int64   `json:"scored_at"` // Unix ms
}

// NewScoreMessage converts a score record to its wire form.
func NewScoreMessage(rec *domain.ScoreRecord) ScoreMessage {
	return ScoreMessage{
		TokenID:       rec.TokenID,
		Symbol:        rec.Symbol,
		Scheme:        rec.Scheme,
		Base:          rec.Base,
		BotLikelihood: rec.BotLikelihood,
		Adjusted:      rec.Adjusted,
		Tier:          rec.Tier.String(),
		TierLabel:     rec.Tier.Label(),
		ScoredAt:      rec.ScoredAt,
	}
}

// Nop discards every record. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, []*domain.ScoreRecord) error { return nil }
func (Nop) Close() error                                         { return nil }
