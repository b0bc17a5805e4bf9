package risk

import (
	"time"

	"token-risk-monitor/internal/domain"
)

// Score is the full scoring breakdown of one snapshot.
type Score struct {
	Base          float64
	BotLikelihood float64
	Adjusted      float64
	Tier          domain.RiskTier
}

// Scorer composes synthesis, concentration and classification.
// It is safe for concurrent use.
type Scorer struct {
	scheme Scheme
	now    func() time.Time
}

// ScorerOptions contains configuration for creating a Scorer.
type ScorerOptions struct {
	Scheme Scheme
	Clock  func() time.Time // Default: time.Now
}

// NewScorer creates a new Scorer.
func NewScorer(opts ScorerOptions) *Scorer {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Scorer{scheme: opts.Scheme, now: clock}
}

// Scheme returns the scorer's classification scheme.
func (s *Scorer) Scheme() Scheme {
	return s.scheme
}

// CalculateAdjustedConcentration returns the bot-adjusted concentration of a snapshot.
func (s *Scorer) CalculateAdjustedConcentration(snap *domain.TokenSnapshot) float64 {
	return s.Score(snap).Adjusted
}

// ClassifyRisk maps a score to a tier using the scorer's scheme.
func (s *Scorer) ClassifyRisk(score float64) domain.RiskTier {
	return s.scheme.Classify(score)
}

// Score computes base concentration, bot likelihood, adjusted concentration and tier.
func (s *Scorer) Score(snap *domain.TokenSnapshot) Score {
	if snap == nil {
		return Score{Tier: s.scheme.Classify(0)}
	}

	trades := SynthesizeTrades(snap, s.now())

	base := snapshotConcentration(snap)
	bot := BotLikelihood(snap.Attributes.SnipersCount, trades)
	adjusted := AdjustedConcentration(base, bot)

	return Score{
		Base:          base,
		BotLikelihood: bot,
		Adjusted:      adjusted,
		Tier:          s.scheme.Classify(adjusted),
	}
}
