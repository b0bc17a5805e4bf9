package domain

// ScoreRecord is one scoring result of a token in a ranking pass.
// Corresponds to token_scores table in ClickHouse.
type ScoreRecord struct {
	TokenID       string   // registry id
	Symbol        string   // token symbol (empty if absent)
	Scheme        string   // classification scheme used for Tier
	Base          float64  // normalized HHI
	BotLikelihood float64  // [0, 1]
	Adjusted      float64  // base * (1 + bot^1.5)
	Tier          RiskTier // classification of Adjusted
	ScoredAt      int64    // pass timestamp (ms)
}
