package reporting

import "time"

// Report is the ranking report of one refresh pass.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Scheme      string
	TokenCount  int

	// Tier distribution, in tier order
	TierSummary []TierSummaryRow

	// Tokens in ranking order (tier, adjusted score, id)
	Tokens []TokenRow

	// Names of tokens with launch-ready liquidity
	LaunchCandidates []string
}

// TierSummaryRow is the token count of one tier.
type TierSummaryRow struct {
	Tier  string
	Label string
	Count int
}

// TokenRow is one row in the token table.
type TokenRow struct {
	Rank            int
	ID              string
	Name            string
	Symbol          string
	Tier            string
	Base            float64
	BotLikelihood   float64
	Adjusted        float64
	PriceUSD        *float64
	MarketCap       float64
	Holders         int64
	TopHoldersPerc  float64
	Volume          float64
	VolumeMcapRatio float64
	BuySellRatio    float64
	AgeHours        *float64
	Address         string
	MeetsCriteria   bool
	LaunchCandidate bool
}
