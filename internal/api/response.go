package api

import (
	"time"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/ranking"
)

// ListResponse is the body of GET /api/tokens.
type ListResponse struct {
	Scheme string          `json:"scheme"`
	Count  int             `json:"count"`
	Tokens []TokenResponse `json:"tokens"`
}

// TokenResponse is the JSON view of one ranked token.
type TokenResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Symbol        string          `json:"symbol"`
	Tier          domain.RiskTier `json:"tier"`
	TierLabel     string          `json:"tier_label"`
	Base          float64         `json:"base"`
	BotLikelihood float64         `json:"bot_likelihood"`
	Adjusted      float64         `json:"adjusted"`

	PriceUSD        *float64 `json:"price_usd,omitempty"`
	MarketCap       float64  `json:"market_cap"`
	Holders         int64    `json:"holders"`
	TopHoldersPerc  float64  `json:"top_holders_perc"`
	Volume          float64  `json:"volume"`
	VolumeMcapRatio float64  `json:"volume_mcap_ratio"`
	BuySellRatio    float64  `json:"buy_sell_ratio"`
	AgeHours        *float64 `json:"age_hours,omitempty"`

	Address         string    `json:"address,omitempty"`
	ValidAddress    bool      `json:"valid_address"`
	MeetsCriteria   bool      `json:"meets_criteria"`
	LaunchCandidate bool      `json:"launch_candidate"`
	SeenAt          time.Time `json:"seen_at"`

	// Attributes is only set on the single-token view.
	Attributes *domain.TokenAttributes `json:"attributes,omitempty"`
}

// HistoryPoint is one stored score of a token.
type HistoryPoint struct {
	Scheme        string          `json:"scheme"`
	Base          float64         `json:"base"`
	BotLikelihood float64         `json:"bot_likelihood"`
	Adjusted      float64         `json:"adjusted"`
	Tier          domain.RiskTier `json:"tier"`
	ScoredAt      time.Time       `json:"scored_at"`
}

// TierCount is one row of the tier summary.
type TierCount struct {
	Tier  domain.RiskTier `json:"tier"`
	Label string          `json:"label"`
	Count int             `json:"count"`
}

func newTokenResponse(t ranking.RankedToken, withAttributes bool) TokenResponse {
	resp := TokenResponse{
		ID:              t.ID,
		Name:            t.Metrics.Name,
		Symbol:          t.Metrics.Symbol,
		Tier:            t.Score.Tier,
		TierLabel:       t.Score.Tier.Label(),
		Base:            t.Score.Base,
		BotLikelihood:   t.Score.BotLikelihood,
		Adjusted:        t.Score.Adjusted,
		PriceUSD:        t.Metrics.PriceUSD,
		MarketCap:       t.Metrics.MarketCap,
		Holders:         t.Metrics.Holders,
		TopHoldersPerc:  t.Metrics.TopHoldersPerc,
		Volume:          t.Metrics.Volume,
		VolumeMcapRatio: t.Metrics.VolumeMcapRatio,
		BuySellRatio:    t.Metrics.BuySellRatio,
		AgeHours:        t.Metrics.AgeHours,
		Address:         t.Address,
		ValidAddress:    t.ValidAddress,
		MeetsCriteria:   t.MeetsCriteria,
		LaunchCandidate: t.LaunchCandidate,
		SeenAt:          t.SeenAt.UTC(),
	}
	if withAttributes && t.Snapshot != nil {
		attrs := t.Snapshot.Attributes.Clone()
		resp.Attributes = &attrs
	}
	return resp
}
