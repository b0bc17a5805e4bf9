package reporting

import (
	"time"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/ranking"
)

// Generator builds reports from ranked tokens.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report. tokens must already be in ranking order.
func (g *Generator) Generate(scheme string, tokens []ranking.RankedToken) *Report {
	counts := ranking.CountByTier(tokens)
	summary := make([]TierSummaryRow, 0, len(domain.AllRiskTiers))
	for _, tier := range domain.AllRiskTiers {
		summary = append(summary, TierSummaryRow{
			Tier:  tier.String(),
			Label: tier.Label(),
			Count: counts[tier.String()],
		})
	}

	rows := make([]TokenRow, 0, len(tokens))
	var launch []string
	for i, t := range tokens {
		rows = append(rows, tokenRow(i+1, t))
		if t.LaunchCandidate {
			launch = append(launch, t.Snapshot.DisplayName())
		}
	}

	return &Report{
		GeneratedAt:      g.now(),
		Scheme:           scheme,
		TokenCount:       len(tokens),
		TierSummary:      summary,
		Tokens:           rows,
		LaunchCandidates: launch,
	}
}

func tokenRow(rank int, t ranking.RankedToken) TokenRow {
	m := t.Metrics
	return TokenRow{
		Rank:            rank,
		ID:              t.ID,
		Name:            m.Name,
		Symbol:          m.Symbol,
		Tier:            t.Score.Tier.String(),
		Base:            t.Score.Base,
		BotLikelihood:   t.Score.BotLikelihood,
		Adjusted:        t.Score.Adjusted,
		PriceUSD:        m.PriceUSD,
		MarketCap:       m.MarketCap,
		Holders:         m.Holders,
		TopHoldersPerc:  m.TopHoldersPerc,
		Volume:          m.Volume,
		VolumeMcapRatio: m.VolumeMcapRatio,
		BuySellRatio:    m.BuySellRatio,
		AgeHours:        m.AgeHours,
		Address:         t.Address,
		MeetsCriteria:   t.MeetsCriteria,
		LaunchCandidate: t.LaunchCandidate,
	}
}
