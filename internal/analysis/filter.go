// Package analysis evaluates token snapshots against trading-quality criteria.
//
// Criteria are conservative with sparse data: a threshold on an absent
// attribute fails rather than defaulting to zero.
package analysis

import "token-risk-monitor/internal/domain"

// TokenFilter holds the quality thresholds for a token.
type TokenFilter struct {
	MinMarketCap      float64
	MaxMarketCap      float64
	MaxTopHoldersPerc float64
	MinBuySellRatio   float64
	MinVolume         float64
	MinPooledSOL      float64
	MinVolumeMcap     float64 // exclusive lower bound
	RequireTwitter    bool
}

// DefaultTokenFilter returns the standard screening thresholds.
func DefaultTokenFilter() TokenFilter {
	return TokenFilter{
		MinMarketCap:      40_000,
		MaxMarketCap:      500_000,
		MaxTopHoldersPerc: 25,
		MinBuySellRatio:   1.2,
		MinVolume:         5_000,
		MinPooledSOL:      20,
		MinVolumeMcap:     0.1,
		RequireTwitter:    true,
	}
}

// HasPositiveMomentum reports whether buy pressure, volume and pool depth
// all clear their thresholds.
func (f TokenFilter) HasPositiveMomentum(attrs *domain.TokenAttributes) bool {
	if attrs == nil || attrs.BuysCount == nil || attrs.Volume == nil ||
		attrs.PooledSOL == nil || attrs.FDV == nil {
		return false
	}

	return BuySellRatio(attrs) >= f.MinBuySellRatio &&
		*attrs.Volume >= f.MinVolume &&
		*attrs.PooledSOL >= f.MinPooledSOL &&
		VolumeMcapRatio(attrs) > f.MinVolumeMcap
}

// MeetsCriteria reports whether the snapshot passes market cap, holder
// concentration, social presence and momentum checks.
func (f TokenFilter) MeetsCriteria(snap *domain.TokenSnapshot) bool {
	if snap == nil {
		return false
	}
	attrs := &snap.Attributes

	if attrs.FDV == nil || *attrs.FDV < f.MinMarketCap || *attrs.FDV > f.MaxMarketCap {
		return false
	}

	if attrs.Audit == nil || attrs.Audit.TopHoldersPerc > f.MaxTopHoldersPerc {
		return false
	}

	if f.RequireTwitter && !attrs.Socials.Has("twitter") {
		return false
	}

	return f.HasPositiveMomentum(attrs)
}

// IsLaunchCandidate reports a freshly launched token with a seeded pool
// and fully burned LP tokens.
func IsLaunchCandidate(snap *domain.TokenSnapshot) bool {
	if snap == nil {
		return false
	}
	attrs := snap.Attributes
	return attrs.PooledSOL != nil && *attrs.PooledSOL >= 2 &&
		attrs.Audit != nil && attrs.Audit.LPBurnedPerc == 100
}

// BuySellRatio returns buys / sells. Absent or zero sells count as one.
func BuySellRatio(attrs *domain.TokenAttributes) float64 {
	if attrs == nil || attrs.BuysCount == nil {
		return 0
	}
	sells := int64(1)
	if attrs.SellsCount != nil && *attrs.SellsCount > 0 {
		sells = *attrs.SellsCount
	}
	return float64(*attrs.BuysCount) / float64(sells)
}

// VolumeMcapRatio returns volume / fdv, or 0 when either is absent or fdv is not positive.
func VolumeMcapRatio(attrs *domain.TokenAttributes) float64 {
	if attrs == nil || attrs.Volume == nil || attrs.FDV == nil || *attrs.FDV <= 0 {
		return 0
	}
	return *attrs.Volume / *attrs.FDV
}
