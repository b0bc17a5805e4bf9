package analysis

import (
	"time"

	"token-risk-monitor/internal/domain"
)

// Metrics is a flat summary of a snapshot for display and export.
type Metrics struct {
	ID              string
	Name            string
	Symbol          string
	PriceUSD        *float64
	MarketCap       float64
	Holders         int64
	TopHoldersPerc  float64
	Volume          float64
	VolumeMcapRatio float64
	BuySellRatio    float64
	AgeHours        *float64 // nil when created_timestamp is absent
}

// FromSnapshot summarizes a snapshot. now is used for the token age.
func FromSnapshot(snap *domain.TokenSnapshot, now time.Time) Metrics {
	attrs := &snap.Attributes

	m := Metrics{
		ID:              snap.ID,
		Name:            deref(attrs.Name),
		Symbol:          deref(attrs.Symbol),
		MarketCap:       deref(attrs.FDV),
		Holders:         deref(attrs.HoldersCount),
		Volume:          deref(attrs.Volume),
		VolumeMcapRatio: VolumeMcapRatio(attrs),
		BuySellRatio:    BuySellRatio(attrs),
	}
	if attrs.PriceUSD != nil {
		price := *attrs.PriceUSD
		m.PriceUSD = &price
	}
	if attrs.Audit != nil {
		m.TopHoldersPerc = attrs.Audit.TopHoldersPerc
	}
	if attrs.CreatedTimestamp != nil {
		age := float64(now.Unix()-*attrs.CreatedTimestamp) / 3600
		m.AgeHours = &age
	}
	return m
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
