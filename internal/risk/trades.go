package risk

import (
	"fmt"
	"time"

	"token-risk-monitor/internal/domain"
)

// maxTradesPerSide caps synthetic records emitted per trade side.
const maxTradesPerSide = 20

// SynthesizeTrades derives recent buy/sell records from aggregate counts.
//
// A side is emitted only when its count and price_usd are present and the count
// is positive. Each record carries the price, the average amount volume/count
// (absent volume counts as 0) and a distinct wallet label. All records share the
// timestamp now, so downstream clustering sees them as a same-second burst.
func SynthesizeTrades(snap *domain.TokenSnapshot, now time.Time) []domain.TradePattern {
	if snap == nil || snap.Attributes.PriceUSD == nil {
		return nil
	}

	attrs := snap.Attributes
	price := *attrs.PriceUSD
	volume := 0.0
	if attrs.Volume != nil {
		volume = *attrs.Volume
	}

	var trades []domain.TradePattern
	trades = appendSide(trades, attrs.BuysCount, price, volume, now, "buyer", domain.TradeSideBuy)
	trades = appendSide(trades, attrs.SellsCount, price, volume, now, "seller", domain.TradeSideSell)
	return trades
}

func appendSide(trades []domain.TradePattern, count *int64, price, volume float64, now time.Time, walletPrefix string, side domain.TradeSide) []domain.TradePattern {
	if count == nil || *count <= 0 {
		return trades
	}

	avgAmount := volume / float64(*count)
	n := *count
	if n > maxTradesPerSide {
		n = maxTradesPerSide
	}

	for i := int64(0); i < n; i++ {
		trades = append(trades, domain.TradePattern{
			Timestamp: now,
			Price:     price,
			Amount:    avgAmount,
			Wallet:    fmt.Sprintf("%s_%d", walletPrefix, i),
			Side:      side,
		})
	}
	return trades
}
