package domain

import "time"

// TradeSide is the direction of a trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// String returns the string representation of TradeSide.
func (s TradeSide) String() string {
	return string(s)
}

// TradePattern is one synthetic trade derived from aggregate snapshot counts.
// Never persisted.
type TradePattern struct {
	Timestamp time.Time
	Price     float64
	Amount    float64
	Wallet    string
	Side      TradeSide
}
