package risk

import (
	"math"
	"sort"

	"token-risk-monitor/internal/domain"
)

// Bot detection weights and thresholds.
const (
	sniperWeight         = 0.2
	uniformTradeWeight   = 0.3
	sameSideWeight       = 0.2
	fewWalletsWeight     = 0.3
	minClusterSize       = 3
	priceVarianceLimit   = 1e-5
	amountVarianceLimit  = 1e-3
	fewWalletsMinTrades  = 5 // cluster must have more trades than this
	fewWalletsMaxWallets = 3
	maxBotLikelihood     = 1.0
	botBoostExponent     = 1.5
)

// BaseConcentration computes the Herfindahl-Hirschman index of the holdings,
// normalized for the holder count when it is known.
//
// Returns 0 for empty holdings or a non-positive total. With n known and n > 1
// the result is (hhi - 1/n) / (1 - 1/n), which may be negative for dispersed
// holdings and is not clamped. For unknown n or n <= 1 the raw hhi is returned,
// since the normalization is undefined at n = 1.
func BaseConcentration(holdings Holdings, holdersCount *int64) float64 {
	if len(holdings) == 0 {
		return 0
	}

	// Sum in a fixed order so repeated scoring is bit-for-bit stable.
	values := make([]float64, 0, len(holdings))
	for _, v := range holdings {
		values = append(values, v)
	}
	sort.Float64s(values)

	total := 0.0
	for _, v := range values {
		total += v
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}

	hhi := 0.0
	for _, v := range values {
		share := v / total
		hhi += share * share
	}

	return normalizeHHI(hhi, holdersCount)
}

// snapshotConcentration is BaseConcentration(SynthesizeHoldings(snap), n) with
// cost independent of the declared holder count.
func snapshotConcentration(snap *domain.TokenSnapshot) float64 {
	if snap == nil {
		return 0
	}
	count := snap.Attributes.HoldersCount
	if count == nil || topDecile(*count) <= maxMaterializedHolders {
		return BaseConcentration(SynthesizeHoldings(snap), count)
	}

	total, sumSq, ok := holdingsStats(snap)
	if !ok || total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	return normalizeHHI(sumSq/(total*total), count)
}

func normalizeHHI(hhi float64, holdersCount *int64) float64 {
	if holdersCount == nil || *holdersCount <= 1 {
		return hhi
	}

	n := float64(*holdersCount)
	return (hhi - 1/n) / (1 - 1/n)
}

// BotLikelihood estimates automated trading presence in [0, 1].
//
// Snipers add 0.2. Trades are grouped by Unix second; every group of at least
// three trades adds 0.3 for near-constant price and amount, 0.2 when all
// consecutive trades share a side, and 0.3 when more than five trades come
// from at most three wallets. The sum is capped at 1.
func BotLikelihood(snipersCount *int64, trades []domain.TradePattern) float64 {
	likelihood := 0.0
	if snipersCount != nil && *snipersCount > 0 {
		likelihood += sniperWeight
	}

	for _, cluster := range clusterBySecond(trades) {
		likelihood += clusterScore(cluster)
	}

	return math.Min(likelihood, maxBotLikelihood)
}

// AdjustedConcentration boosts the base concentration for bot activity:
// base * (1 + bot^1.5). bot is clamped to [0, 1].
func AdjustedConcentration(base, botLikelihood float64) float64 {
	bot := math.Max(0, math.Min(botLikelihood, maxBotLikelihood))
	return base * (1 + math.Pow(bot, botBoostExponent))
}

// clusterBySecond groups trades by the Unix second of their timestamp,
// preserving input order within each group. Pre-epoch timestamps are ignored.
func clusterBySecond(trades []domain.TradePattern) map[int64][]domain.TradePattern {
	clusters := make(map[int64][]domain.TradePattern)
	for _, t := range trades {
		sec := t.Timestamp.Unix()
		if sec < 0 {
			continue
		}
		clusters[sec] = append(clusters[sec], t)
	}
	return clusters
}

// clusterScore returns the bot contribution of one same-second cluster.
func clusterScore(cluster []domain.TradePattern) float64 {
	if len(cluster) < minClusterSize {
		return 0
	}

	score := 0.0

	prices := make([]float64, len(cluster))
	amounts := make([]float64, len(cluster))
	for i, t := range cluster {
		prices[i] = t.Price
		amounts[i] = t.Amount
	}
	if computeVariance(prices) < priceVarianceLimit && computeVariance(amounts) < amountVarianceLimit {
		score += uniformTradeWeight
	}

	if allSameSide(cluster) {
		score += sameSideWeight
	}

	wallets := make(map[string]struct{}, len(cluster))
	for _, t := range cluster {
		wallets[t.Wallet] = struct{}{}
	}
	if len(cluster) > fewWalletsMinTrades && len(wallets) <= fewWalletsMaxWallets {
		score += fewWalletsWeight
	}

	return score
}

// computeVariance calculates population variance as mean of squares minus square of mean.
// Returns 0 for an empty slice.
func computeVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	sumSq := 0.0
	for _, v := range values {
		sum += v
		sumSq += v * v
	}
	n := float64(len(values))
	mean := sum / n
	return sumSq/n - mean*mean
}

func allSameSide(trades []domain.TradePattern) bool {
	for i := 1; i < len(trades); i++ {
		if trades[i].Side != trades[i-1].Side {
			return false
		}
	}
	return true
}
