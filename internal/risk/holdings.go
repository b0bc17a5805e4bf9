// Package risk scores token concentration risk from declared snapshot attributes.
//
// Model inputs (holder distribution, recent trades) are synthesized from aggregate
// attributes, never fetched. All functions are pure; time enters only through
// explicit arguments or the Scorer clock.
package risk

import (
	"fmt"

	"token-risk-monitor/internal/domain"
)

// Holdings maps a synthetic holder label to its share of supply in percent.
// Shares are not required to sum to 100.
type Holdings map[string]float64

const (
	shareDecayStep      = 0.1
	remainingHoldersKey = "remaining_holders"

	// maxMaterializedHolders bounds the top decile scored from explicit shares.
	// Larger deciles are scored from closed-form sums of the same sequence.
	maxMaterializedHolders = 1024
)

// SynthesizeHoldings derives a synthetic holder distribution from the audit's
// top-holders percentage and the holder count.
//
// The top decile (ceil(N/10) holders) gets linearly decaying shares
// top_holders_perc * (1 - 0.1*i). The remainder 100 - sum(top shares) divided by
// the number of remaining holders is stored as a single aggregate entry, omitted
// when no holders remain. Absent audit or holder count yields empty holdings.
func SynthesizeHoldings(snap *domain.TokenSnapshot) Holdings {
	holdings := make(Holdings)
	if snap == nil {
		return holdings
	}

	audit := snap.Attributes.Audit
	count := snap.Attributes.HoldersCount
	if audit == nil || count == nil {
		return holdings
	}

	holders := *count
	if holders < 0 {
		holders = 0
	}

	topN := topDecile(holders)
	allocated := 0.0
	for i := int64(0); i < topN; i++ {
		share := audit.TopHoldersPerc * (1 - shareDecayStep*float64(i))
		holdings[fmt.Sprintf("holder_%d", i)] = share
		allocated += share
	}

	remainingHolders := holders - topN
	if remainingHolders > 0 {
		holdings[remainingHoldersKey] = (100 - allocated) / float64(remainingHolders)
	}

	return holdings
}

// topDecile returns ceil(n / 10) using integer arithmetic.
func topDecile(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return (n + 9) / 10
}

// holdingsStats returns the total and the sum of squares of the synthetic
// distribution without materializing it. The top decile shares
// top*(1 - 0.1*i) for i in [0, k) sum in closed form; the remainder entry is
// added as in SynthesizeHoldings. ok is false when audit or holder count
// is absent.
func holdingsStats(snap *domain.TokenSnapshot) (total, sumSq float64, ok bool) {
	if snap == nil || snap.Attributes.Audit == nil || snap.Attributes.HoldersCount == nil {
		return 0, 0, false
	}

	holders := *snap.Attributes.HoldersCount
	if holders < 0 {
		holders = 0
	}
	top := snap.Attributes.Audit.TopHoldersPerc
	topN := topDecile(holders)

	k := float64(topN)
	sumI := k * (k - 1) / 2              // Σ i
	sumI2 := (k - 1) * k * (2*k - 1) / 6 // Σ i²
	allocated := top * (k - shareDecayStep*sumI)
	sumSq = top * top * (k - 2*shareDecayStep*sumI + shareDecayStep*shareDecayStep*sumI2)
	total = allocated

	if remaining := holders - topN; remaining > 0 {
		r := (100 - allocated) / float64(remaining)
		total += r
		sumSq += r * r
	}
	return total, sumSq, true
}
