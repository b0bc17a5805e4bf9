// Package ranking scores the registry contents, filters and orders them, and
// runs the periodic refresh pass that exports the result.
package ranking

import (
	"sort"
	"strings"
	"time"

	"token-risk-monitor/internal/analysis"
	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/registry"
	"token-risk-monitor/internal/risk"
)

// RankedToken is one scored registry entry.
type RankedToken struct {
	ID       string
	Snapshot *domain.TokenSnapshot // private copy
	SeenAt   time.Time

	Score   risk.Score
	Metrics analysis.Metrics

	Address         string
	ValidAddress    bool
	MeetsCriteria   bool // passes the ranker's quality criteria
	LaunchCandidate bool
}

// Record converts the token to a score history record.
func (t RankedToken) Record(scheme string, scoredAt time.Time) *domain.ScoreRecord {
	return &domain.ScoreRecord{
		TokenID:       t.ID,
		Symbol:        t.Metrics.Symbol,
		Scheme:        scheme,
		Base:          t.Score.Base,
		BotLikelihood: t.Score.BotLikelihood,
		Adjusted:      t.Score.Adjusted,
		Tier:          t.Score.Tier,
		ScoredAt:      scoredAt.UnixMilli(),
	}
}

// Filter selects ranked tokens. The zero value matches everything.
type Filter struct {
	Tiers               []domain.RiskTier // empty = any tier
	Socials             []string          // platforms that must all be present
	Criteria            *analysis.TokenFilter
	RequireValidAddress bool
	Limit               int // 0 = no limit
}

// Match reports whether the token passes every configured condition.
func (f Filter) Match(t *RankedToken) bool {
	if len(f.Tiers) > 0 && !containsTier(f.Tiers, t.Score.Tier) {
		return false
	}
	for _, platform := range f.Socials {
		if !t.Snapshot.Attributes.Socials.Has(platform) {
			return false
		}
	}
	if f.Criteria != nil && !f.Criteria.MeetsCriteria(t.Snapshot) {
		return false
	}
	if f.RequireValidAddress && !t.ValidAddress {
		return false
	}
	return true
}

func containsTier(tiers []domain.RiskTier, tier domain.RiskTier) bool {
	for _, t := range tiers {
		if t == tier {
			return true
		}
	}
	return false
}

// Ranker scores registry snapshots. It is safe for concurrent use.
type Ranker struct {
	registry *registry.Registry
	scorer   *risk.Scorer
	criteria analysis.TokenFilter
	now      func() time.Time
}

// RankerOptions contains configuration for creating a Ranker.
type RankerOptions struct {
	Registry *registry.Registry
	Scorer   *risk.Scorer
	Criteria *analysis.TokenFilter // Default: analysis.DefaultTokenFilter()
	Clock    func() time.Time      // Default: time.Now
}

// NewRanker creates a new Ranker.
func NewRanker(opts RankerOptions) *Ranker {
	criteria := analysis.DefaultTokenFilter()
	if opts.Criteria != nil {
		criteria = *opts.Criteria
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = risk.NewScorer(risk.ScorerOptions{Clock: clock})
	}
	return &Ranker{
		registry: opts.Registry,
		scorer:   scorer,
		criteria: criteria,
		now:      clock,
	}
}

// Scorer returns the ranker's default scorer.
func (r *Ranker) Scorer() *risk.Scorer {
	return r.scorer
}

// ScorerFor returns a scorer for scheme sharing the ranker's clock.
func (r *Ranker) ScorerFor(scheme risk.Scheme) *risk.Scorer {
	if scheme == r.scorer.Scheme() {
		return r.scorer
	}
	return risk.NewScorer(risk.ScorerOptions{Scheme: scheme, Clock: r.now})
}

// Registry returns the registry the ranker reads.
func (r *Ranker) Registry() *registry.Registry {
	return r.registry
}

// Rank scores every registry entry with the default scorer and returns the
// tokens matching f, ordered by tier, adjusted score and id.
func (r *Ranker) Rank(f Filter) []RankedToken {
	return r.RankWith(r.scorer, f)
}

// RankWith is Rank with an explicit scorer, e.g. for a different scheme.
func (r *Ranker) RankWith(scorer *risk.Scorer, f Filter) []RankedToken {
	return Rank(r.registry.GetAllSnapshot(), scorer, r.criteria, r.now(), f)
}

// Get scores a single registry entry.
func (r *Ranker) Get(scorer *risk.Scorer, id string) (RankedToken, bool) {
	entry, ok := r.registry.GetEntry(id)
	if !ok {
		return RankedToken{}, false
	}
	if scorer == nil {
		scorer = r.scorer
	}
	return score(entry, scorer, r.criteria, r.now()), true
}

// Rank scores entries, applies f and sorts the result. Entries are not modified.
func Rank(entries []registry.Entry, scorer *risk.Scorer, criteria analysis.TokenFilter, now time.Time, f Filter) []RankedToken {
	out := make([]RankedToken, 0, len(entries))
	for _, e := range entries {
		if e.Snapshot == nil {
			continue
		}
		t := score(e, scorer, criteria, now)
		if !f.Match(&t) {
			continue
		}
		out = append(out, t)
	}

	Sort(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func score(e registry.Entry, scorer *risk.Scorer, criteria analysis.TokenFilter, now time.Time) RankedToken {
	address, valid := analysis.TokenAddress(&e.Snapshot.Attributes)
	return RankedToken{
		ID:              e.ID,
		Snapshot:        e.Snapshot,
		SeenAt:          e.SeenAt,
		Score:           scorer.Score(e.Snapshot),
		Metrics:         analysis.FromSnapshot(e.Snapshot, now),
		Address:         address,
		ValidAddress:    valid,
		MeetsCriteria:   criteria.MeetsCriteria(e.Snapshot),
		LaunchCandidate: analysis.IsLaunchCandidate(e.Snapshot),
	}
}

// Sort orders tokens by tier (Low first), then adjusted score, then id.
func Sort(tokens []RankedToken) {
	sort.SliceStable(tokens, func(i, j int) bool {
		a, b := tokens[i], tokens[j]
		if a.Score.Tier != b.Score.Tier {
			return a.Score.Tier < b.Score.Tier
		}
		if a.Score.Adjusted != b.Score.Adjusted {
			return a.Score.Adjusted < b.Score.Adjusted
		}
		return a.ID < b.ID
	})
}

// CountByTier counts tokens per tier identifier. Every tier is present.
func CountByTier(tokens []RankedToken) map[string]int {
	counts := make(map[string]int, len(domain.AllRiskTiers))
	for _, tier := range domain.AllRiskTiers {
		counts[tier.String()] = 0
	}
	for _, t := range tokens {
		counts[t.Score.Tier.String()]++
	}
	return counts
}

// ParseTiers parses tier names, ignoring empty entries. Comma-separated
// values are split.
func ParseTiers(values []string) ([]domain.RiskTier, error) {
	var tiers []domain.RiskTier
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			tier, err := domain.ParseRiskTier(part)
			if err != nil {
				return nil, err
			}
			tiers = append(tiers, tier)
		}
	}
	return tiers, nil
}
