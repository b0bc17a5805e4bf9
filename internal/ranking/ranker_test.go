package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-risk-monitor/internal/analysis"
	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/registry"
	"token-risk-monitor/internal/risk"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func strPtr(v string) *string       { return &v }
func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

// concentrated scores VeryHigh: ten holders, top decile holds half.
func concentrated(id string) *domain.TokenSnapshot {
	return &domain.TokenSnapshot{
		ID:   id,
		Kind: "token",
		Attributes: domain.TokenAttributes{
			HoldersCount: int64Ptr(10),
			Audit:        &domain.Audit{TopHoldersPerc: 50},
		},
	}
}

// dispersed scores Low: a hundred holders, top decile holds ten percent.
func dispersed(id string) *domain.TokenSnapshot {
	return &domain.TokenSnapshot{
		ID:   id,
		Kind: "token",
		Attributes: domain.TokenAttributes{
			HoldersCount: int64Ptr(100),
			Audit:        &domain.Audit{TopHoldersPerc: 10},
		},
	}
}

func sparse(id string) *domain.TokenSnapshot {
	return &domain.TokenSnapshot{ID: id, Kind: "token"}
}

func newTestRanker(snaps ...*domain.TokenSnapshot) *Ranker {
	reg := registry.New(registry.Options{Clock: func() time.Time { return testNow }})
	for _, s := range snaps {
		reg.Upsert(s)
	}
	clock := func() time.Time { return testNow }
	return NewRanker(RankerOptions{
		Registry: reg,
		Scorer:   risk.NewScorer(risk.ScorerOptions{Scheme: risk.SchemeFixed, Clock: clock}),
		Clock:    clock,
	})
}

func ids(tokens []RankedToken) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.ID)
	}
	return out
}

func TestRanker_OrderByTierScoreID(t *testing.T) {
	r := newTestRanker(concentrated("V"), dispersed("L2"), sparse("L1b"), sparse("L1a"))

	got := r.Rank(Filter{})

	assert.Equal(t, []string{"L1a", "L1b", "L2", "V"}, ids(got))
	assert.Equal(t, domain.RiskLow, got[0].Score.Tier)
	assert.Equal(t, domain.RiskLow, got[2].Score.Tier)
	assert.Greater(t, got[2].Score.Adjusted, got[1].Score.Adjusted)
	assert.Equal(t, domain.RiskVeryHigh, got[3].Score.Tier)
	assert.InDelta(t, 0.8, got[3].Score.Base, 1e-9)
}

func TestRanker_TierFilter(t *testing.T) {
	r := newTestRanker(concentrated("V"), dispersed("L"))

	got := r.Rank(Filter{Tiers: []domain.RiskTier{domain.RiskVeryHigh, domain.RiskHigh}})
	assert.Equal(t, []string{"V"}, ids(got))

	got = r.Rank(Filter{Tiers: []domain.RiskTier{domain.RiskModerate}})
	assert.Empty(t, got)
}

func TestRanker_SocialFilter(t *testing.T) {
	withTwitter := sparse("T")
	withTwitter.Attributes.Socials = &domain.Socials{Twitter: strPtr("https://x.com/t")}
	withBoth := sparse("B")
	withBoth.Attributes.Socials = &domain.Socials{
		Twitter:  strPtr("https://x.com/b"),
		Telegram: strPtr("https://t.me/b"),
	}
	r := newTestRanker(withTwitter, withBoth, sparse("N"))

	assert.Equal(t, []string{"B", "T"}, ids(r.Rank(Filter{Socials: []string{"twitter"}})))
	assert.Equal(t, []string{"B"}, ids(r.Rank(Filter{Socials: []string{"twitter", "telegram"}})))
	assert.Empty(t, r.Rank(Filter{Socials: []string{"reddit"}}))
}

func TestRanker_CriteriaAndAddressFilters(t *testing.T) {
	good := &domain.TokenSnapshot{
		ID:   "G",
		Kind: "token",
		Attributes: domain.TokenAttributes{
			TokenAddress: strPtr("So11111111111111111111111111111111111111112"),
			FDV:          float64Ptr(100_000),
			Volume:       float64Ptr(20_000),
			BuysCount:    int64Ptr(150),
			SellsCount:   int64Ptr(100),
			PooledSOL:    float64Ptr(50),
			Audit:        &domain.Audit{TopHoldersPerc: 15},
			Socials:      &domain.Socials{Twitter: strPtr("https://x.com/g")},
		},
	}
	bad := sparse("X")
	bad.Attributes.TokenAddress = strPtr("not-base58-0OIl")
	r := newTestRanker(good, bad)

	criteria := analysis.DefaultTokenFilter()
	assert.Equal(t, []string{"G"}, ids(r.Rank(Filter{Criteria: &criteria})))
	assert.Equal(t, []string{"G"}, ids(r.Rank(Filter{RequireValidAddress: true})))

	all := r.Rank(Filter{})
	require.Len(t, all, 2)
	for _, tok := range all {
		switch tok.ID {
		case "G":
			assert.True(t, tok.MeetsCriteria)
			assert.True(t, tok.ValidAddress)
		case "X":
			assert.False(t, tok.MeetsCriteria)
			assert.False(t, tok.ValidAddress)
			assert.Equal(t, "not-base58-0OIl", tok.Address)
		}
	}
}

func TestRanker_Limit(t *testing.T) {
	r := newTestRanker(sparse("a"), sparse("b"), sparse("c"))
	assert.Equal(t, []string{"a", "b"}, ids(r.Rank(Filter{Limit: 2})))
	assert.Len(t, r.Rank(Filter{Limit: 10}), 3)
}

func TestRanker_RankWithOtherScheme(t *testing.T) {
	r := newTestRanker(concentrated("V"))
	proportional := risk.NewScorer(risk.ScorerOptions{Scheme: risk.SchemeProportional})

	got := r.RankWith(proportional, Filter{})
	require.Len(t, got, 1)
	// 0.8 falls in (0.75, 1.0]
	assert.Equal(t, domain.RiskVeryHigh, got[0].Score.Tier)

	r = newTestRanker(dispersed("L"))
	got = r.RankWith(proportional, Filter{})
	require.Len(t, got, 1)
	assert.Equal(t, domain.RiskLow, got[0].Score.Tier)
}

func TestRanker_Get(t *testing.T) {
	r := newTestRanker(concentrated("V"))

	tok, ok := r.Get(nil, "V")
	require.True(t, ok)
	assert.Equal(t, domain.RiskVeryHigh, tok.Score.Tier)
	assert.Equal(t, testNow, tok.SeenAt)

	_, ok = r.Get(nil, "missing")
	assert.False(t, ok)
}

func TestRanker_DoesNotMutateRegistry(t *testing.T) {
	r := newTestRanker(concentrated("V"))

	got := r.Rank(Filter{})
	require.Len(t, got, 1)
	got[0].Snapshot.Attributes.HoldersCount = int64Ptr(1)

	snap, _ := r.Registry().Get("V")
	assert.Equal(t, int64(10), *snap.Attributes.HoldersCount)
}

func TestCountByTier(t *testing.T) {
	r := newTestRanker(concentrated("V"), dispersed("L"), sparse("S"))
	counts := CountByTier(r.Rank(Filter{}))

	assert.Equal(t, map[string]int{
		"Low":      2,
		"Moderate": 0,
		"High":     0,
		"VeryHigh": 1,
		"Unknown":  0,
	}, counts)
}

func TestParseTiers(t *testing.T) {
	tiers, err := ParseTiers([]string{"Low", "very_high,high", ""})
	require.NoError(t, err)
	assert.Equal(t, []domain.RiskTier{domain.RiskLow, domain.RiskVeryHigh, domain.RiskHigh}, tiers)

	_, err = ParseTiers([]string{"extreme"})
	assert.Error(t, err)
}

func TestRankedToken_Record(t *testing.T) {
	r := newTestRanker(concentrated("V"))
	tok, _ := r.Get(nil, "V")

	rec := tok.Record("fixed", testNow)
	assert.Equal(t, "V", rec.TokenID)
	assert.Equal(t, "fixed", rec.Scheme)
	assert.Equal(t, domain.RiskVeryHigh, rec.Tier)
	assert.Equal(t, testNow.UnixMilli(), rec.ScoredAt)
	assert.InDelta(t, tok.Score.Adjusted, rec.Adjusted, 0)
}

func TestRanker_ScorerFor(t *testing.T) {
	r := newTestRanker(concentrated("a"))

	if got := r.ScorerFor(risk.SchemeFixed); got != r.Scorer() {
		t.Errorf("got a new scorer for the default scheme, want the ranker's own")
	}

	prop := r.ScorerFor(risk.SchemeProportional)
	require.NotNil(t, prop)
	assert.Equal(t, risk.SchemeProportional, prop.Scheme())

	tok, ok := r.Get(prop, "a")
	require.True(t, ok)
	assert.Equal(t, domain.RiskVeryHigh, tok.Score.Tier)
}
