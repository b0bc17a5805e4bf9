package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/logging"
	"token-risk-monitor/internal/ranking"
	"token-risk-monitor/internal/registry"
	"token-risk-monitor/internal/risk"
	"token-risk-monitor/internal/storage/memory"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func snapshot(id string, holders int64, top float64) *domain.TokenSnapshot {
	return &domain.TokenSnapshot{
		ID:   id,
		Kind: "token",
		Attributes: domain.TokenAttributes{
			Symbol:       strPtr(id),
			HoldersCount: int64Ptr(holders),
			Audit:        &domain.Audit{TopHoldersPerc: top},
		},
	}
}

type fixture struct {
	router http.Handler
	reg    *registry.Registry
	scores *memory.ScoreStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return testNow }
	reg := registry.New(registry.Options{Clock: clock})
	reg.Upsert(snapshot("risky", 10, 50))
	reg.Upsert(snapshot("calm", 100, 10))

	social := snapshot("social", 100, 10)
	social.Attributes.Socials = &domain.Socials{Twitter: strPtr("https://x.com/social")}
	reg.Upsert(social)

	ranker := ranking.NewRanker(ranking.RankerOptions{
		Registry: reg,
		Scorer:   risk.NewScorer(risk.ScorerOptions{Scheme: risk.SchemeFixed, Clock: clock}),
		Clock:    clock,
	})
	scores := memory.NewScoreStore()
	return &fixture{
		router: NewRouter(Options{Ranker: ranker, Scores: scores, Logger: logging.Discard()}),
		reg:    reg,
		scores: scores,
	}
}

func (f *fixture) get(t *testing.T, target string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func tokenIDs(tokens []TokenResponse) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.ID
	}
	return out
}

func TestListTokens_Ordered(t *testing.T) {
	f := newFixture(t)

	var resp ListResponse
	require.Equal(t, http.StatusOK, f.get(t, "/api/tokens", &resp))

	assert.Equal(t, "fixed", resp.Scheme)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, []string{"calm", "social", "risky"}, tokenIDs(resp.Tokens))
	assert.Equal(t, domain.RiskVeryHigh, resp.Tokens[2].Tier)
	assert.Equal(t, "Very High Risk", resp.Tokens[2].TierLabel)
	assert.InDelta(t, 0.8, resp.Tokens[2].Adjusted, 1e-9)
	assert.Nil(t, resp.Tokens[0].Attributes)
}

func TestListTokens_Filters(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"tier", "?tier=VeryHigh", []string{"risky"}},
		{"tier list", "?tier=Low,VeryHigh", []string{"calm", "social", "risky"}},
		{"repeated tier", "?tier=Low&tier=High", []string{"calm", "social"}},
		{"social", "?social=twitter", []string{"social"}},
		{"limit", "?limit=1", []string{"calm"}},
		{"criteria", "?criteria=true", []string{}},
		{"proportional", "?scheme=proportional&tier=VeryHigh", []string{"risky"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ListResponse
			require.Equal(t, http.StatusOK, f.get(t, "/api/tokens"+tt.query, &resp))
			assert.Equal(t, tt.want, tokenIDs(resp.Tokens))
		})
	}
}

func TestListTokens_BadQuery(t *testing.T) {
	f := newFixture(t)

	for _, query := range []string{
		"?tier=extreme",
		"?scheme=quadratic",
		"?limit=-1",
		"?limit=abc",
		"?social=myspace",
	} {
		t.Run(query, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/tokens"+query, nil))
		})
	}
}

func TestGetToken(t *testing.T) {
	f := newFixture(t)

	var resp TokenResponse
	require.Equal(t, http.StatusOK, f.get(t, "/api/tokens/risky", &resp))
	assert.Equal(t, "risky", resp.ID)
	assert.Equal(t, int64(10), resp.Holders)
	assert.True(t, resp.SeenAt.Equal(testNow))
	require.NotNil(t, resp.Attributes)
	require.NotNil(t, resp.Attributes.HoldersCount)
	assert.Equal(t, int64(10), *resp.Attributes.HoldersCount)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/tokens/missing", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/tokens/risky?scheme=nope", nil))
}

func TestTokenHistory(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.scores.InsertBulk(context.Background(), []*domain.ScoreRecord{
		{TokenID: "risky", Scheme: "fixed", Adjusted: 0.8, Tier: domain.RiskVeryHigh, ScoredAt: testNow.UnixMilli()},
		{TokenID: "risky", Scheme: "proportional", Adjusted: 0.8, Tier: domain.RiskVeryHigh, ScoredAt: testNow.UnixMilli()},
		{TokenID: "calm", Scheme: "fixed", Adjusted: 0.1, Tier: domain.RiskLow, ScoredAt: testNow.UnixMilli()},
	}))

	var resp struct {
		ID      string         `json:"id"`
		History []HistoryPoint `json:"history"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/api/tokens/risky/history?scheme=fixed", &resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, "fixed", resp.History[0].Scheme)
	assert.True(t, resp.History[0].ScoredAt.Equal(testNow))
}

func TestTokenHistory_Disabled(t *testing.T) {
	reg := registry.New(registry.Options{})
	router := NewRouter(Options{
		Ranker: ranking.NewRanker(ranking.RankerOptions{Registry: reg}),
		Logger: logging.Discard(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tokens/x/history", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestTierSummary(t *testing.T) {
	f := newFixture(t)

	var resp struct {
		Scheme string      `json:"scheme"`
		Tiers  []TierCount `json:"tiers"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/api/tiers", &resp))
	require.Len(t, resp.Tiers, len(domain.AllRiskTiers))

	got := map[domain.RiskTier]int{}
	for _, row := range resp.Tiers {
		got[row.Tier] = row.Count
	}
	assert.Equal(t, 2, got[domain.RiskLow])
	assert.Equal(t, 1, got[domain.RiskVeryHigh])
	assert.Equal(t, 0, got[domain.RiskUnknown])
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/nope", nil))
}
