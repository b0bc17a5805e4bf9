package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"token-risk-monitor/internal/analysis"
	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/ranking"
	"token-risk-monitor/internal/risk"
	"token-risk-monitor/internal/storage"
)

// maxLimit caps a single listing.
const maxLimit = 1000

// TokenController serves ranked tokens.
type TokenController struct {
	ranker *ranking.Ranker
	scores storage.ScoreStore
}

// NewTokenController creates a controller. scores may be nil.
func NewTokenController(ranker *ranking.Ranker, scores storage.ScoreStore) *TokenController {
	return &TokenController{ranker: ranker, scores: scores}
}

// RegisterRoutes mounts the token routes on rg.
func (c *TokenController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tokens", c.handleListTokens)
	rg.GET("/tokens/:id", c.handleGetToken)
	rg.GET("/tokens/:id/history", c.handleTokenHistory)
	rg.GET("/tiers", c.handleTierSummary)
}

type listQuery struct {
	Tier         []string `form:"tier"`
	Social       []string `form:"social" binding:"dive,oneof=twitter telegram reddit website medium"`
	Scheme       string   `form:"scheme" binding:"omitempty,oneof=fixed proportional"`
	Limit        int      `form:"limit" binding:"min=0,max=1000"`
	Criteria     bool     `form:"criteria"`
	ValidAddress bool     `form:"valid_address"`
}

func (c *TokenController) handleListTokens(ctx *gin.Context) {
	var q listQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tiers, err := ranking.ParseTiers(q.Tier)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := ranking.Filter{
		Tiers:               tiers,
		Socials:             q.Social,
		RequireValidAddress: q.ValidAddress,
		Limit:               q.Limit,
	}
	if filter.Limit == 0 {
		filter.Limit = maxLimit
	}
	if q.Criteria {
		criteria := analysis.DefaultTokenFilter()
		filter.Criteria = &criteria
	}

	scorer := c.scorer(q.Scheme)
	tokens := c.ranker.RankWith(scorer, filter)

	items := make([]TokenResponse, 0, len(tokens))
	for _, t := range tokens {
		items = append(items, newTokenResponse(t, false))
	}
	ctx.JSON(http.StatusOK, ListResponse{
		Scheme: scorer.Scheme().String(),
		Count:  len(items),
		Tokens: items,
	})
}

func (c *TokenController) handleGetToken(ctx *gin.Context) {
	scheme := ctx.Query("scheme")
	if _, err := risk.ParseScheme(scheme); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, ok := c.ranker.Get(c.scorer(scheme), ctx.Param("id"))
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		return
	}
	ctx.JSON(http.StatusOK, newTokenResponse(token, true))
}

func (c *TokenController) handleTokenHistory(ctx *gin.Context) {
	if c.scores == nil {
		ctx.JSON(http.StatusNotImplemented, gin.H{"error": "score history disabled"})
		return
	}

	records, err := c.scores.GetByTokenID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	scheme := ctx.Query("scheme")
	history := make([]HistoryPoint, 0, len(records))
	for _, r := range records {
		if scheme != "" && r.Scheme != scheme {
			continue
		}
		history = append(history, HistoryPoint{
			Scheme:        r.Scheme,
			Base:          r.Base,
			BotLikelihood: r.BotLikelihood,
			Adjusted:      r.Adjusted,
			Tier:          r.Tier,
			ScoredAt:      time.UnixMilli(r.ScoredAt).UTC(),
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"id": ctx.Param("id"), "history": history})
}

func (c *TokenController) handleTierSummary(ctx *gin.Context) {
	scheme := ctx.Query("scheme")
	if _, err := risk.ParseScheme(scheme); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scorer := c.scorer(scheme)
	counts := ranking.CountByTier(c.ranker.RankWith(scorer, ranking.Filter{}))

	summary := make([]TierCount, 0, len(domain.AllRiskTiers))
	for _, tier := range domain.AllRiskTiers {
		summary = append(summary, TierCount{Tier: tier, Label: tier.Label(), Count: counts[tier.String()]})
	}
	ctx.JSON(http.StatusOK, gin.H{"scheme": scorer.Scheme().String(), "tiers": summary})
}

// scorer returns the scorer for a validated scheme name; empty means the ranker default.
func (c *TokenController) scorer(name string) *risk.Scorer {
	if name == "" {
		return c.ranker.Scorer()
	}
	scheme, err := risk.ParseScheme(name)
	if err != nil {
		return c.ranker.Scorer()
	}
	return c.ranker.ScorerFor(scheme)
}
