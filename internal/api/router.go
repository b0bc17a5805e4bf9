// Package api serves the ranked token view as JSON.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"token-risk-monitor/internal/logging"
	"token-risk-monitor/internal/ranking"
	"token-risk-monitor/internal/storage"
)

// Options contains configuration for creating the API router.
type Options struct {
	Ranker *ranking.Ranker
	Scores storage.ScoreStore // optional, enables score history
	Logger *logrus.Logger
}

// NewRouter builds the gin engine serving /api routes.
func NewRouter(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logging.Component(opts.Logger, "api")))

	controller := NewTokenController(opts.Ranker, opts.Scores)
	controller.RegisterRoutes(r.Group("/api"))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

// requestLogger logs each request at debug level, failures at warn.
func requestLogger(logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}
