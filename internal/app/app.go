// Package app wires configuration, storage, ingestion, ranking and the HTTP
// front into one runnable service.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"token-risk-monitor/internal/api"
	"token-risk-monitor/internal/config"
	"token-risk-monitor/internal/ingestion"
	"token-risk-monitor/internal/logging"
	"token-risk-monitor/internal/observability"
	"token-risk-monitor/internal/publish"
	"token-risk-monitor/internal/ranking"
	"token-risk-monitor/internal/registry"
	"token-risk-monitor/internal/reporting"
	"token-risk-monitor/internal/risk"
	"token-risk-monitor/internal/server"
)

// App centralizes dependency wiring for the service.
type App struct {
	cfg    *config.Config
	logger *logrus.Logger
	log    *logrus.Entry

	stores    *stores
	registry  *registry.Registry
	ingester  *ingestion.Ingester
	sweeper   *ranking.Sweeper
	refresher *ranking.Refresher
	publisher publish.Publisher
	feed      *ingestion.FeedClient
	server    *server.Server
}

// New builds an App. It connects storage and restores the registry from
// persisted snapshots, so it needs a context.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	scheme, err := risk.ParseScheme(cfg.Risk.Scheme)
	if err != nil {
		return nil, err
	}

	st, err := openStores(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		log:    logging.Component(logger, "app"),
		stores: st,
	}

	a.registry = registry.New(registry.Options{TTL: cfg.Registry.TTL})
	if err := a.restore(ctx); err != nil {
		st.close()
		return nil, err
	}

	a.ingester = ingestion.NewIngester(ingestion.IngesterOptions{
		Registry: a.registry,
		Store:    st.snapshots,
		Logger:   logger,
	})

	ranker := ranking.NewRanker(ranking.RankerOptions{
		Registry: a.registry,
		Scorer:   risk.NewScorer(risk.ScorerOptions{Scheme: scheme}),
	})
	a.sweeper = ranking.NewSweeper(a.registry, st.snapshots, logger)

	a.publisher = publish.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher = publish.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	var reports ranking.ReportWriter
	if cfg.Refresh.OutputDir != "" {
		reports = reporting.NewFileWriter(cfg.Refresh.OutputDir, reporting.NewGenerator())
	}

	a.refresher = ranking.NewRefresher(ranking.RefresherOptions{
		Ranker:    ranker,
		Sweeper:   a.sweeper,
		Scores:    st.scores,
		Publisher: a.publisher,
		Reports:   reports,
		Interval:  cfg.Refresh.Interval,
		Logger:    logger,
	})

	if cfg.Feed.URL != "" {
		feedCfg := ingestion.DefaultFeedConfig()
		feedCfg.URL = cfg.Feed.URL
		feedCfg.Channel = cfg.Feed.Channel
		feedCfg.ReconnectDelay = cfg.Feed.ReconnectDelay
		feedCfg.MaxReconnectDelay = cfg.Feed.MaxReconnectDelay
		a.feed = ingestion.NewFeedClient(feedCfg, a.ingester, logger)
	}

	a.server = server.New(server.Options{
		Addr:   cfg.Server.Addr(),
		WSPath: cfg.WebSocket.Path,
		WS: server.WSConfig{
			ReadTimeout:    cfg.WebSocket.ReadTimeout,
			WriteTimeout:   cfg.WebSocket.WriteTimeout,
			PingInterval:   cfg.WebSocket.PingInterval,
			MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		},
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxConnections:  cfg.WebSocket.MaxConnections,
		Ingester:        a.ingester,
		API:             api.NewRouter(api.Options{Ranker: ranker, Scores: st.scores, Logger: logger}),
		Refresh:         a.refresher,
		Scheme:          scheme.String(),
		Logger:          logger,
	})

	return a, nil
}

// restore loads persisted snapshots into the registry.
func (a *App) restore(ctx context.Context) error {
	snaps, err := a.stores.snapshots.List(ctx)
	if err != nil {
		return fmt.Errorf("restore snapshots: %w", err)
	}
	n := a.registry.Restore(snaps)
	observability.RecordRestored(n)
	observability.UpdateRegistrySize(a.registry.Len())
	if n > 0 {
		a.log.WithField("tokens", n).Info("registry restored")
	}
	return nil
}

// Registry returns the shared token registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Server returns the HTTP front.
func (a *App) Server() *server.Server {
	return a.server
}

// Run starts background services and blocks until ctx cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Run(gctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.refresher.Run(gctx)
	})
	g.Go(func() error {
		return a.sweeper.Run(gctx, a.cfg.Registry.SweepInterval)
	})
	if a.feed != nil {
		g.Go(func() error {
			return a.feed.Run(gctx)
		})
	}

	a.log.WithFields(logrus.Fields{
		"addr":    a.cfg.Server.Addr(),
		"backend": a.cfg.Storage.Backend,
		"scheme":  a.cfg.Risk.Scheme,
		"feed":    a.feed != nil,
	}).Info("service started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (a *App) cleanup() {
	if err := a.publisher.Close(); err != nil {
		a.log.WithError(err).Warn("error closing publisher")
	}
	if err := a.stores.close(); err != nil {
		a.log.WithError(err).Warn("error closing stores")
	}
}
