// Package main runs the token risk service: the feed WebSocket endpoint, the
// token API and the periodic ranking pass on one listener.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"token-risk-monitor/internal/app"
	"token-risk-monitor/internal/config"
	"token-risk-monitor/internal/logging"
)

// forceExitAfter bounds graceful shutdown after the first signal.
const forceExitAfter = 30 * time.Second

func main() {
	configDir := flag.String("config", "config", "Directory holding default.toml and local.toml")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("Failed to create logger: %v", err)
	}
	log := logging.Component(logger, "main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.WithError(err).Fatal("Failed to build service")
	}

	// Channel to signal completion
	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("Initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Warn("Second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(forceExitAfter):
			log.Warn("Graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = a.Run(ctx)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("Service error")
	}
	log.Info("Shutdown complete")
}
