package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"token-risk-monitor/internal/logging"
)

// FeedConfig configures the upstream feed client.
type FeedConfig struct {
	// URL is the upstream WebSocket endpoint.
	URL string
	// Channel is the subscription channel; empty sends no subscribe command.
	Channel string
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		Channel:           "DiscoverLpChannel",
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// FeedClient subscribes to an upstream discovery feed and hands every frame to
// an Ingester. It reconnects with exponential backoff until its context ends.
type FeedClient struct {
	config   FeedConfig
	ingester *Ingester
	logger   *logrus.Entry
	dialer   websocket.Dialer
}

// NewFeedClient creates a feed client. Zero durations in cfg take defaults.
func NewFeedClient(cfg FeedConfig, ingester *Ingester, logger *logrus.Logger) *FeedClient {
	def := DefaultFeedConfig()
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.MaxReconnectDelay == 0 {
		cfg.MaxReconnectDelay = def.MaxReconnectDelay
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	return &FeedClient{
		config:   cfg,
		ingester: ingester,
		logger:   logging.Component(logger, "feed").WithField("url", cfg.URL),
		dialer:   websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Run connects and consumes the feed until ctx is cancelled. It returns nil on
// cancellation; connection failures are retried, never returned.
func (c *FeedClient) Run(ctx context.Context) error {
	delay := c.config.ReconnectDelay

	for {
		received, err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		// Reset delay once a session delivered data
		if received > 0 {
			delay = c.config.ReconnectDelay
		}
		c.logger.WithError(err).WithField("retry_in", delay).Warn("feed disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// session runs one connection until it fails. It returns the number of frames read.
func (c *FeedClient) session(ctx context.Context) (int, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("websocket dial: %w", err)
	}

	// writeMu serialises writers; gorilla allows one concurrent writer.
	var writeMu sync.Mutex
	write := func(messageType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		return conn.WriteMessage(messageType, data)
	}

	// Pongs to our pings count as liveness on a quiet feed.
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	done := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(done)
		conn.Close()
		wg.Wait()
	}()

	// Unblock ReadMessage on shutdown
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			_ = write(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-done:
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.pingLoop(done, write)
	}()

	if c.config.Channel != "" {
		msg, err := subscribeCommand(c.config.Channel)
		if err != nil {
			return 0, err
		}
		if err := write(websocket.TextMessage, msg); err != nil {
			return 0, fmt.Errorf("write subscribe: %w", err)
		}
	}
	c.logger.WithField("channel", c.config.Channel).Info("feed connected")

	received := 0
	for {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			return received, err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		received++

		if _, err := c.ingester.Ingest(ctx, message); err != nil {
			c.logger.WithError(err).Warn("dropping feed frame")
		}
	}
}

func (c *FeedClient) pingLoop(done <-chan struct{}, write func(int, []byte) error) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				// Connection might be dead, reader will handle reconnect
				return
			}
		}
	}
}

// subscribeCommand builds the channel subscription message. The identifier is a
// JSON document encoded as a string.
func subscribeCommand(channel string) ([]byte, error) {
	identifier, err := json.Marshal(map[string]string{"channel": channel})
	if err != nil {
		return nil, fmt.Errorf("encode identifier: %w", err)
	}
	return json.Marshal(struct {
		Command    string `json:"command"`
		Identifier string `json:"identifier"`
	}{
		Command:    "subscribe",
		Identifier: string(identifier),
	})
}
