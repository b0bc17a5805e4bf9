package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"token-risk-monitor/internal/ingestion"
	"token-risk-monitor/internal/logging"
)

// WSConfig configures the inbound feed endpoint.
type WSConfig struct {
	// ReadTimeout closes a connection that sends nothing, not even a pong, for this long. 0 disables it.
	ReadTimeout time.Duration
	// WriteTimeout bounds control frame writes.
	WriteTimeout time.Duration
	// PingInterval is interval for sending ping frames. 0 disables pings.
	PingInterval time.Duration
	// MaxMessageSize is the largest accepted frame in bytes. 0 means no limit.
	MaxMessageSize int64
}

// DefaultWSConfig returns default endpoint configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4 << 20,
	}
}

// WSHandler accepts feed connections and hands each text frame to the ingester.
// Each connection is served on its own goroutine by net/http.
type WSHandler struct {
	config   WSConfig
	ingester *ingestion.Ingester
	manager  *ConnectionManager
	upgrader websocket.Upgrader
	logger   *logrus.Entry
}

// NewWSHandler creates the feed endpoint handler.
func NewWSHandler(cfg WSConfig, ingester *ingestion.Ingester, manager *ConnectionManager, logger *logrus.Logger) *WSHandler {
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWSConfig().WriteTimeout
	}
	if manager == nil {
		manager = NewConnectionManager(0)
	}
	return &WSHandler{
		config:   cfg,
		ingester: ingester,
		manager:  manager,
		upgrader: websocket.Upgrader{
			// Feeds are relayed from browser sessions on other origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logging.Component(logger, "ws"),
	}
}

// ServeHTTP upgrades the request and runs the connection's read loop.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.manager.Register(r.RemoteAddr)
	if err != nil {
		h.logger.WithField("remote", r.RemoteAddr).Warn("rejecting connection: limit reached")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer h.manager.Remove(conn.ID)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.WithError(err).Debug("upgrade failed")
		return
	}
	defer ws.Close()

	logger := h.logger.WithFields(logrus.Fields{
		"conn":   conn.ID.String(),
		"remote": conn.RemoteAddr,
	})
	logger.Info("connection opened")
	defer logger.Info("connection closed")

	h.serve(r.Context(), ws, conn, logger)
}

func (h *WSHandler) serve(ctx context.Context, ws *websocket.Conn, conn *Connection, logger *logrus.Entry) {
	if h.config.MaxMessageSize > 0 {
		ws.SetReadLimit(h.config.MaxMessageSize)
	}
	h.extendDeadline(ws)
	ws.SetPongHandler(func(string) error {
		h.extendDeadline(ws)
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	if h.config.PingInterval > 0 {
		go h.pingLoop(ws, done)
	}

	// Unblock the reader on shutdown
	go func() {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(h.config.WriteTimeout)
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
			ws.Close()
		case <-done:
		}
	}()

	for {
		messageType, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Warn("read failed")
			}
			return
		}
		h.extendDeadline(ws)

		if messageType != websocket.TextMessage {
			continue
		}
		conn.frames.Add(1)

		result, err := h.ingester.Ingest(ctx, payload)
		if err != nil {
			// Bad frames never close the connection
			level := logrus.WarnLevel
			if errors.Is(err, ingestion.ErrBatchShape) {
				level = logrus.InfoLevel
			}
			logger.WithError(err).Log(level, "dropping frame")
			continue
		}
		if len(result.Skipped) > 0 {
			logger.WithField("skipped", len(result.Skipped)).Debug("frame had invalid records")
		}
	}
}

func (h *WSHandler) extendDeadline(ws *websocket.Conn) {
	if h.config.ReadTimeout > 0 {
		ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	}
}

// pingLoop sends periodic ping frames. WriteControl is safe alongside the reader.
func (h *WSHandler) pingLoop(ws *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.config.WriteTimeout)); err != nil {
				// Connection might be dead, reader will notice
				return
			}
		}
	}
}
