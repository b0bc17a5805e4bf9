package ingestion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-risk-monitor/internal/logging"
	"token-risk-monitor/internal/registry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSubscribeCommand(t *testing.T) {
	msg, err := subscribeCommand("DiscoverLpChannel")
	require.NoError(t, err)

	var cmd struct {
		Command    string `json:"command"`
		Identifier string `json:"identifier"`
	}
	require.NoError(t, json.Unmarshal(msg, &cmd))
	assert.Equal(t, "subscribe", cmd.Command)
	assert.JSONEq(t, `{"channel":"DiscoverLpChannel"}`, cmd.Identifier)
}

func TestFeedClient_IngestsDiscoverFrames(t *testing.T) {
	var subscribed atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		if strings.Contains(string(msg), `"subscribe"`) {
			subscribed.Store(true)
		}

		frames := []string{
			`{"type":"welcome"}`,
			`{"type":"ping","message":1700000000}`,
			`{"identifier":"x","message":{"discover":{"data":[{"id":"A","type":"token","attributes":{"name":"Alpha"}}]}}}`,
		}
		for _, frame := range frames {
			if err := c.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	reg := registry.New(registry.Options{})
	ing := NewIngester(IngesterOptions{Registry: reg, Logger: logging.Discard()})

	cfg := DefaultFeedConfig()
	cfg.URL = wsURL(server)
	client := NewFeedClient(cfg, ing, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	waitFor(t, 2*time.Second, func() bool { return reg.Len() == 1 })
	assert.True(t, subscribed.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFeedClient_Reconnects(t *testing.T) {
	var connections atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := connections.Add(1)
		id := "T" + string(rune('0'+n))
		frame := `{"tokens":[{"id":"` + id + `","type":"token","attributes":{}}]}`
		_ = c.WriteMessage(websocket.TextMessage, []byte(frame))
		// Drop the connection to force a reconnect
		c.Close()
	}))
	defer server.Close()

	reg := registry.New(registry.Options{})
	ing := NewIngester(IngesterOptions{Registry: reg, Logger: logging.Discard()})

	cfg := FeedConfig{
		URL:               wsURL(server),
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 20 * time.Millisecond,
	}
	client := NewFeedClient(cfg, ing, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	waitFor(t, 3*time.Second, func() bool { return reg.Len() >= 2 })
	if got := connections.Load(); got < 2 {
		t.Errorf("connections: got %d, want >= 2", got)
	}
}

func TestFeedClient_DialFailureRetriesUntilCancel(t *testing.T) {
	ing := NewIngester(IngesterOptions{Logger: logging.Discard()})
	cfg := FeedConfig{
		URL:               "ws://127.0.0.1:1/unreachable",
		ReconnectDelay:    5 * time.Millisecond,
		MaxReconnectDelay: 10 * time.Millisecond,
	}
	client := NewFeedClient(cfg, ing, logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := client.Run(ctx); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestFeedClient_PongsKeepQuietFeedConnected(t *testing.T) {
	var connections atomic.Int32

	// Answers pings (gorilla's default handler) but never sends data.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		connections.Add(1)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ing := NewIngester(IngesterOptions{Logger: logging.Discard()})
	cfg := FeedConfig{
		URL:               wsURL(server),
		PingInterval:      20 * time.Millisecond,
		ReadTimeout:       100 * time.Millisecond,
		ReconnectDelay:    5 * time.Millisecond,
		MaxReconnectDelay: 10 * time.Millisecond,
	}
	client := NewFeedClient(cfg, ing, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	waitFor(t, 2*time.Second, func() bool { return connections.Load() == 1 })
	time.Sleep(5 * cfg.ReadTimeout)
	assert.Equal(t, int32(1), connections.Load(), "quiet feed reconnected despite pongs")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
