package server

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"token-risk-monitor/internal/observability"
)

// ErrTooManyConnections is returned when the connection limit is reached.
var ErrTooManyConnections = errors.New("too many connections")

// Connection is one registered feed connection.
type Connection struct {
	ID          uuid.UUID
	RemoteAddr  string
	ConnectedAt time.Time

	frames atomic.Int64
}

// Frames returns the number of text frames received on the connection.
func (c *Connection) Frames() int64 {
	return c.frames.Load()
}

// ConnectionInfo is a point-in-time view of a connection.
type ConnectionInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
	Frames      int64     `json:"frames"`
}

// ConnectionManager tracks open feed connections and enforces the limit.
type ConnectionManager struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*Connection
	max   int // 0 = unlimited
	now   func() time.Time
}

// NewConnectionManager creates a manager allowing at most limit connections.
func NewConnectionManager(limit int) *ConnectionManager {
	return &ConnectionManager{
		conns: make(map[uuid.UUID]*Connection),
		max:   limit,
		now:   time.Now,
	}
}

// Register adds a connection or returns ErrTooManyConnections.
func (m *ConnectionManager) Register(remoteAddr string) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.max > 0 && len(m.conns) >= m.max {
		observability.RecordConnectionRejected()
		return nil, ErrTooManyConnections
	}

	conn := &Connection{
		ID:          uuid.New(),
		RemoteAddr:  remoteAddr,
		ConnectedAt: m.now(),
	}
	m.conns[conn.ID] = conn
	observability.RecordConnectionOpened()
	return conn, nil
}

// Remove unregisters a connection. Removing an unknown id is a no-op.
func (m *ConnectionManager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conns[id]; !ok {
		return
	}
	delete(m.conns, id)
	observability.RecordConnectionClosed()
}

// Count returns the number of open connections.
func (m *ConnectionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// List returns open connections ordered by connect time.
func (m *ConnectionManager) List() []ConnectionInfo {
	m.mu.Lock()
	out := make([]ConnectionInfo, 0, len(m.conns))
	for _, c := range m.conns {
		out = append(out, ConnectionInfo{
			ID:          c.ID.String(),
			RemoteAddr:  c.RemoteAddr,
			ConnectedAt: c.ConnectedAt,
			Frames:      c.Frames(),
		})
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}
