package connections

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TimeoutConfig holds the various timeout settings for WebSocket connections
type TimeoutConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

// DefaultTimeouts provides sensible default timeout values
var DefaultTimeouts = TimeoutConfig{
	PongWait:   30 * time.Second,
	PingPeriod: 27 * time.Second, // (PongWait * 9) / 10
	WriteWait:  10 * time.Second,
}

// Conn is a chat websocket bound to a session. Writes are serialized so a
// turn worker and the read loop can both answer the client.
type Conn struct {
	ws        *websocket.Conn
	sessionID string
	timeouts  TimeoutConfig
	writeMu   sync.Mutex
}

// SessionID returns the session the connection belongs to.
func (c *Conn) SessionID() string {
	return c.sessionID
}

// WriteJSON sends v as one text frame.
func (c *Conn) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.timeouts.WriteWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}

// Ping sends a ping control frame.
func (c *Conn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.timeouts.WriteWait))
}

// Close sends a close frame with code and reason and closes the socket.
func (c *Conn) Close(code int, reason string) error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(c.timeouts.WriteWait))
	return c.ws.Close()
}

// Manager handles WebSocket connection lifecycle
type Manager struct {
	connections sync.Map
	timeouts    TimeoutConfig
}

// NewManager creates a new connection manager with the specified timeouts
func NewManager(timeouts TimeoutConfig) *Manager {
	return &Manager{
		timeouts: timeouts,
	}
}

// AddConnection registers a websocket for sessionID and returns its handle
func (m *Manager) AddConnection(ws *websocket.Conn, sessionID string) *Conn {
	conn := &Conn{ws: ws, sessionID: sessionID, timeouts: m.timeouts}
	m.connections.Store(conn, struct{}{})
	return conn
}

// RemoveConnection removes a WebSocket connection
func (m *Manager) RemoveConnection(conn *Conn) {
	m.connections.Delete(conn)
}

// GetConnectionCount returns the current number of active connections
func (m *Manager) GetConnectionCount() int {
	count := 0
	m.connections.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// HasConnection checks if a specific connection exists
func (m *Manager) HasConnection(conn *Conn) bool {
	_, exists := m.connections.Load(conn)
	return exists
}

// GetTimeouts returns the current timeout configuration
func (m *Manager) GetTimeouts() TimeoutConfig {
	return m.timeouts
}

// CloseAll closes every tracked connection with a going-away frame. It
// returns the number of connections closed.
func (m *Manager) CloseAll(reason string) int {
	closed := 0
	m.connections.Range(func(key, value interface{}) bool {
		conn := key.(*Conn)
		_ = conn.Close(websocket.CloseGoingAway, reason)
		m.connections.Delete(conn)
		closed++
		return true
	})
	return closed
}
