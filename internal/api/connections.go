package api

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnManager tracks the open assistant WebSocket per user and tab.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnManager creates an empty connection registry.
func NewConnManager() *ConnManager {
	return &ConnManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Get returns the open connection for a user and tab.
func (m *ConnManager) Get(userID, sessionID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[userID][sessionID]
}

// Register adds a connection. An older connection from the same tab is closed.
func (m *ConnManager) Register(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*websocket.Conn)
	}
	existing := m.active[userID][sessionID]
	m.active[userID][sessionID] = conn
	m.mu.Unlock()

	if existing != nil && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}
	slog.Info("Assistant socket registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes conn if it is still the tab's current connection.
func (m *ConnManager) Unregister(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Assistant socket unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// Count returns the number of open connections.
func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}

// CloseAll closes every connection. Hijacked connections are not closed by
// http.Server.Shutdown, so the server calls this on shutdown.
func (m *ConnManager) CloseAll(reason string) {
	m.mu.Lock()
	active := m.active
	m.active = make(map[string]map[string]*websocket.Conn)
	m.mu.Unlock()

	// Close outside the lock: the handshake waits on the reader, which
	// unregisters on exit.
	for userID, sessions := range active {
		for sid, conn := range sessions {
			_ = conn.Close(websocket.StatusGoingAway, reason)
			slog.Info("Assistant socket closed", "user_id", userID, "session_id", sid)
		}
	}
}
