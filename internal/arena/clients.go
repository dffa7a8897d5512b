package arena

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/sxweetlollipop2912/racing-arena/internal/game"
)

// ClientManager tracks every attached connection and the nickname each
// one is bound to after a successful registration. It is the game
// controller's Sender: all outbound traffic flows through it.
// Thread-safe for concurrent access.
type ClientManager struct {
	mu       sync.RWMutex
	clients  map[string]*Client // key: connection ID
	bindings map[string]string  // connection ID -> nickname
}

var _ game.Sender = (*ClientManager)(nil)

// NewClientManager creates an empty client manager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:  make(map[string]*Client),
		bindings: make(map[string]string),
	}
}

// Attach registers a freshly accepted connection.
func (cm *ClientManager) Attach(c *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clients[c.ID()] = c
}

// Detach removes a connection and returns the nickname it was bound
// to, "" if it never registered.
func (cm *ClientManager) Detach(connID string) string {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	nickname := cm.bindings[connID]
	delete(cm.bindings, connID)
	delete(cm.clients, connID)
	return nickname
}

// Bind associates a connection with a nickname.
func (cm *ClientManager) Bind(connID, nickname string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.bindings[connID] = nickname
}

// Nickname returns the nickname bound to a connection, "" if none.
func (cm *ClientManager) Nickname(connID string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.bindings[connID]
}

// ResetBindings unbinds every connection while keeping it attached.
// Called when a finished match returns the game to the lobby.
func (cm *ClientManager) ResetBindings() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	clear(cm.bindings)
}

// Count returns the number of attached connections.
func (cm *ClientManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// SendTo delivers one frame to a single connection. Unknown IDs are
// ignored: the player may have disconnected already.
func (cm *ClientManager) SendTo(connID, msg string) {
	cm.mu.RLock()
	c := cm.clients[connID]
	cm.mu.RUnlock()
	if c == nil {
		return
	}
	if err := c.Send(msg); err != nil {
		slog.Warn("failed to send to client", "client", c.Remote(), "error", err)
	}
}

// Broadcast delivers one frame to every registered connection whose
// nickname is not excluded. Connections that never registered, or were
// unbound by a game reset, receive nothing. A slow client is dropped,
// never waited for.
func (cm *ClientManager) Broadcast(msg string, except ...string) {
	cm.mu.RLock()
	targets := make([]*Client, 0, len(cm.clients))
	for id, c := range cm.clients {
		nickname, bound := cm.bindings[id]
		if !bound || slices.Contains(except, nickname) {
			continue
		}
		targets = append(targets, c)
	}
	cm.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(msg); err != nil {
			slog.Warn("failed to broadcast to client", "client", c.Remote(), "error", err)
		}
	}
}
