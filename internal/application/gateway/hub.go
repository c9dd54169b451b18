// Package gateway pushes task and reminder events to connected browsers and
// queues reminders for users who are offline.
package gateway

import (
	"errors"
	"sync"
)

// ErrNotConnected indicates the user has no live socket on this instance.
var ErrNotConnected = errors.New("user not connected")

// Conn is the slice of a websocket connection the hub needs. Satisfied by
// *websocket.Conn.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// connection serializes writes to one socket. Gorilla connections support a
// single concurrent writer, and both bus handlers and the replay loop write.
type connection struct {
	mu sync.Mutex
	ws Conn
}

func (c *connection) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// Hub tracks the live sockets on this gateway instance, one per user. A new
// connection for a user replaces and closes the previous one.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*connection
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: map[string]*connection{}}
}

// Register adds the user's socket, closing any previous one.
func (h *Hub) Register(userID string, ws Conn) {
	h.mu.Lock()
	previous := h.conns[userID]
	h.conns[userID] = &connection{ws: ws}
	h.mu.Unlock()

	if previous != nil {
		_ = previous.ws.Close()
	}
}

// Remove drops the user's entry, but only if it still points at the given
// socket; a reconnect may have replaced it already.
func (h *Hub) Remove(userID string, ws Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	current, ok := h.conns[userID]
	if !ok || current.ws != ws {
		return false
	}
	delete(h.conns, userID)
	return true
}

// Connected reports whether the user has a live socket here.
func (h *Hub) Connected(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[userID]
	return ok
}

// Send writes one frame to the user's socket.
func (h *Hub) Send(userID string, v any) error {
	h.mu.Lock()
	conn, ok := h.conns[userID]
	h.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}
	return conn.send(v)
}
