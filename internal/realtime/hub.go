// Package realtime maintains websocket clients and broadcasts the active
// connection count to all of them whenever it changes.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/nkoval/backoffice/internal/pkg/metrics"
)

// Event names on the websocket channel.
const (
	EventActiveConnections = "activeConnections"
	EventGetConnections    = "getActiveConnections"
)

// Message is the envelope for every websocket frame the hub sends.
type Message struct {
	Event string `json:"event"`
	Data  int    `json:"data"`
}

// client is a connected websocket peer. The send channel is buffered; a
// client that cannot keep up is dropped rather than blocking the hub.
type client struct {
	send chan Message
}

// Hub tracks connected clients and fans the counter out to them.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Count returns the current number of connected clients. Never negative.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// register adds the client and broadcasts the new count to everyone,
// the new client included.
func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.broadcastLocked(count)
	h.mu.Unlock()

	metrics.ActiveWebsocketConnections.Set(float64(count))
	h.logger.Debug("websocket client connected", "active", count)
}

// unregister removes the client and broadcasts the new count to the rest.
// Safe to call more than once for the same client.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.broadcastLocked(count)
	h.mu.Unlock()

	metrics.ActiveWebsocketConnections.Set(float64(count))
	h.logger.Debug("websocket client disconnected", "active", count)
}

// broadcastLocked sends the count to every client. Callers hold h.mu.
func (h *Hub) broadcastLocked(count int) {
	msg := Message{Event: EventActiveConnections, Data: count}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow client; the writer goroutine will notice the closed
			// connection and unregister it.
		}
	}
}

// notify sends the current count to a single client, answering an explicit
// request without disturbing the others.
func (h *Hub) notify(c *client) {
	h.mu.Lock()
	count := len(h.clients)
	h.mu.Unlock()

	select {
	case c.send <- Message{Event: EventActiveConnections, Data: count}:
	default:
	}
}
