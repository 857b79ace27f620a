// Package visualizer implements the PCM publisher contract: a
// best-effort, unreliable, unordered `send(frame_bytes)` used only to
// feed a UI visualization. The spec's out-of-scope WebRTC transport
// is not available in this corpus; gorilla/websocket fills the same
// "fan out decoded PCM to whichever clients are listening" role and
// is never allowed to push back on the decode loop.
package visualizer

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Publisher is the narrow contract the Decoder Driver calls into; it
// must never block the decode thread.
type Publisher interface {
	Publish(frameBytes []byte)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans out PCM frames to every currently-connected client. A slow
// client misses frames rather than stalling publication for everyone
// else; a client whose write fails is removed.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	out  chan []byte
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]*client)}
}

// ServeHTTP upgrades an incoming request to a websocket connection
// and registers it as a subscriber until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("visualizer: upgrade failed", "error", err)
		return
	}

	c := &client{id: uuid.New(), conn: conn, out: make(chan []byte, 32)}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	go h.writeLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
		c.conn.Close()
	}()

	for frame := range c.out {
		if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return
		}
	}
}

// Publish best-effort fans frame out to every connected client.
// Clients whose outbound queue is full are skipped for this frame
// rather than blocking the caller.
func (h *Hub) Publish(frameBytes []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.out <- frameBytes:
		default:
			// Backpressure: drop this frame for this client, unordered
			// and unreliable delivery is the documented contract.
		}
	}
}

// ClientCount reports how many subscribers are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
