package refserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event types sent on the /events feed.
const (
	EventSubscribed = "subscribed"
	EventCreated    = "created"
	EventUpdated    = "updated"
	EventDeleted    = "deleted"
)

// Resource kinds carried by events.
const (
	KindHouse  = "house"
	KindRoom   = "room"
	KindDevice = "device"
)

// Event describes one mutation of the store.
type Event struct {
	Type string    `json:"type"`
	Kind string    `json:"kind,omitempty"`
	ID   string    `json:"id,omitempty"`
	At   time.Time `json:"at"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// connWrapper wraps a WebSocket connection with its write mutex
type connWrapper struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *connWrapper) send(e Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(e)
}

// Hub fans store events out to every connected websocket client.
type Hub struct {
	logger  *zap.Logger
	now     func() time.Time
	conns   []*connWrapper
	connsMu sync.Mutex
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, now func() time.Time) *Hub {
	return &Hub{logger: logger, now: now}
}

// ServeHTTP upgrades the request and keeps the connection registered until the
// client goes away. The first message on a connection is a "subscribed" event,
// sent once the connection receives broadcasts.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	wrapper := &connWrapper{conn: conn}

	// Hold the write lock until "subscribed" is out so a concurrent Publish
	// cannot get ahead of it.
	wrapper.writeMu.Lock()
	h.connsMu.Lock()
	h.conns = append(h.conns, wrapper)
	h.connsMu.Unlock()

	err = conn.WriteJSON(Event{Type: EventSubscribed, At: h.now()})
	wrapper.writeMu.Unlock()

	defer h.remove(wrapper)

	if err != nil {
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.logger.Debug("Event subscriber disconnected", zap.Error(err))
			return
		}
	}
}

// Publish sends e to every connected client. Clients that fail a write are dropped.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = h.now()
	}

	h.connsMu.Lock()
	conns := append([]*connWrapper(nil), h.conns...)
	h.connsMu.Unlock()

	for _, c := range conns {
		if err := c.send(e); err != nil {
			h.logger.Warn("Failed to send event", zap.Error(err))
			h.remove(c)
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	return len(h.conns)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.connsMu.Lock()
	conns := h.conns
	h.conns = nil
	h.connsMu.Unlock()

	for _, c := range conns {
		c.conn.Close()
	}
}

func (h *Hub) remove(target *connWrapper) {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()

	for i, c := range h.conns {
		if c == target {
			h.conns = append(h.conns[:i], h.conns[i+1:]...)
			target.conn.Close()
			return
		}
	}
}
