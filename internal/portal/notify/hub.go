package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/twh-ops/leadportal/pkg/logger"
)

const (
	writeTimeout = 5 * time.Second
	// pingInterval must stay well under the read deadline the HTTP layer
	// puts on the connection, so a healthy client always pongs in time.
	pingInterval = 30 * time.Second
	sendBuffer   = 16
)

// Hub broadcasts events to connected websocket dashboards. Each
// connection gets its own buffered send queue and writer goroutine; the
// writer also drives the ping keepalive. A connection that fails a write
// or stops draining its queue is dropped; the browser reconnects.
type Hub struct {
	mu        sync.Mutex
	conns     map[*websocket.Conn]chan []byte
	pingEvery time.Duration
	log       *logger.Logger
}

var _ Publisher = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewDefault("notify.hub")
	}
	return &Hub{
		conns:     make(map[*websocket.Conn]chan []byte),
		pingEvery: pingInterval,
		log:       log,
	}
}

// Register adds a connection to the broadcast set and starts its writer.
func (h *Hub) Register(conn *websocket.Conn) {
	send := make(chan []byte, sendBuffer)
	h.mu.Lock()
	h.conns[conn] = send
	h.mu.Unlock()
	go h.writeLoop(conn, send)
}

// Unregister removes and closes a connection. Safe to call more than
// once for the same connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	send, ok := h.conns[conn]
	if ok {
		delete(h.conns, conn)
		close(send)
	}
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// ClientCount returns the number of connected dashboards.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Publish queues the event for every connected dashboard. Queueing never
// blocks: a client whose queue is full misses the event and is noted; the
// dashboard state refetches on reconnect anyway.
func (h *Hub) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	var full int
	h.mu.Lock()
	for _, send := range h.conns {
		select {
		case send <- data:
		default:
			full++
		}
	}
	h.mu.Unlock()

	if full > 0 {
		h.log.WithField("clients", full).WithField("event", e.Name).Warn("send queue full, event dropped for slow clients")
	}
	return nil
}

// writeLoop owns all writes to one connection: queued broadcasts and the
// periodic ping that keeps the peer's read deadline fresh.
func (h *Hub) writeLoop(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(h.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.WithError(err).Warn("websocket write failed, dropping connection")
				h.Unregister(conn)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Unregister(conn)
				return
			}
		}
	}
}

// Shutdown closes every connection.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.Unregister(conn)
	}
}
