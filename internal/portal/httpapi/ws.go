package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/twh-ops/leadportal/internal/portal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are served from the same origin in production; the
	// portal sits behind the office proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

const pongTimeout = 90 * time.Second

// handleWebsocket upgrades the connection and registers it with the
// broadcast hub. The read loop only services control frames; clients
// never send data.
func (h *Handler) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "Live updates are disabled")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	h.hub.Register(conn)
	metrics.SetWebsocketClients(h.hub.ClientCount())
	h.log.WithField("remote", r.RemoteAddr).Info("dashboard connected")

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	go func() {
		defer func() {
			h.hub.Unregister(conn)
			metrics.SetWebsocketClients(h.hub.ClientCount())
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
