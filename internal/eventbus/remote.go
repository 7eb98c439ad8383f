package eventbus

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quietloop/aecore/pkg/events"
)

// remoteWriteWait bounds a single broadcast write, grounded on the
// teacher's internal/gateway/ws_control_plane.go websocket control plane.
const remoteWriteWait = 10 * time.Second

// RemoteHub implements spec §4.8 and §6.3's optional remote observer: a
// websocket fan-out of the event stream. Delivery is at-least-once; per
// §4.8 "the remote consumer must tolerate duplicates," RemoteHub makes no
// attempt at deduplication or exactly-once guarantees.
type RemoteHub struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// NewRemoteHub returns an empty RemoteHub. Call ServeHTTP from an HTTP
// handler to accept observer connections, and use the Hub itself as an
// eventbus.Consumer to broadcast every published event to them.
func NewRemoteHub() *RemoteHub {
	return &RemoteHub{
		conns: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request to a websocket connection and registers
// it as a remote observer until the connection closes.
func (h *RemoteHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	go h.drainReads(conn)
}

// drainReads discards inbound frames (this is a push-only observer
// channel) until the peer disconnects, then deregisters the connection.
func (h *RemoteHub) drainReads(conn *websocket.Conn) {
	defer h.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *RemoteHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	conn.Close()
}

// Consume broadcasts ev, JSON-encoded, to every connected observer. It
// implements eventbus.Consumer so a RemoteHub can be attached directly to
// a Sink via AddConsumer.
func (h *RemoteHub) Consume(_ context.Context, ev events.Envelope) {
	if ev.Base().Hidden {
		return
	}

	payload, err := events.Encode(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(remoteWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(conn)
		}
	}
}

// ConnectionCount reports how many observers are currently attached, for
// diagnostics/metrics.
func (h *RemoteHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
