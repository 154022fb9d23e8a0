// Package wsbus implements block announcement over a websocket fan-out hub.
// Every frame a client writes to the hub is delivered to every connected
// client, including the one that wrote it.
package wsbus

import (
	"errors"
	"net/http"
	"time"

	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Timing used by both ends of a bus connection.
const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	maxFrameSize = 1 << 20
)

// EventHandler defines a function that is called when events
// occur on the bus.
type EventHandler func(v string, args ...any)

// Hub is the shared broadcast channel nodes connect to.
type Hub struct {
	ev   EventHandler
	ws   websocket.Upgrader
	evts *events.Events[[]byte]
}

// NewHub constructs a hub ready to accept connections.
func NewHub(evHandler EventHandler) *Hub {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Hub{
		ev: ev,
		ws: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		evts: events.New[[]byte](),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Serve(w, r); err != nil {
		h.ev("wsbus: hub: ERROR: %s", err)
	}
}

// Serve upgrades the request and relays frames until the connection drops
// or the hub is shut down.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) error {
	c, err := h.ws.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	id := uuid.NewString()
	ch := h.evts.Acquire(id)
	defer h.evts.Release(id)

	h.ev("wsbus: hub: connected: conn[%s]: remote[%s]: conns[%d]", id, r.RemoteAddr, h.evts.Len())
	defer h.ev("wsbus: hub: disconnected: conn[%s]", id)

	// This G reads frames and fans them out. It ends when the client goes
	// away, which closes done and ends the writer loop below.
	done := make(chan struct{})
	go func() {
		defer close(done)

		c.SetReadLimit(maxFrameSize)
		for {
			kind, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.BinaryMessage {
				continue
			}

			h.evts.Send(msg)
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"), time.Now().Add(writeWait))
				return nil
			}

			c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return nil
			}

		case <-done:
			return nil
		}
	}
}

// Connections returns the number of connected clients.
func (h *Hub) Connections() int {
	return h.evts.Len()
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.evts.Shutdown()
}

// =============================================================================

// ErrNotConnected is returned by Publish while the client has no connection
// to the hub.
var ErrNotConnected = errors.New("not connected to bus")
