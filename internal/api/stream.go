package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/ridgewalk/internal/engine"
)

const (
	maxStreamConns = 8
	streamBuffer   = 256 // queued messages per client before it is dropped
	catchUpEvents  = 50
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is read-only; any origin may watch.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans step events out to connected stream clients.
type Hub struct {
	mu       sync.Mutex
	conns    map[*streamConn]struct{}
	maxConns int
}

// NewHub creates a hub accepting at most maxConns clients.
func NewHub(maxConns int) *Hub {
	return &Hub{conns: make(map[*streamConn]struct{}), maxConns: maxConns}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Full reports whether the hub is at capacity.
func (h *Hub) Full() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns) >= h.maxConns
}

// Broadcast queues e for every client. A client whose queue is full is
// disconnected rather than allowed to stall the rest.
func (h *Hub) Broadcast(e engine.Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		slog.Warn("stream encode failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- msg:
		default:
			delete(h.conns, c)
			close(c.send)
			slog.Warn("dropping slow stream client", "remote", c.remote)
		}
	}
}

// join registers c, then queues whatever catchUp returns. Both happen under
// the hub lock, so any step missing from the catch-up is broadcast to c
// afterwards; a step may arrive twice but never not at all. catchUp must
// not call back into the hub. join fails when the hub is full.
func (h *Hub) join(c *streamConn, catchUp func() []engine.Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.conns) >= h.maxConns {
		return false
	}
	h.conns[c] = struct{}{}
	if catchUp == nil {
		return true
	}
	for _, e := range catchUp() {
		msg, err := json.Marshal(e)
		if err != nil {
			continue
		}
		select {
		case c.send <- msg:
		default:
		}
	}
	return true
}

func (h *Hub) leave(c *streamConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		close(c.send)
	}
}

// streamConn is one WebSocket client. Only the hub closes send.
type streamConn struct {
	ws     *websocket.Conn
	send   chan []byte
	remote string
}

func newStreamConn(ws *websocket.Conn, remote string) *streamConn {
	return &streamConn{ws: ws, send: make(chan []byte, streamBuffer), remote: remote}
}

// writePump sends queued messages and keepalive pings until send closes.
func (c *streamConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and unregisters on disconnect.
func (c *streamConn) readPump(h *Hub) {
	defer func() {
		h.leave(c)
		c.ws.Close()
	}()
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("stream read error", "remote", c.remote, "error", err)
			}
			return
		}
	}
}

// handleStream upgrades to a WebSocket and streams step events as JSON.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.Hub.Full() {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		slog.Warn("stream upgrade failed", "error", err)
		return
	}

	c := newStreamConn(ws, r.RemoteAddr)
	recent := func() []engine.Event { return s.Exp.Events(catchUpEvents) }
	if !s.Hub.join(c, recent) {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many stream connections"),
			time.Now().Add(writeWait))
		ws.Close()
		return
	}
	slog.Info("stream client connected", "remote", c.remote, "clients", s.Hub.Len())

	go c.writePump()
	c.readPump(s.Hub)
	slog.Info("stream client disconnected", "remote", c.remote)
}
