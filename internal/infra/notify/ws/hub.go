package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingEvery  = (pongWait * 9) / 10
	sendBuffer = 8
)

// Conn is the subset of *websocket.Conn the hub needs; narrowed so
// tests can register fakes.
type Conn interface {
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type client struct {
	conn Conn
	send chan any
	done chan struct{}
}

// Hub owns the identity → live connection mapping. Callers only ever
// hold the identity string, never the connection, so request handling
// stays decoupled from connection teardown.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Register attaches a connection under id and starts its writer.
// A previous connection with the same id is closed and replaced.
func (h *Hub) Register(id string, conn Conn) {
	cl := &client{
		conn: conn,
		send: make(chan any, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	old, replaced := h.clients[id]
	h.clients[id] = cl
	h.mu.Unlock()

	if replaced {
		close(old.done)
		old.conn.Close()
	}
	go cl.writePump()
}

// Unregister drops the connection for id. No-op when id is unknown,
// so disconnect and error paths can both call it safely.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	cl, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if ok {
		close(cl.done)
		cl.conn.Close()
	}
}

// Deliver hands payload to the client's writer. Returns false, not an
// error, when no connection is registered for id or its buffer cannot
// take the payload — at-most-once, the payload is then discarded.
func (h *Hub) Deliver(id string, payload any) bool {
	h.mu.RLock()
	cl, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case cl.send <- payload:
		return true
	case <-cl.done:
		return false
	default:
		return false
	}
}

// Len reports the number of live connections, used by metrics
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump drains the send buffer onto the wire and keeps the
// connection alive with pings. One goroutine per connection; exits on
// write error or when the client is unregistered.
func (cl *client) writePump() {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case payload := <-cl.send:
			if err := cl.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := cl.conn.WriteJSON(payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := cl.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
