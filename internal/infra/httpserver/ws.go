package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bryanwahyu/vision-assist/internal/infra/notify/ws"
	"github.com/bryanwahyu/vision-assist/internal/middleware"
)

const wsPongWait = 60 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// GET /ws
// Upgrades to a websocket, assigns the client its identity, and keeps
// the connection registered until it drops. The identity is echoed back
// in analyze requests as socketId to select push delivery.
func (rt *Router) handleWS(w http.ResponseWriter, req *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	id := uuid.New().String()
	rt.hub.Register(id, conn)
	slog.Info("client connected", "socket_id", id)

	rt.hub.Deliver(id, map[string]string{"type": "connected", "socketId": id})

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		rt.hub.Unregister(id)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// The read loop only tracks liveness; clients send no application frames
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
			break
		}
	}

	rt.hub.Unregister(id)
	slog.Info("client disconnected", "socket_id", id)
}

// Notifier wraps the hub with delivery metrics
type Notifier struct {
	hub *ws.Hub
}

// NewNotifier adapts the hub into the analysis Notifier port
func NewNotifier(hub *ws.Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) Deliver(id string, payload any) bool {
	delivered := n.hub.Deliver(id, payload)
	if delivered {
		middleware.IncrementPushesDelivered()
	} else {
		middleware.IncrementPushesDropped()
	}
	return delivered
}
