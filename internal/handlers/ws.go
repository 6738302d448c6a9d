package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/amgad21/BlipVerse/internal/hub"
)

const (
	// writeWait is the per-message write deadline.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before it is
	// considered dead; pings go out a little more often than that.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

// LiveHandler upgrades feed connections and bridges them to the fanout hub.
type LiveHandler struct {
	hub      *hub.Hub
	log      *log.Logger
	upgrader websocket.Upgrader
}

func NewLiveHandler(h *hub.Hub, logger *log.Logger, allowedOrigins []string) *LiveHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	allowAll := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return &LiveHandler{
		hub: h,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
	}
}

// Serve upgrades the request and subscribes it to the live feed. The
// connection receives every event published while it stays subscribed;
// there is no backlog for reconnects, clients re-fetch the feed instead.
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	sub := h.hub.Subscribe()
	go h.writePump(conn, sub)
	go h.readPump(conn, sub)
}

// writePump pushes hub events to the connection. When the subscription
// channel closes (client dropped for lagging, or unsubscribed) the
// connection is closed too.
func (h *LiveHandler) writePump(conn *websocket.Conn, sub *hub.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				sub.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sub.Close()
				return
			}
		}
	}
}

// readPump discards inbound messages; the live channel is push-only.
// Its job is to notice the peer going away and unsubscribe.
func (h *LiveHandler) readPump(conn *websocket.Conn, sub *hub.Subscription) {
	defer func() {
		sub.Close()
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
