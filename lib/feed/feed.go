// Package feed streams live visit counts to WebSocket subscribers.
//
// Browsers connect once and get a JSON event every time any replica records
// a visit, plus one snapshot right after connecting so the page can render
// without waiting for traffic.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var subscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "seshat",
	Subsystem: "feed",
	Name:      "subscribers",
	Help:      "Number of connected live feed clients",
})

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// A client that can't drain this many queued events gets dropped
	// rather than slowing everyone else down.
	sendBuffer = 8
)

// Event is one message on the feed.
type Event struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// Hub fans visit counts out to every connected client. All mutation of the
// client set happens inside Run, so the set needs no lock.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set. It returns when ctx is canceled, closing every
// connection it still holds.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.conn.Close()
			}
			subscribers.Set(0)
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			subscribers.Set(float64(len(h.clients)))
			slog.Debug("feed client connected", "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				subscribers.Set(float64(len(h.clients)))
				slog.Debug("feed client disconnected", "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
					subscribers.Set(float64(len(h.clients)))
				}
			}
		}
	}
}

// Notify pushes a new count to every subscriber. It never blocks the
// caller: if the hub is saturated the event is dropped, and the next visit
// carries a fresher count anyway.
func (h *Hub) Notify(count int64) {
	msg, err := json.Marshal(Event{Type: "visit_count", Count: count})
	if err != nil {
		slog.Error("can't marshal feed event", "err", err)
		return
	}

	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is as public as the page that shows it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades requests into feed subscriptions. snapshot is called
// once per connection to greet the client with the current tally.
func (h *Hub) Handler(snapshot func(context.Context) (int64, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response.
			slog.Debug("can't upgrade feed connection", "err", err)
			return
		}

		c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}

		select {
		case h.register <- c:
		case <-h.done:
			conn.Close()
			return
		}

		if snapshot != nil {
			if n, err := snapshot(r.Context()); err == nil {
				if msg, err := json.Marshal(Event{Type: "visit_count", Count: n}); err == nil {
					c.send <- msg
				}
			} else {
				slog.Debug("can't read counter for feed greeting", "err", err)
			}
		}

		go c.writePump()
		go c.readPump()
	})
}

// readPump drains and discards client frames so pong handlers run and
// closed connections get noticed promptly.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pushes queued events and keepalive pings to one client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
