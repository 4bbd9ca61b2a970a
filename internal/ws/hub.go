// Package ws pushes session changes to connected seating-chart UIs. Clients
// subscribe to one topic (a teacher's session) and receive every event
// published for it.
package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/gommon/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

var logger = log.New("ws")

// Event types pushed to clients.
const (
	EventSnapshot = "session.snapshot"
	EventUpdated  = "session.updated"
	EventArranged = "session.arranged"
	EventDeleted  = "session.deleted"
)

// Event is one message on a topic.
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Data      interface{} `json:"data,omitempty"`
	At        time.Time   `json:"at"`
}

type message struct {
	topic   string
	payload []byte
}

// Hub fans events out to the clients of each topic. All client bookkeeping
// happens on the Run goroutine.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan message
	clients    map[string]map[*client]struct{}
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan message, 256),
		clients:    make(map[string]map[*client]struct{}),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					h.drop(c)
				}
			}
			return
		case c := <-h.register:
			set, ok := h.clients[c.topic]
			if !ok {
				set = make(map[*client]struct{})
				h.clients[c.topic] = set
			}
			set[c] = struct{}{}
		case c := <-h.unregister:
			h.drop(c)
		case msg := <-h.broadcast:
			for c := range h.clients[msg.topic] {
				select {
				case c.send <- msg.payload:
				default:
					// slow reader; it reconnects and gets a fresh snapshot
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	set, ok := h.clients[c.topic]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.topic)
	}
	close(c.send)
	c.conn.Close()
}

// Publish queues ev for every client of topic. A nil hub or a stopped hub
// drops the event.
func (h *Hub) Publish(topic string, ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Warnf("marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- message{topic: topic, payload: data}:
	case <-h.done:
	}
}

type client struct {
	hub   *Hub
	conn  *websocket.Conn
	topic string
	send  chan []byte
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
