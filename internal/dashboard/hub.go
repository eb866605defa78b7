package dashboard

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Event is one server->client dashboard message. Type is one of
// "status", "qr", "progress", "logs".
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to every connected dashboard observer. A new
// observer first receives a snapshot of the current state (one event of
// each kind), then live updates. Push-only; nothing is read back from
// observers.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event

	// snapshot returns the current value of all four event kinds,
	// delivered to each client on connect before any live event.
	snapshot func() []Event
}

func NewHub(snapshot func() []Event) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event),
		snapshot:   snapshot,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			// Deliver the snapshot before the client joins the live
			// fan-out so it cannot observe an update ahead of its
			// initial state.
			for _, evt := range h.snapshot() {
				if msg, err := json.Marshal(evt); err == nil {
					client.send <- msg
				}
			}
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case evt := <-h.broadcast:
			msg, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Publish pushes one event to all connected observers.
func (h *Hub) Publish(eventType string, data interface{}) {
	h.broadcast <- Event{Type: eventType, Data: data, Timestamp: time.Now()}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// ServeWs upgrades the request and attaches the observer to the hub.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, allowedOrigins []string) {
	upgrader.CheckOrigin = func(r *http.Request) bool {
		return originAllowed(r.Header.Get("Origin"), allowedOrigins)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}
