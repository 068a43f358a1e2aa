package chatws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/DALF-G/spidexMarket/internal/metrics"
	websocket "github.com/gofiber/contrib/websocket"
)

// Hub owns the user -> live connections table. All mutation goes through the
// Run loop, so no lock is needed.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliveries chan *delivery
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

type delivery struct {
	userID  string
	message any
}

type event struct {
	Type    string `json:"type"`
	Message any    `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan *delivery, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

// enqueue queues a payload unless the client is closed or its buffer is
// full. The mutex pairs every send with the closed check, so close never
// races a send.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close releases the write pump. Idempotent.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			if _, exists := set[client]; !exists {
				set[client] = struct{}{}
				metrics.WebsocketConnections.Inc()
			}
		case client := <-h.unregister:
			if set, ok := h.clients[client.userID]; ok {
				if _, exists := set[client]; exists {
					delete(set, client)
					metrics.WebsocketConnections.Dec()
				}
				if len(set) == 0 {
					delete(h.clients, client.userID)
				}
			}
			// Close unconditionally: a connection that dropped before
			// ever joining still has a write pump to release.
			client.close()
		case d := <-h.deliveries:
			encoded, err := json.Marshal(event{Type: "message_received", Message: d.message})
			if err != nil {
				log.Printf("relay encode message: %v", err)
				continue
			}
			h.sendToUser(d.userID, encoded)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Deliver pushes the message to every live connection of the user. A user
// with no connections is a silent no-op; the store remains the source of
// truth.
func (h *Hub) Deliver(userID string, message any) {
	h.deliveries <- &delivery{userID: userID, message: message}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		if client.enqueue(payload) {
			metrics.RealtimeDeliveries.Inc()
			continue
		}
		// Slow client; drop the connection rather than block the loop.
		delete(set, client)
		client.close()
		metrics.WebsocketConnections.Dec()
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// ReadPump registers presence when the client sends its join event and keeps
// the connection drained until it closes. The registered identity always
// comes from the authenticated token, never from the payload.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming struct {
			Type   string `json:"type"`
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(payload, &incoming); err != nil {
			writeError(c, "invalid event payload")
			continue
		}

		switch incoming.Type {
		case "join":
			if incoming.UserID != "" && incoming.UserID != c.userID {
				writeError(c, "identity mismatch")
				continue
			}
			c.hub.Register(c)
		default:
			writeError(c, "unsupported event type")
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func writeError(client *Client, message string) {
	payload, err := json.Marshal(event{Type: "error", Error: message})
	if err != nil {
		return
	}
	if !client.enqueue(payload) {
		client.hub.Unregister(client)
	}
}
