package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"quicklearner/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	EventQuizPlayed  = "quiz_played"
	EventQuizDeleted = "quiz_deleted"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Notifier delivers an event to every open connection of a user. Delivery is
// best effort; offline users miss the event.
type Notifier interface {
	Notify(userID, eventType string, payload interface{})
}

type NopNotifier struct{}

func (NopNotifier) Notify(string, string, interface{}) {}

// Notification is the JSON frame exchanged over the socket.
type Notification struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type outbound struct {
	userID string
	data   []byte
}

type Hub struct {
	clients    map[string]map[*Client]bool
	deliver    chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	log        *logger.Logger
}

type Client struct {
	hub    *Hub
	id     string
	userID string
	socket *websocket.Conn
	send   chan []byte
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		deliver:    make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.With("service", "NotificationHub"),
	}
}

// Run owns client registration and delivery until ctx is cancelled, then
// closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mutex.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			h.mutex.Unlock()
			h.log.Debug("Client registered", "client_id", client.id, "user_id", client.userID)

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.deliver:
			h.mutex.RLock()
			var slow []*Client
			for client := range h.clients[msg.userID] {
				select {
				case client.send <- msg.data:
				default:
					slow = append(slow, client)
				}
			}
			h.mutex.RUnlock()
			for _, client := range slow {
				h.log.Warn("Client send buffer full, dropping connection", "client_id", client.id)
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	set, ok := h.clients[client.userID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	close(client.send)
	h.log.Debug("Client unregistered", "client_id", client.id, "user_id", client.userID)
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for userID, set := range h.clients {
		for client := range set {
			close(client.send)
		}
		delete(h.clients, userID)
	}
}

func (h *Hub) Notify(userID, eventType string, payload interface{}) {
	data, err := json.Marshal(Notification{Type: eventType, Payload: payload})
	if err != nil {
		h.log.Error("Error marshaling notification", "type", eventType, "error", err)
		return
	}
	select {
	case h.deliver <- outbound{userID: userID, data: data}:
	default:
		h.log.Warn("Notification queue full, dropping event", "type", eventType, "user_id", userID)
	}
}

// ConnectedClients counts the open connections of a user.
func (h *Hub) ConnectedClients(userID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) RegisterClient(conn *websocket.Conn, userID string) *Client {
	client := &Client{
		hub:    h,
		id:     uuid.NewString(),
		userID: userID,
		socket: conn,
		send:   make(chan []byte, sendBuffer),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return client
	}

	go client.writePump()
	go client.readPump()

	return client
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.socket.Close()
	}()

	c.socket.SetReadLimit(4096)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("WebSocket read error", "client_id", c.id, "error", err)
			}
			return
		}

		var msg Notification
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.log.Debug("Ignoring malformed message", "client_id", c.id)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg Notification) {
	switch msg.Type {
	case "ping":
		c.reply(Notification{Type: "pong", Payload: "pong"})
	default:
		c.hub.log.Debug("Unknown message type", "type", msg.Type, "client_id", c.id)
	}
}

// reply queues a frame for this connection only. The hub lock keeps send
// from being closed underneath us.
func (c *Client) reply(msg Notification) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Error("Error marshaling reply", "type", msg.Type, "error", err)
		return
	}
	c.hub.mutex.RLock()
	defer c.hub.mutex.RUnlock()
	if !c.hub.clients[c.userID][c] {
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.log.Warn("Client send buffer full, dropping reply", "client_id", c.id)
	}
}
