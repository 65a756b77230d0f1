// Package ws pushes server events (waiting-list promotions, notification
// receipts, post updates) to connected clients over a websocket. Clients
// never drive state through this channel; every mutation goes through the
// HTTP surface.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"gamemate-server/internal/auth"
	"gamemate-server/internal/config"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Client struct {
	Conn      *websocket.Conn
	SubjectID string
	Send      chan []byte
	connected bool
	mu        sync.RWMutex
}

type Hub struct {
	clients     map[*Client]bool
	userClients map[string]*Client
	broadcast   chan []byte
	register    chan *Client
	unregister  chan *Client
	mu          sync.RWMutex
}

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

var GlobalHub = &Hub{
	clients:     make(map[*Client]bool),
	userClients: make(map[string]*Client),
	broadcast:   make(chan []byte, 256),
	register:    make(chan *Client),
	unregister:  make(chan *Client),
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// One connection per user; a new one replaces the old
			if existing, exists := h.userClients[client.SubjectID]; exists {
				if _, ok := h.clients[existing]; ok {
					delete(h.clients, existing)
					delete(h.userClients, client.SubjectID)
					existing.mu.Lock()
					existing.connected = false
					existing.mu.Unlock()
					go func(old *Client) {
						close(old.Send)
						old.Conn.Close()
					}(existing)
				}
			}

			h.clients[client] = true
			h.userClients[client.SubjectID] = client
			client.mu.Lock()
			client.connected = true
			client.mu.Unlock()
			h.mu.Unlock()

			zap.S().Debugw("websocket connected", "subject", client.SubjectID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				delete(h.userClients, client.SubjectID)
				close(client.Send)
				client.mu.Lock()
				client.connected = false
				client.mu.Unlock()
			}
			h.mu.Unlock()

			zap.S().Debugw("websocket disconnected", "subject", client.SubjectID)

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.Send <- message:
				default:
					zap.S().Warnw("send buffer full, dropping client", "subject", client.SubjectID)
					h.unregister <- client
				}
			}
		}
	}
}

// OnlineCount reports the number of connected clients.
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) IsUserOnline(subjectID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.userClients[subjectID]
	if !exists {
		return false
	}

	client.mu.RLock()
	defer client.mu.RUnlock()
	return client.connected
}

// Broadcast fans an event out to every connected client.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	jsonData, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		zap.S().Errorw("marshaling broadcast event", "type", eventType, "error", err)
		return
	}

	select {
	case h.broadcast <- jsonData:
	default:
		zap.S().Warnw("broadcast queue full, dropping event", "type", eventType)
	}
}

// SendToUser delivers an event to one user's connection, if any.
func (h *Hub) SendToUser(subjectID, eventType string, data interface{}) {
	h.mu.RLock()
	client, exists := h.userClients[subjectID]
	h.mu.RUnlock()
	if !exists {
		return
	}

	client.mu.RLock()
	connected := client.connected
	client.mu.RUnlock()
	if !connected {
		return
	}

	jsonData, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		zap.S().Errorw("marshaling user event", "type", eventType, "error", err)
		return
	}

	select {
	case client.Send <- jsonData:
	default:
		zap.S().Warnw("send buffer full for user, disconnecting", "subject", subjectID)
		h.unregister <- client
	}
}

func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		GlobalHub.mu.RLock()
		current, exists := GlobalHub.userClients[c.SubjectID]
		isCurrent := exists && current == c
		GlobalHub.mu.RUnlock()

		if isCurrent {
			GlobalHub.unregister <- c
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Inbound frames are drained and ignored; the socket is push-only
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.S().Debugw("websocket read error", "subject", c.SubjectID, "error", err)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleWebSocket upgrades an authenticated request. The session token
// rides in the query string because browser websocket clients cannot set
// headers.
func HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	identity, err := auth.ParseToken(token, config.Conf.JWTSecret)
	if err != nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		Conn:      conn,
		SubjectID: identity.ID,
		Send:      make(chan []byte, 32),
	}

	GlobalHub.register <- client

	go client.writePump()
	go client.readPump()
}
