package utility

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow CORS for development
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSClient is one open websocket of a user. Writes are serialised per client.
type WSClient struct {
	UserID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

func (c *WSClient) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Send writes payload as JSON to this socket only.
func (c *WSClient) Send(payload any) error {
	msg, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.write(msg)
}

// Hub holds active connections: map[userID] -> set of clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*WSClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*WSClient]struct{})}
}

// Register a new client connection
func (h *Hub) Register(userID string, conn *websocket.Conn) *WSClient {
	c := &WSClient{UserID: userID, conn: conn}
	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*WSClient]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()
	log.Info().Str("user_id", userID).Msg("WebSocket Client Connected")
	return c
}

// Unregister a client (when they close the tab)
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	if set := h.clients[c.UserID]; set != nil {
		if _, ok := set[c]; ok {
			delete(set, c)
			log.Info().Str("user_id", c.UserID).Msg("WebSocket Client Disconnected")
		}
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

// Connections returns how many sockets the user has open.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish sends payload as JSON to every socket of the user. Sockets that
// fail to accept the write are dropped.
func (h *Hub) Publish(userID string, payload any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode WS message")
		return
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to send WS message, removing client")
			h.Unregister(c)
		}
	}
}
