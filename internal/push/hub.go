// Package push delivers ad decisions to the storefront over websockets.
// Each browser tab connects with its session id and receives every decision
// made for that session.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MikeSquared-Agency/ghostrev/internal/intent"
	"github.com/MikeSquared-Agency/ghostrev/internal/monetize"
)

const (
	TypeInterstitial = "interstitial"
	TypeSticky       = "sticky"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 8
)

// Message is what a connected tab receives.
type Message struct {
	Type           string      `json:"type"`
	SessionID      string      `json:"session_id"`
	PageID         string      `json:"page_id"`
	Reason         string      `json:"reason,omitempty"`
	Score          int         `json:"score"`
	Tier           intent.Tier `json:"tier"`
	Message        string      `json:"message,omitempty"`
	DismissAfterMs int64       `json:"dismiss_after_ms,omitempty"`
}

// Client is one connected tab.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
}

// Hub tracks connected tabs by session id.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]bool
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The storefront is served from the merchant's domain.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[string]map[*Client]bool),
	}
}

// ServeSession upgrades the request and streams the session's decisions
// until the tab disconnects.
func (h *Hub) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	c := &Client{conn: conn, sessionID: sessionID, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go h.writeLoop(c)
	h.readLoop(c)
	return nil
}

// Clients returns the number of tabs connected for a session.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) ShowInterstitial(_ context.Context, ad monetize.Interstitial) error {
	return h.broadcast(Message{
		Type:           TypeInterstitial,
		SessionID:      ad.SessionID,
		PageID:         ad.PageID,
		Reason:         ad.Reason,
		Score:          ad.Score,
		Tier:           ad.Tier,
		DismissAfterMs: ad.DismissAfter.Milliseconds(),
	})
}

func (h *Hub) ShowSticky(_ context.Context, ad monetize.Sticky) error {
	return h.broadcast(Message{
		Type:      TypeSticky,
		SessionID: ad.SessionID,
		PageID:    ad.PageID,
		Score:     ad.Score,
		Tier:      ad.Tier,
		Message:   ad.Message,
	})
}

func (h *Hub) broadcast(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Type, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := h.clients[msg.SessionID]
	if len(clients) == 0 {
		h.logger.Debug("no tabs connected", "session_id", msg.SessionID, "type", msg.Type)
		return nil
	}
	for c := range clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("dropping push for slow tab", "session_id", msg.SessionID, "type", msg.Type)
		}
	}
	return nil
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.sessionID]; !ok {
		h.clients[c.sessionID] = make(map[*Client]bool)
	}
	h.clients[c.sessionID][c] = true
	h.logger.Debug("tab connected", "session_id", c.sessionID)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[c.sessionID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.clients, c.sessionID)
	}
	h.logger.Debug("tab disconnected", "session_id", c.sessionID)
}

// readLoop discards inbound frames and returns when the connection dies.
func (h *Hub) readLoop(c *Client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
