// Package api - WebSocket feed of dev-api events
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/alexbotov/gametester/internal/domain"
	"github.com/alexbotov/gametester/internal/store"
	"github.com/alexbotov/gametester/pkg/gametester"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local development tool
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSClient is one connected event feed
type WSClient struct {
	conn           *websocket.Conn
	send           chan []byte
	developerToken string
}

// HandleEvents handles GET /ws/events?developerToken=...
//
// After connecting, the client receives every dev-api event of that
// developer as an "event" message. It may send "history" to receive recent
// events and "ping" to receive a "pong".
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get(gametester.FieldDeveloperToken)
	if err := h.auth.VerifyDeveloper(r.Context(), token); err != nil {
		code, message := codeFor(err)
		respondCode(w, http.StatusUnauthorized, code, message)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		conn:           conn,
		send:           make(chan []byte, wsSendBuffer),
		developerToken: token,
	}

	unsubscribe := h.audit.Subscribe(func(e *domain.Event) {
		if e.DeveloperToken == client.developerToken {
			h.sendMessage(client, "event", e)
		}
	})
	h.metrics.EventSubscribers.Inc()

	go client.writePump()
	go h.readPump(client, func() {
		unsubscribe()
		h.metrics.EventSubscribers.Dec()
	})
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *WSClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client messages until the connection closes. detach runs
// before the send channel is closed so no listener writes to it afterwards.
func (h *Handler) readPump(c *WSClient, detach func()) {
	defer func() {
		detach()
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	h.sendMessage(c, "connected", map[string]any{
		"message": "Subscribed to dev-api events",
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket error", "error", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.sendError(c, "INVALID_MESSAGE", "Invalid message format")
			continue
		}

		h.handleWSMessage(c, &msg)
	}
}

// handleWSMessage processes incoming WebSocket messages
func (h *Handler) handleWSMessage(c *WSClient, msg *WSMessage) {
	switch msg.Type {
	case "history":
		var payload struct {
			TestID string `json:"test_id"`
			Limit  int    `json:"limit"`
		}
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				h.sendError(c, "INVALID_PAYLOAD", "Invalid history payload")
				return
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), wsWriteWait)
		defer cancel()

		events, err := h.audit.GetEvents(ctx, &store.EventFilter{
			DeveloperToken: c.developerToken,
			TestID:         payload.TestID,
			Limit:          payload.Limit,
		})
		if err != nil {
			h.sendError(c, "HISTORY_ERROR", "Failed to get events")
			return
		}
		h.sendMessage(c, "history", events)

	case "ping":
		h.sendMessage(c, "pong", map[string]any{
			"timestamp": time.Now().Unix(),
		})

	default:
		h.sendError(c, "UNKNOWN_MESSAGE", "Unknown message type: "+msg.Type)
	}
}

// sendMessage queues a message for the client, dropping it when the buffer is full
func (h *Handler) sendMessage(c *WSClient, msgType string, payload any) {
	payloadBytes, _ := json.Marshal(payload)
	msgBytes, _ := json.Marshal(WSMessage{
		Type:    msgType,
		Payload: payloadBytes,
	})

	select {
	case c.send <- msgBytes:
	default:
	}
}

// sendError sends an error message to the client
func (h *Handler) sendError(c *WSClient, code, message string) {
	h.sendMessage(c, "error", map[string]string{
		"code":    code,
		"message": message,
	})
}
