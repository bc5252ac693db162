package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/leadflow/backend/internal/models"
)

// WebSocket message types for the progress protocol
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypePong     = "pong"
	MsgTypeProgress = "progress"
)

// WSMessage is the envelope for all websocket traffic
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ProgressEvent is pushed to every connected client whenever a session
// step changes state
type ProgressEvent struct {
	SessionID string                `json:"sessionId"`
	Status    models.SessionStatus  `json:"status"`
	Step      models.ProcessingStep `json:"step"`
}

// ProgressHub fans session step transitions out to websocket clients.
// Publish matches session.Subscriber so the hub can be wired directly
// into the session manager.
type ProgressHub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
}

// NewProgressHub creates a hub with no connected clients
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// Publish broadcasts a step transition to all connected clients.
// Clients that fail the write are dropped.
func (h *ProgressHub) Publish(sessionID string, status models.SessionStatus, step models.ProcessingStep) {
	payload, err := json.Marshal(ProgressEvent{
		SessionID: sessionID,
		Status:    status,
		Step:      step,
	})
	if err != nil {
		return
	}
	msg := WSMessage{
		Type:      MsgTypeProgress,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// HandleWebSocket upgrades the connection and keeps it registered until
// the client disconnects. The read loop only services pings; all data
// flows server -> client.
func (h *ProgressHub) HandleWebSocket(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.clients[ws] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, ws)
		h.mu.Unlock()
		ws.Close()
	}()

	h.sendMessage(ws, WSMessage{
		Type:      "connected",
		Timestamp: time.Now().UnixMilli(),
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Logger().Debugf("websocket read error: %v", err)
			}
			break
		}

		if msg.Type == MsgTypePing {
			h.sendMessage(ws, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		}
	}

	return nil
}

// ClientCount reports connected clients, mainly for tests
func (h *ProgressHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *ProgressHub) sendMessage(ws *websocket.Conn, msg WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ws.WriteJSON(msg)
}
