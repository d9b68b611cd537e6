package handlers

import (
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/girijasivakumar242/IARS/internal/notify"
	"github.com/girijasivakumar242/IARS/pkg/logger"
)

// WebSocketHandler bridges hub subscriptions to client connections. Each
// connected viewer gets a payload-less "studentUpdated" event whenever the
// record set changes and is expected to re-fetch state in response.
type WebSocketHandler struct {
	hub *notify.Hub
}

func NewWebSocketHandler(hub *notify.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	sub := h.hub.Subscribe()
	defer func() {
		h.hub.Unsubscribe(sub)
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	// Drain inbound frames purely to learn when the peer goes away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-sub.C:
			msg := map[string]string{"event": notify.EventStudentsChanged}
			if err := c.WriteJSON(msg); err != nil {
				logger.Debug("Failed to push change event", zap.Error(err))
				return
			}
		}
	}
}
