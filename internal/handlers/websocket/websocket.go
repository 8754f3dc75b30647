// internal/handlers/websocket/websocket.go
package websocket

import (
	"net/http"
	"strings"
	"time"

	"clinicdesk-service/internal/middleware"
	"clinicdesk-service/internal/pkg/response"
	ws "clinicdesk-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler accepts connections from allowedOrigins, or from any
// origin when none are given.
func NewWebSocketHandler(hub *ws.Hub, logger *zap.Logger, allowedOrigins ...string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		logger: logger,
	}
}

// HandleConnection upgrades the request and registers the user's client.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.ValidationError(c, "user_id is required", ws.ErrMissingUser)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	client := ws.NewClient(h.hub, conn, userID)
	if err := h.hub.Connect(client); err != nil {
		h.logger.Warn("WebSocket connection rejected", zap.String("user_id", userID), zap.Error(err))
		conn.Close()
		return
	}

	h.logger.Info("WebSocket client connected",
		zap.String("user_id", userID),
		zap.String("connection_id", client.ConnectionID()),
	)
}

// GetStats returns WebSocket connection statistics
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "WebSocket stats", gin.H{
		"total_connections": h.hub.TotalClients(),
		"connected_users":   h.hub.ConnectedUsers(),
		"timestamp":         time.Now(),
	})
}
