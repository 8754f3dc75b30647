// internal/app/router.go
package app

import (
	"net/http"

	notifyHandler "clinicdesk-service/internal/handlers/notification"
	wsHandler "clinicdesk-service/internal/handlers/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	NotifHandler *notifyHandler.NotificationHandler
	WSHandler    *wsHandler.WebSocketHandler
	Metrics      *prometheus.Registry
	EventLimit   gin.HandlerFunc
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	}
	r.GET("/health", health)

	// ==================== Metrics ====================
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Metrics, promhttp.HandlerOpts{})))

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	api := r.Group("/api/v1")
	api.GET("/health", health)
	api.GET("/ws/stats", h.WSHandler.GetStats)

	// ==================== Notifications ====================
	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.NotifHandler.GetNotifications)
		notifications.GET("/count/unread", h.NotifHandler.GetUnreadCount)
		notifications.GET("/:id", h.NotifHandler.GetNotification)
		notifications.PUT("/read-all", h.NotifHandler.MarkAllAsRead)
		notifications.PUT("/:id/read", h.NotifHandler.MarkAsRead)
		notifications.DELETE("/:id", h.NotifHandler.ClearNotification)
		notifications.DELETE("", h.NotifHandler.ClearAllNotifications)
	}

	// ==================== Domain Events ====================
	events := api.Group("/events")
	if h.EventLimit != nil {
		events.Use(h.EventLimit)
	}
	{
		events.POST("/ticket-status", h.NotifHandler.TicketStatusChanged)
		events.POST("/form-submission", h.NotifHandler.FormSubmitted)
		events.POST("/authorization-alert", h.NotifHandler.AuthorizationAlert)
		events.POST("/system", h.NotifHandler.SystemEvent)
		events.POST("/admin", h.NotifHandler.AdminEvent)
		events.POST("/deadline", h.NotifHandler.DeadlineApproaching)
	}

	// ==================== Users ====================
	users := api.Group("/users/:id")
	{
		users.GET("/email-preferences", h.NotifHandler.GetEmailPreferences)
		users.PUT("/email-preferences", h.NotifHandler.UpdateEmailPreferences)
		users.PUT("/online", h.NotifHandler.MarkUserOnline)
		users.PUT("/offline", h.NotifHandler.MarkUserOffline)
		users.GET("/presence", h.NotifHandler.GetPresence)
		users.GET("/pending-emails", h.NotifHandler.GetPendingEmails)
	}

	// ==================== Session ====================
	api.GET("/session/user", h.NotifHandler.GetCurrentUser)
	api.PUT("/session/user", h.NotifHandler.SetCurrentUser)

	// ==================== Feature Flags ====================
	api.GET("/features/:name", h.NotifHandler.GetFeature)
	api.PUT("/features/:name", h.NotifHandler.SetFeature)

	logger.Info("routes registered", zap.Int("count", len(r.Routes())))
}
