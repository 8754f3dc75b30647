// internal/handlers/notification/notification_handler.go
package notification

import (
	"net/http"
	"strconv"

	"clinicdesk-service/internal/domain/notification"
	xerrors "clinicdesk-service/internal/pkg/errors"
	"clinicdesk-service/internal/pkg/response"
	"clinicdesk-service/internal/service/email"
	"clinicdesk-service/internal/service/featureflag"
	service "clinicdesk-service/internal/service/notification"

	"github.com/ecodeclub/ekit/slice"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CountBroadcaster pushes the unread count to live clients after a REST
// mutation.
type CountBroadcaster interface {
	BroadcastNotificationCount(count int)
}

type NotificationHandler struct {
	notificationService *service.NotificationService
	gateway             *email.Gateway
	features            featureflag.Toggle
	counts              CountBroadcaster
	logger              *zap.Logger
}

func NewNotificationHandler(
	notificationService *service.NotificationService,
	gateway *email.Gateway,
	features featureflag.Toggle,
	counts CountBroadcaster,
	logger *zap.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		gateway:             gateway,
		features:            features,
		counts:              counts,
		logger:              logger,
	}
}

// GetNotifications lists the history newest first. Supports ?limit= and
// ?unread_only=true.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	notifications := h.notificationService.GetNotifications()
	total := len(notifications)

	if unreadOnly, _ := strconv.ParseBool(c.Query("unread_only")); unreadOnly {
		notifications = slice.FilterDelete(notifications, func(_ int, n *notification.Notification) bool {
			return n.Read
		})
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < len(notifications) {
		notifications = notifications[:limit]
	}

	response.Success(c, http.StatusOK, "notifications retrieved", notification.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   h.notificationService.GetUnreadCount(),
		Total:         total,
	})
}

// GetNotification retrieves a single notification by ID
func (h *NotificationHandler) GetNotification(c *gin.Context) {
	n, ok := h.notificationService.GetNotification(c.Param("id"))
	if !ok {
		response.FromError(c, "notification not found", xerrors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, "notification retrieved", n)
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	response.Success(c, http.StatusOK, "unread count retrieved", gin.H{
		"unread_count": h.notificationService.GetUnreadCount(),
	})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.notificationService.GetNotification(id); !ok {
		response.FromError(c, "notification not found", xerrors.ErrNotFound)
		return
	}

	h.notificationService.MarkAsRead(id)
	count := h.publishCount()

	response.Success(c, http.StatusOK, "notification marked as read", gin.H{
		"unread_count": count,
	})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	h.notificationService.MarkAllAsRead()
	count := h.publishCount()

	response.Success(c, http.StatusOK, "all notifications marked as read", gin.H{
		"unread_count": count,
	})
}

func (h *NotificationHandler) ClearNotification(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.notificationService.GetNotification(id); !ok {
		response.FromError(c, "notification not found", xerrors.ErrNotFound)
		return
	}

	h.notificationService.ClearNotification(id)
	count := h.publishCount()

	response.Success(c, http.StatusOK, "notification cleared", gin.H{
		"unread_count": count,
	})
}

func (h *NotificationHandler) ClearAllNotifications(c *gin.Context) {
	h.notificationService.ClearAllNotifications()
	h.publishCount()

	response.Success(c, http.StatusOK, "all notifications cleared", gin.H{
		"unread_count": 0,
	})
}

func (h *NotificationHandler) publishCount() int {
	count := h.notificationService.GetUnreadCount()
	if h.counts != nil {
		h.counts.BroadcastNotificationCount(count)
	}
	return count
}
