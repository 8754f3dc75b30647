// internal/websocket/handler/notification.go
package handler

import (
	"context"
	"fmt"

	"clinicdesk-service/internal/domain/notification"
	wstypes "clinicdesk-service/internal/domain/websocket"
	ws "clinicdesk-service/internal/websocket"

	"github.com/ecodeclub/ekit/slice"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// NotificationStore is the notification history the handler reads and mutates.
type NotificationStore interface {
	GetNotifications() []*notification.Notification
	GetUnreadCount() int
	MarkAsRead(id string)
	MarkAllAsRead()
	ClearNotification(id string)
	ClearAllNotifications()
}

type NotificationHandler struct {
	store NotificationStore
}

func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// SupportedEvents returns events this handler supports
func (h *NotificationHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeNotificationRead,
		wstypes.EventTypeNotificationReadAll,
		wstypes.EventTypeNotificationList,
		wstypes.EventTypeNotificationCount,
		wstypes.EventTypeNotificationClear,
	}
}

// HandleMessage processes notification-related messages
func (h *NotificationHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeNotificationRead:
		return h.handleMarkAsRead(client, msg)

	case wstypes.EventTypeNotificationReadAll:
		return h.handleMarkAllAsRead(client)

	case wstypes.EventTypeNotificationList:
		return h.handleListNotifications(client, msg)

	case wstypes.EventTypeNotificationCount:
		client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationCount, wstypes.CountData{
			UnreadCount: h.store.GetUnreadCount(),
		}))
		return nil

	case wstypes.EventTypeNotificationClear:
		return h.handleClear(client, msg)

	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

type notificationRef struct {
	NotificationID string `json:"notification_id"`
}

func (h *NotificationHandler) handleMarkAsRead(client *ws.Client, msg *wstypes.WSMessage) error {
	var req notificationRef
	if err := ws.DecodeData(msg.Data, &req); err != nil {
		return fmt.Errorf("invalid mark as read request: %w", err)
	}
	if req.NotificationID == "" {
		return fmt.Errorf("notification_id is required")
	}

	h.store.MarkAsRead(req.NotificationID)
	count := h.store.GetUnreadCount()

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationRead, map[string]interface{}{
		"notification_id": req.NotificationID,
		"success":         true,
		"unread_count":    count,
	}))
	client.Hub().BroadcastNotificationCount(count)
	return nil
}

func (h *NotificationHandler) handleMarkAllAsRead(client *ws.Client) error {
	h.store.MarkAllAsRead()

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationReadAll, map[string]interface{}{
		"success":      true,
		"unread_count": 0,
	}))
	client.Hub().BroadcastNotificationCount(0)
	return nil
}

func (h *NotificationHandler) handleListNotifications(client *ws.Client, msg *wstypes.WSMessage) error {
	var req struct {
		Limit      int  `json:"limit"`
		UnreadOnly bool `json:"unread_only"`
	}
	if err := ws.DecodeData(msg.Data, &req); err != nil {
		return fmt.Errorf("invalid list request: %w", err)
	}
	if req.Limit <= 0 || req.Limit > maxListLimit {
		req.Limit = defaultListLimit
	}

	notifications := h.store.GetNotifications()
	if req.UnreadOnly {
		notifications = slice.FilterDelete(notifications, func(_ int, n *notification.Notification) bool {
			return n.Read
		})
	}
	if len(notifications) > req.Limit {
		notifications = notifications[:req.Limit]
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationList, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
		"unread_count":  h.store.GetUnreadCount(),
	}))
	return nil
}

// handleClear removes one notification, or all of them when no id is given.
func (h *NotificationHandler) handleClear(client *ws.Client, msg *wstypes.WSMessage) error {
	var req notificationRef
	if err := ws.DecodeData(msg.Data, &req); err != nil {
		return fmt.Errorf("invalid clear request: %w", err)
	}

	if req.NotificationID == "" {
		h.store.ClearAllNotifications()
	} else {
		h.store.ClearNotification(req.NotificationID)
	}
	count := h.store.GetUnreadCount()

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationClear, map[string]interface{}{
		"notification_id": req.NotificationID,
		"success":         true,
		"unread_count":    count,
	}))
	client.Hub().BroadcastNotificationCount(count)
	return nil
}
