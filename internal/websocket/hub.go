// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	"clinicdesk-service/internal/domain/notification"
	wstypes "clinicdesk-service/internal/domain/websocket"

	"go.uber.org/zap"
)

// PresenceTracker is told when a user gains their first connection and when
// their last connection goes away.
type PresenceTracker interface {
	MarkUserOnline(userID string)
	MarkUserOffline(userID string)
}

type Hub struct {
	// Registered clients by user ID
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	Register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage

	// Handler registry for modular message handling
	handlerRegistry *HandlerRegistry

	presence PresenceTracker
	logger   *zap.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// BroadcastMessage targets UserIDs, or every client when UserIDs is nil.
type BroadcastMessage struct {
	UserIDs []string
	Channel wstypes.ChannelType
	Message *wstypes.WSMessage
}

func NewHub(presence PresenceTracker, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		handlerRegistry: NewHandlerRegistry(),
		presence:        presence,
		logger:          logger,
		done:            make(chan struct{}),
	}
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage processes a message from a client using registered handlers
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

// Done is closed once the hub has shut down.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	first := len(h.clients[client.userID]) == 0
	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	total := h.totalClients()
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.String("user_id", client.userID),
		zap.String("connection_id", client.connectionID),
		zap.Int("total", total),
	)

	if first {
		h.setPresence(client.userID, true)
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"user_id":       client.userID,
		"connection_id": client.connectionID,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.clients[client.userID]
	if !ok || !clients[client] {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	last := len(clients) == 0
	if last {
		delete(h.clients, client.userID)
	}
	total := h.totalClients()
	h.mu.Unlock()

	client.Close()

	h.logger.Info("websocket client disconnected",
		zap.String("user_id", client.userID),
		zap.String("connection_id", client.connectionID),
		zap.Int("total", total),
	)

	if last {
		h.setPresence(client.userID, false)
	}
}

func (h *Hub) setPresence(userID string, online bool) {
	if h.presence != nil {
		if online {
			h.presence.MarkUserOnline(userID)
		} else {
			h.presence.MarkUserOffline(userID)
		}
	}
	h.BroadcastMessage(&BroadcastMessage{
		Channel: wstypes.ChannelPresence,
		Message: wstypes.NewMessage(wstypes.EventTypePresence, wstypes.PresenceData{UserID: userID, Online: online}),
	})
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	var targets []*Client
	if msg.UserIDs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				if client.IsSubscribed(msg.Channel) {
					targets = append(targets, client)
				}
			}
		}
	} else {
		for _, userID := range msg.UserIDs {
			for client := range h.clients[userID] {
				if client.IsSubscribed(msg.Channel) {
					targets = append(targets, client)
				}
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.SendMessage(msg.Message)
	}
}

func (h *Hub) GetConnectedClients(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID string) bool {
	return h.GetConnectedClients(userID) > 0
}

// ConnectedUsers lists users with at least one connection.
func (h *Hub) ConnectedUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// Public methods for broadcasting

// BroadcastNotification pushes a newly created notification and the unread
// count to every client on the notifications channel. It never blocks; when
// the queue is full the push is dropped.
func (h *Hub) BroadcastNotification(n *notification.Notification, unreadCount int) {
	h.enqueue(&BroadcastMessage{
		Channel: wstypes.ChannelNotifications,
		Message: wstypes.NewMessage(wstypes.EventTypeNotification, n),
	})
	h.BroadcastNotificationCount(unreadCount)
}

func (h *Hub) BroadcastNotificationCount(count int) {
	h.enqueue(&BroadcastMessage{
		Channel: wstypes.ChannelNotifications,
		Message: wstypes.NewMessage(wstypes.EventTypeNotificationCount, wstypes.CountData{UnreadCount: count}),
	})
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message",
			zap.String("type", string(msg.Message.Type)),
		)
	}
}

// DisconnectUser forcefully disconnects all sessions for a user
func (h *Hub) DisconnectUser(userID string, reason string) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	disconnectMsg := wstypes.NewMessage(wstypes.EventTypeDisconnected, map[string]interface{}{
		"reason": reason,
	})
	for _, client := range clients {
		client.SendMessage(disconnectMsg)
		h.requestUnregister(client)
	}
}

// requestUnregister hands client to the Run loop without blocking callers
// that may themselves be running inside it.
func (h *Hub) requestUnregister(client *Client) {
	go func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for _, clients := range h.clients {
			for client := range clients {
				client.Close()
			}
		}
		h.clients = make(map[string]map[*Client]bool)
	})
}
