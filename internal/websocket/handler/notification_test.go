package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"clinicdesk-service/internal/domain/notification"
	wstypes "clinicdesk-service/internal/domain/websocket"
	ws "clinicdesk-service/internal/websocket"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryStore struct {
	mu    sync.Mutex
	items []*notification.Notification
}

func (s *memoryStore) GetNotifications() []*notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*notification.Notification, len(s.items))
	for i, n := range s.items {
		out[i] = n.Clone()
	}
	return out
}

func (s *memoryStore) GetUnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

func (s *memoryStore) MarkAsRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.ID == id {
			n.Read = true
		}
	}
}

func (s *memoryStore) MarkAllAsRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		n.Read = true
	}
}

func (s *memoryStore) ClearNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.items {
		if n.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

func (s *memoryStore) ClearAllNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

func dial(t *testing.T, store NotificationStore) *websocket.Conn {
	t.Helper()

	hub := ws.NewHub(nil, zap.NewNop())
	hub.RegisterHandler(NewNotificationHandler(store))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = hub.Connect(ws.NewClient(hub, conn, "u1"))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Equal(t, wstypes.EventTypeConnected, read(t, conn).Type)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType wstypes.EventType, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(wstypes.NewMessage(eventType, data))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func read(t *testing.T, conn *websocket.Conn) *wstypes.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := wstypes.ParseMessage(raw)
	require.NoError(t, err)
	return msg
}

// readUntil skips count broadcasts that may interleave with direct replies.
func readUntil(t *testing.T, conn *websocket.Conn, eventType wstypes.EventType) *wstypes.WSMessage {
	t.Helper()
	for i := 0; i < 5; i++ {
		if msg := read(t, conn); msg.Type == eventType {
			return msg
		}
	}
	t.Fatalf("no %s message received", eventType)
	return nil
}

func seeded() *memoryStore {
	return &memoryStore{items: []*notification.Notification{
		{ID: "n-3", Title: "three"},
		{ID: "n-2", Title: "two", Read: true},
		{ID: "n-1", Title: "one"},
	}}
}

func TestMarkAsReadOverSocket(t *testing.T) {
	store := seeded()
	conn := dial(t, store)

	send(t, conn, wstypes.EventTypeNotificationRead, map[string]string{"notification_id": "n-1"})
	msg := readUntil(t, conn, wstypes.EventTypeNotificationRead)

	var reply struct {
		Success     bool `json:"success"`
		UnreadCount int  `json:"unread_count"`
	}
	require.NoError(t, ws.DecodeData(msg.Data, &reply))
	assert.True(t, reply.Success)
	assert.Equal(t, 1, reply.UnreadCount)
	assert.Equal(t, 1, store.GetUnreadCount())
}

func TestMarkAsReadRequiresID(t *testing.T) {
	conn := dial(t, seeded())

	send(t, conn, wstypes.EventTypeNotificationRead, map[string]string{})
	assert.Equal(t, wstypes.EventTypeError, read(t, conn).Type)
}

func TestListOverSocket(t *testing.T) {
	conn := dial(t, seeded())

	send(t, conn, wstypes.EventTypeNotificationList, map[string]interface{}{"unread_only": true, "limit": 1})
	msg := readUntil(t, conn, wstypes.EventTypeNotificationList)

	var reply struct {
		Notifications []notification.Notification `json:"notifications"`
		Count         int                         `json:"count"`
		UnreadCount   int                         `json:"unread_count"`
	}
	require.NoError(t, ws.DecodeData(msg.Data, &reply))
	require.Len(t, reply.Notifications, 1)
	assert.Equal(t, "n-3", reply.Notifications[0].ID)
	assert.Equal(t, 2, reply.UnreadCount)
}

func TestCountReadAllAndClearOverSocket(t *testing.T) {
	store := seeded()
	conn := dial(t, store)

	send(t, conn, wstypes.EventTypeNotificationCount, nil)
	var count wstypes.CountData
	require.NoError(t, ws.DecodeData(readUntil(t, conn, wstypes.EventTypeNotificationCount).Data, &count))
	assert.Equal(t, 2, count.UnreadCount)

	send(t, conn, wstypes.EventTypeNotificationReadAll, nil)
	readUntil(t, conn, wstypes.EventTypeNotificationReadAll)
	assert.Equal(t, 0, store.GetUnreadCount())

	send(t, conn, wstypes.EventTypeNotificationClear, map[string]string{"notification_id": "n-2"})
	readUntil(t, conn, wstypes.EventTypeNotificationClear)
	assert.Len(t, store.GetNotifications(), 2)

	send(t, conn, wstypes.EventTypeNotificationClear, nil)
	readUntil(t, conn, wstypes.EventTypeNotificationClear)
	assert.Empty(t, store.GetNotifications())
}
