package websocket

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

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type presenceRecorder struct {
	mu     sync.Mutex
	online map[string]bool
	events []string
}

func newPresenceRecorder() *presenceRecorder {
	return &presenceRecorder{online: make(map[string]bool)}
}

func (p *presenceRecorder) MarkUserOnline(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = true
	p.events = append(p.events, "online:"+userID)
}

func (p *presenceRecorder) MarkUserOffline(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
	p.events = append(p.events, "offline:"+userID)
}

func (p *presenceRecorder) isOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

func (p *presenceRecorder) history() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type hubFixture struct {
	hub      *Hub
	presence *presenceRecorder
	server   *httptest.Server
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()

	presence := newPresenceRecorder()
	hub := NewHub(presence, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = hub.Connect(NewClient(hub, conn, r.URL.Query().Get("user_id")))
	}))

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &hubFixture{hub: hub, presence: presence, server: server}
}

func (f *hubFixture) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?user_id=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	msg := readMessage(t, conn)
	require.Equal(t, wstypes.EventTypeConnected, msg.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) *wstypes.WSMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := wstypes.ParseMessage(data)
	require.NoError(t, err)
	return msg
}

func TestPresenceFollowsConnections(t *testing.T) {
	f := newHubFixture(t)

	first := f.dial(t, "u1")
	second := f.dial(t, "u1")

	assert.True(t, f.presence.isOnline("u1"))
	assert.Equal(t, 2, f.hub.GetConnectedClients("u1"))

	require.NoError(t, first.Close())
	assert.Eventually(t, func() bool { return f.hub.GetConnectedClients("u1") == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, f.presence.isOnline("u1"))

	require.NoError(t, second.Close())
	assert.Eventually(t, func() bool { return !f.presence.isOnline("u1") }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"online:u1", "offline:u1"}, f.presence.history())
	assert.False(t, f.hub.IsUserConnected("u1"))
}

func TestBroadcastNotificationReachesSubscribers(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t, "u1")
	defer conn.Close()

	f.hub.BroadcastNotification(&notification.Notification{
		ID:    "n-1",
		Title: "Ticket Status Updated",
		Type:  notification.TypeInfo,
	}, 4)

	msg := readMessage(t, conn)
	require.Equal(t, wstypes.EventTypeNotification, msg.Type)
	var n notification.Notification
	require.NoError(t, DecodeData(msg.Data, &n))
	assert.Equal(t, "n-1", n.ID)

	msg = readMessage(t, conn)
	require.Equal(t, wstypes.EventTypeNotificationCount, msg.Type)
	var count wstypes.CountData
	require.NoError(t, DecodeData(msg.Data, &count))
	assert.Equal(t, 4, count.UnreadCount)
}

func TestUnsubscribedClientIsSkipped(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t, "u1")
	defer conn.Close()

	unsubscribe, err := json.Marshal(wstypes.NewMessage(wstypes.EventTypeUnsubscribe, wstypes.UnsubscribeRequest{
		Channels: []wstypes.ChannelType{wstypes.ChannelNotifications},
	}))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, unsubscribe))
	require.Equal(t, wstypes.EventTypeUnsubscribe, readMessage(t, conn).Type)

	f.hub.BroadcastNotificationCount(1)

	ping, err := json.Marshal(wstypes.NewMessage(wstypes.EventTypePing, nil))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, ping))
	assert.Equal(t, wstypes.EventTypePong, readMessage(t, conn).Type)
}

func TestUnknownEventGetsError(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t, "u1")
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))
	msg := readMessage(t, conn)
	assert.Equal(t, wstypes.EventTypeError, msg.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	msg = readMessage(t, conn)
	assert.Equal(t, wstypes.EventTypeError, msg.Type)
}

func TestConnectAfterShutdown(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.ErrorIs(t, hub.Connect(&Client{hub: hub}), ErrHubStopped)
}
