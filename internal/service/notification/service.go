// internal/service/notification/service.go
package notification

import (
	"context"
	"sync"
	"time"

	"clinicdesk-service/internal/domain/notification"
	"clinicdesk-service/internal/service/featureflag"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	DefaultHistoryLimit  = 100
	DefaultSweepInterval = time.Minute
	sendTimeout          = 30 * time.Second
)

// Listener receives every notification created after it was registered.
type Listener func(n *notification.Notification)

// EmailGateway is the part of the email delivery layer the service routes to.
type EmailGateway interface {
	SendEmailNotification(ctx context.Context, userID string, n *notification.Notification) bool
	SendBatchEmailNotifications(ctx context.Context, userID string, ns []*notification.Notification) bool
	IsUserOffline(userID string) bool
	MarkUserOnline(userID string)
	KnownUsers() []string
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// NotificationService creates notifications from domain events, keeps a
// bounded newest-first history, fans out to listeners and routes email
// delivery for offline users.
type NotificationService struct {
	gate   featureflag.Gate
	email  EmailGateway
	logger *zap.Logger

	historyLimit  int
	sweepInterval time.Duration
	broadcast     []string
	now           func() time.Time
	newID         func() string

	mu            sync.RWMutex
	notifications []*notification.Notification

	listenerMu     sync.RWMutex
	listeners      []listenerEntry
	nextListenerID uint64

	pendingMu sync.Mutex
	pending   map[string][]*notification.Notification

	userMu        sync.RWMutex
	currentUserID string

	deliveries sync.WaitGroup
}

type Option func(*NotificationService)

func WithHistoryLimit(limit int) Option {
	return func(s *NotificationService) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

func WithSweepInterval(d time.Duration) Option {
	return func(s *NotificationService) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithBroadcastRecipients fixes the users that untargeted notifications are
// routed to. Without it every user known to the email gateway is used.
func WithBroadcastRecipients(userIDs []string) Option {
	return func(s *NotificationService) {
		s.broadcast = append([]string(nil), userIDs...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *NotificationService) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *NotificationService) {
		s.newID = newID
	}
}

// NewNotificationService builds the service. email may be nil, in which case
// notifications are never routed to email.
func NewNotificationService(gate featureflag.Gate, email EmailGateway, logger *zap.Logger, opts ...Option) *NotificationService {
	s := &NotificationService{
		gate:          gate,
		email:         email,
		logger:        logger,
		historyLimit:  DefaultHistoryLimit,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		newID:         func() string { return ulid.Make().String() },
		pending:       make(map[string][]*notification.Notification),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetNotifications returns copies of the history, newest first.
func (s *NotificationService) GetNotifications() []*notification.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*notification.Notification, len(s.notifications))
	for i, n := range s.notifications {
		out[i] = n.Clone()
	}
	return out
}

// GetNotification returns a copy of the notification with id.
func (s *NotificationService) GetNotification(id string) (*notification.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notifications {
		if n.ID == id {
			return n.Clone(), true
		}
	}
	return nil, false
}

func (s *NotificationService) GetUnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkAsRead flags the notification as read. Unknown ids are ignored.
func (s *NotificationService) MarkAsRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notifications {
		if n.ID == id {
			n.Read = true
			return
		}
	}
}

func (s *NotificationService) MarkAllAsRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notifications {
		n.Read = true
	}
}

func (s *NotificationService) ClearNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i:i], s.notifications[i+1:]...)
			return
		}
	}
}

func (s *NotificationService) ClearAllNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
}

// AddListener registers fn and returns a function that unregisters it.
func (s *NotificationService) AddListener(fn Listener) func() {
	s.listenerMu.Lock()
	s.nextListenerID++
	id := s.nextListenerID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenerMu.Lock()
			defer s.listenerMu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// SetCurrentUserID records who "self" is and marks that user online.
func (s *NotificationService) SetCurrentUserID(userID string) {
	s.userMu.Lock()
	s.currentUserID = userID
	s.userMu.Unlock()

	if s.email != nil && userID != "" {
		s.email.MarkUserOnline(userID)
	}
}

func (s *NotificationService) CurrentUserID() string {
	s.userMu.RLock()
	defer s.userMu.RUnlock()
	return s.currentUserID
}

// add stamps n, stores it, runs the listeners and routes email. It returns
// nil when the notifications feature is off.
func (s *NotificationService) add(n *notification.Notification) *notification.Notification {
	if s.gate != nil && !s.gate.IsEnabled(featureflag.Notifications) {
		return nil
	}

	n.ID = s.newID()
	n.Timestamp = s.now()

	s.mu.Lock()
	s.notifications = append([]*notification.Notification{n}, s.notifications...)
	if len(s.notifications) > s.historyLimit {
		s.notifications = s.notifications[:s.historyLimit]
	}
	s.mu.Unlock()

	s.notifyListeners(n)
	s.routeEmail(n)

	return n.Clone()
}

func (s *NotificationService) notifyListeners(n *notification.Notification) {
	s.listenerMu.RLock()
	listeners := make([]Listener, len(s.listeners))
	for i, l := range s.listeners {
		listeners[i] = l.fn
	}
	s.listenerMu.RUnlock()

	for _, fn := range listeners {
		s.invoke(fn, n)
	}
}

func (s *NotificationService) invoke(fn Listener, n *notification.Notification) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("notification listener failed",
				zap.String("notification_id", n.ID),
				zap.Any("error", r),
			)
		}
	}()
	fn(n.Clone())
}
