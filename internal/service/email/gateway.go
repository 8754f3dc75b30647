// internal/service/email/gateway.go
package email

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"clinicdesk-service/internal/domain/notification"

	"go.uber.org/zap"
)

// Gateway decides whether a user should get an email for a notification,
// sends it, and tracks presence and per-user preferences.
type Gateway struct {
	transport Transport
	renderer  *Renderer
	logger    *zap.Logger

	prefMu      sync.RWMutex
	preferences map[string]notification.UserEmailPreferences

	presenceMu sync.RWMutex
	offline    map[string]struct{}
}

func NewGateway(transport Transport, renderer *Renderer, logger *zap.Logger) *Gateway {
	return &Gateway{
		transport:   transport,
		renderer:    renderer,
		logger:      logger,
		preferences: make(map[string]notification.UserEmailPreferences),
		offline:     make(map[string]struct{}),
	}
}

// SendEmailNotification emails one notification to an offline user. It
// returns false when the user has no preferences, is filtered out, or the
// transport fails.
func (g *Gateway) SendEmailNotification(ctx context.Context, userID string, n *notification.Notification) bool {
	prefs, ok := g.GetUserPreferences(userID)
	if !ok {
		g.logger.Warn("no email preferences for user", zap.String("user_id", userID))
		return false
	}

	if !g.ShouldSendEmail(userID, n, true) {
		return false
	}

	subject, body := g.renderer.Single(n)
	if err := g.send(ctx, Message{To: prefs.Email, Subject: subject, HTML: body}); err != nil {
		g.logger.Error("failed to send email notification",
			zap.String("user_id", userID),
			zap.String("notification_id", n.ID),
			zap.Error(err),
		)
		return false
	}

	g.logger.Info("email notification sent",
		zap.String("user_id", userID),
		zap.String("notification_id", n.ID),
	)
	return true
}

// SendBatchEmailNotifications emails every eligible notification in ns as one
// digest. Presence is not checked: callers only batch for offline users.
// Nothing to send counts as success.
func (g *Gateway) SendBatchEmailNotifications(ctx context.Context, userID string, ns []*notification.Notification) bool {
	if len(ns) == 0 {
		return true
	}

	prefs, ok := g.GetUserPreferences(userID)
	if !ok {
		return false
	}

	eligible := make([]*notification.Notification, 0, len(ns))
	for _, n := range ns {
		if g.ShouldSendEmail(userID, n, false) {
			eligible = append(eligible, n)
		}
	}
	if len(eligible) == 0 {
		return true
	}

	subject, body := g.renderer.Batch(eligible)
	if err := g.send(ctx, Message{To: prefs.Email, Subject: subject, HTML: body}); err != nil {
		g.logger.Error("failed to send batch email",
			zap.String("user_id", userID),
			zap.Int("count", len(eligible)),
			zap.Error(err),
		)
		return false
	}

	g.logger.Info("batch email sent",
		zap.String("user_id", userID),
		zap.Int("count", len(eligible)),
	)
	return true
}

// ShouldSendEmail applies, in order: preferences exist, user is offline
// (when checkOfflineStatus), type-derived priority reaches the user's
// minimum, and the user's toggle for the notification source is on.
func (g *Gateway) ShouldSendEmail(userID string, n *notification.Notification, checkOfflineStatus bool) bool {
	prefs, ok := g.GetUserPreferences(userID)
	if !ok {
		return false
	}

	if checkOfflineStatus && !g.IsUserOffline(userID) {
		return false
	}

	if n.Type.Priority().Ordinal() < prefs.Preferences.MinPriority.Ordinal() {
		return false
	}

	return prefs.Preferences.Allows(n.Source)
}

func (g *Gateway) MarkUserOffline(userID string) {
	g.presenceMu.Lock()
	defer g.presenceMu.Unlock()
	g.offline[userID] = struct{}{}
}

func (g *Gateway) MarkUserOnline(userID string) {
	g.presenceMu.Lock()
	defer g.presenceMu.Unlock()
	delete(g.offline, userID)
}

func (g *Gateway) IsUserOffline(userID string) bool {
	g.presenceMu.RLock()
	defer g.presenceMu.RUnlock()
	_, ok := g.offline[userID]
	return ok
}

func (g *Gateway) UpdateUserPreferences(prefs notification.UserEmailPreferences) {
	g.prefMu.Lock()
	defer g.prefMu.Unlock()
	g.preferences[prefs.UserID] = prefs
}

func (g *Gateway) GetUserPreferences(userID string) (notification.UserEmailPreferences, bool) {
	g.prefMu.RLock()
	defer g.prefMu.RUnlock()
	prefs, ok := g.preferences[userID]
	return prefs, ok
}

// KnownUsers lists every user with stored preferences, sorted.
func (g *Gateway) KnownUsers() []string {
	g.prefMu.RLock()
	users := make([]string, 0, len(g.preferences))
	for id := range g.preferences {
		users = append(users, id)
	}
	g.prefMu.RUnlock()

	sort.Strings(users)
	return users
}

func (g *Gateway) send(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()
	return g.transport.Send(ctx, msg)
}
