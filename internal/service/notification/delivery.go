// internal/service/notification/delivery.go
package notification

import (
	"context"
	"time"

	"clinicdesk-service/internal/domain/notification"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentFlushes = 8

// routeEmail sends n right away to offline recipients and queues it for
// online ones.
func (s *NotificationService) routeEmail(n *notification.Notification) {
	if s.email == nil || n.EmailDelivery == nil || !n.EmailDelivery.SendToOfflineUsers {
		return
	}

	recipients := n.EmailDelivery.RecipientIDs
	if len(recipients) == 0 {
		recipients = s.broadcastRecipients()
	}

	for _, userID := range recipients {
		if userID == "" {
			continue
		}
		if s.email.IsUserOffline(userID) {
			s.sendAsync(userID, n.Clone())
		} else {
			s.enqueue(userID, n.Clone())
		}
	}
}

func (s *NotificationService) broadcastRecipients() []string {
	if len(s.broadcast) > 0 {
		return s.broadcast
	}
	return s.email.KnownUsers()
}

func (s *NotificationService) sendAsync(userID string, n *notification.Notification) {
	s.deliveries.Add(1)
	go func() {
		defer s.deliveries.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		s.email.SendEmailNotification(ctx, userID, n)
	}()
}

func (s *NotificationService) enqueue(userID string, n *notification.Notification) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pending[userID] = append(s.pending[userID], n)
}

// PendingFor returns a copy of the emails queued for userID.
func (s *NotificationService) PendingFor(userID string) []*notification.Notification {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	queue := s.pending[userID]
	out := make([]*notification.Notification, len(queue))
	for i, n := range queue {
		out[i] = n.Clone()
	}
	return out
}

// CheckPendingDeliveries flushes the queue of every user that is now offline
// as one batch email per user and clears it. Users still online keep their
// queue. It returns the number of users flushed.
func (s *NotificationService) CheckPendingDeliveries(ctx context.Context) int {
	if s.email == nil {
		return 0
	}

	s.pendingMu.Lock()
	batches := make(map[string][]*notification.Notification)
	for userID, queue := range s.pending {
		if len(queue) == 0 {
			delete(s.pending, userID)
			continue
		}
		if s.email.IsUserOffline(userID) {
			batches[userID] = queue
			delete(s.pending, userID)
		}
	}
	s.pendingMu.Unlock()

	if len(batches) == 0 {
		return 0
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentFlushes)
	for userID, batch := range batches {
		userID, batch := userID, batch
		g.Go(func() error {
			if !s.email.SendBatchEmailNotifications(ctx, userID, batch) {
				s.logger.Warn("pending email batch not delivered",
					zap.String("user_id", userID),
					zap.Int("count", len(batch)),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return len(batches)
}

// Run sweeps the pending queues every sweep interval until ctx is done.
func (s *NotificationService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	s.logger.Info("pending email sweep started", zap.Duration("interval", s.sweepInterval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("pending email sweep stopped")
			return
		case <-ticker.C:
			if flushed := s.CheckPendingDeliveries(ctx); flushed > 0 {
				s.logger.Info("flushed pending emails", zap.Int("users", flushed))
			}
		}
	}
}

// Wait blocks until every immediate email started so far has finished.
func (s *NotificationService) Wait() {
	s.deliveries.Wait()
}

// WaitContext is Wait bounded by ctx. It returns ctx.Err() if sends are
// still in flight when ctx is done.
func (s *NotificationService) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.deliveries.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
