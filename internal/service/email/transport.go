// internal/service/email/transport.go
package email

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Message is a rendered email ready to hand to a Transport.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Transport delivers a single email.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// SimulatedTransport stands in for a mail server: it waits for delay and logs
// the message instead of delivering it.
type SimulatedTransport struct {
	delay  time.Duration
	logger *zap.Logger
}

func NewSimulatedTransport(delay time.Duration, logger *zap.Logger) *SimulatedTransport {
	return &SimulatedTransport{delay: delay, logger: logger}
}

func (t *SimulatedTransport) Send(ctx context.Context, msg Message) error {
	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	t.logger.Info("simulated email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
