// internal/service/email/metrics.go
package email

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsTransport records send counts and latency around another Transport.
type MetricsTransport struct {
	name            string
	next            Transport
	sendCounter     *prometheus.CounterVec
	durationSummary *prometheus.SummaryVec
}

func NewMetricsTransport(name string, next Transport, reg prometheus.Registerer) *MetricsTransport {
	sendCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_send_total",
			Help: "Emails handed to the transport, by outcome.",
		},
		[]string{"transport", "status"},
	)

	durationSummary := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "email_send_duration_seconds",
			Help:       "Time spent delivering one email.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			MaxAge:     5 * time.Minute,
		},
		[]string{"transport", "status"},
	)

	reg.MustRegister(sendCounter, durationSummary)

	return &MetricsTransport{
		name:            name,
		next:            next,
		sendCounter:     sendCounter,
		durationSummary: durationSummary,
	}
}

func (t *MetricsTransport) Send(ctx context.Context, msg Message) error {
	start := time.Now()
	err := t.next.Send(ctx, msg)

	status := "success"
	if err != nil {
		status = "failed"
	}
	t.sendCounter.WithLabelValues(t.name, status).Inc()
	t.durationSummary.WithLabelValues(t.name, status).Observe(time.Since(start).Seconds())

	return err
}
