package email

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"clinicdesk-service/internal/domain/notification"

	"github.com/emersion/go-message/mail"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMTPSenderBuildMessage(t *testing.T) {
	t.Parallel()
	s := NewSMTPSender("smtp.example.com", "465", "noreply@example.com", "secret", "Clinic Admin", true)

	raw, err := s.buildMessage("jane@example.com", "Ticket Status Updated", "<p>Ticket moved to Done</p>")
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Ticket Status Updated", subject)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "jane@example.com", to[0].Address)

	part, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<p>Ticket moved to Done</p>")
	assert.Contains(t, string(body), "Clinic Admin")
}

// silentListener accepts connections and never writes to them.
func silentListener(t *testing.T) (host, port string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

func TestSMTPSenderHonoursContextWhenServerStalls(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name   string
		secure bool
	}{
		{name: "starttls", secure: false},
		{name: "implicit tls", secure: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			host, port := silentListener(t)
			s := NewSMTPSender(host, port, "noreply@example.com", "secret", "Clinic Admin", tc.secure)

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			start := time.Now()
			err := s.Send(ctx, Message{To: "jane@example.com", Subject: "hi", HTML: "<p>hi</p>"})
			require.Error(t, err)
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}
}

func TestSMTPSenderStopsOnCancel(t *testing.T) {
	t.Parallel()
	host, port := silentListener(t)
	s := NewSMTPSender(host, port, "noreply@example.com", "secret", "Clinic Admin", false)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	err := s.Send(ctx, Message{To: "jane@example.com", Subject: "hi", HTML: "<p>hi</p>"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

// serveSMTP answers one plain SMTP session and hands over the DATA payload.
func serveSMTP(ln net.Listener, got chan<- string) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 mail.example.com ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250 mail.example.com")
		case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
			_ = tp.PrintfLine("250 OK")
		case cmd == "DATA":
			_ = tp.PrintfLine("354 go ahead")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			got <- string(body)
			_ = tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 unsupported")
		}
	}
}

func TestSMTPSenderDeliversOverPlainSession(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan string, 1)
	go serveSMTP(ln, got)

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	s := NewSMTPSender(host, port, "noreply@example.com", "", "Clinic Admin", false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Send(ctx, Message{To: "jane@example.com", Subject: "Ticket Status Updated", HTML: "<p>moved</p>"}))

	select {
	case body := <-got:
		assert.Contains(t, body, "jane@example.com")
		assert.Contains(t, body, "<p>moved</p>")
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestSimulatedTransport(t *testing.T) {
	t.Parallel()
	tr := NewSimulatedTransport(0, zap.NewNop())
	assert.NoError(t, tr.Send(context.Background(), Message{To: "a@example.com", Subject: "hi"}))

	slow := NewSimulatedTransport(time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, slow.Send(ctx, Message{To: "a@example.com"}), context.Canceled)
}

func TestMetricsTransport(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	inner := &recordingTransport{}
	tr := NewMetricsTransport("simulated", inner, reg)

	require.NoError(t, tr.Send(context.Background(), Message{To: "a@example.com"}))
	require.NoError(t, tr.Send(context.Background(), Message{To: "b@example.com"}))

	assert.Equal(t, 2, inner.count())
	assert.Equal(t, float64(2), testutil.ToFloat64(tr.sendCounter.WithLabelValues("simulated", "success")))
	assert.Equal(t, float64(0), testutil.ToFloat64(tr.sendCounter.WithLabelValues("simulated", "failed")))
}

func TestRendererEscapesContent(t *testing.T) {
	t.Parallel()
	r := NewRenderer("https://admin.example.com/")
	n := &notification.Notification{
		Title:       "Form <script>",
		Message:     "a & b",
		Type:        notification.TypeSuccess,
		Source:      notification.SourceForm,
		ActionURL:   "/forms/F-1",
		ActionLabel: "Open form",
	}

	subject, body := r.Single(n)
	assert.Equal(t, "Form <script>", subject)
	assert.Contains(t, body, "Form &lt;script&gt;")
	assert.Contains(t, body, "a &amp; b")
	assert.Contains(t, body, `href="https://admin.example.com/forms/F-1"`)

	subject, _ = r.Batch([]*notification.Notification{n})
	assert.Equal(t, "1 new notification", subject)
}

func TestRendererBatchKeepsQueueOrder(t *testing.T) {
	t.Parallel()
	r := NewRenderer("")
	older := &notification.Notification{Title: "Ticket T-1 moved", Type: notification.TypeInfo, Source: notification.SourceTicket}
	newer := &notification.Notification{Title: "Ticket T-2 moved", Type: notification.TypeInfo, Source: notification.SourceTicket}

	subject, body := r.Batch([]*notification.Notification{older, newer})
	assert.Equal(t, "2 new notifications", subject)
	first, second := strings.Index(body, "Ticket T-1 moved"), strings.Index(body, "Ticket T-2 moved")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
}
