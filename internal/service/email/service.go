// internal/service/email/service.go
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// SMTPSender handles outgoing emails via SMTP.
type SMTPSender struct {
	smtpHost string
	smtpPort string
	username string
	password string
	fromName string
	secure   bool
}

// NewSMTPSender creates a new SMTP email sender.
func NewSMTPSender(host, port, user, pass, fromName string, secure bool) *SMTPSender {
	return &SMTPSender{
		smtpHost: host,
		smtpPort: port,
		username: user,
		password: pass,
		fromName: fromName,
		secure:   secure,
	}
}

// Send sends an HTML email. The body is wrapped in the branded layout.
// The whole SMTP exchange is bounded by ctx.
func (e *SMTPSender) Send(ctx context.Context, m Message) error {
	msg, err := e.buildMessage(m.To, m.Subject, m.HTML)
	if err != nil {
		return err
	}

	serverAddr := net.JoinHostPort(e.smtpHost, e.smtpPort)

	// TLS configuration
	tlsConfig := &tls.Config{
		ServerName: e.smtpHost,
	}

	conn, err := e.dial(ctx, serverAddr, tlsConfig)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("set deadline failed: %w", err)
		}
	}
	// unblock pending reads and writes as soon as ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	client, err := smtp.NewClient(conn, e.smtpHost)
	if err != nil {
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer client.Close()

	if !e.secure {
		// Port 587 - STARTTLS
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("starttls failed: %w", err)
			}
		}
	}

	if ok, _ := client.Extension("AUTH"); ok && e.username != "" {
		auth := smtp.PlainAuth("", e.username, e.password, e.smtpHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth failed: %w", err)
		}
	}

	if err := e.sendMail(client, m.To, msg); err != nil {
		return err
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("quit failed: %w", err)
	}
	return nil
}

// dial opens the connection, with implicit TLS on port 465.
func (e *SMTPSender) dial(ctx context.Context, addr string, tlsConfig *tls.Config) (net.Conn, error) {
	if e.secure {
		dialer := &tls.Dialer{Config: tlsConfig}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("tls dial failed: %w", err)
		}
		return conn, nil
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return conn, nil
}

func (e *SMTPSender) buildMessage(to, subject, bodyHTML string) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Name: e.fromName, Address: e.username}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message failed: %w", err)
	}
	if _, err := io.WriteString(w, buildHTMLTemplate(e.fromName, bodyHTML)); err != nil {
		return nil, fmt.Errorf("write body failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close body failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *SMTPSender) sendMail(client *smtp.Client, to string, msg []byte) error {
	if err := client.Mail(e.username); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

// buildHTMLTemplate wraps a given body into the branded email layout.
func buildHTMLTemplate(brand, content string) string {
	header := `
	<!DOCTYPE html>
	<html>
	<head>
		<meta charset="utf-8" />
		<style>
			body { font-family: Arial, sans-serif; background-color: #f6f8fa; padding: 30px; }
			.container { max-width: 600px; margin: auto; background: #fff; border-radius: 10px; overflow: hidden; box-shadow: 0 2px 5px rgba(0,0,0,0.1); }
			.header { background: #1f6f8b; color: white; text-align: center; padding: 20px; font-size: 22px; font-weight: bold; }
			.footer { background: #f1f1f1; color: #555; text-align: center; padding: 15px; font-size: 13px; }
			.body { padding: 25px; color: #333; line-height: 1.6; }
			.item { border-bottom: 1px solid #eee; padding: 12px 0; }
			.badge { display: inline-block; padding: 2px 8px; border-radius: 4px; font-size: 12px; color: white; }
			.badge.info { background: #2f80ed; } .badge.success { background: #27ae60; }
			.badge.warning { background: #f2994a; } .badge.error { background: #eb5757; }
			a.button { display: inline-block; background: #1f6f8b; color: white; padding: 10px 20px; border-radius: 5px; text-decoration: none; }
		</style>
	</head>
	<body>
	<div class="container">
		<div class="header">` + brand + `</div>
		<div class="body">
	`

	footer := `
		</div>
		<div class="footer">
			<p>You are receiving this because email notifications are enabled in your settings.</p>
		</div>
	</div>
	</body>
	</html>
	`

	return header + strings.TrimSpace(content) + footer
}
