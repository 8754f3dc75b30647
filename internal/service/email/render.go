// internal/service/email/render.go
package email

import (
	"fmt"
	"html"
	"strings"

	"clinicdesk-service/internal/domain/notification"

	"github.com/ecodeclub/ekit/slice"
)

// Renderer turns notifications into email subjects and HTML bodies.
type Renderer struct {
	baseURL string
}

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/")}
}

// Single renders one notification.
func (r *Renderer) Single(n *notification.Notification) (string, string) {
	subject := n.Title
	if n.Type == notification.TypeError || n.Type == notification.TypeWarning {
		subject = fmt.Sprintf("[%s] %s", strings.ToUpper(string(n.Type)), n.Title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(n.Title))
	fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(n.Message))
	if link := r.link(n); link != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", link)
	}
	fmt.Fprintf(&b, "<p style=\"color:#888;font-size:12px\">%s</p>\n", n.Timestamp.Format("Jan 2, 2006 15:04 MST"))
	return subject, b.String()
}

// Batch renders several notifications as one digest in the order given.
// Pending queues pass them oldest first.
func (r *Renderer) Batch(ns []*notification.Notification) (string, string) {
	subject := fmt.Sprintf("%d new notifications", len(ns))
	if len(ns) == 1 {
		subject = "1 new notification"
	}

	items := slice.Map(ns, func(idx int, n *notification.Notification) string {
		item := fmt.Sprintf(
			"<div class=\"item\"><span class=\"badge %s\">%s</span> <strong>%s</strong><p>%s</p>",
			n.Type, html.EscapeString(string(n.Source)), html.EscapeString(n.Title), html.EscapeString(n.Message),
		)
		if link := r.link(n); link != "" {
			item += link
		}
		return item + "</div>"
	})

	body := "<h2>While you were away</h2>\n" + strings.Join(items, "\n")
	return subject, body
}

func (r *Renderer) link(n *notification.Notification) string {
	if n.ActionURL == "" {
		return ""
	}
	url := n.ActionURL
	if strings.HasPrefix(url, "/") {
		url = r.baseURL + url
	}
	label := n.ActionLabel
	if label == "" {
		label = "View"
	}
	return fmt.Sprintf("<a class=\"button\" href=\"%s\">%s</a>", html.EscapeString(url), html.EscapeString(label))
}
