// internal/domain/notification/entity.go
package notification

import "time"

// NotificationType is the severity of a notification.
type NotificationType string

const (
	TypeInfo    NotificationType = "info"
	TypeSuccess NotificationType = "success"
	TypeWarning NotificationType = "warning"
	TypeError   NotificationType = "error"
)

// Source is the domain a notification originated from.
type Source string

const (
	SourceTicket        Source = "ticket"
	SourceForm          Source = "form"
	SourceAuthorization Source = "authorization"
	SourceSystem        Source = "system"
	SourceAdmin         Source = "admin"
)

// Priority of an email delivery. Ordered low < medium < high.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Ordinal returns 1, 2 or 3 for low, medium and high. Unknown values are 0.
func (p Priority) Ordinal() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	default:
		return 0
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Ordinal() > 0
}

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError:
		return true
	}
	return false
}

// Priority maps a notification type onto the priority scale used by
// preference filtering: error is high, warning is medium, everything else low.
func (t NotificationType) Priority() Priority {
	switch t {
	case TypeError:
		return PriorityHigh
	case TypeWarning:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// EmailDelivery tells the delivery layer whether and how a notification
// should reach users by email. A nil EmailDelivery means never emailed.
type EmailDelivery struct {
	SendToOfflineUsers bool     `json:"sendToOfflineUsers"`
	Priority           Priority `json:"priority"`
	RecipientIDs       []string `json:"recipientIds,omitempty"`
}

// Notification is an in-app notification record. ID, Timestamp, Source and
// Type never change after creation; only Read is mutated.
type Notification struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	Type          NotificationType       `json:"type"`
	Source        Source                 `json:"source"`
	Timestamp     time.Time              `json:"timestamp"`
	Read          bool                   `json:"read"`
	ActionURL     string                 `json:"actionUrl,omitempty"`
	ActionLabel   string                 `json:"actionLabel,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	EmailDelivery *EmailDelivery         `json:"emailDelivery,omitempty"`
}

// Clone returns a copy that shares no mutable state with n.
func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}
	c := *n
	if n.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	if n.EmailDelivery != nil {
		ed := *n.EmailDelivery
		if ed.RecipientIDs != nil {
			ed.RecipientIDs = append([]string(nil), ed.RecipientIDs...)
		}
		c.EmailDelivery = &ed
	}
	return &c
}

// DTOs

type TicketStatusChangeRequest struct {
	TicketID    string `json:"ticketId" binding:"required"`
	TicketTitle string `json:"ticketTitle" binding:"required"`
	OldStatus   string `json:"oldStatus"`
	NewStatus   string `json:"newStatus" binding:"required"`
	AssignedTo  string `json:"assignedTo"`
}

type FormSubmissionRequest struct {
	FormID      string `json:"formId" binding:"required"`
	FormName    string `json:"formName" binding:"required"`
	SubmittedBy string `json:"submittedBy" binding:"required"`
	TicketID    string `json:"ticketId"`
}

type AuthorizationAlertRequest struct {
	ClientName string           `json:"clientName" binding:"required"`
	AuthID     string           `json:"authId" binding:"required"`
	Message    string           `json:"message" binding:"required"`
	Severity   NotificationType `json:"severity"`
	AssignedTo string           `json:"assignedTo"`
}

type SystemNotificationRequest struct {
	Title         string                 `json:"title" binding:"required"`
	Message       string                 `json:"message" binding:"required"`
	Type          NotificationType       `json:"type"`
	ActionURL     string                 `json:"actionUrl"`
	ActionLabel   string                 `json:"actionLabel"`
	Metadata      map[string]interface{} `json:"metadata"`
	EmailPriority Priority               `json:"emailPriority"`
}

type DeadlineRequest struct {
	ProjectID     string    `json:"projectId" binding:"required"`
	ProjectTitle  string    `json:"projectTitle" binding:"required"`
	DueDate       time.Time `json:"dueDate" binding:"required"`
	DaysRemaining int       `json:"daysRemaining"`
	AssignedTo    string    `json:"assignedTo"`
}

type NotificationListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unreadCount"`
	Total         int             `json:"total"`
}
