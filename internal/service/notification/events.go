// internal/service/notification/events.go
package notification

import (
	"fmt"
	"time"

	"clinicdesk-service/internal/domain/notification"
)

// NotifyTicketStatusChange emails the assignee, or everyone when the ticket is
// unassigned.
func (s *NotificationService) NotifyTicketStatusChange(req notification.TicketStatusChangeRequest) *notification.Notification {
	metadata := map[string]interface{}{
		"ticketId":  req.TicketID,
		"oldStatus": req.OldStatus,
		"newStatus": req.NewStatus,
	}
	if req.AssignedTo != "" {
		metadata["assignedTo"] = req.AssignedTo
	}

	return s.add(&notification.Notification{
		Title:       "Ticket Status Updated",
		Message:     fmt.Sprintf("Ticket %q changed from %s to %s", req.TicketTitle, req.OldStatus, req.NewStatus),
		Type:        notification.TypeInfo,
		Source:      notification.SourceTicket,
		ActionURL:   "/tickets/" + req.TicketID,
		ActionLabel: "View Ticket",
		Metadata:    metadata,
		EmailDelivery: &notification.EmailDelivery{
			SendToOfflineUsers: true,
			Priority:           notification.PriorityMedium,
			RecipientIDs:       recipients(req.AssignedTo),
		},
	})
}

func (s *NotificationService) NotifyFormSubmission(req notification.FormSubmissionRequest) *notification.Notification {
	message := fmt.Sprintf("%s was submitted by %s", req.FormName, req.SubmittedBy)
	actionURL, actionLabel := "/forms/"+req.FormID, "View Form"
	metadata := map[string]interface{}{
		"formId":      req.FormID,
		"formName":    req.FormName,
		"submittedBy": req.SubmittedBy,
	}
	if req.TicketID != "" {
		message += fmt.Sprintf(" (ticket %s created)", req.TicketID)
		actionURL, actionLabel = "/tickets/"+req.TicketID, "View Ticket"
		metadata["ticketId"] = req.TicketID
	}

	return s.add(&notification.Notification{
		Title:       "New Form Submission",
		Message:     message,
		Type:        notification.TypeSuccess,
		Source:      notification.SourceForm,
		ActionURL:   actionURL,
		ActionLabel: actionLabel,
		Metadata:    metadata,
		EmailDelivery: &notification.EmailDelivery{
			SendToOfflineUsers: true,
			Priority:           notification.PriorityMedium,
		},
	})
}

// NotifyAuthorizationAlert raises a warning, or an error when req.Severity is
// error. Any other severity is treated as warning.
func (s *NotificationService) NotifyAuthorizationAlert(req notification.AuthorizationAlertRequest) *notification.Notification {
	severity := notification.TypeWarning
	priority := notification.PriorityMedium
	if req.Severity == notification.TypeError {
		severity = notification.TypeError
		priority = notification.PriorityHigh
	}

	return s.add(&notification.Notification{
		Title:       "Authorization Alert: " + req.ClientName,
		Message:     req.Message,
		Type:        severity,
		Source:      notification.SourceAuthorization,
		ActionURL:   "/authorizations/" + req.AuthID,
		ActionLabel: "View Authorization",
		Metadata: map[string]interface{}{
			"clientName": req.ClientName,
			"authId":     req.AuthID,
		},
		EmailDelivery: &notification.EmailDelivery{
			SendToOfflineUsers: true,
			Priority:           priority,
			RecipientIDs:       recipients(req.AssignedTo),
		},
	})
}

func (s *NotificationService) NotifySystem(req notification.SystemNotificationRequest) *notification.Notification {
	return s.add(general(notification.SourceSystem, req))
}

// NotifyAdmin follows the same rules as NotifySystem under the admin source.
func (s *NotificationService) NotifyAdmin(req notification.SystemNotificationRequest) *notification.Notification {
	return s.add(general(notification.SourceAdmin, req))
}

// NotifyDeadlineApproaching derives severity from req.DaysRemaining. Deadlines
// more than a week out are still recorded as info.
func (s *NotificationService) NotifyDeadlineApproaching(req notification.DeadlineRequest) *notification.Notification {
	kind, priority := deadlineSeverity(req.DaysRemaining)

	return s.add(&notification.Notification{
		Title:       "Deadline Approaching",
		Message:     deadlineMessage(req.ProjectTitle, req.DueDate, req.DaysRemaining),
		Type:        kind,
		Source:      notification.SourceAdmin,
		ActionURL:   "/projects/" + req.ProjectID,
		ActionLabel: "View Project",
		Metadata: map[string]interface{}{
			"projectId":     req.ProjectID,
			"dueDate":       req.DueDate.Format(time.RFC3339),
			"daysRemaining": req.DaysRemaining,
		},
		EmailDelivery: &notification.EmailDelivery{
			SendToOfflineUsers: true,
			Priority:           priority,
			RecipientIDs:       recipients(req.AssignedTo),
		},
	})
}

func general(source notification.Source, req notification.SystemNotificationRequest) *notification.Notification {
	kind := req.Type
	if !kind.Valid() {
		kind = notification.TypeInfo
	}
	priority := req.EmailPriority
	if !priority.Valid() {
		priority = notification.PriorityLow
	}

	var metadata map[string]interface{}
	if len(req.Metadata) > 0 {
		metadata = make(map[string]interface{}, len(req.Metadata))
		for k, v := range req.Metadata {
			metadata[k] = v
		}
	}

	return &notification.Notification{
		Title:       req.Title,
		Message:     req.Message,
		Type:        kind,
		Source:      source,
		ActionURL:   req.ActionURL,
		ActionLabel: req.ActionLabel,
		Metadata:    metadata,
		EmailDelivery: &notification.EmailDelivery{
			SendToOfflineUsers: kind == notification.TypeError || kind == notification.TypeWarning,
			Priority:           priority,
		},
	}
}

func deadlineSeverity(daysRemaining int) (notification.NotificationType, notification.Priority) {
	switch {
	case daysRemaining <= 1:
		return notification.TypeError, notification.PriorityHigh
	case daysRemaining <= 3:
		return notification.TypeWarning, notification.PriorityMedium
	default:
		return notification.TypeInfo, notification.PriorityLow
	}
}

func deadlineMessage(title string, due time.Time, daysRemaining int) string {
	switch {
	case daysRemaining < 0:
		return fmt.Sprintf("Project %q is overdue (was due %s)", title, due.Format("Jan 2, 2006"))
	case daysRemaining == 0:
		return fmt.Sprintf("Project %q is due today", title)
	case daysRemaining == 1:
		return fmt.Sprintf("Project %q is due tomorrow", title)
	default:
		return fmt.Sprintf("Project %q is due in %d days (%s)", title, daysRemaining, due.Format("Jan 2, 2006"))
	}
}

func recipients(assignedTo string) []string {
	if assignedTo == "" {
		return nil
	}
	return []string{assignedTo}
}
