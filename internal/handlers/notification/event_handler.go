// internal/handlers/notification/event_handler.go
package notification

import (
	"net/http"

	"clinicdesk-service/internal/domain/notification"
	xerrors "clinicdesk-service/internal/pkg/errors"
	"clinicdesk-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

func (h *NotificationHandler) TicketStatusChanged(c *gin.Context) {
	var req notification.TicketStatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid ticket status payload", err)
		return
	}
	h.respondCreated(c, h.notificationService.NotifyTicketStatusChange(req))
}

func (h *NotificationHandler) FormSubmitted(c *gin.Context) {
	var req notification.FormSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid form submission payload", err)
		return
	}
	h.respondCreated(c, h.notificationService.NotifyFormSubmission(req))
}

func (h *NotificationHandler) AuthorizationAlert(c *gin.Context) {
	var req notification.AuthorizationAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid authorization alert payload", err)
		return
	}
	if req.Severity != "" && req.Severity != notification.TypeWarning && req.Severity != notification.TypeError {
		response.ValidationError(c, "severity must be warning or error", xerrors.ErrInvalidInput)
		return
	}
	h.respondCreated(c, h.notificationService.NotifyAuthorizationAlert(req))
}

func (h *NotificationHandler) SystemEvent(c *gin.Context) {
	req, ok := h.bindGeneral(c)
	if !ok {
		return
	}
	h.respondCreated(c, h.notificationService.NotifySystem(req))
}

func (h *NotificationHandler) AdminEvent(c *gin.Context) {
	req, ok := h.bindGeneral(c)
	if !ok {
		return
	}
	h.respondCreated(c, h.notificationService.NotifyAdmin(req))
}

func (h *NotificationHandler) DeadlineApproaching(c *gin.Context) {
	var req notification.DeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid deadline payload", err)
		return
	}
	h.respondCreated(c, h.notificationService.NotifyDeadlineApproaching(req))
}

func (h *NotificationHandler) bindGeneral(c *gin.Context) (notification.SystemNotificationRequest, bool) {
	var req notification.SystemNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid notification payload", err)
		return req, false
	}
	if req.Type != "" && !req.Type.Valid() {
		response.ValidationError(c, "unknown notification type", xerrors.ErrInvalidInput)
		return req, false
	}
	if req.EmailPriority != "" && !req.EmailPriority.Valid() {
		response.ValidationError(c, "unknown email priority", xerrors.ErrInvalidInput)
		return req, false
	}
	return req, true
}

// respondCreated maps the nil result of a disabled feature onto 202.
func (h *NotificationHandler) respondCreated(c *gin.Context, n *notification.Notification) {
	if n == nil {
		response.Success(c, http.StatusAccepted, xerrors.ErrFeatureDisabled.Error(), gin.H{"created": false})
		return
	}
	response.Success(c, http.StatusCreated, "notification created", n)
}
