// internal/handlers/notification/user_handler.go
package notification

import (
	"net/http"

	"clinicdesk-service/internal/domain/notification"
	"clinicdesk-service/internal/middleware"
	xerrors "clinicdesk-service/internal/pkg/errors"
	"clinicdesk-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type updatePreferencesRequest struct {
	Email       string                    `json:"email" binding:"required,email"`
	Preferences *notification.Preferences `json:"preferences"`
}

func (h *NotificationHandler) GetEmailPreferences(c *gin.Context) {
	prefs, ok := h.gateway.GetUserPreferences(c.Param("id"))
	if !ok {
		response.FromError(c, "email preferences not found", xerrors.ErrNoPreferences)
		return
	}
	response.Success(c, http.StatusOK, "email preferences retrieved", prefs)
}

// UpdateEmailPreferences replaces the user's preferences. Omitted preferences
// fall back to the defaults.
func (h *NotificationHandler) UpdateEmailPreferences(c *gin.Context) {
	var req updatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid email preferences", err)
		return
	}

	prefs := notification.DefaultPreferences()
	if req.Preferences != nil {
		prefs = *req.Preferences
	}
	if !prefs.MinPriority.Valid() {
		response.ValidationError(c, "minPriority must be low, medium or high", xerrors.ErrInvalidInput)
		return
	}

	record := notification.UserEmailPreferences{
		UserID:      c.Param("id"),
		Email:       req.Email,
		Preferences: prefs,
	}
	h.gateway.UpdateUserPreferences(record)

	h.logger.Info("email preferences updated",
		zap.String("user_id", record.UserID),
		zap.String("min_priority", string(prefs.MinPriority)),
	)
	response.Success(c, http.StatusOK, "email preferences updated", record)
}

func (h *NotificationHandler) MarkUserOnline(c *gin.Context) {
	userID := c.Param("id")
	h.gateway.MarkUserOnline(userID)
	h.presence(c, userID)
}

func (h *NotificationHandler) MarkUserOffline(c *gin.Context) {
	userID := c.Param("id")
	h.gateway.MarkUserOffline(userID)
	h.presence(c, userID)
}

func (h *NotificationHandler) GetPresence(c *gin.Context) {
	h.presence(c, c.Param("id"))
}

func (h *NotificationHandler) presence(c *gin.Context, userID string) {
	offline := h.gateway.IsUserOffline(userID)
	response.Success(c, http.StatusOK, "presence retrieved", gin.H{
		"user_id": userID,
		"online":  !offline,
		"offline": offline,
	})
}

func (h *NotificationHandler) GetPendingEmails(c *gin.Context) {
	pending := h.notificationService.PendingFor(c.Param("id"))
	response.Success(c, http.StatusOK, "pending emails retrieved", gin.H{
		"notifications": pending,
		"count":         len(pending),
	})
}

type sessionUserRequest struct {
	UserID string `json:"userId"`
}

// SetCurrentUser records the dashboard's current user. The id comes from the
// body, or from the X-User-ID header or user_id query parameter.
func (h *NotificationHandler) SetCurrentUser(c *gin.Context) {
	var req sessionUserRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, "invalid session payload", err)
			return
		}
	}
	if req.UserID == "" {
		req.UserID, _ = middleware.GetUserID(c)
	}
	if req.UserID == "" {
		response.ValidationError(c, "userId is required", xerrors.ErrInvalidInput)
		return
	}

	h.notificationService.SetCurrentUserID(req.UserID)
	response.Success(c, http.StatusOK, "current user set", gin.H{
		"user_id": h.notificationService.CurrentUserID(),
	})
}

func (h *NotificationHandler) GetCurrentUser(c *gin.Context) {
	userID := h.notificationService.CurrentUserID()
	if userID == "" {
		response.NotFound(c, "no current user")
		return
	}
	response.Success(c, http.StatusOK, "current user retrieved", gin.H{"user_id": userID})
}
