// internal/handlers/notification/feature_handler.go
package notification

import (
	"net/http"

	xerrors "clinicdesk-service/internal/pkg/errors"
	"clinicdesk-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type setFeatureRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *NotificationHandler) GetFeature(c *gin.Context) {
	name := c.Param("name")
	response.Success(c, http.StatusOK, "feature retrieved", gin.H{
		"name":    name,
		"enabled": h.features.IsEnabled(name),
	})
}

func (h *NotificationHandler) SetFeature(c *gin.Context) {
	var req setFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid feature payload", err)
		return
	}

	name := c.Param("name")
	if err := h.features.SetEnabled(c.Request.Context(), name, *req.Enabled); err != nil {
		h.logger.Error("failed to update feature flag", zap.String("feature", name), zap.Error(err))
		response.FromError(c, "failed to update feature", xerrors.Wrap(err, "set feature "+name))
		return
	}

	h.logger.Info("feature flag updated", zap.String("feature", name), zap.Bool("enabled", *req.Enabled))
	response.Success(c, http.StatusOK, "feature updated", gin.H{
		"name":    name,
		"enabled": *req.Enabled,
	})
}
