// internal/middleware/rate_limit_middleware.go
package middleware

import (
	xerrors "clinicdesk-service/internal/pkg/errors"
	"clinicdesk-service/internal/pkg/ratelimit"
	"clinicdesk-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitMiddleware limits requests per client IP and route. The user id is
// caller supplied and never part of the key. Limiter failures let the request
// through.
func RateLimitMiddleware(limiter ratelimit.Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.FullPath()

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			response.FromError(c, "too many requests", xerrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
