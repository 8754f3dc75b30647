// internal/middleware/helpers.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey    = "user_id"
	userIDHeader = "X-User-ID"
	requestIDKey = "request_id"
)

// UserIDMiddleware stores the acting dashboard user in the context. The id is
// taken from the X-User-ID header or the user_id query parameter.
func UserIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(userIDHeader))
		if userID == "" {
			userID = strings.TrimSpace(c.Query(userIDKey))
		}
		if userID != "" {
			c.Set(userIDKey, userID)
		}
		c.Next()
	}
}

// GetUserID gets the acting user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDKey)
	return userID, userID != ""
}

// GetRequestID gets the request ID assigned by LoggingMiddleware
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
