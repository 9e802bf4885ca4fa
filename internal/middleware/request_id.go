package middleware

import (
	"github.com/google/uuid"
	"github.com/gin-gonic/gin"
)

const requestIDHeader = "X-Request-ID"

// RequestID attaches a request ID to every request, reusing the
// caller's header when present
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID extracts the request ID from context
func GetRequestID(c *gin.Context) string {
	requestID, exists := c.Get("requestID")
	if !exists {
		return ""
	}
	if str, ok := requestID.(string); ok {
		return str
	}
	return ""
}
