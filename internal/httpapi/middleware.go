package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AttachRequestContext stamps every request with a request id (honoring
// one the caller already supplied) so Error's envelope always
// carries one, without depending on the SSE-specific context the
// original request-context middleware threaded for the chat surface.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Header("X-Request-Id", reqID)
		c.Next()
	}
}
