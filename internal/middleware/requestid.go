package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"

	maxRequestIDLength = 128
)

// isValidRequestID accepts printable ASCII only, so IDs are safe to log.
func isValidRequestID(id string) bool {
	if len(id) == 0 || len(id) > maxRequestIDLength {
		return false
	}
	for i := range len(id) {
		c := id[i]
		if c < 0x20 || c > 0x7E {
			return false
		}
	}
	return true
}

// RequestID reuses a valid incoming X-Request-ID or generates a UUIDv4, and
// echoes it on the response. Audit records fall back to the response header
// when the client sent none.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderXRequestID)
		if !isValidRequestID(reqID) {
			reqID = uuid.NewString()
		}

		c.Set(ContextRequestID, reqID)
		c.Header(HeaderXRequestID, reqID)
		c.Next()
	}
}
