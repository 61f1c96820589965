package middleware

import (
	"github.com/gin-gonic/gin"

	"redline.app/engine/common/id"
	"redline.app/engine/common/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request a snowflake id, echoes it in the
// response header, and attaches it to the request's log context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := uint64(id.New())
		c.Writer.Header().Set(RequestIDHeader, id.Format(int64(rid)))

		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
			RequestID: logger.Ptr(rid),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
