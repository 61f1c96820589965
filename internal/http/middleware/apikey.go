package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"redline.app/engine/internal/http/dto"
)

const APIKeyHeader = "X-API-Key"

// RequireAPIKey guards admin routes. With an empty configured key the
// routes are open, which is the local-development default.
func RequireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		provided := c.GetHeader(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Err("unauthorized", "invalid api key"))
			return
		}
		c.Next()
	}
}
