package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// corsAllowAll enables cross-origin access from any origin. The gateway
// serves a local dashboard whose dev server runs on a different port, so
// the policy reflects the request origin rather than restricting it.
func corsAllowAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		// Answer preflight requests directly so they never hang on a
		// handler that does not expect OPTIONS.
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
