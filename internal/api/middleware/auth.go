package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerAuth middleware checks for the configured API token
func BearerAuth(apiToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "bearer token required",
			})
			c.Abort()
			return
		}

		if token != apiToken {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "invalid token",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
