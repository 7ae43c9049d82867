package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdminTokenMiddleware guards tenant management with a static operator
// token sent as X-Admin-Token. An empty token disables the routes.
func AdminTokenMiddleware(adminToken string) gin.HandlerFunc {
	if adminToken == "" {
		logrus.Warn("ADMIN_TOKEN is not set; admin routes are disabled")
	}
	return func(c *gin.Context) {
		if adminToken == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access is disabled"})
			c.Abort()
			return
		}
		got := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(adminToken)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin token"})
			c.Abort()
			return
		}
		c.Next()
	}
}
