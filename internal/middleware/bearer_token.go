package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/finportal/marketing-console-backend/internal/models"
)

// TokenValidator verifies a bearer token
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*models.Project, *models.TokenInfo, error)
}

type BearerTokenMiddleware struct {
	authService TokenValidator
}

func NewBearerTokenMiddleware(authService TokenValidator) *BearerTokenMiddleware {
	return &BearerTokenMiddleware{authService: authService}
}

// BearerTokenAuthMiddleware validates a JWT and sets the tenant context
func (m *BearerTokenMiddleware) BearerTokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// already authenticated by API key
		if _, exists := c.Get("tenant"); exists {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		project, tokenInfo, err := m.authService.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		setProject(c, project, "bearer")
		c.Set("token_info", tokenInfo)
		c.Next()
	}
}
