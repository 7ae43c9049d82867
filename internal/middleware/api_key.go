package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/finportal/marketing-console-backend/internal/models"
)

// APIKeyValidator resolves a raw API key to its project
type APIKeyValidator interface {
	ValidateAPIKey(ctx context.Context, raw string) (*models.Project, error)
}

// APIKeyMiddleware handles API key authentication
type APIKeyMiddleware struct {
	apiKeyService APIKeyValidator
}

// NewAPIKeyMiddleware creates a new API key middleware
func NewAPIKeyMiddleware(apiKeyService APIKeyValidator) *APIKeyMiddleware {
	return &APIKeyMiddleware{apiKeyService: apiKeyService}
}

// APIKeyAuthMiddleware validates an "ApiKey <key>" header and sets the
// tenant context. Other schemes are left to the next middleware.
func (m *APIKeyMiddleware) APIKeyAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "ApiKey ") {
			c.Next()
			return
		}

		apiKey := strings.TrimSpace(strings.TrimPrefix(authHeader, "ApiKey "))
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key format"})
			c.Abort()
			return
		}

		project, err := m.apiKeyService.ValidateAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		setProject(c, project, "api_key")
		c.Next()
	}
}

func setProject(c *gin.Context, project *models.Project, authType string) {
	c.Set("project", project)
	c.Set("tenant", project.Tenant())
	c.Set("auth_type", authType)
}
