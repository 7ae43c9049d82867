package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finportal/marketing-console-backend/internal/services/api_key"
)

// APIKeyHandler handles HTTP requests related to API keys
type APIKeyHandler struct {
	apiKeyService *api_key.Service
}

// NewAPIKeyHandler creates a new APIKeyHandler instance
func NewAPIKeyHandler(apiKeyService *api_key.Service) *APIKeyHandler {
	return &APIKeyHandler{apiKeyService: apiKeyService}
}

// Generate handles POST /api/v1/api-keys
// @Summary Generate API key
// @Description Generate an additional API key for the project. The raw key is only returned once.
// @Tags api-key
// @Produce json
// @Security ApiKeyAuth
// @Success 201 {object} models.APIKeyResponse
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/api-keys [post]
func (h *APIKeyHandler) Generate(c *gin.Context) {
	resp, err := h.apiKeyService.GenerateAPIKey(c.Request.Context(), tenantFrom(c))
	if err != nil {
		respondError(c, err, "Failed to generate API key")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List handles GET /api/v1/api-keys
// @Summary List API keys
// @Description List the project's API keys without their secrets
// @Tags api-key
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {array} models.APIKey
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/api-keys [get]
func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.apiKeyService.ListAPIKeys(c.Request.Context(), tenantFrom(c))
	if err != nil {
		respondError(c, err, "Failed to list API keys")
		return
	}
	c.JSON(http.StatusOK, keys)
}

// Revoke handles DELETE /api/v1/api-keys/:id
// @Summary Revoke API key
// @Tags api-key
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "API key ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/api-keys/{id} [delete]
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	if err := h.apiKeyService.RevokeAPIKey(c.Request.Context(), tenantFrom(c), c.Param("id")); err != nil {
		respondError(c, err, "Failed to revoke API key")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "API key revoked successfully"})
}
