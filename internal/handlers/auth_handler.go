package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/auth"
)

type AuthHandler struct {
	authService *auth.AuthService
}

func NewAuthHandler(authService *auth.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Token godoc
// @Summary Exchange credentials for an access token
// @Description Issue a short-lived bearer token for the authenticated project, e.g. for a browser console
// @Tags auth
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.IssueTokenRequest false "Token lifetime"
// @Success 200 {object} models.TokenResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req models.IssueTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	token, err := h.authService.IssueToken(c.Request.Context(), tenantFrom(c).ProjectID, &req)
	if err != nil {
		respondError(c, err, "Failed to issue token")
		return
	}
	c.JSON(http.StatusOK, token)
}

// Me godoc
// @Summary Get the authenticated project
// @Tags auth
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} models.Project
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, c.MustGet("project").(*models.Project))
}
