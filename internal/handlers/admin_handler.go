package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services"
	"github.com/finportal/marketing-console-backend/internal/services/auth"
)

// AdminHandler manages tenants. Its routes sit behind the admin token.
type AdminHandler struct {
	projectService *services.ProjectService
	authService    *auth.AuthService
}

func NewAdminHandler(projectService *services.ProjectService, authService *auth.AuthService) *AdminHandler {
	return &AdminHandler{
		projectService: projectService,
		authService:    authService,
	}
}

// CreateProject godoc
// @Summary Create a project (Admin only)
// @Description Create a tenant together with its first API key. The raw key is only returned once.
// @Tags admin
// @Accept json
// @Produce json
// @Security AdminToken
// @Param request body models.CreateProjectRequest true "Project"
// @Success 201 {object} models.CreateProjectResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/admin/projects [post]
func (h *AdminHandler) CreateProject(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.projectService.CreateProject(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create project")
		return
	}

	logrus.WithField("project_id", resp.Project.ID).Info("Project created")
	c.JSON(http.StatusCreated, resp)
}

// GetProject godoc
// @Summary Get a project (Admin only)
// @Tags admin
// @Produce json
// @Security AdminToken
// @Param id path string true "Project ID"
// @Success 200 {object} models.Project
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/admin/projects/{id} [get]
func (h *AdminHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get project")
		return
	}
	c.JSON(http.StatusOK, project)
}

// IssueToken godoc
// @Summary Issue a project access token (Admin only)
// @Tags admin
// @Accept json
// @Produce json
// @Security AdminToken
// @Param id path string true "Project ID"
// @Param request body models.IssueTokenRequest false "Token lifetime"
// @Success 200 {object} models.TokenResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/admin/projects/{id}/token [post]
func (h *AdminHandler) IssueToken(c *gin.Context) {
	var req models.IssueTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	token, err := h.authService.IssueToken(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to issue token")
		return
	}
	c.JSON(http.StatusOK, token)
}
