package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services"
)

type AttributeHandler struct {
	attributeService *services.AttributeService
}

func NewAttributeHandler(attributeService *services.AttributeService) *AttributeHandler {
	return &AttributeHandler{attributeService: attributeService}
}

// RegisterAttributes godoc
// @Summary Register contact attributes
// @Description Register a batch of attributes for the project. The batch is stored entirely or not at all.
// @Tags attributes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.RegisterAttributesRequest true "Attributes"
// @Success 201 {array} models.AttributeSchema
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/attributes [post]
func (h *AttributeHandler) RegisterAttributes(c *gin.Context) {
	var req models.RegisterAttributesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	attrs, err := h.attributeService.RegisterAttributes(c.Request.Context(), tenantFrom(c), &req)
	if err != nil {
		respondError(c, err, "Failed to register attributes")
		return
	}
	c.JSON(http.StatusCreated, attrs)
}

// ListAttributes godoc
// @Summary List contact attributes
// @Description List the project's attribute schema with the operators each attribute allows
// @Tags attributes
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {array} models.AttributeWithOperators
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/attributes [get]
func (h *AttributeHandler) ListAttributes(c *gin.Context) {
	attrs, err := h.attributeService.ListAttributes(c.Request.Context(), tenantFrom(c))
	if err != nil {
		respondError(c, err, "Failed to list attributes")
		return
	}
	c.JSON(http.StatusOK, attrs)
}

// UpdateAttribute godoc
// @Summary Update a contact attribute
// @Description Update an attribute. Type, options and item type cannot change while a live campaign filters on it.
// @Tags attributes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param key path string true "Attribute key"
// @Param request body models.UpdateAttributeRequest true "Changes"
// @Success 200 {object} models.AttributeSchema
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/attributes/{key} [put]
func (h *AttributeHandler) UpdateAttribute(c *gin.Context) {
	var req models.UpdateAttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	attr, err := h.attributeService.UpdateAttribute(c.Request.Context(), tenantFrom(c), c.Param("key"), &req)
	if err != nil {
		respondError(c, err, "Failed to update attribute")
		return
	}
	c.JSON(http.StatusOK, attr)
}

// DeleteAttribute godoc
// @Summary Delete a contact attribute
// @Tags attributes
// @Produce json
// @Security ApiKeyAuth
// @Param key path string true "Attribute key"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/attributes/{key} [delete]
func (h *AttributeHandler) DeleteAttribute(c *gin.Context) {
	if err := h.attributeService.DeleteAttribute(c.Request.Context(), tenantFrom(c), c.Param("key")); err != nil {
		respondError(c, err, "Failed to delete attribute")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attribute deleted successfully"})
}
