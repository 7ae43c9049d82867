package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services"
	"github.com/finportal/marketing-console-backend/internal/utils"
)

type ContactHandler struct {
	contactService *services.ContactService
	segmentService *services.SegmentService
}

func NewContactHandler(contactService *services.ContactService, segmentService *services.SegmentService) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		segmentService: segmentService,
	}
}

// CreateContact godoc
// @Summary Create a contact
// @Description Create a contact. Attributes are validated against the project schema.
// @Tags contacts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.CreateContactRequest true "Contact"
// @Success 201 {object} models.Contact
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/contacts [post]
func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req models.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	contact, err := h.contactService.CreateContact(c.Request.Context(), tenantFrom(c), &req)
	if err != nil {
		respondError(c, err, "Failed to create contact")
		return
	}
	c.JSON(http.StatusCreated, contact)
}

// ImportContacts godoc
// @Summary Import contacts
// @Description Import a batch of contacts. Valid rows are stored; rejected rows are reported by index.
// @Tags contacts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.ImportContactsRequest true "Contacts"
// @Success 200 {object} models.ImportContactsResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/contacts/import [post]
func (h *ContactHandler) ImportContacts(c *gin.Context) {
	var req models.ImportContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.contactService.ImportContacts(c.Request.Context(), tenantFrom(c), &req)
	if err != nil {
		respondError(c, err, "Failed to import contacts")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetContact godoc
// @Summary Get a contact
// @Tags contacts
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Contact ID"
// @Success 200 {object} models.Contact
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/contacts/{id} [get]
func (h *ContactHandler) GetContact(c *gin.Context) {
	contact, err := h.contactService.GetContact(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get contact")
		return
	}
	c.JSON(http.StatusOK, contact)
}

// ListContacts godoc
// @Summary List contacts
// @Tags contacts
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/contacts [get]
func (h *ContactHandler) ListContacts(c *gin.Context) {
	page := utils.ParsePage(c.Query("page"), c.Query("page_size"))

	contacts, total, err := h.contactService.ListContacts(c.Request.Context(), tenantFrom(c), page)
	if err != nil {
		respondError(c, err, "Failed to list contacts")
		return
	}
	c.JSON(http.StatusOK, paginated(contacts, total, page))
}

// PreviewSegment godoc
// @Summary Preview a segment
// @Description Count the contacts matching a filter and return a bounded sample
// @Tags segments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.SegmentPreviewRequest true "Filter"
// @Success 200 {object} models.SegmentPreviewResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/segments/preview [post]
func (h *ContactHandler) PreviewSegment(c *gin.Context) {
	var req models.SegmentPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.segmentService.PreviewSegment(c.Request.Context(), tenantFrom(c), &req)
	if err != nil {
		respondError(c, err, "Failed to preview segment")
		return
	}
	c.JSON(http.StatusOK, resp)
}
