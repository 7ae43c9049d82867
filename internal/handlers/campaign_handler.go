package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finportal/marketing-console-backend/internal/database/repository"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services"
	"github.com/finportal/marketing-console-backend/internal/utils"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
}

func NewCampaignHandler(campaignService *services.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService}
}

// CreateCampaign godoc
// @Summary Create a campaign
// @Description Create a draft campaign. Whatever content is present must be valid; incomplete drafts are allowed.
// @Tags campaigns
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.CreateCampaignRequest true "Create campaign request"
// @Success 201 {object} models.Campaign
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req models.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	campaign, err := h.campaignService.CreateCampaign(c.Request.Context(), tenantFrom(c), &req)
	if err != nil {
		respondError(c, err, "Failed to create campaign")
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

// ListCampaigns godoc
// @Summary List campaigns
// @Tags campaigns
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type (one_time, automated)"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	page := utils.ParsePage(c.Query("page"), c.Query("page_size"))
	filter := repository.CampaignListFilter{
		Status: models.CampaignStatus(c.Query("status")),
		Type:   models.CampaignType(c.Query("type")),
	}

	campaigns, total, err := h.campaignService.ListCampaigns(c.Request.Context(), tenantFrom(c), filter, page)
	if err != nil {
		respondError(c, err, "Failed to list campaigns")
		return
	}
	c.JSON(http.StatusOK, paginated(campaigns, total, page))
}

// GetCampaign godoc
// @Summary Get a campaign
// @Tags campaigns
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.Campaign
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	campaign, err := h.campaignService.GetCampaign(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get campaign")
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// UpdateCampaign godoc
// @Summary Update a campaign
// @Description Edit a draft or paused campaign
// @Tags campaigns
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Param request body models.UpdateCampaignRequest true "Update campaign request"
// @Success 200 {object} models.Campaign
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id} [put]
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	var req models.UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	campaign, err := h.campaignService.UpdateCampaign(c.Request.Context(), tenantFrom(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to update campaign")
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// DeleteCampaign godoc
// @Summary Delete a draft campaign
// @Tags campaigns
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id} [delete]
func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	if err := h.campaignService.DeleteCampaign(c.Request.Context(), tenantFrom(c), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete campaign")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Campaign deleted successfully"})
}

// Execute godoc
// @Summary Execute a one-time campaign
// @Description Schedules the campaign when scheduled_at lies in the future, starts sending otherwise
// @Tags campaigns
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.Campaign
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/execute [post]
func (h *CampaignHandler) Execute(c *gin.Context) {
	campaign, err := h.campaignService.Execute(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to execute campaign")
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// Activate godoc
// @Summary Activate an automated campaign
// @Description Start a draft automated campaign or resume a paused one
// @Tags campaigns
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.Campaign
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/activate [post]
func (h *CampaignHandler) Activate(c *gin.Context) {
	campaign, err := h.campaignService.Activate(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to activate campaign")
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// Pause godoc
// @Summary Pause an automated campaign
// @Tags campaigns
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.Campaign
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/pause [post]
func (h *CampaignHandler) Pause(c *gin.Context) {
	campaign, err := h.campaignService.Pause(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to pause campaign")
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// Cancel godoc
// @Summary Cancel a campaign
// @Description Cancel a scheduled one-time campaign or a live automated campaign
// @Tags campaigns
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.Campaign
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/cancel [post]
func (h *CampaignHandler) Cancel(c *gin.Context) {
	campaign, err := h.campaignService.Cancel(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to cancel campaign")
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// Duplicate godoc
// @Summary Duplicate a campaign
// @Description Create a draft copy with counters reset
// @Tags campaigns
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Success 201 {object} models.Campaign
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/duplicate [post]
func (h *CampaignHandler) Duplicate(c *gin.Context) {
	campaign, err := h.campaignService.Duplicate(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to duplicate campaign")
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

// TestSend godoc
// @Summary Send a test of the campaign
// @Description Render the campaign for a sample contact and send it through the sandbox. Phone numbers receive the SMS, email addresses the email.
// @Tags campaigns
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Param request body models.TestSendRequest true "Test recipients"
// @Success 200 {object} models.DispatchSummary
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/test-send [post]
func (h *CampaignHandler) TestSend(c *gin.Context) {
	var req models.TestSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	summary, err := h.campaignService.TestSend(c.Request.Context(), tenantFrom(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to send test")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// TestSendCustom godoc
// @Summary Send custom test content
// @Description Send free-form content through the sandbox
// @Tags campaigns
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Param request body models.TestSendCustomRequest true "Custom content"
// @Success 200 {object} models.DispatchSummary
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/test-send-custom [post]
func (h *CampaignHandler) TestSendCustom(c *gin.Context) {
	var req models.TestSendCustomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	summary, err := h.campaignService.TestSendCustom(c.Request.Context(), tenantFrom(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to send test")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RetryFailed godoc
// @Summary Retry failed messages
// @Description Re-attempt every failed message that has no successful attempt for the same recipient and channel
// @Tags campaigns
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.DispatchSummary
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/retry-failed [post]
func (h *CampaignHandler) RetryFailed(c *gin.Context) {
	summary, err := h.campaignService.RetryFailed(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retry messages")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Preview godoc
// @Summary Preview a campaign run
// @Description Project what a run would send right now: eligible contacts, rendered sample, segments and cost
// @Tags campaigns
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Param request body models.CampaignPreviewRequest false "Sample size"
// @Success 200 {object} models.CampaignPreviewResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/preview [post]
func (h *CampaignHandler) Preview(c *gin.Context) {
	var req models.CampaignPreviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	resp, err := h.campaignService.Preview(c.Request.Context(), tenantFrom(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to preview campaign")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListMessages godoc
// @Summary List campaign messages
// @Tags campaigns
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Param status query string false "Filter by message status"
// @Param channel query string false "Filter by channel"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/messages [get]
func (h *CampaignHandler) ListMessages(c *gin.Context) {
	page := utils.ParsePage(c.Query("page"), c.Query("page_size"))
	filter := repository.MessageListFilter{
		Status:  models.MessageStatus(c.Query("status")),
		Channel: models.Channel(c.Query("channel")),
	}

	messages, total, err := h.campaignService.ListMessages(c.Request.Context(), tenantFrom(c), c.Param("id"), filter, page)
	if err != nil {
		respondError(c, err, "Failed to list messages")
		return
	}
	c.JSON(http.StatusOK, paginated(messages, total, page))
}
