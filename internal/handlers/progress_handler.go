package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services"
)

const defaultHeartbeatInterval = 15 * time.Second

// ProgressHandler streams live dispatch progress over Server-Sent Events
type ProgressHandler struct {
	campaignService *services.CampaignService
	sseHub          *services.SSEHub
	heartbeat       time.Duration
}

func NewProgressHandler(campaignService *services.CampaignService, sseHub *services.SSEHub, heartbeat time.Duration) *ProgressHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	return &ProgressHandler{
		campaignService: campaignService,
		sseHub:          sseHub,
		heartbeat:       heartbeat,
	}
}

// StreamProgress godoc
// @Summary Stream campaign progress via Server-Sent Events (SSE)
// @Description Emits a snapshot of the campaign counters on connect, then a progress event for every dispatched batch
// @Tags campaigns
// @Produce text/event-stream
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Success 200 "SSE stream"
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/events [get]
func (h *ProgressHandler) StreamProgress(c *gin.Context) {
	campaign, err := h.campaignService.GetCampaign(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get campaign")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientChan := h.sseHub.RegisterClient("campaign", campaign.ID)
	defer h.sseHub.UnregisterClient("campaign", campaign.ID, clientChan)

	c.SSEvent("snapshot", snapshot(campaign))
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			logrus.Debugf("SSE client disconnected: campaign/%s", campaign.ID)
			return
		case <-ticker.C:
			if _, err := c.Writer.Write([]byte(": heartbeat\n\n")); err != nil {
				return
			}
			c.Writer.Flush()
		case message, ok := <-clientChan:
			if !ok {
				return
			}
			if _, err := c.Writer.Write(message); err != nil {
				logrus.Errorf("Failed to write SSE message: %v", err)
				return
			}
			c.Writer.Flush()
		}
	}
}

func snapshot(c *models.Campaign) *models.CampaignProgress {
	return &models.CampaignProgress{
		CampaignID: c.ID,
		Status:     c.Status,
		Total:      c.TargetCount + c.EmailTargetCount,
		Processed:  c.SentCount + c.FailedCount + c.EmailSentCount + c.EmailFailedCount,
		Sent:       c.SentCount + c.EmailSentCount,
		Failed:     c.FailedCount + c.EmailFailedCount,
		Done:       c.IsTerminal(),
	}
}
