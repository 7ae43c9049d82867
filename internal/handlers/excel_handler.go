package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finportal/marketing-console-backend/internal/services"
	"github.com/finportal/marketing-console-backend/internal/services/excel"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExcelHandler serves campaign exports
type ExcelHandler struct {
	campaignService *services.CampaignService
	excelService    *excel.Service
}

// NewExcelHandler creates a new ExcelHandler instance
func NewExcelHandler(campaignService *services.CampaignService, excelService *excel.Service) *ExcelHandler {
	return &ExcelHandler{
		campaignService: campaignService,
		excelService:    excelService,
	}
}

// ExportCampaignMessages handles GET /api/v1/campaigns/:id/export
// @Summary Export campaign messages to Excel
// @Description Download every message attempt of the campaign together with a summary sheet
// @Tags campaigns
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Param id path string true "Campaign ID"
// @Success 200 {file} binary "Excel file"
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/messages/export [get]
func (h *ExcelHandler) ExportCampaignMessages(c *gin.Context) {
	ctx := c.Request.Context()
	campaign, err := h.campaignService.GetCampaign(ctx, tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get campaign")
		return
	}

	var buf bytes.Buffer
	if err := h.excelService.ExportCampaignMessages(ctx, campaign, &buf); err != nil {
		respondError(c, err, "Failed to export campaign")
		return
	}

	filename := excel.Filename(campaign, time.Now())
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Cache-Control", "must-revalidate")
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
