package excel

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/finportal/marketing-console-backend/internal/models"
)

// MessageSource loads the full message history of a campaign
type MessageSource interface {
	ListAllByCampaign(ctx context.Context, campaignID string) ([]*models.CampaignMessage, error)
}

// Service exports campaign data to Excel workbooks
type Service struct {
	messages MessageSource
}

// NewExcelService creates a new Excel service instance
func NewExcelService(messages MessageSource) *Service {
	return &Service{messages: messages}
}

var messageColumns = []string{
	"id", "contact_id", "channel", "recipient", "status", "source", "attempt",
	"superseded", "segments", "encoding", "cost", "provider_message_id",
	"last_error", "rendered_content", "sent_at", "delivered_at", "created_at",
}

// Filename returns the download name of a campaign export
func Filename(c *models.Campaign, at time.Time) string {
	return fmt.Sprintf("campaign_%s_messages_%d.xlsx", c.ID, at.Unix())
}

// ExportCampaignMessages writes a workbook with a Summary sheet and a
// Messages sheet for the campaign to w
func (s *Service) ExportCampaignMessages(ctx context.Context, c *models.Campaign, w io.Writer) error {
	msgs, err := s.messages.ListAllByCampaign(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load campaign messages: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), "Messages"); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeMessages(f, "Messages", msgs); err != nil {
		return err
	}

	if _, err := f.NewSheet("Summary"); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	writeSummary(f, "Summary", c)
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func writeMessages(f *excelize.File, sheet string, msgs []*models.CampaignMessage) error {
	for i, col := range messageColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFFF00"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(messageColumns), 1)
		f.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	failedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"F4CCCC"}, Pattern: 1},
	})
	deliveredStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9EAD3"}, Pattern: 1},
	})

	for i, col := range messageColumns {
		letter, _ := excelize.ColumnNumberToName(i + 1)
		width := 18.0
		switch col {
		case "id", "contact_id", "provider_message_id":
			width = 38.0
		case "rendered_content", "last_error":
			width = 60.0
		case "channel", "status", "source", "attempt", "segments", "encoding", "cost", "superseded":
			width = 12.0
		}
		f.SetColWidth(sheet, letter, letter, width)
	}

	for j, m := range msgs {
		row := j + 2
		values := []interface{}{
			m.ID, m.ContactID, string(m.Channel), m.Recipient, string(m.Status), string(m.Source), m.Attempt,
			m.Superseded, m.Segments, m.Encoding, m.Cost, m.ProviderMessageID,
			m.LastError, m.RenderedContent, formatTime(m.SentAt), formatTime(m.DeliveredAt), m.CreatedAt.UTC().Format(time.RFC3339),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}

		end, _ := excelize.CoordinatesToCellName(len(messageColumns), row)
		switch m.Status {
		case models.MessageStatusFailed:
			f.SetCellStyle(sheet, start, end, failedStyle)
		case models.MessageStatusDelivered:
			f.SetCellStyle(sheet, start, end, deliveredStyle)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, sheet string, c *models.Campaign) {
	rows := [][]interface{}{
		{"campaign_id", c.ID},
		{"name", c.Name},
		{"channel", string(c.Channel)},
		{"type", string(c.Type)},
		{"status", string(c.Status)},
		{"is_test", c.IsTest},
		{"target_count", c.TargetCount},
		{"sent_count", c.SentCount},
		{"delivered_count", c.DeliveredCount},
		{"failed_count", c.FailedCount},
		{"email_target_count", c.EmailTargetCount},
		{"email_sent_count", c.EmailSentCount},
		{"email_delivered_count", c.EmailDeliveredCount},
		{"email_failed_count", c.EmailFailedCount},
		{"total_cost", c.TotalCost},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		f.SetSheetRow(sheet, cell, &r)
	}
	f.SetColWidth(sheet, "A", "A", 24)
	f.SetColWidth(sheet, "B", "B", 40)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
