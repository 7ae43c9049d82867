package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/finportal/marketing-console-backend/internal/models"
)

// DeliveryReportStore applies provider receipts to message rows
type DeliveryReportStore interface {
	ApplyDeliveryReport(ctx context.Context, report models.DeliveryReport) (*models.CampaignMessage, error)
}

// CounterStore increments campaign counters
type CounterStore interface {
	AddCounters(ctx context.Context, campaignID string, channel models.Channel, delta models.CounterDelta) error
}

// DeliveryReportService consumes gateway receipts and marks messages
// delivered or failed
type DeliveryReportService struct {
	messages  DeliveryReportStore
	campaigns CounterStore
}

func NewDeliveryReportService(messages DeliveryReportStore, campaigns CounterStore) *DeliveryReportService {
	return &DeliveryReportService{messages: messages, campaigns: campaigns}
}

// HandleMessage decodes and applies one queue message
func (s *DeliveryReportService) HandleMessage(ctx context.Context, body []byte) error {
	var report models.DeliveryReport
	if err := json.Unmarshal(body, &report); err != nil {
		// malformed payloads are dropped rather than redelivered
		logrus.WithError(err).Warn("Discarding malformed delivery report")
		return nil
	}
	return s.Apply(ctx, report)
}

// Apply records a receipt. Replays and reports for unknown messages are
// ignored.
func (s *DeliveryReportService) Apply(ctx context.Context, report models.DeliveryReport) error {
	if report.ProviderMessageID == "" {
		return nil
	}
	if report.Status != models.MessageStatusDelivered && report.Status != models.MessageStatusFailed {
		logrus.WithField("status", report.Status).Warn("Ignoring delivery report with unsupported status")
		return nil
	}

	msg, err := s.messages.ApplyDeliveryReport(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to apply delivery report: %w", err)
	}
	if msg == nil || msg.IsTest {
		return nil
	}

	delta := models.CounterDelta{Delivered: 1}
	if report.Status == models.MessageStatusFailed {
		delta = models.CounterDelta{Failed: 1}
	}
	if err := s.campaigns.AddCounters(ctx, msg.CampaignID, msg.Channel, delta); err != nil {
		return fmt.Errorf("failed to update campaign counters: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"campaign_id":         msg.CampaignID,
		"provider_message_id": report.ProviderMessageID,
		"status":              report.Status,
	}).Debug("Delivery report applied")
	return nil
}
