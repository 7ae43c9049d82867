// Package lifecycle is the campaign state machine. It decides which
// operations are legal for a campaign and what status they lead to; it
// never persists anything.
package lifecycle

import (
	"time"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
)

// Operation is a campaign mutator.
type Operation string

const (
	// user-invocable
	OpExecute        Operation = "execute"
	OpActivate       Operation = "activate"
	OpPause          Operation = "pause"
	OpCancel         Operation = "cancel"
	OpDuplicate      Operation = "duplicate"
	OpTestSend       Operation = "test-send"
	OpTestSendCustom Operation = "test-send-custom"
	OpRetryFailed    Operation = "retry-failed"
	OpEdit           Operation = "edit"
	OpDelete         Operation = "delete"

	// scheduler and dispatcher driven
	OpStartSending Operation = "start-sending"
	OpComplete     Operation = "complete"
	OpFail         Operation = "fail"
)

type rule struct {
	campaignType models.CampaignType // empty matches both
	from         []models.CampaignStatus
}

var rules = map[Operation]rule{
	OpExecute:   {models.CampaignTypeOneTime, []models.CampaignStatus{models.CampaignStatusDraft}},
	OpActivate:  {models.CampaignTypeAutomated, []models.CampaignStatus{models.CampaignStatusDraft, models.CampaignStatusPaused}},
	OpPause:     {models.CampaignTypeAutomated, []models.CampaignStatus{models.CampaignStatusActive}},
	OpDuplicate: {"", nil},
	OpTestSend: {"", []models.CampaignStatus{
		models.CampaignStatusDraft, models.CampaignStatusScheduled,
		models.CampaignStatusActive, models.CampaignStatusPaused,
	}},
	OpTestSendCustom: {"", []models.CampaignStatus{
		models.CampaignStatusDraft, models.CampaignStatusScheduled,
		models.CampaignStatusActive, models.CampaignStatusPaused,
	}},
	OpEdit:   {"", []models.CampaignStatus{models.CampaignStatusDraft, models.CampaignStatusPaused}},
	OpDelete: {"", []models.CampaignStatus{models.CampaignStatusDraft}},

	OpStartSending: {models.CampaignTypeOneTime, []models.CampaignStatus{models.CampaignStatusDraft, models.CampaignStatusScheduled}},
	OpFail:         {models.CampaignTypeOneTime, []models.CampaignStatus{models.CampaignStatusSending}},
}

// Check returns a StateTransitionError when op is not legal for c.
func Check(c *models.Campaign, op Operation) error {
	switch op {
	case OpCancel:
		return checkCancel(c)
	case OpRetryFailed:
		return checkRetry(c)
	case OpComplete:
		return checkComplete(c)
	}

	r, ok := rules[op]
	if !ok {
		return apperrors.NewStateTransition(string(op), string(c.Status), "unknown operation")
	}
	if r.campaignType != "" && c.Type != r.campaignType {
		return apperrors.NewStateTransition(string(op), string(c.Status),
			"operation is only available for "+string(r.campaignType)+" campaigns")
	}
	if r.from == nil {
		return nil
	}
	for _, s := range r.from {
		if c.Status == s {
			return nil
		}
	}
	return apperrors.NewStateTransition(string(op), string(c.Status), "")
}

func checkCancel(c *models.Campaign) error {
	switch c.Type {
	case models.CampaignTypeOneTime:
		if c.Status == models.CampaignStatusScheduled {
			return nil
		}
	case models.CampaignTypeAutomated:
		if c.Status == models.CampaignStatusActive || c.Status == models.CampaignStatusPaused {
			return nil
		}
	}
	return apperrors.NewStateTransition(string(OpCancel), string(c.Status), "")
}

// failed messages of a one-time campaign are retried after its run ends,
// automated campaigns while they are live
func checkRetry(c *models.Campaign) error {
	switch c.Type {
	case models.CampaignTypeOneTime:
		if c.Status == models.CampaignStatusCompleted || c.Status == models.CampaignStatusFailed {
			return nil
		}
	case models.CampaignTypeAutomated:
		if c.Status == models.CampaignStatusActive || c.Status == models.CampaignStatusPaused {
			return nil
		}
	}
	return apperrors.NewStateTransition(string(OpRetryFailed), string(c.Status), "")
}

func checkComplete(c *models.Campaign) error {
	switch c.Type {
	case models.CampaignTypeOneTime:
		if c.Status == models.CampaignStatusSending {
			return nil
		}
	case models.CampaignTypeAutomated:
		if c.Status == models.CampaignStatusActive || c.Status == models.CampaignStatusPaused {
			return nil
		}
	}
	return apperrors.NewStateTransition(string(OpComplete), string(c.Status), "")
}

// Next validates op against c and returns the status it leads to. Operations
// that do not change status return the current one.
func Next(c *models.Campaign, op Operation, now time.Time) (models.CampaignStatus, error) {
	if err := Check(c, op); err != nil {
		return "", err
	}

	switch op {
	case OpExecute:
		if c.ScheduledAt != nil && c.ScheduledAt.After(now) {
			return models.CampaignStatusScheduled, nil
		}
		return models.CampaignStatusSending, nil
	case OpActivate:
		return models.CampaignStatusActive, nil
	case OpPause:
		return models.CampaignStatusPaused, nil
	case OpCancel:
		return models.CampaignStatusCancelled, nil
	case OpStartSending:
		return models.CampaignStatusSending, nil
	case OpComplete:
		return models.CampaignStatusCompleted, nil
	case OpFail:
		return models.CampaignStatusFailed, nil
	case OpDuplicate:
		return models.CampaignStatusDraft, nil
	}
	return c.Status, nil
}

// Duplicate returns a draft copy of c with schedule bookkeeping and counters
// reset. A scheduled_at already in the past is dropped.
func Duplicate(c *models.Campaign, now time.Time) *models.Campaign {
	dup := *c
	dup.ID = ""
	dup.Name = c.Name + " (copy)"
	dup.Status = models.CampaignStatusDraft
	dup.LastRunAt = nil
	dup.NextRunAt = nil
	dup.StartedAt = nil
	dup.CompletedAt = nil
	dup.TargetCount, dup.SentCount, dup.DeliveredCount, dup.FailedCount = 0, 0, 0, 0
	dup.EmailTargetCount, dup.EmailSentCount, dup.EmailDeliveredCount, dup.EmailFailedCount = 0, 0, 0, 0
	dup.TotalCost = 0
	dup.CreatedAt = time.Time{}
	dup.UpdatedAt = time.Time{}

	dup.SegmentFilter.Conditions = append([]models.FilterCondition(nil), c.SegmentFilter.Conditions...)
	dup.RunStartHour = copyInt(c.RunStartHour)
	dup.RunEndHour = copyInt(c.RunEndHour)
	if c.ScheduledAt != nil && c.ScheduledAt.Before(now) {
		dup.ScheduledAt = nil
	}
	return &dup
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
