package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// CampaignType distinguishes single-shot from recurring campaigns.
type CampaignType string

const (
	CampaignTypeOneTime   CampaignType = "one_time"
	CampaignTypeAutomated CampaignType = "automated"
)

// Channel is a delivery channel.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelBoth  Channel = "both"
)

// Targets expands a campaign channel into the concrete send channels.
func (c Channel) Targets() []Channel {
	switch c {
	case ChannelSMS:
		return []Channel{ChannelSMS}
	case ChannelEmail:
		return []Channel{ChannelEmail}
	case ChannelBoth:
		return []Channel{ChannelSMS, ChannelEmail}
	}
	return nil
}

// Valid reports whether c is a known campaign channel.
func (c Channel) Valid() bool {
	return len(c.Targets()) > 0
}

// Campaign is a one-time or automated multi-channel send owned by a project.
// Counters are only ever incremented by the dispatcher.
type Campaign struct {
	ID        string         `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID string         `json:"project_id" gorm:"type:uuid;not null;index"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	Channel   Channel        `json:"channel" gorm:"type:varchar(10);not null"`
	Type      CampaignType   `json:"type" gorm:"type:varchar(20);not null;index"`
	Status    CampaignStatus `json:"status" gorm:"type:varchar(20);not null;index;default:'draft'"`
	IsTest    bool           `json:"is_test" gorm:"default:false"`

	// Content
	MessageTemplate      string        `json:"message_template" gorm:"type:text"`
	EmailSubjectTemplate string        `json:"email_subject_template,omitempty" gorm:"type:text"`
	EmailBodyTemplate    string        `json:"email_body_template,omitempty" gorm:"type:text"`
	SegmentFilter        SegmentFilter `json:"segment_filter" gorm:"type:jsonb"`
	SMSSender            string        `json:"sms_sender,omitempty" gorm:"type:varchar(32)"`
	EmailSender          string        `json:"email_sender,omitempty" gorm:"type:varchar(255)"`

	// Scheduling
	Timezone             string     `json:"timezone" gorm:"type:varchar(64);default:'UTC'"`
	ScheduledAt          *time.Time `json:"scheduled_at,omitempty"`
	CheckIntervalMinutes int        `json:"check_interval_minutes,omitempty" gorm:"default:0"`
	CooldownDays         int        `json:"cooldown_days,omitempty" gorm:"default:0"`
	RunStartHour         *int       `json:"run_start_hour,omitempty"`
	RunEndHour           *int       `json:"run_end_hour,omitempty"`
	EndsAt               *time.Time `json:"ends_at,omitempty"`
	LastRunAt            *time.Time `json:"last_run_at,omitempty"`
	NextRunAt            *time.Time `json:"next_run_at,omitempty" gorm:"index"`
	StartedAt            *time.Time `json:"started_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`

	// Counters
	TargetCount         int     `json:"target_count" gorm:"default:0"`
	SentCount           int     `json:"sent_count" gorm:"default:0"`
	DeliveredCount      int     `json:"delivered_count" gorm:"default:0"`
	FailedCount         int     `json:"failed_count" gorm:"default:0"`
	EmailTargetCount    int     `json:"email_target_count" gorm:"default:0"`
	EmailSentCount      int     `json:"email_sent_count" gorm:"default:0"`
	EmailDeliveredCount int     `json:"email_delivered_count" gorm:"default:0"`
	EmailFailedCount    int     `json:"email_failed_count" gorm:"default:0"`
	TotalCost           float64 `json:"total_cost" gorm:"default:0"`

	// Rate overrides; nil falls back to the configured defaults
	SMSCostPerSegment *float64 `json:"sms_cost_per_segment,omitempty"`
	EmailCost         *float64 `json:"email_cost,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Campaign model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate assigns an ID when none was provided
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// IsTerminal reports whether the campaign can no longer change state.
func (c *Campaign) IsTerminal() bool {
	switch c.Status {
	case CampaignStatusCompleted, CampaignStatusCancelled, CampaignStatusFailed:
		return true
	}
	return false
}

// CounterDelta is an increment applied atomically to a campaign's counters.
type CounterDelta struct {
	Target    int
	Sent      int
	Delivered int
	Failed    int
	Cost      float64
}

// IsZero reports whether applying d would change nothing.
func (d CounterDelta) IsZero() bool {
	return d.Target == 0 && d.Sent == 0 && d.Delivered == 0 && d.Failed == 0 && d.Cost == 0
}

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	Name                 string        `json:"name" binding:"required" example:"Spring loan offer"`
	Channel              Channel       `json:"channel" binding:"required" example:"sms"`
	Type                 CampaignType  `json:"type" binding:"required" example:"one_time"`
	MessageTemplate      string        `json:"message_template" example:"Hello {{first_name}}, your offer is ready"`
	EmailSubjectTemplate string        `json:"email_subject_template"`
	EmailBodyTemplate    string        `json:"email_body_template"`
	SegmentFilter        SegmentFilter `json:"segment_filter"`
	SMSSender            string        `json:"sms_sender" example:"FINPORTAL"`
	EmailSender          string        `json:"email_sender"`
	Timezone             string        `json:"timezone" example:"Asia/Baku"`
	ScheduledAt          *time.Time    `json:"scheduled_at" example:"2025-08-14T09:00:00Z"`
	CheckIntervalMinutes int           `json:"check_interval_minutes" example:"60"`
	CooldownDays         int           `json:"cooldown_days" example:"30"`
	RunStartHour         *int          `json:"run_start_hour" example:"9"`
	RunEndHour           *int          `json:"run_end_hour" example:"18"`
	EndsAt               *time.Time    `json:"ends_at"`
	IsTest               bool          `json:"is_test"`
	SMSCostPerSegment    *float64      `json:"sms_cost_per_segment"`
	EmailCost            *float64      `json:"email_cost"`
}

// UpdateCampaignRequest represents a partial update of an editable campaign
type UpdateCampaignRequest struct {
	Name                 *string        `json:"name"`
	Channel              *Channel       `json:"channel"`
	MessageTemplate      *string        `json:"message_template"`
	EmailSubjectTemplate *string        `json:"email_subject_template"`
	EmailBodyTemplate    *string        `json:"email_body_template"`
	SegmentFilter        *SegmentFilter `json:"segment_filter"`
	SMSSender            *string        `json:"sms_sender"`
	EmailSender          *string        `json:"email_sender"`
	Timezone             *string        `json:"timezone"`
	ScheduledAt          *time.Time     `json:"scheduled_at"`
	CheckIntervalMinutes *int           `json:"check_interval_minutes"`
	CooldownDays         *int           `json:"cooldown_days"`
	RunStartHour         *int           `json:"run_start_hour"`
	RunEndHour           *int           `json:"run_end_hour"`
	EndsAt               *time.Time     `json:"ends_at"`
	IsTest               *bool          `json:"is_test"`
	SMSCostPerSegment    *float64       `json:"sms_cost_per_segment"`
	EmailCost            *float64       `json:"email_cost"`
}

// TestSendRequest sends the campaign's own content, rendered for a sample
// contact, to the given test recipients.
type TestSendRequest struct {
	Recipients []string `json:"recipients" binding:"required,min=1" example:"+994501234567"`
	ContactID  string   `json:"contact_id"`
}

// TestSendCustomRequest sends free-form content to the given test recipients.
type TestSendCustomRequest struct {
	Recipients []string `json:"recipients" binding:"required,min=1"`
	Channel    Channel  `json:"channel" binding:"required" example:"sms"`
	Message    string   `json:"message" binding:"required"`
	Subject    string   `json:"subject"`
}

// CampaignPreviewRequest bounds the number of planned contacts returned
type CampaignPreviewRequest struct {
	Limit int `json:"limit" example:"20"`
}

// CampaignPreviewResponse projects what a run would send right now.
type CampaignPreviewResponse struct {
	TotalContacts     int              `json:"total_contacts"`
	EligibleContacts  int              `json:"eligible_contacts"`
	Sample            []PlannedContact `json:"sample"`
	EstimatedSegments int              `json:"estimated_segments"`
	EstimatedCost     float64          `json:"estimated_cost"`
	Warnings          []string         `json:"warnings,omitempty"`
}

// DispatchSummary is the outcome of a dispatch or retry run.
type DispatchSummary struct {
	CampaignID string  `json:"campaign_id"`
	Planned    int     `json:"planned"`
	Attempted  int     `json:"attempted"`
	Sent       int     `json:"sent"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
	Cost       float64 `json:"cost"`
	Stopped    bool    `json:"stopped"`
}

// CampaignProgress is pushed to SSE subscribers during a run.
type CampaignProgress struct {
	CampaignID string         `json:"campaign_id"`
	Status     CampaignStatus `json:"status"`
	Total      int            `json:"total"`
	Processed  int            `json:"processed"`
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	Done       bool           `json:"done"`
}
