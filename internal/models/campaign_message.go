package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageStatus is the delivery state of a single send attempt.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusFailed    MessageStatus = "failed"
)

// MessageSource records which operation produced a message row.
type MessageSource string

const (
	MessageSourceRun   MessageSource = "run"
	MessageSourceRetry MessageSource = "retry"
	MessageSourceTest  MessageSource = "test"
)

// CampaignMessage is one send attempt of a campaign to one recipient on one
// channel. Retries create a new row and mark the failed one superseded.
type CampaignMessage struct {
	ID                string        `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID         string        `json:"project_id" gorm:"type:uuid;not null;index"`
	CampaignID        string        `json:"campaign_id" gorm:"type:uuid;not null;index:idx_message_campaign_contact"`
	ContactID         string        `json:"contact_id,omitempty" gorm:"type:varchar(36);index:idx_message_campaign_contact"`
	Channel           Channel       `json:"channel" gorm:"type:varchar(10);not null"`
	Recipient         string        `json:"recipient" gorm:"type:varchar(255);not null"`
	Subject           string        `json:"subject,omitempty" gorm:"type:text"`
	RenderedContent   string        `json:"rendered_content" gorm:"type:text"`
	Segments          int           `json:"segments,omitempty"`
	Encoding          string        `json:"encoding,omitempty" gorm:"type:varchar(10)"`
	Cost              float64       `json:"cost" gorm:"default:0"`
	Status            MessageStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	Source            MessageSource `json:"source" gorm:"type:varchar(10);not null;default:'run'"`
	IsTest            bool          `json:"is_test" gorm:"default:false"`
	Attempt           int           `json:"attempt" gorm:"default:1"`
	Superseded        bool          `json:"superseded" gorm:"default:false"`
	ProviderMessageID string        `json:"provider_message_id,omitempty" gorm:"type:varchar(100);index"`
	LastError         string        `json:"last_error,omitempty" gorm:"type:text"`
	SentAt            *time.Time    `json:"sent_at,omitempty"`
	DeliveredAt       *time.Time    `json:"delivered_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// TableName specifies the table name for the CampaignMessage model
func (CampaignMessage) TableName() string {
	return "campaign_messages"
}

// BeforeCreate assigns an ID when none was provided
func (m *CampaignMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// PlannedContact is the projection of one message a run would send. It is
// never persisted.
type PlannedContact struct {
	ContactID       string   `json:"contact_id"`
	Channel         Channel  `json:"channel"`
	Recipient       string   `json:"recipient"`
	Subject         string   `json:"subject,omitempty"`
	RenderedContent string   `json:"rendered_content"`
	Segments        int      `json:"segments"`
	Encoding        string   `json:"encoding,omitempty"`
	Cost            float64  `json:"cost"`
	Warnings        []string `json:"warnings,omitempty"`
}

// DeliveryReport is published by the SMS/email gateway once a provider
// confirms or rejects a message.
type DeliveryReport struct {
	ProviderMessageID string        `json:"provider_message_id"`
	Status            MessageStatus `json:"status"`
	Error             string        `json:"error,omitempty"`
	Timestamp         time.Time     `json:"timestamp"`
}
