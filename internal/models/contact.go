package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contact is a messaging recipient. Attributes are validated against the
// project's AttributeSchema before they are stored.
type Contact struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID  string    `json:"project_id" gorm:"type:uuid;not null;index"`
	Phone      string    `json:"phone,omitempty" gorm:"type:varchar(32);index"`
	Email      string    `json:"email,omitempty" gorm:"type:varchar(255);index"`
	Attributes JSON      `json:"attributes" gorm:"type:jsonb"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Contact model
func (Contact) TableName() string {
	return "contacts"
}

// BeforeCreate assigns an ID when none was provided
func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// Recipient returns the address used for the given channel.
func (c *Contact) Recipient(channel Channel) string {
	if channel == ChannelEmail {
		return c.Email
	}
	return c.Phone
}

// CreateContactRequest represents contact ingestion input
type CreateContactRequest struct {
	Phone      string                 `json:"phone" example:"+994501234567"`
	Email      string                 `json:"email" example:"elvin@example.com"`
	Attributes map[string]interface{} `json:"attributes"`
}

// ImportContactsRequest represents a batch contact import
type ImportContactsRequest struct {
	Contacts []CreateContactRequest `json:"contacts" binding:"required,min=1"`
}

// ImportFailure describes one rejected row of an import.
type ImportFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ImportContactsResponse reports a partial import result
type ImportContactsResponse struct {
	Created int             `json:"created"`
	Failed  []ImportFailure `json:"failed"`
}
