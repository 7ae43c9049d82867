package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIKey is a project credential. The raw key has the form
// "<prefix>.<secret>"; only the bcrypt hash of the secret is stored.
type APIKey struct {
	ID         string     `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID  string     `json:"project_id" gorm:"type:uuid;not null;index"`
	Prefix     string     `json:"prefix" gorm:"type:varchar(32);not null;uniqueIndex"`
	SecretHash string     `json:"-" gorm:"type:varchar(255);not null"`
	IsActive   bool       `json:"is_active" gorm:"default:true;index"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the APIKey model
func (APIKey) TableName() string {
	return "api_keys"
}

// BeforeCreate assigns an ID when none was provided
func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.New().String()
	}
	return nil
}
