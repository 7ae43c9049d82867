package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is a tenant of the marketing console. Every other entity is
// scoped by its ProjectID.
type Project struct {
	ID                 string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name               string    `json:"name" gorm:"type:varchar(255);not null"`
	Timezone           string    `json:"timezone" gorm:"type:varchar(64);default:'UTC'"`
	DefaultSMSSender   string    `json:"default_sms_sender" gorm:"type:varchar(32)"`
	DefaultEmailSender string    `json:"default_email_sender" gorm:"type:varchar(255)"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Project model
func (Project) TableName() string {
	return "projects"
}

// BeforeCreate assigns an ID when none was provided
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// Tenant returns the request-scoped tenant context for the project.
func (p *Project) Tenant() Tenant {
	return Tenant{ProjectID: p.ID, Timezone: p.Timezone}
}

// Tenant is the explicit tenant context threaded through every service call.
type Tenant struct {
	ProjectID string `json:"project_id"`
	Timezone  string `json:"timezone"`
}

// CreateProjectRequest represents the request to create a new project
type CreateProjectRequest struct {
	Name               string `json:"name" binding:"required" example:"Loan offers"`
	Timezone           string `json:"timezone" example:"Asia/Baku"`
	DefaultSMSSender   string `json:"default_sms_sender" example:"FINPORTAL"`
	DefaultEmailSender string `json:"default_email_sender" example:"news@finportal.az"`
}

// CreateProjectResponse returns the project together with its first API key.
// The raw key is only shown once.
type CreateProjectResponse struct {
	Project *Project `json:"project"`
	APIKey  string   `json:"api_key" example:"mk_3f9a2b1c.5d1e..."`
}
