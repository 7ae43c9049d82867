package repository

import (
	"context"
	"errors"

	"github.com/finportal/marketing-console-backend/internal/models"
	"gorm.io/gorm"
)

// ProjectRepository handles database operations for Project entities
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository instance
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create adds a new project
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// CreateWithAPIKey stores a project and its first API key in one transaction
func (r *ProjectRepository) CreateWithAPIKey(ctx context.Context, project *models.Project, apiKey *models.APIKey) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		apiKey.ProjectID = project.ID
		return tx.Create(apiKey).Error
	})
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}
