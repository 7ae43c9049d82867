package repository

import (
	"context"
	"errors"

	"github.com/finportal/marketing-console-backend/internal/models"
	"gorm.io/gorm"
)

// AttributeRepository handles database operations for AttributeSchema entities
type AttributeRepository struct {
	db *gorm.DB
}

// NewAttributeRepository creates a new AttributeRepository instance
func NewAttributeRepository(db *gorm.DB) *AttributeRepository {
	return &AttributeRepository{db: db}
}

// ListByProject retrieves every attribute of a project ordered by key
func (r *AttributeRepository) ListByProject(ctx context.Context, projectID string) ([]models.AttributeSchema, error) {
	var attrs []models.AttributeSchema
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("key ASC").Find(&attrs).Error
	return attrs, err
}

// GetByKey retrieves one attribute of a project
func (r *AttributeRepository) GetByKey(ctx context.Context, projectID, key string) (*models.AttributeSchema, error) {
	var attr models.AttributeSchema
	err := r.db.WithContext(ctx).Where("project_id = ? AND key = ?", projectID, key).First(&attr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attr, nil
}

// CreateBatch stores a batch of attributes atomically
func (r *AttributeRepository) CreateBatch(ctx context.Context, attrs []models.AttributeSchema) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range attrs {
			if err := tx.Create(&attrs[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Update saves an attribute
func (r *AttributeRepository) Update(ctx context.Context, attr *models.AttributeSchema) error {
	return r.db.WithContext(ctx).Save(attr).Error
}

// Delete removes an attribute of a project
func (r *AttributeRepository) Delete(ctx context.Context, projectID, key string) (bool, error) {
	result := r.db.WithContext(ctx).Where("project_id = ? AND key = ?", projectID, key).Delete(&models.AttributeSchema{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
