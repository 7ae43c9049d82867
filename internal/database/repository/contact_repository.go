package repository

import (
	"context"
	"errors"

	"github.com/finportal/marketing-console-backend/internal/models"
	"gorm.io/gorm"
)

// ContactRepository handles database operations for Contact entities
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new ContactRepository instance
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create adds a new contact
func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

// GetByID retrieves a contact of a project
func (r *ContactRepository) GetByID(ctx context.Context, projectID, id string) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.WithContext(ctx).Where("project_id = ? AND id = ?", projectID, id).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

// List retrieves a page of contacts with the total count
func (r *ContactRepository) List(ctx context.Context, projectID string, limit, offset int) ([]*models.Contact, int64, error) {
	var contacts []*models.Contact
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Contact{}).Where("project_id = ?", projectID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&contacts).Error
	return contacts, total, err
}

// PageAfter retrieves up to limit contacts ordered by id, strictly after
// afterID. It backs the segment evaluator's keyset scan.
func (r *ContactRepository) PageAfter(ctx context.Context, projectID, afterID string, limit int) ([]models.Contact, error) {
	var contacts []models.Contact
	query := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}
	err := query.Order("id ASC").Limit(limit).Find(&contacts).Error
	return contacts, err
}

// Count returns the number of contacts of a project
func (r *ContactRepository) Count(ctx context.Context, projectID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Contact{}).Where("project_id = ?", projectID).Count(&total).Error
	return total, err
}
