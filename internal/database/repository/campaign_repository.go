package repository

import (
	"context"
	"errors"
	"time"

	"github.com/finportal/marketing-console-backend/internal/models"

	"gorm.io/gorm"
)

type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// CampaignListFilter narrows a campaign listing
type CampaignListFilter struct {
	Status models.CampaignStatus
	Type   models.CampaignType
}

// Create creates a new campaign
func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

// GetByID retrieves a campaign of a project
func (r *CampaignRepository) GetByID(ctx context.Context, projectID, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).Where("project_id = ? AND id = ?", projectID, id).First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// FindByID retrieves a campaign by id regardless of project. Only
// background workers that already hold a campaign id use it.
func (r *CampaignRepository) FindByID(ctx context.Context, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// List retrieves a page of campaigns of a project, newest first
func (r *CampaignRepository) List(ctx context.Context, projectID string, filter CampaignListFilter, limit, offset int) ([]*models.Campaign, int64, error) {
	var campaigns []*models.Campaign
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Campaign{}).Where("project_id = ?", projectID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&campaigns).Error
	return campaigns, total, err
}

// ListLive retrieves the non-terminal campaigns of a project
func (r *CampaignRepository) ListLive(ctx context.Context, projectID string) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status NOT IN ?", projectID, []models.CampaignStatus{
			models.CampaignStatusCompleted, models.CampaignStatusCancelled, models.CampaignStatusFailed,
		}).
		Find(&campaigns).Error
	return campaigns, err
}

// ListSchedulable retrieves campaigns the scheduler must look at, across
// every project
func (r *CampaignRepository) ListSchedulable(ctx context.Context) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	err := r.db.WithContext(ctx).
		Where("status IN ?", []models.CampaignStatus{
			models.CampaignStatusScheduled, models.CampaignStatusActive, models.CampaignStatusSending,
			models.CampaignStatusPaused,
		}).
		Order("created_at ASC").
		Find(&campaigns).Error
	return campaigns, err
}

// editableColumns are the fields a user edit may write. Status, schedule
// bookkeeping and counters are owned by the state machine and dispatcher.
var editableColumns = []string{
	"name", "channel", "is_test", "message_template", "email_subject_template",
	"email_body_template", "segment_filter", "sms_sender", "email_sender",
	"timezone", "scheduled_at", "check_interval_minutes", "cooldown_days",
	"run_start_hour", "run_end_hour", "ends_at", "sms_cost_per_segment", "email_cost",
	"updated_at",
}

// Update writes the user-editable fields of a campaign
func (r *CampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	return r.db.WithContext(ctx).Model(campaign).Select(editableColumns).Updates(campaign).Error
}

// Delete deletes a campaign of a project together with its messages
func (r *CampaignRepository) Delete(ctx context.Context, projectID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("campaign_id = ?", id).Delete(&models.CampaignMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("project_id = ? AND id = ?", projectID, id).Delete(&models.Campaign{}).Error
	})
}

// GetStatus reads the current status of a campaign
func (r *CampaignRepository) GetStatus(ctx context.Context, campaignID string) (models.CampaignStatus, error) {
	var status string
	err := r.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Pluck("status", &status).Error
	if err != nil {
		return "", err
	}
	return models.CampaignStatus(status), nil
}

// TransitionStatus moves a campaign from one status to another only if it is
// still in the expected status. Extra columns are written in the same update.
// It reports whether the row changed.
func (r *CampaignRepository) TransitionStatus(ctx context.Context, campaignID string, from, to models.CampaignStatus, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ? AND status = ?", campaignID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AddCounters increments the counters of one channel
func (r *CampaignRepository) AddCounters(ctx context.Context, campaignID string, channel models.Channel, delta models.CounterDelta) error {
	if delta.IsZero() {
		return nil
	}
	prefix := ""
	if channel == models.ChannelEmail {
		prefix = "email_"
	}
	updates := map[string]interface{}{}
	add := func(column string, n int) {
		if n != 0 {
			updates[prefix+column] = gorm.Expr(prefix+column+" + ?", n)
		}
	}
	add("target_count", delta.Target)
	add("sent_count", delta.Sent)
	add("delivered_count", delta.Delivered)
	add("failed_count", delta.Failed)
	if delta.Cost != 0 {
		updates["total_cost"] = gorm.Expr("total_cost + ?", delta.Cost)
	}
	return r.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Updates(updates).Error
}

// MarkRun records an automated run
func (r *CampaignRepository) MarkRun(ctx context.Context, campaignID string, lastRun, nextRun time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Updates(map[string]interface{}{"last_run_at": lastRun, "next_run_at": nextRun}).Error
}
