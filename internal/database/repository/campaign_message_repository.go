package repository

import (
	"context"
	"errors"
	"time"

	"github.com/finportal/marketing-console-backend/internal/models"
	"gorm.io/gorm"
)

// CampaignMessageRepository handles database operations for CampaignMessage entities
type CampaignMessageRepository struct {
	db *gorm.DB
}

// NewCampaignMessageRepository creates a new CampaignMessageRepository instance
func NewCampaignMessageRepository(db *gorm.DB) *CampaignMessageRepository {
	return &CampaignMessageRepository{db: db}
}

// MessageListFilter narrows a message history listing
type MessageListFilter struct {
	Status  models.MessageStatus
	Channel models.Channel
}

// CreateMessage inserts one attempt
func (r *CampaignMessageRepository) CreateMessage(ctx context.Context, msg *models.CampaignMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// UpdateMessage saves the outcome of an attempt
func (r *CampaignMessageRepository) UpdateMessage(ctx context.Context, msg *models.CampaignMessage) error {
	return r.db.WithContext(ctx).Save(msg).Error
}

// MarkSuperseded flags an attempt as replaced by a newer one
func (r *CampaignMessageRepository) MarkSuperseded(ctx context.Context, messageID string) error {
	return r.db.WithContext(ctx).Model(&models.CampaignMessage{}).
		Where("id = ?", messageID).
		Update("superseded", true).Error
}

// ListRetryCandidates returns failed, non-superseded, non-test attempts of a
// campaign, oldest first
func (r *CampaignMessageRepository) ListRetryCandidates(ctx context.Context, campaignID string) ([]*models.CampaignMessage, error) {
	var msgs []*models.CampaignMessage
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND status = ? AND superseded = ? AND source <> ?",
			campaignID, models.MessageStatusFailed, false, models.MessageSourceTest).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}

// SuccessfulKeys returns the attempt keys (contact or recipient, channel) of
// every sent or delivered message of a campaign
func (r *CampaignMessageRepository) SuccessfulKeys(ctx context.Context, campaignID string) (map[string]bool, error) {
	var rows []struct {
		ContactID string
		Recipient string
		Channel   models.Channel
	}
	err := r.db.WithContext(ctx).Model(&models.CampaignMessage{}).
		Select("contact_id, recipient, channel").
		Where("campaign_id = ? AND status IN ? AND source <> ?", campaignID,
			[]models.MessageStatus{models.MessageStatusSent, models.MessageStatusDelivered}, models.MessageSourceTest).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	keys := make(map[string]bool, len(rows))
	for _, row := range rows {
		who := row.ContactID
		if who == "" {
			who = row.Recipient
		}
		keys[who+"|"+string(row.Channel)] = true
	}
	return keys, nil
}

// ContactsAttemptedSince returns the ids of contacts that received any
// non-test attempt of the campaign at or after since
func (r *CampaignMessageRepository) ContactsAttemptedSince(ctx context.Context, campaignID string, since time.Time) (map[string]bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.CampaignMessage{}).
		Distinct("contact_id").
		Where("campaign_id = ? AND created_at >= ? AND source <> ? AND contact_id <> ''",
			campaignID, since, models.MessageSourceTest).
		Pluck("contact_id", &ids).Error
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ListByCampaign retrieves a page of a campaign's message history, newest first
func (r *CampaignMessageRepository) ListByCampaign(ctx context.Context, campaignID string, filter MessageListFilter, limit, offset int) ([]*models.CampaignMessage, int64, error) {
	var msgs []*models.CampaignMessage
	var total int64

	query := r.db.WithContext(ctx).Model(&models.CampaignMessage{}).Where("campaign_id = ?", campaignID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&msgs).Error
	return msgs, total, err
}

// ListAllByCampaign retrieves the full message history of a campaign, oldest first
func (r *CampaignMessageRepository) ListAllByCampaign(ctx context.Context, campaignID string) ([]*models.CampaignMessage, error) {
	var msgs []*models.CampaignMessage
	err := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID).Order("created_at ASC").Find(&msgs).Error
	return msgs, err
}

// ApplyDeliveryReport records a provider receipt. Only messages still in the
// sent status change, so replayed reports are no-ops. The updated message is
// returned, or nil when nothing changed.
func (r *CampaignMessageRepository) ApplyDeliveryReport(ctx context.Context, report models.DeliveryReport) (*models.CampaignMessage, error) {
	var msg models.CampaignMessage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("provider_message_id = ? AND status = ?", report.ProviderMessageID, models.MessageStatusSent).
			First(&msg).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"status": report.Status}
		switch report.Status {
		case models.MessageStatusDelivered:
			at := report.Timestamp
			if at.IsZero() {
				at = time.Now().UTC()
			}
			updates["delivered_at"] = at.UTC()
		case models.MessageStatusFailed:
			updates["last_error"] = report.Error
		}

		result := tx.Model(&models.CampaignMessage{}).
			Where("id = ? AND status = ?", msg.ID, models.MessageStatusSent).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		msg.Status = report.Status
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}
