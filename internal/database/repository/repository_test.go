package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/finportal/marketing-console-backend/internal/database"
	"github.com/finportal/marketing-console-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedCampaign(t *testing.T, db *gorm.DB, status models.CampaignStatus) *models.Campaign {
	t.Helper()
	c := &models.Campaign{
		ProjectID:       "11111111-1111-1111-1111-111111111111",
		Name:            "Spring offer",
		Channel:         models.ChannelBoth,
		Type:            models.CampaignTypeAutomated,
		Status:          status,
		MessageTemplate: "Hi {{first_name}}",
	}
	require.NoError(t, NewCampaignRepository(db).Create(context.Background(), c))
	return c
}

func TestCampaignRepository_AddCounters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db)
	ctx := context.Background()
	c := seedCampaign(t, db, models.CampaignStatusActive)

	require.NoError(t, repo.AddCounters(ctx, c.ID, models.ChannelSMS, models.CounterDelta{Target: 3, Sent: 2, Failed: 1, Cost: 0.04}))
	require.NoError(t, repo.AddCounters(ctx, c.ID, models.ChannelEmail, models.CounterDelta{Target: 2, Sent: 2, Cost: 0.002}))
	require.NoError(t, repo.AddCounters(ctx, c.ID, models.ChannelSMS, models.CounterDelta{Delivered: 1}))
	require.NoError(t, repo.AddCounters(ctx, c.ID, models.ChannelSMS, models.CounterDelta{}))

	got, err := repo.GetByID(ctx, c.ProjectID, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.TargetCount)
	assert.Equal(t, 2, got.SentCount)
	assert.Equal(t, 1, got.FailedCount)
	assert.Equal(t, 1, got.DeliveredCount)
	assert.Equal(t, 2, got.EmailTargetCount)
	assert.Equal(t, 2, got.EmailSentCount)
	assert.InDelta(t, 0.042, got.TotalCost, 1e-9)
}

func TestCampaignRepository_TransitionStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db)
	ctx := context.Background()
	c := seedCampaign(t, db, models.CampaignStatusScheduled)

	now := time.Now().UTC()
	changed, err := repo.TransitionStatus(ctx, c.ID, models.CampaignStatusScheduled, models.CampaignStatusSending, map[string]interface{}{"started_at": now})
	require.NoError(t, err)
	assert.True(t, changed)

	// a second transition from the stale status is a no-op
	changed, err = repo.TransitionStatus(ctx, c.ID, models.CampaignStatusScheduled, models.CampaignStatusSending, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	status, err := repo.GetStatus(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusSending, status)
}

func TestCampaignRepository_GetByIDScopedToProject(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db)
	c := seedCampaign(t, db, models.CampaignStatusDraft)

	got, err := repo.GetByID(context.Background(), "22222222-2222-2222-2222-222222222222", c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCampaignRepository_ListSchedulableAndFindByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db)
	ctx := context.Background()
	active := seedCampaign(t, db, models.CampaignStatusActive)
	paused := seedCampaign(t, db, models.CampaignStatusPaused)
	seedCampaign(t, db, models.CampaignStatusDraft)
	seedCampaign(t, db, models.CampaignStatusCompleted)

	listed, err := repo.ListSchedulable(ctx)
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, c := range listed {
		ids[c.ID] = true
	}
	assert.Equal(t, map[string]bool{active.ID: true, paused.ID: true}, ids)

	got, err := repo.FindByID(ctx, paused.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.CampaignStatusPaused, got.Status)

	missing, err := repo.FindByID(ctx, "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCampaignMessageRepository_ContactsAttemptedSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignMessageRepository(db)
	ctx := context.Background()
	c := seedCampaign(t, db, models.CampaignStatusActive)
	now := time.Now().UTC()

	rows := []*models.CampaignMessage{
		{ContactID: "recent", CreatedAt: now.AddDate(0, 0, -10), Source: models.MessageSourceRun, Status: models.MessageStatusSent},
		{ContactID: "old", CreatedAt: now.AddDate(0, 0, -31), Source: models.MessageSourceRun, Status: models.MessageStatusSent},
		{ContactID: "failed", CreatedAt: now.AddDate(0, 0, -2), Source: models.MessageSourceRun, Status: models.MessageStatusFailed},
		{ContactID: "tested", CreatedAt: now.AddDate(0, 0, -1), Source: models.MessageSourceTest, Status: models.MessageStatusSent},
	}
	for _, m := range rows {
		m.ProjectID = c.ProjectID
		m.CampaignID = c.ID
		m.Channel = models.ChannelSMS
		m.Recipient = "+994500000000"
		require.NoError(t, repo.CreateMessage(ctx, m))
	}

	attempted, err := repo.ContactsAttemptedSince(ctx, c.ID, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"recent": true, "failed": true}, attempted)
}

func TestCampaignMessageRepository_RetryQueries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignMessageRepository(db)
	ctx := context.Background()
	c := seedCampaign(t, db, models.CampaignStatusActive)

	create := func(contactID string, status models.MessageStatus, source models.MessageSource) *models.CampaignMessage {
		m := &models.CampaignMessage{
			ProjectID:  c.ProjectID,
			CampaignID: c.ID,
			ContactID:  contactID,
			Channel:    models.ChannelSMS,
			Recipient:  "+994500000000",
			Status:     status,
			Source:     source,
		}
		require.NoError(t, repo.CreateMessage(ctx, m))
		return m
	}

	failed := create("a", models.MessageStatusFailed, models.MessageSourceRun)
	create("b", models.MessageStatusFailed, models.MessageSourceRun)
	create("b", models.MessageStatusSent, models.MessageSourceRetry)
	create("c", models.MessageStatusFailed, models.MessageSourceTest)
	superseded := create("d", models.MessageStatusFailed, models.MessageSourceRun)
	require.NoError(t, repo.MarkSuperseded(ctx, superseded.ID))

	candidates, err := repo.ListRetryCandidates(ctx, c.ID)
	require.NoError(t, err)
	ids := make([]string, 0, len(candidates))
	for _, m := range candidates {
		ids = append(ids, m.ContactID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	keys, err := repo.SuccessfulKeys(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"b|sms": true}, keys)

	failed.Status = models.MessageStatusSent
	failed.ProviderMessageID = "gw-1"
	require.NoError(t, repo.UpdateMessage(ctx, failed))

	msg, err := repo.ApplyDeliveryReport(ctx, models.DeliveryReport{ProviderMessageID: "gw-1", Status: models.MessageStatusDelivered})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, models.MessageStatusDelivered, msg.Status)

	// replayed receipt changes nothing
	msg, err = repo.ApplyDeliveryReport(ctx, models.DeliveryReport{ProviderMessageID: "gw-1", Status: models.MessageStatusDelivered})
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestContactRepository_PageAfter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepository(db)
	ctx := context.Background()
	projectID := "11111111-1111-1111-1111-111111111111"

	for _, id := range []string{"c3", "c1", "c2"} {
		require.NoError(t, repo.Create(ctx, &models.Contact{ID: id, ProjectID: projectID, Phone: "+1" + id}))
	}
	require.NoError(t, repo.Create(ctx, &models.Contact{ID: "c0", ProjectID: "other", Phone: "+1"}))

	page, err := repo.PageAfter(ctx, projectID, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c1", page[0].ID)
	assert.Equal(t, "c2", page[1].ID)

	page, err = repo.PageAfter(ctx, projectID, "c2", 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c3", page[0].ID)
}
