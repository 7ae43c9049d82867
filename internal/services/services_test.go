package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/database/repository"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/dispatch"
	"github.com/finportal/marketing-console-backend/internal/services/planner"
	"github.com/finportal/marketing-console-backend/internal/services/schema"
	"github.com/finportal/marketing-console-backend/internal/utils"
)

var testTenant = models.Tenant{ProjectID: "proj-1", Timezone: "Asia/Baku"}

// memCampaigns is an in-memory CampaignStore and LiveCampaignLister
type memCampaigns struct {
	mu   sync.Mutex
	rows map[string]*models.Campaign
	seq  int
}

func newMemCampaigns() *memCampaigns {
	return &memCampaigns{rows: map[string]*models.Campaign{}}
}

func (m *memCampaigns) Create(ctx context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		m.seq++
		c.ID = "camp-" + string(rune('a'+m.seq))
	}
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memCampaigns) GetByID(ctx context.Context, projectID, id string) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.ProjectID != projectID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaigns) List(ctx context.Context, projectID string, filter repository.CampaignListFilter, limit, offset int) ([]*models.Campaign, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Campaign
	for _, c := range m.rows {
		if c.ProjectID == projectID && (filter.Status == "" || c.Status == filter.Status) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *memCampaigns) ListLive(ctx context.Context, projectID string) ([]*models.Campaign, error) {
	all, _, _ := m.List(ctx, projectID, repository.CampaignListFilter{}, 0, 0)
	var live []*models.Campaign
	for _, c := range all {
		if !c.IsTerminal() {
			live = append(live, c)
		}
	}
	return live, nil
}

func (m *memCampaigns) Update(ctx context.Context, c *models.Campaign) error {
	return m.Create(ctx, c)
}

func (m *memCampaigns) Delete(ctx context.Context, projectID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memCampaigns) TransitionStatus(ctx context.Context, id string, from, to models.CampaignStatus, extra map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (m *memCampaigns) status(id string) models.CampaignStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Status
}

// memMessages is an in-memory MessageHistory
type memMessages struct {
	attempts map[string]time.Time
}

func (m *memMessages) ListByCampaign(ctx context.Context, campaignID string, filter repository.MessageListFilter, limit, offset int) ([]*models.CampaignMessage, int64, error) {
	return nil, 0, nil
}

func (m *memMessages) ContactsAttemptedSince(ctx context.Context, campaignID string, since time.Time) (map[string]bool, error) {
	out := map[string]bool{}
	for id, at := range m.attempts {
		if !at.Before(since) {
			out[id] = true
		}
	}
	return out, nil
}

// memContacts is an in-memory ContactStore
type memContacts struct {
	rows []models.Contact
}

func (m *memContacts) Create(ctx context.Context, c *models.Contact) error {
	if c.ID == "" {
		c.ID = "contact-" + string(rune('a'+len(m.rows)))
	}
	m.rows = append(m.rows, *c)
	return nil
}

func (m *memContacts) GetByID(ctx context.Context, projectID, id string) (*models.Contact, error) {
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].ProjectID == projectID {
			return &m.rows[i], nil
		}
	}
	return nil, nil
}

func (m *memContacts) List(ctx context.Context, projectID string, limit, offset int) ([]*models.Contact, int64, error) {
	return nil, int64(len(m.rows)), nil
}

func (m *memContacts) PageAfter(ctx context.Context, projectID, afterID string, limit int) ([]models.Contact, error) {
	sorted := append([]models.Contact(nil), m.rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	var out []models.Contact
	for _, c := range sorted {
		if c.ProjectID == projectID && c.ID > afterID && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

type staticRegistry []models.AttributeSchema

func (r staticRegistry) LoadRegistry(ctx context.Context, tenant models.Tenant) (*schema.Registry, error) {
	return schema.NewRegistry(r), nil
}

var testSchema = staticRegistry{
	{Key: "first_name", Type: models.AttributeTypeString},
	{Key: "city", Type: models.AttributeTypeString},
	{Key: "tier", Type: models.AttributeTypeEnum, Options: models.StringList{"gold", "silver"}},
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, c *models.Campaign, planned []models.PlannedContact, opts dispatch.RunOptions) (*models.DispatchSummary, error) {
	args := m.Called(ctx, c, planned, opts)
	summary, _ := args.Get(0).(*models.DispatchSummary)
	return summary, args.Error(1)
}

func (m *mockDispatcher) RetryFailed(ctx context.Context, c *models.Campaign, opts dispatch.RunOptions) (*models.DispatchSummary, error) {
	args := m.Called(ctx, c, opts)
	summary, _ := args.Get(0).(*models.DispatchSummary)
	return summary, args.Error(1)
}

type recordingTrigger struct {
	triggered []string
}

func (r *recordingTrigger) Trigger(c *models.Campaign) {
	r.triggered = append(r.triggered, c.ID)
}

type campaignFixture struct {
	svc        *CampaignService
	campaigns  *memCampaigns
	messages   *memMessages
	contacts   *memContacts
	dispatcher *mockDispatcher
	trigger    *recordingTrigger
	locks      *utils.KeyedLock
	now        time.Time
}

func newCampaignFixture(t *testing.T) *campaignFixture {
	t.Helper()
	f := &campaignFixture{
		campaigns:  newMemCampaigns(),
		messages:   &memMessages{attempts: map[string]time.Time{}},
		contacts:   &memContacts{},
		dispatcher: &mockDispatcher{},
		trigger:    &recordingTrigger{},
		locks:      utils.NewKeyedLock(),
		now:        time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	segments := NewSegmentService(f.contacts, testSchema, 100)
	f.svc = NewCampaignService(f.campaigns, f.messages, f.contacts, testSchema, segments, f.dispatcher, f.trigger, f.locks,
		planner.Rates{SMSPerSegment: 0.02, EmailPerMessage: 0.001})
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func (f *campaignFixture) seed(t *testing.T, c *models.Campaign) *models.Campaign {
	t.Helper()
	if c.ProjectID == "" {
		c.ProjectID = testTenant.ProjectID
	}
	require.NoError(t, f.campaigns.Create(context.Background(), c))
	return c
}

func cityFilter(city string) models.SegmentFilter {
	return models.SegmentFilter{
		Logic:      models.LogicAnd,
		Conditions: []models.FilterCondition{{Key: "city", Operator: models.OperatorEquals, Value: city}},
	}
}

func launchable(typ models.CampaignType, status models.CampaignStatus) *models.Campaign {
	c := &models.Campaign{
		Name:            "Spring offer",
		Channel:         models.ChannelSMS,
		Type:            typ,
		Status:          status,
		MessageTemplate: "Hi {{first_name}}",
		SegmentFilter:   cityFilter("Baku"),
	}
	if typ == models.CampaignTypeAutomated {
		c.CheckIntervalMinutes = 60
	}
	return c
}

func TestCampaignService_CreateCampaign(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a draft in the tenant timezone", func(t *testing.T) {
		f := newCampaignFixture(t)
		c, err := f.svc.CreateCampaign(ctx, testTenant, &models.CreateCampaignRequest{
			Name:            "Welcome",
			Channel:         models.ChannelSMS,
			Type:            models.CampaignTypeOneTime,
			MessageTemplate: "Hello {{first_name}}",
		})
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusDraft, c.Status)
		assert.Equal(t, "Asia/Baku", c.Timezone)
	})

	tests := []struct {
		name string
		req  models.CreateCampaignRequest
		code apperrors.Code
	}{
		{"unicode sms", models.CreateCampaignRequest{Name: "x", Channel: models.ChannelSMS, Type: models.CampaignTypeOneTime, MessageTemplate: "Salam 👋"}, apperrors.CodeTemplateUnicodeNotAllowed},
		{"unknown variable", models.CreateCampaignRequest{Name: "x", Channel: models.ChannelSMS, Type: models.CampaignTypeOneTime, MessageTemplate: "Hi {{nickname}}"}, apperrors.CodeTemplateUnknownVariable},
		{"unknown channel", models.CreateCampaignRequest{Name: "x", Channel: "fax", Type: models.CampaignTypeOneTime}, apperrors.CodeCampaignInvalidField},
		{"bad filter", models.CreateCampaignRequest{Name: "x", Channel: models.ChannelSMS, Type: models.CampaignTypeOneTime,
			SegmentFilter: models.SegmentFilter{Conditions: []models.FilterCondition{{Key: "tier", Operator: models.OperatorGt, Value: 1}}}}, apperrors.CodeSegmentIllegalOperator},
		{"zero interval", models.CreateCampaignRequest{Name: "x", Channel: models.ChannelSMS, Type: models.CampaignTypeAutomated}, apperrors.CodeScheduleInvalidInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCampaignFixture(t)
			_, err := f.svc.CreateCampaign(ctx, testTenant, &tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestCampaignService_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("completed campaign cannot be executed", func(t *testing.T) {
		f := newCampaignFixture(t)
		c := f.seed(t, launchable(models.CampaignTypeOneTime, models.CampaignStatusCompleted))
		_, err := f.svc.Execute(ctx, testTenant, c.ID)
		assert.True(t, apperrors.IsStateTransition(err))
		assert.Empty(t, f.trigger.triggered)
	})

	t.Run("immediate execute starts sending", func(t *testing.T) {
		f := newCampaignFixture(t)
		c := f.seed(t, launchable(models.CampaignTypeOneTime, models.CampaignStatusDraft))
		got, err := f.svc.Execute(ctx, testTenant, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusSending, got.Status)
		assert.Equal(t, models.CampaignStatusSending, f.campaigns.status(c.ID))
		assert.Equal(t, []string{c.ID}, f.trigger.triggered)
	})

	t.Run("future scheduled_at schedules", func(t *testing.T) {
		f := newCampaignFixture(t)
		c := launchable(models.CampaignTypeOneTime, models.CampaignStatusDraft)
		at := f.now.Add(time.Hour)
		c.ScheduledAt = &at
		f.seed(t, c)
		got, err := f.svc.Execute(ctx, testTenant, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusScheduled, got.Status)
		assert.Empty(t, f.trigger.triggered)
	})

	t.Run("empty segment is rejected", func(t *testing.T) {
		f := newCampaignFixture(t)
		c := launchable(models.CampaignTypeOneTime, models.CampaignStatusDraft)
		c.SegmentFilter = models.SegmentFilter{}
		f.seed(t, c)
		_, err := f.svc.Execute(ctx, testTenant, c.ID)
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, models.CampaignStatusDraft, f.campaigns.status(c.ID))
	})

	t.Run("other tenant sees not found", func(t *testing.T) {
		f := newCampaignFixture(t)
		c := f.seed(t, launchable(models.CampaignTypeOneTime, models.CampaignStatusDraft))
		_, err := f.svc.Execute(ctx, models.Tenant{ProjectID: "proj-2"}, c.ID)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestCampaignService_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("one-time draft cannot be activated", func(t *testing.T) {
		f := newCampaignFixture(t)
		c := f.seed(t, launchable(models.CampaignTypeOneTime, models.CampaignStatusDraft))
		_, err := f.svc.Activate(ctx, testTenant, c.ID)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeCampaignInvalidStatusTransition, apperrors.CodeOf(err))
	})

	t.Run("ends_at in the past is a scheduling error", func(t *testing.T) {
		f := newCampaignFixture(t)
		c := launchable(models.CampaignTypeAutomated, models.CampaignStatusDraft)
		past := f.now.Add(-time.Hour)
		c.EndsAt = &past
		f.seed(t, c)
		_, err := f.svc.Activate(ctx, testTenant, c.ID)
		assert.True(t, apperrors.IsScheduling(err))
	})

	t.Run("pause then resume", func(t *testing.T) {
		f := newCampaignFixture(t)
		c := f.seed(t, launchable(models.CampaignTypeAutomated, models.CampaignStatusDraft))

		_, err := f.svc.Activate(ctx, testTenant, c.ID)
		require.NoError(t, err)
		_, err = f.svc.Pause(ctx, testTenant, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusPaused, f.campaigns.status(c.ID))

		_, err = f.svc.Pause(ctx, testTenant, c.ID)
		assert.True(t, apperrors.IsStateTransition(err))

		got, err := f.svc.Activate(ctx, testTenant, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusActive, got.Status)
		assert.Len(t, f.trigger.triggered, 2)
	})
}

func TestCampaignService_EditRules(t *testing.T) {
	ctx := context.Background()
	f := newCampaignFixture(t)
	c := f.seed(t, launchable(models.CampaignTypeAutomated, models.CampaignStatusActive))

	name := "Renamed"
	_, err := f.svc.UpdateCampaign(ctx, testTenant, c.ID, &models.UpdateCampaignRequest{Name: &name})
	assert.True(t, apperrors.IsStateTransition(err))

	err = f.svc.DeleteCampaign(ctx, testTenant, c.ID)
	assert.True(t, apperrors.IsStateTransition(err))

	draft := f.seed(t, launchable(models.CampaignTypeOneTime, models.CampaignStatusDraft))
	got, err := f.svc.UpdateCampaign(ctx, testTenant, draft.ID, &models.UpdateCampaignRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	require.NoError(t, f.svc.DeleteCampaign(ctx, testTenant, draft.ID))
}

func TestCampaignService_Duplicate(t *testing.T) {
	f := newCampaignFixture(t)
	c := launchable(models.CampaignTypeOneTime, models.CampaignStatusCompleted)
	c.SentCount = 40
	c.TotalCost = 0.8
	f.seed(t, c)

	dup, err := f.svc.Duplicate(context.Background(), testTenant, c.ID)
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, dup.ID)
	assert.Equal(t, models.CampaignStatusDraft, dup.Status)
	assert.Zero(t, dup.SentCount)
	assert.Zero(t, dup.TotalCost)
}

func TestCampaignService_TestSend(t *testing.T) {
	ctx := context.Background()
	f := newCampaignFixture(t)
	c := launchable(models.CampaignTypeOneTime, models.CampaignStatusDraft)
	c.Channel = models.ChannelBoth
	c.EmailSubjectTemplate = "News for {{first_name}}"
	f.seed(t, c)
	require.NoError(t, f.contacts.Create(ctx, &models.Contact{ID: "k1", ProjectID: testTenant.ProjectID, Phone: "+1", Attributes: models.JSON{"first_name": "Aysel"}}))

	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything, mock.MatchedBy(func(planned []models.PlannedContact) bool {
		return len(planned) == 2 &&
			planned[0].Channel == models.ChannelSMS && planned[0].RenderedContent == "Hi Aysel" &&
			planned[1].Channel == models.ChannelEmail && planned[1].Subject == "News for Aysel"
	}), mock.MatchedBy(func(opts dispatch.RunOptions) bool {
		return opts.ForceTest && !opts.CountTowardsTotals && opts.Source == models.MessageSourceTest
	})).Return(&models.DispatchSummary{Sent: 2}, nil).Once()

	summary, err := f.svc.TestSend(ctx, testTenant, c.ID, &models.TestSendRequest{
		Recipients: []string{"+994501112233", "qa@finportal.az"},
		ContactID:  "k1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Sent)
	f.dispatcher.AssertExpectations(t)
}

func TestCampaignService_TestSendCustomRejectsUnicodeSMS(t *testing.T) {
	f := newCampaignFixture(t)
	c := f.seed(t, launchable(models.CampaignTypeOneTime, models.CampaignStatusDraft))

	_, err := f.svc.TestSendCustom(context.Background(), testTenant, c.ID, &models.TestSendCustomRequest{
		Recipients: []string{"+994501112233"},
		Channel:    models.ChannelSMS,
		Message:    "Ödəniş 🙂",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTemplateUnicodeNotAllowed, apperrors.CodeOf(err))
	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCampaignService_RetryFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("draft cannot retry", func(t *testing.T) {
		f := newCampaignFixture(t)
		c := f.seed(t, launchable(models.CampaignTypeOneTime, models.CampaignStatusDraft))
		_, err := f.svc.RetryFailed(ctx, testTenant, c.ID)
		assert.True(t, apperrors.IsStateTransition(err))
	})

	t.Run("refuses while a run is in flight", func(t *testing.T) {
		f := newCampaignFixture(t)
		c := f.seed(t, launchable(models.CampaignTypeAutomated, models.CampaignStatusActive))
		require.True(t, f.locks.TryLock(c.ID))
		_, err := f.svc.RetryFailed(ctx, testTenant, c.ID)
		assert.Equal(t, apperrors.CodeCampaignRunInProgress, apperrors.CodeOf(err))
	})

	t.Run("completed one-time retries", func(t *testing.T) {
		f := newCampaignFixture(t)
		c := f.seed(t, launchable(models.CampaignTypeOneTime, models.CampaignStatusCompleted))
		f.dispatcher.On("RetryFailed", mock.Anything, mock.Anything, mock.MatchedBy(func(opts dispatch.RunOptions) bool {
			return opts.CountTowardsTotals && opts.Source == models.MessageSourceRetry
		})).Return(&models.DispatchSummary{Attempted: 3, Sent: 3}, nil).Once()

		summary, err := f.svc.RetryFailed(ctx, testTenant, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Sent)
		assert.False(t, f.locks.Held(c.ID))
	})
}

func TestCampaignService_PreviewAppliesCooldown(t *testing.T) {
	ctx := context.Background()
	f := newCampaignFixture(t)
	c := launchable(models.CampaignTypeAutomated, models.CampaignStatusActive)
	c.CooldownDays = 30
	f.seed(t, c)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, f.contacts.Create(ctx, &models.Contact{ID: id, ProjectID: testTenant.ProjectID, Phone: "+99450" + id, Attributes: models.JSON{"city": "Baku", "first_name": id}}))
	}
	require.NoError(t, f.contacts.Create(ctx, &models.Contact{ID: "d", ProjectID: testTenant.ProjectID, Phone: "+99450d", Attributes: models.JSON{"city": "Ganja"}}))
	f.messages.attempts["a"] = f.now.AddDate(0, 0, -10)
	f.messages.attempts["b"] = f.now.AddDate(0, 0, -31)

	resp, err := f.svc.Preview(ctx, testTenant, c.ID, &models.CampaignPreviewRequest{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalContacts)
	assert.Equal(t, 2, resp.EligibleContacts)
	assert.Len(t, resp.Sample, 1)
	assert.Equal(t, 2, resp.EstimatedSegments)
	assert.InDelta(t, 0.04, resp.EstimatedCost, 1e-9)
}

func TestAttributeService(t *testing.T) {
	ctx := context.Background()
	attrs := &memAttributes{}
	campaigns := newMemCampaigns()
	svc := NewAttributeService(attrs, campaigns)

	_, err := svc.RegisterAttributes(ctx, testTenant, &models.RegisterAttributesRequest{Attributes: []models.AttributeDefinition{
		{Key: "city", Type: models.AttributeTypeString},
		{Key: "tier", Type: models.AttributeTypeEnum, Options: []string{"gold", "silver"}},
	}})
	require.NoError(t, err)

	_, err = svc.RegisterAttributes(ctx, testTenant, &models.RegisterAttributesRequest{Attributes: []models.AttributeDefinition{
		{Key: "score", Type: models.AttributeTypeNumber},
		{Key: "city", Type: models.AttributeTypeString},
	}})
	assert.Equal(t, apperrors.CodeAttributeDuplicateKey, apperrors.CodeOf(err))
	listed, err := svc.ListAttributes(ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "city", listed[0].Key)
	assert.Contains(t, listed[0].Operators, models.OperatorStartsWith)

	live := launchable(models.CampaignTypeAutomated, models.CampaignStatusActive)
	live.ProjectID = testTenant.ProjectID
	require.NoError(t, campaigns.Create(ctx, live))

	err = svc.DeleteAttribute(ctx, testTenant, "city")
	assert.Equal(t, apperrors.CodeAttributeInUse, apperrors.CodeOf(err))

	newType := models.AttributeTypeNumber
	_, err = svc.UpdateAttribute(ctx, testTenant, "city", &models.UpdateAttributeRequest{Type: &newType})
	assert.Equal(t, apperrors.CodeAttributeInUse, apperrors.CodeOf(err))

	label := "City of residence"
	updated, err := svc.UpdateAttribute(ctx, testTenant, "city", &models.UpdateAttributeRequest{Label: &label})
	require.NoError(t, err)
	assert.Equal(t, label, updated.Label)

	require.NoError(t, svc.DeleteAttribute(ctx, testTenant, "tier"))
	assert.True(t, apperrors.IsNotFound(svc.DeleteAttribute(ctx, testTenant, "tier")))
}

func TestAttributeService_TemplateReferenceBlocksChanges(t *testing.T) {
	ctx := context.Background()
	attrs := &memAttributes{}
	campaigns := newMemCampaigns()
	svc := NewAttributeService(attrs, campaigns)

	_, err := svc.RegisterAttributes(ctx, testTenant, &models.RegisterAttributesRequest{Attributes: []models.AttributeDefinition{
		{Key: "first_name", Type: models.AttributeTypeString},
		{Key: "city", Type: models.AttributeTypeString},
		{Key: "voucher", Type: models.AttributeTypeString},
	}})
	require.NoError(t, err)

	live := launchable(models.CampaignTypeAutomated, models.CampaignStatusActive)
	live.ProjectID = testTenant.ProjectID
	live.Channel = models.ChannelBoth
	live.EmailSubjectTemplate = "A gift for you"
	live.EmailBodyTemplate = "Use code {{ voucher }} today"
	require.NoError(t, campaigns.Create(ctx, live))

	err = svc.DeleteAttribute(ctx, testTenant, "first_name")
	assert.Equal(t, apperrors.CodeAttributeInUse, apperrors.CodeOf(err))

	newType := models.AttributeTypeNumber
	_, err = svc.UpdateAttribute(ctx, testTenant, "voucher", &models.UpdateAttributeRequest{Type: &newType})
	assert.Equal(t, apperrors.CodeAttributeInUse, apperrors.CodeOf(err))

	draft := launchable(models.CampaignTypeOneTime, models.CampaignStatusDraft)
	draft.ProjectID = testTenant.ProjectID
	draft.MessageTemplate = "Hi {{first_name}}"
	require.NoError(t, campaigns.Create(ctx, draft))
	changed, err := campaigns.TransitionStatus(ctx, live.ID, models.CampaignStatusActive, models.CampaignStatusCompleted, nil)
	require.NoError(t, err)
	require.True(t, changed)

	// only the draft is left and it renders first_name alone
	require.NoError(t, svc.DeleteAttribute(ctx, testTenant, "voucher"))
	err = svc.DeleteAttribute(ctx, testTenant, "first_name")
	assert.Equal(t, apperrors.CodeAttributeInUse, apperrors.CodeOf(err))
}

func TestContactService_ImportPartialFailure(t *testing.T) {
	contacts := &memContacts{}
	svc := NewContactService(contacts, testSchema)

	resp, err := svc.ImportContacts(context.Background(), testTenant, &models.ImportContactsRequest{Contacts: []models.CreateContactRequest{
		{Phone: "+994501112233", Attributes: map[string]interface{}{"city": "Baku", "tier": "gold"}},
		{Phone: "+994501112234", Attributes: map[string]interface{}{"tier": "bronze"}},
		{Attributes: map[string]interface{}{"city": "Baku"}},
		{Email: "A@B.AZ", Attributes: map[string]interface{}{"nickname": "x"}},
		{Email: "Ok@Finportal.az"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Created)
	require.Len(t, resp.Failed, 3)
	assert.Equal(t, 1, resp.Failed[0].Index)
	assert.Equal(t, string(apperrors.CodeContactInvalidValue), resp.Failed[0].Code)
	assert.Equal(t, string(apperrors.CodeContactMissingRecipient), resp.Failed[1].Code)
	assert.Equal(t, string(apperrors.CodeContactUnknownAttribute), resp.Failed[2].Code)
	assert.Equal(t, "ok@finportal.az", contacts.rows[1].Email)
}

func TestSegmentService_PreviewSegment(t *testing.T) {
	contacts := &memContacts{}
	for i, city := range []string{"Baku", "Ganja", "baku", "Baku"} {
		contacts.rows = append(contacts.rows, models.Contact{ID: string(rune('a' + i)), ProjectID: testTenant.ProjectID, Attributes: models.JSON{"city": city}})
	}
	svc := NewSegmentService(contacts, testSchema, 2)

	resp, err := svc.PreviewSegment(context.Background(), testTenant, &models.SegmentPreviewRequest{Filter: cityFilter("BAKU"), PreviewLimit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalCount)
	require.Len(t, resp.Sample, 2)
	assert.Equal(t, "a", resp.Sample[0].ID)
	assert.Equal(t, "c", resp.Sample[1].ID)

	_, err = svc.PreviewSegment(context.Background(), testTenant, &models.SegmentPreviewRequest{Filter: models.SegmentFilter{
		Conditions: []models.FilterCondition{{Key: "salary", Operator: models.OperatorGt, Value: 10}},
	}})
	assert.Equal(t, apperrors.CodeSegmentUnknownAttribute, apperrors.CodeOf(err))
}

type memAttributes struct {
	rows []models.AttributeSchema
}

func (m *memAttributes) ListByProject(ctx context.Context, projectID string) ([]models.AttributeSchema, error) {
	return append([]models.AttributeSchema(nil), m.rows...), nil
}

func (m *memAttributes) GetByKey(ctx context.Context, projectID, key string) (*models.AttributeSchema, error) {
	for i := range m.rows {
		if m.rows[i].Key == key {
			a := m.rows[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memAttributes) CreateBatch(ctx context.Context, attrs []models.AttributeSchema) error {
	m.rows = append(m.rows, attrs...)
	return nil
}

func (m *memAttributes) Update(ctx context.Context, attr *models.AttributeSchema) error {
	for i := range m.rows {
		if m.rows[i].Key == attr.Key {
			m.rows[i] = *attr
		}
	}
	return nil
}

func (m *memAttributes) Delete(ctx context.Context, projectID, key string) (bool, error) {
	for i := range m.rows {
		if m.rows[i].Key == key {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type memReports struct {
	msg *models.CampaignMessage
}

func (m *memReports) ApplyDeliveryReport(ctx context.Context, report models.DeliveryReport) (*models.CampaignMessage, error) {
	if m.msg == nil || m.msg.ProviderMessageID != report.ProviderMessageID || m.msg.Status != models.MessageStatusSent {
		return nil, nil
	}
	m.msg.Status = report.Status
	return m.msg, nil
}

type counterRecorder struct {
	deltas []models.CounterDelta
}

func (c *counterRecorder) AddCounters(ctx context.Context, campaignID string, channel models.Channel, delta models.CounterDelta) error {
	c.deltas = append(c.deltas, delta)
	return nil
}

func TestDeliveryReportService(t *testing.T) {
	ctx := context.Background()
	reports := &memReports{msg: &models.CampaignMessage{ID: "m1", CampaignID: "camp-1", Channel: models.ChannelSMS, Status: models.MessageStatusSent, ProviderMessageID: "gw-1"}}
	counters := &counterRecorder{}
	svc := NewDeliveryReportService(reports, counters)

	require.NoError(t, svc.HandleMessage(ctx, []byte(`{"provider_message_id":"gw-1","status":"delivered"}`)))
	require.NoError(t, svc.HandleMessage(ctx, []byte(`{"provider_message_id":"gw-1","status":"delivered"}`)))
	require.NoError(t, svc.HandleMessage(ctx, []byte(`not json`)))
	require.NoError(t, svc.HandleMessage(ctx, []byte(`{"provider_message_id":"gw-1","status":"pending"}`)))

	assert.Equal(t, []models.CounterDelta{{Delivered: 1}}, counters.deltas)
}
