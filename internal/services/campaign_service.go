package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/database/repository"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/dispatch"
	"github.com/finportal/marketing-console-backend/internal/services/lifecycle"
	"github.com/finportal/marketing-console-backend/internal/services/planner"
	"github.com/finportal/marketing-console-backend/internal/services/scheduler"
	"github.com/finportal/marketing-console-backend/internal/services/schema"
	"github.com/finportal/marketing-console-backend/internal/services/segment"
	"github.com/finportal/marketing-console-backend/internal/services/template"
	"github.com/finportal/marketing-console-backend/internal/utils"
)

const defaultCampaignPreviewLimit = 20

// CampaignStore is the campaign persistence
type CampaignStore interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, projectID, id string) (*models.Campaign, error)
	List(ctx context.Context, projectID string, filter repository.CampaignListFilter, limit, offset int) ([]*models.Campaign, int64, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	Delete(ctx context.Context, projectID, id string) error
	TransitionStatus(ctx context.Context, campaignID string, from, to models.CampaignStatus, extra map[string]interface{}) (bool, error)
}

// MessageHistory reads a campaign's message rows
type MessageHistory interface {
	ListByCampaign(ctx context.Context, campaignID string, filter repository.MessageListFilter, limit, offset int) ([]*models.CampaignMessage, int64, error)
	ContactsAttemptedSince(ctx context.Context, campaignID string, since time.Time) (map[string]bool, error)
}

// Segmenter evaluates segment filters over a project's contacts
type Segmenter interface {
	BuildFilter(ctx context.Context, tenant models.Tenant, raw models.SegmentFilter) (*segment.Filter, error)
	Collect(ctx context.Context, tenant models.Tenant, filter *segment.Filter) ([]models.Contact, error)
}

// ContactGetter loads a single contact
type ContactGetter interface {
	GetByID(ctx context.Context, projectID, id string) (*models.Contact, error)
}

// CampaignDispatcher sends planned runs and retries
type CampaignDispatcher interface {
	Dispatch(ctx context.Context, c *models.Campaign, planned []models.PlannedContact, opts dispatch.RunOptions) (*models.DispatchSummary, error)
	RetryFailed(ctx context.Context, c *models.Campaign, opts dispatch.RunOptions) (*models.DispatchSummary, error)
}

// RunTrigger starts a campaign run without waiting for the next tick
type RunTrigger interface {
	Trigger(c *models.Campaign)
}

type CampaignService struct {
	campaignRepo CampaignStore
	messageRepo  MessageHistory
	contacts     ContactGetter
	registries   RegistryLoader
	segments     Segmenter
	dispatcher   CampaignDispatcher
	trigger      RunTrigger
	locks        *utils.KeyedLock
	rates        planner.Rates
	now          func() time.Time
}

func NewCampaignService(
	campaignRepo CampaignStore,
	messageRepo MessageHistory,
	contacts ContactGetter,
	registries RegistryLoader,
	segments Segmenter,
	dispatcher CampaignDispatcher,
	trigger RunTrigger,
	locks *utils.KeyedLock,
	rates planner.Rates,
) *CampaignService {
	if locks == nil {
		locks = utils.NewKeyedLock()
	}
	return &CampaignService{
		campaignRepo: campaignRepo,
		messageRepo:  messageRepo,
		contacts:     contacts,
		registries:   registries,
		segments:     segments,
		dispatcher:   dispatcher,
		trigger:      trigger,
		locks:        locks,
		rates:        rates,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source
func (s *CampaignService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateCampaign stores a new draft campaign. Incomplete content is allowed
// in a draft; whatever is present must be valid.
func (s *CampaignService) CreateCampaign(ctx context.Context, tenant models.Tenant, req *models.CreateCampaignRequest) (*models.Campaign, error) {
	campaign := &models.Campaign{
		ProjectID:            tenant.ProjectID,
		Name:                 strings.TrimSpace(req.Name),
		Channel:              req.Channel,
		Type:                 req.Type,
		Status:               models.CampaignStatusDraft,
		IsTest:               req.IsTest,
		MessageTemplate:      req.MessageTemplate,
		EmailSubjectTemplate: req.EmailSubjectTemplate,
		EmailBodyTemplate:    req.EmailBodyTemplate,
		SegmentFilter:        req.SegmentFilter,
		SMSSender:            req.SMSSender,
		EmailSender:          req.EmailSender,
		Timezone:             req.Timezone,
		ScheduledAt:          utcPtr(req.ScheduledAt),
		CheckIntervalMinutes: req.CheckIntervalMinutes,
		CooldownDays:         req.CooldownDays,
		RunStartHour:         req.RunStartHour,
		RunEndHour:           req.RunEndHour,
		EndsAt:               utcPtr(req.EndsAt),
		SMSCostPerSegment:    req.SMSCostPerSegment,
		EmailCost:            req.EmailCost,
	}
	if campaign.Timezone == "" {
		campaign.Timezone = tenant.Timezone
	}

	if err := s.validateDraft(ctx, tenant, campaign); err != nil {
		return nil, err
	}
	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return campaign, nil
}

// GetCampaign returns one campaign of the project
func (s *CampaignService) GetCampaign(ctx context.Context, tenant models.Tenant, id string) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, tenant.ProjectID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	if campaign == nil {
		return nil, apperrors.NewNotFound("campaign", id)
	}
	return campaign, nil
}

// ListCampaigns returns a page of campaigns
func (s *CampaignService) ListCampaigns(ctx context.Context, tenant models.Tenant, filter repository.CampaignListFilter, page utils.Page) ([]*models.Campaign, int64, error) {
	return s.campaignRepo.List(ctx, tenant.ProjectID, filter, page.Size, page.Offset())
}

// UpdateCampaign edits a draft or paused campaign
func (s *CampaignService) UpdateCampaign(ctx context.Context, tenant models.Tenant, id string, req *models.UpdateCampaignRequest) (*models.Campaign, error) {
	campaign, err := s.GetCampaign(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Check(campaign, lifecycle.OpEdit); err != nil {
		return nil, err
	}

	applyUpdate(campaign, req)
	if err := s.validateDraft(ctx, tenant, campaign); err != nil {
		return nil, err
	}
	if campaign.Status == models.CampaignStatusPaused {
		// a paused campaign must stay resumable
		if err := s.validateLaunch(ctx, tenant, campaign); err != nil {
			return nil, err
		}
	}

	if err := s.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}
	return campaign, nil
}

// DeleteCampaign removes a draft campaign
func (s *CampaignService) DeleteCampaign(ctx context.Context, tenant models.Tenant, id string) error {
	campaign, err := s.GetCampaign(ctx, tenant, id)
	if err != nil {
		return err
	}
	if err := lifecycle.Check(campaign, lifecycle.OpDelete); err != nil {
		return err
	}
	if err := s.campaignRepo.Delete(ctx, tenant.ProjectID, id); err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	return nil
}

// Execute launches a one-time campaign: scheduled when scheduled_at lies in
// the future, sent right away otherwise
func (s *CampaignService) Execute(ctx context.Context, tenant models.Tenant, id string) (*models.Campaign, error) {
	campaign, err := s.GetCampaign(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	next, err := lifecycle.Next(campaign, lifecycle.OpExecute, now)
	if err != nil {
		return nil, err
	}
	if err := s.validateLaunch(ctx, tenant, campaign); err != nil {
		return nil, err
	}

	extra := map[string]interface{}{}
	if next == models.CampaignStatusSending {
		extra["started_at"] = now
	}
	if err := s.transition(ctx, campaign, lifecycle.OpExecute, next, extra); err != nil {
		return nil, err
	}
	if next == models.CampaignStatusSending {
		campaign.StartedAt = &now
		if s.trigger != nil {
			s.trigger.Trigger(campaign)
		}
	}
	return campaign, nil
}

// Activate starts an automated campaign or resumes a paused one
func (s *CampaignService) Activate(ctx context.Context, tenant models.Tenant, id string) (*models.Campaign, error) {
	campaign, err := s.GetCampaign(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	next, err := lifecycle.Next(campaign, lifecycle.OpActivate, now)
	if err != nil {
		return nil, err
	}
	if err := s.validateLaunch(ctx, tenant, campaign); err != nil {
		return nil, err
	}

	extra := map[string]interface{}{}
	if campaign.StartedAt == nil {
		extra["started_at"] = now
		campaign.StartedAt = &now
	}
	if err := s.transition(ctx, campaign, lifecycle.OpActivate, next, extra); err != nil {
		return nil, err
	}
	if s.trigger != nil {
		s.trigger.Trigger(campaign)
	}
	return campaign, nil
}

// Pause stops an active automated campaign; an in-flight run stops
// enqueuing at its next message
func (s *CampaignService) Pause(ctx context.Context, tenant models.Tenant, id string) (*models.Campaign, error) {
	return s.simpleTransition(ctx, tenant, id, lifecycle.OpPause, nil)
}

// Cancel ends a scheduled one-time or a live automated campaign
func (s *CampaignService) Cancel(ctx context.Context, tenant models.Tenant, id string) (*models.Campaign, error) {
	return s.simpleTransition(ctx, tenant, id, lifecycle.OpCancel, func(now time.Time) map[string]interface{} {
		return map[string]interface{}{"completed_at": now}
	})
}

func (s *CampaignService) simpleTransition(ctx context.Context, tenant models.Tenant, id string, op lifecycle.Operation, extra func(time.Time) map[string]interface{}) (*models.Campaign, error) {
	campaign, err := s.GetCampaign(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	next, err := lifecycle.Next(campaign, op, now)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if extra != nil {
		fields = extra(now)
	}
	if err := s.transition(ctx, campaign, op, next, fields); err != nil {
		return nil, err
	}
	return campaign, nil
}

// transition applies a status change only if nobody changed the campaign
// status since it was read
func (s *CampaignService) transition(ctx context.Context, campaign *models.Campaign, op lifecycle.Operation, to models.CampaignStatus, extra map[string]interface{}) error {
	from := campaign.Status
	changed, err := s.campaignRepo.TransitionStatus(ctx, campaign.ID, from, to, extra)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	if !changed {
		return apperrors.NewStateTransition(string(op), string(from), "campaign status changed concurrently")
	}
	campaign.Status = to
	logrus.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"operation":   op,
		"from":        from,
		"to":          to,
	}).Info("Campaign status changed")
	return nil
}

// Duplicate creates a draft copy with zeroed counters
func (s *CampaignService) Duplicate(ctx context.Context, tenant models.Tenant, id string) (*models.Campaign, error) {
	campaign, err := s.GetCampaign(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Check(campaign, lifecycle.OpDuplicate); err != nil {
		return nil, err
	}
	dup := lifecycle.Duplicate(campaign, s.now())
	if err := s.campaignRepo.Create(ctx, dup); err != nil {
		return nil, fmt.Errorf("failed to duplicate campaign: %w", err)
	}
	return dup, nil
}

// TestSend renders the campaign for one contact, or for an empty contact,
// and sends it through the sandbox to the given recipients. Phone numbers
// receive the SMS, email addresses the email.
func (s *CampaignService) TestSend(ctx context.Context, tenant models.Tenant, id string, req *models.TestSendRequest) (*models.DispatchSummary, error) {
	campaign, err := s.GetCampaign(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Check(campaign, lifecycle.OpTestSend); err != nil {
		return nil, err
	}
	if err := lifecycle.ValidateContent(campaign); err != nil {
		return nil, err
	}

	contact := &models.Contact{ProjectID: tenant.ProjectID, Attributes: models.JSON{}}
	if req.ContactID != "" {
		found, err := s.contacts.GetByID(ctx, tenant.ProjectID, req.ContactID)
		if err != nil {
			return nil, fmt.Errorf("failed to get contact: %w", err)
		}
		if found == nil {
			return nil, apperrors.NewNotFound("contact", req.ContactID)
		}
		contact = found
	}

	planned, err := s.planTestRecipients(campaign, contact, req.Recipients)
	if err != nil {
		return nil, err
	}
	return s.dispatchTest(ctx, campaign, planned)
}

// TestSendCustom sends free-form content through the sandbox
func (s *CampaignService) TestSendCustom(ctx context.Context, tenant models.Tenant, id string, req *models.TestSendCustomRequest) (*models.DispatchSummary, error) {
	campaign, err := s.GetCampaign(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Check(campaign, lifecycle.OpTestSendCustom); err != nil {
		return nil, err
	}
	if req.Channel != models.ChannelSMS && req.Channel != models.ChannelEmail {
		return nil, apperrors.NewValidation(apperrors.CodeCampaignInvalidField, "channel", "test channel must be sms or email")
	}

	custom := *campaign
	custom.Channel = req.Channel
	custom.MessageTemplate = req.Message
	custom.EmailBodyTemplate = req.Message
	custom.EmailSubjectTemplate = req.Subject
	if err := lifecycle.ValidateContent(&custom); err != nil {
		return nil, err
	}

	contact := &models.Contact{ProjectID: tenant.ProjectID, Attributes: models.JSON{}}
	planned, err := s.planTestRecipients(&custom, contact, req.Recipients)
	if err != nil {
		return nil, err
	}
	return s.dispatchTest(ctx, &custom, planned)
}

func (s *CampaignService) planTestRecipients(campaign *models.Campaign, contact *models.Contact, recipients []string) ([]models.PlannedContact, error) {
	targets := map[models.Channel]bool{}
	for _, ch := range campaign.Channel.Targets() {
		targets[ch] = true
	}

	planned := make([]models.PlannedContact, 0, len(recipients))
	for i, raw := range recipients {
		recipient := strings.TrimSpace(raw)
		if recipient == "" {
			continue
		}
		ch := models.ChannelSMS
		if strings.Contains(recipient, "@") {
			ch = models.ChannelEmail
		}
		if !targets[ch] {
			return nil, apperrors.NewValidation(apperrors.CodeCampaignInvalidField, fmt.Sprintf("recipients[%d]", i),
				"campaign does not send on the %s channel", ch)
		}
		pc := planner.PlanOne(campaign, contact, ch, s.rates)
		pc.ContactID = ""
		pc.Recipient = recipient
		pc.Cost = 0
		planned = append(planned, pc)
	}
	if len(planned) == 0 {
		return nil, apperrors.NewValidation(apperrors.CodeCampaignInvalidField, "recipients", "at least one recipient is required")
	}
	return planned, nil
}

func (s *CampaignService) dispatchTest(ctx context.Context, campaign *models.Campaign, planned []models.PlannedContact) (*models.DispatchSummary, error) {
	return s.dispatcher.Dispatch(ctx, campaign, planned, dispatch.RunOptions{
		Source:             models.MessageSourceTest,
		ForceTest:          true,
		CountTowardsTotals: false,
	})
}

// RetryFailed re-attempts the failed messages of a campaign. It refuses to
// start while another run of the campaign is in flight.
func (s *CampaignService) RetryFailed(ctx context.Context, tenant models.Tenant, id string) (*models.DispatchSummary, error) {
	campaign, err := s.GetCampaign(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Check(campaign, lifecycle.OpRetryFailed); err != nil {
		return nil, err
	}

	if !s.locks.TryLock(campaign.ID) {
		return nil, &apperrors.StateTransitionError{
			Code:      apperrors.CodeCampaignRunInProgress,
			Operation: string(lifecycle.OpRetryFailed),
			From:      string(campaign.Status),
			Message:   "a run of this campaign is in progress",
		}
	}
	defer s.locks.Unlock(campaign.ID)

	opts := dispatch.RunOptions{
		Source:             models.MessageSourceRetry,
		CountTowardsTotals: true,
	}
	if campaign.Type == models.CampaignTypeAutomated {
		opts.ContinueWhile = []models.CampaignStatus{models.CampaignStatusActive, models.CampaignStatusPaused}
	} else {
		opts.ContinueWhile = []models.CampaignStatus{campaign.Status}
	}
	return s.dispatcher.RetryFailed(ctx, campaign, opts)
}

// Preview projects what a run would send right now without sending anything
func (s *CampaignService) Preview(ctx context.Context, tenant models.Tenant, id string, req *models.CampaignPreviewRequest) (*models.CampaignPreviewResponse, error) {
	campaign, err := s.GetCampaign(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	resp := &models.CampaignPreviewResponse{Sample: []models.PlannedContact{}}
	if campaign.SegmentFilter.IsEmpty() {
		resp.Warnings = []string{"segment has no conditions and matches no contacts"}
		return resp, nil
	}

	filter, err := s.segments.BuildFilter(ctx, tenant, campaign.SegmentFilter)
	if err != nil {
		return nil, err
	}
	matched, err := s.segments.Collect(ctx, tenant, filter)
	if err != nil {
		return nil, err
	}
	resp.TotalContacts = len(matched)

	eligible := matched
	if campaign.Type == models.CampaignTypeAutomated {
		if since := scheduler.CooldownSince(campaign, s.now()); !since.IsZero() {
			attempted, err := s.messageRepo.ContactsAttemptedSince(ctx, campaign.ID, since)
			if err != nil {
				return nil, fmt.Errorf("failed to load cooldown history: %w", err)
			}
			eligible = make([]models.Contact, 0, len(matched))
			for _, c := range matched {
				if !attempted[c.ID] {
					eligible = append(eligible, c)
				}
			}
		}
	}
	resp.EligibleContacts = len(eligible)

	plan := planner.Build(campaign, eligible, s.rates)
	limit := defaultCampaignPreviewLimit
	if req != nil && req.Limit > 0 && req.Limit <= maxPreviewLimit {
		limit = req.Limit
	}
	if len(plan.Messages) < limit {
		limit = len(plan.Messages)
	}
	resp.Sample = plan.Messages[:limit]
	resp.EstimatedSegments = plan.Segments
	resp.EstimatedCost = plan.Cost
	resp.Warnings = plan.Warnings
	if plan.Unreachable > 0 {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("%d contacts have no address on the campaign channel", plan.Unreachable))
	}
	return resp, nil
}

// ListMessages returns a page of the campaign's message history
func (s *CampaignService) ListMessages(ctx context.Context, tenant models.Tenant, id string, filter repository.MessageListFilter, page utils.Page) ([]*models.CampaignMessage, int64, error) {
	if _, err := s.GetCampaign(ctx, tenant, id); err != nil {
		return nil, 0, err
	}
	return s.messageRepo.ListByCampaign(ctx, id, filter, page.Size, page.Offset())
}

// validateDraft checks whatever parts of the campaign are present
func (s *CampaignService) validateDraft(ctx context.Context, tenant models.Tenant, c *models.Campaign) error {
	if c.Name == "" {
		return apperrors.NewValidation(apperrors.CodeCampaignInvalidField, "name", "name is required")
	}
	if !c.Channel.Valid() {
		return apperrors.NewValidation(apperrors.CodeCampaignInvalidField, "channel", "unknown channel %q", c.Channel)
	}
	if c.Type != models.CampaignTypeOneTime && c.Type != models.CampaignTypeAutomated {
		return apperrors.NewValidation(apperrors.CodeCampaignInvalidField, "type", "unknown campaign type %q", c.Type)
	}
	if c.SMSCostPerSegment != nil && *c.SMSCostPerSegment < 0 {
		return apperrors.NewValidation(apperrors.CodeCampaignInvalidField, "sms_cost_per_segment", "cost cannot be negative")
	}
	if c.EmailCost != nil && *c.EmailCost < 0 {
		return apperrors.NewValidation(apperrors.CodeCampaignInvalidField, "email_cost", "cost cannot be negative")
	}

	for _, ch := range c.Channel.Targets() {
		if ch == models.ChannelSMS && c.MessageTemplate != "" {
			if err := template.Validate(c.MessageTemplate, models.ChannelSMS); err != nil {
				return err
			}
		}
	}

	reg, err := s.registries.LoadRegistry(ctx, tenant)
	if err != nil {
		return err
	}
	if err := checkTemplateVariables(c, reg); err != nil {
		return err
	}
	if !c.SegmentFilter.IsEmpty() {
		if _, err := s.segments.BuildFilter(ctx, tenant, c.SegmentFilter); err != nil {
			return err
		}
	}
	return lifecycle.ValidateSchedule(c, s.now(), false)
}

// validateLaunch runs every check required to leave draft or paused
func (s *CampaignService) validateLaunch(ctx context.Context, tenant models.Tenant, c *models.Campaign) error {
	if err := lifecycle.ValidateForLaunch(c, s.now()); err != nil {
		return err
	}
	if _, err := s.segments.BuildFilter(ctx, tenant, c.SegmentFilter); err != nil {
		return err
	}
	reg, err := s.registries.LoadRegistry(ctx, tenant)
	if err != nil {
		return err
	}
	return checkTemplateVariables(c, reg)
}

func checkTemplateVariables(c *models.Campaign, reg *schema.Registry) error {
	for _, tpl := range []string{c.MessageTemplate, c.EmailSubjectTemplate, c.EmailBodyTemplate} {
		if tpl == "" {
			continue
		}
		if err := template.CheckVariables(tpl, reg); err != nil {
			return err
		}
	}
	return nil
}

func applyUpdate(c *models.Campaign, req *models.UpdateCampaignRequest) {
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Channel != nil {
		c.Channel = *req.Channel
	}
	if req.MessageTemplate != nil {
		c.MessageTemplate = *req.MessageTemplate
	}
	if req.EmailSubjectTemplate != nil {
		c.EmailSubjectTemplate = *req.EmailSubjectTemplate
	}
	if req.EmailBodyTemplate != nil {
		c.EmailBodyTemplate = *req.EmailBodyTemplate
	}
	if req.SegmentFilter != nil {
		c.SegmentFilter = *req.SegmentFilter
	}
	if req.SMSSender != nil {
		c.SMSSender = *req.SMSSender
	}
	if req.EmailSender != nil {
		c.EmailSender = *req.EmailSender
	}
	if req.Timezone != nil {
		c.Timezone = *req.Timezone
	}
	if req.ScheduledAt != nil {
		c.ScheduledAt = utcPtr(req.ScheduledAt)
	}
	if req.CheckIntervalMinutes != nil {
		c.CheckIntervalMinutes = *req.CheckIntervalMinutes
	}
	if req.CooldownDays != nil {
		c.CooldownDays = *req.CooldownDays
	}
	if req.RunStartHour != nil {
		c.RunStartHour = req.RunStartHour
	}
	if req.RunEndHour != nil {
		c.RunEndHour = req.RunEndHour
	}
	if req.EndsAt != nil {
		c.EndsAt = utcPtr(req.EndsAt)
	}
	if req.IsTest != nil {
		c.IsTest = *req.IsTest
	}
	if req.SMSCostPerSegment != nil {
		c.SMSCostPerSegment = req.SMSCostPerSegment
	}
	if req.EmailCost != nil {
		c.EmailCost = req.EmailCost
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
