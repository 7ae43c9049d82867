// Package scheduler polls campaigns on a single shared ticker and hands due
// runs to the dispatcher.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/dispatch"
	"github.com/finportal/marketing-console-backend/internal/services/planner"
	"github.com/finportal/marketing-console-backend/internal/services/schema"
	"github.com/finportal/marketing-console-backend/internal/services/segment"
	"github.com/finportal/marketing-console-backend/internal/utils"
)

// CampaignStore is the campaign persistence the scheduler needs.
type CampaignStore interface {
	ListSchedulable(ctx context.Context) ([]*models.Campaign, error)
	FindByID(ctx context.Context, id string) (*models.Campaign, error)
	TransitionStatus(ctx context.Context, campaignID string, from, to models.CampaignStatus, extra map[string]interface{}) (bool, error)
	MarkRun(ctx context.Context, campaignID string, lastRun, nextRun time.Time) error
}

// ContactSource pages through a project's contacts ordered by id.
type ContactSource interface {
	PageAfter(ctx context.Context, projectID, afterID string, limit int) ([]models.Contact, error)
}

// AttributeSource loads a project's attribute schema.
type AttributeSource interface {
	ListByProject(ctx context.Context, projectID string) ([]models.AttributeSchema, error)
}

// AttemptHistory answers which contacts a campaign already attempted.
type AttemptHistory interface {
	ContactsAttemptedSince(ctx context.Context, campaignID string, since time.Time) (map[string]bool, error)
}

// Dispatcher sends a planned run.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *models.Campaign, planned []models.PlannedContact, opts dispatch.RunOptions) (*models.DispatchSummary, error)
}

// Config tunes the poller.
type Config struct {
	Interval        time.Duration
	PageSize        int
	DefaultTimezone string
	Rates           planner.Rates
}

// Scheduler evaluates schedulable campaigns on every tick.
type Scheduler struct {
	campaigns  CampaignStore
	contacts   ContactSource
	attributes AttributeSource
	history    AttemptHistory
	dispatcher Dispatcher
	locks      *utils.KeyedLock
	interval   time.Duration
	pageSize   int
	defaultLoc *time.Location
	rates      planner.Rates
	tracer     trace.Tracer
	now        func() time.Time

	stopChan chan bool
	running  sync.WaitGroup
}

func NewScheduler(cfg Config, campaigns CampaignStore, contacts ContactSource, attributes AttributeSource, history AttemptHistory, dispatcher Dispatcher, locks *utils.KeyedLock) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil || cfg.DefaultTimezone == "" {
		loc = time.UTC
	}
	if locks == nil {
		locks = utils.NewKeyedLock()
	}
	return &Scheduler{
		campaigns:  campaigns,
		contacts:   contacts,
		attributes: attributes,
		history:    history,
		dispatcher: dispatcher,
		locks:      locks,
		interval:   cfg.Interval,
		pageSize:   cfg.PageSize,
		defaultLoc: loc,
		rates:      cfg.Rates,
		tracer:     otel.Tracer("marketing-console/scheduler"),
		now:        func() time.Time { return time.Now().UTC() },
		stopChan:   make(chan bool),
	}
}

// SetClock replaces the time source
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// SetInterval sets the poll interval; it applies on the next Start
func (s *Scheduler) SetInterval(interval time.Duration) {
	s.interval = interval
}

// Start starts the polling loop
func (s *Scheduler) Start() {
	go s.loop()
	logrus.WithField("interval", s.interval).Info("Campaign scheduler started")
}

// Stop stops the polling loop and waits for triggered runs to finish
func (s *Scheduler) Stop() {
	s.stopChan <- true
	s.running.Wait()
	logrus.Info("Campaign scheduler stopped")
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.safeTick()
	for {
		select {
		case <-ticker.C:
			s.safeTick()
		case <-s.stopChan:
			return
		}
	}
}

// safeTick runs one tick and keeps the loop alive on any failure
func (s *Scheduler) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("scheduler tick panic: %v", r)
			logrus.Error(err)
			utils.CaptureError(err, map[string]string{"component": "scheduler"})
		}
	}()
	if err := s.Tick(context.Background()); err != nil {
		logrus.WithError(err).Error("Scheduler tick failed")
		utils.CaptureError(err, map[string]string{"component": "scheduler"})
	}
}

// Tick evaluates every schedulable campaign once. Per-campaign failures are
// logged and reported; only a failure to list campaigns is returned.
func (s *Scheduler) Tick(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "scheduler.tick")
	defer span.End()

	campaigns, err := s.campaigns.ListSchedulable(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("list schedulable campaigns: %w", err)
	}
	span.SetAttributes(attribute.Int("campaigns.candidates", len(campaigns)))

	now := s.now()
	for _, c := range campaigns {
		if err := s.Process(ctx, c, now); err != nil {
			logrus.WithError(err).WithField("campaign_id", c.ID).Error("Failed to process campaign")
			utils.CaptureError(err, map[string]string{"component": "scheduler", "campaign_id": c.ID})
		}
	}
	return nil
}

// Trigger processes c in the background right away, as a tick would
func (s *Scheduler) Trigger(c *models.Campaign) {
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		if err := s.Process(context.Background(), c, s.now()); err != nil {
			logrus.WithError(err).WithField("campaign_id", c.ID).Error("Triggered campaign run failed")
			utils.CaptureError(err, map[string]string{"component": "scheduler", "campaign_id": c.ID})
		}
	}()
}

// Process applies one scheduling decision to the campaign identified by
// listed. A campaign whose previous run is still in flight is skipped. The
// decision is taken on the stored row read under the lock, never on the
// listed copy, which may predate a run that finished since.
func (s *Scheduler) Process(ctx context.Context, listed *models.Campaign, now time.Time) error {
	if !s.locks.TryLock(listed.ID) {
		logrus.WithField("campaign_id", listed.ID).Debug("Campaign run in flight, skipping")
		return nil
	}
	defer s.locks.Unlock(listed.ID)

	c, err := s.campaigns.FindByID(ctx, listed.ID)
	if err != nil {
		return fmt.Errorf("reload campaign: %w", err)
	}
	if c == nil {
		return nil
	}

	switch Decide(c, now, s.location(c)) {
	case Finish:
		_, err := s.campaigns.TransitionStatus(ctx, c.ID, c.Status, models.CampaignStatusCompleted,
			map[string]interface{}{"completed_at": now})
		if err == nil {
			logrus.WithField("campaign_id", c.ID).Info("Automated campaign reached its end date")
		}
		return err
	case Run:
		if c.Type == models.CampaignTypeOneTime {
			return s.runOneTime(ctx, c, now)
		}
		return s.runAutomated(ctx, c, now)
	}
	return nil
}

func (s *Scheduler) location(c *models.Campaign) *time.Location {
	if c.Timezone != "" {
		if loc, err := time.LoadLocation(c.Timezone); err == nil {
			return loc
		}
	}
	return s.defaultLoc
}

func (s *Scheduler) runOneTime(ctx context.Context, c *models.Campaign, now time.Time) error {
	ctx, span := s.tracer.Start(ctx, "scheduler.run_one_time", trace.WithAttributes(attribute.String("campaign.id", c.ID)))
	defer span.End()

	if c.Status == models.CampaignStatusScheduled {
		changed, err := s.campaigns.TransitionStatus(ctx, c.ID, models.CampaignStatusScheduled, models.CampaignStatusSending,
			map[string]interface{}{"started_at": now})
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		c.Status = models.CampaignStatusSending
		c.StartedAt = &now
	}

	// a resumed run skips contacts the interrupted one already attempted
	exclude, err := s.history.ContactsAttemptedSince(ctx, c.ID, time.Time{})
	if err != nil {
		return s.fail(ctx, c, now, err)
	}

	plan, err := s.plan(ctx, c, exclude)
	if err != nil {
		return s.fail(ctx, c, now, err)
	}

	summary, err := s.dispatcher.Dispatch(ctx, c, plan.Messages, dispatch.RunOptions{
		Source:             models.MessageSourceRun,
		ContinueWhile:      []models.CampaignStatus{models.CampaignStatusSending},
		CountTowardsTotals: true,
	})
	if err != nil {
		return s.fail(ctx, c, now, err)
	}
	if summary.Stopped {
		return nil
	}

	_, err = s.campaigns.TransitionStatus(ctx, c.ID, models.CampaignStatusSending, models.CampaignStatusCompleted,
		map[string]interface{}{"completed_at": now})
	return err
}

func (s *Scheduler) fail(ctx context.Context, c *models.Campaign, now time.Time, cause error) error {
	if _, err := s.campaigns.TransitionStatus(ctx, c.ID, models.CampaignStatusSending, models.CampaignStatusFailed,
		map[string]interface{}{"completed_at": now}); err != nil {
		logrus.WithError(err).WithField("campaign_id", c.ID).Error("Failed to mark campaign failed")
	}
	return fmt.Errorf("campaign %s failed: %w", c.ID, cause)
}

func (s *Scheduler) runAutomated(ctx context.Context, c *models.Campaign, now time.Time) error {
	ctx, span := s.tracer.Start(ctx, "scheduler.run_automated", trace.WithAttributes(attribute.String("campaign.id", c.ID)))
	defer span.End()

	var exclude map[string]bool
	if since := CooldownSince(c, now); !since.IsZero() {
		var err error
		exclude, err = s.history.ContactsAttemptedSince(ctx, c.ID, since)
		if err != nil {
			return err
		}
	}

	plan, err := s.plan(ctx, c, exclude)
	if err != nil {
		return err
	}

	next := now.Add(time.Duration(c.CheckIntervalMinutes) * time.Minute)
	if err := s.campaigns.MarkRun(ctx, c.ID, now, next); err != nil {
		return err
	}
	c.LastRunAt = &now
	c.NextRunAt = &next

	span.SetAttributes(attribute.Int("messages.planned", len(plan.Messages)))
	if len(plan.Messages) == 0 {
		return nil
	}
	_, err = s.dispatcher.Dispatch(ctx, c, plan.Messages, dispatch.RunOptions{
		Source:             models.MessageSourceRun,
		ContinueWhile:      []models.CampaignStatus{models.CampaignStatusActive},
		CountTowardsTotals: true,
	})
	return err
}

// plan evaluates the segment and renders every eligible contact
func (s *Scheduler) plan(ctx context.Context, c *models.Campaign, exclude map[string]bool) (*planner.Plan, error) {
	attrs, err := s.attributes.ListByProject(ctx, c.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load attribute schema: %w", err)
	}
	filter, err := segment.BuildFilter(c.SegmentFilter, schema.NewRegistry(attrs))
	if err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context, afterID string, limit int) ([]models.Contact, error) {
		return s.contacts.PageAfter(ctx, c.ProjectID, afterID, limit)
	}
	matched, err := segment.Collect(ctx, filter, fetch, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("evaluate segment: %w", err)
	}

	eligible := matched[:0]
	for _, contact := range matched {
		if !exclude[contact.ID] {
			eligible = append(eligible, contact)
		}
	}

	return planner.Build(c, eligible, s.rates), nil
}
