// Package dispatch sends rendered campaign messages through channel adapters
// and records one CampaignMessage row per attempt.
package dispatch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// MessageStore persists message attempts.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.CampaignMessage) error
	UpdateMessage(ctx context.Context, msg *models.CampaignMessage) error
	MarkSuperseded(ctx context.Context, messageID string) error
	// failed, not superseded, non-test attempts oldest first
	ListRetryCandidates(ctx context.Context, campaignID string) ([]*models.CampaignMessage, error)
	// keys (see AttemptKey) of every sent or delivered attempt
	SuccessfulKeys(ctx context.Context, campaignID string) (map[string]bool, error)
}

// CampaignStore is the slice of campaign persistence the dispatcher needs.
type CampaignStore interface {
	GetStatus(ctx context.Context, campaignID string) (models.CampaignStatus, error)
	AddCounters(ctx context.Context, campaignID string, channel models.Channel, delta models.CounterDelta) error
}

// ProgressNotifier receives progress updates during a run.
type ProgressNotifier interface {
	BroadcastProgress(p *models.CampaignProgress)
}

// Config tunes the worker pool.
type Config struct {
	Workers     int
	SendTimeout time.Duration
}

// RunOptions controls how a batch is recorded.
type RunOptions struct {
	Source models.MessageSource
	// statuses in which the campaign may keep enqueuing; checked before each
	// message. Empty disables the check.
	ContinueWhile []models.CampaignStatus
	// whether attempts update the campaign counters
	CountTowardsTotals bool
	// force the sandbox regardless of the campaign
	ForceTest bool
	// the run's planned messages were already counted into the targets
	TargetsCounted bool
}

// Result is the outcome of a single send.
type Result struct {
	Status            models.MessageStatus
	ProviderMessageID string
	Err               error
}

// Dispatcher sends messages through a bounded worker pool.
type Dispatcher struct {
	adapters  map[models.Channel]Adapter
	sandbox   Adapter
	messages  MessageStore
	campaigns CampaignStore
	progress  ProgressNotifier
	workers   int
	timeout   time.Duration
	tracer    trace.Tracer
	now       func() time.Time
}

// NewDispatcher creates a dispatcher. Test sends go to a SandboxAdapter
// unless another sandbox is set.
func NewDispatcher(cfg Config, messages MessageStore, campaigns CampaignStore, progress ProgressNotifier) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		adapters:  make(map[models.Channel]Adapter),
		sandbox:   NewSandboxAdapter(),
		messages:  messages,
		campaigns: campaigns,
		progress:  progress,
		workers:   cfg.Workers,
		timeout:   cfg.SendTimeout,
		tracer:    otel.Tracer("marketing-console/dispatch"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RegisterAdapter sets the live adapter for a channel.
func (d *Dispatcher) RegisterAdapter(channel models.Channel, adapter Adapter) {
	d.adapters[channel] = adapter
}

// SetSandbox replaces the sandbox adapter.
func (d *Dispatcher) SetSandbox(adapter Adapter) {
	d.sandbox = adapter
}

// Send delivers one message. Test requests always go to the sandbox. The
// call never outlives the configured timeout; a timeout is a failure.
func (d *Dispatcher) Send(ctx context.Context, req Request) Result {
	adapter := d.sandbox
	if !req.IsTest {
		var ok bool
		adapter, ok = d.adapters[req.Channel]
		if !ok {
			return Result{
				Status: models.MessageStatusFailed,
				Err:    apperrors.NewProvider(apperrors.CodeProviderUnavailable, string(req.Channel), errors.New("no adapter registered")),
			}
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		id  string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		id, err := adapter.Send(sendCtx, req)
		done <- outcome{id: id, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			code := apperrors.CodeProviderRejected
			if errors.Is(out.err, context.DeadlineExceeded) {
				code = apperrors.CodeProviderTimeout
			}
			return Result{Status: models.MessageStatusFailed, Err: apperrors.NewProvider(code, string(req.Channel), out.err)}
		}
		return Result{Status: models.MessageStatusSent, ProviderMessageID: out.id}
	case <-sendCtx.Done():
		code := apperrors.CodeProviderTimeout
		if !errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			code = apperrors.CodeProviderUnavailable
		}
		return Result{Status: models.MessageStatusFailed, Err: apperrors.NewProvider(code, string(req.Channel), sendCtx.Err())}
	}
}

type job struct {
	msg        *models.CampaignMessage
	supersedes string
}

// Dispatch sends the planned messages of one run of c.
func (d *Dispatcher) Dispatch(ctx context.Context, c *models.Campaign, planned []models.PlannedContact, opts RunOptions) (*models.DispatchSummary, error) {
	if opts.Source == "" {
		opts.Source = models.MessageSourceRun
	}
	isTest := c.IsTest || opts.ForceTest || opts.Source == models.MessageSourceTest

	jobs := make([]job, 0, len(planned))
	for _, pc := range planned {
		jobs = append(jobs, job{msg: &models.CampaignMessage{
			ProjectID:       c.ProjectID,
			CampaignID:      c.ID,
			ContactID:       pc.ContactID,
			Channel:         pc.Channel,
			Recipient:       pc.Recipient,
			Subject:         pc.Subject,
			RenderedContent: pc.RenderedContent,
			Segments:        pc.Segments,
			Encoding:        pc.Encoding,
			Cost:            pc.Cost,
			Status:          models.MessageStatusPending,
			Source:          opts.Source,
			IsTest:          isTest,
			Attempt:         1,
		}})
	}

	if opts.CountTowardsTotals && !opts.TargetsCounted {
		if err := d.addTargets(ctx, c.ID, jobs); err != nil {
			return nil, err
		}
	}
	return d.run(ctx, c, jobs, opts)
}

// RetryFailed re-attempts the latest failed message of every (contact,
// channel) that has never been sent successfully. Each retry creates a new
// row and marks the failed one superseded, so repeated calls never resend a
// message that has succeeded. For automated campaigns, failures older than
// the cooldown are left to the regular runs.
func (d *Dispatcher) RetryFailed(ctx context.Context, c *models.Campaign, opts RunOptions) (*models.DispatchSummary, error) {
	candidates, err := d.messages.ListRetryCandidates(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	successes, err := d.messages.SuccessfulKeys(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]*models.CampaignMessage, len(candidates))
	for _, m := range candidates {
		key := AttemptKey(m)
		if successes[key] {
			continue
		}
		if prev, ok := latest[key]; !ok || m.CreatedAt.After(prev.CreatedAt) || (m.CreatedAt.Equal(prev.CreatedAt) && m.Attempt > prev.Attempt) {
			latest[key] = m
		}
	}

	var cutoff time.Time
	if c.Type == models.CampaignTypeAutomated && c.CooldownDays > 0 {
		cutoff = d.now().AddDate(0, 0, -c.CooldownDays)
	}

	keys := make([]string, 0, len(latest))
	for key := range latest {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	isTest := c.IsTest || opts.ForceTest
	jobs := make([]job, 0, len(keys))
	for _, key := range keys {
		old := latest[key]
		if !cutoff.IsZero() && old.CreatedAt.Before(cutoff) {
			continue
		}
		jobs = append(jobs, job{
			supersedes: old.ID,
			msg: &models.CampaignMessage{
				ProjectID:       old.ProjectID,
				CampaignID:      old.CampaignID,
				ContactID:       old.ContactID,
				Channel:         old.Channel,
				Recipient:       old.Recipient,
				Subject:         old.Subject,
				RenderedContent: old.RenderedContent,
				Segments:        old.Segments,
				Encoding:        old.Encoding,
				Cost:            old.Cost,
				Status:          models.MessageStatusPending,
				Source:          models.MessageSourceRetry,
				IsTest:          isTest || old.IsTest,
				Attempt:         old.Attempt + 1,
			},
		})
	}

	opts.Source = models.MessageSourceRetry
	return d.run(ctx, c, jobs, opts)
}

// AttemptKey identifies the logical message an attempt belongs to.
func AttemptKey(m *models.CampaignMessage) string {
	who := m.ContactID
	if who == "" {
		who = m.Recipient
	}
	return who + "|" + string(m.Channel)
}

func (d *Dispatcher) addTargets(ctx context.Context, campaignID string, jobs []job) error {
	perChannel := map[models.Channel]int{}
	for _, j := range jobs {
		perChannel[j.msg.Channel]++
	}
	for ch, n := range perChannel {
		if err := d.campaigns.AddCounters(ctx, campaignID, ch, models.CounterDelta{Target: n}); err != nil {
			return err
		}
	}
	return nil
}

// tally aggregates per-run results across workers.
type tally struct {
	mu      sync.Mutex
	summary models.DispatchSummary
}

func (t *tally) record(sent bool, cost float64) models.DispatchSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Attempted++
	if sent {
		t.summary.Sent++
		t.summary.Cost += cost
	} else {
		t.summary.Failed++
	}
	return t.summary
}

func (d *Dispatcher) run(ctx context.Context, c *models.Campaign, jobs []job, opts RunOptions) (*models.DispatchSummary, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.run", trace.WithAttributes(
		attribute.String("campaign.id", c.ID),
		attribute.String("message.source", string(opts.Source)),
		attribute.Int("messages.planned", len(jobs)),
	))
	defer span.End()

	t := &tally{summary: models.DispatchSummary{CampaignID: c.ID, Planned: len(jobs)}}

	g := new(errgroup.Group)
	g.SetLimit(d.workers)

	var stopErr error
	stopped := false
	enqueued := 0
	for _, j := range jobs {
		if ctx.Err() != nil {
			stopped = true
			break
		}
		if len(opts.ContinueWhile) > 0 {
			status, err := d.campaigns.GetStatus(ctx, c.ID)
			if err != nil {
				stopErr = err
				stopped = true
				break
			}
			if !statusIn(status, opts.ContinueWhile) {
				logrus.WithFields(logrus.Fields{
					"campaign_id": c.ID,
					"status":      status,
				}).Info("Campaign left runnable state, stopping dispatch")
				stopped = true
				break
			}
		}

		enqueued++
		g.Go(func() error {
			d.deliver(ctx, c, j, opts, t)
			return nil
		})
	}
	_ = g.Wait()

	summary := t.summary
	summary.Stopped = stopped
	summary.Skipped = len(jobs) - enqueued
	span.SetAttributes(
		attribute.Int("messages.sent", summary.Sent),
		attribute.Int("messages.failed", summary.Failed),
	)

	d.notify(c, summary, true)
	logrus.WithFields(logrus.Fields{
		"campaign_id": c.ID,
		"source":      opts.Source,
		"planned":     summary.Planned,
		"sent":        summary.Sent,
		"failed":      summary.Failed,
		"skipped":     summary.Skipped,
	}).Info("Dispatch run finished")

	return &summary, stopErr
}

// deliver records and sends one attempt. In-flight sends are detached from
// ctx cancellation so that stopping a run never abandons a message mid-send.
func (d *Dispatcher) deliver(ctx context.Context, c *models.Campaign, j job, opts RunOptions, t *tally) {
	sendCtx := context.WithoutCancel(ctx)
	msg := j.msg

	if err := d.messages.CreateMessage(sendCtx, msg); err != nil {
		logrus.WithError(err).WithField("campaign_id", c.ID).Error("Failed to record message attempt")
		sentry.CaptureException(err)
		d.notify(c, t.record(false, 0), false)
		return
	}
	if j.supersedes != "" {
		if err := d.messages.MarkSuperseded(sendCtx, j.supersedes); err != nil {
			logrus.WithError(err).WithField("message_id", j.supersedes).Warn("Failed to mark message superseded")
		}
	}

	res := d.Send(sendCtx, Request{
		MessageID: msg.ID,
		ProjectID: msg.ProjectID,
		Channel:   msg.Channel,
		Recipient: msg.Recipient,
		Sender:    senderFor(c, msg.Channel),
		Subject:   msg.Subject,
		Content:   msg.RenderedContent,
		IsTest:    msg.IsTest,
	})

	now := d.now()
	msg.Status = res.Status
	msg.ProviderMessageID = res.ProviderMessageID
	delta := models.CounterDelta{}
	if res.Status == models.MessageStatusSent {
		msg.SentAt = &now
		msg.LastError = ""
		if msg.IsTest {
			msg.Cost = 0
		}
		delta.Sent = 1
		delta.Cost = msg.Cost
	} else {
		msg.Cost = 0
		if res.Err != nil {
			msg.LastError = res.Err.Error()
		}
		delta.Failed = 1
		d.reportFailure(c, msg, res.Err)
	}

	if err := d.messages.UpdateMessage(sendCtx, msg); err != nil {
		logrus.WithError(err).WithField("message_id", msg.ID).Error("Failed to record message outcome")
		sentry.CaptureException(err)
	}
	if opts.CountTowardsTotals {
		if err := d.campaigns.AddCounters(sendCtx, c.ID, msg.Channel, delta); err != nil {
			logrus.WithError(err).WithField("campaign_id", c.ID).Error("Failed to update campaign counters")
		}
	}

	d.notify(c, t.record(res.Status == models.MessageStatusSent, msg.Cost), false)
}

func (d *Dispatcher) reportFailure(c *models.Campaign, msg *models.CampaignMessage, err error) {
	if err == nil {
		return
	}
	logrus.WithFields(logrus.Fields{
		"campaign_id": c.ID,
		"message_id":  msg.ID,
		"channel":     msg.Channel,
		"code":        apperrors.CodeOf(err),
	}).Warnf("Message send failed: %v", err)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("campaign_id", c.ID)
		scope.SetTag("channel", string(msg.Channel))
		scope.SetTag("error_code", string(apperrors.CodeOf(err)))
		sentry.CaptureException(err)
	})
}

func (d *Dispatcher) notify(c *models.Campaign, s models.DispatchSummary, done bool) {
	if d.progress == nil {
		return
	}
	d.progress.BroadcastProgress(&models.CampaignProgress{
		CampaignID: c.ID,
		Status:     c.Status,
		Total:      s.Planned,
		Processed:  s.Attempted,
		Sent:       s.Sent,
		Failed:     s.Failed,
		Done:       done,
	})
}

func senderFor(c *models.Campaign, ch models.Channel) string {
	if ch == models.ChannelEmail {
		return c.EmailSender
	}
	return c.SMSSender
}

func statusIn(s models.CampaignStatus, set []models.CampaignStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
