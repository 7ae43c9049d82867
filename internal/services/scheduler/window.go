package scheduler

import (
	"time"

	"github.com/finportal/marketing-console-backend/internal/models"
)

// InWindow reports whether t, converted to loc, falls inside the daily
// window [start, end). Windows may wrap past midnight (22 to 6). A missing
// bound or start == end means the window is always open.
func InWindow(start, end *int, t time.Time, loc *time.Location) bool {
	if start == nil || end == nil || *start == *end {
		return true
	}
	if loc == nil {
		loc = time.UTC
	}
	h := t.In(loc).Hour()
	if *start < *end {
		return h >= *start && h < *end
	}
	return h >= *start || h < *end
}

// Decision is what a tick should do with a campaign.
type Decision int

const (
	Skip Decision = iota
	Run
	Finish
)

func (d Decision) String() string {
	switch d {
	case Run:
		return "run"
	case Finish:
		return "finish"
	}
	return "skip"
}

// Decide evaluates c against now. loc is the campaign's timezone.
func Decide(c *models.Campaign, now time.Time, loc *time.Location) Decision {
	switch c.Status {
	case models.CampaignStatusScheduled:
		if c.Type != models.CampaignTypeOneTime {
			return Skip
		}
		if c.ScheduledAt == nil || !now.Before(*c.ScheduledAt) {
			return Run
		}
		return Skip

	case models.CampaignStatusSending:
		if c.Type == models.CampaignTypeOneTime {
			return Run
		}
		return Skip

	case models.CampaignStatusPaused:
		// a paused campaign can never be resumed past its end date
		if c.Type == models.CampaignTypeAutomated && c.EndsAt != nil && !now.Before(*c.EndsAt) {
			return Finish
		}
		return Skip

	case models.CampaignStatusActive:
		if c.Type != models.CampaignTypeAutomated {
			return Skip
		}
		if c.EndsAt != nil && !now.Before(*c.EndsAt) {
			return Finish
		}
		if !InWindow(c.RunStartHour, c.RunEndHour, now, loc) {
			return Skip
		}
		if c.NextRunAt != nil && now.Before(*c.NextRunAt) {
			return Skip
		}
		return Run
	}
	return Skip
}

// CooldownSince is the earliest attempt time that still suppresses a
// contact. The zero time means no cooldown applies.
func CooldownSince(c *models.Campaign, now time.Time) time.Time {
	if c.CooldownDays <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -c.CooldownDays)
}
