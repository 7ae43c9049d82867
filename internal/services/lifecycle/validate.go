package lifecycle

import (
	"time"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/template"
)

// ValidateContent checks the templates required by the campaign's channel.
func ValidateContent(c *models.Campaign) error {
	if !c.Channel.Valid() {
		return apperrors.NewValidation(apperrors.CodeCampaignInvalidField, "channel", "unknown channel %q", c.Channel)
	}
	for _, ch := range c.Channel.Targets() {
		switch ch {
		case models.ChannelSMS:
			if err := template.Validate(c.MessageTemplate, models.ChannelSMS); err != nil {
				return err
			}
		case models.ChannelEmail:
			if err := template.Validate(c.EmailSubjectTemplate, models.ChannelEmail); err != nil {
				return apperrors.NewValidation(apperrors.CodeTemplateEmpty, "email_subject_template", "email subject must not be empty")
			}
			if err := template.Validate(EmailBody(c), models.ChannelEmail); err != nil {
				return err
			}
		}
	}
	return nil
}

// EmailBody returns the email body template, falling back to the shared
// message template.
func EmailBody(c *models.Campaign) string {
	if c.EmailBodyTemplate != "" {
		return c.EmailBodyTemplate
	}
	return c.MessageTemplate
}

// ValidateSchedule checks the scheduling fields for the campaign type.
// ends_at is only required to lie in the future when the campaign is being
// launched.
func ValidateSchedule(c *models.Campaign, now time.Time, launching bool) error {
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return apperrors.NewScheduling(apperrors.CodeScheduleInvalidTimezone, "timezone", "unknown timezone %q", c.Timezone)
		}
	}

	switch c.Type {
	case models.CampaignTypeOneTime:
		return nil
	case models.CampaignTypeAutomated:
	default:
		return apperrors.NewValidation(apperrors.CodeCampaignInvalidField, "type", "unknown campaign type %q", c.Type)
	}

	if c.CheckIntervalMinutes <= 0 {
		return apperrors.NewScheduling(apperrors.CodeScheduleInvalidInterval, "check_interval_minutes",
			"automated campaigns require a positive interval")
	}
	if c.CooldownDays < 0 {
		return apperrors.NewScheduling(apperrors.CodeScheduleInvalidCooldown, "cooldown_days", "cooldown cannot be negative")
	}
	if (c.RunStartHour == nil) != (c.RunEndHour == nil) {
		return apperrors.NewScheduling(apperrors.CodeScheduleInvalidWindow, "run_start_hour",
			"run_start_hour and run_end_hour must be set together")
	}
	if c.RunStartHour != nil {
		if !validHour(*c.RunStartHour) || !validHour(*c.RunEndHour) {
			return apperrors.NewScheduling(apperrors.CodeScheduleInvalidWindow, "run_start_hour", "hours must be between 0 and 23")
		}
	}
	if launching && c.EndsAt != nil && !c.EndsAt.After(now) {
		return apperrors.NewScheduling(apperrors.CodeScheduleEndsInPast, "ends_at", "ends_at is in the past")
	}
	return nil
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}

// ValidateForLaunch runs every check a campaign must pass before it may leave
// draft or paused.
func ValidateForLaunch(c *models.Campaign, now time.Time) error {
	if c.SegmentFilter.IsEmpty() {
		return apperrors.NewValidation(apperrors.CodeSegmentEmpty, "segment_filter", "segment must have at least one condition")
	}
	if err := ValidateContent(c); err != nil {
		return err
	}
	return ValidateSchedule(c, now, true)
}
