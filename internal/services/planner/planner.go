// Package planner projects a campaign onto a set of contacts: for every
// contact and target channel it renders the final content and prices it.
// Both the preview path and the scheduler use it, so what a preview shows
// is exactly what a run would hand to the dispatcher.
package planner

import (
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/lifecycle"
	"github.com/finportal/marketing-console-backend/internal/services/template"
)

// Rates are the default prices used when a campaign does not override them.
type Rates struct {
	SMSPerSegment   float64
	EmailPerMessage float64
}

// For applies the campaign's overrides on top of r.
func (r Rates) For(c *models.Campaign) Rates {
	out := r
	if c.SMSCostPerSegment != nil {
		out.SMSPerSegment = *c.SMSCostPerSegment
	}
	if c.EmailCost != nil {
		out.EmailPerMessage = *c.EmailCost
	}
	return out
}

// Plan is the projection of a run.
type Plan struct {
	Messages []models.PlannedContact
	// contacts skipped for lacking an address on every target channel
	Unreachable int
	Segments    int
	Cost        float64
	Warnings    []string
}

// Build renders c for every contact. Contacts without an address on a target
// channel are skipped for that channel.
func Build(c *models.Campaign, contacts []models.Contact, rates Rates) *Plan {
	rates = rates.For(c)
	plan := &Plan{Messages: make([]models.PlannedContact, 0, len(contacts))}
	warned := map[string]bool{}

	for i := range contacts {
		contact := &contacts[i]
		reachable := false
		for _, ch := range c.Channel.Targets() {
			recipient := contact.Recipient(ch)
			if recipient == "" {
				continue
			}
			reachable = true
			pc := PlanOne(c, contact, ch, rates)
			pc.Recipient = recipient
			for _, w := range pc.Warnings {
				if !warned[w] {
					warned[w] = true
					plan.Warnings = append(plan.Warnings, w)
				}
			}
			plan.Segments += pc.Segments
			plan.Cost += pc.Cost
			plan.Messages = append(plan.Messages, pc)
		}
		if !reachable {
			plan.Unreachable++
		}
	}
	return plan
}

// PlanOne renders c for a single contact on one channel. The recipient is
// left for the caller to fill in.
func PlanOne(c *models.Campaign, contact *models.Contact, ch models.Channel, rates Rates) models.PlannedContact {
	pc := models.PlannedContact{Channel: ch}
	if contact != nil {
		pc.ContactID = contact.ID
	}

	switch ch {
	case models.ChannelSMS:
		res := template.Render(c.MessageTemplate, contact)
		info := template.ComputeSegments(res.Text)
		pc.RenderedContent = res.Text
		pc.Segments = info.Segments
		pc.Encoding = string(info.Encoding)
		pc.Cost = template.ComputeCost(info.Segments, rates.SMSPerSegment)
		pc.Warnings = res.Warnings()
	case models.ChannelEmail:
		subject := template.Render(c.EmailSubjectTemplate, contact)
		body := template.Render(lifecycle.EmailBody(c), contact)
		pc.Subject = subject.Text
		pc.RenderedContent = body.Text
		pc.Cost = rates.EmailPerMessage
		pc.Warnings = append(subject.Warnings(), body.Warnings()...)
	}
	return pc
}
