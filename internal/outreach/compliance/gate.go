// Package compliance implements the pre-flight gate that decides whether a
// specific outreach action toward a specific lead is currently permitted.
// The gate is evaluated immediately before every attempt, never cached from
// scheduling time: consent and do-not-contact state can change in between.
package compliance

import (
	"context"
	"time"

	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/internal/settings"

	"github.com/google/uuid"
)

// Violation codes surfaced in verdicts and activity entries.
const (
	ViolationDoNotContact   = "do_not_contact"
	ViolationHumanControl   = "human_controlled"
	ViolationNoCallConsent  = "no_call_consent"
	ViolationNoSMSConsent   = "no_sms_consent"
	ViolationNoEmailAddress = "no_email_address"
	ViolationChannelOff     = "channel_disabled"
	ViolationQuietHours     = "quiet_hours"
	ViolationFrequencyCap   = "frequency_cap_exceeded"
)

// Verdict is the ephemeral result of a gate evaluation. It is never
// persisted on its own but is always logged with the task outcome it gated.
type Verdict struct {
	Passed     bool
	Violations []string
	// LeadBlocked marks lead-level blocks (do-not-contact, human control):
	// the dispatcher must not fall back to another channel, because the
	// block applies to the lead globally rather than to one channel.
	LeadBlocked bool
}

// ContactCounter counts recent outbound dispatches for the frequency cap.
type ContactCounter interface {
	CountRecentOutbound(ctx context.Context, organizationID, leadID uuid.UUID, since time.Time) (int, error)
}

type Gate struct {
	counter ContactCounter
	now     func() time.Time
}

func NewGate(counter ContactCounter) *Gate {
	return &Gate{counter: counter, now: time.Now}
}

// WithClock overrides the gate's clock. Tests use this to pin quiet hours.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

type CheckParams struct {
	Lead      domain.Lead
	Action    domain.ActionType
	AgentType domain.AgentType
	Settings  settings.OutreachSettings
}

// Check evaluates whether the action is permitted right now. It is a pure
// evaluation apart from the frequency-cap count; nothing is mutated.
func (g *Gate) Check(ctx context.Context, p CheckParams) (Verdict, error) {
	// Operator notifications are internal and never gated.
	if p.Action == domain.ActionNotify {
		return Verdict{Passed: true}, nil
	}

	var verdict Verdict

	if p.Lead.DoNotContact {
		verdict.Violations = append(verdict.Violations, ViolationDoNotContact)
		verdict.LeadBlocked = true
	}
	if p.Lead.IsHumanControlled {
		verdict.Violations = append(verdict.Violations, ViolationHumanControl)
		verdict.LeadBlocked = true
	}
	if verdict.LeadBlocked {
		return verdict, nil
	}

	switch p.Action {
	case domain.ActionCall:
		if !p.Lead.CallConsent {
			verdict.Violations = append(verdict.Violations, ViolationNoCallConsent)
		}
		if !p.Settings.CallChannelEnabled {
			verdict.Violations = append(verdict.Violations, ViolationChannelOff)
		}
	case domain.ActionSMS:
		if !p.Lead.SMSConsent {
			verdict.Violations = append(verdict.Violations, ViolationNoSMSConsent)
		}
		if !p.Settings.SMSChannelEnabled {
			verdict.Violations = append(verdict.Violations, ViolationChannelOff)
		}
	case domain.ActionEmail:
		if p.Lead.Email == nil || *p.Lead.Email == "" {
			verdict.Violations = append(verdict.Violations, ViolationNoEmailAddress)
		}
		if !p.Settings.EmailChannelEnabled {
			verdict.Violations = append(verdict.Violations, ViolationChannelOff)
		}
	}

	// Quiet hours apply to channels that interrupt the lead.
	if p.Action == domain.ActionCall || p.Action == domain.ActionSMS {
		if inQuietHours(g.now(), p.Settings) {
			verdict.Violations = append(verdict.Violations, ViolationQuietHours)
		}
	}

	if p.Settings.DailyContactCap > 0 {
		count, err := g.counter.CountRecentOutbound(ctx, p.Lead.OrganizationID, p.Lead.ID, g.now().Add(-24*time.Hour))
		if err != nil {
			return Verdict{}, err
		}
		if count >= p.Settings.DailyContactCap {
			verdict.Violations = append(verdict.Violations, ViolationFrequencyCap)
		}
	}

	verdict.Passed = len(verdict.Violations) == 0
	return verdict, nil
}

// inQuietHours reports whether now falls inside the organization's quiet
// window, evaluated in its configured timezone. Start == End disables the
// window; windows may wrap past midnight.
func inQuietHours(now time.Time, s settings.OutreachSettings) bool {
	if s.QuietHoursStart == s.QuietHoursEnd {
		return false
	}

	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		loc = time.UTC
	}
	hour := now.In(loc).Hour()

	if s.QuietHoursStart < s.QuietHoursEnd {
		return hour >= s.QuietHoursStart && hour < s.QuietHoursEnd
	}
	return hour >= s.QuietHoursStart || hour < s.QuietHoursEnd
}
