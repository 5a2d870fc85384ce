package compliance

import (
	"context"
	"testing"
	"time"

	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/internal/settings"

	"github.com/google/uuid"
)

type fakeCounter struct {
	count int
}

func (f *fakeCounter) CountRecentOutbound(_ context.Context, _, _ uuid.UUID, _ time.Time) (int, error) {
	return f.count, nil
}

// middayClock pins evaluation to 12:00 UTC so the default quiet window
// never interferes.
func middayClock() time.Time {
	return time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC) // 12:00 in America/Chicago
}

func testSettings() settings.OutreachSettings {
	return settings.Defaults()
}

func consentedLead() domain.Lead {
	email := "lead@example.com"
	return domain.Lead{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Phone:          "+15555550123",
		Email:          &email,
		SMSConsent:     true,
		CallConsent:    true,
	}
}

func TestCheckPassesForConsentedLead(t *testing.T) {
	gate := NewGate(&fakeCounter{}).WithClock(middayClock)

	for _, action := range []domain.ActionType{domain.ActionCall, domain.ActionSMS, domain.ActionEmail} {
		verdict, err := gate.Check(context.Background(), CheckParams{
			Lead:     consentedLead(),
			Action:   action,
			Settings: testSettings(),
		})
		if err != nil {
			t.Fatalf("check %s: %v", action, err)
		}
		if !verdict.Passed {
			t.Fatalf("expected %s to pass, got violations %v", action, verdict.Violations)
		}
	}
}

func TestDoNotContactBlocksLeadGlobally(t *testing.T) {
	gate := NewGate(&fakeCounter{}).WithClock(middayClock)
	lead := consentedLead()
	lead.DoNotContact = true

	verdict, err := gate.Check(context.Background(), CheckParams{
		Lead:     lead,
		Action:   domain.ActionCall,
		Settings: testSettings(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if verdict.Passed {
		t.Fatal("do_not_contact lead must not pass")
	}
	if !verdict.LeadBlocked {
		t.Fatal("do_not_contact is a lead-level block that forbids fallback")
	}
}

func TestHumanControlledBlocksLeadGlobally(t *testing.T) {
	gate := NewGate(&fakeCounter{}).WithClock(middayClock)
	lead := consentedLead()
	lead.IsHumanControlled = true

	verdict, err := gate.Check(context.Background(), CheckParams{
		Lead:     lead,
		Action:   domain.ActionSMS,
		Settings: testSettings(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.LeadBlocked {
		t.Fatal("human-controlled lead must be globally blocked")
	}
}

func TestMissingSMSConsentIsChannelLevelOnly(t *testing.T) {
	gate := NewGate(&fakeCounter{}).WithClock(middayClock)
	lead := consentedLead()
	lead.SMSConsent = false

	verdict, err := gate.Check(context.Background(), CheckParams{
		Lead:     lead,
		Action:   domain.ActionSMS,
		Settings: testSettings(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if verdict.Passed {
		t.Fatal("missing sms consent must block sms")
	}
	if verdict.LeadBlocked {
		t.Fatal("missing sms consent must not block the lead globally")
	}

	// The call channel is still allowed.
	verdict, err = gate.Check(context.Background(), CheckParams{
		Lead:     lead,
		Action:   domain.ActionCall,
		Settings: testSettings(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.Passed {
		t.Fatalf("call should still pass, got %v", verdict.Violations)
	}
}

func TestQuietHoursBlockCallAndSMSButNotEmail(t *testing.T) {
	nightClock := func() time.Time {
		return time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC) // 23:00 in America/Chicago
	}
	gate := NewGate(&fakeCounter{}).WithClock(nightClock)

	verdict, _ := gate.Check(context.Background(), CheckParams{
		Lead: consentedLead(), Action: domain.ActionCall, Settings: testSettings(),
	})
	if verdict.Passed {
		t.Fatal("call during quiet hours must be blocked")
	}

	verdict, _ = gate.Check(context.Background(), CheckParams{
		Lead: consentedLead(), Action: domain.ActionEmail, Settings: testSettings(),
	})
	if !verdict.Passed {
		t.Fatalf("email is not subject to quiet hours, got %v", verdict.Violations)
	}
}

func TestFrequencyCap(t *testing.T) {
	gate := NewGate(&fakeCounter{count: 3}).WithClock(middayClock)

	verdict, err := gate.Check(context.Background(), CheckParams{
		Lead:     consentedLead(),
		Action:   domain.ActionSMS,
		Settings: testSettings(), // cap defaults to 3
	})
	if err != nil {
		t.Fatal(err)
	}
	if verdict.Passed {
		t.Fatal("lead at the daily cap must be blocked")
	}
	if verdict.LeadBlocked {
		t.Fatal("frequency cap is not a lead-level block")
	}
}

func TestNotifyActionSkipsGating(t *testing.T) {
	gate := NewGate(&fakeCounter{count: 100}).WithClock(middayClock)
	lead := consentedLead()
	lead.DoNotContact = true

	verdict, err := gate.Check(context.Background(), CheckParams{
		Lead:     lead,
		Action:   domain.ActionNotify,
		Settings: testSettings(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.Passed {
		t.Fatal("operator notifications are internal and never gated")
	}
}
