package handler

import (
	"testing"

	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/platform/apperr"
)

func contactableLead() domain.Lead {
	return domain.Lead{Phone: "+13125550147"}
}

func behaviorFor(t *testing.T, agentType domain.AgentType) domain.Behavior {
	t.Helper()
	b, ok := domain.BehaviorFor(agentType)
	if !ok {
		t.Fatalf("no behavior for %s", agentType)
	}
	return b
}

func TestAdmitLeadAllowsContactable(t *testing.T) {
	if err := admitLead(behaviorFor(t, domain.AgentRecapture), contactableLead()); err != nil {
		t.Fatalf("admitLead: %v", err)
	}
}

func TestAdmitLeadRejectsOptedOut(t *testing.T) {
	lead := contactableLead()
	lead.DoNotContact = true

	err := admitLead(behaviorFor(t, domain.AgentRecapture), lead)
	if !apperr.Is(err, apperr.KindComplianceBlocked) {
		t.Fatalf("err = %v, want compliance blocked", err)
	}
}

func TestAdmitLeadRejectsHumanControlled(t *testing.T) {
	lead := contactableLead()
	lead.IsHumanControlled = true

	err := admitLead(behaviorFor(t, domain.AgentShowingConfirmation), lead)
	if !apperr.Is(err, apperr.KindComplianceBlocked) {
		t.Fatalf("err = %v, want compliance blocked", err)
	}
}

func TestAdmitLeadRejectsUndialablePhone(t *testing.T) {
	lead := contactableLead()
	lead.Phone = "not-a-number"

	err := admitLead(behaviorFor(t, domain.AgentRecapture), lead)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestAdmitLeadSkipsNotifyTasks(t *testing.T) {
	lead := contactableLead()
	lead.DoNotContact = true
	lead.Phone = ""

	if err := admitLead(behaviorFor(t, domain.AgentNotify), lead); err != nil {
		t.Fatalf("notify tasks must bypass admission: %v", err)
	}
}
