package script

import (
	"strings"
	"testing"

	"leaseline_backend/internal/outreach/domain"
)

func property(name string, rentCents int64, available bool) domain.Property {
	return domain.Property{Name: name, Bedrooms: 2, RentCents: rentCents, IsAvailable: available}
}

func TestSelectAlternativesPrefersCuratedList(t *testing.T) {
	curated := []domain.Property{property("Maple Court 2B", 145000, true)}
	byBedrooms := []domain.Property{property("Oak Ridge 5", 120000, true)}

	selected := SelectAlternatives(curated, byBedrooms)
	if len(selected) != 1 || selected[0].Name != "Maple Court 2B" {
		t.Fatalf("curated list must win, got %v", selected)
	}
}

func TestSelectAlternativesFallsBackAndCaps(t *testing.T) {
	byBedrooms := []domain.Property{
		property("A", 100000, true),
		property("B", 110000, true),
		property("C", 120000, true),
		property("D", 130000, true),
	}

	selected := SelectAlternatives(nil, byBedrooms)
	if len(selected) != MaxAlternatives {
		t.Fatalf("expected cap of %d, got %d", MaxAlternatives, len(selected))
	}
	if selected[0].Name != "A" {
		t.Fatalf("expected cheapest-first order preserved, got %s", selected[0].Name)
	}
}

func TestCallScriptIsDeterministic(t *testing.T) {
	p := property("Birch Flats 12", 135000, true)
	snapshot := Snapshot{
		Lead:             domain.Lead{FirstName: "Dana"},
		AgentType:        domain.AgentRecapture,
		Property:         &p,
		OrganizationName: "Lakeview Homes",
	}

	first := CallScript(snapshot)
	second := CallScript(snapshot)
	if first != second {
		t.Fatal("same snapshot must yield the same script")
	}
	if !strings.Contains(first, "Birch Flats 12") {
		t.Fatal("script should mention the property")
	}
	if !strings.Contains(first, "Lakeview Homes") {
		t.Fatal("script should mention the organization")
	}
}

func TestCallScriptSubstitutesAlternativesWhenUnavailable(t *testing.T) {
	p := property("Birch Flats 12", 135000, false)
	snapshot := Snapshot{
		Lead:         domain.Lead{FirstName: "Dana"},
		AgentType:    domain.AgentRecapture,
		Property:     &p,
		Alternatives: []domain.Property{property("Cedar Lane 3", 125000, true)},
	}

	out := CallScript(snapshot)
	if !strings.Contains(out, "no longer available") {
		t.Fatal("script should say the original unit is gone")
	}
	if !strings.Contains(out, "Cedar Lane 3") {
		t.Fatal("script should offer the alternative")
	}
}

func TestCallScriptAcknowledgesDroppedCall(t *testing.T) {
	snapshot := Snapshot{
		Lead:             domain.Lead{FirstName: "Dana"},
		AgentType:        domain.AgentRecapture,
		PriorCallDropped: true,
	}

	if !strings.Contains(CallScript(snapshot), "dropped") {
		t.Fatal("script should acknowledge the dropped call")
	}
}

func TestSMSBodyPerAgentType(t *testing.T) {
	lead := domain.Lead{FirstName: "Sam"}

	confirm := SMSBody(Snapshot{Lead: lead, AgentType: domain.AgentShowingConfirmation})
	if !strings.Contains(confirm, "confirm") {
		t.Fatalf("confirmation sms should ask to confirm: %q", confirm)
	}

	noShow := SMSBody(Snapshot{Lead: lead, AgentType: domain.AgentNoShowFollowup})
	if !strings.Contains(noShow, "missed") {
		t.Fatalf("no-show sms should mention the miss: %q", noShow)
	}

	welcome := SMSBody(Snapshot{Lead: lead, AgentType: domain.AgentWelcomeSequence})
	if !strings.Contains(welcome, "Sam") {
		t.Fatalf("welcome sms should greet by name: %q", welcome)
	}
}

func TestEmailContentForApplication(t *testing.T) {
	p := property("Birch Flats 12", 135000, true)
	subject, html := EmailContent(Snapshot{
		Lead:      domain.Lead{FirstName: "Sam"},
		AgentType: domain.AgentSendApplication,
		Property:  &p,
	})

	if !strings.Contains(subject, "application") {
		t.Fatalf("subject should mention the application: %q", subject)
	}
	if !strings.Contains(html, "Birch Flats 12") {
		t.Fatal("body should name the property")
	}
}
