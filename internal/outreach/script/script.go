// Package script builds the call scripts and message bodies used by the
// channel executors. Content selection is a pure function over an immutable
// snapshot: the same snapshot always yields the same script, so the policy
// is testable without live provider calls.
package script

import (
	"fmt"
	"strings"

	"leaseline_backend/internal/outreach/domain"
)

// Snapshot captures everything content selection may depend on. The caller
// assembles it once per invocation; nothing here is fetched lazily.
type Snapshot struct {
	Lead      domain.Lead
	AgentType domain.AgentType
	// Property is the unit the lead originally asked about, when known.
	Property *domain.Property
	// Alternatives are offered when Property is no longer available:
	// the property's curated list first, else available units with the
	// same bedroom count, cheapest first, capped at three.
	Alternatives []domain.Property
	Showing      *domain.Showing
	// PriorCallDropped notes that the last call ended mid-conversation,
	// so the script opens by acknowledging it.
	PriorCallDropped bool
	OrganizationName string
}

// MaxAlternatives caps how many substitute properties a script offers.
const MaxAlternatives = 3

// SelectAlternatives applies the substitution policy: prefer the explicit
// curated list (already resolved to available properties by the caller),
// else the by-bedrooms query results, capped at MaxAlternatives.
func SelectAlternatives(curated, byBedrooms []domain.Property) []domain.Property {
	source := curated
	if len(source) == 0 {
		source = byBedrooms
	}
	if len(source) > MaxAlternatives {
		source = source[:MaxAlternatives]
	}
	return source
}

// CallScript returns the conversational prompt handed to the voice-AI
// provider.
func CallScript(s Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a leasing assistant for %s calling %s.\n", orgName(s), s.Lead.FullName())

	if s.PriorCallDropped {
		b.WriteString("The previous call dropped mid-conversation; apologize briefly and pick up where it left off.\n")
	}

	switch s.AgentType {
	case domain.AgentShowingConfirmation:
		fmt.Fprintf(&b, "Goal: confirm their showing%s. Ask them to confirm, offer to reschedule if the time no longer works.\n", showingClause(s))
	case domain.AgentNoShowFollowup:
		b.WriteString("Goal: they missed their recent showing. Be understanding, no guilt, and offer to rebook at a convenient time.\n")
	case domain.AgentOutboundCallback:
		b.WriteString("Goal: they asked for a callback. Answer their questions and move toward booking a showing.\n")
	default:
		b.WriteString("Goal: re-engage their interest and book a property showing.\n")
	}

	b.WriteString(propertyClause(s))
	b.WriteString("Keep the call under three minutes. If they ask to stop being contacted, acknowledge and end the call politely.")
	return b.String()
}

// SMSBody returns the text message for the agent type.
func SMSBody(s Snapshot) string {
	name := s.Lead.FirstName
	if name == "" {
		name = "there"
	}

	switch s.AgentType {
	case domain.AgentShowingConfirmation:
		return fmt.Sprintf("Hi %s! Just confirming your showing%s with %s. Reply YES to confirm or call us to reschedule.",
			name, showingClause(s), orgName(s))
	case domain.AgentNoShowFollowup:
		return fmt.Sprintf("Hi %s, sorry we missed you at your showing! Want to pick a new time? %s would love to have you out.",
			name, orgName(s))
	case domain.AgentWelcomeSequence:
		return fmt.Sprintf("Hi %s, thanks for your interest in %s! We'd love to show you around — reply here or give us a call to set up a tour.",
			name, interestName(s))
	default:
		body := fmt.Sprintf("Hi %s, it's %s. Still looking for a place?", name, orgName(s))
		if alt := alternativesSentence(s); alt != "" {
			body += " " + alt
		}
		return body
	}
}

// EmailContent returns the subject and HTML body for email actions.
func EmailContent(s Snapshot) (subject, html string) {
	name := s.Lead.FirstName
	if name == "" {
		name = "there"
	}

	switch s.AgentType {
	case domain.AgentSendApplication:
		subject = fmt.Sprintf("Your rental application for %s", interestName(s))
		html = fmt.Sprintf(
			"<p>Hi %s,</p><p>Here is the rental application you requested for %s. Complete it online and we'll take it from there.</p><p>— %s</p>",
			name, interestName(s), orgName(s))
	default:
		subject = fmt.Sprintf("Welcome to %s", orgName(s))
		html = fmt.Sprintf(
			"<p>Hi %s,</p><p>Thanks for reaching out about %s. We'd love to schedule a tour whenever you're ready.</p><p>— %s</p>",
			name, interestName(s), orgName(s))
	}
	return subject, html
}

func orgName(s Snapshot) string {
	if s.OrganizationName != "" {
		return s.OrganizationName
	}
	return "the leasing office"
}

// interestName names what the lead asked about, substituting alternatives
// when the original unit is gone.
func interestName(s Snapshot) string {
	if s.Property != nil && s.Property.IsAvailable {
		return s.Property.Name
	}
	if len(s.Alternatives) > 0 {
		return s.Alternatives[0].Name
	}
	if s.Property != nil {
		return s.Property.Name
	}
	return "our available homes"
}

func showingClause(s Snapshot) string {
	if s.Showing == nil {
		return ""
	}
	when := s.Showing.ScheduledAt.Format("Monday, Jan 2 at 3:04 PM")
	if s.Property != nil {
		return fmt.Sprintf(" at %s on %s", s.Property.Name, when)
	}
	return " on " + when
}

// propertyClause describes the unit being discussed, switching to
// alternatives when it is no longer available.
func propertyClause(s Snapshot) string {
	if s.Property == nil {
		return ""
	}

	if s.Property.IsAvailable {
		return fmt.Sprintf("They originally asked about %s (%d bedroom, $%d/mo), which is still available.\n",
			s.Property.Name, s.Property.Bedrooms, s.Property.RentCents/100)
	}

	clause := fmt.Sprintf("The unit they asked about, %s, is no longer available.", s.Property.Name)
	if alt := alternativesSentence(s); alt != "" {
		clause += " " + alt
	}
	return clause + "\n"
}

func alternativesSentence(s Snapshot) string {
	if len(s.Alternatives) == 0 {
		return ""
	}

	names := make([]string, 0, len(s.Alternatives))
	for _, p := range s.Alternatives {
		names = append(names, fmt.Sprintf("%s ($%d/mo)", p.Name, p.RentCents/100))
	}
	return "Similar options: " + strings.Join(names, ", ") + "."
}
