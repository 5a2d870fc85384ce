package domain

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the lead's position in the sales funnel. The funnel order is
// a guideline, not an enforced chain: any status may move directly to
// converted or lost.
type LeadStatus string

const (
	LeadNew              LeadStatus = "new"
	LeadContacted        LeadStatus = "contacted"
	LeadEngaged          LeadStatus = "engaged"
	LeadNurturing        LeadStatus = "nurturing"
	LeadQualified        LeadStatus = "qualified"
	LeadShowingScheduled LeadStatus = "showing_scheduled"
	LeadShowed           LeadStatus = "showed"
	LeadInApplication    LeadStatus = "in_application"
	LeadConverted        LeadStatus = "converted"
	LeadLost             LeadStatus = "lost"
)

var knownLeadStatuses = map[LeadStatus]struct{}{
	LeadNew:              {},
	LeadContacted:        {},
	LeadEngaged:          {},
	LeadNurturing:        {},
	LeadQualified:        {},
	LeadShowingScheduled: {},
	LeadShowed:           {},
	LeadInApplication:    {},
	LeadConverted:        {},
	LeadLost:             {},
}

// IsKnownLeadStatus reports whether the value is a recognized funnel status.
func IsKnownLeadStatus(status LeadStatus) bool {
	_, ok := knownLeadStatuses[status]
	return ok
}

// IsTerminal reports whether the lead has left the funnel.
func (s LeadStatus) IsTerminal() bool {
	return s == LeadConverted || s == LeadLost
}

// Lead is a prospective tenant.
type Lead struct {
	ID                uuid.UUID
	OrganizationID    uuid.UUID
	FirstName         string
	LastName          string
	Phone             string
	Email             *string
	SMSConsent        bool
	SMSConsentAt      *time.Time
	CallConsent       bool
	CallConsentAt     *time.Time
	DoNotContact      bool
	Status            LeadStatus
	IsHumanControlled bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FullName returns the lead's display name, falling back to "there" so
// generated scripts stay grammatical for nameless leads.
func (l Lead) FullName() string {
	name := l.FirstName
	if l.LastName != "" {
		if name != "" {
			name += " "
		}
		name += l.LastName
	}
	if name == "" {
		return "there"
	}
	return name
}
