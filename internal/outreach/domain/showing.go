package domain

import (
	"time"

	"github.com/google/uuid"
)

// ShowingStatus is the lifecycle state of a scheduled property visit.
type ShowingStatus string

const (
	ShowingScheduled   ShowingStatus = "scheduled"
	ShowingConfirmed   ShowingStatus = "confirmed"
	ShowingCompleted   ShowingStatus = "completed"
	ShowingNoShow      ShowingStatus = "no_show"
	ShowingCancelled   ShowingStatus = "cancelled"
	ShowingRescheduled ShowingStatus = "rescheduled"
)

var showingTransitions = map[ShowingStatus][]ShowingStatus{
	ShowingScheduled: {ShowingConfirmed, ShowingCompleted, ShowingNoShow, ShowingCancelled, ShowingRescheduled},
	ShowingConfirmed: {ShowingCompleted, ShowingNoShow, ShowingCancelled, ShowingRescheduled},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s ShowingStatus) CanTransitionTo(next ShowingStatus) bool {
	for _, allowed := range showingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further lifecycle changes are expected.
func (s ShowingStatus) IsTerminal() bool {
	return s == ShowingCompleted || s == ShowingCancelled || s == ShowingNoShow
}

// IsUpcoming reports whether the showing still counts as an active
// appointment for the lead (used by the no-show short-circuit).
func (s ShowingStatus) IsUpcoming() bool {
	return s == ShowingScheduled || s == ShowingConfirmed
}

// Showing is a scheduled property visit.
type Showing struct {
	ID                   uuid.UUID
	OrganizationID       uuid.UUID
	LeadID               uuid.UUID
	PropertyID           uuid.UUID
	ScheduledAt          time.Time
	DurationMinutes      int
	Status               ShowingStatus
	ConfirmationAttempts int
	CancellationReason   *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CanConfirm reports whether the showing may transition to confirmed. A
// showing whose scheduled time has passed can no longer be confirmed.
func (s Showing) CanConfirm(now time.Time) bool {
	if !s.Status.CanTransitionTo(ShowingConfirmed) {
		return false
	}
	return s.ScheduledAt.After(now)
}
