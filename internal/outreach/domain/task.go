// Package domain provides core business rules for the outreach bounded context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AgentType is the behavioral category of an automated outreach task.
type AgentType string

const (
	AgentRecapture           AgentType = "recapture"
	AgentShowingConfirmation AgentType = "showing_confirmation"
	AgentNoShowFollowup      AgentType = "no_show_followup"
	AgentWelcomeSequence     AgentType = "welcome_sequence"
	AgentOutboundCallback    AgentType = "outbound_callback"
	AgentSendApplication     AgentType = "send_application"
	AgentNotify              AgentType = "notify"
)

var knownAgentTypes = map[AgentType]struct{}{
	AgentRecapture:           {},
	AgentShowingConfirmation: {},
	AgentNoShowFollowup:      {},
	AgentWelcomeSequence:     {},
	AgentOutboundCallback:    {},
	AgentSendApplication:     {},
	AgentNotify:              {},
}

// IsKnownAgentType reports whether the value names a registered behavior.
func IsKnownAgentType(agentType AgentType) bool {
	_, ok := knownAgentTypes[agentType]
	return ok
}

// ActionType is the communication action a task performs.
type ActionType string

const (
	ActionCall   ActionType = "call"
	ActionSMS    ActionType = "sms"
	ActionEmail  ActionType = "email"
	ActionNotify ActionType = "notify"
	// ActionNone is the sentinel for "no fallback channel".
	ActionNone ActionType = ""
)

// TaskStatus is the lifecycle state of an outreach task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// taskTransitions enumerates the legal monotonic transitions. A terminal
// task is never re-executed; a retry is a new task row.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskInProgress, TaskCancelled},
	TaskInProgress: {TaskCompleted, TaskFailed, TaskCancelled},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the task's lifecycle.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// TaskContext carries references and prior outcomes a task needs at
// execution time. It is stored as JSONB alongside the task.
type TaskContext struct {
	ShowingID    *uuid.UUID `json:"showingId,omitempty"`
	PropertyID   *uuid.UUID `json:"propertyId,omitempty"`
	CallID       *string    `json:"callId,omitempty"`
	Source       string     `json:"source,omitempty"`
	PriorOutcome string     `json:"priorOutcome,omitempty"`
	NoShowAt     *time.Time `json:"noShowAt,omitempty"`
}

// Task is a unit of scheduled outreach.
type Task struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	AgentType      AgentType
	ActionType     ActionType
	ScheduledFor   time.Time
	AttemptNumber  int
	MaxAttempts    int
	Status         TaskStatus
	Context        TaskContext
	ExecutedAt     *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
}

// AttemptsRemain reports whether a follow-up attempt may still be scheduled.
func (t Task) AttemptsRemain() bool {
	return t.AttemptNumber < t.MaxAttempts
}
