// Package transport defines the request/response shapes for the outreach
// HTTP API.
package transport

import (
	"time"

	"leaseline_backend/internal/outreach/domain"

	"github.com/google/uuid"
)

// EnqueueTaskRequest is the single entry point booking flows, inbound-call
// handlers and lead-creation flows use to schedule outreach.
type EnqueueTaskRequest struct {
	AgentType    string      `json:"agentType" validate:"required"`
	LeadID       string      `json:"leadId" validate:"required,uuid"`
	ScheduledFor *time.Time  `json:"scheduledFor"`
	Context      TaskContext `json:"context"`
}

type TaskContext struct {
	ShowingID  *string `json:"showingId" validate:"omitempty,uuid"`
	PropertyID *string `json:"propertyId" validate:"omitempty,uuid"`
	Source     string  `json:"source"`
}

type TaskResponse struct {
	ID            uuid.UUID  `json:"id"`
	LeadID        uuid.UUID  `json:"leadId"`
	AgentType     string     `json:"agentType"`
	ActionType    string     `json:"actionType"`
	ScheduledFor  time.Time  `json:"scheduledFor"`
	AttemptNumber int        `json:"attemptNumber"`
	MaxAttempts   int        `json:"maxAttempts"`
	Status        string     `json:"status"`
	ExecutedAt    *time.Time `json:"executedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func NewTaskResponse(task domain.Task) TaskResponse {
	return TaskResponse{
		ID:            task.ID,
		LeadID:        task.LeadID,
		AgentType:     string(task.AgentType),
		ActionType:    string(task.ActionType),
		ScheduledFor:  task.ScheduledFor,
		AttemptNumber: task.AttemptNumber,
		MaxAttempts:   task.MaxAttempts,
		Status:        string(task.Status),
		ExecutedAt:    task.ExecutedAt,
		CompletedAt:   task.CompletedAt,
		CreatedAt:     task.CreatedAt,
	}
}

func NewTaskResponses(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, NewTaskResponse(task))
	}
	return out
}
