// Package webhook receives the voice provider's asynchronous call results
// and folds them back into communication, lead and task state. It sits
// outside the synchronous dispatch path.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leaseline_backend/internal/activity"
	"leaseline_backend/internal/outreach/cadence"
	"leaseline_backend/internal/outreach/dispatcher"
	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/internal/outreach/repository"
	"leaseline_backend/internal/settings"
	"leaseline_backend/platform/apperr"
	"leaseline_backend/platform/logger"

	"github.com/google/uuid"
)

// Call statuses reported by the voice provider.
const (
	CallStatusCompleted = "completed"
	CallStatusNoAnswer  = "no_answer"
	CallStatusDropped   = "dropped"
	CallStatusFailed    = "failed"
)

// Outcome dispositions extracted from the conversation.
const (
	OutcomeShowingBooked     = "showing_booked"
	OutcomeCallbackRequested = "callback_requested"
	OutcomeStopContact       = "stop_contact"
	OutcomeNotInterested     = "not_interested"
	OutcomeNone              = "no_outcome"
)

const callbackDelay = 15 * time.Minute

// CallResult is the provider's report for one finished call.
type CallResult struct {
	CallID   string            `json:"callId" validate:"required"`
	Status   string            `json:"status" validate:"required"`
	Outcome  string            `json:"outcome"`
	Summary  string            `json:"summary"`
	Metadata map[string]string `json:"metadata"`
}

// Store is the persistence surface the intake needs, satisfied by
// *repository.Repository.
type Store interface {
	ResolveByProviderRef(ctx context.Context, organizationID uuid.UUID, providerRef, status string) (repository.Communication, error)
	UpdateLeadStatus(ctx context.Context, id, organizationID uuid.UUID, status domain.LeadStatus) error
	SetDoNotContact(ctx context.Context, id, organizationID uuid.UUID) error
	CancelPendingTasks(ctx context.Context, organizationID, leadID uuid.UUID, agentType domain.AgentType) (int64, error)
	EnqueueTask(ctx context.Context, p repository.EnqueueTaskParams) (domain.Task, error)
}

type SettingsStore interface {
	Get(ctx context.Context, organizationID uuid.UUID) (settings.OutreachSettings, error)
}

type ActivityLog interface {
	Insert(ctx context.Context, p activity.InsertParams) error
}

type Service struct {
	repo      Store
	settings  SettingsStore
	activity  ActivityLog
	scheduler dispatcher.TaskScheduler
	log       *logger.Logger
}

func NewService(repo Store, settingsStore SettingsStore, activityLog ActivityLog, scheduler dispatcher.TaskScheduler, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		settings:  settingsStore,
		activity:  activityLog,
		scheduler: scheduler,
		log:       log,
	}
}

// ProcessCallResult correlates a provider result with its communication and
// lead through the metadata stamped on dispatch, then applies the outcome.
func (s *Service) ProcessCallResult(ctx context.Context, result CallResult) error {
	organizationID, err := uuid.Parse(result.Metadata["organization_id"])
	if err != nil {
		return apperr.Validation("missing or invalid organization_id metadata")
	}
	leadID, err := uuid.Parse(result.Metadata["lead_id"])
	if err != nil {
		return apperr.Validation("missing or invalid lead_id metadata")
	}

	if _, err := s.repo.ResolveByProviderRef(ctx, organizationID, result.CallID, commStatus(result.Status)); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		// An unknown call id is logged but not rejected; the provider may
		// retry results for calls dispatched before a redeploy.
		s.log.Warn("call result for unknown communication", "call_id", result.CallID)
	}

	if err := s.applyOutcome(ctx, organizationID, leadID, result); err != nil {
		return err
	}

	s.logResult(ctx, organizationID, leadID, result)
	return nil
}

func (s *Service) applyOutcome(ctx context.Context, organizationID, leadID uuid.UUID, result CallResult) error {
	if result.Status == CallStatusCompleted {
		if err := s.repo.UpdateLeadStatus(ctx, leadID, organizationID, domain.LeadEngaged); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}

	switch result.Outcome {
	case OutcomeShowingBooked:
		if err := s.repo.UpdateLeadStatus(ctx, leadID, organizationID, domain.LeadShowingScheduled); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		// The chains this outcome satisfies self-cancel on their next goal
		// check anyway; cancelling now keeps the queue clean.
		for _, agentType := range []domain.AgentType{domain.AgentRecapture, domain.AgentNoShowFollowup} {
			if _, err := s.repo.CancelPendingTasks(ctx, organizationID, leadID, agentType); err != nil {
				s.log.DatabaseError("cancel superseded tasks", err)
			}
		}

	case OutcomeStopContact:
		if err := s.repo.SetDoNotContact(ctx, leadID, organizationID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

	case OutcomeCallbackRequested:
		return s.enqueueCallback(ctx, organizationID, leadID, result)
	}

	if result.Status == CallStatusDropped {
		return s.enqueueDroppedFollowup(ctx, organizationID, leadID, result)
	}
	return nil
}

// enqueueDroppedFollowup schedules a quick callback that opens by
// acknowledging the interrupted conversation.
func (s *Service) enqueueDroppedFollowup(ctx context.Context, organizationID, leadID uuid.UUID, result CallResult) error {
	callID := result.CallID
	return s.enqueueVoiceTask(ctx, organizationID, leadID, domain.TaskContext{
		CallID:       &callID,
		Source:       "call_result_webhook",
		PriorOutcome: dispatcher.PriorOutcomeCallDropped,
	})
}

func (s *Service) enqueueCallback(ctx context.Context, organizationID, leadID uuid.UUID, result CallResult) error {
	callID := result.CallID
	return s.enqueueVoiceTask(ctx, organizationID, leadID, domain.TaskContext{
		CallID: &callID,
		Source: "call_result_webhook",
	})
}

func (s *Service) enqueueVoiceTask(ctx context.Context, organizationID, leadID uuid.UUID, taskCtx domain.TaskContext) error {
	orgSettings, err := s.settings.Get(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	task, err := s.repo.EnqueueTask(ctx, repository.EnqueueTaskParams{
		OrganizationID: organizationID,
		LeadID:         leadID,
		AgentType:      domain.AgentOutboundCallback,
		ActionType:     domain.ActionCall,
		ScheduledFor:   time.Now().Add(callbackDelay),
		AttemptNumber:  1,
		MaxAttempts:    cadence.MaxAttempts(domain.AgentOutboundCallback, orgSettings),
		Context:        taskCtx,
	})
	if err != nil {
		return err
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleTask(ctx, task); err != nil {
			s.log.Error("schedule callback task failed", "task_id", task.ID.String(), "error", err.Error())
		}
	}
	return nil
}

func (s *Service) logResult(ctx context.Context, organizationID, leadID uuid.UUID, result CallResult) {
	entry := activity.InsertParams{
		OrganizationID: organizationID,
		AgentType:      result.Metadata["agent_type"],
		Action:         "call_result",
		Status:         activity.StatusSuccess,
		Message:        "voice provider reported " + result.Status,
		Details: map[string]string{
			"callId":  result.CallID,
			"status":  result.Status,
			"outcome": result.Outcome,
			"summary": result.Summary,
		},
		LeadID: &leadID,
	}
	if taskID, err := uuid.Parse(result.Metadata["task_id"]); err == nil {
		entry.TaskID = &taskID
	}
	if err := s.activity.Insert(ctx, entry); err != nil {
		s.log.DatabaseError("insert call result activity", err)
	}
}

func commStatus(callStatus string) string {
	if callStatus == CallStatusCompleted {
		return repository.CommStatusCompleted
	}
	return repository.CommStatusFailed
}
