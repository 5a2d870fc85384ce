package webhook

import (
	"context"
	"testing"

	"leaseline_backend/internal/activity"
	"leaseline_backend/internal/outreach/dispatcher"
	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/internal/outreach/repository"
	"leaseline_backend/internal/settings"
	"leaseline_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	resolved     []string
	leadStatuses []domain.LeadStatus
	doNotContact bool
	cancelled    []domain.AgentType
	enqueued     []repository.EnqueueTaskParams
}

func (s *fakeStore) ResolveByProviderRef(_ context.Context, _ uuid.UUID, providerRef, status string) (repository.Communication, error) {
	s.resolved = append(s.resolved, providerRef+":"+status)
	return repository.Communication{ID: uuid.New()}, nil
}

func (s *fakeStore) UpdateLeadStatus(_ context.Context, _, _ uuid.UUID, status domain.LeadStatus) error {
	s.leadStatuses = append(s.leadStatuses, status)
	return nil
}

func (s *fakeStore) SetDoNotContact(context.Context, uuid.UUID, uuid.UUID) error {
	s.doNotContact = true
	return nil
}

func (s *fakeStore) CancelPendingTasks(_ context.Context, _, _ uuid.UUID, agentType domain.AgentType) (int64, error) {
	s.cancelled = append(s.cancelled, agentType)
	return 1, nil
}

func (s *fakeStore) EnqueueTask(_ context.Context, p repository.EnqueueTaskParams) (domain.Task, error) {
	s.enqueued = append(s.enqueued, p)
	return domain.Task{ID: uuid.New()}, nil
}

type fakeSettings struct{}

func (fakeSettings) Get(context.Context, uuid.UUID) (settings.OutreachSettings, error) {
	return settings.Defaults(), nil
}

type fakeActivity struct {
	entries []activity.InsertParams
}

func (f *fakeActivity) Insert(_ context.Context, p activity.InsertParams) error {
	f.entries = append(f.entries, p)
	return nil
}

func newService(store *fakeStore, log *fakeActivity) *Service {
	return NewService(store, fakeSettings{}, log, nil, logger.New("development"))
}

func resultFor(status, outcome string) CallResult {
	return CallResult{
		CallID:  "call-123",
		Status:  status,
		Outcome: outcome,
		Metadata: map[string]string{
			"organization_id": uuid.NewString(),
			"lead_id":         uuid.NewString(),
			"task_id":         uuid.NewString(),
			"agent_type":      "recapture",
		},
	}
}

func TestProcessCallResultCompleted(t *testing.T) {
	store := &fakeStore{}
	log := &fakeActivity{}
	svc := newService(store, log)

	if err := svc.ProcessCallResult(context.Background(), resultFor(CallStatusCompleted, OutcomeNone)); err != nil {
		t.Fatalf("ProcessCallResult: %v", err)
	}

	if len(store.resolved) != 1 || store.resolved[0] != "call-123:completed" {
		t.Fatalf("unexpected resolution %v", store.resolved)
	}
	if len(store.leadStatuses) != 1 || store.leadStatuses[0] != domain.LeadEngaged {
		t.Fatalf("expected lead engaged, got %v", store.leadStatuses)
	}
	if len(log.entries) != 1 {
		t.Fatalf("expected one activity entry, got %d", len(log.entries))
	}
}

func TestProcessCallResultShowingBooked(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, &fakeActivity{})

	if err := svc.ProcessCallResult(context.Background(), resultFor(CallStatusCompleted, OutcomeShowingBooked)); err != nil {
		t.Fatalf("ProcessCallResult: %v", err)
	}

	if store.leadStatuses[len(store.leadStatuses)-1] != domain.LeadShowingScheduled {
		t.Fatalf("expected showing_scheduled, got %v", store.leadStatuses)
	}
	if len(store.cancelled) != 2 {
		t.Fatalf("expected recapture and no-show chains cancelled, got %v", store.cancelled)
	}
}

func TestProcessCallResultDroppedEnqueuesFollowup(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, &fakeActivity{})

	if err := svc.ProcessCallResult(context.Background(), resultFor(CallStatusDropped, OutcomeNone)); err != nil {
		t.Fatalf("ProcessCallResult: %v", err)
	}

	if len(store.enqueued) != 1 {
		t.Fatalf("expected one follow-up task, got %d", len(store.enqueued))
	}
	next := store.enqueued[0]
	if next.AgentType != domain.AgentOutboundCallback {
		t.Fatalf("agent type = %s, want outbound_callback", next.AgentType)
	}
	if next.Context.PriorOutcome != dispatcher.PriorOutcomeCallDropped {
		t.Fatalf("prior outcome = %q, want call_dropped", next.Context.PriorOutcome)
	}
	if next.Context.CallID == nil || *next.Context.CallID != "call-123" {
		t.Fatal("follow-up must carry the dropped call id")
	}
}

func TestProcessCallResultStopContact(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, &fakeActivity{})

	if err := svc.ProcessCallResult(context.Background(), resultFor(CallStatusCompleted, OutcomeStopContact)); err != nil {
		t.Fatalf("ProcessCallResult: %v", err)
	}
	if !store.doNotContact {
		t.Fatal("stop_contact outcome must flag the lead do-not-contact")
	}
}

func TestProcessCallResultRejectsBadMetadata(t *testing.T) {
	svc := newService(&fakeStore{}, &fakeActivity{})

	result := resultFor(CallStatusCompleted, OutcomeNone)
	result.Metadata = map[string]string{}
	if err := svc.ProcessCallResult(context.Background(), result); err == nil {
		t.Fatal("expected validation error for missing metadata")
	}
}
