package dispatcher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"leaseline_backend/internal/activity"
	"leaseline_backend/internal/channels/voice"
	"leaseline_backend/internal/notification"
	"leaseline_backend/internal/outreach/compliance"
	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/internal/outreach/repository"
	"leaseline_backend/internal/settings"
	"leaseline_backend/platform/logger"

	"github.com/google/uuid"
)

// midday in the default timezone, outside quiet hours.
var testNow = time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)

type fakeStore struct {
	task    domain.Task
	claimed bool
	lead    domain.Lead
	showing *domain.Showing

	upcomingShowing bool
	anyShowing      bool

	finishedStatus domain.TaskStatus
	enqueued       []repository.EnqueueTaskParams
	comms          []repository.InsertCommunicationParams
	cancelledID    *uuid.UUID
	cancelReason   string
	confirmBumps   int
}

func (s *fakeStore) ClaimTask(_ context.Context, id uuid.UUID, now time.Time) (domain.Task, error) {
	if s.claimed || s.task.ID != id {
		return domain.Task{}, repository.ErrAlreadyClaimed
	}
	s.claimed = true
	s.task.Status = domain.TaskInProgress
	s.task.ExecutedAt = &now
	return s.task, nil
}

func (s *fakeStore) FinishTask(_ context.Context, _ uuid.UUID, status domain.TaskStatus) error {
	s.finishedStatus = status
	return nil
}

func (s *fakeStore) EnqueueTask(_ context.Context, p repository.EnqueueTaskParams) (domain.Task, error) {
	s.enqueued = append(s.enqueued, p)
	return domain.Task{
		ID:             uuid.New(),
		OrganizationID: p.OrganizationID,
		LeadID:         p.LeadID,
		AgentType:      p.AgentType,
		ScheduledFor:   p.ScheduledFor,
		AttemptNumber:  p.AttemptNumber,
		MaxAttempts:    p.MaxAttempts,
		Status:         domain.TaskPending,
	}, nil
}

func (s *fakeStore) GetLead(_ context.Context, id, _ uuid.UUID) (domain.Lead, error) {
	if s.lead.ID != id {
		return domain.Lead{}, repository.ErrNotFound
	}
	return s.lead, nil
}

func (s *fakeStore) GetShowing(_ context.Context, id, _ uuid.UUID) (domain.Showing, error) {
	if s.showing == nil || s.showing.ID != id {
		return domain.Showing{}, repository.ErrNotFound
	}
	return *s.showing, nil
}

func (s *fakeStore) IncrementConfirmationAttempts(_ context.Context, _, _ uuid.UUID) (int, error) {
	s.confirmBumps++
	return s.confirmBumps, nil
}

func (s *fakeStore) CancelShowing(_ context.Context, id, _ uuid.UUID, reason string) error {
	s.cancelledID = &id
	s.cancelReason = reason
	return nil
}

func (s *fakeStore) HasUpcomingShowing(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return s.upcomingShowing, nil
}

func (s *fakeStore) HasAnyShowing(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return s.anyShowing, nil
}

func (s *fakeStore) GetProperty(context.Context, uuid.UUID, uuid.UUID) (domain.Property, error) {
	return domain.Property{}, repository.ErrNotFound
}

func (s *fakeStore) GetPropertiesByIDs(context.Context, uuid.UUID, []uuid.UUID) ([]domain.Property, error) {
	return nil, nil
}

func (s *fakeStore) ListAvailableByBedrooms(context.Context, uuid.UUID, int, int) ([]domain.Property, error) {
	return nil, nil
}

func (s *fakeStore) InsertCommunication(_ context.Context, p repository.InsertCommunicationParams) (repository.Communication, error) {
	s.comms = append(s.comms, p)
	return repository.Communication{ID: uuid.New()}, nil
}

type fakeSettings struct{ s settings.OutreachSettings }

func (f fakeSettings) Get(context.Context, uuid.UUID) (settings.OutreachSettings, error) {
	return f.s, nil
}

type fakeCounter struct{ count int }

func (f fakeCounter) CountRecentOutbound(context.Context, uuid.UUID, uuid.UUID, time.Time) (int, error) {
	return f.count, nil
}

type fakeVoice struct {
	err   error
	calls []voice.CallRequest
}

func (f *fakeVoice) PlaceCall(_ context.Context, req voice.CallRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, req)
	return "call-ref-1", nil
}

type fakeSMS struct {
	err  error
	sent []string
}

func (f *fakeSMS) SendMessage(_ context.Context, _, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, body)
	return "sms-ref-1", nil
}

type fakeEmail struct {
	err    error
	sent   []string
	bodies []string
}

func (f *fakeEmail) SendEmail(_ context.Context, _, subject, html string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, subject)
	f.bodies = append(f.bodies, html)
	return "email-ref-1", nil
}

type fakeActivity struct {
	entries []activity.InsertParams
	costs   []activity.CostRecord
}

func (f *fakeActivity) Insert(_ context.Context, p activity.InsertParams) error {
	f.entries = append(f.entries, p)
	return nil
}

func (f *fakeActivity) InsertCost(_ context.Context, rec activity.CostRecord) error {
	f.costs = append(f.costs, rec)
	return nil
}

type fakeNotifier struct {
	created []notification.CreateParams
}

func (f *fakeNotifier) Create(_ context.Context, p notification.CreateParams) error {
	f.created = append(f.created, p)
	return nil
}

type fixture struct {
	dispatcher *Dispatcher
	store      *fakeStore
	voice      *fakeVoice
	sms        *fakeSMS
	email      *fakeEmail
	activity   *fakeActivity
	notifier   *fakeNotifier
}

func newFixture(t *testing.T, task domain.Task, lead domain.Lead) *fixture {
	t.Helper()

	store := &fakeStore{task: task, lead: lead}
	f := &fixture{
		store:    store,
		voice:    &fakeVoice{},
		sms:      &fakeSMS{},
		email:    &fakeEmail{},
		activity: &fakeActivity{},
		notifier: &fakeNotifier{},
	}

	orgSettings := settings.Defaults()
	orgSettings.OrganizationName = "Maple Court"

	clock := func() time.Time { return testNow }
	f.dispatcher = New(Params{
		Store:    store,
		Settings: fakeSettings{s: orgSettings},
		Gate:     compliance.NewGate(fakeCounter{}).WithClock(clock),
		Voice:    f.voice,
		SMS:      f.sms,
		Email:    f.email,
		Activity: f.activity,
		Notifier: f.notifier,
		Log:      logger.New("development"),
	}).WithClock(clock)
	return f
}

func baseLead() domain.Lead {
	email := "lead@example.com"
	return domain.Lead{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		FirstName:      "Dana",
		LastName:       "Reyes",
		Phone:          "+13125550147",
		Email:          &email,
		SMSConsent:     true,
		CallConsent:    true,
	}
}

func taskFor(lead domain.Lead, agentType domain.AgentType, attempt, max int) domain.Task {
	return domain.Task{
		ID:             uuid.New(),
		OrganizationID: lead.OrganizationID,
		LeadID:         lead.ID,
		AgentType:      agentType,
		ActionType:     domain.ActionCall,
		ScheduledFor:   testNow.Add(-time.Minute),
		AttemptNumber:  attempt,
		MaxAttempts:    max,
		Status:         domain.TaskPending,
	}
}

func TestExecuteAlreadyClaimedIsNoOp(t *testing.T) {
	lead := baseLead()
	f := newFixture(t, taskFor(lead, domain.AgentRecapture, 1, 7), lead)
	f.store.claimed = true

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(f.activity.entries) != 0 || f.store.finishedStatus != "" {
		t.Fatal("claimed task must produce no side effects")
	}
}

func TestRecaptureCallSuccess(t *testing.T) {
	lead := baseLead()
	f := newFixture(t, taskFor(lead, domain.AgentRecapture, 1, 7), lead)

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.store.finishedStatus != domain.TaskCompleted {
		t.Fatalf("status = %s, want completed", f.store.finishedStatus)
	}
	if len(f.voice.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(f.voice.calls))
	}
	if len(f.sms.sent) != 0 {
		t.Fatal("fallback must not run when primary dispatched")
	}
	if len(f.store.comms) != 1 || f.store.comms[0].Status != repository.CommStatusDispatched {
		t.Fatalf("expected one dispatched communication, got %+v", f.store.comms)
	}
	if len(f.activity.costs) != 1 || f.activity.costs[0].Service != activity.ServiceVoice {
		t.Fatalf("expected one voice cost record, got %+v", f.activity.costs)
	}
	if len(f.activity.entries) != 1 || f.activity.entries[0].Status != activity.StatusSuccess {
		t.Fatalf("expected one success entry, got %+v", f.activity.entries)
	}
	// Goal-bearing behaviors chain the next attempt; the next invocation's
	// goal check stops the chain once a showing is booked.
	if len(f.store.enqueued) != 1 || f.store.enqueued[0].AttemptNumber != 2 {
		t.Fatalf("expected attempt 2 enqueued, got %+v", f.store.enqueued)
	}
}

func TestRecaptureFallbackBlockedByConsent(t *testing.T) {
	lead := baseLead()
	lead.SMSConsent = false
	f := newFixture(t, taskFor(lead, domain.AgentRecapture, 1, 7), lead)
	f.voice.err = errors.New("provider 502")

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.store.finishedStatus != domain.TaskFailed {
		t.Fatalf("status = %s, want failed", f.store.finishedStatus)
	}
	if len(f.sms.sent) != 0 || len(f.store.comms) != 0 {
		t.Fatal("blocked fallback must not dispatch or record a communication")
	}
	details := f.activity.entries[0].Details.(outcomeDetails)
	if details.Channels[0].Error != "place call: provider 502" {
		t.Fatalf("call attempt error = %q, want provider failure detail", details.Channels[0].Error)
	}
	if len(f.store.enqueued) != 1 {
		t.Fatalf("expected attempt 2 scheduled, got %d tasks", len(f.store.enqueued))
	}
	next := f.store.enqueued[0]
	if next.AttemptNumber != 2 || next.AgentType != domain.AgentRecapture {
		t.Fatalf("unexpected next task %+v", next)
	}
	if got := next.ScheduledFor.Sub(testNow); got != 24*time.Hour {
		t.Fatalf("attempt 2 delay = %s, want 24h", got)
	}
}

func TestVoiceFailureFallsBackToSMS(t *testing.T) {
	lead := baseLead()
	f := newFixture(t, taskFor(lead, domain.AgentRecapture, 1, 7), lead)
	f.voice.err = errors.New("timeout")

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.store.finishedStatus != domain.TaskCompleted {
		t.Fatalf("status = %s, want completed", f.store.finishedStatus)
	}
	if len(f.sms.sent) != 1 {
		t.Fatalf("expected exactly one fallback SMS, got %d", len(f.sms.sent))
	}
	if len(f.store.comms) != 1 || f.store.comms[0].Channel != "sms" {
		t.Fatalf("expected one sms communication, got %+v", f.store.comms)
	}
}

func TestDoNotContactFailsWithoutRetry(t *testing.T) {
	lead := baseLead()
	lead.DoNotContact = true
	f := newFixture(t, taskFor(lead, domain.AgentRecapture, 1, 7), lead)

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.store.finishedStatus != domain.TaskFailed {
		t.Fatalf("status = %s, want failed", f.store.finishedStatus)
	}
	if len(f.voice.calls) != 0 || len(f.sms.sent) != 0 {
		t.Fatal("no channel may dispatch for a blocked lead")
	}
	if len(f.store.enqueued) != 0 {
		t.Fatal("lead-level block must not schedule a retry")
	}
	if len(f.activity.entries) != 1 || f.activity.entries[0].Status != activity.StatusSkipped {
		t.Fatalf("expected one skipped entry, got %+v", f.activity.entries)
	}
}

func TestConfirmationGoalAlreadyMet(t *testing.T) {
	lead := baseLead()
	showingID := uuid.New()
	showing := domain.Showing{
		ID:             showingID,
		OrganizationID: lead.OrganizationID,
		LeadID:         lead.ID,
		ScheduledAt:    testNow.Add(48 * time.Hour),
		Status:         domain.ShowingConfirmed,
	}

	task := taskFor(lead, domain.AgentShowingConfirmation, 1, 3)
	task.Context.ShowingID = &showingID
	f := newFixture(t, task, lead)
	f.store.showing = &showing

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.store.finishedStatus != domain.TaskCompleted {
		t.Fatalf("status = %s, want completed", f.store.finishedStatus)
	}
	if len(f.voice.calls) != 0 {
		t.Fatal("satisfied goal must short-circuit before dispatch")
	}
	if f.activity.entries[0].Status != activity.StatusSkipped {
		t.Fatalf("entry status = %s, want skipped", f.activity.entries[0].Status)
	}
}

func TestConfirmationBlockedLeadDoesNotAccrueAttempts(t *testing.T) {
	lead := baseLead()
	lead.DoNotContact = true
	showingID := uuid.New()
	showing := domain.Showing{
		ID:             showingID,
		OrganizationID: lead.OrganizationID,
		LeadID:         lead.ID,
		ScheduledAt:    testNow.Add(24 * time.Hour),
		Status:         domain.ShowingScheduled,
	}

	task := taskFor(lead, domain.AgentShowingConfirmation, 1, 3)
	task.Context.ShowingID = &showingID
	f := newFixture(t, task, lead)
	f.store.showing = &showing

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.store.finishedStatus != domain.TaskFailed {
		t.Fatalf("status = %s, want failed", f.store.finishedStatus)
	}
	if f.store.confirmBumps != 0 {
		t.Fatalf("confirmation attempts bumped %d times for a blocked lead, want 0", f.store.confirmBumps)
	}
}

func TestConfirmationExhaustionCancelsShowing(t *testing.T) {
	lead := baseLead()
	showingID := uuid.New()
	showing := domain.Showing{
		ID:                   showingID,
		OrganizationID:       lead.OrganizationID,
		LeadID:               lead.ID,
		ScheduledAt:          testNow.Add(24 * time.Hour),
		Status:               domain.ShowingScheduled,
		ConfirmationAttempts: 2,
	}

	task := taskFor(lead, domain.AgentShowingConfirmation, 3, 3)
	task.Context.ShowingID = &showingID
	f := newFixture(t, task, lead)
	f.store.showing = &showing
	f.voice.err = errors.New("no answer")
	f.sms.err = errors.New("carrier rejected")

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.store.cancelledID == nil || *f.store.cancelledID != showingID {
		t.Fatal("expected the showing to be auto-cancelled")
	}
	if f.store.cancelReason == "" {
		t.Fatal("cancellation reason must be populated")
	}
	// The cancellation resolves the task's goal, so it completes even though
	// both channels failed.
	if f.store.finishedStatus != domain.TaskCompleted {
		t.Fatalf("status = %s, want completed", f.store.finishedStatus)
	}
	if len(f.store.enqueued) != 1 || f.store.enqueued[0].AgentType != domain.AgentNotify {
		t.Fatalf("expected exactly one notify task, got %+v", f.store.enqueued)
	}
	if f.activity.entries[0].Status != activity.StatusPartial {
		t.Fatalf("entry status = %s, want partial", f.activity.entries[0].Status)
	}
}

func TestNoShowFollowupAlreadyRescheduled(t *testing.T) {
	lead := baseLead()
	f := newFixture(t, taskFor(lead, domain.AgentNoShowFollowup, 1, 3), lead)
	f.store.upcomingShowing = true

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.store.finishedStatus != domain.TaskCompleted {
		t.Fatalf("status = %s, want completed", f.store.finishedStatus)
	}
	if len(f.voice.calls) != 0 || len(f.sms.sent) != 0 {
		t.Fatal("rescheduled lead must not be contacted")
	}
	if len(f.store.enqueued) != 0 {
		t.Fatal("no follow-up chain after a satisfied goal")
	}
}

func TestWelcomeSequenceMultiChannel(t *testing.T) {
	lead := baseLead()
	task := taskFor(lead, domain.AgentWelcomeSequence, 1, 1)
	task.ActionType = domain.ActionSMS
	f := newFixture(t, task, lead)

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(f.sms.sent) != 1 || len(f.email.sent) != 1 {
		t.Fatalf("welcome must attempt both channels: sms=%d email=%d", len(f.sms.sent), len(f.email.sent))
	}
	if got := strings.Count(f.email.bodies[0], "<!DOCTYPE html>"); got != 1 {
		t.Fatalf("email body has %d document shells, want 1", got)
	}
	if f.store.finishedStatus != domain.TaskCompleted {
		t.Fatalf("status = %s, want completed", f.store.finishedStatus)
	}
	// No showing yet, so the recapture chain starts.
	if len(f.store.enqueued) != 1 || f.store.enqueued[0].AgentType != domain.AgentRecapture {
		t.Fatalf("expected recapture chain, got %+v", f.store.enqueued)
	}
	if got := f.store.enqueued[0].ScheduledFor.Sub(testNow); got != 24*time.Hour {
		t.Fatalf("recapture chain delay = %s, want 24h", got)
	}
}

func TestWelcomeSequencePartialWhenEmailFails(t *testing.T) {
	lead := baseLead()
	task := taskFor(lead, domain.AgentWelcomeSequence, 1, 1)
	task.ActionType = domain.ActionSMS
	f := newFixture(t, task, lead)
	f.email.err = errors.New("smtp down")

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.store.finishedStatus != domain.TaskCompleted {
		t.Fatalf("status = %s, want completed", f.store.finishedStatus)
	}
	if f.activity.entries[0].Status != activity.StatusPartial {
		t.Fatalf("entry status = %s, want partial", f.activity.entries[0].Status)
	}
}

func TestNotifyTaskCreatesOperatorNotification(t *testing.T) {
	lead := baseLead()
	showingID := uuid.New()
	task := taskFor(lead, domain.AgentNotify, 1, 1)
	task.ActionType = domain.ActionNotify
	task.Context.ShowingID = &showingID
	task.Context.Source = "showing_auto_cancelled"
	f := newFixture(t, task, lead)
	showing := domain.Showing{ID: showingID, OrganizationID: lead.OrganizationID, LeadID: lead.ID, Status: domain.ShowingCancelled}
	f.store.showing = &showing

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(f.notifier.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.notifier.created))
	}
	if f.notifier.created[0].Category != notification.CategoryAction {
		t.Fatalf("category = %s, want action_required", f.notifier.created[0].Category)
	}
	if f.store.finishedStatus != domain.TaskCompleted {
		t.Fatalf("status = %s, want completed", f.store.finishedStatus)
	}
}

func TestCallbackRetriesOnlyOnFailure(t *testing.T) {
	lead := baseLead()
	f := newFixture(t, taskFor(lead, domain.AgentOutboundCallback, 1, 3), lead)

	if err := f.dispatcher.Execute(context.Background(), f.store.task.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.store.finishedStatus != domain.TaskCompleted {
		t.Fatalf("status = %s, want completed", f.store.finishedStatus)
	}
	// Goal-less behaviors stop after a successful dispatch.
	if len(f.store.enqueued) != 0 {
		t.Fatalf("callback success must not chain, got %+v", f.store.enqueued)
	}
}
