package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leaseline_backend/internal/activity"
	"leaseline_backend/internal/channels/voice"
	"leaseline_backend/internal/email"
	"leaseline_backend/internal/notification"
	"leaseline_backend/internal/outreach/cadence"
	"leaseline_backend/internal/outreach/compliance"
	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/internal/outreach/repository"
	"leaseline_backend/internal/outreach/script"
	"leaseline_backend/internal/settings"
	"leaseline_backend/platform/apperr"

	"github.com/google/uuid"
)

// PriorOutcomeCallDropped marks a task context chained after a call that
// ended mid-conversation.
const PriorOutcomeCallDropped = "call_dropped"

// invocation carries one claimed task's state through the algorithm.
type invocation struct {
	task     domain.Task
	lead     domain.Lead
	settings settings.OutreachSettings
	behavior domain.Behavior
	showing  *domain.Showing
	snapshot script.Snapshot
	started  time.Time
}

// attemptResult records one channel attempt within an invocation.
type attemptResult struct {
	Action      domain.ActionType `json:"channel"`
	Dispatched  bool              `json:"dispatched"`
	ProviderRef string            `json:"providerRef,omitempty"`
	Violations  []string          `json:"violations,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// outcomeDetails is the structured payload written to the activity log.
type outcomeDetails struct {
	Attempt            int             `json:"attempt"`
	MaxAttempts        int             `json:"maxAttempts"`
	Channels           []attemptResult `json:"channels,omitempty"`
	Reason             string          `json:"reason,omitempty"`
	AlreadyRescheduled bool            `json:"alreadyRescheduled,omitempty"`
	ShowingCancelled   bool            `json:"showingCancelled,omitempty"`
	NextAttemptAt      *time.Time      `json:"nextAttemptAt,omitempty"`
}

// Execute claims and runs one due task. A claim that matches no row means
// another invocation owns the task (or it is not due); that is a no-op, not
// an error.
func (d *Dispatcher) Execute(ctx context.Context, taskID uuid.UUID) error {
	task, err := d.store.ClaimTask(ctx, taskID, d.now())
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyClaimed) {
			d.log.Debug("task not claimable, skipping", "task_id", taskID.String())
			return nil
		}
		return err
	}

	d.run(ctx, task)
	return nil
}

// run executes a claimed task. Unexpected panics and errors mark the task
// failed with a best-effort activity entry; nothing propagates to the queue.
func (d *Dispatcher) run(ctx context.Context, task domain.Task) {
	inv := &invocation{task: task, started: d.now()}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatch panicked", "task_id", task.ID.String(), "panic", fmt.Sprint(r))
			d.finish(ctx, inv, domain.TaskFailed, activity.StatusFailure,
				"dispatch aborted unexpectedly", outcomeDetails{Attempt: task.AttemptNumber, MaxAttempts: task.MaxAttempts, Reason: "internal_error"})
		}
	}()

	if err := d.prepare(ctx, inv); err != nil {
		d.finish(ctx, inv, domain.TaskFailed, activity.StatusFailure, err.Error(),
			outcomeDetails{Attempt: task.AttemptNumber, MaxAttempts: task.MaxAttempts, Reason: "data_integrity"})
		return
	}

	// Goal check before any channel work: an external state change (the
	// lead rescheduled, the showing was confirmed) makes the task moot.
	if done, details := d.goalSatisfied(ctx, inv); done {
		d.finish(ctx, inv, domain.TaskCompleted, activity.StatusSkipped, "goal already satisfied", details)
		return
	}

	if inv.behavior.Primary == domain.ActionNotify {
		d.runNotify(ctx, inv)
		return
	}

	d.loadSnapshot(ctx, inv)
	results, leadBlocked := d.attemptChannels(ctx, inv)

	if leadBlocked {
		// Lead-level blocks apply globally; retrying is futile.
		d.finish(ctx, inv, domain.TaskFailed, activity.StatusSkipped, "lead blocked from automated contact",
			outcomeDetails{Attempt: inv.task.AttemptNumber, MaxAttempts: inv.task.MaxAttempts, Channels: results, Reason: "compliance_blocked"})
		return
	}

	// Counted only for gated invocations; a lead-level block ends the task
	// without the showing accruing an attempt.
	if inv.task.AgentType == domain.AgentShowingConfirmation && inv.task.Context.ShowingID != nil {
		if _, err := d.store.IncrementConfirmationAttempts(ctx, *inv.task.Context.ShowingID, inv.task.OrganizationID); err != nil {
			d.log.DatabaseError("increment confirmation attempts", err)
		}
	}

	anyDispatched := false
	for _, r := range results {
		if r.Dispatched {
			anyDispatched = true
		}
	}

	details := outcomeDetails{Attempt: inv.task.AttemptNumber, MaxAttempts: inv.task.MaxAttempts, Channels: results}

	if fired := d.applyTerminalEffect(ctx, inv, anyDispatched, &details); fired {
		// Resolving via the terminal effect counts as a satisfied goal, so
		// the task completes even though no channel dispatched.
		d.finish(ctx, inv, domain.TaskCompleted, activity.StatusPartial, "attempts exhausted, terminal effect applied", details)
		return
	}

	d.chainNextAttempt(ctx, inv, anyDispatched, &details)

	if anyDispatched {
		status := activity.StatusSuccess
		if inv.behavior.MultiChannel && len(results) > 1 && !allDispatched(results) {
			status = activity.StatusPartial
		}
		d.finish(ctx, inv, domain.TaskCompleted, status, "outreach dispatched", details)
		return
	}

	if onlyComplianceBlocks(results) {
		details.Reason = "compliance_blocked"
		d.finish(ctx, inv, domain.TaskFailed, activity.StatusSkipped, "all channels blocked by compliance", details)
		return
	}
	details.Reason = "dispatch_failed"
	d.finish(ctx, inv, domain.TaskFailed, activity.StatusFailure, "all channel attempts failed", details)
}

// prepare loads the lead, settings, behavior and (when referenced) showing.
// A missing referent is a data-integrity failure that ends the task.
func (d *Dispatcher) prepare(ctx context.Context, inv *invocation) error {
	behavior, ok := domain.BehaviorFor(inv.task.AgentType)
	if !ok {
		return fmt.Errorf("no behavior registered for agent type %q", inv.task.AgentType)
	}
	inv.behavior = behavior

	lead, err := d.store.GetLead(ctx, inv.task.LeadID, inv.task.OrganizationID)
	if err != nil {
		return fmt.Errorf("load lead: %w", err)
	}
	inv.lead = lead

	s, err := d.settings.Get(ctx, inv.task.OrganizationID)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	inv.settings = s

	if inv.task.Context.ShowingID != nil {
		showing, err := d.store.GetShowing(ctx, *inv.task.Context.ShowingID, inv.task.OrganizationID)
		if err != nil {
			if inv.task.AgentType == domain.AgentShowingConfirmation {
				return fmt.Errorf("load showing: %w", err)
			}
			d.log.DatabaseError("load showing", err)
		} else {
			inv.showing = &showing
		}
	}
	return nil
}

// goalSatisfied checks the behavior's goal against current state.
func (d *Dispatcher) goalSatisfied(ctx context.Context, inv *invocation) (bool, outcomeDetails) {
	details := outcomeDetails{Attempt: inv.task.AttemptNumber, MaxAttempts: inv.task.MaxAttempts}

	switch inv.behavior.Goal {
	case domain.GoalShowingConfirmed:
		if inv.showing == nil {
			return false, details
		}
		if inv.showing.Status != domain.ShowingScheduled {
			details.Reason = "showing_" + string(inv.showing.Status)
			return true, details
		}
		// A showing already in the past cannot be confirmed; attempting is
		// pointless and the no-show path takes over.
		if !inv.showing.CanConfirm(d.now()) {
			details.Reason = "showing_in_past"
			return true, details
		}
		return false, details

	case domain.GoalLeadRescheduled:
		upcoming, err := d.store.HasUpcomingShowing(ctx, inv.task.OrganizationID, inv.task.LeadID)
		if err != nil {
			d.log.DatabaseError("check upcoming showing", err)
			return false, details
		}
		if upcoming {
			details.Reason = "already_rescheduled"
			details.AlreadyRescheduled = true
		}
		return upcoming, details

	case domain.GoalShowingBooked:
		upcoming, err := d.store.HasUpcomingShowing(ctx, inv.task.OrganizationID, inv.task.LeadID)
		if err != nil {
			d.log.DatabaseError("check upcoming showing", err)
			return false, details
		}
		if upcoming {
			details.Reason = "showing_booked"
		}
		return upcoming, details
	}
	return false, details
}

// runNotify handles operator-notification tasks. They are internal, never
// gated, and complete on sink write.
func (d *Dispatcher) runNotify(ctx context.Context, inv *invocation) {
	title, content, category := notifyCopy(inv)

	err := d.notifier.Create(ctx, notification.CreateParams{
		OrganizationID: inv.task.OrganizationID,
		Title:          title,
		Content:        content,
		ResourceID:     inv.task.Context.ShowingID,
		ResourceType:   "showing",
		Category:       category,
	})
	details := outcomeDetails{Attempt: inv.task.AttemptNumber, MaxAttempts: inv.task.MaxAttempts}
	if err != nil {
		d.log.Error("notification sink write failed", "error", err.Error())
		details.Reason = "notification_sink_failed"
		d.finish(ctx, inv, domain.TaskFailed, activity.StatusFailure, "operator notification failed", details)
		return
	}
	d.finish(ctx, inv, domain.TaskCompleted, activity.StatusSuccess, "operator notified", details)
}

func notifyCopy(inv *invocation) (title, content, category string) {
	switch inv.task.Context.Source {
	case "showing_auto_cancelled":
		return "Showing cancelled after unanswered confirmations",
			fmt.Sprintf("%s never confirmed their showing; it was cancelled automatically. Reach out to rebook.", inv.lead.FullName()),
			notification.CategoryAction
	case "attempts_exhausted":
		return "Automated outreach gave up",
			fmt.Sprintf("All automated attempts to reach %s were used without a response. A personal touch may be needed.", inv.lead.FullName()),
			notification.CategoryAction
	default:
		return "Lead needs attention",
			fmt.Sprintf("%s was flagged for operator follow-up.", inv.lead.FullName()),
			notification.CategoryInfo
	}
}

// loadSnapshot assembles the immutable content-selection snapshot. Missing
// property data degrades the script rather than failing the dispatch.
func (d *Dispatcher) loadSnapshot(ctx context.Context, inv *invocation) {
	snap := script.Snapshot{
		Lead:             inv.lead,
		AgentType:        inv.task.AgentType,
		Showing:          inv.showing,
		PriorCallDropped: inv.task.Context.PriorOutcome == PriorOutcomeCallDropped,
		OrganizationName: inv.settings.OrganizationName,
	}

	if inv.task.Context.PropertyID != nil {
		property, err := d.store.GetProperty(ctx, *inv.task.Context.PropertyID, inv.task.OrganizationID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				d.log.DatabaseError("load property", err)
			}
		} else {
			snap.Property = &property
			if !property.IsAvailable {
				snap.Alternatives = d.loadAlternatives(ctx, inv, property)
			}
		}
	}

	inv.snapshot = snap
}

func (d *Dispatcher) loadAlternatives(ctx context.Context, inv *invocation, property domain.Property) []domain.Property {
	curated, err := d.store.GetPropertiesByIDs(ctx, inv.task.OrganizationID, property.AlternativeIDs)
	if err != nil {
		d.log.DatabaseError("load curated alternatives", err)
	}

	var byBedrooms []domain.Property
	if len(curated) == 0 {
		byBedrooms, err = d.store.ListAvailableByBedrooms(ctx, inv.task.OrganizationID, property.Bedrooms, script.MaxAlternatives)
		if err != nil {
			d.log.DatabaseError("load alternatives by bedrooms", err)
		}
	}
	return script.SelectAlternatives(curated, byBedrooms)
}

// attemptChannels runs the gate-then-dispatch sequence: primary first, then
// the fallback when the primary was blocked or failed. Attempts are strictly
// sequential so a lead never receives two simultaneous contacts. A
// MultiChannel behavior gates and attempts both channels independently.
func (d *Dispatcher) attemptChannels(ctx context.Context, inv *invocation) (results []attemptResult, leadBlocked bool) {
	primary, blocked := d.gateAndDispatch(ctx, inv, inv.behavior.Primary)
	results = append(results, primary)
	if blocked {
		return results, true
	}

	if inv.behavior.Fallback == domain.ActionNone {
		return results, false
	}

	runFallback := inv.behavior.MultiChannel || !primary.Dispatched
	if !runFallback {
		return results, false
	}

	fallback, blocked := d.gateAndDispatch(ctx, inv, inv.behavior.Fallback)
	results = append(results, fallback)
	return results, blocked
}

// gateAndDispatch evaluates the compliance gate for one action and, when it
// passes, performs the provider dispatch and writes the Communication and
// CostRecord rows.
func (d *Dispatcher) gateAndDispatch(ctx context.Context, inv *invocation, action domain.ActionType) (attemptResult, bool) {
	result := attemptResult{Action: action}

	verdict, err := d.gate.Check(ctx, compliance.CheckParams{
		Lead:      inv.lead,
		Action:    action,
		AgentType: inv.task.AgentType,
		Settings:  inv.settings,
	})
	if err != nil {
		result.Error = err.Error()
		return result, false
	}
	if !verdict.Passed {
		result.Violations = verdict.Violations
		d.log.ComplianceBlocked(inv.task.ID.String(), string(action), verdict.Violations)
		return result, verdict.LeadBlocked
	}

	ref, body, err := d.dispatch(ctx, inv, action)
	if err != nil {
		result.Error = err.Error()
		if apperr.Is(err, apperr.KindProviderDispatch) {
			d.log.ProviderError(providerName(action), string(action), err)
		}
		return result, false
	}
	result.Dispatched = true
	result.ProviderRef = ref

	d.recordDispatch(ctx, inv, action, ref, body)
	return result, false
}

// dispatch performs the provider call for one channel and returns the
// provider reference and the content that was sent.
func (d *Dispatcher) dispatch(ctx context.Context, inv *invocation, action domain.ActionType) (ref, body string, err error) {
	switch action {
	case domain.ActionCall:
		callScript := script.CallScript(inv.snapshot)
		ref, err = d.voice.PlaceCall(ctx, voice.CallRequest{
			Phone:   inv.lead.Phone,
			Script:  callScript,
			VoiceID: inv.settings.VoiceID,
			Metadata: map[string]string{
				"task_id":         inv.task.ID.String(),
				"lead_id":         inv.lead.ID.String(),
				"organization_id": inv.task.OrganizationID.String(),
				"agent_type":      string(inv.task.AgentType),
			},
		})
		if err != nil {
			err = apperr.ProviderDispatch(fmt.Sprintf("place call: %v", err), err)
		}
		return ref, callScript, err

	case domain.ActionSMS:
		body = script.SMSBody(inv.snapshot)
		ref, err = d.sms.SendMessage(ctx, inv.lead.Phone, body)
		if err != nil {
			err = apperr.ProviderDispatch(fmt.Sprintf("send sms: %v", err), err)
		}
		return ref, body, err

	case domain.ActionEmail:
		if inv.lead.Email == nil {
			return "", "", fmt.Errorf("lead has no email address")
		}
		subject, html := script.EmailContent(inv.snapshot)
		ref, err = d.email.SendEmail(ctx, *inv.lead.Email, subject, email.RenderLayout(html))
		if err != nil {
			err = apperr.ProviderDispatch(fmt.Sprintf("send email: %v", err), err)
		}
		return ref, subject, err

	default:
		return "", "", fmt.Errorf("undispatchable action %q", action)
	}
}

// recordDispatch writes the Communication and CostRecord for a successful
// dispatch. Both are best-effort: the provider has already been reached, so
// a bookkeeping failure must not flip the outcome.
func (d *Dispatcher) recordDispatch(ctx context.Context, inv *invocation, action domain.ActionType, ref, body string) {
	// Voice calls stay "dispatched" until the result webhook resolves them;
	// synchronous channels are delivered on provider acceptance.
	status := repository.CommStatusDelivered
	if action == domain.ActionCall {
		status = repository.CommStatusDispatched
	}

	taskID := inv.task.ID
	if _, err := d.store.InsertCommunication(ctx, repository.InsertCommunicationParams{
		OrganizationID: inv.task.OrganizationID,
		LeadID:         inv.lead.ID,
		TaskID:         &taskID,
		Channel:        string(action),
		Direction:      repository.DirectionOutbound,
		Body:           body,
		Status:         status,
		ProviderRef:    &ref,
	}); err != nil {
		d.log.DatabaseError("insert communication", err)
	}

	if rec, ok := activity.CostForAction(string(action), body); ok {
		rec.OrganizationID = inv.task.OrganizationID
		leadID := inv.lead.ID
		rec.LeadID = &leadID
		rec.TaskID = &taskID
		if err := d.activity.InsertCost(ctx, rec); err != nil {
			d.log.DatabaseError("insert cost record", err)
		}
	}
}

// applyTerminalEffect fires the behavior's terminal side effect when the
// final attempt ended without a dispatch and without reaching the goal.
func (d *Dispatcher) applyTerminalEffect(ctx context.Context, inv *invocation, anyDispatched bool, details *outcomeDetails) bool {
	if inv.behavior.TerminalEffect == domain.EffectNone {
		return false
	}
	if inv.task.AttemptsRemain() || anyDispatched {
		return false
	}

	switch inv.behavior.TerminalEffect {
	case domain.EffectCancelShowing:
		if inv.task.Context.ShowingID == nil {
			return false
		}
		showingID := *inv.task.Context.ShowingID
		if err := d.store.CancelShowing(ctx, showingID, inv.task.OrganizationID, "no response to confirmation attempts"); err != nil {
			d.log.DatabaseError("cancel showing", err)
			return false
		}
		details.ShowingCancelled = true
		details.Reason = "confirmation_exhausted"
		d.enqueueNotifyTask(ctx, inv, "showing_auto_cancelled", &showingID)
		return true

	case domain.EffectNotifyOperator:
		details.Reason = "attempts_exhausted"
		d.enqueueNotifyTask(ctx, inv, "attempts_exhausted", inv.task.Context.ShowingID)
		return true
	}
	return false
}

func (d *Dispatcher) enqueueNotifyTask(ctx context.Context, inv *invocation, source string, showingID *uuid.UUID) {
	task, err := d.store.EnqueueTask(ctx, repository.EnqueueTaskParams{
		OrganizationID: inv.task.OrganizationID,
		LeadID:         inv.task.LeadID,
		AgentType:      domain.AgentNotify,
		ActionType:     domain.ActionNotify,
		ScheduledFor:   d.now(),
		AttemptNumber:  1,
		MaxAttempts:    1,
		Context:        domain.TaskContext{ShowingID: showingID, Source: source},
	})
	if err != nil {
		d.log.DatabaseError("enqueue notify task", err)
		return
	}
	d.schedule(ctx, task)
}

// chainNextAttempt enqueues the follow-up task the cadence policy calls for.
// Goal-bearing behaviors chain after every attempt (the next invocation's
// goal check ends the chain once the goal is met); goal-less behaviors
// retry only after a failed dispatch. The welcome sequence chains into
// recapture instead of retrying itself.
func (d *Dispatcher) chainNextAttempt(ctx context.Context, inv *invocation, anyDispatched bool, details *outcomeDetails) {
	if inv.task.AgentType == domain.AgentWelcomeSequence {
		d.chainWelcomeRecapture(ctx, inv, details)
		return
	}

	if inv.behavior.Goal == domain.GoalNone && anyDispatched {
		return
	}

	next, ok := cadence.NextAttempt(inv.task.AgentType, inv.task.AttemptNumber, inv.settings)
	if !ok {
		return
	}

	scheduledFor := d.now().Add(next.Delay)
	task, err := d.store.EnqueueTask(ctx, repository.EnqueueTaskParams{
		OrganizationID: inv.task.OrganizationID,
		LeadID:         inv.task.LeadID,
		AgentType:      inv.task.AgentType,
		ActionType:     inv.task.ActionType,
		ScheduledFor:   scheduledFor,
		AttemptNumber:  inv.task.AttemptNumber + 1,
		MaxAttempts:    next.MaxAttempts,
		Context:        inv.task.Context,
	})
	if err != nil {
		d.log.DatabaseError("enqueue next attempt", err)
		return
	}
	details.NextAttemptAt = &scheduledFor
	d.schedule(ctx, task)
}

// chainWelcomeRecapture starts the recapture cadence after a welcome
// sequence when the lead has not booked anything yet.
func (d *Dispatcher) chainWelcomeRecapture(ctx context.Context, inv *invocation, details *outcomeDetails) {
	hasShowing, err := d.store.HasAnyShowing(ctx, inv.task.OrganizationID, inv.task.LeadID)
	if err != nil {
		d.log.DatabaseError("check lead showings", err)
		return
	}
	if hasShowing {
		return
	}

	scheduledFor := d.now().Add(cadence.WelcomeFollowupDelay(inv.settings))
	task, err := d.store.EnqueueTask(ctx, repository.EnqueueTaskParams{
		OrganizationID: inv.task.OrganizationID,
		LeadID:         inv.task.LeadID,
		AgentType:      domain.AgentRecapture,
		ActionType:     domain.ActionCall,
		ScheduledFor:   scheduledFor,
		AttemptNumber:  1,
		MaxAttempts:    cadence.MaxAttempts(domain.AgentRecapture, inv.settings),
		Context:        domain.TaskContext{PropertyID: inv.task.Context.PropertyID, Source: "welcome_followup"},
	})
	if err != nil {
		d.log.DatabaseError("enqueue recapture chain", err)
		return
	}
	details.NextAttemptAt = &scheduledFor
	d.schedule(ctx, task)
}

func (d *Dispatcher) schedule(ctx context.Context, task domain.Task) {
	if d.scheduler == nil {
		return
	}
	if err := d.scheduler.ScheduleTask(ctx, task); err != nil {
		// The due-task poller will pick it up; losing the queue job only
		// delays the attempt.
		d.log.Error("schedule task on queue failed", "task_id", task.ID.String(), "error", err.Error())
	}
}

// finish moves the task to its terminal status and writes the single
// activity entry for the invocation. Both writes are best-effort; a logging
// failure never masks the dispatch outcome.
func (d *Dispatcher) finish(ctx context.Context, inv *invocation, status domain.TaskStatus, activityStatus, message string, details outcomeDetails) {
	if err := d.store.FinishTask(ctx, inv.task.ID, status); err != nil {
		d.log.DatabaseError("finish task", err)
	}

	duration := d.now().Sub(inv.started)
	taskID := inv.task.ID
	leadID := inv.task.LeadID
	entry := activity.InsertParams{
		OrganizationID: inv.task.OrganizationID,
		AgentType:      string(inv.task.AgentType),
		Action:         string(inv.task.ActionType),
		Status:         activityStatus,
		Message:        message,
		Details:        details,
		LeadID:         &leadID,
		TaskID:         &taskID,
		ShowingID:      inv.task.Context.ShowingID,
		Duration:       duration,
	}
	if err := d.activity.Insert(ctx, entry); err != nil {
		d.log.DatabaseError("insert activity entry", err)
	}

	d.log.DispatchOutcome(inv.task.ID.String(), string(inv.task.AgentType), string(status), duration)
}

func allDispatched(results []attemptResult) bool {
	for _, r := range results {
		if !r.Dispatched {
			return false
		}
	}
	return true
}

// onlyComplianceBlocks reports whether every failed attempt was a compliance
// block rather than a provider failure.
func onlyComplianceBlocks(results []attemptResult) bool {
	for _, r := range results {
		if r.Dispatched || len(r.Violations) == 0 {
			return false
		}
	}
	return len(results) > 0
}

func providerName(action domain.ActionType) string {
	switch action {
	case domain.ActionCall:
		return "voice"
	case domain.ActionSMS:
		return "sms"
	case domain.ActionEmail:
		return "smtp"
	}
	return string(action)
}
