package domain

import (
	"testing"
	"time"
)

func TestTaskStatusTransitions(t *testing.T) {
	if !TaskPending.CanTransitionTo(TaskInProgress) {
		t.Fatal("pending must allow in_progress")
	}
	if !TaskInProgress.CanTransitionTo(TaskCompleted) {
		t.Fatal("in_progress must allow completed")
	}
	if TaskPending.CanTransitionTo(TaskCompleted) {
		t.Fatal("pending must not jump straight to completed")
	}
	for _, terminal := range []TaskStatus{TaskCompleted, TaskFailed, TaskCancelled} {
		if !terminal.IsTerminal() {
			t.Fatalf("%s should be terminal", terminal)
		}
		if terminal.CanTransitionTo(TaskInProgress) {
			t.Fatalf("%s must never be re-executed", terminal)
		}
	}
}

func TestShowingCannotConfirmAfterScheduledTime(t *testing.T) {
	now := time.Now()
	showing := Showing{
		Status:      ShowingScheduled,
		ScheduledAt: now.Add(-time.Hour),
	}
	if showing.CanConfirm(now) {
		t.Fatal("a past showing must not be confirmable")
	}

	showing.ScheduledAt = now.Add(time.Hour)
	if !showing.CanConfirm(now) {
		t.Fatal("a future scheduled showing must be confirmable")
	}

	showing.Status = ShowingCancelled
	if showing.CanConfirm(now) {
		t.Fatal("a cancelled showing must not be confirmable")
	}
}

func TestBehaviorTableCoversAllAgentTypes(t *testing.T) {
	for agentType := range knownAgentTypes {
		if _, ok := BehaviorFor(agentType); !ok {
			t.Fatalf("agent type %s has no behavior entry", agentType)
		}
	}
}

func TestFallbackChannels(t *testing.T) {
	for _, agentType := range []AgentType{AgentRecapture, AgentShowingConfirmation, AgentNoShowFollowup} {
		b, _ := BehaviorFor(agentType)
		if b.Primary != ActionCall || b.Fallback != ActionSMS {
			t.Fatalf("%s should fall back from call to sms, got %s -> %s", agentType, b.Primary, b.Fallback)
		}
		if b.MultiChannel {
			t.Fatalf("%s should be a fallback chain, not multi-channel", agentType)
		}
	}

	welcome, _ := BehaviorFor(AgentWelcomeSequence)
	if !welcome.MultiChannel {
		t.Fatal("welcome sequence attempts its channels independently")
	}

	callback, _ := BehaviorFor(AgentOutboundCallback)
	if callback.Fallback != ActionNone {
		t.Fatal("outbound callback has no fallback channel")
	}
}
