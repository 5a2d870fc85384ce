package cadence

import (
	"testing"
	"time"

	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/internal/settings"
)

func TestRecaptureFollowsDayOffsetSchedule(t *testing.T) {
	s := settings.Defaults() // offsets [1,2,4,7,10,14,21], max 7

	// Attempt 1 -> 2 fires 1 day after the first attempt.
	next, ok := NextAttempt(domain.AgentRecapture, 1, s)
	if !ok {
		t.Fatal("attempt 2 should be scheduled")
	}
	if next.Delay != 24*time.Hour {
		t.Fatalf("expected 1 day, got %s", next.Delay)
	}

	// Attempt 2 -> 3: day 2 is one day after day 1.
	next, ok = NextAttempt(domain.AgentRecapture, 2, s)
	if !ok || next.Delay != 24*time.Hour {
		t.Fatalf("expected 1 day between day offsets 1 and 2, got %v %s", ok, next.Delay)
	}

	// Attempt 3 -> 4: day 4 is two days after day 2.
	next, ok = NextAttempt(domain.AgentRecapture, 3, s)
	if !ok || next.Delay != 48*time.Hour {
		t.Fatalf("expected 2 days between day offsets 2 and 4, got %v %s", ok, next.Delay)
	}
}

func TestRecaptureExhaustsAtMaxAttempts(t *testing.T) {
	s := settings.Defaults()

	if _, ok := NextAttempt(domain.AgentRecapture, 7, s); ok {
		t.Fatal("attempt 7 is the last; no further attempt may be scheduled")
	}
}

func TestRecaptureHonorsConfiguredMax(t *testing.T) {
	s := settings.Defaults()
	s.RecaptureMaxAttempts = 3

	if _, ok := NextAttempt(domain.AgentRecapture, 2, s); !ok {
		t.Fatal("attempt 3 is within the configured budget")
	}
	if _, ok := NextAttempt(domain.AgentRecapture, 3, s); ok {
		t.Fatal("configured max of 3 must stop the chain")
	}
}

func TestNoShowFollowupOffsets(t *testing.T) {
	s := settings.Defaults() // offsets [1,3]

	// Attempt 2 at +1 day from the no-show event.
	next, ok := NextAttempt(domain.AgentNoShowFollowup, 1, s)
	if !ok || next.Delay != 24*time.Hour {
		t.Fatalf("expected +1 day for attempt 2, got %v %s", ok, next.Delay)
	}

	// Attempt 3 at +3 days from the event, i.e. two days after attempt 2.
	next, ok = NextAttempt(domain.AgentNoShowFollowup, 2, s)
	if !ok || next.Delay != 48*time.Hour {
		t.Fatalf("expected 2 days for attempt 3, got %v %s", ok, next.Delay)
	}

	if _, ok := NextAttempt(domain.AgentNoShowFollowup, 3, s); ok {
		t.Fatal("no-show follow-up ends after attempt 3")
	}
}

func TestWelcomeSequenceIsOneShot(t *testing.T) {
	s := settings.Defaults()

	if MaxAttempts(domain.AgentWelcomeSequence, s) != 1 {
		t.Fatal("welcome sequence runs exactly once")
	}
	if _, ok := NextAttempt(domain.AgentWelcomeSequence, 1, s); ok {
		t.Fatal("welcome sequence never retries through the cadence")
	}
	if WelcomeFollowupDelay(s) != 24*time.Hour {
		t.Fatalf("default welcome follow-up delay is 24h, got %s", WelcomeFollowupDelay(s))
	}
}

func TestShowingConfirmationRetries(t *testing.T) {
	s := settings.Defaults()

	next, ok := NextAttempt(domain.AgentShowingConfirmation, 1, s)
	if !ok {
		t.Fatal("attempt 2 of 3 should be scheduled")
	}
	if next.MaxAttempts != 3 {
		t.Fatalf("default confirmation max is 3, got %d", next.MaxAttempts)
	}
	if _, ok := NextAttempt(domain.AgentShowingConfirmation, 3, s); ok {
		t.Fatal("confirmation chain ends at the configured max")
	}
}
