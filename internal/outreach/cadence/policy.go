// Package cadence maps agent types to their retry schedules. Each behavior
// has its own organization-configurable cadence; exhausting it ends the
// retry chain.
package cadence

import (
	"time"

	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/internal/settings"
)

// Fixed retry delays for behaviors whose cadence is not a day-offset
// schedule.
const (
	confirmationRetryDelay = 4 * time.Hour
	callbackRetryDelay     = 15 * time.Minute
	applicationRetryDelay  = 1 * time.Hour
)

const singleChannelRetryMax = 3

// Next describes the follow-up attempt to schedule.
type Next struct {
	Delay       time.Duration
	MaxAttempts int
}

// MaxAttempts returns the attempt budget for an agent type under the given
// settings. Tasks are enqueued with this value so the attempt_number <=
// max_attempts invariant is fixed at creation time.
func MaxAttempts(agentType domain.AgentType, s settings.OutreachSettings) int {
	switch agentType {
	case domain.AgentRecapture:
		return boundedAttempts(s.RecaptureMaxAttempts, len(s.RecaptureDayOffsets))
	case domain.AgentShowingConfirmation:
		if s.ConfirmationMaxAttempts > 0 {
			return s.ConfirmationMaxAttempts
		}
		return settings.Defaults().ConfirmationMaxAttempts
	case domain.AgentNoShowFollowup:
		return boundedAttempts(s.NoShowMaxAttempts, len(s.NoShowDayOffsets))
	case domain.AgentOutboundCallback, domain.AgentSendApplication:
		return singleChannelRetryMax
	default:
		// welcome_sequence and notify are one-shot.
		return 1
	}
}

// NextAttempt returns the delay before attempt currentAttempt+1, or false
// when no further attempts remain. Delays are relative to the completion of
// the current attempt.
func NextAttempt(agentType domain.AgentType, currentAttempt int, s settings.OutreachSettings) (Next, bool) {
	maxAttempts := MaxAttempts(agentType, s)
	if currentAttempt < 1 || currentAttempt >= maxAttempts {
		return Next{}, false
	}

	switch agentType {
	case domain.AgentRecapture:
		delay, ok := offsetDelay(s.RecaptureDayOffsets, currentAttempt)
		if !ok {
			return Next{}, false
		}
		return Next{Delay: delay, MaxAttempts: maxAttempts}, true

	case domain.AgentShowingConfirmation:
		return Next{Delay: confirmationRetryDelay, MaxAttempts: maxAttempts}, true

	case domain.AgentNoShowFollowup:
		delay, ok := offsetDelay(s.NoShowDayOffsets, currentAttempt)
		if !ok {
			return Next{}, false
		}
		return Next{Delay: delay, MaxAttempts: maxAttempts}, true

	case domain.AgentOutboundCallback:
		return Next{Delay: callbackRetryDelay, MaxAttempts: maxAttempts}, true

	case domain.AgentSendApplication:
		return Next{Delay: applicationRetryDelay, MaxAttempts: maxAttempts}, true

	default:
		return Next{}, false
	}
}

// WelcomeFollowupDelay is the delay before the recapture task chained after
// a welcome sequence when no showing exists yet.
func WelcomeFollowupDelay(s settings.OutreachSettings) time.Duration {
	hours := s.WelcomeFollowupDelayHours
	if hours <= 0 {
		hours = settings.Defaults().WelcomeFollowupDelayHours
	}
	return time.Duration(hours) * time.Hour
}

// offsetDelay converts a day-offset schedule (offsets from the first
// attempt) into the delay between attempt n and n+1.
func offsetDelay(dayOffsets []int, currentAttempt int) (time.Duration, bool) {
	idx := currentAttempt - 1
	if idx >= len(dayOffsets) {
		return 0, false
	}

	days := dayOffsets[idx]
	if idx > 0 {
		days -= dayOffsets[idx-1]
	}
	if days < 0 {
		return 0, false
	}
	return time.Duration(days) * 24 * time.Hour, true
}

func boundedAttempts(configured, offsets int) int {
	// One initial attempt plus one per configured offset.
	budget := offsets + 1
	if configured > 0 && configured < budget {
		return configured
	}
	return budget
}
