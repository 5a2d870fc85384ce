package domain

// Goal identifies the condition that, once satisfied, makes a task's work
// redundant. The dispatcher checks the goal before attempting any channel.
type Goal string

const (
	// GoalNone means the task always runs its channel attempt.
	GoalNone Goal = ""
	// GoalShowingConfirmed is satisfied when the referenced showing reached
	// confirmed (or any terminal state that makes confirmation moot).
	GoalShowingConfirmed Goal = "showing_confirmed"
	// GoalLeadRescheduled is satisfied when the lead has an upcoming showing
	// again, making no-show follow-up redundant.
	GoalLeadRescheduled Goal = "lead_rescheduled"
	// GoalShowingBooked is satisfied when any showing exists for the lead,
	// making further funnel outreach redundant.
	GoalShowingBooked Goal = "showing_booked"
)

// TerminalEffect is the side effect applied when a behavior exhausts its
// attempts without reaching its goal.
type TerminalEffect string

const (
	// EffectNone applies no terminal side effect.
	EffectNone TerminalEffect = ""
	// EffectCancelShowing auto-cancels the referenced showing and notifies
	// an operator.
	EffectCancelShowing TerminalEffect = "cancel_showing"
	// EffectNotifyOperator alerts a human operator that automation gave up.
	EffectNotifyOperator TerminalEffect = "notify_operator"
)

// Behavior is one row of the agent strategy table: the channels, goal and
// terminal handling for an agent type. Adding an outreach behavior means
// adding a table entry, not new branching logic.
type Behavior struct {
	Primary  ActionType
	Fallback ActionType
	// MultiChannel behaviors attempt primary and fallback independently
	// (each gated separately) instead of treating fallback as a failure
	// path. Used by the welcome sequence.
	MultiChannel   bool
	Goal           Goal
	TerminalEffect TerminalEffect
}

// Behaviors maps each agent type to its dispatch strategy.
var Behaviors = map[AgentType]Behavior{
	AgentRecapture: {
		Primary:  ActionCall,
		Fallback: ActionSMS,
		Goal:     GoalShowingBooked,
	},
	AgentShowingConfirmation: {
		Primary:        ActionCall,
		Fallback:       ActionSMS,
		Goal:           GoalShowingConfirmed,
		TerminalEffect: EffectCancelShowing,
	},
	AgentNoShowFollowup: {
		Primary:  ActionCall,
		Fallback: ActionSMS,
		Goal:     GoalLeadRescheduled,
	},
	AgentWelcomeSequence: {
		Primary:      ActionSMS,
		Fallback:     ActionEmail,
		MultiChannel: true,
		Goal:         GoalShowingBooked,
	},
	AgentOutboundCallback: {
		Primary: ActionCall,
	},
	AgentSendApplication: {
		Primary: ActionEmail,
	},
	AgentNotify: {
		Primary: ActionNotify,
	},
}

// BehaviorFor returns the strategy table entry for an agent type.
func BehaviorFor(agentType AgentType) (Behavior, bool) {
	b, ok := Behaviors[agentType]
	return b, ok
}
