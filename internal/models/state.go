package models

// ConversationState is the state of one onboarding/assistant conversation.
type ConversationState string

const (
	StateIdle                 ConversationState = "idle"
	StateOnboarding           ConversationState = "onboarding"
	StateAwaitingWakeTime     ConversationState = "awaiting_wake_time"
	StateAwaitingSleepTime    ConversationState = "awaiting_sleep_time"
	StateAwaitingGoals        ConversationState = "awaiting_goals"
	StateAwaitingRoutines     ConversationState = "awaiting_routines"
	StateAwaitingProductivity ConversationState = "awaiting_productivity"
	StateReady                ConversationState = "ready"
	StateAwaitingTodayTasks   ConversationState = "awaiting_today_tasks"
)

// IsValid reports whether s is a known state.
func (s ConversationState) IsValid() bool {
	switch s {
	case StateIdle, StateOnboarding, StateAwaitingWakeTime, StateAwaitingSleepTime,
		StateAwaitingGoals, StateAwaitingRoutines, StateAwaitingProductivity,
		StateReady, StateAwaitingTodayTasks:
		return true
	default:
		return false
	}
}

// IsOnboarding reports whether s belongs to the interview phase.
func (s ConversationState) IsOnboarding() bool {
	switch s {
	case StateIdle, StateOnboarding, StateAwaitingWakeTime, StateAwaitingSleepTime,
		StateAwaitingGoals, StateAwaitingRoutines, StateAwaitingProductivity:
		return true
	default:
		return false
	}
}

// Session is the conversation state of one user. It is owned by a single conversation and
// passed by value through the dispatcher; nothing else holds a reference to it.
type Session struct {
	UserID  string            `json:"userId"`
	State   ConversationState `json:"state"`
	Answers OnboardingAnswers `json:"answers"`
	Profile *UserProfile      `json:"profile,omitempty"`
}

// NewSession returns an idle session for userID.
func NewSession(userID string) Session {
	return Session{UserID: userID, State: StateIdle}
}
