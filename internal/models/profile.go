package models

import "time"

// ProductivityPeak is the part of the day a user reports being most productive.
type ProductivityPeak string

const (
	PeakMorning   ProductivityPeak = "morning"
	PeakAfternoon ProductivityPeak = "afternoon"
	PeakNight     ProductivityPeak = "night"
)

// OnboardingAnswers collects interview answers one field per state transition.
// Nil string fields have not been answered yet.
type OnboardingAnswers struct {
	WakeTime         *string          `json:"wake_time,omitempty"`
	SleepTime        *string          `json:"sleep_time,omitempty"`
	Goals            *string          `json:"key_goals,omitempty"`
	FixedRoutines    *string          `json:"fixed_routines,omitempty"`
	ProductivityPeak ProductivityPeak `json:"productivity_peak,omitempty"`
	AvailableHours   int              `json:"available_hours"`
}

// UserProfile is the persisted projection of a completed interview.
type UserProfile struct {
	UserID           string           `json:"userId"`
	Username         string           `json:"username,omitempty"`
	WakeTime         string           `json:"wake_time"`
	SleepTime        string           `json:"sleep_time"`
	KeyGoals         string           `json:"key_goals"`
	FixedRoutines    string           `json:"fixed_routines"`
	ProductivityPeak ProductivityPeak `json:"productivity_peak"`
	AvailableHours   int              `json:"available_hours"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// NewUserProfile promotes answers into a profile. Unanswered fields become empty strings.
func NewUserProfile(userID string, answers OnboardingAnswers, now time.Time) UserProfile {
	peak := answers.ProductivityPeak
	if peak == "" {
		peak = PeakMorning
	}
	hours := answers.AvailableHours
	if hours < 0 {
		hours = 0
	}
	return UserProfile{
		UserID:           userID,
		WakeTime:         deref(answers.WakeTime),
		SleepTime:        deref(answers.SleepTime),
		KeyGoals:         deref(answers.Goals),
		FixedRoutines:    deref(answers.FixedRoutines),
		ProductivityPeak: peak,
		AvailableHours:   hours,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// DisplayName returns the username or a friendly placeholder.
func (p UserProfile) DisplayName() string {
	if p.Username == "" {
		return "there"
	}
	return p.Username
}

// FixedRoutine is a recurring activity anchored to a time of day.
type FixedRoutine struct {
	Name string `json:"name"`
	Time string `json:"time"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
