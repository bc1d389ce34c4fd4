package models

import (
	"strings"
	"time"
)

// Habit is a tracked daily habit with its completion history counters.
type Habit struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Name          string     `json:"name"`
	Icon          string     `json:"icon,omitempty"`
	Streak        int        `json:"streak"`
	CompletedDays int        `json:"completedDays"`
	TotalDays     int        `json:"totalDays"`
	LastCompleted *time.Time `json:"lastCompleted,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Consistency returns the completion percentage of the habit.
func (h Habit) Consistency() float64 {
	if h.TotalDays <= 0 {
		return 0
	}
	return float64(h.CompletedDays) / float64(h.TotalDays) * 100
}

// HabitRequest is the payload of POST /habits.
type HabitRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Validate checks the habit request.
func (r *HabitRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return ErrEmptyHabitName
	}
	if len(name) > MaxHabitNameLength {
		return ErrHabitNameTooLong
	}
	return nil
}

// HabitSummary is a habit as seen by the habit analysis.
type HabitSummary struct {
	Name        string  `json:"name"`
	Icon        string  `json:"icon,omitempty"`
	Streak      int     `json:"streak"`
	Consistency float64 `json:"consistency"`
	IsActive    bool    `json:"isActive"`
}

// HabitAnalysis is the aggregate handed to the scheduler as optional context.
type HabitAnalysis struct {
	TotalHabits        int            `json:"totalHabits"`
	AverageConsistency int            `json:"averageConsistency"`
	ActiveStreaks      []HabitSummary `json:"activeStreaks"`
	MostConsistent     []HabitSummary `json:"mostProductiveHabits"`
	Patterns           []HabitSummary `json:"habitPatterns"`
}
