package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		text string
		want error
	}{
		{"start", nil},
		{"   ", ErrEmptyMessage},
		{strings.Repeat("a", MaxMessageLength+1), ErrMessageTooLong},
	}
	for _, tt := range tests {
		r := ChatRequest{Text: tt.text}
		if err := r.Validate(); !errors.Is(err, tt.want) {
			t.Errorf("Validate(%.10q) = %v, want %v", tt.text, err, tt.want)
		}
	}
}

func TestHabitRequestValidate(t *testing.T) {
	if err := (&HabitRequest{Name: "Read"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (&HabitRequest{Name: " "}).Validate(); !errors.Is(err, ErrEmptyHabitName) {
		t.Errorf("expected ErrEmptyHabitName, got %v", err)
	}
	if err := (&HabitRequest{Name: strings.Repeat("x", MaxHabitNameLength+1)}).Validate(); !errors.Is(err, ErrHabitNameTooLong) {
		t.Errorf("expected ErrHabitNameTooLong, got %v", err)
	}
}

func TestScheduleItemAcceptsBothShapes(t *testing.T) {
	var items []ScheduleItem
	data := `[
		{"task":"Gym","start":"07:00","end":"08:00","comment":"Warm up"},
		{"name":"Study","startTime":"09:00","endTime":"11:00","duration":"120","priority":"HIGH"}
	]`
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].Task != "Gym" || items[0].Start != "07:00" || items[0].Comment != "Warm up" {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[1].Task != "Study" || items[1].End != "11:00" || items[1].DurationMinutes != 120 || items[1].Priority != PriorityHigh {
		t.Errorf("unexpected second item: %+v", items[1])
	}
}

func TestTaskAcceptsAliases(t *testing.T) {
	var task Task
	if err := json.Unmarshal([]byte(`{"task":"Laundry","duration":45.0,"priority":"Low"}`), &task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Name != "Laundry" || task.DurationMinutes != 45 || task.Priority != PriorityLow {
		t.Errorf("unexpected task: %+v", task)
	}
}

func TestNewUserProfile(t *testing.T) {
	wake := "7am"
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	p := NewUserProfile("u1", OnboardingAnswers{WakeTime: &wake, AvailableHours: -2}, now)
	if p.WakeTime != "7am" || p.SleepTime != "" {
		t.Errorf("unexpected times: %+v", p)
	}
	if p.ProductivityPeak != PeakMorning {
		t.Errorf("expected default peak morning, got %s", p.ProductivityPeak)
	}
	if p.AvailableHours != 0 {
		t.Errorf("expected hours clamped to 0, got %d", p.AvailableHours)
	}
	if p.DisplayName() != "there" {
		t.Errorf("expected placeholder name, got %q", p.DisplayName())
	}
}

func TestScheduleDocumentID(t *testing.T) {
	date := ScheduleDate(time.Date(2025, 1, 2, 23, 0, 0, 0, time.UTC))
	if got := ScheduleDocumentID("u1", date); got != "u1_2025-01-02" {
		t.Errorf("ScheduleDocumentID = %q", got)
	}
	if err := ValidateScheduleDate("2025-13-01"); !errors.Is(err, ErrInvalidScheduleDay) {
		t.Errorf("expected ErrInvalidScheduleDay, got %v", err)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	perr := &ParseError{Raw: "x", Field: "tasks", Err: errors.New("bad element")}
	if !errors.Is(perr, ErrUnparseable) {
		t.Error("ParseError should match ErrUnparseable")
	}
	wrapped := &PersistenceError{Op: "save profile", Collection: "user_profiles", ID: "u1", Err: ErrStoreUnavailable}
	if !errors.Is(wrapped, ErrStoreUnavailable) {
		t.Error("PersistenceError should unwrap to its cause")
	}
	if got := wrapped.Error(); got != "save profile user_profiles/u1: store unavailable" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestConsistency(t *testing.T) {
	if got := (Habit{CompletedDays: 3, TotalDays: 4}).Consistency(); got != 75 {
		t.Errorf("Consistency = %v, want 75", got)
	}
	if got := (Habit{}).Consistency(); got != 0 {
		t.Errorf("Consistency of new habit = %v, want 0", got)
	}
}
