package planner

import (
	"strings"
	"testing"

	"github.com/BTreeMap/HabitLens/internal/models"
)

func TestBuildScheduleRequest_NoRoutines(t *testing.T) {
	out := BuildScheduleRequest([]models.Task{{Name: "Read", DurationMinutes: 30, Priority: models.PriorityLow}}, nil, nil)
	if !strings.Contains(out, NoFixedRoutinesText) {
		t.Errorf("expected %q in prompt", NoFixedRoutinesText)
	}
	if !strings.Contains(out, `"name": "Read"`) {
		t.Errorf("expected task block in prompt, got:\n%s", out)
	}
	if strings.Contains(out, "Habit Patterns") {
		t.Error("habit block must be omitted without analysis")
	}
}

func TestBuildScheduleRequest_Deterministic(t *testing.T) {
	tasks := []models.Task{{Name: "Study", DurationMinutes: 120, Priority: models.PriorityHigh, Category: "study"}}
	routines := []models.FixedRoutine{{Name: "class", Time: "9:30"}, {Name: "gym", Time: "6:00"}}
	analysis := AnalyzeHabits([]models.Habit{{Name: "Read", Streak: 2, CompletedDays: 4, TotalDays: 5}})

	first := BuildScheduleRequest(tasks, routines, analysis)
	second := BuildScheduleRequest(tasks, routines, analysis)
	if first != second {
		t.Fatal("expected identical prompts for identical inputs")
	}
	if strings.Index(first, "- class at 9:30") > strings.Index(first, "- gym at 6:00") {
		t.Error("routines must keep their order")
	}
	for _, want := range []string{"User's Habit Patterns", "Read (2 days)", "Read (80%)", "Average consistency: 80%"} {
		if !strings.Contains(first, want) {
			t.Errorf("expected %q in prompt:\n%s", want, first)
		}
	}
}

func TestBuildScheduleRequest_EmptyHabitLists(t *testing.T) {
	out := BuildScheduleRequest(nil, nil, AnalyzeHabits(nil))
	if !strings.Contains(out, "- Active streaks: none") {
		t.Errorf("expected placeholder for empty streaks:\n%s", out)
	}
	if !strings.Contains(out, "Tasks to schedule:\n[]") {
		t.Errorf("expected empty task block:\n%s", out)
	}
}

func TestBuildPersonalizedRequest(t *testing.T) {
	profile := models.UserProfile{
		WakeTime:         "7am",
		SleepTime:        "11pm",
		KeyGoals:         "study, exercise",
		FixedRoutines:    "no routines",
		ProductivityPeak: models.PeakMorning,
		AvailableHours:   5,
	}
	out := BuildPersonalizedRequest(profile)
	for _, want := range []string{
		"- Wake time: 7am",
		"- Sleep time: 11pm",
		"- Key goals: study, exercise",
		"- Fixed routines: no routines",
		"- Productivity peak: morning",
		"- Available hours: 5 hours",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in prompt", want)
		}
	}
}

func TestBuildTaskParseRequest_QuotesInput(t *testing.T) {
	out := BuildTaskParseRequest(`finish "report" and call mom`)
	if !strings.Contains(out, `User input: "finish \"report\" and call mom"`) {
		t.Errorf("expected quoted input, got:\n%s", out)
	}
}
