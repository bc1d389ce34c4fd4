package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/BTreeMap/HabitLens/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCompleter struct {
	reply    string
	err      error
	calls    int
	jsonMode []bool
	prompts  []string
}

func (m *mockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.calls++
	m.jsonMode = append(m.jsonMode, false)
	m.prompts = append(m.prompts, userPrompt)
	return m.reply, m.err
}

func (m *mockCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.calls++
	m.jsonMode = append(m.jsonMode, true)
	m.prompts = append(m.prompts, userPrompt)
	return m.reply, m.err
}

func TestParseTasks_ObjectResponse(t *testing.T) {
	llm := &mockCompleter{reply: `{"tasks":[{"name":"Study for exam","duration":120,"priority":"high","category":"study"}]}`}
	tasks, err := New(llm).ParseTasks(context.Background(), "study 2 hours")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.Task{Name: "Study for exam", DurationMinutes: 120, Priority: models.PriorityHigh, Category: "study"}, tasks[0])
	assert.Equal(t, []bool{true}, llm.jsonMode)
	assert.Contains(t, llm.prompts[0], `"study 2 hours"`)
}

func TestGenerateSchedule_EmbedsRoutinesAndParses(t *testing.T) {
	llm := &mockCompleter{reply: "Here you go:\n[{\"task\":\"Gym\",\"startTime\":\"18:00\",\"endTime\":\"19:00\",\"duration\":60}]"}
	routines := []models.FixedRoutine{{Name: "gym", Time: "6:00"}}

	items, err := New(llm).GenerateSchedule(context.Background(), []models.Task{{Name: "Read", DurationMinutes: 30}}, routines, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "18:00", items[0].Start)
	assert.Equal(t, 60, items[0].DurationMinutes)
	assert.Contains(t, llm.prompts[0], "- gym at 6:00")
	assert.Equal(t, []bool{false}, llm.jsonMode)
}

func TestGeneratePersonalizedSchedule_ParseError(t *testing.T) {
	llm := &mockCompleter{reply: "I cannot help with that."}
	_, err := New(llm).GeneratePersonalizedSchedule(context.Background(), models.UserProfile{UserID: "u1"})

	var perr *models.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "I cannot help with that.", perr.Raw)
	assert.Equal(t, 1, llm.calls, "no automatic retry against the completion service")
}

func TestGeneratePersonalizedSchedule_UpstreamError(t *testing.T) {
	upstream := &models.UpstreamError{StatusCode: 500, Message: "boom"}
	llm := &mockCompleter{err: upstream}
	_, err := New(llm).GeneratePersonalizedSchedule(context.Background(), models.UserProfile{})
	assert.True(t, errors.Is(err, upstream))
}

func TestAnalyzeHabits(t *testing.T) {
	habits := []models.Habit{
		{Name: "Read", Streak: 3, CompletedDays: 5, TotalDays: 10},
		{Name: "Run", Streak: 0, CompletedDays: 9, TotalDays: 10},
		{Name: "Meditate", Streak: 7, CompletedDays: 7, TotalDays: 7},
		{Name: "Journal", Streak: 1, CompletedDays: 0, TotalDays: 0},
	}
	a := AnalyzeHabits(habits)

	assert.Equal(t, 4, a.TotalHabits)
	// (50 + 90 + 100 + 0) / 4
	assert.Equal(t, 60, a.AverageConsistency)
	require.Len(t, a.ActiveStreaks, 3)
	assert.Equal(t, []string{"Meditate", "Read", "Journal"}, names(a.ActiveStreaks))
	assert.Equal(t, []string{"Meditate", "Run", "Read", "Journal"}, names(a.MostConsistent))
	assert.Len(t, a.Patterns, 4)
	// input order is untouched
	assert.Equal(t, "Read", habits[0].Name)
}

func TestAnalyzeHabits_TopFive(t *testing.T) {
	var habits []models.Habit
	for i := 1; i <= 8; i++ {
		habits = append(habits, models.Habit{Name: string(rune('A' + i)), Streak: i, CompletedDays: i, TotalDays: 10})
	}
	a := AnalyzeHabits(habits)
	assert.Len(t, a.ActiveStreaks, 5)
	assert.Len(t, a.MostConsistent, 5)
	assert.Equal(t, 8, a.ActiveStreaks[0].Streak)
}

func TestAnalyzeHabits_Empty(t *testing.T) {
	a := AnalyzeHabits(nil)
	require.NotNil(t, a)
	assert.Equal(t, 0, a.TotalHabits)
	assert.NotNil(t, a.ActiveStreaks)
}

func TestCalculateStats(t *testing.T) {
	items := []models.ScheduleItem{
		{Task: "Exercise", DurationMinutes: 60, Priority: models.PriorityHigh, Category: "exercise"},
		{Task: "Break", DurationMinutes: 15, Priority: models.PriorityLow, Category: models.CategoryBreak},
		{Task: "Study", DurationMinutes: 120, Priority: models.PriorityHigh, Category: "study"},
		{Task: "Walk", DurationMinutes: 30, Category: "exercise"},
	}
	stats := CalculateStats(items)
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 225, stats.TotalDuration)
	assert.Equal(t, 2, stats.HighPriorityTasks)
	assert.Equal(t, []string{"exercise", "break", "study"}, stats.Categories)

	empty := CalculateStats(nil)
	assert.Equal(t, 0, empty.TotalTasks)
	assert.Empty(t, empty.Categories)
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "7:05 AM", FormatTime("07:05"))
	assert.Equal(t, "12:00 PM", FormatTime("12:00"))
	assert.Equal(t, "12:30 AM", FormatTime("00:30"))
	assert.Equal(t, "11:15 PM", FormatTime("23:15"))
	assert.Equal(t, "soon", FormatTime("soon"))
}

func names(list []models.HabitSummary) []string {
	out := make([]string, len(list))
	for i, h := range list {
		out[i] = h.Name
	}
	return out
}
