package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BTreeMap/HabitLens/internal/models"
)

// System prompts sent with every request. The service is told to answer with a JSON array
// only; the parser does not rely on that.
const (
	TaskParseSystemPrompt    = "You are a helpful assistant that returns only valid JSON. Return the tasks as a JSON array (or an object with a \"tasks\" array). Never include any text outside the JSON."
	ScheduleSystemPrompt     = "You are a helpful schedule assistant that returns only valid JSON arrays. Never include any text outside the JSON array."
	PersonalizedSystemPrompt = "You are HabitLens.AI, a friendly AI assistant. Return only valid JSON arrays. Never include any text outside the JSON array."
)

// NoFixedRoutinesText is embedded when the user has no fixed routines.
const NoFixedRoutinesText = "No fixed routines specified."

// habitSummaryLimit caps the streak and consistency lists of the habit block.
const habitSummaryLimit = 5

// BuildTaskParseRequest asks the completion service to structure a free-text task list.
func BuildTaskParseRequest(input string) string {
	var b strings.Builder
	b.WriteString("You are a task parsing assistant. Parse the following user input into structured tasks.\n")
	b.WriteString("Return ONLY a valid JSON array of tasks, no other text. Each task should have:\n")
	b.WriteString("- name: task name\n")
	b.WriteString("- duration: estimated duration in minutes (number)\n")
	b.WriteString("- priority: \"high\", \"medium\", or \"low\"\n")
	b.WriteString("- category: category like \"study\", \"exercise\", \"work\", \"personal\", etc.\n\n")
	fmt.Fprintf(&b, "User input: %q\n\n", input)
	b.WriteString("Example format:\n")
	b.WriteString("[\n")
	b.WriteString("  {\"name\": \"Study for exam\", \"duration\": 120, \"priority\": \"high\", \"category\": \"study\"},\n")
	b.WriteString("  {\"name\": \"Gym workout\", \"duration\": 60, \"priority\": \"medium\", \"category\": \"exercise\"}\n")
	b.WriteString("]")
	return b.String()
}

// BuildScheduleRequest assembles the prompt for scheduling a task list.
// analysis is optional; when nil the habit block is omitted.
func BuildScheduleRequest(tasks []models.Task, routines []models.FixedRoutine, analysis *models.HabitAnalysis) string {
	var b strings.Builder
	b.WriteString("You are an intelligent schedule assistant. Create an optimal daily schedule.\n\n")

	b.WriteString("Tasks to schedule:\n")
	b.WriteString(tasksBlock(tasks))
	b.WriteString("\n\n")

	b.WriteString(routinesBlock(routines))
	b.WriteString("\n")

	if analysis != nil {
		b.WriteString("\n")
		b.WriteString(habitBlock(analysis))
	}

	b.WriteString("\nCreate a schedule that:\n")
	b.WriteString("1. Respects fixed routines (if any)\n")
	b.WriteString("2. Considers task priorities\n")
	b.WriteString("3. Suggests optimal times based on productivity patterns\n")
	b.WriteString("4. Includes breaks between tasks\n")
	b.WriteString("5. Groups similar tasks together when possible\n\n")

	b.WriteString("Return ONLY a valid JSON array of scheduled items, no other text. Each item should have:\n")
	b.WriteString("- task: task name\n")
	b.WriteString("- startTime: start time in HH:MM format (24-hour)\n")
	b.WriteString("- endTime: end time in HH:MM format (24-hour)\n")
	b.WriteString("- duration: duration in minutes\n")
	b.WriteString("- priority: task priority\n")
	b.WriteString("- category: task category\n\n")
	b.WriteString("Example format:\n")
	b.WriteString("[\n")
	b.WriteString("  {\"task\": \"Morning Exercise\", \"startTime\": \"07:00\", \"endTime\": \"08:00\", \"duration\": 60, \"priority\": \"high\", \"category\": \"exercise\"},\n")
	b.WriteString("  {\"task\": \"Break\", \"startTime\": \"08:00\", \"endTime\": \"08:15\", \"duration\": 15, \"priority\": \"low\", \"category\": \"break\"}\n")
	b.WriteString("]")
	return b.String()
}

// BuildPersonalizedRequest assembles the prompt for a schedule derived from a profile alone.
func BuildPersonalizedRequest(profile models.UserProfile) string {
	var b strings.Builder
	b.WriteString("You are HabitLens.AI, a friendly AI assistant that creates personalized daily schedules.\n\n")
	b.WriteString("User Profile:\n")
	fmt.Fprintf(&b, "- Wake time: %s\n", profile.WakeTime)
	fmt.Fprintf(&b, "- Sleep time: %s\n", profile.SleepTime)
	fmt.Fprintf(&b, "- Key goals: %s\n", profile.KeyGoals)
	fmt.Fprintf(&b, "- Fixed routines: %s\n", profile.FixedRoutines)
	fmt.Fprintf(&b, "- Productivity peak: %s\n", profile.ProductivityPeak)
	fmt.Fprintf(&b, "- Available hours: %d hours\n\n", profile.AvailableHours)

	b.WriteString("Create a personalized daily schedule that:\n")
	b.WriteString("1. Respects wake time and sleep time\n")
	b.WriteString("2. Includes their key goals\n")
	b.WriteString("3. Incorporates fixed routines at specified times\n")
	b.WriteString("4. Schedules high-priority tasks during productivity peak\n")
	b.WriteString("5. Balances work with rest and breaks\n")
	b.WriteString("6. Uses the available hours effectively\n\n")

	b.WriteString("Return ONLY a valid JSON array, no other text. Each item should have:\n")
	b.WriteString("- task: task name\n")
	b.WriteString("- start: start time in HH:MM format (24-hour)\n")
	b.WriteString("- end: end time in HH:MM format (24-hour)\n")
	b.WriteString("- comment: optional motivational comment\n\n")
	b.WriteString("Example format:\n")
	b.WriteString("[\n")
	b.WriteString("  {\"task\": \"Morning Exercise\", \"start\": \"07:00\", \"end\": \"08:00\", \"comment\": \"Start your day strong!\"},\n")
	b.WriteString("  {\"task\": \"Study Session\", \"start\": \"09:00\", \"end\": \"11:00\", \"comment\": \"Focus time - you've got this!\"}\n")
	b.WriteString("]")
	return b.String()
}

func tasksBlock(tasks []models.Task) string {
	if tasks == nil {
		tasks = []models.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		// Task has only plain fields; this cannot fail in practice.
		return "[]"
	}
	return string(data)
}

func routinesBlock(routines []models.FixedRoutine) string {
	if len(routines) == 0 {
		return NoFixedRoutinesText
	}
	var b strings.Builder
	b.WriteString("Fixed Routines (must be scheduled at these times):")
	for _, r := range routines {
		fmt.Fprintf(&b, "\n- %s at %s", r.Name, r.Time)
	}
	return b.String()
}

func habitBlock(a *models.HabitAnalysis) string {
	var b strings.Builder
	b.WriteString("User's Habit Patterns:\n")
	fmt.Fprintf(&b, "- Total habits: %d\n", a.TotalHabits)
	fmt.Fprintf(&b, "- Average consistency: %d%%\n", a.AverageConsistency)
	b.WriteString("- Active streaks: ")
	b.WriteString(joinSummaries(a.ActiveStreaks, func(h models.HabitSummary) string {
		return fmt.Sprintf("%s (%d days)", h.Name, h.Streak)
	}))
	b.WriteString("\n- Most consistent habits: ")
	b.WriteString(joinSummaries(a.MostConsistent, func(h models.HabitSummary) string {
		return fmt.Sprintf("%s (%.0f%%)", h.Name, h.Consistency)
	}))
	b.WriteString("\n")
	return b.String()
}

func joinSummaries(list []models.HabitSummary, format func(models.HabitSummary) string) string {
	if len(list) == 0 {
		return "none"
	}
	if len(list) > habitSummaryLimit {
		list = list[:habitSummaryLimit]
	}
	parts := make([]string, len(list))
	for i, h := range list {
		parts[i] = format(h)
	}
	return strings.Join(parts, ", ")
}
