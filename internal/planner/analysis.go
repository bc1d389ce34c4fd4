package planner

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/BTreeMap/HabitLens/internal/models"
)

// AnalyzeHabits summarizes habit history. The result is never nil.
func AnalyzeHabits(habits []models.Habit) *models.HabitAnalysis {
	analysis := &models.HabitAnalysis{
		TotalHabits:    len(habits),
		ActiveStreaks:  []models.HabitSummary{},
		MostConsistent: []models.HabitSummary{},
		Patterns:       []models.HabitSummary{},
	}
	if len(habits) == 0 {
		return analysis
	}

	summaries := make([]models.HabitSummary, len(habits))
	total := 0.0
	for i, h := range habits {
		c := h.Consistency()
		total += c
		summaries[i] = models.HabitSummary{
			Name:        h.Name,
			Icon:        h.Icon,
			Streak:      h.Streak,
			Consistency: c,
			IsActive:    h.Streak > 0,
		}
	}
	analysis.AverageConsistency = int(math.Round(total / float64(len(habits))))
	analysis.Patterns = summaries

	var active []models.HabitSummary
	for _, s := range summaries {
		if s.IsActive {
			active = append(active, s)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Streak > active[j].Streak })
	analysis.ActiveStreaks = top(active, habitSummaryLimit)

	byConsistency := append([]models.HabitSummary(nil), summaries...)
	sort.SliceStable(byConsistency, func(i, j int) bool { return byConsistency[i].Consistency > byConsistency[j].Consistency })
	analysis.MostConsistent = top(byConsistency, habitSummaryLimit)

	return analysis
}

func top(list []models.HabitSummary, n int) []models.HabitSummary {
	if len(list) > n {
		list = list[:n]
	}
	if list == nil {
		return []models.HabitSummary{}
	}
	return list
}

// CalculateStats summarizes a schedule. Items in the "break" category do not count as tasks.
func CalculateStats(items []models.ScheduleItem) models.ScheduleStats {
	stats := models.ScheduleStats{Categories: []string{}}
	seen := make(map[string]bool)
	for _, item := range items {
		if item.Category != models.CategoryBreak {
			stats.TotalTasks++
		}
		stats.TotalDuration += item.DurationMinutes
		if item.Priority == models.PriorityHigh {
			stats.HighPriorityTasks++
		}
		if item.Category != "" && !seen[item.Category] {
			seen[item.Category] = true
			stats.Categories = append(stats.Categories, item.Category)
		}
	}
	return stats
}

// FormatTime renders "HH:MM" as a 12-hour clock ("7:05 AM"). Unparseable input is returned as is.
func FormatTime(hhmm string) string {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return hhmm
	}
	return t.Format("3:04 PM")
}
