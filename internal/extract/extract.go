// Package extract turns free-text onboarding answers into times, routines and preferences.
//
// Every function is best effort and never fails: when nothing recognizable is found the
// caller gets the raw text back (or a documented default).
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/BTreeMap/HabitLens/internal/models"
)

// timePatterns are tried in order; the first match wins.
// H:MM comes first so "9:30 am" is returned whole instead of "30 am".
var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}(?:\s*[ap]m\b)?`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s*[ap]m\b`),
	regexp.MustCompile(`(?i)wake.*?\d{1,2}`),
	regexp.MustCompile(`(?i)bed.*?\d{1,2}`),
}

var (
	routinePattern = regexp.MustCompile(`(?i)(\w+)\s+at\s+(\d{1,2}):?(\d{2})?\s*(am|pm)?`)
	integerPattern = regexp.MustCompile(`\d+`)
)

// Time returns the first time-like substring of text, or text unchanged when there is none.
// The result is a display string: no time zone and no 24-hour normalization.
func Time(text string) string {
	for _, p := range timePatterns {
		if m := p.FindString(text); m != "" {
			return m
		}
	}
	return text
}

// FixedRoutines parses "<name> at <H>[:MM][am|pm]" occurrences in order of appearance.
// Any text containing "no" (case-insensitive) is treated as "no fixed routines".
func FixedRoutines(text string) []models.FixedRoutine {
	if strings.TrimSpace(text) == "" || strings.Contains(strings.ToLower(text), "no") {
		return []models.FixedRoutine{}
	}

	matches := routinePattern.FindAllStringSubmatch(text, -1)
	routines := make([]models.FixedRoutine, 0, len(matches))
	for _, m := range matches {
		minute := m[3]
		if minute == "" {
			minute = "00"
		}
		routines = append(routines, models.FixedRoutine{
			Name: m[1],
			Time: m[2] + ":" + minute,
		})
	}
	return routines
}

// ProductivityPeak classifies an answer into morning, afternoon or night. Default is morning.
func ProductivityPeak(text string) models.ProductivityPeak {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "afternoon"):
		return models.PeakAfternoon
	case strings.Contains(lower, "night"), strings.Contains(lower, "evening"):
		return models.PeakNight
	default:
		return models.PeakMorning
	}
}

// AvailableHours returns the first integer in text, or models.DefaultAvailableHours.
func AvailableHours(text string) int {
	m := integerPattern.FindString(text)
	if m == "" {
		return models.DefaultAvailableHours
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		// too many digits for an int
		return models.DefaultAvailableHours
	}
	return n
}
