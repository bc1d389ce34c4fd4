package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Priority ranks a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// CategoryBreak marks schedule items that are rest periods.
const CategoryBreak = "break"

// Task is a unit of work extracted from free text.
type Task struct {
	Name            string   `json:"name"`
	DurationMinutes int      `json:"durationMinutes"`
	Priority        Priority `json:"priority,omitempty"`
	Category        string   `json:"category,omitempty"`
}

// UnmarshalJSON accepts the field spellings completion models emit for tasks.
func (t *Task) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name            string      `json:"name"`
		Task            string      `json:"task"`
		Duration        flexibleInt `json:"duration"`
		DurationMinutes flexibleInt `json:"durationMinutes"`
		Priority        Priority    `json:"priority"`
		Category        string      `json:"category"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task{
		Name:            firstNonEmpty(raw.Name, raw.Task),
		DurationMinutes: int(raw.DurationMinutes),
		Priority:        Priority(strings.ToLower(string(raw.Priority))),
		Category:        raw.Category,
	}
	if t.DurationMinutes == 0 {
		t.DurationMinutes = int(raw.Duration)
	}
	return nil
}

// ScheduleItem is one block of a generated daily schedule.
// Start and End are "HH:MM" display strings; ordering is not enforced.
type ScheduleItem struct {
	Task            string   `json:"task"`
	Start           string   `json:"start"`
	End             string   `json:"end"`
	DurationMinutes int      `json:"durationMinutes,omitempty"`
	Priority        Priority `json:"priority,omitempty"`
	Category        string   `json:"category,omitempty"`
	Comment         string   `json:"comment,omitempty"`
}

// UnmarshalJSON accepts both schedule shapes the completion service produces
// ({task,start,end} and {task,startTime,endTime,duration}).
func (s *ScheduleItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Task            string      `json:"task"`
		Name            string      `json:"name"`
		Start           string      `json:"start"`
		StartTime       string      `json:"startTime"`
		End             string      `json:"end"`
		EndTime         string      `json:"endTime"`
		Duration        flexibleInt `json:"duration"`
		DurationMinutes flexibleInt `json:"durationMinutes"`
		Priority        Priority    `json:"priority"`
		Category        string      `json:"category"`
		Comment         string      `json:"comment"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ScheduleItem{
		Task:            firstNonEmpty(raw.Task, raw.Name),
		Start:           firstNonEmpty(raw.Start, raw.StartTime),
		End:             firstNonEmpty(raw.End, raw.EndTime),
		DurationMinutes: int(raw.DurationMinutes),
		Priority:        Priority(strings.ToLower(string(raw.Priority))),
		Category:        raw.Category,
		Comment:         raw.Comment,
	}
	if s.DurationMinutes == 0 {
		s.DurationMinutes = int(raw.Duration)
	}
	return nil
}

// ScheduleDocument is the stored schedule of one user for one day.
type ScheduleDocument struct {
	UserID    string         `json:"userId"`
	Date      string         `json:"date"`
	Items     []ScheduleItem `json:"schedule"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ScheduleDocumentID returns the document key "{userId}_{date}".
func ScheduleDocumentID(userID, date string) string {
	return userID + "_" + date
}

// ScheduleStats summarizes a schedule for display.
type ScheduleStats struct {
	TotalTasks        int      `json:"totalTasks"`
	TotalDuration     int      `json:"totalDuration"`
	HighPriorityTasks int      `json:"highPriorityTasks"`
	Categories        []string `json:"categories"`
}

// flexibleInt decodes a JSON number or a numeric string. Anything else decodes to zero.
type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*f = flexibleInt(n)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexibleInt(int(v))
		return nil
	}
	*f = 0
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
