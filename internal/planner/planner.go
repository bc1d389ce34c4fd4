// Package planner turns tasks, fixed routines and user profiles into daily schedules.
//
// Prompts are assembled by the Build* functions, sent through a Completer and recovered
// with the genai JSON array parser.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/HabitLens/internal/genai"
	"github.com/BTreeMap/HabitLens/internal/models"
)

// Completer is the text completion service used by the planner.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Planner generates schedules through a completion service.
type Planner struct {
	llm Completer
}

// New creates a Planner.
func New(llm Completer) *Planner {
	return &Planner{llm: llm}
}

// ParseTasks structures a free-text description into tasks.
func (p *Planner) ParseTasks(ctx context.Context, input string) ([]models.Task, error) {
	raw, err := p.llm.CompleteJSON(ctx, TaskParseSystemPrompt, BuildTaskParseRequest(input))
	if err != nil {
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	tasks, err := genai.ExtractArray[models.Task](raw, genai.FieldTasks)
	if err != nil {
		slog.Warn("Planner.ParseTasks: unparseable completion", "error", err, "chars", len(raw))
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	slog.Debug("Planner.ParseTasks: tasks parsed", "count", len(tasks))
	return tasks, nil
}

// GenerateSchedule schedules tasks around fixed routines. analysis may be nil.
func (p *Planner) GenerateSchedule(ctx context.Context, tasks []models.Task, routines []models.FixedRoutine, analysis *models.HabitAnalysis) ([]models.ScheduleItem, error) {
	raw, err := p.llm.Complete(ctx, ScheduleSystemPrompt, BuildScheduleRequest(tasks, routines, analysis))
	if err != nil {
		return nil, fmt.Errorf("generate schedule: %w", err)
	}
	items, err := genai.ExtractArray[models.ScheduleItem](raw, genai.FieldSchedule)
	if err != nil {
		slog.Warn("Planner.GenerateSchedule: unparseable completion", "error", err, "chars", len(raw))
		return nil, fmt.Errorf("generate schedule: %w", err)
	}
	slog.Debug("Planner.GenerateSchedule: schedule generated", "tasks", len(tasks), "routines", len(routines), "items", len(items))
	return items, nil
}

// GeneratePersonalizedSchedule builds a schedule from the interview profile.
func (p *Planner) GeneratePersonalizedSchedule(ctx context.Context, profile models.UserProfile) ([]models.ScheduleItem, error) {
	raw, err := p.llm.Complete(ctx, PersonalizedSystemPrompt, BuildPersonalizedRequest(profile))
	if err != nil {
		return nil, fmt.Errorf("generate personalized schedule: %w", err)
	}
	items, err := genai.ExtractArray[models.ScheduleItem](raw, genai.FieldSchedule)
	if err != nil {
		slog.Warn("Planner.GeneratePersonalizedSchedule: unparseable completion", "error", err, "userID", profile.UserID)
		return nil, fmt.Errorf("generate personalized schedule: %w", err)
	}
	slog.Debug("Planner.GeneratePersonalizedSchedule: schedule generated", "userID", profile.UserID, "items", len(items))
	return items, nil
}
