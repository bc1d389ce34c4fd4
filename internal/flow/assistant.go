// Package flow drives the HabitLens conversation: the five-question onboarding interview and
// the ready-state router that turns follow-up requests into daily schedules.
//
// A conversation is a models.Session value. Assistant methods take the current session and
// return the next one together with the messages to display; they keep no per-user state.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/HabitLens/internal/extract"
	"github.com/BTreeMap/HabitLens/internal/models"
	"github.com/BTreeMap/HabitLens/internal/planner"
)

// Repository is the profile/schedule persistence used by the Assistant.
type Repository interface {
	SaveUserProfile(ctx context.Context, profile models.UserProfile) error
	LoadUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SaveSchedule(ctx context.Context, userID, date string, items []models.ScheduleItem) (models.ScheduleDocument, error)
	ListHabits(ctx context.Context, userID string) ([]models.Habit, error)
	RecordUtterance(ctx context.Context, userID, text string) error
}

// SchedulePlanner produces task lists and schedules.
type SchedulePlanner interface {
	ParseTasks(ctx context.Context, input string) ([]models.Task, error)
	GenerateSchedule(ctx context.Context, tasks []models.Task, routines []models.FixedRoutine, analysis *models.HabitAnalysis) ([]models.ScheduleItem, error)
	GeneratePersonalizedSchedule(ctx context.Context, profile models.UserProfile) ([]models.ScheduleItem, error)
}

// Assistant implements the onboarding state machine and the ready-state request router.
type Assistant struct {
	repo    Repository
	planner SchedulePlanner
	now     func() time.Time
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithClock sets the time source used for profile timestamps and schedule dates.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.now = now }
}

// NewAssistant creates an Assistant.
func NewAssistant(repo Repository, p SchedulePlanner, opts ...Option) *Assistant {
	a := &Assistant{repo: repo, planner: p, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Greet opens a conversation. Users with a stored profile go straight to the ready state,
// users in the middle of the interview get their pending question again, and everyone else
// is welcomed and asked to start onboarding.
func (a *Assistant) Greet(ctx context.Context, s models.Session) (models.Session, []models.ChatMessage, error) {
	profile, err := a.repo.LoadUserProfile(ctx, s.UserID)
	if err != nil {
		slog.Error("Assistant.Greet: profile lookup failed", "userID", s.UserID, "error", err)
		if q, ok := questionFor(s.State); ok {
			return s, say(q), err
		}
		// Only a lookup that found nothing may start onboarding.
		return s, say(genericFailure), err
	}
	if profile != nil {
		s.Profile = profile
		s.State = models.StateReady
		return s, say(returningUserGreeting(*profile)), nil
	}
	if q, ok := questionFor(s.State); ok {
		return s, say(q), nil
	}
	s.State = models.StateOnboarding
	return s, say(newUserGreeting), nil
}

// ProcessUserMessage applies one user message to the session. The returned messages are always
// displayable, also when an error is returned; on error the returned session is safe to retry
// from.
func (a *Assistant) ProcessUserMessage(ctx context.Context, s models.Session, text string) (models.Session, []models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s, nil, models.ErrEmptyMessage
	}
	slog.Debug("Assistant.ProcessUserMessage", "userID", s.UserID, "state", s.State)

	switch s.State {
	case models.StateIdle, models.StateOnboarding:
		if !wantsToStart(text) {
			s.State = models.StateOnboarding
			return s, say(startPrompt), nil
		}
		s.State = models.StateAwaitingWakeTime
		return s, say(questionWakeTime), nil

	case models.StateAwaitingWakeTime:
		wake := extract.Time(text)
		s.Answers.WakeTime = &wake
		s.State = models.StateAwaitingSleepTime
		return s, say(questionSleepTime), nil

	case models.StateAwaitingSleepTime:
		sleep := extract.Time(text)
		s.Answers.SleepTime = &sleep
		s.State = models.StateAwaitingGoals
		return s, say(questionGoals), nil

	case models.StateAwaitingGoals:
		s.Answers.Goals = &text
		s.State = models.StateAwaitingRoutines
		return s, say(questionRoutines), nil

	case models.StateAwaitingRoutines:
		s.Answers.FixedRoutines = &text
		s.State = models.StateAwaitingProductivity
		return s, say(questionPeak), nil

	case models.StateAwaitingProductivity:
		answers := s.Answers
		answers.ProductivityPeak = extract.ProductivityPeak(text)
		answers.AvailableHours = extract.AvailableHours(text)
		profile, msgs, err := a.completeOnboarding(ctx, s.UserID, answers)
		if err != nil {
			return s, msgs, err
		}
		s.Answers = answers
		s.Profile = &profile
		s.State = models.StateReady
		return s, msgs, nil

	case models.StateReady:
		return a.handleReady(ctx, s, text)

	case models.StateAwaitingTodayTasks:
		profile, msgs, err := a.profileFor(ctx, s)
		if profile == nil {
			return restartIfMissing(s, err), msgs, err
		}
		s.Profile = profile
		msgs, err = a.scheduleFromTasks(ctx, *profile, text)
		s.State = models.StateReady
		return s, msgs, err

	default:
		slog.Warn("Assistant.ProcessUserMessage: unknown state, restarting onboarding", "userID", s.UserID, "state", s.State)
		return restartIfMissing(s, nil), say(newUserGreeting), nil
	}
}

// CompleteOnboarding promotes answers to a profile, persists it and requests one personalized
// schedule. A profile persistence failure is returned as *models.PersistenceError. Schedule
// failures are logged and do not affect the saved profile.
func (a *Assistant) CompleteOnboarding(ctx context.Context, userID string, answers models.OnboardingAnswers) (models.UserProfile, error) {
	profile, _, err := a.completeOnboarding(ctx, userID, answers)
	return profile, err
}

func (a *Assistant) completeOnboarding(ctx context.Context, userID string, answers models.OnboardingAnswers) (models.UserProfile, []models.ChatMessage, error) {
	profile := models.NewUserProfile(userID, answers, a.now())
	if err := a.repo.SaveUserProfile(ctx, profile); err != nil {
		slog.Error("Assistant.CompleteOnboarding: profile save failed", "userID", userID, "error", err)
		var perr *models.PersistenceError
		if !errors.As(err, &perr) {
			err = &models.PersistenceError{Op: "save profile", ID: userID, Err: err}
		}
		return models.UserProfile{}, say(profileSaveFailed), err
	}
	slog.Info("Assistant.CompleteOnboarding: profile saved", "userID", userID, "peak", profile.ProductivityPeak, "hours", profile.AvailableHours)

	msgs := say(profileSummary(profile))
	items, err := a.planner.GeneratePersonalizedSchedule(ctx, profile)
	if err != nil {
		slog.Warn("Assistant.CompleteOnboarding: schedule generation failed", "userID", userID, "error", err)
	}
	msgs = append(msgs, a.presentSchedule(ctx, userID, items)...)
	msgs = append(msgs, models.AssistantMessage(onboardingFarewell))
	return profile, msgs, nil
}

// handleReady routes a ready-state message by intentRules.
func (a *Assistant) handleReady(ctx context.Context, s models.Session, text string) (models.Session, []models.ChatMessage, error) {
	in := classifyIntent(text)
	slog.Debug("Assistant.handleReady: routed", "userID", s.UserID, "intent", in)

	switch in {
	case intentUpdateToday:
		s.State = models.StateAwaitingTodayTasks
		return s, say(askTodayTasks), nil
	case intentReview:
		return s, say(reviewAcknowledged), nil
	}

	profile, msgs, err := a.profileFor(ctx, s)
	if profile == nil {
		return restartIfMissing(s, err), msgs, err
	}
	s.Profile = profile

	if in == intentRegenerate {
		items, err := a.planner.GeneratePersonalizedSchedule(ctx, *profile)
		if err != nil {
			slog.Warn("Assistant.handleReady: schedule generation failed", "userID", s.UserID, "error", err)
		}
		return s, a.presentSchedule(ctx, s.UserID, items), err
	}

	if err := a.repo.RecordUtterance(ctx, s.UserID, text); err != nil {
		slog.Warn("Assistant.handleReady: utterance not recorded", "userID", s.UserID, "error", err)
	}
	msgs, err = a.scheduleFromTasks(ctx, *profile, text)
	return s, msgs, err
}

// profileFor returns the session profile, loading it when the session was restored without
// one. A user whose profile has vanished is sent back to onboarding and gets a nil profile.
func (a *Assistant) profileFor(ctx context.Context, s models.Session) (*models.UserProfile, []models.ChatMessage, error) {
	if s.Profile != nil {
		return s.Profile, nil, nil
	}
	profile, err := a.repo.LoadUserProfile(ctx, s.UserID)
	if err != nil {
		return nil, say(genericFailure), fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		return nil, say(newUserGreeting), nil
	}
	return profile, nil, nil
}

// scheduleFromTasks parses a free-text task description and schedules it around the
// profile's fixed routines, using the user's habit analysis when there are habits.
func (a *Assistant) scheduleFromTasks(ctx context.Context, profile models.UserProfile, text string) ([]models.ChatMessage, error) {
	tasks, err := a.planner.ParseTasks(ctx, text)
	if err != nil {
		slog.Warn("Assistant.scheduleFromTasks: task parsing failed", "userID", profile.UserID, "error", err)
		return say(taskParseFailed), err
	}
	if len(tasks) == 0 {
		return say(noTasksFound), nil
	}

	routines := extract.FixedRoutines(profile.FixedRoutines)
	var analysis *models.HabitAnalysis
	habits, err := a.repo.ListHabits(ctx, profile.UserID)
	if err != nil {
		slog.Warn("Assistant.scheduleFromTasks: habits unavailable", "userID", profile.UserID, "error", err)
	} else if len(habits) > 0 {
		analysis = planner.AnalyzeHabits(habits)
	}

	items, err := a.planner.GenerateSchedule(ctx, tasks, routines, analysis)
	if err != nil {
		slog.Warn("Assistant.scheduleFromTasks: schedule generation failed", "userID", profile.UserID, "error", err)
	}
	return a.presentSchedule(ctx, profile.UserID, items), err
}

// presentSchedule renders items and saves them as today's schedule.
func (a *Assistant) presentSchedule(ctx context.Context, userID string, items []models.ScheduleItem) []models.ChatMessage {
	msgs := say(RenderSchedule(items))
	if len(items) == 0 {
		return msgs
	}
	date := models.ScheduleDate(a.now())
	if _, err := a.repo.SaveSchedule(ctx, userID, date, items); err != nil {
		slog.Error("Assistant.presentSchedule: schedule save failed", "userID", userID, "date", date, "error", err)
		msgs = append(msgs, models.AssistantMessage(scheduleSaveFailed))
	}
	return msgs
}

// restartIfMissing resets the session to the start of onboarding unless err is set.
func restartIfMissing(s models.Session, err error) models.Session {
	if err != nil {
		return s
	}
	restarted := models.NewSession(s.UserID)
	restarted.State = models.StateOnboarding
	return restarted
}
