package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/HabitLens/internal/flow"
	"github.com/BTreeMap/HabitLens/internal/models"
)

// DefaultDailyPlanTimeout bounds one run of the daily plan job.
const DefaultDailyPlanTimeout = 10 * time.Minute

const dailyPlanHeader = "☀️ Good morning! Here is your plan for today."

// PlanRepository is the document access of the daily plan job.
type PlanRepository interface {
	ListSubscribers(ctx context.Context, channel string) ([]string, error)
	LoadUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SaveSchedule(ctx context.Context, userID, date string, items []models.ScheduleItem) (models.ScheduleDocument, error)
	Now() time.Time
}

// PlanGenerator produces a personalized schedule.
type PlanGenerator interface {
	GeneratePersonalizedSchedule(ctx context.Context, profile models.UserProfile) ([]models.ScheduleItem, error)
}

// PlanSender delivers a message to a channel user id.
type PlanSender interface {
	SendToUser(ctx context.Context, userID, body string) error
}

// DailyPlan regenerates and sends the schedule of every subscriber.
type DailyPlan struct {
	repo     PlanRepository
	planner  PlanGenerator
	sender   PlanSender
	channels []string
}

// NewDailyPlan creates the daily plan job for the given channels.
func NewDailyPlan(repo PlanRepository, planner PlanGenerator, sender PlanSender, channels []string) *DailyPlan {
	return &DailyPlan{repo: repo, planner: planner, sender: sender, channels: channels}
}

// Run sends today's plan to every subscriber. A failure for one user does not stop the others;
// the joined errors are returned with the number of plans delivered.
func (d *DailyPlan) Run(ctx context.Context) (int, error) {
	date := models.ScheduleDate(d.repo.Now())
	sent := 0
	var errs []error
	for _, channel := range d.channels {
		users, err := d.repo.ListSubscribers(ctx, channel)
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s subscribers: %w", channel, err))
			continue
		}
		for _, userID := range users {
			if err := ctx.Err(); err != nil {
				return sent, errors.Join(append(errs, err)...)
			}
			delivered, err := d.sendPlan(ctx, userID, date)
			if err != nil {
				slog.Error("DailyPlan.Run: plan failed", "userID", userID, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", userID, err))
				continue
			}
			if delivered {
				sent++
			}
		}
	}
	slog.Info("DailyPlan.Run: completed", "date", date, "sent", sent, "failed", len(errs))
	return sent, errors.Join(errs...)
}

// sendPlan reports false without error when the subscriber has no profile or the planner
// produced an empty schedule. Today's stored schedule is left untouched in both cases.
func (d *DailyPlan) sendPlan(ctx context.Context, userID, date string) (bool, error) {
	profile, err := d.repo.LoadUserProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	if profile == nil {
		slog.Warn("DailyPlan: subscriber has no profile, skipping", "userID", userID)
		return false, nil
	}
	items, err := d.planner.GeneratePersonalizedSchedule(ctx, *profile)
	if err != nil {
		return false, fmt.Errorf("generate schedule: %w", err)
	}
	if len(items) == 0 {
		slog.Warn("DailyPlan: empty schedule, skipping", "userID", userID)
		return false, nil
	}
	if _, err := d.repo.SaveSchedule(ctx, userID, date, items); err != nil {
		return false, fmt.Errorf("save schedule: %w", err)
	}
	if err := d.sender.SendToUser(ctx, userID, dailyPlanHeader+"\n\n"+flow.RenderSchedule(items)); err != nil {
		return false, fmt.Errorf("send plan: %w", err)
	}
	return true, nil
}

// Register adds the job to s under expr. Each run gets its own timeout derived from ctx.
func (d *DailyPlan) Register(ctx context.Context, s *Scheduler, expr string) error {
	if expr == "" {
		expr = DefaultDailyPlanCron
	}
	if err := s.AddJob(expr, func() {
		runCtx, cancel := context.WithTimeout(ctx, DefaultDailyPlanTimeout)
		defer cancel()
		if _, err := d.Run(runCtx); err != nil {
			slog.Warn("DailyPlan: run finished with errors", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("register daily plan %q: %w", expr, err)
	}
	slog.Info("DailyPlan registered", "cron", expr, "channels", d.channels)
	return nil
}
