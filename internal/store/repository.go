package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/HabitLens/internal/models"
	"github.com/google/uuid"
)

// Collection names.
const (
	CollectionProfiles    = "user_profiles"
	CollectionSchedules   = "schedules"
	CollectionSessions    = "sessions"
	CollectionHabits      = "habits"
	CollectionUtterances  = "utterances"
	CollectionSubscribers = "subscribers"
)

// MaxStoredUtterances bounds the per-user utterance history kept for habit analysis.
const MaxStoredUtterances = 50

// Utterance is a raw free-text message kept for habit analysis.
type Utterance struct {
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Repository is the typed profile/schedule adapter over a DocumentStore.
// Every failure is returned as *models.PersistenceError.
type Repository struct {
	docs DocumentStore
	now  func() time.Time
}

// NewRepository creates a Repository over docs.
func NewRepository(docs DocumentStore) *Repository {
	return &Repository{docs: docs, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// Now returns the repository's current time.
func (r *Repository) Now() time.Time {
	return r.now()
}

// Close closes the underlying store.
func (r *Repository) Close() error {
	return r.docs.Close()
}

// SaveUserProfile upserts the profile keyed by its user id.
func (r *Repository) SaveUserProfile(ctx context.Context, profile models.UserProfile) error {
	profile.UpdatedAt = r.now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = profile.UpdatedAt
	}
	if err := r.put(ctx, "save profile", CollectionProfiles, profile.UserID, profile); err != nil {
		return err
	}
	slog.Debug("Repository.SaveUserProfile: saved", "userID", profile.UserID)
	return nil
}

// LoadUserProfile returns the stored profile, or nil when the user has none.
func (r *Repository) LoadUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	found, err := r.get(ctx, "load profile", CollectionProfiles, userID, &profile)
	if err != nil || !found {
		return nil, err
	}
	return &profile, nil
}

// SaveSchedule stores items as the schedule of userID for date (YYYY-MM-DD).
func (r *Repository) SaveSchedule(ctx context.Context, userID, date string, items []models.ScheduleItem) (models.ScheduleDocument, error) {
	id := models.ScheduleDocumentID(userID, date)
	now := r.now()
	doc := models.ScheduleDocument{UserID: userID, Date: date, Items: items, CreatedAt: now, UpdatedAt: now}

	existing, err := r.LoadSchedule(ctx, userID, date)
	if err != nil {
		return models.ScheduleDocument{}, err
	}
	if existing != nil && !existing.CreatedAt.IsZero() {
		doc.CreatedAt = existing.CreatedAt
	}
	if err := r.put(ctx, "save schedule", CollectionSchedules, id, doc); err != nil {
		return models.ScheduleDocument{}, err
	}
	slog.Debug("Repository.SaveSchedule: saved", "userID", userID, "date", date, "items", len(items))
	return doc, nil
}

// LoadSchedule returns the stored schedule, or nil when there is none for that day.
func (r *Repository) LoadSchedule(ctx context.Context, userID, date string) (*models.ScheduleDocument, error) {
	var doc models.ScheduleDocument
	found, err := r.get(ctx, "load schedule", CollectionSchedules, models.ScheduleDocumentID(userID, date), &doc)
	if err != nil || !found {
		return nil, err
	}
	return &doc, nil
}

// SaveSession persists a conversation session.
func (r *Repository) SaveSession(ctx context.Context, session models.Session) error {
	// The answers object is replaced whole; profile is cleared explicitly when absent.
	fields, err := toFields(session)
	if err != nil {
		return &models.PersistenceError{Op: "save session", Collection: CollectionSessions, ID: session.UserID, Err: err}
	}
	if session.Profile == nil {
		fields["profile"] = nil
	}
	if err := r.docs.Upsert(ctx, CollectionSessions, session.UserID, fields); err != nil {
		return &models.PersistenceError{Op: "save session", Collection: CollectionSessions, ID: session.UserID, Err: err}
	}
	return nil
}

// LoadSession returns the stored session, or nil when there is none.
func (r *Repository) LoadSession(ctx context.Context, userID string) (*models.Session, error) {
	var session models.Session
	found, err := r.get(ctx, "load session", CollectionSessions, userID, &session)
	if err != nil || !found {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes the stored session.
func (r *Repository) DeleteSession(ctx context.Context, userID string) error {
	if err := r.docs.Delete(ctx, CollectionSessions, userID); err != nil {
		return &models.PersistenceError{Op: "delete session", Collection: CollectionSessions, ID: userID, Err: err}
	}
	return nil
}

type habitsDocument struct {
	UserID string         `json:"userId"`
	Habits []models.Habit `json:"habits"`
}

// ListHabits returns the habits of userID in creation order.
func (r *Repository) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	var doc habitsDocument
	if _, err := r.get(ctx, "list habits", CollectionHabits, userID, &doc); err != nil {
		return nil, err
	}
	if doc.Habits == nil {
		return []models.Habit{}, nil
	}
	return doc.Habits, nil
}

// AddHabit creates a habit with a fresh id and zeroed counters.
func (r *Repository) AddHabit(ctx context.Context, userID string, req models.HabitRequest) (models.Habit, error) {
	habits, err := r.ListHabits(ctx, userID)
	if err != nil {
		return models.Habit{}, err
	}
	habit := models.Habit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		Icon:      req.Icon,
		CreatedAt: r.now(),
	}
	habits = append(habits, habit)
	if err := r.put(ctx, "add habit", CollectionHabits, userID, habitsDocument{UserID: userID, Habits: habits}); err != nil {
		return models.Habit{}, err
	}
	slog.Debug("Repository.AddHabit: added", "userID", userID, "habitID", habit.ID)
	return habit, nil
}

// CompleteHabit records today's completion. A completion on the day after the previous one
// extends the streak; any other gap restarts it at 1. Completing twice on one day fails with
// models.ErrHabitAlreadyCompleted.
func (r *Repository) CompleteHabit(ctx context.Context, userID, habitID string) (models.Habit, error) {
	habits, err := r.ListHabits(ctx, userID)
	if err != nil {
		return models.Habit{}, err
	}
	idx := -1
	for i := range habits {
		if habits[i].ID == habitID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return models.Habit{}, models.ErrUnknownHabit
	}

	now := r.now()
	h := habits[idx]
	if h.LastCompleted != nil && sameDay(*h.LastCompleted, now) {
		return h, models.ErrHabitAlreadyCompleted
	}
	if h.LastCompleted != nil && sameDay(*h.LastCompleted, now.AddDate(0, 0, -1)) {
		h.Streak++
	} else {
		h.Streak = 1
	}
	h.CompletedDays++
	h.TotalDays++
	h.LastCompleted = &now
	habits[idx] = h

	if err := r.put(ctx, "complete habit", CollectionHabits, userID, habitsDocument{UserID: userID, Habits: habits}); err != nil {
		return models.Habit{}, err
	}
	slog.Debug("Repository.CompleteHabit: completed", "userID", userID, "habitID", habitID, "streak", h.Streak)
	return h, nil
}

type utterancesDocument struct {
	Items []Utterance `json:"items"`
}

// RecordUtterance appends text to the user's utterance history, keeping the newest entries.
func (r *Repository) RecordUtterance(ctx context.Context, userID, text string) error {
	var doc utterancesDocument
	if _, err := r.get(ctx, "record utterance", CollectionUtterances, userID, &doc); err != nil {
		return err
	}
	doc.Items = append(doc.Items, Utterance{Text: text, Time: r.now()})
	if n := len(doc.Items); n > MaxStoredUtterances {
		doc.Items = doc.Items[n-MaxStoredUtterances:]
	}
	return r.put(ctx, "record utterance", CollectionUtterances, userID, doc)
}

// ListUtterances returns the stored utterance history of userID, oldest first.
func (r *Repository) ListUtterances(ctx context.Context, userID string) ([]Utterance, error) {
	var doc utterancesDocument
	if _, err := r.get(ctx, "list utterances", CollectionUtterances, userID, &doc); err != nil {
		return nil, err
	}
	return doc.Items, nil
}

type subscribersDocument struct {
	Users []string `json:"users"`
}

// AddSubscriber registers userID for the daily plan on channel. Adding twice is a no-op.
func (r *Repository) AddSubscriber(ctx context.Context, channel, userID string) error {
	users, err := r.ListSubscribers(ctx, channel)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u == userID {
			return nil
		}
	}
	return r.put(ctx, "add subscriber", CollectionSubscribers, channel, subscribersDocument{Users: append(users, userID)})
}

// ListSubscribers returns the users subscribed on channel.
func (r *Repository) ListSubscribers(ctx context.Context, channel string) ([]string, error) {
	var doc subscribersDocument
	if _, err := r.get(ctx, "list subscribers", CollectionSubscribers, channel, &doc); err != nil {
		return nil, err
	}
	return doc.Users, nil
}

func (r *Repository) put(ctx context.Context, op, collection, id string, v any) error {
	fields, err := toFields(v)
	if err == nil {
		err = r.docs.Upsert(ctx, collection, id, fields)
	}
	if err != nil {
		slog.Error("Repository: write failed", "op", op, "collection", collection, "id", id, "error", err)
		return &models.PersistenceError{Op: op, Collection: collection, ID: id, Err: err}
	}
	return nil
}

// get decodes the document into v. It reports false, nil when the document does not exist.
func (r *Repository) get(ctx context.Context, op, collection, id string, v any) (bool, error) {
	fields, err := r.docs.Get(ctx, collection, id)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err == nil {
		err = fromFields(fields, v)
	}
	if err != nil {
		slog.Error("Repository: read failed", "op", op, "collection", collection, "id", id, "error", err)
		return false, &models.PersistenceError{Op: op, Collection: collection, ID: id, Err: err}
	}
	return true, nil
}

func toFields(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return fields, nil
}

func fromFields(fields map[string]any, v any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
