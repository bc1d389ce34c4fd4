// Package calendar exports stored schedules to Google Calendar.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/BTreeMap/HabitLens/internal/models"
)

// DefaultCalendarID is the authorized user's primary calendar.
const DefaultCalendarID = "primary"

// NewService creates a Calendar API client from an OAuth client secrets file and a previously
// authorized token file. The token is refreshed automatically when it expires.
func NewService(ctx context.Context, credentialsFile, tokenFile string) (*gcal.Service, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", credentialsFile, err)
	}
	config, err := google.ConfigFromJSON(b, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, err
	}
	srv, err := gcal.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar client: %w", err)
	}
	return srv, nil
}

// tokenFromFile reads an oauth2.Token from a JSON file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	return tok, nil
}

// Exporter inserts schedule items as calendar events.
type Exporter struct {
	srv        *gcal.Service
	calendarID string
	loc        *time.Location
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithCalendarID selects the target calendar.
func WithCalendarID(id string) Option {
	return func(e *Exporter) {
		if id != "" {
			e.calendarID = id
		}
	}
}

// WithLocation sets the time zone schedule times are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(e *Exporter) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewExporter creates an Exporter over srv. Times default to the local time zone.
func NewExporter(srv *gcal.Service, opts ...Option) *Exporter {
	e := &Exporter{srv: srv, calendarID: DefaultCalendarID, loc: time.Local}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export inserts one event per schedule item and returns the created event ids.
func (e *Exporter) Export(ctx context.Context, doc models.ScheduleDocument) ([]string, error) {
	events := Events(doc, e.loc)
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		created, err := e.srv.Events.Insert(e.calendarID, ev).Context(ctx).Do()
		if err != nil {
			return ids, fmt.Errorf("insert event %q: %w", ev.Summary, err)
		}
		ids = append(ids, created.Id)
	}
	slog.Info("Exporter.Export: schedule exported", "userID", doc.UserID, "date", doc.Date, "events", len(ids), "skipped", len(doc.Items)-len(events))
	return ids, nil
}

// Events converts schedule items into calendar events on doc.Date in loc. Items whose times do
// not parse as HH:MM are skipped. An end before the start rolls over to the next day.
func Events(doc models.ScheduleDocument, loc *time.Location) []*gcal.Event {
	day, err := time.ParseInLocation(models.DateLayout, doc.Date, loc)
	if err != nil {
		slog.Warn("calendar.Events: invalid schedule date", "date", doc.Date)
		return nil
	}

	events := make([]*gcal.Event, 0, len(doc.Items))
	for _, item := range doc.Items {
		start, okStart := clock(day, item.Start)
		end, okEnd := clock(day, item.End)
		if !okStart || !okEnd {
			slog.Debug("calendar.Events: skipping item with malformed time", "task", item.Task, "start", item.Start, "end", item.End)
			continue
		}
		if !end.After(start) {
			end = end.AddDate(0, 0, 1)
		}
		events = append(events, &gcal.Event{
			Summary:     item.Task,
			Description: item.Comment,
			Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: loc.String()},
			End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: loc.String()},
			ExtendedProperties: &gcal.EventExtendedProperties{
				Private: map[string]string{"habitlens_user": doc.UserID, "habitlens_date": doc.Date},
			},
		})
	}
	return events
}

func clock(day time.Time, hhmm string) (time.Time, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), true
}
