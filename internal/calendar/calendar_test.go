package calendar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/BTreeMap/HabitLens/internal/models"
)

func testDoc() models.ScheduleDocument {
	return models.ScheduleDocument{
		UserID: "u1",
		Date:   "2025-03-10",
		Items: []models.ScheduleItem{
			{Task: "Study", Start: "09:00", End: "10:30", Comment: "chapter 3"},
			{Task: "Broken", Start: "9am", End: "10:00"},
			{Task: "Night shift", Start: "23:00", End: "01:00"},
		},
	}
}

func TestEvents(t *testing.T) {
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)

	events := Events(testDoc(), loc)
	require.Len(t, events, 2)

	assert.Equal(t, "Study", events[0].Summary)
	assert.Equal(t, "chapter 3", events[0].Description)
	assert.Equal(t, "2025-03-10T09:00:00-04:00", events[0].Start.DateTime)
	assert.Equal(t, "2025-03-10T10:30:00-04:00", events[0].End.DateTime)
	assert.Equal(t, "America/Toronto", events[0].Start.TimeZone)
	assert.Equal(t, "u1", events[0].ExtendedProperties.Private["habitlens_user"])

	assert.Equal(t, "2025-03-11T01:00:00-04:00", events[1].End.DateTime, "end before start rolls over")
}

func TestEventsInvalidDate(t *testing.T) {
	doc := testDoc()
	doc.Date = "someday"
	assert.Empty(t, Events(doc, time.UTC))
}

func TestExporterExport(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	var summaries []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var ev gcal.Event
		_ = json.Unmarshal(body, &ev)
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		summaries = append(summaries, ev.Summary)
		n := len(summaries)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "evt" + string(rune('0'+n))})
	}))
	defer ts.Close()

	srv, err := gcal.NewService(context.Background(), option.WithEndpoint(ts.URL+"/"), option.WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	exp := NewExporter(srv, WithCalendarID("work"), WithLocation(time.UTC))
	ids, err := exp.Export(context.Background(), testDoc())
	require.NoError(t, err)
	assert.Equal(t, []string{"evt1", "evt2"}, ids)
	assert.Equal(t, []string{"Study", "Night shift"}, summaries)
	for _, p := range paths {
		assert.True(t, strings.HasPrefix(p, http.MethodPost+" "), p)
		assert.True(t, strings.HasSuffix(p, "/calendars/work/events"), p)
	}
}

func TestNewServiceErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewService(context.Background(), filepath.Join(dir, "missing.json"), filepath.Join(dir, "token.json"))
	assert.Error(t, err)

	creds := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{"installed":{"client_id":"id","client_secret":"secret","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`), 0o600))
	_, err = NewService(context.Background(), creds, filepath.Join(dir, "token.json"))
	assert.ErrorContains(t, err, "token")

	token := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(token, []byte(`{"access_token":"a","refresh_token":"r","token_type":"Bearer"}`), 0o600))
	srv, err := NewService(context.Background(), creds, token)
	require.NoError(t, err)
	assert.NotNil(t, srv)
}
