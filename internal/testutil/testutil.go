// Package testutil provides common test utilities and helpers for HabitLens tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/HabitLens/internal/models"
	"github.com/BTreeMap/HabitLens/internal/store"
)

// Now is the fixed time used by test clocks: Monday 2025-03-10 08:00 UTC.
var Now = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// Clock returns a clock function that always reports t.
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// NewRepository creates a repository over an in-memory document store with a fixed clock.
func NewRepository() *store.Repository {
	return store.NewRepository(store.NewMemoryStore()).WithClock(Clock(Now))
}

// StubPlanner is a schedule planner that never calls a completion service. Each parsed task is
// the whole input; generated schedules are Items, or one block per task when Items is empty.
type StubPlanner struct {
	Items []models.ScheduleItem
	Err   error

	mu                sync.Mutex
	PersonalizedCalls int
	ScheduleCalls     int
}

func (p *StubPlanner) ParseTasks(ctx context.Context, input string) ([]models.Task, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return []models.Task{{Name: input, DurationMinutes: 60}}, nil
}

func (p *StubPlanner) GenerateSchedule(ctx context.Context, tasks []models.Task, routines []models.FixedRoutine, analysis *models.HabitAnalysis) ([]models.ScheduleItem, error) {
	p.mu.Lock()
	p.ScheduleCalls++
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Items) > 0 {
		return p.Items, nil
	}
	items := make([]models.ScheduleItem, len(tasks))
	for i, task := range tasks {
		items[i] = models.ScheduleItem{Task: task.Name, Start: "09:00", End: "10:00", DurationMinutes: task.DurationMinutes}
	}
	return items, nil
}

func (p *StubPlanner) GeneratePersonalizedSchedule(ctx context.Context, profile models.UserProfile) ([]models.ScheduleItem, error) {
	p.mu.Lock()
	p.PersonalizedCalls++
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Items) > 0 {
		return p.Items, nil
	}
	return []models.ScheduleItem{{Task: "Focus block", Start: "09:00", End: "11:00", DurationMinutes: 120}}, nil
}

// APIResponse is the decoded JSON envelope with the result left raw.
type APIResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// DecodeAPIResponse decodes the JSON envelope and, when result is non-nil, its result field.
func DecodeAPIResponse(t *testing.T, rr *httptest.ResponseRecorder, result interface{}) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rr.Body.String(), err)
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			t.Fatalf("invalid result %s: %v", resp.Result, err)
		}
	}
	return resp
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	} else {
		reqBody = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, url, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// MustMarshalJSON marshals v to JSON and fails the test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}
