package genai

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/BTreeMap/HabitLens/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONArray_EmbeddedInProse(t *testing.T) {
	raw := `Here is your plan: [{"task":"Gym","start":"07:00","end":"08:00"}] Enjoy!`

	got, err := ExtractArray[map[string]any](raw, FieldSchedule)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"task": "Gym", "start": "07:00", "end": "08:00"}, got[0])
}

func TestExtractJSONArray_ObjectWithNamedArray(t *testing.T) {
	got, err := ExtractArray[map[string]any](`{"schedule":[{"task":"Gym"}]}`, FieldSchedule)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Gym", got[0]["task"])
}

func TestExtractJSONArray_ObjectFieldLookup(t *testing.T) {
	// The greedy span covers both arrays and is not valid JSON, so the
	// whole-text strategy has to pick the named field.
	raw := `{"note":"]x[","tasks":[{"name":"Read"}]}`
	got, err := ExtractJSONArray(raw, FieldTasks)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"name":"Read"}`, string(got[0]))
}

func TestExtractJSONArray_WrongFieldFails(t *testing.T) {
	raw := `{"note":"]x[","tasks":[{"name":"Read"}]}`
	_, err := ExtractJSONArray(raw, FieldSchedule)
	var perr *models.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, raw, perr.Raw)
}

func TestExtractJSONArray_RepairFallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{
			name: "two arrays in prose",
			raw:  `First [{"task":"A"}] and later [{"task":"B"}]`,
			want: 1,
		},
		{
			name: "trailing comma in fenced block",
			raw:  "```json\n[\n  {\"task\": \"A\"},\n  {\"task\": \"B\"},\n]\n```",
			want: 2,
		},
		{
			name: "line comments",
			raw:  "[\n {\"task\": \"A\"}, // morning\n {\"task\": \"http://b\"}\n]",
			want: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONArray(tt.raw, FieldSchedule)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestExtractJSONArray_NoJSON(t *testing.T) {
	_, err := ExtractJSONArray("no json here", FieldTasks)
	require.Error(t, err)

	var perr *models.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "no json here", perr.Raw)
	assert.True(t, errors.Is(err, models.ErrUnparseable))
}

func TestExtractJSONArray_Idempotent(t *testing.T) {
	raw := "Sure!\n```json\n[{\"task\":\"Study\",\"startTime\":\"09:00\",\"endTime\":\"11:00\"},]\n```"
	first, err := ExtractJSONArray(raw, FieldSchedule)
	require.NoError(t, err)
	second, err := ExtractJSONArray(raw, FieldSchedule)
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.JSONEq(t, string(a), string(b))
}

func TestExtractArray_TypedScheduleItems(t *testing.T) {
	raw := `[{"task":"Study","startTime":"09:00","endTime":"11:00","duration":"120","priority":"High","category":"study"}]`
	items, err := ExtractArray[models.ScheduleItem](raw, FieldSchedule)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ScheduleItem{
		Task:            "Study",
		Start:           "09:00",
		End:             "11:00",
		DurationMinutes: 120,
		Priority:        models.PriorityHigh,
		Category:        "study",
	}, items[0])
}

func TestExtractArray_ElementDecodeError(t *testing.T) {
	_, err := ExtractArray[models.Task](`[1, 2]`, FieldTasks)
	var perr *models.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Error(t, perr.Err)
}
