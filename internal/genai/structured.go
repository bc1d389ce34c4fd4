package genai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/BTreeMap/HabitLens/internal/models"
)

// Field names completion models use to wrap arrays in an object.
const (
	FieldTasks    = "tasks"
	FieldSchedule = "schedule"
)

// arraySpan matches from the first '[' to the last ']' across newlines.
var arraySpan = regexp.MustCompile(`(?s)\[.*\]`)

// ExtractJSONArray recovers a JSON array from completion text. Strategies, first success wins:
//  1. the greedy [...] span of the raw text;
//  2. the whole text as an array, or as an object whose field holds an array;
//  3. the first balanced [...] block after stripping code fences, comments and trailing commas.
//
// When all fail the error is a *models.ParseError carrying the raw text.
func ExtractJSONArray(raw, field string) ([]json.RawMessage, error) {
	if arr, ok := parseArraySpan(raw); ok {
		return arr, nil
	}
	if arr, ok := parseWhole(raw, field); ok {
		return arr, nil
	}
	if arr, ok := parseRepaired(raw); ok {
		return arr, nil
	}
	return nil, &models.ParseError{Raw: raw, Field: field}
}

// ExtractArray is ExtractJSONArray followed by decoding every element into T.
func ExtractArray[T any](raw, field string) ([]T, error) {
	elems, err := ExtractJSONArray(raw, field)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(elems))
	for i, elem := range elems {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			return nil, &models.ParseError{Raw: raw, Field: field, Err: fmt.Errorf("element %d: %w", i, err)}
		}
		out = append(out, v)
	}
	return out, nil
}

func parseArraySpan(raw string) ([]json.RawMessage, bool) {
	span := arraySpan.FindString(raw)
	if span == "" {
		return nil, false
	}
	return decodeArray(span)
}

func parseWhole(raw, field string) ([]json.RawMessage, bool) {
	text := strings.TrimSpace(raw)
	if arr, ok := decodeArray(text); ok {
		return arr, true
	}
	if field == "" {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}
	inner, ok := obj[field]
	if !ok {
		return nil, false
	}
	return decodeArray(string(inner))
}

func parseRepaired(raw string) ([]json.RawMessage, bool) {
	cleaned := stripTrailingCommas(stripLineComments(stripCodeFences(raw)))
	block := balancedArray(cleaned)
	if block == "" {
		return nil, false
	}
	return decodeArray(block)
}

func decodeArray(s string) ([]json.RawMessage, bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(s), &arr); err != nil || arr == nil {
		return nil, false
	}
	return arr, true
}

// stripCodeFences drops markdown fence lines (```json, ```).
func stripCodeFences(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// scanJSON walks s calling visit for every byte outside string literals.
// visit returns how many bytes to skip after the current one.
func scanJSON(s string, visit func(i int) int) {
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString:
			i += visit(i)
		}
	}
}

// stripLineComments removes // comments outside string literals.
func stripLineComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	scanJSON(s, func(i int) int {
		if s[i] != '/' || i+1 >= len(s) || s[i+1] != '/' {
			return 0
		}
		end := strings.IndexByte(s[i:], '\n')
		if end == -1 {
			end = len(s) - i
		}
		b.WriteString(s[last:i])
		last = i + end
		return end - 1
	})
	b.WriteString(s[last:])
	return b.String()
}

// stripTrailingCommas removes commas directly followed by ']' or '}'.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	scanJSON(s, func(i int) int {
		if s[i] != ',' {
			return 0
		}
		rest := strings.TrimLeft(s[i+1:], " \t\r\n")
		if rest != "" && (rest[0] == ']' || rest[0] == '}') {
			b.WriteString(s[last:i])
			last = i + 1
		}
		return 0
	})
	b.WriteString(s[last:])
	return b.String()
}

// balancedArray returns the first balanced [...] block, or "".
func balancedArray(s string) string {
	start := strings.IndexByte(s, '[')
	if start == -1 {
		return ""
	}
	depth, end := 0, -1
	scanJSON(s[start:], func(i int) int {
		if end != -1 {
			return 0
		}
		switch s[start+i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				end = start + i
			}
		}
		return 0
	})
	if end == -1 {
		return ""
	}
	return s[start : end+1]
}
