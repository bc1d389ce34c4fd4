package flow

import "strings"

// intent is what a ready-state message asks for.
type intent int

const (
	intentUpdateToday intent = iota
	intentReview
	intentRegenerate
	intentTasks
)

func (i intent) String() string {
	switch i {
	case intentUpdateToday:
		return "update_today"
	case intentReview:
		return "review"
	case intentRegenerate:
		return "regenerate"
	default:
		return "tasks"
	}
}

// intentRules are checked top to bottom and the first rule with a matching keyword wins.
// The order is part of the behavior: "new schedule" also contains "schedule", so a request
// for a new schedule is routed to intentUpdateToday. Keyword routing is a heuristic, not
// intent classification.
var intentRules = []struct {
	intent   intent
	keywords []string
}{
	{intentUpdateToday, []string{"update", "today", "schedule"}},
	{intentReview, []string{"review", "yesterday", "performance"}},
	{intentRegenerate, []string{"new schedule", "create"}},
}

// classifyIntent routes a ready-state message. Anything unmatched is a task description.
func classifyIntent(text string) intent {
	lower := strings.ToLower(text)
	for _, rule := range intentRules {
		if containsAny(lower, rule.keywords...) {
			return rule.intent
		}
	}
	return intentTasks
}

// wantsToStart reports whether an onboarding reply agrees to begin the interview.
func wantsToStart(text string) bool {
	return containsAny(strings.ToLower(text), "yes", "start", "begin")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
