package flow

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/HabitLens/internal/models"
)

// Assistant texts.
const (
	newUserGreeting = "👋 Welcome to HabitLens.AI!\n\n" +
		"I'm your friendly AI assistant designed to help you plan and improve your daily routines and habits.\n\n" +
		"I'll create a personalized daily schedule just for you. Let's start by getting to know your habits and preferences!\n\n" +
		`Ready to begin? Just say "yes" or "start"!`
	startPrompt = `Just say "yes" or "start" to begin! 😊`

	questionWakeTime  = "(Q1) What time do you usually wake up?\n\nFor example: \"I wake up at 7 AM\""
	questionSleepTime = "(Q2) And what time do you usually go to bed?\n\nFor example: \"around 11 PM\""
	questionGoals     = "(Q3) What are the 3 most important things you want to achieve each day?\n\nFor example: \"study, exercise, meditation\""
	questionRoutines  = "(Q4) Do you have any fixed routines or time-bound tasks?\n\nFor example: \"class at 9am, gym at 6pm\" or \"no fixed routines\""
	questionPeak      = "(Q5) When do you feel most productive: morning, afternoon, or night? " +
		"And how many hours per day can you dedicate to your personal goals?\n\nFor example: \"morning, 5 hours\""

	profileSaveFailed  = "I had trouble saving your profile. Please try again."
	onboardingFarewell = "See you tomorrow! I'll update your plan based on today's progress."

	askTodayTasks      = "Great! Tell me what tasks you need to do today, and I'll create an updated schedule for you."
	reviewAcknowledged = "I'd love to review your progress! Tell me what you completed yesterday and how you felt about it."
	noTasksFound       = "I understand! How can I help you with your schedule today?"
	taskParseFailed    = "Tell me what you'd like to do today, and I'll help you plan it!"
	scheduleFailed     = "I couldn't generate a schedule. Please try again."
	scheduleSaveFailed = "I couldn't save this schedule, so it may not show up on your dashboard."
	genericFailure     = "Sorry, I encountered an error. Please try again."
)

func returningUserGreeting(p models.UserProfile) string {
	return fmt.Sprintf("👋 Welcome back, %s!\n\n"+
		"Would you like me to:\n"+
		"• Update your schedule based on today's tasks\n"+
		"• Review yesterday's performance\n"+
		"• Create a new schedule for today\n\n"+
		"Just tell me what you'd like to do!", p.DisplayName())
}

func profileSummary(p models.UserProfile) string {
	return fmt.Sprintf("Got it! I've saved your habit profile:\n\n"+
		"🌅 Wake time: %s\n"+
		"🌙 Sleep time: %s\n"+
		"🎯 Key goals: %s\n"+
		"⏰ Fixed routines: %s\n"+
		"⚡ Productivity peak: %s\n"+
		"📚 Available hours: %d hours\n\n"+
		"Let's start building your smart daily plan!",
		p.WakeTime, p.SleepTime, p.KeyGoals, p.FixedRoutines, p.ProductivityPeak, p.AvailableHours)
}

// questionFor returns the question asked while the session waits in state.
func questionFor(state models.ConversationState) (string, bool) {
	switch state {
	case models.StateAwaitingWakeTime:
		return questionWakeTime, true
	case models.StateAwaitingSleepTime:
		return questionSleepTime, true
	case models.StateAwaitingGoals:
		return questionGoals, true
	case models.StateAwaitingRoutines:
		return questionRoutines, true
	case models.StateAwaitingProductivity:
		return questionPeak, true
	default:
		return "", false
	}
}

// RenderSchedule formats a schedule as a chat message.
func RenderSchedule(items []models.ScheduleItem) string {
	if len(items) == 0 {
		return scheduleFailed
	}
	var b strings.Builder
	b.WriteString("📅 Your Personalized Daily Schedule\n")
	for _, item := range items {
		fmt.Fprintf(&b, "\n⏰ %s - %s\n%s\n", item.Start, item.End, item.Task)
		if item.Comment != "" {
			b.WriteString(item.Comment + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// PlainText joins assistant messages for text-only channels.
func PlainText(messages []models.ChatMessage) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Text != "" {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func say(texts ...string) []models.ChatMessage {
	msgs := make([]models.ChatMessage, 0, len(texts))
	for _, t := range texts {
		msgs = append(msgs, models.AssistantMessage(t))
	}
	return msgs
}
