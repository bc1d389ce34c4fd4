// Package models defines the core data structures for HabitLens.
//
// It includes the onboarding answers, user profiles, tasks and schedule items shared across
// the extractor, planner, conversation flow and store modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Validation constants for input validation
const (
	// MaxMessageLength defines the maximum allowed length for a chat message
	MaxMessageLength = 4096
	// MaxHabitNameLength defines the maximum allowed length for a habit name
	MaxHabitNameLength = 100
	// DefaultAvailableHours is used when the user does not name a number of hours
	DefaultAvailableHours = 5
	// DateLayout is the layout of schedule document dates (YYYY-MM-DD)
	DateLayout = "2006-01-02"
)

// Error variables for request validation
var (
	ErrEmptyMessage       = errors.New("message cannot be empty")
	ErrMessageTooLong     = errors.New("message exceeds maximum length")
	ErrEmptyHabitName     = errors.New("habit name cannot be empty")
	ErrHabitNameTooLong   = errors.New("habit name exceeds maximum length")
	ErrInvalidScheduleDay = errors.New("date must be in YYYY-MM-DD format")
)

// ChatRole identifies who authored a chat message.
type ChatRole string

const (
	// ChatRoleAssistant marks messages produced by HabitLens.
	ChatRoleAssistant ChatRole = "assistant"
	// ChatRoleUser marks messages typed by the user.
	ChatRoleUser ChatRole = "user"
)

// ChatMessage is a displayable chat line.
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// AssistantMessage builds a ChatMessage authored by the assistant.
func AssistantMessage(text string) ChatMessage {
	return ChatMessage{Role: ChatRoleAssistant, Text: text}
}

// ChatRequest is the payload of POST /chat/messages.
type ChatRequest struct {
	Text string `json:"text"`
}

// Validate checks the chat request text.
func (r *ChatRequest) Validate() error {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return ErrEmptyMessage
	}
	if len(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// ChatReply is the payload returned after a chat message is processed.
type ChatReply struct {
	State    ConversationState `json:"state"`
	Messages []ChatMessage     `json:"messages"`
}

// Response represents an incoming message received over a messaging channel.
type Response struct {
	Channel string `json:"channel"`
	From    string `json:"from"`
	Body    string `json:"body"`
	Time    int64  `json:"time"`
}

// ScheduleDate formats t as a schedule document date.
func ScheduleDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ValidateScheduleDate checks a YYYY-MM-DD string.
func ValidateScheduleDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return ErrInvalidScheduleDay
	}
	return nil
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents the standard JSON envelope of every HTTP endpoint.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
