// Package genai wraps the OpenAI chat completion API for HabitLens.
//
// It exposes a small completion client and the parser that recovers JSON arrays from
// free-form completion text.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BTreeMap/HabitLens/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Default configuration for completion requests
const (
	DefaultModel               = string(openai.ChatModelGPT4oMini)
	DefaultTemperature         = 0.3
	DefaultMaxCompletionTokens = 1500
	debugDirName               = "debug"
)

// ErrNoChoicesReturned is returned when the completion envelope carries no choices.
var ErrNoChoicesReturned = models.ErrNoChoices

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// completionsAdapter adapts the SDK completion service to chatService.
type completionsAdapter struct {
	svc *openai.ChatCompletionService
}

func (a completionsAdapter) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := a.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey              string
	BaseURL             string
	Model               string
	Temperature         float64
	MaxCompletionTokens int
	DebugMode           bool
	StateDir            string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL points the client at an OpenAI compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the chat model name.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(o *Opts) { o.Temperature = temp }
}

// WithMaxCompletionTokens caps the completion length.
func WithMaxCompletionTokens(n int) Option {
	return func(o *Opts) { o.MaxCompletionTokens = n }
}

// WithDebugMode writes every request and response under <stateDir>/debug.
func WithDebugMode(enabled bool, stateDir string) Option {
	return func(o *Opts) {
		o.DebugMode = enabled
		o.StateDir = stateDir
	}
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat                chatService
	model               string
	temperature         float64
	maxCompletionTokens int
	debugMode           bool
	stateDir            string
}

// NewClient initializes a GenAI client. An API key is required.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Model:               DefaultModel,
		Temperature:         DefaultTemperature,
		MaxCompletionTokens: DefaultMaxCompletionTokens,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)

	slog.Debug("GenAI client created", "model", cfg.Model, "temperature", cfg.Temperature, "debug", cfg.DebugMode, "base_url_set", cfg.BaseURL != "")
	return &Client{
		chat:                completionsAdapter{svc: &cli.Chat.Completions},
		model:               cfg.Model,
		temperature:         cfg.Temperature,
		maxCompletionTokens: cfg.MaxCompletionTokens,
		debugMode:           cfg.DebugMode,
		stateDir:            cfg.StateDir,
	}, nil
}

// Complete sends a system and a user message and returns the text of the first choice.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, "Complete", c.params(systemPrompt, userPrompt))
}

// CompleteJSON is Complete with the JSON object response format enabled.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := c.params(systemPrompt, userPrompt)
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
	}
	return c.complete(ctx, "CompleteJSON", params)
}

func (c *Client) params(systemPrompt, userPrompt string) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(c.temperature),
	}
	if c.maxCompletionTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxCompletionTokens))
	}
	return params
}

func (c *Client) complete(ctx context.Context, method string, params openai.ChatCompletionNewParams) (string, error) {
	start := time.Now()
	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		c.writeDebugLog(method, params, nil, err)
		upstream := toUpstreamError(err)
		slog.Error("GenAI."+method+": completion failed", "model", c.model, "status", upstream.StatusCode, "error", err)
		return "", upstream
	}
	c.writeDebugLog(method, params, &resp, nil)

	if len(resp.Choices) == 0 {
		slog.Warn("GenAI."+method+": no choices returned", "model", c.model)
		return "", &models.UpstreamError{Message: "malformed completion envelope", Err: ErrNoChoicesReturned}
	}
	content := resp.Choices[0].Message.Content
	slog.Debug("GenAI."+method+": completion succeeded", "model", c.model, "chars", len(content), "duration", time.Since(start))
	return content, nil
}

// toUpstreamError maps SDK and transport errors to models.UpstreamError.
func toUpstreamError(err error) *models.UpstreamError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return &models.UpstreamError{StatusCode: apiErr.StatusCode, Message: msg, Err: err}
	}
	return &models.UpstreamError{Message: err.Error(), Err: err}
}

type debugLogEntry struct {
	Timestamp time.Time                      `json:"timestamp"`
	Method    string                         `json:"method"`
	Model     string                         `json:"model"`
	Params    openai.ChatCompletionNewParams `json:"params"`
	Response  *openai.ChatCompletion         `json:"response"`
	Error     string                         `json:"error,omitempty"`
}

// writeDebugLog records one call as a JSON file. Failures are logged and ignored.
func (c *Client) writeDebugLog(method string, params openai.ChatCompletionNewParams, resp *openai.ChatCompletion, callErr error) {
	if !c.debugMode || c.stateDir == "" {
		return
	}
	entry := debugLogEntry{Timestamp: time.Now(), Method: method, Model: c.model, Params: params, Response: resp}
	if callErr != nil {
		entry.Error = callErr.Error()
	}

	dir := filepath.Join(c.stateDir, debugDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("GenAI.writeDebugLog: failed to create debug dir", "dir", dir, "error", err)
		return
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		slog.Warn("GenAI.writeDebugLog: marshal failed", "error", err)
		return
	}
	name := fmt.Sprintf("genai_%s_%s.json", entry.Timestamp.Format("20060102T150405.000000000"), method)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		slog.Warn("GenAI.writeDebugLog: write failed", "error", err)
	}
}
