// Package twiliowhatsapp wraps the Twilio API for the HabitLens WhatsApp channel.
package twiliowhatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/twilio/twilio-go"
	twilioClient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MaxBodyLength is the longest message body Twilio accepts; longer texts are split.
const MaxBodyLength = 1600

// TwilioWhatsAppSender sends WhatsApp messages and validates inbound webhooks.
type TwilioWhatsAppSender interface {
	SendMessage(ctx context.Context, to string, body string) error
	ValidateWebhook(url string, params map[string]string, signature string) bool
}

// Opts holds configuration options for the Twilio WhatsApp client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromWhats  string
}

// Option defines a configuration option for the Twilio WhatsApp client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token, also used to validate webhook signatures.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromWhats sets the sender, e.g. "whatsapp:+14155238886".
func WithFromWhats(from string) Option {
	return func(o *Opts) { o.FromWhats = from }
}

// Client wraps Twilio REST API for WhatsApp
type Client struct {
	client    *twilio.RestClient
	validator twilioClient.RequestValidator
	fromWhats string
}

// NewClient creates a Twilio client. Options left empty fall back to TWILIO_ACCOUNT_SID,
// TWILIO_AUTH_TOKEN and TWILIO_FROM.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromWhats == "" {
		cfg.FromWhats = os.Getenv("TWILIO_FROM")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromWhats_set", cfg.FromWhats != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromWhats == "" {
		return nil, fmt.Errorf("fromWhats number must be provided")
	}
	if !strings.HasPrefix(cfg.FromWhats, "whatsapp:") {
		cfg.FromWhats = "whatsapp:" + cfg.FromWhats
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &Client{
		client:    client,
		validator: twilioClient.NewRequestValidator(cfg.AuthToken),
		fromWhats: cfg.FromWhats,
	}, nil
}

// SendMessage sends body to the WhatsApp number to, in several messages when it is longer
// than MaxBodyLength.
func (c *Client) SendMessage(ctx context.Context, to string, body string) error {
	for _, part := range SplitBody(body, MaxBodyLength) {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo("whatsapp:" + strings.TrimPrefix(to, "whatsapp:"))
		params.SetFrom(c.fromWhats)
		params.SetBody(part)

		if _, err := c.client.Api.CreateMessage(params); err != nil {
			slog.Error("Twilio SendMessage failed", "to", to, "error", err)
			return fmt.Errorf("failed to send message to %s: %w", to, err)
		}
	}
	slog.Debug("Twilio message sent", "to", to)
	return nil
}

// ValidateWebhook checks the X-Twilio-Signature of an inbound webhook.
func (c *Client) ValidateWebhook(url string, params map[string]string, signature string) bool {
	return c.validator.Validate(url, params, signature)
}

// SplitBody cuts body into parts of at most limit bytes, preferring line breaks and never
// splitting a UTF-8 character.
func SplitBody(body string, limit int) []string {
	if len(body) <= limit || limit <= 0 {
		return []string{body}
	}
	var parts []string
	for len(body) > limit {
		cut := strings.LastIndex(body[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(body[cut]) {
				cut--
			}
		}
		parts = append(parts, strings.TrimRight(body[:cut], "\n"))
		body = strings.TrimLeft(body[cut:], "\n")
	}
	if body != "" {
		parts = append(parts, body)
	}
	return parts
}

// MockClient records messages instead of calling Twilio (for tests).
type MockClient struct {
	mu           sync.Mutex
	SentMessages []SentMessage
	// ValidSignature, when set, is the only signature ValidateWebhook accepts.
	ValidSignature string
}

// SentMessage records a message passed to MockClient.SendMessage.
type SentMessage struct {
	To   string
	Body string
}

// NewMockClient creates a MockClient.
func NewMockClient() *MockClient {
	return &MockClient{SentMessages: []SentMessage{}}
}

func (m *MockClient) SendMessage(ctx context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, SentMessage{To: to, Body: body})
	return nil
}

func (m *MockClient) ValidateWebhook(url string, params map[string]string, signature string) bool {
	return m.ValidSignature == "" || signature == m.ValidSignature
}

// Sent returns a copy of the messages sent so far.
func (m *MockClient) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.SentMessages...)
}
