package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BTreeMap/HabitLens/internal/models"
	"github.com/BTreeMap/HabitLens/internal/twiliowhatsapp"
)

// TwilioService implements Service using the Twilio API. Inbound messages arrive through
// WebhookHandler.
type TwilioService struct {
	client    twiliowhatsapp.TwilioWhatsAppSender
	responses chan models.Response
	mu        sync.RWMutex
	stopped   bool
	// webhookURL is the public URL Twilio signs; empty disables signature checks.
	webhookURL string
}

// TwilioOption configures a TwilioService.
type TwilioOption func(*TwilioService)

// WithWebhookURL enables X-Twilio-Signature validation against the given public URL.
func WithWebhookURL(url string) TwilioOption {
	return func(s *TwilioService) { s.webhookURL = url }
}

// NewTwilioService creates a TwilioService.
func NewTwilioService(client twiliowhatsapp.TwilioWhatsAppSender, opts ...TwilioOption) *TwilioService {
	s := &TwilioService{
		client:    client,
		responses: make(chan models.Response, DefaultChannelBufferSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TwilioService) Channel() string { return ChannelTwilio }

func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start is a no-op; inbound messages are pushed by the webhook.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop closes the responses channel.
func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.responses)
	return nil
}

// SendMessage sends a message via Twilio.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		return ErrServiceStopped
	}

	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendMessage validation error", "error", err, "to", to)
		return err
	}
	return s.client.SendMessage(ctx, canonicalTo, body)
}

// Responses returns the channel for incoming messages.
func (s *TwilioService) Responses() <-chan models.Response {
	return s.responses
}

// WebhookHandler handles inbound Twilio webhook requests and emits them on Responses().
func (s *TwilioService) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Error("Failed to parse Twilio webhook form", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if s.webhookURL != "" {
		params := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			params[k] = r.PostForm.Get(k)
		}
		if !s.client.ValidateWebhook(s.webhookURL, params, r.Header.Get("X-Twilio-Signature")) {
			slog.Warn("Twilio webhook signature rejected")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	from := r.PostForm.Get("From")
	body := r.PostForm.Get("Body")
	if from == "" || body == "" {
		slog.Warn("Twilio webhook missing fields", "from_set", from != "", "body_set", body != "")
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	canonicalFrom, err := s.ValidateAndCanonicalizeRecipient(from)
	if err != nil {
		slog.Warn("Twilio webhook invalid sender", "error", err)
		http.Error(w, "Invalid sender", http.StatusBadRequest)
		return
	}

	slog.Info("Inbound WhatsApp message from Twilio", "from", canonicalFrom, "body_length", len(body))
	if !s.safeEmitResponse(models.Response{
		Channel: ChannelTwilio,
		From:    canonicalFrom,
		Body:    body,
		Time:    time.Now().Unix(),
	}) {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// safeEmitResponse pushes a response unless the service is stopped or the channel stays full.
func (s *TwilioService) safeEmitResponse(response models.Response) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		slog.Warn("TwilioService dropping inbound response (service stopped)", "from", response.From)
		return false
	}

	select {
	case s.responses <- response:
		slog.Debug("TwilioService emitted inbound response", "from", response.From)
		return true
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TwilioService responses channel blocked, dropping message", "from", response.From)
		return false
	}
}
