package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/HabitLens/internal/models"
	"github.com/BTreeMap/HabitLens/internal/whatsapp"
)

// WhatsAppService implements Service over a whatsmeow-based client.
type WhatsAppService struct {
	client    whatsapp.Messenger
	responses chan models.Response
	mu        sync.RWMutex
	stopped   bool
	startOnce sync.Once
}

// NewWhatsAppService creates a WhatsAppService wrapping the given client.
func NewWhatsAppService(client whatsapp.Messenger) *WhatsAppService {
	return &WhatsAppService{
		client:    client,
		responses: make(chan models.Response, DefaultChannelBufferSize),
	}
}

func (s *WhatsAppService) Channel() string { return ChannelWhatsApp }

func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start subscribes to inbound text messages.
func (s *WhatsAppService) Start(ctx context.Context) error {
	s.startOnce.Do(func() {
		s.client.OnText(s.handleIncomingMessage)
		slog.Debug("WhatsAppService event handler registered")
	})
	return nil
}

// Stop disconnects the client and closes the responses channel.
func (s *WhatsAppService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	s.client.Disconnect()
	close(s.responses)
	slog.Info("WhatsAppService stopped")
	return nil
}

// SendMessage sends a message to a phone number.
func (s *WhatsAppService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		return ErrServiceStopped
	}

	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("WhatsAppService SendMessage validation error", "error", err, "to", to)
		return err
	}
	if err := s.client.SendMessage(ctx, canonicalTo, body); err != nil {
		slog.Error("WhatsAppService SendMessage error", "error", err, "to", canonicalTo)
		return err
	}
	slog.Debug("WhatsAppService message sent", "to", canonicalTo, "body_length", len(body))
	return nil
}

// Responses returns a channel of incoming messages.
func (s *WhatsAppService) Responses() <-chan models.Response {
	return s.responses
}

func (s *WhatsAppService) handleIncomingMessage(in whatsapp.InboundText) {
	// Holding the read lock keeps Stop from closing the channel mid-send.
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return
	}

	response := models.Response{
		Channel: ChannelWhatsApp,
		From:    in.From,
		Body:    in.Body,
		Time:    in.Time.Unix(),
	}
	select {
	case s.responses <- response:
		slog.Debug("WhatsAppService incoming message forwarded", "from", response.From)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("WhatsAppService responses channel blocked, dropping message", "from", response.From, "timeout", DefaultChannelTimeout)
	}
}
