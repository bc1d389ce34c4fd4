// Package messaging connects chat channels (WhatsApp through whatsmeow or Twilio) to the
// HabitLens conversation dispatcher.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/BTreeMap/HabitLens/internal/models"
)

// Channel names, also used as the prefix of channel user ids ("whatsapp:+15551234567").
const (
	ChannelWhatsApp = "whatsapp"
	ChannelTwilio   = "twilio"
)

// Constants for messaging service configuration
const (
	// DefaultChannelBufferSize defines the default buffer size for response channels
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations
	DefaultChannelTimeout = 1 * time.Second
)

// ErrServiceStopped is returned when sending through a stopped service.
var ErrServiceStopped = errors.New("messaging service stopped")

var phoneNumberRegex = regexp.MustCompile(`[^\d]`)

// Service defines a pluggable chat channel.
type Service interface {
	// Channel returns the channel name.
	Channel() string

	// ValidateAndCanonicalizeRecipient returns the "+<digits>" form of a phone number.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing (e.g., subscribing to events).
	Start(ctx context.Context) error

	// Stop stops background processing and closes the responses channel.
	Stop() error

	// Responses returns a channel of incoming user messages.
	Responses() <-chan models.Response
}

// canonicalizePhone strips everything but digits and requires at least 6 of them.
func canonicalizePhone(recipient string) (string, error) {
	recipient = strings.TrimPrefix(strings.TrimSpace(recipient), "whatsapp:")
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", canonical)
	}
	return "+" + canonical, nil
}

// UserID returns the conversation user id of a channel sender.
func UserID(channel, address string) string {
	return channel + ":" + address
}

// SplitUserID splits a channel user id into channel and address.
func SplitUserID(userID string) (channel, address string, ok bool) {
	channel, address, ok = strings.Cut(userID, ":")
	if !ok || channel == "" || address == "" {
		return "", "", false
	}
	return channel, address, true
}

// Channels routes outbound messages to the service that owns a user id.
type Channels map[string]Service

// NewChannels indexes services by channel name.
func NewChannels(services ...Service) Channels {
	c := make(Channels, len(services))
	for _, s := range services {
		c[s.Channel()] = s
	}
	return c
}

// SendToUser sends body to a channel user id such as "twilio:+15551234567".
func (c Channels) SendToUser(ctx context.Context, userID, body string) error {
	channel, address, ok := SplitUserID(userID)
	if !ok {
		return fmt.Errorf("not a channel user id: %q", userID)
	}
	svc, ok := c[channel]
	if !ok {
		return fmt.Errorf("no messaging service for channel %q", channel)
	}
	return svc.SendMessage(ctx, address, body)
}

// Names returns the configured channel names.
func (c Channels) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	return names
}
