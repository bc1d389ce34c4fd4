package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/HabitLens/internal/flow"
	"github.com/BTreeMap/HabitLens/internal/models"
)

const processingFailedMessage = "⚠️ Something went wrong while handling your message. Please try again in a moment."

// Conversation is the part of flow.Conversations the response handler drives.
type Conversation interface {
	Receive(ctx context.Context, userID, text string) (models.ChatReply, error)
}

// SubscriberStore records users that receive the daily plan.
type SubscriberStore interface {
	AddSubscriber(ctx context.Context, channel, userID string) error
}

// ResponseHandler routes inbound channel messages through the conversation and sends the reply
// back over the same channel.
type ResponseHandler struct {
	conv        Conversation
	subscribers SubscriberStore
}

// NewResponseHandler creates a ResponseHandler. subscribers may be nil.
func NewResponseHandler(conv Conversation, subscribers SubscriberStore) *ResponseHandler {
	return &ResponseHandler{conv: conv, subscribers: subscribers}
}

// Listen processes the responses of svc until the channel closes or ctx is done.
// Messages are handled in arrival order.
func (rh *ResponseHandler) Listen(ctx context.Context, svc Service) {
	slog.Info("ResponseHandler listening", "channel", svc.Channel())
	for {
		select {
		case <-ctx.Done():
			return
		case response, ok := <-svc.Responses():
			if !ok {
				slog.Info("ResponseHandler responses closed", "channel", svc.Channel())
				return
			}
			if err := rh.ProcessResponse(ctx, svc, response); err != nil {
				slog.Error("ResponseHandler failed to process response", "channel", svc.Channel(), "from", response.From, "error", err)
			}
		}
	}
}

// ProcessResponse runs one inbound message through the conversation and replies on svc.
func (rh *ResponseHandler) ProcessResponse(ctx context.Context, svc Service, response models.Response) error {
	canonicalFrom, err := svc.ValidateAndCanonicalizeRecipient(response.From)
	if err != nil {
		slog.Error("ResponseHandler ProcessResponse validation failed", "error", err, "from", response.From)
		return fmt.Errorf("invalid sender: %w", err)
	}
	if strings.TrimSpace(response.Body) == "" {
		slog.Debug("ResponseHandler ignoring empty message", "from", canonicalFrom)
		return nil
	}

	userID := UserID(svc.Channel(), canonicalFrom)
	slog.Debug("ResponseHandler processing response", "userID", userID, "body_length", len(response.Body))

	reply, procErr := rh.conv.Receive(ctx, userID, response.Body)
	if procErr != nil {
		slog.Warn("ResponseHandler conversation returned error", "userID", userID, "state", reply.State, "error", procErr)
	}

	text := flow.PlainText(reply.Messages)
	if text == "" && procErr != nil {
		text = processingFailedMessage
	}
	if text != "" {
		if err := svc.SendMessage(ctx, canonicalFrom, text); err != nil {
			return fmt.Errorf("send reply: %w", err)
		}
	}

	if reply.State == models.StateReady && rh.subscribers != nil {
		if err := rh.subscribers.AddSubscriber(ctx, svc.Channel(), userID); err != nil {
			slog.Error("ResponseHandler failed to add subscriber", "userID", userID, "error", err)
		}
	}

	slog.Info("ResponseHandler replied", "userID", userID, "state", reply.State)
	return procErr
}
