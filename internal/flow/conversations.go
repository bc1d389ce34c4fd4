package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BTreeMap/HabitLens/internal/models"
)

// Conversations runs an Assistant over stored sessions. Messages of one user are processed one
// at a time, in arrival order; different users proceed in parallel.
type Conversations struct {
	assistant *Assistant
	sessions  SessionStore

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewConversations creates a Conversations dispatcher.
func NewConversations(a *Assistant, sessions SessionStore) *Conversations {
	return &Conversations{assistant: a, sessions: sessions, locks: make(map[string]*userLock)}
}

// Assistant returns the underlying assistant.
func (c *Conversations) Assistant() *Assistant {
	return c.assistant
}

// Greet opens or resumes the conversation of userID.
func (c *Conversations) Greet(ctx context.Context, userID string) (models.ChatReply, error) {
	unlock := c.lock(userID)
	defer unlock()

	s, err := c.sessions.Load(ctx, userID)
	if err != nil {
		return models.ChatReply{}, fmt.Errorf("load session: %w", err)
	}
	next, msgs, err := c.assistant.Greet(ctx, s)
	return c.commit(ctx, next, msgs, err)
}

// Handle processes one user message and returns the reply to display. A reply is returned
// alongside most errors so callers can show it.
func (c *Conversations) Handle(ctx context.Context, userID, text string) (models.ChatReply, error) {
	unlock := c.lock(userID)
	defer unlock()

	s, err := c.sessions.Load(ctx, userID)
	if err != nil {
		return models.ChatReply{State: models.StateIdle, Messages: say(genericFailure)}, fmt.Errorf("load session: %w", err)
	}
	next, msgs, err := c.assistant.ProcessUserMessage(ctx, s, text)
	return c.commit(ctx, next, msgs, err)
}

// Receive handles a message from a channel that has no separate greeting step, such as
// WhatsApp. An idle conversation is greeted first; the message itself is then processed when
// the greeting found an existing profile or when a new user already asked to start.
func (c *Conversations) Receive(ctx context.Context, userID, text string) (models.ChatReply, error) {
	unlock := c.lock(userID)
	defer unlock()

	s, err := c.sessions.Load(ctx, userID)
	if err != nil {
		return models.ChatReply{State: models.StateIdle, Messages: say(genericFailure)}, fmt.Errorf("load session: %w", err)
	}
	if s.State != models.StateIdle {
		next, msgs, err := c.assistant.ProcessUserMessage(ctx, s, text)
		return c.commit(ctx, next, msgs, err)
	}

	greeted, greeting, err := c.assistant.Greet(ctx, s)
	if err != nil {
		return c.commit(ctx, greeted, greeting, err)
	}
	startsNow := greeted.State == models.StateOnboarding && wantsToStart(text)
	if greeted.State != models.StateReady && !startsNow {
		return c.commit(ctx, greeted, greeting, nil)
	}
	next, msgs, err := c.assistant.ProcessUserMessage(ctx, greeted, text)
	return c.commit(ctx, next, append(greeting, msgs...), err)
}

// Reset discards the conversation of userID. The stored profile is kept.
func (c *Conversations) Reset(ctx context.Context, userID string) error {
	unlock := c.lock(userID)
	defer unlock()
	return c.sessions.Reset(ctx, userID)
}

func (c *Conversations) commit(ctx context.Context, s models.Session, msgs []models.ChatMessage, procErr error) (models.ChatReply, error) {
	reply := models.ChatReply{State: s.State, Messages: msgs}
	if reply.Messages == nil {
		reply.Messages = []models.ChatMessage{}
	}
	if err := c.sessions.Save(ctx, s); err != nil {
		slog.Error("Conversations: session save failed", "userID", s.UserID, "state", s.State, "error", err)
		if procErr == nil {
			procErr = err
		}
	}
	return reply, procErr
}

// lock acquires the per-user lock and returns its release function.
func (c *Conversations) lock(userID string) func() {
	c.mu.Lock()
	l, ok := c.locks[userID]
	if !ok {
		l = &userLock{}
		c.locks[userID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, userID)
		}
		c.mu.Unlock()
	}
}
