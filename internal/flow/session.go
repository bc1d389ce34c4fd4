package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BTreeMap/HabitLens/internal/models"
)

// SessionStore keeps conversation sessions between messages.
type SessionStore interface {
	// Load returns the stored session, or a new idle session when there is none.
	Load(ctx context.Context, userID string) (models.Session, error)
	// Save stores the session.
	Save(ctx context.Context, session models.Session) error
	// Reset removes the stored session.
	Reset(ctx context.Context, userID string) error
}

// MemorySessionStore is a process-local SessionStore.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewMemorySessionStore creates an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]models.Session)}
}

func (m *MemorySessionStore) Load(ctx context.Context, userID string) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}
	return models.NewSession(userID), nil
}

func (m *MemorySessionStore) Save(ctx context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.UserID] = session
	return nil
}

func (m *MemorySessionStore) Reset(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// SessionRepository is the persistence used by DocumentSessionStore.
type SessionRepository interface {
	SaveSession(ctx context.Context, session models.Session) error
	LoadSession(ctx context.Context, userID string) (*models.Session, error)
	DeleteSession(ctx context.Context, userID string) error
}

// DocumentSessionStore implements SessionStore over the document store, so conversations
// survive restarts.
type DocumentSessionStore struct {
	repo SessionRepository
}

// NewDocumentSessionStore creates a SessionStore backed by repo.
func NewDocumentSessionStore(repo SessionRepository) *DocumentSessionStore {
	slog.Debug("Creating DocumentSessionStore")
	return &DocumentSessionStore{repo: repo}
}

func (d *DocumentSessionStore) Load(ctx context.Context, userID string) (models.Session, error) {
	slog.Debug("SessionStore Load", "userID", userID)
	s, err := d.repo.LoadSession(ctx, userID)
	if err != nil {
		slog.Error("SessionStore Load error", "error", err, "userID", userID)
		return models.Session{}, err
	}
	if s == nil {
		slog.Debug("SessionStore Load not found", "userID", userID)
		return models.NewSession(userID), nil
	}
	if !s.State.IsValid() {
		slog.Warn("SessionStore Load found unknown state, starting over", "userID", userID, "state", s.State)
		return models.NewSession(userID), nil
	}
	s.UserID = userID
	return *s, nil
}

func (d *DocumentSessionStore) Save(ctx context.Context, session models.Session) error {
	if session.UserID == "" {
		return fmt.Errorf("session has no user id")
	}
	if err := d.repo.SaveSession(ctx, session); err != nil {
		slog.Error("SessionStore Save error", "error", err, "userID", session.UserID, "state", session.State)
		return err
	}
	slog.Debug("SessionStore Save succeeded", "userID", session.UserID, "state", session.State)
	return nil
}

func (d *DocumentSessionStore) Reset(ctx context.Context, userID string) error {
	if err := d.repo.DeleteSession(ctx, userID); err != nil {
		slog.Error("SessionStore Reset error", "error", err, "userID", userID)
		return err
	}
	slog.Info("SessionStore Reset succeeded", "userID", userID)
	return nil
}
