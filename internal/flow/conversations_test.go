package flow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BTreeMap/HabitLens/internal/models"
	"github.com/BTreeMap/HabitLens/internal/store"
)

func TestConversationsPersistSessionsAcrossMessages(t *testing.T) {
	repo := store.NewRepository(store.NewMemoryStore())
	p := &mockPlanner{items: []models.ScheduleItem{{Task: "Study", Start: "09:00", End: "10:00"}}}
	a := NewAssistant(repo, p)
	conv := NewConversations(a, NewDocumentSessionStore(repo))
	ctx := context.Background()

	reply, err := conv.Greet(ctx, "web:u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.State != models.StateOnboarding {
		t.Fatalf("expected onboarding, got %s", reply.State)
	}

	for _, text := range []string{"yes", "7am", "11pm", "study, exercise", "no routines", "morning, 5 hours"} {
		if reply, err = conv.Handle(ctx, "web:u1", text); err != nil {
			t.Fatalf("Handle(%q) unexpected error: %v", text, err)
		}
	}
	if reply.State != models.StateReady {
		t.Fatalf("expected ready, got %s", reply.State)
	}

	// A fresh dispatcher over the same store resumes the conversation.
	restarted := NewConversations(a, NewDocumentSessionStore(repo))
	reply, err = restarted.Handle(ctx, "web:u1", "review yesterday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.State != models.StateReady || reply.Messages[0].Text != reviewAcknowledged {
		t.Errorf("expected resumed ready session, got %+v", reply)
	}

	if err := conv.Reset(ctx, "web:u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply, _ = conv.Greet(ctx, "web:u1")
	if reply.State != models.StateReady {
		t.Errorf("expected profile to survive reset, got %s", reply.State)
	}
}

// countingPlanner records how many task parses run at once.
type countingPlanner struct {
	mockPlanner
	inFlight int32
	maxSeen  int32
}

func (c *countingPlanner) ParseTasks(ctx context.Context, input string) ([]models.Task, error) {
	n := atomic.AddInt32(&c.inFlight, 1)
	for {
		m := atomic.LoadInt32(&c.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&c.maxSeen, m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&c.inFlight, -1)
	return nil, nil
}

func TestConversationsSerializeMessagesPerUser(t *testing.T) {
	repo := newMockRepository()
	repo.profiles["u1"] = models.UserProfile{UserID: "u1"}
	p := &countingPlanner{}
	sessions := NewMemorySessionStore()
	if err := sessions.Save(context.Background(), models.Session{UserID: "u1", State: models.StateReady}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conv := NewConversations(NewAssistant(repo, p), sessions)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := conv.Handle(context.Background(), "u1", "walk the dog"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&p.maxSeen); got != 1 {
		t.Errorf("expected messages of one user to be processed one at a time, saw %d concurrent", got)
	}
	if len(conv.locks) != 0 {
		t.Errorf("expected per-user locks to be released, %d left", len(conv.locks))
	}
	if len(repo.utterances) != 8 {
		t.Errorf("expected 8 recorded utterances, got %d", len(repo.utterances))
	}
}

func TestMemorySessionStoreDefaultsToIdle(t *testing.T) {
	s := NewMemorySessionStore()
	got, err := s.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.State != models.StateIdle || got.UserID != "nobody" {
		t.Errorf("unexpected session %+v", got)
	}
}

func TestConversationsReceive(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	repo.profiles["whatsapp:+15550001"] = models.UserProfile{UserID: "whatsapp:+15550001"}
	conv := NewConversations(NewAssistant(repo, &mockPlanner{}), NewMemorySessionStore())

	t.Run("new user is greeted before anything else", func(t *testing.T) {
		reply, err := conv.Receive(ctx, "whatsapp:+15550002", "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply.State != models.StateOnboarding || len(reply.Messages) != 1 || reply.Messages[0].Text != newUserGreeting {
			t.Fatalf("unexpected reply %+v", reply)
		}
		reply, _ = conv.Receive(ctx, "whatsapp:+15550002", "yes")
		if reply.State != models.StateAwaitingWakeTime {
			t.Errorf("expected wake time question, got %s", reply.State)
		}
	})

	t.Run("new user asking to start skips the second round trip", func(t *testing.T) {
		reply, err := conv.Receive(ctx, "whatsapp:+15550003", "start")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply.State != models.StateAwaitingWakeTime || len(reply.Messages) != 2 {
			t.Fatalf("unexpected reply %+v", reply)
		}
		if reply.Messages[0].Text != newUserGreeting || reply.Messages[1].Text != questionWakeTime {
			t.Errorf("expected greeting then wake time question, got %+v", reply.Messages)
		}
	})

	t.Run("returning user gets greeting and answer", func(t *testing.T) {
		reply, err := conv.Receive(ctx, "whatsapp:+15550001", "review yesterday")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply.State != models.StateReady || len(reply.Messages) != 2 {
			t.Fatalf("unexpected reply %+v", reply)
		}
		if reply.Messages[1].Text != reviewAcknowledged {
			t.Errorf("expected review acknowledgement, got %q", reply.Messages[1].Text)
		}
	})
}
