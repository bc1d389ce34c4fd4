// Package api provides the HTTP surface of HabitLens.
//
// It exposes the chat (JSON and WebSocket), profile, schedule, habit and Twilio webhook
// endpoints on a chi router. Every user-scoped route goes through auth.Middleware.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/BTreeMap/HabitLens/internal/auth"
	"github.com/BTreeMap/HabitLens/internal/models"
)

// Constants for server configuration
const (
	DefaultAddr           = ":8080"
	DefaultReadTimeout    = 30 * time.Second
	DefaultIdleTimeout    = 120 * time.Second
	DefaultShutdownPeriod = 10 * time.Second
)

// Conversations runs the chat state machine for a user.
type Conversations interface {
	Greet(ctx context.Context, userID string) (models.ChatReply, error)
	Handle(ctx context.Context, userID, text string) (models.ChatReply, error)
	Reset(ctx context.Context, userID string) error
}

// Repository is the document access the API needs.
type Repository interface {
	LoadUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	LoadSchedule(ctx context.Context, userID, date string) (*models.ScheduleDocument, error)
	ListHabits(ctx context.Context, userID string) ([]models.Habit, error)
	AddHabit(ctx context.Context, userID string, req models.HabitRequest) (models.Habit, error)
	CompleteHabit(ctx context.Context, userID, habitID string) (models.Habit, error)
	Now() time.Time
}

// CalendarExporter inserts a stored schedule into an external calendar.
type CalendarExporter interface {
	Export(ctx context.Context, doc models.ScheduleDocument) ([]string, error)
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr          string
	JWTSecret     []byte
	CORSOrigins   []string
	SecureCookies bool
	TwilioWebhook http.HandlerFunc
	Calendar      CalendarExporter
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithAddr sets the listen address (e.g. ":8080").
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithJWTSecret sets the HMAC secret used to verify bearer tokens.
func WithJWTSecret(secret []byte) Option {
	return func(o *Opts) { o.JWTSecret = secret }
}

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins []string) Option {
	return func(o *Opts) { o.CORSOrigins = origins }
}

// WithSecureCookies marks the guest cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(o *Opts) { o.SecureCookies = secure }
}

// WithTwilioWebhook mounts the Twilio inbound webhook at /webhooks/twilio.
func WithTwilioWebhook(h http.HandlerFunc) Option {
	return func(o *Opts) { o.TwilioWebhook = h }
}

// WithCalendarExporter enables POST /schedules/{date}/export.
func WithCalendarExporter(c CalendarExporter) Option {
	return func(o *Opts) { o.Calendar = c }
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	conv     Conversations
	repo     Repository
	calendar CalendarExporter
	opts     Opts
	router   chi.Router
}

// NewServer creates a Server and builds its router.
func NewServer(conv Conversations, repo Repository, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{conv: conv, repo: repo, calendar: cfg.Calendar, opts: cfg}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	if len(s.opts.CORSOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		})
		r.Use(c.Handler)
	}

	r.Get("/healthz", s.healthHandler)
	if s.opts.TwilioWebhook != nil {
		r.Post("/webhooks/twilio", s.opts.TwilioWebhook)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.opts.JWTSecret, s.opts.SecureCookies))

		r.Get("/chat/greeting", s.greetingHandler)
		r.Post("/chat/messages", s.chatMessageHandler)
		r.Post("/chat/reset", s.chatResetHandler)
		r.Get("/chat/ws", s.chatWebSocketHandler)

		r.Get("/profile", s.profileHandler)

		r.Get("/schedules/{date}", s.scheduleHandler)
		r.Post("/schedules/{date}/export", s.scheduleExportHandler)

		r.Get("/habits", s.listHabitsHandler)
		r.Post("/habits", s.addHabitHandler)
		r.Get("/habits/analysis", s.habitAnalysisHandler)
		r.Post("/habits/{id}/complete", s.completeHabitHandler)
	})
	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.opts.Addr,
		Handler:     s.router,
		ReadTimeout: DefaultReadTimeout,
		IdleTimeout: DefaultIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownPeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("HTTP server stopped")
	return nil
}
