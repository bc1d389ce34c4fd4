package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/HabitLens/internal/api"
	"github.com/BTreeMap/HabitLens/internal/calendar"
	"github.com/BTreeMap/HabitLens/internal/flow"
	"github.com/BTreeMap/HabitLens/internal/genai"
	"github.com/BTreeMap/HabitLens/internal/lockfile"
	"github.com/BTreeMap/HabitLens/internal/messaging"
	"github.com/BTreeMap/HabitLens/internal/planner"
	"github.com/BTreeMap/HabitLens/internal/scheduler"
	"github.com/BTreeMap/HabitLens/internal/store"
	"github.com/BTreeMap/HabitLens/internal/twiliowhatsapp"
	"github.com/BTreeMap/HabitLens/internal/util"
	"github.com/BTreeMap/HabitLens/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for HabitLens state data
	DefaultStateDir = "/var/lib/habitlens"
	// DefaultAppDBFileName is the default SQLite document database filename
	DefaultAppDBFileName = "habitlens.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow session database filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"

	sessionBackendMemory = "memory"
	sessionBackendStore  = "store"
)

func main() {
	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)
	initializeLogger(*flags.debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping HabitLens with configured modules")
	if err := run(ctx, flags); err != nil {
		var lockErr *lockfile.LockError
		if errors.As(err, &lockErr) {
			fmt.Fprintln(os.Stderr, lockErr.Error())
		}
		slog.Error("HabitLens failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("HabitLens exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir         string
	DatabaseURL      string
	OpenAIKey        string
	OpenAIModel      string
	OpenAIBaseURL    string
	APIAddr          string
	JWTSecret        string
	CORSOrigins      string
	SecureCookies    bool
	SessionBackend   string
	WhatsAppEnabled  bool
	WhatsAppDBDSN    string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	TwilioWebhookURL string
	DailyPlanCron    string
	GoogleCreds      string
	GoogleToken      string
	GoogleCalendarID string
	TimeZone         string
	GenAIDebug       bool
	Debug            bool
}

// Flags holds command line flag values
type Flags struct {
	qrOutput        *string
	numeric         *bool
	stateDir        *string
	dbDSN           *string
	waDSN           *string
	openaiKey       *string
	openaiModel     *string
	apiAddr         *string
	sessionBackend  *string
	whatsappEnabled *bool
	dailyPlanCron   *string
	debug           *bool

	// Set from the environment only.
	config Config
}

// initializeLogger sets up structured logging on stdout
func initializeLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	config := Config{
		StateDir:         util.EnvOrDefault("HABITLENS_STATE_DIR", DefaultStateDir),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      util.EnvOrDefault("OPENAI_MODEL", genai.DefaultModel),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		APIAddr:          util.EnvOrDefault("API_ADDR", api.DefaultAddr),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		CORSOrigins:      os.Getenv("CORS_ORIGINS"),
		SecureCookies:    util.ParseBoolEnv("SECURE_COOKIES", false),
		SessionBackend:   util.EnvOrDefault("SESSION_BACKEND", sessionBackendStore),
		WhatsAppEnabled:  util.ParseBoolEnv("WHATSAPP_ENABLED", false),
		WhatsAppDBDSN:    os.Getenv("WHATSAPP_DB_DSN"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM"),
		TwilioWebhookURL: os.Getenv("TWILIO_WEBHOOK_URL"),
		DailyPlanCron:    util.EnvOrDefault("DAILY_PLAN_CRON", scheduler.DefaultDailyPlanCron),
		GoogleCreds:      os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		GoogleToken:      os.Getenv("GOOGLE_TOKEN_FILE"),
		GoogleCalendarID: util.EnvOrDefault("GOOGLE_CALENDAR_ID", calendar.DefaultCalendarID),
		TimeZone:         os.Getenv("HABITLENS_TIME_ZONE"),
		GenAIDebug:       util.ParseBoolEnv("GENAI_DEBUG", false),
		Debug:            util.ParseBoolEnv("HABITLENS_DEBUG", false),
	}

	// Without a database URL the document store is SQLite in the state directory.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultAppDBFileName)
	}
	if config.WhatsAppDBDSN == "" {
		config.WhatsAppDBDSN = "file:" + filepath.Join(config.StateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
	}
	if config.GoogleToken == "" && config.GoogleCreds != "" {
		config.GoogleToken = filepath.Join(config.StateDir, "google_token.json")
	}
	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	return parseFlags(flag.CommandLine, os.Args[1:], config)
}

func parseFlags(fs *flag.FlagSet, args []string, config Config) Flags {
	flags := Flags{
		qrOutput:        fs.String("qr-output", "", "path to write the WhatsApp login QR code"),
		numeric:         fs.Bool("numeric-code", false, "use numeric login code instead of QR code"),
		stateDir:        fs.String("state-dir", config.StateDir, "state directory for HabitLens data (overrides $HABITLENS_STATE_DIR)"),
		dbDSN:           fs.String("db-dsn", config.DatabaseURL, "document store DSN: Postgres URL or SQLite path (overrides $DATABASE_URL)"),
		waDSN:           fs.String("whatsapp-db-dsn", config.WhatsAppDBDSN, "whatsmeow session database DSN (overrides $WHATSAPP_DB_DSN)"),
		openaiKey:       fs.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:     fs.String("openai-model", config.OpenAIModel, "chat model (overrides $OPENAI_MODEL)"),
		apiAddr:         fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		sessionBackend:  fs.String("session-backend", config.SessionBackend, "conversation session storage: memory or store (overrides $SESSION_BACKEND)"),
		whatsappEnabled: fs.Bool("whatsapp", config.WhatsAppEnabled, "enable the whatsmeow WhatsApp channel (overrides $WHATSAPP_ENABLED)"),
		dailyPlanCron:   fs.String("daily-plan-cron", config.DailyPlanCron, "cron expression of the daily plan job (overrides $DAILY_PLAN_CRON)"),
		debug:           fs.Bool("debug", config.Debug, "enable debug logging"),
		config:          config,
	}
	if err := fs.Parse(args); err != nil {
		slog.Warn("flag parsing failed", "error", err)
	}

	// Follow a relocated state directory when the DSNs still point at the default one.
	if *flags.stateDir != config.StateDir {
		if *flags.dbDSN == filepath.Join(config.StateDir, DefaultAppDBFileName) {
			*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultAppDBFileName)
		}
		if *flags.waDSN == "file:"+filepath.Join(config.StateDir, DefaultWhatsAppDBFileName)+"?_foreign_keys=on" {
			*flags.waDSN = "file:" + filepath.Join(*flags.stateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
		}
	}
	return flags
}

func run(ctx context.Context, flags Flags) error {
	lock, err := lockfile.Acquire(*flags.stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	docs, err := store.New(buildStoreOptions(flags)...)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	repo := store.NewRepository(docs)
	defer repo.Close()

	llm, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		return fmt.Errorf("create completion client: %w", err)
	}
	pl := planner.New(llm)

	sessions, err := buildSessionStore(*flags.sessionBackend, repo)
	if err != nil {
		return err
	}
	conv := flow.NewConversations(flow.NewAssistant(repo, pl), sessions)
	apiOpts := buildAPIOptions(flags)

	services, twilioSvc, err := buildMessagingServices(ctx, flags)
	if err != nil {
		return err
	}
	if twilioSvc != nil {
		apiOpts = append(apiOpts, api.WithTwilioWebhook(twilioSvc.WebhookHandler))
	}

	handler := messaging.NewResponseHandler(conv, repo)
	for _, svc := range services {
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("start %s channel: %w", svc.Channel(), err)
		}
		defer svc.Stop()
		go handler.Listen(ctx, svc)
	}

	if len(services) > 0 {
		channels := messaging.NewChannels(services...)
		sched := scheduler.NewScheduler()
		defer sched.Stop()
		plan := scheduler.NewDailyPlan(repo, pl, channels, channels.Names())
		if err := plan.Register(ctx, sched, *flags.dailyPlanCron); err != nil {
			return err
		}
	}

	if exporter := buildCalendarExporter(ctx, flags.config); exporter != nil {
		apiOpts = append(apiOpts, api.WithCalendarExporter(exporter))
	}

	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "api_addr", *flags.apiAddr,
		"session_backend", *flags.sessionBackend, "channels", len(services))
	return api.NewServer(conv, repo, apiOpts...).Run(ctx)
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return storeOpts
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		return append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	if flags.config.OpenAIBaseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(flags.config.OpenAIBaseURL))
	}
	if flags.config.GenAIDebug {
		genaiOpts = append(genaiOpts, genai.WithDebugMode(true, *flags.stateDir))
	}
	return genaiOpts
}

// buildWhatsAppOptions constructs WhatsApp configuration options
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var waOpts []whatsapp.Option
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	if *flags.waDSN != "" {
		waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.waDSN))
	}
	return waOpts
}

// buildTwilioOptions constructs Twilio configuration options. It returns nil when Twilio is
// not configured.
func buildTwilioOptions(config Config) []twiliowhatsapp.Option {
	if config.TwilioAccountSID == "" || config.TwilioAuthToken == "" || config.TwilioFrom == "" {
		return nil
	}
	return []twiliowhatsapp.Option{
		twiliowhatsapp.WithAccountSID(config.TwilioAccountSID),
		twiliowhatsapp.WithAuthToken(config.TwilioAuthToken),
		twiliowhatsapp.WithFromWhats(config.TwilioFrom),
	}
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if flags.config.JWTSecret != "" {
		apiOpts = append(apiOpts, api.WithJWTSecret([]byte(flags.config.JWTSecret)))
	}
	if origins := splitList(flags.config.CORSOrigins); len(origins) > 0 {
		apiOpts = append(apiOpts, api.WithCORSOrigins(origins))
	}
	if flags.config.SecureCookies {
		apiOpts = append(apiOpts, api.WithSecureCookies(true))
	}
	return apiOpts
}

func buildSessionStore(backend string, repo *store.Repository) (flow.SessionStore, error) {
	switch strings.ToLower(backend) {
	case sessionBackendMemory:
		slog.Info("Using in-memory conversation sessions")
		return flow.NewMemorySessionStore(), nil
	case sessionBackendStore, "":
		return flow.NewDocumentSessionStore(repo), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q (want %s or %s)", backend, sessionBackendMemory, sessionBackendStore)
	}
}

func buildMessagingServices(ctx context.Context, flags Flags) ([]messaging.Service, *messaging.TwilioService, error) {
	var services []messaging.Service
	if *flags.whatsappEnabled {
		client, err := whatsapp.NewClient(ctx, buildWhatsAppOptions(flags)...)
		if err != nil {
			return nil, nil, fmt.Errorf("create WhatsApp client: %w", err)
		}
		services = append(services, messaging.NewWhatsAppService(client))
	}

	var twilioSvc *messaging.TwilioService
	if twOpts := buildTwilioOptions(flags.config); twOpts != nil {
		client, err := twiliowhatsapp.NewClient(twOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create Twilio client: %w", err)
		}
		var svcOpts []messaging.TwilioOption
		if flags.config.TwilioWebhookURL != "" {
			svcOpts = append(svcOpts, messaging.WithWebhookURL(flags.config.TwilioWebhookURL))
		} else {
			slog.Warn("TWILIO_WEBHOOK_URL not set, Twilio webhook signatures are not checked")
		}
		twilioSvc = messaging.NewTwilioService(client, svcOpts...)
		services = append(services, twilioSvc)
	}
	return services, twilioSvc, nil
}

// buildCalendarExporter returns nil when calendar export is not configured or unavailable.
func buildCalendarExporter(ctx context.Context, config Config) *calendar.Exporter {
	if config.GoogleCreds == "" {
		return nil
	}
	srv, err := calendar.NewService(ctx, config.GoogleCreds, config.GoogleToken)
	if err != nil {
		slog.Warn("Google Calendar export disabled", "error", err)
		return nil
	}
	opts := []calendar.Option{calendar.WithCalendarID(config.GoogleCalendarID)}
	if config.TimeZone != "" {
		loc, err := time.LoadLocation(config.TimeZone)
		if err != nil {
			slog.Warn("Invalid HABITLENS_TIME_ZONE, using local time", "time_zone", config.TimeZone, "error", err)
		} else {
			opts = append(opts, calendar.WithLocation(loc))
		}
	}
	return calendar.NewExporter(srv, opts...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
