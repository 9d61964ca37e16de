package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	assistanthandler "github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/handler"
	assistantrepo "github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/repository"
	assistantservice "github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/service"
	authservice "github.com/FACorreiaa/echo-voice-assistant/internal/domain/auth/service"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/categorization"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/insights"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/config"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/cron"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/db"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/metrics"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Observability
	Registry *prometheus.Registry
	Metrics  *metrics.Assistant

	// Repositories
	AssistantStore     *assistantrepo.PostgresStore
	CategorizationRepo *categorization.Repository
	InsightsRepo       *insights.Repository

	// Services
	TokenManager          authservice.TokenManager
	AuthService           *authservice.AuthService
	CategorizationService *categorization.Service
	InsightsService       *insights.Service
	AssistantService      *assistantservice.Service
	Scheduler             *cron.Scheduler

	// Handlers
	AssistantHandler *assistanthandler.AssistantHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initMetrics()

	// Initialize repositories
	deps.initRepositories()

	// Initialize services
	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if d.Config.Database.RunMigrations {
		if err := d.DB.RunMigrations(); err != nil {
			d.DB.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	d.Logger.Info("database connected")
	return nil
}

func (d *Dependencies) initMetrics() {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = metrics.NewAssistant(d.Registry)
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.AssistantStore = assistantrepo.NewPostgresStore(d.DB.Pool)
	d.CategorizationRepo = categorization.NewRepository(d.DB.Pool)
	d.InsightsRepo = insights.NewRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	if d.Config.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	d.TokenManager = authservice.NewJWTManager(d.Config.Auth.JWTSecret, d.Config.Auth.AccessTokenTTL)
	d.AuthService = authservice.NewAuthService(d.TokenManager, d.Logger)

	// Category resolver backed by learned phrase mappings
	d.CategorizationService = categorization.NewService(d.CategorizationRepo, d.Logger)

	// Insight narrator over the month aggregates
	d.InsightsService = insights.NewService(d.InsightsRepo, d.Logger)

	d.AssistantService = assistantservice.NewService(
		d.AssistantStore,
		newCategorizationAdapter(d.CategorizationService, d.Logger),
		d.InsightsService,
		assistantservice.Config{
			ConfirmationWindow: d.Config.Assistant.ConfirmationWindow,
			SessionTTL:         d.Config.Assistant.SessionTTL,
			DefaultLocale:      d.Config.Assistant.DefaultLocale,
		},
		d.Logger,
		assistantservice.WithMetrics(d.Metrics),
	)

	// Expire unanswered commands and idle sessions in the background
	d.Scheduler = cron.NewScheduler(
		d.AssistantStore,
		d.Config.Assistant.ConfirmationWindow,
		d.Config.Assistant.SweepSchedule,
		d.Metrics,
		d.Logger,
	)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.AssistantHandler = assistanthandler.NewAssistantHandler(d.AssistantService, d.AssistantStore, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
