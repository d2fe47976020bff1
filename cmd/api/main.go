// Package main is the entrypoint for the LeadLens API server.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/leadlens/leadlens/internal/cache"
	"github.com/leadlens/leadlens/internal/config"
	"github.com/leadlens/leadlens/internal/events"
	"github.com/leadlens/leadlens/internal/handler"
	"github.com/leadlens/leadlens/internal/metrics"
	"github.com/leadlens/leadlens/internal/middleware"
	"github.com/leadlens/leadlens/internal/repository"
	"github.com/leadlens/leadlens/internal/scrapeapi"
	"github.com/leadlens/leadlens/internal/server"
	"github.com/leadlens/leadlens/internal/service"
	"github.com/leadlens/leadlens/internal/webhook"
)

func main() {
	ctx := context.Background()

	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// The webhook subsystem keeps its own database/sql handle.
	webhookDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to open webhook database handle",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer webhookDB.Close()

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Scraping provider client
	scraper := scrapeapi.NewClient(cfg.ScrapeAPIBaseURL, logger)
	scraper.SetTimeout(cfg.ScrapeAPITimeout)

	metricsRecorder := metrics.NewInMemory()

	// Activity event pipeline
	activityPublisher := events.NewPublisher(cacheClient.Client(), logger, metricsRecorder)
	eventsWorker := events.NewWorker(cacheClient.Client(), repo, logger, events.NewConsumerID(), metricsRecorder)

	// Webhook subsystem
	webhookRepo := webhook.NewRepository(webhookDB)
	webhookPublisher := webhook.NewPublisher(webhookRepo, logger)
	webhookWorker := webhook.NewWorker(webhookRepo, logger, metricsRecorder)

	// Services
	credentialService := service.NewCredentialService(repo)
	profileService := service.NewProfileService(repo, cacheClient, scraper, metricsRecorder)
	jobService := service.NewJobService(
		repo,
		scraper,
		profileService,
		activityPublisher,
		webhookPublisher,
		metricsRecorder,
		logger,
		cfg.JobExecTimeout,
	)

	// Handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	meHandler := handler.NewMeHandler(logger, repo)
	credentialHandler := handler.NewCredentialHandler(credentialService, logger)
	profileHandler := handler.NewProfileHandler(profileService, credentialService, logger)
	jobHandler := handler.NewJobHandler(jobService, logger)
	analyticsHandler := handler.NewAnalyticsHandler(repo, logger)
	apiKeyHandler := handler.NewAPIKeyHandler(logger, repo)
	webhookHandler := handler.NewWebhookHandler(webhookRepo, logger, cfg.IsDevelopment())
	adminHandler := handler.NewAdminHandler(repo, repo, repo, logger)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)

	routerCfg := routerConfig{
		base:        h,
		health:      healthHandler,
		me:          meHandler,
		credentials: credentialHandler,
		profiles:    profileHandler,
		jobs:        jobHandler,
		analytics:   analyticsHandler,
		apiKeys:     apiKeyHandler,
		webhooks:    webhookHandler,
		admin:       adminHandler,
		metrics:     metricsHandler,
	}

	r := setupRouter(routerCfg, repo, cacheClient, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Background workers stop in reverse registration order: the
	// webhook worker drains before the events worker so terminal job
	// events still reach the trail.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	go func() {
		if err := eventsWorker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("events worker stopped", "error", err)
		}
	}()
	go func() {
		if err := webhookWorker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("webhook worker stopped", "error", err)
		}
	}()

	srv.OnShutdown("events worker", func(ctx context.Context) error {
		return eventsWorker.Shutdown(ctx)
	})
	srv.OnShutdown("background workers", func(ctx context.Context) error {
		cancelWorkers()
		return nil
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"scrape_api", cfg.ScrapeAPIBaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// routerConfig groups the handlers wired into the router.
type routerConfig struct {
	base        *handler.Handler
	health      *handler.HealthHandler
	me          *handler.MeHandler
	credentials *handler.CredentialHandler
	profiles    *handler.ProfileHandler
	jobs        *handler.JobHandler
	analytics   *handler.AnalyticsHandler
	apiKeys     *handler.APIKeyHandler
	webhooks    *handler.WebhookHandler
	admin       *handler.AdminHandler
	metrics     *handler.MetricsHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	hs routerConfig,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// Rate limit middleware configuration
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:     logger,
		Cache:      cacheClient,
		APIEnabled: cfg.RateLimitAPIEnabled,
		IPEnabled:  cfg.RateLimitIPEnabled,
		IPRPS:      cfg.RateLimitIPRPS,
		IPBurst:    cfg.RateLimitIPBurst,
	}

	// Health endpoints (no auth required)
	r.With(middleware.RateLimitIP(rateLimitCfg)).Get("/healthz", hs.health.Healthz)
	r.With(middleware.RateLimitIP(rateLimitCfg)).Get("/readyz", hs.health.Readyz)

	// Root info endpoint
	r.Get("/", hs.base.Hello)

	// Auth middleware configuration
	authCfg := middleware.AuthConfig{
		Logger:     logger,
		Repository: repo,
		Cache:      cacheClient,
	}

	// API v1 routes (require authentication)
	r.Route("/api/v1", func(r chi.Router) {
		// Apply auth and rate limit middleware to all API routes
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitAPI(rateLimitCfg))

		r.With(middleware.RequireRead()).Get("/me", hs.me.Get)

		// Provider credential management
		r.Route("/credentials", func(r chi.Router) {
			r.With(middleware.RequireRead()).Get("/", hs.credentials.List)
			r.With(middleware.RequireRead()).Get("/{id}", hs.credentials.Get)
			r.With(middleware.RequireWrite()).Post("/", hs.credentials.Create)
			r.With(middleware.RequireWrite()).Delete("/{id}", hs.credentials.Deactivate)
		})

		// Scraping jobs
		r.Route("/jobs", func(r chi.Router) {
			r.With(middleware.RequireRead()).Get("/", hs.jobs.List)
			r.With(middleware.RequireRead()).Get("/analytics", hs.analytics.GetJobStats)
			r.With(middleware.RequireRead()).Get("/{id}", hs.jobs.Get)
			r.With(middleware.RequireRead()).Get("/{id}/events", hs.jobs.Events)
			r.With(middleware.RequireWrite()).Post("/", hs.jobs.Create)
		})

		// Scraped profiles
		r.Route("/profiles", func(r chi.Router) {
			r.With(middleware.RequireRead()).Get("/", hs.profiles.List)
			r.With(middleware.RequireAdmin()).Get("/all", hs.profiles.ListAll)
			r.With(middleware.RequireWrite()).Post("/fetch", hs.profiles.Fetch)
		})

		// Webhook endpoint management
		r.Route("/webhooks", func(r chi.Router) {
			r.Get("/", hs.webhooks.List)
			r.Post("/", hs.webhooks.Create)
			r.Get("/{id}", hs.webhooks.Get)
			r.Patch("/{id}", hs.webhooks.Update)
			r.Delete("/{id}", hs.webhooks.Delete)
			r.Post("/{id}/rotate-secret", hs.webhooks.RotateSecret)
			r.Get("/{id}/deliveries", hs.webhooks.ListDeliveries)
			r.Post("/{id}/deliveries/{deliveryId}/retry", hs.webhooks.RetryDelivery)
		})

		// API key management (requires admin scope for mutations)
		r.Route("/api-keys", func(r chi.Router) {
			r.With(middleware.RequireRead()).Get("/", hs.apiKeys.ListAPIKeys)
			r.With(middleware.RequireAdmin()).Post("/", hs.apiKeys.CreateAPIKey)
			r.With(middleware.RequireAdmin()).Delete("/{key_id}", hs.apiKeys.RevokeAPIKey)
			r.With(middleware.RequireAdmin()).Post("/{key_id}/rotate", hs.apiKeys.RotateAPIKey)
		})

		// Admin endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/profiles", hs.admin.LookupProfiles)
			r.Get("/jobs", hs.admin.LookupJob)
			r.Get("/api-keys", hs.admin.ListAPIKeysByUser)
			r.Get("/stats", hs.admin.Stats)
		})
	})

	// Metrics endpoint (no auth; expose behind network policy)
	r.Get("/metrics", hs.metrics.Metrics)

	// 404 and 405 handlers
	r.NotFound(hs.base.NotFound)
	r.MethodNotAllowed(hs.base.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
