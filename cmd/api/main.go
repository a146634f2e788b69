// Package main is the entrypoint for the metapi server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/DWE-CLOUD/metapi/internal/auth"
	"github.com/DWE-CLOUD/metapi/internal/cache"
	"github.com/DWE-CLOUD/metapi/internal/config"
	"github.com/DWE-CLOUD/metapi/internal/handler"
	"github.com/DWE-CLOUD/metapi/internal/metrics"
	"github.com/DWE-CLOUD/metapi/internal/middleware"
	"github.com/DWE-CLOUD/metapi/internal/repository"
	"github.com/DWE-CLOUD/metapi/internal/server"
	"github.com/DWE-CLOUD/metapi/internal/service"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// The development fallback secret must never sign production sessions.
	if cfg.UsingDefaultSecret() {
		if cfg.IsProduction() {
			logger.Error("AUTH_SECRET is unset in production; refusing to start")
			os.Exit(1)
		}
		logger.Warn("using the default development signing secret; set AUTH_SECRET")
	}

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

	// Initialize services
	metricsRecorder := metrics.NewNoop()
	sessions := auth.NewSessions(cfg.AuthSecret, cfg.SessionTTL, cfg.IsProduction())
	accountService := service.NewAccountService(repo)
	keyService := service.NewKeyService(repo, cacheClient, logger, metricsRecorder)
	channelService := service.NewChannelService(repo, metricsRecorder)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	authHandler := handler.NewAuthHandler(logger, accountService, sessions)
	keyHandler := handler.NewAPIKeyHandler(logger, keyService)
	channelHandler := handler.NewChannelHandler(logger, channelService)
	dataHandler := handler.NewDataHandler(logger, channelService, channelHandler)

	// Setup router
	r := setupRouter(routerDeps{
		base:     h,
		health:   healthHandler,
		auth:     authHandler,
		keys:     keyHandler,
		channels: channelHandler,
		data:     dataHandler,
		keySvc:   keyService,
		accounts: accountService,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	})

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
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

// routerDeps bundles everything setupRouter needs.
type routerDeps struct {
	base     *handler.Handler
	health   *handler.HealthHandler
	auth     *handler.AuthHandler
	keys     *handler.APIKeyHandler
	channels *handler.ChannelHandler
	data     *handler.DataHandler
	keySvc   *service.KeyService
	accounts *service.AccountService
	sessions *auth.Sessions
	cfg      *config.Config
	logger   *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      deps.cfg.IsDevelopment(),
		MaxRequestBodySize: deps.cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.MaxBodySize(deps.cfg.MaxRequestBodySize))

	if origins := deps.cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		corsCfg.AllowCredentials = true
		r.Use(middleware.CORS(corsCfg))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)

	// Root info endpoint
	r.Get("/", deps.base.Root)

	keyGate := middleware.APIKeyAuth(middleware.APIKeyAuthConfig{
		Logger: deps.logger,
		Keys:   deps.keySvc,
	})
	sessionGate := middleware.SessionAuth(middleware.SessionAuthConfig{
		Logger:   deps.logger,
		Sessions: deps.sessions,
		Users:    deps.accounts,
	})

	// Account and session endpoints
	r.Post("/auth/register", deps.auth.Register)
	r.Post("/auth/login", deps.auth.Login)
	r.Post("/auth/logout", deps.auth.Logout)
	r.With(sessionGate).Get("/auth/me", deps.auth.Me)

	// Dashboard routes (session cookie gate)
	r.Route("/v1", func(r chi.Router) {
		r.Use(sessionGate)

		r.Route("/keys", func(r chi.Router) {
			r.Get("/", deps.keys.List)
			r.Post("/", deps.keys.Create)
			r.Delete("/{id}", deps.keys.Delete)
		})

		r.Route("/channels", func(r chi.Router) {
			r.Get("/", deps.channels.List)
			r.Post("/", deps.channels.Create)
			r.Get("/{id}", deps.channels.Get)
			r.Put("/{id}", deps.channels.Update)
			r.Delete("/{id}", deps.channels.Delete)
			r.Get("/{id}/data", deps.data.Get)
			r.Post("/{id}/data", deps.data.Post)
		})
	})

	// Data API routes (X-API-Key gate)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(keyGate)

		r.Route("/channels", func(r chi.Router) {
			r.Get("/", deps.channels.List)
			r.Post("/", deps.channels.Create)
			r.Get("/{id}", deps.channels.Get)
			r.Put("/{id}", deps.channels.Update)
			r.Delete("/{id}", deps.channels.Delete)
			r.Get("/{id}/data", deps.data.Get)
			r.Post("/{id}/data", deps.data.Post)
		})
	})

	// 404 and 405 handlers
	r.NotFound(deps.base.NotFound)
	r.MethodNotAllowed(deps.base.MethodNotAllowed)

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
