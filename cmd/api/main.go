// Package main is the entrypoint for the usergate API server.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/usergate/usergate/internal/cache"
	"github.com/usergate/usergate/internal/config"
	"github.com/usergate/usergate/internal/handler"
	"github.com/usergate/usergate/internal/logging"
	"github.com/usergate/usergate/internal/metrics"
	"github.com/usergate/usergate/internal/middleware"
	"github.com/usergate/usergate/internal/repository"
	"github.com/usergate/usergate/internal/server"
	"github.com/usergate/usergate/internal/service"
	"github.com/usergate/usergate/internal/telemetry"
	"github.com/usergate/usergate/internal/validation"
)

const (
	serviceName = "usergate"
	version     = "0.1.0"
)

// userStore is what the service and readiness probe need from a backend.
type userStore interface {
	service.UserStore
	handler.HealthChecker
}

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger, optionally forwarding to Fluent Bit
	logOpts := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}
	var fluentClient *fluent.Fluent
	if cfg.FluentHost != "" {
		fluentClient, err = logging.NewFluentClient(logging.FluentConfig{
			Host:      cfg.FluentHost,
			Port:      cfg.FluentPort,
			TagPrefix: cfg.FluentTagPrefix,
		})
		if err != nil {
			slog.Error("failed to create fluent client", "error", err)
			os.Exit(1)
		}
		logOpts.Sink = fluentClient
	}
	logger := logging.New(logOpts)

	// Initialize tracing
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, version, cfg.OTELEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Initialize user store
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error(
			"failed to open user store",
			slog.String("driver", cfg.StoreDriver),
			slog.String("error", logging.SanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", logging.RedactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}

	// Initialize cache (optional)
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", logging.SanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", logging.RedactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		logger.Info("connected to Redis")
	}

	// Initialize services
	metricsRecorder := metrics.NewInMemory()
	validator := validation.New(cfg.EmailValidationAPIURL,
		validation.WithHTTPClient(validation.NewHTTPClient(cfg.EmailValidationTimeout)),
		validation.WithMetrics(metricsRecorder),
	)
	userService := service.NewUserService(store, validator, metricsRecorder, logger)

	// Setup router
	deps := routerDeps{
		handler:     handler.New(serviceName, version),
		health:      handler.NewHealthHandler(store, healthChecker(cacheClient)),
		users:       handler.NewUserHandler(userService, logger),
		metrics:     handler.NewMetricsHandler(metricsRecorder),
		rateLimiter: rateLimiter(cacheClient),
	}
	r := setupRouter(deps, cfg, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	hooks := shutdownHooks{tracing: shutdownTracing, store: closeStore}
	if fluentClient != nil {
		hooks.fluent = fluentClient
	}
	if cacheClient != nil {
		hooks.cache = cacheClient
	}
	registerShutdown(srv, hooks)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store_driver", cfg.StoreDriver,
		"validation_api", logging.RedactURL(validator.BaseURL()),
		"rate_limit", cfg.RateLimitEnabled && cacheClient != nil,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// shutdownHooks are the components closed after the HTTP server stops.
type shutdownHooks struct {
	tracing telemetry.ShutdownFunc
	store   func() error
	cache   io.Closer
	fluent  io.Closer
}

// registerShutdown registers hooks so that Redis closes first and the log
// sink last, after everything else has had a chance to log.
func registerShutdown(srv *server.Server, hooks shutdownHooks) {
	if hooks.fluent != nil {
		srv.OnShutdown("fluent", func(ctx context.Context) error {
			return hooks.fluent.Close()
		})
	}
	if hooks.tracing != nil {
		srv.OnShutdown("tracing", server.ShutdownFunc(hooks.tracing))
	}
	if hooks.store != nil {
		srv.OnShutdown("store", func(ctx context.Context) error {
			return hooks.store()
		})
	}
	if hooks.cache != nil {
		srv.OnShutdown("redis", func(ctx context.Context) error {
			return hooks.cache.Close()
		})
	}
}

// openStore opens the configured user store and returns its close function.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (userStore, func() error, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to database")
		return repo, func() error { repo.Close(); return nil }, nil

	case config.DriverSQLite:
		store, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("opened sqlite store", "path", cfg.SQLitePath)
		return store, store.Close, nil

	case config.DriverMemory:
		logger.Warn("using in-memory user store; data is lost on restart")
		return repository.NewMemoryStore(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// healthChecker avoids handing a typed nil to the readiness probe.
func healthChecker(c *cache.Cache) handler.HealthChecker {
	if c == nil {
		return nil
	}
	return c
}

func rateLimiter(c *cache.Cache) middleware.IPRateLimiter {
	if c == nil {
		return nil
	}
	return c
}

type routerDeps struct {
	handler     *handler.Handler
	health      *handler.HealthHandler
	users       *handler.UserHandler
	metrics     *handler.MetricsHandler
	rateLimiter middleware.IPRateLimiter
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))

	// Health endpoints
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)

	// Root info endpoint
	r.Get("/", deps.handler.Hello)

	if cfg.IsDevelopment() {
		r.Get("/metrics", deps.metrics.Metrics)
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: deps.rateLimiter,
		Enabled: cfg.RateLimitEnabled,
		RPS:     cfg.RateLimitRPS,
		Burst:   cfg.RateLimitBurst,
	}

	r.Route("/api/users", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(rateLimitCfg))
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

		r.Get("/", deps.users.List)
		r.Post("/", deps.users.Create)
		r.Get("/{id}", deps.users.Get)
		r.Put("/{id}", deps.users.Update)
		r.Delete("/{id}", deps.users.Delete)
	})

	// 404 and 405 handlers
	r.NotFound(deps.handler.NotFound)
	r.MethodNotAllowed(deps.handler.MethodNotAllowed)

	return r
}
