// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Crudkit HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect the configured users storage backend (memory, postgres, redis).
//  4. Run database migrations when the backend is PostgreSQL (idempotent).
//  5. Wire the authentication service and the role guard.
//  6. Seed the bootstrap admin account.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/crudkit/internal/api"
	"github.com/taibuivan/crudkit/internal/authn"
	"github.com/taibuivan/crudkit/internal/authz"
	"github.com/taibuivan/crudkit/internal/crudl"
	"github.com/taibuivan/crudkit/internal/crudl/memstore"
	"github.com/taibuivan/crudkit/internal/crudl/pgstore"
	"github.com/taibuivan/crudkit/internal/crudl/redistore"
	"github.com/taibuivan/crudkit/internal/platform/config"
	"github.com/taibuivan/crudkit/internal/platform/constants"
	"github.com/taibuivan/crudkit/internal/platform/middleware"
	"github.com/taibuivan/crudkit/internal/platform/migration"
	"github.com/taibuivan/crudkit/internal/platform/postgres"
	redisclient "github.com/taibuivan/crudkit/internal/platform/redis"
	"github.com/taibuivan/crudkit/internal/platform/sec"
	"github.com/taibuivan/crudkit/internal/users"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Crudkit] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("addr", cfg.Addr()),
		slog.String("users_backend", cfg.UsersBackend),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Users Storage Backend ──────────────────────────────────────────
	var (
		userPort      crudl.Port[users.User]
		userTranslate crudl.Translator
		health        api.HealthDependencies
	)

	switch cfg.UsersBackend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing postgres pool")
			pool.Close()
		}()

		// ── 4. Migrations ─────────────────────────────────────────────────
		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		userPort = pgstore.New[users.User](pool, users.PostgresSchema())
		userTranslate = pgstore.Translate
		health.CheckDatabase = func() error {
			return postgres.Ping(context.Background(), pool)
		}

	case config.BackendRedis:
		rdb, err := redisclient.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()

		userPort = redistore.New[users.User](rdb, users.RedisKeyPrefix, users.UniqueFields()...)
		userTranslate = redistore.Translate
		health.CheckCache = func() error {
			return redisclient.Ping(context.Background(), rdb)
		}

	default:
		log.Warn("using in-memory users backend, data will not survive restarts")
		userPort = memstore.New[users.User](users.UniqueFields()...)
		userTranslate = memstore.Translate
	}

	// ── 5. Security Services ──────────────────────────────────────────────
	tokens, err := sec.NewTokenService(
		cfg.JWTSecret,
		constants.AuthIssuer,
		time.Duration(cfg.JWTExpiresAfter)*time.Second,
	)
	must(log, err, "initialize token service")

	guard, err := authz.NewGuard(cfg.DefaultPolicy, cfg.WhenNoUser, cfg.RolesUserProperty)
	must(log, err, "initialize role guard")

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	accountService := users.NewService(userPort, userTranslate, cfg.SaltRounds)
	must(log, accountService.SeedAdmin(startupCtx, cfg.SeedAdminPass), "seed admin account")

	authService := authn.NewService(
		accountService,
		tokens,
		authn.Fields{Username: cfg.UsernameField},
		cfg.RefreshToken,
	)

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(health, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	// serverCtx outlives startup; cancelling it stops background middleware
	// goroutines (rate limiter cleanup) on shutdown.
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authn.NewHandler(authService),
		Users:     accountService.Handler().Routes(crudl.PolicyMiddleware(middleware.Authorize(guard))),
	}

	server := api.NewServer(serverCtx, cfg, log, authService, authService, handlers)

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
