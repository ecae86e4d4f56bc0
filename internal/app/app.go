// Package app provides the main application struct for centralized dependency
// management and lifecycle control of the costwatch server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"costwatch/config"
	"costwatch/internal/cache"
	"costwatch/internal/costs"
	"costwatch/internal/observability"
	"costwatch/internal/providers"
	"costwatch/internal/report"
	"costwatch/internal/retry"
	"costwatch/internal/server"
	"costwatch/internal/usage"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config *config.Config
	cache  cache.Cache
	ledger *report.Store
	server *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &App{config: cfg}

	overrides, err := usage.LoadOverrides(cfg.PricingOverridesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing overrides: %w", err)
	}

	registry, err := buildRegistry(cfg, overrides)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			URL: cfg.Cache.RedisURL,
			TTL: cfg.Cache.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		app.cache = redisCache
	} else {
		app.cache = cache.NewMemoryCache(cfg.Cache.TTL)
	}

	var ledger costs.Ledger
	if cfg.Mongo.URI != "" {
		store, err := report.NewStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.RetentionDays)
		if err != nil {
			closeErr := app.cache.Close()
			if closeErr != nil {
				return nil, fmt.Errorf("failed to initialize report ledger: %w (also: cache close error: %v)", err, closeErr)
			}
			return nil, fmt.Errorf("failed to initialize report ledger: %w", err)
		}
		app.ledger = store
		ledger = store
	}

	service := costs.NewService(registry, app.cache, ledger, slog.Default())

	app.server = server.New(service, &server.Config{
		MasterKey:       cfg.Server.MasterKey,
		MetricsEnabled:  cfg.Server.MetricsEnabled,
		MetricsEndpoint: cfg.Server.MetricsEndpoint,
	})

	app.logStartupInfo(registry)
	return app, nil
}

// buildRegistry constructs one provider instance per configured credential.
// Each provider gets its own retry policy so retry metrics carry its label.
func buildRegistry(cfg *config.Config, overrides usage.Overrides) (*providers.Registry, error) {
	registry := providers.NewRegistry()

	for id, pc := range cfg.Providers.Configured() {
		policy := retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			OnRetry: func(attempt int, err error) {
				observability.UpstreamRetries.WithLabelValues(id).Inc()
				slog.Warn("retrying upstream request",
					"provider", id, "attempt", attempt, "error", err)
			},
		}

		p, err := providers.Create(id, pc.APIKey, providers.Options{
			Retry:            policy,
			BaseURL:          pc.BaseURL,
			PricingOverrides: overrides[id],
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize provider %s: %w", id, err)
		}
		registry.Add(p)
	}

	return registry, nil
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order:
// HTTP server first (stop accepting requests), then the result cache, then
// the report ledger connection.
//
// Shutdown is idempotent and safe for repeated calls. It attempts every close
// step, aggregates failures, and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Error("cache close error", "error", err)
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}

	if a.ledger != nil {
		if err := a.ledger.Close(ctx); err != nil {
			slog.Error("report ledger close error", "error", err)
			errs = append(errs, fmt.Errorf("ledger close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo(registry *providers.Registry) {
	cfg := a.config

	if cfg.Server.MasterKey == "" {
		slog.Warn("SECURITY WARNING: COSTWATCH_MASTER_KEY not set - server running in UNSAFE MODE",
			"security_risk", "unauthenticated access allowed",
			"recommendation", "set COSTWATCH_MASTER_KEY environment variable to secure this API")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	if cfg.Server.MetricsEnabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Server.MetricsEndpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	backend := "memory"
	if cfg.Cache.RedisURL != "" {
		backend = "redis"
	}
	slog.Info("result cache configured", "backend", backend, "ttl", cfg.Cache.TTL)

	if cfg.Mongo.URI != "" {
		slog.Info("report ledger enabled",
			"database", cfg.Mongo.Database,
			"retention_days", cfg.Mongo.RetentionDays)
	} else {
		slog.Info("report ledger disabled")
	}

	ids := registry.IDs()
	if len(ids) == 0 {
		slog.Warn("no providers configured - set at least one provider API key")
	} else {
		slog.Info("providers configured", "providers", ids)
	}
}
