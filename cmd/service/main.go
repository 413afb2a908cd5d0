// Package main is the entry point for the quotebook service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quotebook/internal/adapters/cache"
	"github.com/jsamuelsen/quotebook/internal/adapters/http"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage/sqlstore"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("store", cfg.Store.Driver),
		slog.Bool("cache", cfg.Cache.Enabled),
	)

	telProvider, err := telemetry.New(ctx, telemetry.ConfigFrom(cfg))
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	healthRegistry := ports.NewHealthRegistry()

	repo, closeRepo, err := buildRepository(ctx, cfg, logger, healthRegistry)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := closeRepo(); closeErr != nil {
			logger.Error("closing quote store", slog.Any("error", closeErr))
		}
	}()

	quoteService := app.NewQuoteService(app.QuoteServiceConfig{
		Repository: repo,
		Logger:     logger,
	})

	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo)
	quoteHandler := handlers.NewQuoteHandler(quoteService)

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.NewDefaultRouterConfig(logger, cfg, healthHandler, quoteHandler))

	if err := server.Run(ctx); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}

// buildRepository assembles the store, its metrics and the optional cache,
// registering their health checks. The returned func releases connections.
func buildRepository(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	registry ports.HealthRegistry,
) (ports.QuoteRepository, func() error, error) {
	var (
		base    ports.QuoteRepository
		checker ports.HealthChecker
		closers []func() error
	)

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store := memory.New()
		base, checker = store, store

	default:
		store, err := sqlstore.Open(ctx, &cfg.Store, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening quote store: %w", err)
		}

		base, checker = store, store
		closers = append(closers, store.Close)
	}

	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}

		return errors.Join(errs...)
	}

	if err := registry.Register(checker); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("registering store health check: %w", err), closeAll())
	}

	metrics, err := storage.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("registering store metrics: %w", err), closeAll())
	}

	repo := ports.QuoteRepository(storage.NewInstrumented(base, metrics))

	if !cfg.Cache.Enabled {
		return repo, closeAll, nil
	}

	quoteCache := cache.New(&cfg.Cache, logger)
	closers = append(closers, quoteCache.Close)

	if err := registry.RegisterOptional(quoteCache); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("registering cache health check: %w", err), closeAll())
	}

	repo = storage.NewCached(storage.CachedConfig{
		Next:   repo,
		Cache:  quoteCache,
		TTL:    cfg.Cache.TTL,
		Logger: logger,
	})

	return repo, closeAll, nil
}
