package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/royalty/internal/config"
	"github.com/JonMunkholm/royalty/internal/core"
	"github.com/JonMunkholm/royalty/internal/logging"
	"github.com/JonMunkholm/royalty/internal/metrics"
	"github.com/JonMunkholm/royalty/internal/store"
	"github.com/JonMunkholm/royalty/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Security.JWTSecret == "" {
		slog.Error("JWT_SECRET is required to run the server")
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"import_workers", cfg.Import.Workers,
		"cache_enabled", cfg.Redis.URL != "",
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	pool, err := store.OpenPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := store.NewPostgres(pool).EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}

	s, closeCache, err := store.Open(ctx, pool, cfg.Redis)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	core.MaxFileSize = cfg.Import.MaxFileSize
	core.ImportTimeout = cfg.Import.Timeout

	m := metrics.New(prometheus.DefaultRegisterer)
	service := core.NewService(s, m, core.Options{
		BatchWorkers:         cfg.Import.Workers,
		FlattenWorkers:       cfg.Export.Workers,
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		MaxWait:              cfg.Import.MaxWaitTime,
	})

	slog.Info("layouts registered", "count", len(core.Layouts()))

	server := web.NewServer(service, cfg, m, prometheus.DefaultGatherer)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
