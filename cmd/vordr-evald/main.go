// Package main initializes and runs the vordr evaluation server.
//
// It is the composition root: configuration, logging, storage adapter,
// spec source, polling service, evaluation API, and the observability
// server are all wired here.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vordr-io/vordr-go/internal/config"
	"github.com/vordr-io/vordr-go/internal/evalapi"
	"github.com/vordr-io/vordr-go/internal/evaluator"
	"github.com/vordr-io/vordr-go/internal/logger"
	"github.com/vordr-io/vordr-go/internal/observability"
	"github.com/vordr-io/vordr-go/internal/persistence"
	"github.com/vordr-io/vordr-go/internal/transport"
)

// main is the application entrypoint.
func main() {
	if err := run(); err != nil {
		log.Printf("Fatal error: %v", err)
		os.Exit(1)
	}
}

// run executes the service lifecycle.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg := logger.New(&cfg.App)
	cfg.LogConfig(logg)

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), logg))
	defer cancel()

	// Storage adapter backing the warm-start snapshot, selected by
	// configuration. The adapters double as readiness checkers.
	var (
		adapter  persistence.Adapter
		checkers []observability.Checker
	)
	switch cfg.Storage.Backend {
	case config.StorageBackendMemory:
		mem, err := persistence.NewMemory(cfg.Storage.MemoryCapacity, cfg.Storage.MemoryTTL)
		if err != nil {
			return fmt.Errorf("failed to create memory storage: %w", err)
		}
		defer mem.Close()
		adapter = mem
	case config.StorageBackendRedis:
		client, err := persistence.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisAdapter := persistence.NewRedis(client)
		defer redisAdapter.Close()
		adapter = redisAdapter
		checkers = append(checkers, persistence.NewRedisChecker(redisAdapter))
	case config.StorageBackendPostgres:
		pool, err := persistence.NewPostgresPool(ctx, cfg.Database.ConnectionString())
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer pool.Close()
		pgAdapter, err := persistence.NewPostgres(ctx, pool)
		if err != nil {
			return fmt.Errorf("failed to initialize postgres storage: %w", err)
		}
		adapter = pgAdapter
		checkers = append(checkers, persistence.NewPostgresChecker(pgAdapter))
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	// Catalog with warm start from the persisted snapshot.
	catalog := evalapi.NewCatalog(evaluator.New(logg))
	snapshotter := evalapi.NewSnapshotter(catalog, adapter, logg)
	if err := snapshotter.Warm(ctx); err != nil {
		logg.Warn("warm start failed, serving will wait for the first fetch",
			slog.String("error", err.Error()))
	}

	// Spec source and polling service.
	var (
		source     transport.Source
		fileSource *transport.FileSource
	)
	switch cfg.Source.Kind {
	case config.SourceKindFile:
		fileSource = transport.NewFileSource(cfg.Source.Path, logg)
		source = fileSource
	default:
		source = transport.NewHTTPSource(&cfg.Source)
	}

	poller := transport.New(logg, transport.Config{Interval: cfg.Source.PollInterval}, source, snapshotter)
	go func() {
		_ = poller.Run(ctx)
	}()

	if fileSource != nil {
		// File changes apply immediately instead of waiting for a tick.
		go func() {
			if err := fileSource.Watch(ctx, poller.Kick); err != nil {
				logg.Error("spec file watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// Evaluation HTTP API.
	skipAuth := cfg.Server.APIKeyHash == ""
	if skipAuth {
		logg.Warn("API authentication disabled: no API key hash configured")
	}
	api := evalapi.NewAPIWithConfig(catalog, cfg.Server.APIKeyHash, skipAuth)

	srv := &http.Server{
		Addr:           cfg.Server.Addr(),
		Handler:        api.Router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Observability server on its own port.
	obsServer := observability.NewServer(logg, &cfg.Observability, checkers...)
	obsServer.Start()

	errChan := make(chan error, 1)
	go func() {
		logg.Info("evaluation API listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("evaluation API failed: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		logg.Info("shutdown signal received")
	}

	// Stop the poller and watcher before draining HTTP connections.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("evaluation API shutdown failed", slog.String("error", err.Error()))
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("observability server shutdown failed", slog.String("error", err.Error()))
	}

	logg.Info("service exited successfully")
	return nil
}
