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

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soullink-tracker/server/internal/bootstrap"
	"github.com/soullink-tracker/server/internal/concurrency"
	"github.com/soullink-tracker/server/internal/config"
	"github.com/soullink-tracker/server/internal/database"
	"github.com/soullink-tracker/server/internal/engine"
	"github.com/soullink-tracker/server/internal/handler"
	"github.com/soullink-tracker/server/internal/idempotency"
	"github.com/soullink-tracker/server/internal/projection"
	"github.com/soullink-tracker/server/internal/query"
	"github.com/soullink-tracker/server/internal/run"
	"github.com/soullink-tracker/server/internal/server"
	"github.com/soullink-tracker/server/internal/species"
	"github.com/soullink-tracker/server/internal/sse"
	"github.com/soullink-tracker/server/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration failed", "error", err)
		os.Exit(1)
	}

	logFile, err := bootstrap.SetupLogger(cfg)
	if err != nil {
		slog.Error("Logger setup failed", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	for _, warning := range cfg.Warnings() {
		slog.Warn("Configuration warning", "detail", warning)
	}

	// Storage: postgres by default, in-memory when MEMORY_STORE is set.
	var repos *bootstrap.Repositories
	var dbPool *pgxpool.Pool
	if cfg.MemoryStore {
		slog.Info("Using in-memory storage")
		repos = bootstrap.InitializeMemoryRepositories()
	} else {
		connString := cfg.GetDBConnString()

		if err := database.Migrate(connString); err != nil {
			slog.Error("Migrations failed", "error", err)
			os.Exit(1)
		}

		dbPool, err = database.NewPool(connString,
			database.DefaultMaxConnections,
			database.DefaultMaxConnIdleTime,
			database.DefaultMaxConnLifetime)
		if err != nil {
			slog.Error("Database connection failed", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		repos = bootstrap.InitializePostgresRepositories(dbPool)
	}

	registry, err := species.Load(cfg.SpeciesDataPath)
	if err != nil {
		slog.Error("Species data load failed", "error", err, "path", cfg.SpeciesDataPath)
		os.Exit(1)
	}
	slog.Info("Species data loaded", "species", registry.Count())

	eventBus, publisher, err := bootstrap.InitializeEventSystem(cfg)
	if err != nil {
		slog.Error("Event system setup failed", "error", err)
		os.Exit(1)
	}

	hub := sse.NewHub()
	hub.Start()

	if err := bootstrap.RegisterEventHandlers(eventBus, hub); err != nil {
		slog.Error("Event handler registration failed", "error", err)
		os.Exit(1)
	}

	idemExecutor, err := idempotency.NewExecutor(repos.Idempotency)
	if err != nil {
		slog.Error("Idempotency executor setup failed", "error", err)
		os.Exit(1)
	}

	runService := run.NewService(repos.Run, publisher)
	projEngine := projection.NewEngine(repos.Store, repos.ReadModels)
	engineService := engine.NewService(repos.Store, projEngine, repos.Tx, idemExecutor, publisher, runService, registry, concurrency.NewLockManager())
	queryService := query.NewService(repos.ReadModels, runService)

	pool := worker.NewPool(bootstrap.WorkerPoolSize, bootstrap.WorkerQueueSize)
	pool.Start()

	gcWorker := worker.NewIdempotencyGCWorker(idemExecutor, pool, worker.DefaultGCInterval)
	gcWorker.Start()

	var pinger handler.Pinger
	if dbPool != nil {
		pinger = dbPool
	}
	srv := server.NewServer(cfg.Port, cfg.APIKey, nil, pinger, repos.Store, runService, engineService, queryService, hub)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		slog.Error("Server failed", "error", err)
	case sig := <-stop:
		slog.Info("Signal received", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	bootstrap.GracefulShutdown(ctx, bootstrap.ShutdownComponents{
		Server:     srv,
		Hub:        hub,
		GCWorker:   gcWorker,
		WorkerPool: pool,
	})
}
