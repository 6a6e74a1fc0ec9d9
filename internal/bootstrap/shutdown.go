package bootstrap

import (
	"context"
	"log/slog"

	"github.com/soullink-tracker/server/internal/server"
	"github.com/soullink-tracker/server/internal/sse"
	"github.com/soullink-tracker/server/internal/worker"
)

// ShutdownComponents holds all components that need graceful shutdown.
type ShutdownComponents struct {
	Server     *server.Server
	Hub        *sse.Hub
	GCWorker   *worker.IdempotencyGCWorker
	WorkerPool *worker.Pool
}

// GracefulShutdown stops everything in dependency order:
// 1. HTTP server (stop accepting new requests, drain in-flight ones)
// 2. SSE hub (disconnect stream clients)
// 3. Background workers (stop schedules, finish queued jobs)
//
// Errors during shutdown are logged but do not stop the sequence.
func GracefulShutdown(ctx context.Context, components ShutdownComponents) {
	slog.Info(LogMsgShuttingDownServer)

	if components.Server != nil {
		if err := components.Server.Stop(ctx); err != nil {
			slog.Error(LogMsgServerForcedShutdown, "error", err)
		}
	}

	if components.Hub != nil {
		components.Hub.Stop()
	}

	if components.GCWorker != nil {
		components.GCWorker.Shutdown()
	}

	if components.WorkerPool != nil {
		components.WorkerPool.Stop()
	}

	slog.Info(LogMsgShutdownComplete)
}
