package sse

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/eventstore"
)

// RunChecker reports whether a run exists. Implemented by the run registry.
type RunChecker interface {
	RunExists(ctx context.Context, runID uuid.UUID) (bool, error)
}

// Handler returns an HTTP handler for per-run SSE connections. Clients
// reconnecting after a drop pass since_seq (or the EventSource
// Last-Event-ID header) and receive every log event after that sequence
// before live events begin.
func Handler(hub *Hub, store eventstore.Store, runs RunChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := uuid.Parse(chi.URLParam(r, "runID"))
		if err != nil {
			http.Error(w, "invalid run id", http.StatusBadRequest)
			return
		}

		exists, err := runs.RunExists(r.Context(), runID)
		if err != nil {
			http.Error(w, "run lookup failed", http.StatusInternalServerError)
			return
		}
		if !exists {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}

		sinceSeq, err := parseSinceSeq(r)
		if err != nil {
			http.Error(w, "invalid since_seq", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		// Register before catch-up so no event falls between the log read
		// and live delivery. Live events already seen during catch-up are
		// filtered by sequence below.
		client := hub.Register(runID)
		slog.Info(LogMsgClientConnected,
			"client_id", client.ID,
			"run_id", runID,
			"since_seq", sinceSeq,
			"room_clients", hub.RoomCount(runID))

		defer func() {
			hub.Unregister(client)
			slog.Info(LogMsgClientDisconnected,
				"client_id", client.ID,
				"run_id", runID)
		}()

		connectEvent := StreamEvent{
			Type:      EventTypeConnected,
			Timestamp: time.Now().Unix(),
			Payload: map[string]interface{}{
				"client_id": client.ID,
				"run_id":    runID.String(),
				"since_seq": sinceSeq,
			},
		}
		if !writeEvent(w, flusher, connectEvent) {
			return
		}

		lastSeq, ok := catchUp(r.Context(), w, flusher, store, runID, sinceSeq)
		if !ok {
			return
		}

		ticker := time.NewTicker(KeepaliveInterval)
		defer ticker.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-client.EventChannel:
				if !ok {
					// Closed by the hub: shutdown or this client lagged.
					return
				}
				if event.Seq != 0 && event.Seq <= lastSeq {
					continue
				}
				if !writeEvent(w, flusher, event) {
					return
				}
				if event.Seq > lastSeq {
					lastSeq = event.Seq
				}

			case <-ticker.C:
				keepalive := StreamEvent{
					Type:      EventTypeKeepalive,
					Timestamp: time.Now().Unix(),
				}
				if !writeEvent(w, flusher, keepalive) {
					return
				}
			}
		}
	}
}

// parseSinceSeq reads since_seq from the query, falling back to the
// Last-Event-ID header EventSource sends on automatic reconnect.
func parseSinceSeq(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("since_seq")
	if raw == "" {
		raw = r.Header.Get("Last-Event-ID")
	}
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

// catchUp streams the run's log events after sinceSeq and returns the last
// sequence written.
func catchUp(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, store eventstore.Store, runID uuid.UUID, sinceSeq uint64) (uint64, bool) {
	lastSeq := sinceSeq
	for {
		events, err := store.Read(ctx, runID, lastSeq, eventstore.DefaultReadLimit)
		if err != nil {
			slog.Error(LogMsgCatchUpFailed, "run_id", runID, "since_seq", lastSeq, "error", err)
			return lastSeq, false
		}
		if len(events) == 0 {
			return lastSeq, true
		}
		for _, ev := range events {
			if !writeEvent(w, flusher, FromLogEvent(ev)) {
				return lastSeq, false
			}
			lastSeq = ev.Seq
		}
	}
}

// writeEvent sends one frame; false means the stream must close. A frame
// that cannot be marshaled is never skipped: the client drops and catches
// up from its last seq rather than silently missing an event.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event StreamEvent) bool {
	msg, err := FormatSSEMessage(event)
	if err != nil {
		slog.Error(LogMsgWriteError, "error", err)
		return false
	}
	if _, err := w.Write(msg); err != nil {
		slog.Warn(LogMsgWriteError, "error", err)
		return false
	}
	flusher.Flush()
	return true
}
