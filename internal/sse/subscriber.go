package sse

import (
	"context"
	"log/slog"

	"github.com/soullink-tracker/server/internal/domain"
	"github.com/soullink-tracker/server/internal/event"
)

// Subscriber bridges the internal event bus to the SSE hub
type Subscriber struct {
	hub *Hub
	bus event.Bus
}

// NewSubscriber creates a new SSE subscriber
func NewSubscriber(hub *Hub, bus event.Bus) *Subscriber {
	return &Subscriber{
		hub: hub,
		bus: bus,
	}
}

// Subscribe registers a handler for every persisted log event type, so the
// stream mirrors the log one frame per appended event.
func (s *Subscriber) Subscribe() {
	types := make([]string, 0, len(event.LogEventTypes))
	for _, t := range event.LogEventTypes {
		s.bus.Subscribe(t, s.handleLogEvent)
		types = append(types, string(t))
	}

	slog.Info("SSE subscriber registered for event types", "types", types)
}

// handleLogEvent forwards an appended log event to the run's room
func (s *Subscriber) handleLogEvent(_ context.Context, evt event.Event) error {
	logEv, err := event.DecodePayload[domain.Event](evt.Payload)
	if err != nil {
		slog.Warn("Invalid log event payload on bus", "event_type", evt.Type, "error", err)
		return nil
	}

	s.hub.Broadcast(logEv.RunID, FromLogEvent(logEv))

	slog.Debug(LogMsgEventBroadcast,
		"event_type", evt.Type,
		"run_id", logEv.RunID,
		"seq", logEv.Seq)

	return nil
}
