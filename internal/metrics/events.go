package metrics

import (
	"context"

	"github.com/soullink-tracker/server/internal/event"
	"github.com/soullink-tracker/server/internal/logger"
)

// EventMetricsCollector subscribes to events and records metrics
type EventMetricsCollector struct{}

// NewEventMetricsCollector creates a new event metrics collector
func NewEventMetricsCollector() *EventMetricsCollector {
	return &EventMetricsCollector{}
}

// Register subscribes to every log event type plus lifecycle events
func (e *EventMetricsCollector) Register(bus event.Bus) error {
	eventTypes := make([]event.Type, 0, len(event.LogEventTypes)+2)
	eventTypes = append(eventTypes, event.LogEventTypes...)
	eventTypes = append(eventTypes, event.RunCreated, event.ProjectionRebuilt)

	for _, eventType := range eventTypes {
		bus.Subscribe(eventType, e.HandleEvent)
	}

	return nil
}

// HandleEvent counts events as they cross the bus
func (e *EventMetricsCollector) HandleEvent(ctx context.Context, evt event.Event) error {
	EventsPublished.WithLabelValues(string(evt.Type)).Inc()
	logger.FromContext(ctx).Debug(LogMsgMetricsRecorded, "type", evt.Type)
	return nil
}
