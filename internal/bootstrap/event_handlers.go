package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/soullink-tracker/server/internal/event"
	"github.com/soullink-tracker/server/internal/metrics"
	"github.com/soullink-tracker/server/internal/sse"
)

// RegisterEventHandlers sets up all event subscribers:
// - Metrics collector (event-based counters)
// - Stream subscriber (fan-out of log events to SSE rooms)
func RegisterEventHandlers(eventBus event.Bus, hub *sse.Hub) error {
	metricsCollector := metrics.NewEventMetricsCollector()
	if err := metricsCollector.Register(eventBus); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedRegisterMetrics, err)
	}
	slog.Info(LogMsgMetricsCollectorRegistered)

	sse.NewSubscriber(hub, eventBus).Subscribe()
	slog.Info(LogMsgStreamSubscriberRegistered)

	return nil
}
