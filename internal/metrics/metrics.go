package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Write-path Metrics
var (
	EventsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsAppended,
			Help: HelpTextEventsAppended,
		},
		[]string{LabelType},
	)

	CommandsDeduped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameCommandsDeduped,
			Help: HelpTextCommandsDeduped,
		},
		[]string{LabelCommand},
	)

	CommandsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameCommandsRejected,
			Help: HelpTextCommandsRejected,
		},
		[]string{LabelCommand},
	)

	ProjectionRebuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameProjectionRebuilds,
			Help: HelpTextProjectionRebuilds,
		},
	)
)

// Bus and realtime Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsPublished,
			Help: HelpTextEventsPublished,
		},
		[]string{LabelType},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventHandlerErrors,
			Help: HelpTextEventHandlerErrors,
		},
		[]string{LabelType},
	)

	SSEClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameSSEClients,
			Help: HelpTextSSEClients,
		},
	)
)

// Recording helpers keep call sites free of label plumbing.

// RecordEventAppended counts one appended log event.
func RecordEventAppended(eventType string) {
	EventsAppended.WithLabelValues(eventType).Inc()
}

// RecordCommandDeduped counts a command answered from an idempotency record.
func RecordCommandDeduped(command string) {
	CommandsDeduped.WithLabelValues(command).Inc()
}

// RecordCommandRejected counts a command rejected before commit.
func RecordCommandRejected(command string) {
	CommandsRejected.WithLabelValues(command).Inc()
}

// RecordProjectionRebuild counts one completed rebuild.
func RecordProjectionRebuild() {
	ProjectionRebuilds.Inc()
}
