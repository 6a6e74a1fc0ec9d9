package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
)

// Type represents the type of a bus event
type Type string

// Metadata defines the type for event metadata
type Metadata interface{}

// Event is the envelope published on the in-process bus. Log events carry
// the run id and sequence so subscribers can order and filter without
// decoding the payload.
type Event struct {
	Version  string      `json:"version"` // Event schema version (e.g., "1.0")
	Type     Type        `json:"type"`
	RunID    uuid.UUID   `json:"run_id,omitempty"`
	Seq      uint64      `json:"seq,omitempty"`
	Payload  interface{} `json:"payload"`
	Metadata Metadata    `json:"metadata"`
}

// GetMetadataValue extracts a value from the event metadata safely
func (e Event) GetMetadataValue(key string) interface{} {
	if e.Metadata == nil {
		return nil
	}
	if m, ok := e.Metadata.(map[string]interface{}); ok {
		return m[key]
	}
	return nil
}

// Bus event types. Log event types mirror the persisted event log so a
// subscriber can register for exactly the log entries it cares about.
const (
	LogEncounterRecorded   Type = Type(domain.EventEncounterRecorded)
	LogCatchResultRecorded Type = Type(domain.EventCatchResultRecorded)
	LogPartyFainted        Type = Type(domain.EventPartyFainted)
	LogFamilyBlocked       Type = Type(domain.EventFamilyBlocked)
	LogLinkFormed          Type = Type(domain.EventLinkFormed)

	// Lifecycle event types
	RunCreated        Type = "run.created"
	RunPlayerJoined   Type = "run.player_joined"
	ProjectionRebuilt Type = "projection.rebuilt"
)

// LogEventTypes lists every persisted log event type in a stable order.
var LogEventTypes = []Type{
	LogEncounterRecorded,
	LogCatchResultRecorded,
	LogPartyFainted,
	LogFamilyBlocked,
	LogLinkFormed,
}

// RunCreatedPayloadV1 is the typed payload for run lifecycle events
type RunCreatedPayloadV1 struct {
	RunID uuid.UUID `json:"run_id"`
	Name  string    `json:"name"`
}

// PlayerJoinedPayloadV1 is the typed payload for player join events
type PlayerJoinedPayloadV1 struct {
	RunID    uuid.UUID `json:"run_id"`
	PlayerID uuid.UUID `json:"player_id"`
	Name     string    `json:"name"`
}

// ProjectionRebuiltPayloadV1 is the typed payload for rebuild events
type ProjectionRebuiltPayloadV1 struct {
	RunID          uuid.UUID `json:"run_id"`
	EventsReplayed int       `json:"events_replayed"`
}

// Type-safe event constructors

// NewLogEvent wraps a persisted log event for the bus. The payload is the
// raw log event so subscribers see exactly what was appended.
func NewLogEvent(ev domain.Event) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    Type(ev.Type),
		RunID:   ev.RunID,
		Seq:     ev.Seq,
		Payload: ev,
	}
}

// NewRunCreatedEvent creates a run lifecycle event
func NewRunCreatedEvent(runID uuid.UUID, name string) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    RunCreated,
		RunID:   runID,
		Payload: RunCreatedPayloadV1{RunID: runID, Name: name},
	}
}

// NewPlayerJoinedEvent creates a player join lifecycle event
func NewPlayerJoinedEvent(runID, playerID uuid.UUID, name string) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    RunPlayerJoined,
		RunID:   runID,
		Payload: PlayerJoinedPayloadV1{RunID: runID, PlayerID: playerID, Name: name},
	}
}

// NewProjectionRebuiltEvent creates a rebuild completion event
func NewProjectionRebuiltEvent(runID uuid.UUID, eventsReplayed int) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    ProjectionRebuilt,
		RunID:   runID,
		Payload: ProjectionRebuiltPayloadV1{RunID: runID, EventsReplayed: eventsReplayed},
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish publishes an event to all subscribers. Handlers run
// synchronously so log events reach subscribers in append order.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers, ok := b.handlers[event.Type]
	b.mu.RUnlock()

	if !ok {
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(LogMsgHandlerErrorFormat, len(errs), event.Type, errs)
	}

	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
