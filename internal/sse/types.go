package sse

import (
	"encoding/json"
	"strconv"

	"github.com/soullink-tracker/server/internal/domain"
)

// StreamEvent is the wire representation of one SSE frame. For log events
// the ID is the sequence number, so EventSource's Last-Event-ID maps
// directly onto since_seq for reconnects.
type StreamEvent struct {
	ID        string      `json:"id,omitempty"`
	Type      string      `json:"type"`
	Seq       uint64      `json:"seq,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// FromLogEvent converts a persisted log event into its stream frame.
func FromLogEvent(ev domain.Event) StreamEvent {
	return StreamEvent{
		ID:        strconv.FormatUint(ev.Seq, 10),
		Type:      string(ev.Type),
		Seq:       ev.Seq,
		Timestamp: ev.Timestamp.Unix(),
		Payload:   json.RawMessage(ev.Payload),
	}
}

// FormatSSEMessage formats a stream event for transmission
func FormatSSEMessage(event StreamEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	// SSE format: "id: <id>\nevent: <type>\ndata: <json>\n\n"
	msg := ""
	if event.ID != "" {
		msg += "id: " + event.ID + "\n"
	}
	msg += "event: " + event.Type + "\n"
	msg += "data: " + string(data) + "\n\n"

	return []byte(msg), nil
}
