// Package event defines the immutable input record the matcher evaluates
// and the per-event extracted-variable scope rules populate as they match.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/konveyor-labs/tornado/value"
)

// Event is the immutable input delivered by a collector (spec §3). It is
// never mutated once constructed; the matcher only reads from it.
type Event struct {
	TraceID    string         `json:"trace_id"`
	EventType  string         `json:"type"`
	CreatedMs  uint64         `json:"created_ms"`
	Payload    value.Value    `json:"payload"`
	Metadata   value.Value    `json:"metadata,omitempty"`
	hasMeta    bool
}

// wireEvent mirrors the JSON wire form from spec §6; Payload/Metadata decode
// through value.FromAny since the wire form is plain JSON, not tagged.
type wireEvent struct {
	TraceID   string         `json:"trace_id"`
	EventType string         `json:"type"`
	CreatedMs uint64         `json:"created_ms"`
	Payload   map[string]any `json:"payload"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// UnmarshalJSON auto-fills trace_id when absent, per spec §6.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.TraceID == "" {
		w.TraceID = uuid.NewString()
	}
	e.TraceID = w.TraceID
	e.EventType = w.EventType
	e.CreatedMs = w.CreatedMs
	e.Payload = value.FromAny(w.Payload)
	if w.Metadata != nil {
		e.Metadata = value.FromAny(w.Metadata)
		e.hasMeta = true
	}
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		TraceID:   e.TraceID,
		EventType: e.EventType,
		CreatedMs: e.CreatedMs,
	}
	if m, ok := e.Payload.AsObject(); ok {
		w.Payload = toAnyMap(m)
	}
	if e.hasMeta {
		if m, ok := e.Metadata.AsObject(); ok {
			w.Metadata = toAnyMap(m)
		}
	}
	return json.Marshal(w)
}

func toAnyMap(m map[string]value.Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.ToAny()
	}
	return out
}

// New builds an Event from already-constructed Values, auto-generating a
// trace_id when empty.
func New(traceID, eventType string, createdMs uint64, payload value.Value) Event {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return Event{TraceID: traceID, EventType: eventType, CreatedMs: createdMs, Payload: payload}
}

// NewNow is a convenience constructor stamping CreatedMs with the current
// time, for callers that synthesize events rather than decode them.
func NewNow(eventType string, payload value.Value) Event {
	return New("", eventType, uint64(time.Now().UnixMilli()), payload)
}

// WithMetadata returns a copy of e carrying the given metadata object.
func (e Event) WithMetadata(meta value.Value) Event {
	e.Metadata = meta
	e.hasMeta = true
	return e
}

// Root resolves the virtual "event" accessor root (spec §4.3): a synthetic
// object exposing trace_id, type, created_ms, metadata and payload.
func (e Event) Root() value.Value {
	obj := map[string]value.Value{
		"trace_id":   value.Text(e.TraceID),
		"type":       value.Text(e.EventType),
		"created_ms": value.Num(value.Unsigned(e.CreatedMs)),
		"payload":    e.Payload,
	}
	if e.hasMeta {
		obj["metadata"] = e.Metadata
	} else {
		obj["metadata"] = value.Object(nil)
	}
	return value.Object(obj)
}
