// api/models/event.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds carried by the ingestion discriminator.
const (
	KindPageView = "pageview"
	KindEvent    = "event"
)

// PageView is one visitor loading a trackable route. Records are immutable
// once written.
type PageView struct {
	Path       string    `json:"path"`
	Referrer   *string   `json:"referrer"`
	UserAgent  *string   `json:"userAgent"`
	IPHash     string    `json:"ipHash"`
	SessionID  *string   `json:"sessionId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Event is a named interaction distinct from a page load, e.g. a download click.
type Event struct {
	EventName  string    `json:"eventName"`
	EventData  EventData `json:"eventData"`
	Path       string    `json:"path"`
	IPHash     string    `json:"ipHash"`
	SessionID  *string   `json:"sessionId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventData is an opaque JSON payload. It is kept as raw bytes and only
// decoded by consumers that need specific fields.
type EventData json.RawMessage

var nullJSON = []byte("null")

// IsNull reports whether the payload is absent or JSON null.
func (d EventData) IsNull() bool {
	trimmed := bytes.TrimSpace(d)
	return len(trimmed) == 0 || bytes.Equal(trimmed, nullJSON)
}

// String returns the payload as stored text. Absent payloads become "null".
func (d EventData) String() string {
	if d.IsNull() {
		return "null"
	}
	return string(d)
}

// Decode unmarshals the payload into v.
func (d EventData) Decode(v any) error {
	if d.IsNull() {
		return nil
	}
	if err := json.Unmarshal(d, v); err != nil {
		return fmt.Errorf("decode event data: %w", err)
	}
	return nil
}

// Field returns a single top-level value when the payload is an object.
func (d EventData) Field(name string) (json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := d.Decode(&fields); err != nil || fields == nil {
		return nil, false
	}
	v, ok := fields[name]
	return v, ok
}

func (d EventData) MarshalJSON() ([]byte, error) {
	if d.IsNull() {
		return nullJSON, nil
	}
	return d, nil
}

func (d *EventData) UnmarshalJSON(data []byte) error {
	if d == nil {
		return fmt.Errorf("models.EventData: UnmarshalJSON on nil pointer")
	}
	*d = append((*d)[:0], data...)
	return nil
}
