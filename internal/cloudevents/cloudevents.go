// Package cloudevents builds CloudEvents 1.0 envelopes for Emit tasks and for
// events delivered to Listen tasks (spec.md §4.3/§6). No CloudEvents SDK is
// present anywhere in the retrieval pack (every go.mod in _examples/ was
// checked); this is therefore built directly on encoding/json, with
// github.com/google/uuid supplying the auto-generated `id` the teacher
// already depends on for other identifiers.
package cloudevents

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is a CloudEvents 1.0 envelope.
type Event struct {
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	Time            *time.Time      `json:"time,omitempty"`
	DataContentType string          `json:"datacontenttype,omitempty"`
	Subject         string          `json:"subject,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// Builder constructs an Event from a partially-populated set of attributes,
// auto-generating `id` and `time` when absent.
type Builder struct {
	ID              string
	Source          string
	Type            string
	Time            *time.Time
	Subject         string
	DataContentType string
	Data            interface{}
}

// Build checks that source and type are present, generates a missing id and
// time, sets specversion to "1.0", and returns the envelope.
func (b Builder) Build() (*Event, error) {
	if b.Source == "" {
		return nil, fmt.Errorf("cloudevents: source is required")
	}
	if b.Type == "" {
		return nil, fmt.Errorf("cloudevents: type is required")
	}
	id := b.ID
	if id == "" {
		id = uuid.NewString()
	}
	t := b.Time
	if t == nil {
		now := time.Now().UTC()
		t = &now
	}
	contentType := b.DataContentType
	if contentType == "" && b.Data != nil {
		contentType = "application/json"
	}
	var data json.RawMessage
	if b.Data != nil {
		raw, err := json.Marshal(b.Data)
		if err != nil {
			return nil, fmt.Errorf("cloudevents: marshal data: %w", err)
		}
		data = raw
	}
	return &Event{
		ID:              id,
		Source:          b.Source,
		SpecVersion:     "1.0",
		Type:            b.Type,
		Time:            t,
		Subject:         b.Subject,
		DataContentType: contentType,
		Data:            data,
	}, nil
}

// DataAs unmarshals the event's Data field into v.
func (e *Event) DataAs(v interface{}) error {
	if e.Data == nil {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}
