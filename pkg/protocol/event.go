package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event represents a single content event carried by the protocol.
// The pool treats it as opaque beyond the identifier: ID is the relay-scoped
// content identifier used for duplicate bookkeeping.
type Event struct {
	// ID is the unique content identifier assigned by the publisher
	ID string `json:"id"`

	// Kind is an application-defined category for the event
	Kind string `json:"kind,omitempty"`

	// CreatedAt is when the publisher created this event
	CreatedAt time.Time `json:"created_at"`

	// Payload is the raw event data (immutable after creation)
	Payload json.RawMessage `json:"payload,omitempty"`

	// Tags are key-value metadata associated with this event
	Tags map[string]string `json:"tags,omitempty"`
}

// NewEvent creates a new Event with a generated identifier.
// The payload is copied to ensure immutability.
func NewEvent(kind string, payload []byte) *Event {
	payloadCopy := make(json.RawMessage, len(payload))
	copy(payloadCopy, payload)

	return &Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		Payload:   payloadCopy,
	}
}

// NewEventWithTags creates a new Event with tags.
// Both payload and tags are copied to ensure immutability.
func NewEventWithTags(kind string, payload []byte, tags map[string]string) *Event {
	ev := NewEvent(kind, payload)
	ev.Tags = make(map[string]string, len(tags))
	for k, v := range tags {
		ev.Tags[k] = v
	}
	return ev
}

// Validate checks that the event is well formed enough to put on the wire.
func (e *Event) Validate() error {
	if e == nil {
		return ErrNilEvent
	}
	if e.ID == "" {
		return ErrEmptyEventID
	}
	return nil
}
