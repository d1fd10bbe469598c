package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNilEvent is returned when a nil event is provided
	ErrNilEvent = errors.New("event cannot be nil")
	// ErrEmptyEventID is returned when an event has no identifier
	ErrEmptyEventID = errors.New("event ID cannot be empty")
	// ErrEmptySubscriptionID is returned when a subscription message has no id
	ErrEmptySubscriptionID = errors.New("subscription ID cannot be empty")
	// ErrUnknownMessageType is returned when decoding a message with an
	// unrecognized type discriminator
	ErrUnknownMessageType = errors.New("unknown message type")
)

// MessageType is the discriminator for protocol messages in both directions.
type MessageType string

// Client-to-relay message types.
const (
	MessageSubscribe   MessageType = "subscribe"
	MessageUnsubscribe MessageType = "unsubscribe"
	MessagePublish     MessageType = "publish"
	MessageAuth        MessageType = "auth"
)

// Relay-to-client message types.
const (
	MessageEvent         MessageType = "event"
	MessageEndOfStored   MessageType = "eose"
	MessageOK            MessageType = "ok"
	MessageNotice        MessageType = "notice"
	MessageAuthChallenge MessageType = "auth_challenge"
)

// ClientMessage is a request from the pool to a relay.
type ClientMessage struct {
	Type           MessageType `json:"type"`
	SubscriptionID string      `json:"subscription_id,omitempty"`
	Filters        []Filter    `json:"filters,omitempty"`
	Event          *Event      `json:"event,omitempty"`
	Token          string      `json:"token,omitempty"`
}

// NewSubscribeMessage builds a subscribe request for the given subscription id
// and filters.
func NewSubscribeMessage(subscriptionID string, filters []Filter) *ClientMessage {
	return &ClientMessage{
		Type:           MessageSubscribe,
		SubscriptionID: subscriptionID,
		Filters:        filters,
	}
}

// NewUnsubscribeMessage builds an unsubscribe request for the given
// subscription id.
func NewUnsubscribeMessage(subscriptionID string) *ClientMessage {
	return &ClientMessage{
		Type:           MessageUnsubscribe,
		SubscriptionID: subscriptionID,
	}
}

// NewPublishMessage builds a publish request carrying the given event.
func NewPublishMessage(ev *Event) *ClientMessage {
	return &ClientMessage{
		Type:  MessagePublish,
		Event: ev,
	}
}

// NewAuthMessage builds an auth response carrying a bearer token.
func NewAuthMessage(token string) *ClientMessage {
	return &ClientMessage{
		Type:  MessageAuth,
		Token: token,
	}
}

// Validate checks that the message is well formed for its type.
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageSubscribe, MessageUnsubscribe:
		if m.SubscriptionID == "" {
			return ErrEmptySubscriptionID
		}
	case MessagePublish:
		if err := m.Event.Validate(); err != nil {
			return err
		}
	case MessageAuth:
		if m.Token == "" {
			return errors.New("auth token cannot be empty")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}
	return nil
}

// Encode serializes the message to its wire form.
func (m *ClientMessage) Encode() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// DecodeClientMessage parses a client message from its wire form.
func DecodeClientMessage(data []byte) (*ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode client message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// RelayMessage is an inbound message from a relay.
type RelayMessage struct {
	Type           MessageType `json:"type"`
	SubscriptionID string      `json:"subscription_id,omitempty"`
	Event          *Event      `json:"event,omitempty"`

	// OK fields: acknowledgment for a published event
	EventID  string `json:"event_id,omitempty"`
	Accepted bool   `json:"accepted,omitempty"`
	Reason   string `json:"reason,omitempty"`

	// Notice is a human-readable diagnostic from the relay
	Notice string `json:"notice,omitempty"`

	// Challenge accompanies an auth_challenge message
	Challenge string `json:"challenge,omitempty"`
}

// ContentEvent returns the carried event when this is a content event
// message, i.e. the variant the dedup ledger keys on.
func (m *RelayMessage) ContentEvent() (*Event, bool) {
	if m == nil || m.Type != MessageEvent || m.Event == nil || m.Event.ID == "" {
		return nil, false
	}
	return m.Event, true
}

// Encode serializes the message to its wire form.
func (m *RelayMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeRelayMessage parses a relay message from its wire form.
func DecodeRelayMessage(data []byte) (*RelayMessage, error) {
	var m RelayMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode relay message: %w", err)
	}
	switch m.Type {
	case MessageEvent, MessageEndOfStored, MessageOK, MessageNotice, MessageAuthChallenge:
		return &m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}
}

// NewSubscriptionID generates a fresh subscription identifier.
func NewSubscriptionID() string {
	return "sub-" + uuid.NewString()
}
