package connection

import (
	"time"

	"github.com/relaymesh/relaypool-go/pkg/protocol"
)

// State represents the lifecycle state of a connection
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// EventKind discriminates the events a connection emits.
type EventKind int

const (
	// KindConnecting fires when a connect attempt begins
	KindConnecting EventKind = iota
	// KindConnected fires when the handshake completes; the pool flushes
	// queued requests for the relay on this signal
	KindConnected
	// KindDisconnected fires when the channel is torn down, cleanly or not
	KindDisconnected
	// KindError carries a transport-level failure; it never terminates the
	// callback stream by itself
	KindError
	// KindMessage carries an inbound protocol message from the relay
	KindMessage
)

func (k EventKind) String() string {
	switch k {
	case KindConnecting:
		return "Connecting"
	case KindConnected:
		return "Connected"
	case KindDisconnected:
		return "Disconnected"
	case KindError:
		return "Error"
	case KindMessage:
		return "Message"
	default:
		return "Unknown"
	}
}

// Event is the envelope delivered to the pool for everything that happens on
// a connection. Message is set for KindMessage, Err for KindError; both are
// nil otherwise.
type Event struct {
	Kind    EventKind
	Message *protocol.RelayMessage
	Err     error
}

// Handler receives connection events. Implementations must not block: the
// transport invokes it from its own I/O goroutines.
type Handler func(Event)

// Connection is one physical duplex channel to one relay.
//
// All methods are non-blocking: Connect/Disconnect/Reconnect kick off the
// transition and return, with progress reported via the Handler. Send hands
// the message to the transport's outbound path; delivery failures surface as
// KindError events, not return values, except when the connection is in no
// state to accept the message at all.
type Connection interface {
	// Connect starts establishing the channel. No-op while connecting or
	// connected.
	Connect()

	// Disconnect tears down the channel. No-op while disconnected.
	Disconnect()

	// Reconnect tears down whatever exists, including a half-open connect
	// attempt, and starts a fresh one.
	Reconnect()

	// Send hands an outbound message to the transport. Returns an error
	// only when the message cannot be accepted (not connected, outbound
	// buffer full, or unencodable).
	Send(msg *protocol.ClientMessage) error

	// IsConnected reports whether the channel is established.
	IsConnected() bool

	// IsConnecting reports whether a connect attempt is in flight.
	IsConnecting() bool

	// LastConnectionAttempt returns when the most recent connect attempt
	// began. The zero time means no attempt has been made.
	LastConnectionAttempt() time.Time
}

// Factory builds a Connection for a relay address with its event handler
// already wired. The pool uses it when a relay is added.
type Factory func(address string, handler Handler) (Connection, error)
