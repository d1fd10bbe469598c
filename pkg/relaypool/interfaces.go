package relaypool

import (
	"errors"
	"io"

	"github.com/relaymesh/relaypool-go/pkg/connection"
	"github.com/relaymesh/relaypool-go/pkg/protocol"
)

var (
	// ErrDuplicateRelay is returned when adding a relay whose address is
	// already in the pool
	ErrDuplicateRelay = errors.New("relay already exists")
	// ErrPoolClosed is returned by operations on a closed pool
	ErrPoolClosed = errors.New("pool is closed")
)

// RelayInfo is the static descriptor supplied when a relay is added.
type RelayInfo struct {
	// Name is a human-readable label for the relay
	Name string

	// Read indicates the relay should receive subscribe requests
	Read bool

	// Write indicates the relay should receive publish requests
	Write bool

	// RequiresAuth indicates the relay expects a bearer token
	RequiresAuth bool
}

// RelayStatus is a read-only snapshot of one relay's state in the pool.
type RelayStatus struct {
	Address RelayAddress
	Info    RelayInfo

	// State is the connection lifecycle state at snapshot time
	State connection.State

	// Broken reports whether the relay is latched out of automatic
	// reconnection
	Broken bool

	// Received is the number of distinct content events seen from this
	// relay
	Received uint64

	// Queued is the number of requests waiting for this relay to connect
	Queued int
}

// MessageHandler receives every inbound connection event from every relay,
// tagged with the relay it came from. Filtering by subscription id is the
// handler's own responsibility.
type MessageHandler func(address RelayAddress, ev connection.Event)

// Pool is the relay connection pool.
//
// Mutating operations are fire-and-forget with respect to network I/O: they
// update pool state and hand work to the transport, never blocking on the
// network. Connection failures are observable only through handler events;
// the only synchronous errors are programming errors such as adding a
// duplicate relay.
type Pool interface {
	io.Closer

	// AddRelay registers a relay under its address with a fresh, not yet
	// connected, connection. Returns ErrDuplicateRelay if the address is
	// already present.
	AddRelay(address RelayAddress, info RelayInfo) error

	// RemoveRelay disconnects and forgets the relay, dropping any requests
	// still queued for it. Unknown addresses are ignored.
	RemoveRelay(address RelayAddress)

	// Connect starts connecting the named relays, or every relay when none
	// are named.
	Connect(addresses ...RelayAddress)

	// Disconnect tears down the named relays, or every relay when none are
	// named.
	Disconnect(addresses ...RelayAddress)

	// Reconnect force-reconnects the named relays, or every relay when
	// none are named. The broken latch is not consulted: callers manage
	// which relays they intend to keep broken.
	Reconnect(addresses ...RelayAddress)

	// MarkBroken latches the relay out of automatic reconnection. There is
	// no unbreak; manual Connect/Reconnect still applies.
	MarkBroken(address RelayAddress)

	// Subscribe registers the handler under the subscription id (a silent
	// no-op when the id is already registered, keeping the first handler)
	// and sends a subscribe request to the targets, or to all relays when
	// none are named.
	Subscribe(subscriptionID string, filters []protocol.Filter, handler MessageHandler, targets ...RelayAddress)

	// Unsubscribe sends an unsubscribe request to the targets. When no
	// targets are named the subscription is being withdrawn everywhere, so
	// the handler registration is removed as well; with an explicit subset
	// the registration stays, since the subscription is still live on the
	// remaining relays.
	Unsubscribe(subscriptionID string, targets ...RelayAddress)

	// Send delivers a request to each target relay, or to all relays when
	// none are named: immediately when connected, otherwise queued up to
	// the per-relay bound (excess is dropped with a diagnostic).
	Send(msg *protocol.ClientMessage, targets ...RelayAddress)

	// ConnectToDisconnected runs one reconnection reconciliation pass:
	// stale connecting relays are force-reconnected, disconnected
	// non-broken relays are connected, everything else is left alone.
	ConnectToDisconnected()

	// Relays returns a snapshot of every relay in the pool, in the order
	// they were added.
	Relays() []RelayStatus

	// ConnectedCount returns the number of relays currently connected.
	ConnectedCount() int

	// ConnectingCount returns the number of relays with a connect attempt
	// in flight.
	ConnectingCount() int

	// ReceivedCount returns the number of distinct content events seen
	// from the given relay.
	ReceivedCount(address RelayAddress) uint64
}
