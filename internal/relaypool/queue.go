package relaypool

import (
	"github.com/relaymesh/relaypool-go/pkg/protocol"
	relaypool "github.com/relaymesh/relaypool-go/pkg/relaypool"
)

// maxQueuedPerRelay bounds how many requests may wait for a single relay to
// come back. Admission beyond the bound is refused; the oldest entry is never
// evicted.
const maxQueuedPerRelay = 10

// queuedRequest pairs an outbound request with the relay it is destined for.
type queuedRequest struct {
	msg    *protocol.ClientMessage
	target relaypool.RelayAddress
}

// requestQueue buffers outbound requests for relays that were disconnected at
// send time, FIFO per target relay. It is not internally synchronized: the
// pool is its sole owner and mutates it under the pool lock.
type requestQueue struct {
	entries []queuedRequest

	// onDrop, when set, observes refused admissions. Best-effort contract:
	// the caller of enqueue is never handed an error.
	onDrop func(target relaypool.RelayAddress, msg *protocol.ClientMessage)
}

func newRequestQueue() *requestQueue {
	return &requestQueue{}
}

// enqueue appends the request to the tail of the target relay's backlog.
// Returns false, after invoking the drop hook, when the relay already has
// maxQueuedPerRelay entries waiting.
func (q *requestQueue) enqueue(msg *protocol.ClientMessage, target relaypool.RelayAddress) bool {
	if q.depth(target) >= maxQueuedPerRelay {
		if q.onDrop != nil {
			q.onDrop(target, msg)
		}
		return false
	}
	q.entries = append(q.entries, queuedRequest{msg: msg, target: target})
	return true
}

// flush removes and returns every entry queued for the target relay in
// original submission order. Entries for other relays keep their relative
// order.
func (q *requestQueue) flush(target relaypool.RelayAddress) []queuedRequest {
	var matched []queuedRequest
	retained := q.entries[:0]
	for _, e := range q.entries {
		if e.target == target {
			matched = append(matched, e)
		} else {
			retained = append(retained, e)
		}
	}
	// Zero the tail so flushed messages are not pinned by the backing array.
	for i := len(retained); i < len(q.entries); i++ {
		q.entries[i] = queuedRequest{}
	}
	q.entries = retained
	return matched
}

// purge drops every entry queued for the target relay and returns how many
// were dropped. Used when a relay is removed from the pool.
func (q *requestQueue) purge(target relaypool.RelayAddress) int {
	return len(q.flush(target))
}

// depth returns how many entries are queued for the target relay.
func (q *requestQueue) depth(target relaypool.RelayAddress) int {
	n := 0
	for _, e := range q.entries {
		if e.target == target {
			n++
		}
	}
	return n
}

// size returns the total number of queued entries across all relays.
func (q *requestQueue) size() int {
	return len(q.entries)
}
