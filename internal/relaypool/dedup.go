package relaypool

import (
	relaypool "github.com/relaymesh/relaypool-go/pkg/relaypool"
)

// dedupLedger tracks which (relay, item-id) pairs have been observed, plus a
// per-relay count of distinct items. It is bookkeeping only: delivery to
// handlers is never gated on it. Not internally synchronized; owned by the
// pool.
type dedupLedger struct {
	seen     map[string]struct{}
	received map[relaypool.RelayAddress]uint64
}

func newDedupLedger() *dedupLedger {
	return &dedupLedger{
		seen:     make(map[string]struct{}),
		received: make(map[relaypool.RelayAddress]uint64),
	}
}

// dedupKey is the composite ledger key for one item from one relay. The
// separator keeps distinct (address, id) pairs from colliding on
// concatenation.
func dedupKey(address relaypool.RelayAddress, itemID string) string {
	return string(address) + "\x00" + itemID
}

// markSeen records the pair and returns true when it was new; the relay's
// received count increments only then. Repeat deliveries return false and
// leave the count untouched.
func (l *dedupLedger) markSeen(address relaypool.RelayAddress, itemID string) bool {
	key := dedupKey(address, itemID)
	if _, ok := l.seen[key]; ok {
		return false
	}
	l.seen[key] = struct{}{}
	l.received[address]++
	return true
}

// receivedCount returns how many distinct items have been seen from the
// relay.
func (l *dedupLedger) receivedCount(address relaypool.RelayAddress) uint64 {
	return l.received[address]
}
