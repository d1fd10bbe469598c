// Package relaypool implements the relaypool.Pool interface: a pool of
// long-lived relay connections with multiplexed subscriptions, per-relay
// request queuing, duplicate bookkeeping, and automatic reconnection.
package relaypool

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/relaymesh/relaypool-go/pkg/connection"
	"github.com/relaymesh/relaypool-go/pkg/protocol"
	"github.com/relaymesh/relaypool-go/pkg/reachability"
	relaypool "github.com/relaymesh/relaypool-go/pkg/relaypool"
)

// relayState is the pool's record for one relay: the static descriptor, the
// exclusively owned connection, and the broken latch. At most one relayState
// exists per address.
type relayState struct {
	address relaypool.RelayAddress
	info    relaypool.RelayInfo
	conn    connection.Connection

	// broken is a one-way latch excluding the relay from automatic
	// reconnection. Manual Connect/Reconnect still applies.
	broken bool
}

// Pool implements the relaypool.Pool interface.
//
// All shared collections (relay set, request queue, dedup ledger, handler
// registry) are mutated only under p.mu, giving the single-writer discipline
// the design calls for. Connection callbacks and the reachability monitor
// enter through the same guarded methods; handler fan-out and transport
// calls happen after the lock is released so a handler can safely call back
// into the pool.
type Pool struct {
	config *Config
	log    zerolog.Logger

	mu       sync.RWMutex
	relays   map[relaypool.RelayAddress]*relayState
	order    []relaypool.RelayAddress
	queue    *requestQueue
	ledger   *dedupLedger
	registry *handlerRegistry

	// lastReach is the previous reachability status, used to react only to
	// genuine transitions.
	lastReach reachability.Status

	closed bool

	metrics       *poolMetrics
	stopReconcile chan struct{}
}

var _ relaypool.Pool = (*Pool)(nil)

// New creates a relay pool from the given configuration. The pool starts
// with no relays; callers add them with AddRelay and connect explicitly or
// let the reconciliation pass do it.
func New(config *Config) (*Pool, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Make a copy and set defaults
	configCopy := *config
	configCopy.SetDefaults()

	p := &Pool{
		config:   &configCopy,
		log:      configCopy.Logger,
		relays:   make(map[relaypool.RelayAddress]*relayState),
		queue:    newRequestQueue(),
		ledger:   newDedupLedger(),
		registry: newHandlerRegistry(),
		metrics:  newPoolMetrics(configCopy.Registerer),
	}

	p.queue.onDrop = func(target relaypool.RelayAddress, msg *protocol.ClientMessage) {
		p.metrics.queueDrops.WithLabelValues(string(target)).Inc()
		p.log.Warn().
			Str("relay", string(target)).
			Str("type", string(msg.Type)).
			Int("bound", maxQueuedPerRelay).
			Msg("request queue full, dropping request")
	}

	if configCopy.Monitor != nil {
		p.lastReach = configCopy.Monitor.Status()
		configCopy.Monitor.OnStatusChange(p.handleReachabilityChange)
	}

	if configCopy.ReconcilePeriod > 0 {
		p.stopReconcile = make(chan struct{})
		go p.reconcileLoop()
	}

	return p, nil
}

// AddRelay registers a relay under its address. The connection is created
// immediately, wired so every event it emits flows into the pool's single
// ingestion path tagged with this address, but no connect is attempted.
func (p *Pool) AddRelay(address relaypool.RelayAddress, info relaypool.RelayInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return relaypool.ErrPoolClosed
	}
	if _, ok := p.relays[address]; ok {
		return fmt.Errorf("%w: %s", relaypool.ErrDuplicateRelay, address)
	}

	conn, err := p.config.ConnFactory(address.String(), func(ev connection.Event) {
		p.handleConnectionEvent(address, ev)
	})
	if err != nil {
		return fmt.Errorf("create connection for %s: %w", address, err)
	}

	p.relays[address] = &relayState{
		address: address,
		info:    info,
		conn:    conn,
	}
	p.order = append(p.order, address)

	p.log.Debug().Str("relay", string(address)).Str("name", info.Name).Msg("relay added")
	return nil
}

// RemoveRelay disconnects the relay and forgets it, dropping any requests
// still queued for it. Unknown addresses are ignored.
func (p *Pool) RemoveRelay(address relaypool.RelayAddress) {
	p.mu.Lock()
	rs, ok := p.relays[address]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.relays, address)
	for i, a := range p.order {
		if a == address {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	purged := p.queue.purge(address)
	p.metrics.queueDepth.Set(float64(p.queue.size()))
	p.mu.Unlock()

	// May emit a disconnect event to handlers; done outside the lock.
	rs.conn.Disconnect()

	p.log.Debug().Str("relay", string(address)).Int("purged", purged).Msg("relay removed")
}

// MarkBroken latches the named relay out of automatic reconnection. Only the
// relay matching the address is affected.
func (p *Pool) MarkBroken(address relaypool.RelayAddress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rs, ok := p.relays[address]
	if !ok {
		return
	}
	rs.broken = true
	p.log.Warn().Str("relay", string(address)).Msg("relay marked broken")
}

// Connect starts connecting the named relays, or every relay when none are
// named.
func (p *Pool) Connect(addresses ...relaypool.RelayAddress) {
	for _, conn := range p.connections(addresses) {
		conn.Connect()
	}
}

// Disconnect tears down the named relays, or every relay when none are
// named.
func (p *Pool) Disconnect(addresses ...relaypool.RelayAddress) {
	for _, conn := range p.connections(addresses) {
		conn.Disconnect()
	}
}

// Reconnect force-reconnects the named relays, or every relay when none are
// named. The broken latch is deliberately not consulted.
func (p *Pool) Reconnect(addresses ...relaypool.RelayAddress) {
	for _, conn := range p.connections(addresses) {
		conn.Reconnect()
	}
}

// Subscribe registers the handler under the subscription id and sends a
// subscribe request to the targets, or to all relays when none are named.
// Registering a duplicate id keeps the first handler.
func (p *Pool) Subscribe(subscriptionID string, filters []protocol.Filter, handler relaypool.MessageHandler, targets ...relaypool.RelayAddress) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if handler != nil && !p.registry.register(subscriptionID, handler) {
		p.log.Debug().Str("subscription", subscriptionID).Msg("handler already registered, keeping first")
	}
	p.mu.Unlock()

	p.Send(protocol.NewSubscribeMessage(subscriptionID, filters), targets...)
}

// Unsubscribe sends an unsubscribe request to the targets, or to all relays
// when none are named. Only a full unsubscribe (no explicit targets) removes
// the handler registration: with a subset the subscription is still live on
// the remaining relays.
func (p *Pool) Unsubscribe(subscriptionID string, targets ...relaypool.RelayAddress) {
	if len(targets) == 0 {
		p.mu.Lock()
		p.registry.unregister(subscriptionID)
		p.mu.Unlock()
	}

	p.Send(protocol.NewUnsubscribeMessage(subscriptionID), targets...)
}

// Send delivers the request to each target relay, or to all relays when none
// are named: immediately when connected, otherwise queued up to the
// per-relay bound.
func (p *Pool) Send(msg *protocol.ClientMessage, targets ...relaypool.RelayAddress) {
	if msg == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	type directSend struct {
		address relaypool.RelayAddress
		conn    connection.Connection
	}
	var sends []directSend

	for _, address := range p.resolveLocked(targets) {
		rs, ok := p.relays[address]
		if !ok {
			p.log.Warn().Str("relay", string(address)).Msg("send to unknown relay, skipping")
			continue
		}
		if rs.conn.IsConnected() {
			sends = append(sends, directSend{address: address, conn: rs.conn})
		} else {
			p.queue.enqueue(msg, address)
			p.metrics.queueDepth.Set(float64(p.queue.size()))
		}
	}
	p.mu.Unlock()

	for _, s := range sends {
		if err := s.conn.Send(msg); err != nil {
			p.log.Warn().Err(err).Str("relay", string(s.address)).Msg("send failed")
		}
	}
}

// resolveLocked expands an optional target list into concrete addresses.
// Caller holds p.mu.
func (p *Pool) resolveLocked(targets []relaypool.RelayAddress) []relaypool.RelayAddress {
	if len(targets) == 0 {
		out := make([]relaypool.RelayAddress, len(p.order))
		copy(out, p.order)
		return out
	}
	return targets
}

// connections snapshots the connections for the named relays (or all relays)
// so lifecycle calls happen outside the pool lock.
func (p *Pool) connections(addresses []relaypool.RelayAddress) []connection.Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil
	}
	out := make([]connection.Connection, 0, len(p.relays))
	for _, address := range p.resolveLocked(addresses) {
		if rs, ok := p.relays[address]; ok {
			out = append(out, rs.conn)
		}
	}
	return out
}

// handleConnectionEvent is the single ingestion path for everything inbound:
// dedup bookkeeping first, then the queue flush when the relay just
// connected, then fan-out of the raw event to every registered handler.
func (p *Pool) handleConnectionEvent(address relaypool.RelayAddress, ev connection.Event) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	if ev.Kind == connection.KindMessage {
		if content, ok := ev.Message.ContentEvent(); ok {
			if p.ledger.markSeen(address, content.ID) {
				p.metrics.eventsReceived.WithLabelValues(string(address)).Inc()
			} else {
				p.metrics.duplicateEvents.WithLabelValues(string(address)).Inc()
				p.log.Debug().
					Str("relay", string(address)).
					Str("event", content.ID).
					Msg("duplicate content event")
			}
		}
	}

	var (
		flushed []queuedRequest
		conn    connection.Connection
	)
	if ev.Kind == connection.KindConnected {
		flushed = p.queue.flush(address)
		p.metrics.queueDepth.Set(float64(p.queue.size()))
		if rs, ok := p.relays[address]; ok {
			conn = rs.conn
		}
	}

	handlers := p.registry.snapshot()
	p.mu.Unlock()

	// Flush before fan-out so queued requests reach the relay ahead of any
	// handler reaction to the connected event. FIFO order is preserved.
	if conn != nil {
		for _, qr := range flushed {
			if err := conn.Send(qr.msg); err != nil {
				p.log.Warn().Err(err).Str("relay", string(address)).Msg("flush send failed")
			}
		}
	}

	for _, h := range handlers {
		h(address, ev)
	}
}

// handleReachabilityChange reacts to host connectivity transitions reported
// by the monitor. Only a change into a usable status schedules a
// reconciliation pass.
func (p *Pool) handleReachabilityChange(status reachability.Status) {
	p.mu.Lock()
	prev := p.lastReach
	p.lastReach = status
	closed := p.closed
	p.mu.Unlock()

	if closed || status == prev || !status.Usable() {
		return
	}

	p.log.Debug().
		Stringer("from", prev).
		Stringer("to", status).
		Msg("reachability regained, reconciling connections")
	p.ConnectToDisconnected()
}

// Relays returns a snapshot of every relay in the pool, in insertion order.
func (p *Pool) Relays() []relaypool.RelayStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]relaypool.RelayStatus, 0, len(p.order))
	for _, address := range p.order {
		rs := p.relays[address]
		out = append(out, relaypool.RelayStatus{
			Address:  address,
			Info:     rs.info,
			State:    connState(rs.conn),
			Broken:   rs.broken,
			Received: p.ledger.receivedCount(address),
			Queued:   p.queue.depth(address),
		})
	}
	return out
}

// ConnectedCount returns the number of relays currently connected.
func (p *Pool) ConnectedCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, rs := range p.relays {
		if rs.conn.IsConnected() {
			n++
		}
	}
	return n
}

// ConnectingCount returns the number of relays with a connect attempt in
// flight.
func (p *Pool) ConnectingCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, rs := range p.relays {
		if rs.conn.IsConnecting() {
			n++
		}
	}
	return n
}

// ReceivedCount returns the number of distinct content events seen from the
// given relay.
func (p *Pool) ReceivedCount(address relaypool.RelayAddress) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.receivedCount(address)
}

// Close stops the reconciliation loop and disconnects every relay. It is
// idempotent; the pool cannot be reused afterwards.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conns := make([]connection.Connection, 0, len(p.relays))
	for _, rs := range p.relays {
		conns = append(conns, rs.conn)
	}
	stop := p.stopReconcile
	p.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	for _, conn := range conns {
		conn.Disconnect()
	}
	return nil
}

func connState(conn connection.Connection) connection.State {
	switch {
	case conn.IsConnected():
		return connection.StateConnected
	case conn.IsConnecting():
		return connection.StateConnecting
	default:
		return connection.StateDisconnected
	}
}
