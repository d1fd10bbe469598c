package relaypool

import (
	"github.com/relaymesh/relaypool-go/pkg/connection"
	relaypool "github.com/relaymesh/relaypool-go/pkg/relaypool"
)

// ConnectToDisconnected runs one reconciliation pass over all relays:
//
//   - a non-broken relay stuck connecting past the staleness threshold is
//     force-reconnected (the stuck attempt is cancelled, a fresh one started)
//   - a non-broken disconnected relay is connected
//   - broken, connected, and freshly connecting relays are left alone
//
// Touching only stale or fully idle relays avoids a reconnect storm while
// still self-healing from handshakes that never complete.
func (p *Pool) ConnectToDisconnected() {
	type action struct {
		address relaypool.RelayAddress
		conn    connection.Connection
		stale   bool
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return
	}
	now := p.config.Clock.Now()
	var actions []action
	for _, address := range p.order {
		rs := p.relays[address]
		if rs.broken {
			continue
		}
		switch {
		case rs.conn.IsConnecting():
			if now.Sub(rs.conn.LastConnectionAttempt()) > p.config.StaleThreshold {
				actions = append(actions, action{address: address, conn: rs.conn, stale: true})
			}
		case rs.conn.IsConnected():
			// Healthy, nothing to do.
		default:
			actions = append(actions, action{address: address, conn: rs.conn})
		}
	}
	p.mu.RUnlock()

	for _, a := range actions {
		if a.stale {
			p.metrics.reconnects.Inc()
			p.log.Warn().Str("relay", string(a.address)).Msg("connection stale, forcing reconnect")
			a.conn.Reconnect()
		} else {
			p.metrics.connectAttempts.Inc()
			a.conn.Connect()
		}
	}
}

// reconcileLoop drives the periodic reconciliation pass until Close.
func (p *Pool) reconcileLoop() {
	ticker := p.config.Clock.Ticker(p.config.ReconcilePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.ConnectToDisconnected()
		case <-p.stopReconcile:
			return
		}
	}
}
