package relaypool

import (
	"sync"
	"time"

	"github.com/relaymesh/relaypool-go/pkg/connection"
	"github.com/relaymesh/relaypool-go/pkg/protocol"
	"github.com/relaymesh/relaypool-go/pkg/reachability"
)

// fakeConn is a scriptable connection.Connection. Tests drive its state with
// establish/drop and observe what the pool asked it to do.
type fakeConn struct {
	address string
	handler connection.Handler

	mu          sync.Mutex
	connected   bool
	connecting  bool
	lastAttempt time.Time
	sent        []*protocol.ClientMessage
	sendErr     error

	connectCalls    int
	disconnectCalls int
	reconnectCalls  int
}

func (c *fakeConn) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectCalls++
	if !c.connected {
		c.connecting = true
		c.lastAttempt = time.Now()
	}
}

func (c *fakeConn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCalls++
	c.connected = false
	c.connecting = false
}

func (c *fakeConn) Reconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnectCalls++
	c.connected = false
	c.connecting = true
	c.lastAttempt = time.Now()
}

func (c *fakeConn) Send(msg *protocol.ClientMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConn) IsConnecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connecting
}

func (c *fakeConn) LastConnectionAttempt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAttempt
}

// establish simulates the transport finishing its handshake: state flips to
// connected and the pool receives the connected event.
func (c *fakeConn) establish() {
	c.mu.Lock()
	c.connected = true
	c.connecting = false
	c.mu.Unlock()
	c.handler(connection.Event{Kind: connection.KindConnected})
}

// deliver simulates an inbound protocol message from the relay.
func (c *fakeConn) deliver(msg *protocol.RelayMessage) {
	c.handler(connection.Event{Kind: connection.KindMessage, Message: msg})
}

// setConnecting pins the connection into the connecting state with the given
// attempt time, for staleness tests.
func (c *fakeConn) setConnecting(attempt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.connecting = true
	c.lastAttempt = attempt
}

func (c *fakeConn) sentMessages() []*protocol.ClientMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*protocol.ClientMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) calls() (connect, disconnect, reconnect int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectCalls, c.disconnectCalls, c.reconnectCalls
}

// fakeFactory hands out fakeConns and remembers them by address.
type fakeFactory struct {
	mu    sync.Mutex
	conns map[string]*fakeConn
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{conns: make(map[string]*fakeConn)}
}

func (f *fakeFactory) factory(address string, handler connection.Handler) (connection.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeConn{address: address, handler: handler}
	f.conns[address] = c
	return c, nil
}

func (f *fakeFactory) conn(address string) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[address]
}

// stubMonitor is a hand-driven reachability monitor.
type stubMonitor struct {
	mu     sync.Mutex
	status reachability.Status
	subs   []func(reachability.Status)
}

func (m *stubMonitor) Status() reachability.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *stubMonitor) OnStatusChange(fn func(reachability.Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

func (m *stubMonitor) Close() error { return nil }

func (m *stubMonitor) set(status reachability.Status) {
	m.mu.Lock()
	if m.status == status {
		m.mu.Unlock()
		return
	}
	m.status = status
	subs := append([]func(reachability.Status){}, m.subs...)
	m.mu.Unlock()
	for _, fn := range subs {
		fn(status)
	}
}
