// Package reachability implements the reachability.Monitor contract: a TCP
// dial probe monitor for standalone use and a manually fed monitor for
// embedders that already receive a connectivity signal from the OS.
package reachability

import (
	"sync"

	"github.com/relaymesh/relaypool-go/pkg/reachability"
)

// ManualMonitor is a reachability monitor fed by the embedder. Set reports
// the new status; subscribers are notified only when it actually changes.
type ManualMonitor struct {
	mu     sync.Mutex
	status reachability.Status
	subs   []func(reachability.Status)
	closed bool
}

var _ reachability.Monitor = (*ManualMonitor)(nil)

// NewManualMonitor creates a monitor starting in the given status.
func NewManualMonitor(initial reachability.Status) *ManualMonitor {
	return &ManualMonitor{status: initial}
}

// Status returns the current reachability status.
func (m *ManualMonitor) Status() reachability.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// OnStatusChange registers a callback invoked on every status change.
func (m *ManualMonitor) OnStatusChange(fn func(reachability.Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Set updates the status, notifying subscribers when it changed.
func (m *ManualMonitor) Set(status reachability.Status) {
	m.mu.Lock()
	if m.closed || m.status == status {
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

// Close stops the monitor; further Set calls are ignored.
func (m *ManualMonitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = nil
	return nil
}
