package relaypool

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/relaypool-go/pkg/reachability"
	relaypool "github.com/relaymesh/relaypool-go/pkg/relaypool"
)

func TestReconcileStaleConnecting(t *testing.T) {
	mock := clock.NewMock()
	p, f := newTestPool(t, func(c *Config) { c.Clock = mock })
	require.NoError(t, p.AddRelay(relayC, relaypool.RelayInfo{}))

	// Stuck connecting for 6 seconds: past the 5 second threshold.
	f.conn(string(relayC)).setConnecting(mock.Now().Add(-6 * time.Second))

	p.ConnectToDisconnected()

	_, _, reconnects := f.conn(string(relayC)).calls()
	assert.Equal(t, 1, reconnects, "stale connecting relay must be force-reconnected")
}

func TestReconcileFreshConnectingLeftAlone(t *testing.T) {
	mock := clock.NewMock()
	p, f := newTestPool(t, func(c *Config) { c.Clock = mock })
	require.NoError(t, p.AddRelay(relayC, relaypool.RelayInfo{}))

	f.conn(string(relayC)).setConnecting(mock.Now().Add(-2 * time.Second))

	p.ConnectToDisconnected()

	connects, _, reconnects := f.conn(string(relayC)).calls()
	assert.Zero(t, connects)
	assert.Zero(t, reconnects)
}

func TestReconcileConnectedLeftAlone(t *testing.T) {
	p, f := newTestPool(t)
	require.NoError(t, p.AddRelay(relayA, relaypool.RelayInfo{}))
	f.conn(string(relayA)).establish()

	p.ConnectToDisconnected()

	connects, _, reconnects := f.conn(string(relayA)).calls()
	assert.Zero(t, connects)
	assert.Zero(t, reconnects)
}

func TestReachabilityTransitions(t *testing.T) {
	monitor := &stubMonitor{status: reachability.StatusUnsatisfied}
	p, f := newTestPool(t, func(c *Config) { c.Monitor = monitor })
	require.NoError(t, p.AddRelay(relayA, relaypool.RelayInfo{}))
	require.NoError(t, p.AddRelay(relayB, relaypool.RelayInfo{}))
	p.MarkBroken(relayB)

	// unsatisfied -> satisfied: one reconciliation pass, each non-broken
	// disconnected relay gets exactly one connect attempt.
	monitor.set(reachability.StatusSatisfied)
	aConnects, _, _ := f.conn(string(relayA)).calls()
	bConnects, _, _ := f.conn(string(relayB)).calls()
	assert.Equal(t, 1, aConnects)
	assert.Zero(t, bConnects, "broken relay is exempt from automatic reconnection")

	// satisfied -> unsatisfied: losing the network triggers nothing.
	monitor.set(reachability.StatusUnsatisfied)
	aConnects, _, _ = f.conn(string(relayA)).calls()
	assert.Equal(t, 1, aConnects)

	// unsatisfied -> requires-connection also counts as regaining the
	// network; relayA is now connecting so it is left alone.
	monitor.set(reachability.StatusRequiresConnection)
	aConnects, _, reconnects := f.conn(string(relayA)).calls()
	assert.Equal(t, 1, aConnects)
	assert.Zero(t, reconnects)
}

func TestPeriodicReconcile(t *testing.T) {
	mock := clock.NewMock()
	f := newFakeFactory()
	p, err := New(&Config{
		ConnFactory:     f.factory,
		ReconcilePeriod: 30 * time.Second,
		Clock:           mock,
	})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.AddRelay(relayA, relaypool.RelayInfo{}))

	// The loop's ticker is created asynchronously; keep advancing the mock
	// clock until a pass has run.
	require.Eventually(t, func() bool {
		mock.Add(30 * time.Second)
		connects, _, _ := f.conn(string(relayA)).calls()
		return connects > 0
	}, time.Second, 10*time.Millisecond)
}
