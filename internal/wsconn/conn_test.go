package wsconn

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/relaypool-go/pkg/connection"
	"github.com/relaymesh/relaypool-go/pkg/protocol"
)

// testRelay is a minimal websocket relay endpoint for transport tests.
type testRelay struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	received chan *protocol.ClientMessage
	headers  chan string

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newTestRelay(t *testing.T) *testRelay {
	r := &testRelay{
		t:        t,
		received: make(chan *protocol.ClientMessage, 32),
		headers:  make(chan string, 8),
	}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *testRelay) serve(w http.ResponseWriter, req *http.Request) {
	select {
	case r.headers <- req.Header.Get("Authorization"):
	default:
	}

	ws, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.conns = append(r.conns, ws)
	r.mu.Unlock()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.DecodeClientMessage(data)
		if err != nil {
			continue
		}
		r.received <- msg
	}
}

func (r *testRelay) url() string {
	return "ws" + strings.TrimPrefix(r.srv.URL, "http")
}

// push writes a relay message to the most recent client connection.
func (r *testRelay) push(msg *protocol.RelayMessage) {
	data, err := msg.Encode()
	require.NoError(r.t, err)

	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(r.t, r.conns)
	ws := r.conns[len(r.conns)-1]
	require.NoError(r.t, ws.WriteMessage(websocket.TextMessage, data))
}

// newTestConn builds a Conn against the test relay with events draining into
// a channel.
func newTestConn(t *testing.T, relay *testRelay, mutate ...func(*Config)) (*Conn, chan connection.Event) {
	events := make(chan connection.Event, 64)
	config := &Config{Address: relay.url()}
	for _, fn := range mutate {
		fn(config)
	}
	c, err := New(config, func(ev connection.Event) { events <- ev })
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)
	return c, events
}

// waitKind waits for the next event of the given kind, failing on timeout.
func waitKind(t *testing.T, events chan connection.Event, kind connection.EventKind) connection.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("rejects_bad_address", func(t *testing.T) {
		_, err := New(&Config{Address: "http://not-a-relay"}, func(connection.Event) {})
		assert.Error(t, err)
	})

	t.Run("rejects_nil_handler", func(t *testing.T) {
		_, err := New(&Config{Address: "wss://relay.example.com"}, nil)
		assert.Error(t, err)
	})
}

func TestConnectAndSend(t *testing.T) {
	relay := newTestRelay(t)
	c, events := newTestConn(t, relay)

	assert.True(t, c.LastConnectionAttempt().IsZero())

	c.Connect()
	waitKind(t, events, connection.KindConnecting)
	waitKind(t, events, connection.KindConnected)
	assert.True(t, c.IsConnected())
	assert.False(t, c.LastConnectionAttempt().IsZero())

	require.NoError(t, c.Send(protocol.NewSubscribeMessage("sub-1", []protocol.Filter{{Kinds: []string{"note"}}})))

	select {
	case msg := <-relay.received:
		assert.Equal(t, protocol.MessageSubscribe, msg.Type)
		assert.Equal(t, "sub-1", msg.SubscriptionID)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not receive the subscribe message")
	}
}

func TestConnectIdempotentWhileConnecting(t *testing.T) {
	relay := newTestRelay(t)
	c, events := newTestConn(t, relay)

	c.Connect()
	c.Connect()
	waitKind(t, events, connection.KindConnected)

	// Only one session was established.
	select {
	case ev := <-events:
		t.Fatalf("unexpected extra event %s", ev.Kind)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestInboundMessage(t *testing.T) {
	relay := newTestRelay(t)
	c, events := newTestConn(t, relay)

	c.Connect()
	waitKind(t, events, connection.KindConnected)

	ev := protocol.NewEvent("note", []byte(`{"text":"hello"}`))
	relay.push(&protocol.RelayMessage{Type: protocol.MessageEvent, SubscriptionID: "sub-1", Event: ev})

	got := waitKind(t, events, connection.KindMessage)
	require.NotNil(t, got.Message)
	content, ok := got.Message.ContentEvent()
	require.True(t, ok)
	assert.Equal(t, ev.ID, content.ID)
}

func TestConnectFailure(t *testing.T) {
	relay := newTestRelay(t)
	addr := relay.url()
	relay.srv.Close()

	events := make(chan connection.Event, 64)
	c, err := New(&Config{Address: addr, HandshakeTimeout: time.Second}, func(ev connection.Event) { events <- ev })
	require.NoError(t, err)

	c.Connect()
	waitKind(t, events, connection.KindError)
	waitKind(t, events, connection.KindDisconnected)
	assert.False(t, c.IsConnected())
	assert.False(t, c.IsConnecting())
}

func TestDisconnect(t *testing.T) {
	relay := newTestRelay(t)
	c, events := newTestConn(t, relay)

	c.Connect()
	waitKind(t, events, connection.KindConnected)

	c.Disconnect()
	waitKind(t, events, connection.KindDisconnected)
	assert.False(t, c.IsConnected())

	assert.ErrorIs(t, c.Send(protocol.NewUnsubscribeMessage("sub-1")), ErrNotConnected)

	// Disconnecting again is a no-op.
	c.Disconnect()
}

func TestReconnect(t *testing.T) {
	relay := newTestRelay(t)
	c, events := newTestConn(t, relay)

	c.Connect()
	waitKind(t, events, connection.KindConnected)

	c.Reconnect()
	waitKind(t, events, connection.KindDisconnected)
	waitKind(t, events, connection.KindConnected)
	assert.True(t, c.IsConnected())
}

type staticToken string

func (s staticToken) Token(string) (string, error) { return string(s), nil }

func TestAuthToken(t *testing.T) {
	relay := newTestRelay(t)
	c, events := newTestConn(t, relay, func(cfg *Config) {
		cfg.TokenProvider = staticToken("tok-123")
	})

	c.Connect()
	waitKind(t, events, connection.KindConnected)

	// Token rides along on the dial.
	select {
	case auth := <-relay.headers:
		assert.Equal(t, "Bearer tok-123", auth)
	case <-time.After(2 * time.Second):
		t.Fatal("no dial recorded")
	}

	// An auth challenge is answered with the token.
	relay.push(&protocol.RelayMessage{Type: protocol.MessageAuthChallenge, Challenge: "c1"})
	waitKind(t, events, connection.KindMessage)

	select {
	case msg := <-relay.received:
		assert.Equal(t, protocol.MessageAuth, msg.Type)
		assert.Equal(t, "tok-123", msg.Token)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not receive auth response")
	}
}
