// Package wsconn implements the connection.Connection contract over a
// websocket channel with JSON protocol framing.
//
// One Conn owns at most one live websocket session at a time. Sessions are
// identified by a generation counter: Disconnect and Reconnect bump the
// generation, which makes every goroutine belonging to the old session
// (including an unfinished dial) drop its results on the floor instead of
// racing the new one.
package wsconn

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/relaymesh/relaypool-go/pkg/connection"
	"github.com/relaymesh/relaypool-go/pkg/protocol"
)

var (
	// ErrNotConnected is returned by Send when no session is established
	ErrNotConnected = errors.New("not connected")
	// ErrSendBufferFull is returned by Send when the outbound buffer is full
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn is a websocket implementation of connection.Connection.
type Conn struct {
	config  *Config
	log     zerolog.Logger
	handler connection.Handler

	mu          sync.Mutex
	state       connection.State
	lastAttempt time.Time
	gen         int
	ws          *websocket.Conn
	outbound    chan []byte
	done        chan struct{}
}

var _ connection.Connection = (*Conn)(nil)

// New creates a websocket connection for the configured relay. No network
// activity happens until Connect.
func New(config *Config, handler connection.Handler) (*Conn, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Make a copy and set defaults
	configCopy := *config
	configCopy.SetDefaults()

	return &Conn{
		config:  &configCopy,
		log:     configCopy.Logger.With().Str("relay", configCopy.Address).Logger(),
		handler: handler,
		state:   connection.StateDisconnected,
	}, nil
}

// Factory adapts a base Config into a connection.Factory for the pool. The
// base's Address is overridden per relay.
func Factory(base Config) connection.Factory {
	return func(address string, handler connection.Handler) (connection.Connection, error) {
		cfg := base
		cfg.Address = address
		return New(&cfg, handler)
	}
}

// Connect starts establishing the session. No-op unless disconnected.
func (c *Conn) Connect() {
	c.mu.Lock()
	if c.state != connection.StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = connection.StateConnecting
	c.lastAttempt = time.Now()
	gen := c.gen
	c.mu.Unlock()

	c.emit(connection.Event{Kind: connection.KindConnecting})
	go c.dial(gen)
}

// Disconnect tears down the session, cancelling a connect attempt that is
// still in flight. No-op when already disconnected.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	gen := c.gen
	state := c.state
	c.mu.Unlock()

	if state == connection.StateDisconnected {
		return
	}
	c.teardown(gen, nil)
}

// Reconnect tears down whatever exists and starts a fresh attempt.
func (c *Conn) Reconnect() {
	c.Disconnect()
	c.Connect()
}

// Send hands an outbound message to the session's write loop.
func (c *Conn) Send(msg *protocol.ClientMessage) error {
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	c.mu.Lock()
	if c.state != connection.StateConnected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	outbound := c.outbound
	c.mu.Unlock()

	select {
	case outbound <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// IsConnected reports whether a session is established.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == connection.StateConnected
}

// IsConnecting reports whether a connect attempt is in flight.
func (c *Conn) IsConnecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == connection.StateConnecting
}

// LastConnectionAttempt returns when the most recent connect attempt began.
func (c *Conn) LastConnectionAttempt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAttempt
}

// dial performs the websocket handshake for the given session generation.
func (c *Conn) dial(gen int) {
	header := http.Header{}
	if c.config.TokenProvider != nil {
		token, err := c.config.TokenProvider.Token(c.config.Address)
		if err != nil {
			c.connectFailed(gen, fmt.Errorf("auth token: %w", err))
			return
		}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	ws, resp, err := dialer.Dial(c.config.Address, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.connectFailed(gen, fmt.Errorf("dial %s: %w", c.config.Address, err))
		return
	}

	c.mu.Lock()
	if c.gen != gen || c.state != connection.StateConnecting {
		// Disconnected (or reconnected) while the handshake was running.
		c.mu.Unlock()
		ws.Close()
		return
	}
	c.ws = ws
	c.state = connection.StateConnected
	c.outbound = make(chan []byte, c.config.SendBuffer)
	c.done = make(chan struct{})
	outbound, done := c.outbound, c.done
	c.mu.Unlock()

	ws.SetReadLimit(c.config.MaxMessageSize)

	go c.readLoop(gen, ws)
	go c.writeLoop(gen, ws, outbound, done)

	c.log.Debug().Msg("connected")
	c.emit(connection.Event{Kind: connection.KindConnected})
}

// connectFailed reports a failed handshake for the given generation.
func (c *Conn) connectFailed(gen int, err error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.state = connection.StateDisconnected
	c.mu.Unlock()

	c.log.Debug().Err(err).Msg("connect failed")
	c.emit(connection.Event{Kind: connection.KindError, Err: err})
	c.emit(connection.Event{Kind: connection.KindDisconnected})
}

// teardown ends the session with the given generation. err carries the
// transport failure that caused it, nil for a requested disconnect.
func (c *Conn) teardown(gen int, err error) {
	c.mu.Lock()
	if c.gen != gen {
		// A newer session owns the connection now.
		c.mu.Unlock()
		return
	}
	c.gen++
	state := c.state
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.outbound = nil
	c.state = connection.StateDisconnected
	c.mu.Unlock()

	if state == connection.StateDisconnected {
		return
	}
	if err != nil {
		c.log.Debug().Err(err).Msg("connection lost")
		c.emit(connection.Event{Kind: connection.KindError, Err: err})
	}
	c.emit(connection.Event{Kind: connection.KindDisconnected})
}

// readLoop pumps inbound frames for one session until the connection dies.
func (c *Conn) readLoop(gen int, ws *websocket.Conn) {
	ws.SetReadDeadline(time.Now().Add(c.config.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.teardown(gen, err)
			return
		}
		ws.SetReadDeadline(time.Now().Add(c.config.PongWait))

		msg, err := protocol.DecodeRelayMessage(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping undecodable relay message")
			c.emit(connection.Event{Kind: connection.KindError, Err: err})
			continue
		}

		if msg.Type == protocol.MessageAuthChallenge && c.config.TokenProvider != nil {
			c.answerChallenge()
		}

		c.emit(connection.Event{Kind: connection.KindMessage, Message: msg})
	}
}

// writeLoop pumps outbound frames and keepalive pings for one session.
func (c *Conn) writeLoop(gen int, ws *websocket.Conn, outbound chan []byte, done chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-outbound:
			ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.teardown(gen, err)
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.teardown(gen, err)
				return
			}
		case <-done:
			return
		}
	}
}

// answerChallenge responds to a relay auth challenge with a fresh token.
func (c *Conn) answerChallenge() {
	token, err := c.config.TokenProvider.Token(c.config.Address)
	if err != nil {
		c.log.Warn().Err(err).Msg("auth challenge: token provider failed")
		return
	}
	if err := c.Send(protocol.NewAuthMessage(token)); err != nil {
		c.log.Warn().Err(err).Msg("auth challenge: send failed")
	}
}

func (c *Conn) emit(ev connection.Event) {
	c.handler(ev)
}
