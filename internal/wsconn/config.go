package wsconn

import (
	"time"

	"github.com/rs/zerolog"

	relaypool "github.com/relaymesh/relaypool-go/pkg/relaypool"
)

// TokenProvider supplies bearer tokens for relays that require
// authentication. The token is attached to the dial request and used to
// answer auth challenges.
type TokenProvider interface {
	Token(relayAddress string) (string, error)
}

// Config holds configuration for a websocket relay connection
type Config struct {
	// Address is the relay endpoint (ws:// or wss://)
	Address string

	// HandshakeTimeout bounds the websocket dial and upgrade
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each outbound frame write
	WriteTimeout time.Duration

	// PingInterval is how often keepalive pings are sent
	PingInterval time.Duration

	// PongWait is how long to wait for any inbound traffic before the
	// read side gives up. Must exceed PingInterval.
	PongWait time.Duration

	// SendBuffer is the outbound channel capacity; Send refuses messages
	// once it is full
	SendBuffer int

	// MaxMessageSize caps inbound frames in bytes
	MaxMessageSize int64

	// TokenProvider, when set, authenticates against the relay. Optional.
	TokenProvider TokenProvider

	// Logger receives transport diagnostics. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	_, err := relaypool.ParseRelayAddress(c.Address)
	return err
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 2 * c.PingInterval
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 512 * 1024
	}
}
