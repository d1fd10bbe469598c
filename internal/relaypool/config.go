package relaypool

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/relaymesh/relaypool-go/pkg/connection"
	"github.com/relaymesh/relaypool-go/pkg/reachability"
)

// Config holds configuration for the relay pool
type Config struct {
	// ConnFactory builds the transport connection for each added relay.
	// Required.
	ConnFactory connection.Factory

	// Monitor, when set, drives opportunistic reconnection on host
	// reachability transitions. Optional.
	Monitor reachability.Monitor

	// ReconcilePeriod is how often the automatic reconnection pass runs.
	// Zero or negative disables the periodic pass; reachability transitions
	// and manual ConnectToDisconnected calls still work.
	ReconcilePeriod time.Duration

	// StaleThreshold is how long a connection may sit in the connecting
	// state before the reconciliation pass force-reconnects it.
	StaleThreshold time.Duration

	// Logger receives pool diagnostics. Defaults to a no-op logger.
	Logger zerolog.Logger

	// Clock is the time source for staleness checks and the reconcile
	// ticker. Defaults to the real clock; tests inject a mock.
	Clock clock.Clock

	// Registerer, when set, receives the pool's prometheus collectors.
	Registerer prometheus.Registerer
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ConnFactory == nil {
		return errors.New("connection factory cannot be nil")
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = 5 * time.Second
	}
	if c.ReconcilePeriod == 0 {
		c.ReconcilePeriod = 30 * time.Second
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
}
