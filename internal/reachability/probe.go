package reachability

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/relaymesh/relaypool-go/pkg/reachability"
)

// ProbeConfig holds configuration for the dial probe monitor
type ProbeConfig struct {
	// ProbeAddress is the host:port the monitor dials to judge
	// connectivity
	ProbeAddress string

	// Interval is how often the probe runs
	Interval time.Duration

	// Timeout bounds each probe dial
	Timeout time.Duration

	// Dial overrides the probe's dial function. Tests inject a fake; the
	// default is a TCP dial against ProbeAddress.
	Dial func() error

	// Logger receives probe diagnostics. Defaults to a no-op logger.
	Logger zerolog.Logger

	// Clock is the time source for the probe interval. Defaults to the
	// real clock.
	Clock clock.Clock
}

// Validate checks if the configuration is valid
func (c *ProbeConfig) Validate() error {
	if c.ProbeAddress == "" && c.Dial == nil {
		return errors.New("probe address cannot be empty")
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *ProbeConfig) SetDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Dial == nil {
		address, timeout := c.ProbeAddress, c.Timeout
		c.Dial = func() error {
			conn, err := net.DialTimeout("tcp", address, timeout)
			if err != nil {
				return err
			}
			return conn.Close()
		}
	}
}

// ProbeMonitor judges host connectivity by periodically dialing a probe
// address. A successful dial maps to Satisfied, a failed one to Unsatisfied;
// RequiresConnection never originates here (feed a ManualMonitor from an
// OS-level signal when that distinction matters).
type ProbeMonitor struct {
	config    *ProbeConfig
	log       zerolog.Logger
	inner     *ManualMonitor
	stop      chan struct{}
	closeOnce sync.Once
}

var _ reachability.Monitor = (*ProbeMonitor)(nil)

// NewProbeMonitor creates the monitor and runs an immediate first probe so
// Status is meaningful right away, then probes on the configured interval.
func NewProbeMonitor(config *ProbeConfig) (*ProbeMonitor, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Make a copy and set defaults
	configCopy := *config
	configCopy.SetDefaults()

	m := &ProbeMonitor{
		config: &configCopy,
		log:    configCopy.Logger,
		inner:  NewManualMonitor(reachability.StatusUnsatisfied),
		stop:   make(chan struct{}),
	}
	m.probe()
	go m.loop()
	return m, nil
}

// Status returns the current reachability status.
func (m *ProbeMonitor) Status() reachability.Status {
	return m.inner.Status()
}

// OnStatusChange registers a callback invoked on every status change.
func (m *ProbeMonitor) OnStatusChange(fn func(reachability.Status)) {
	m.inner.OnStatusChange(fn)
}

// Close stops probing.
func (m *ProbeMonitor) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	return m.inner.Close()
}

func (m *ProbeMonitor) loop() {
	ticker := m.config.Clock.Ticker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probe()
		case <-m.stop:
			return
		}
	}
}

func (m *ProbeMonitor) probe() {
	status := reachability.StatusSatisfied
	if err := m.config.Dial(); err != nil {
		status = reachability.StatusUnsatisfied
		m.log.Debug().Err(err).Msg("reachability probe failed")
	}
	m.inner.Set(status)
}
