package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	pool "github.com/relaymesh/relaypool-go/internal/relaypool"
	"github.com/relaymesh/relaypool-go/internal/relayauth"
	"github.com/relaymesh/relaypool-go/internal/wsconn"
	"github.com/relaymesh/relaypool-go/pkg/relaypool"
)

var (
	// Global flags
	relayAddrs []string
	authSecret string
	clientID   string
	timeout    time.Duration
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "relaypool-cli",
		Short: "Relay pool command line interface",
		Long: `relaypool-cli talks to pub/sub relays through the connection pool.
It provides commands for streaming events, publishing, inspecting relay
status, and minting auth tokens.`,
	}

	// Add global flags
	rootCmd.PersistentFlags().StringSliceVar(&relayAddrs, "relay", nil, "Relay address (ws:// or wss://, repeatable)")
	rootCmd.PersistentFlags().StringVar(&authSecret, "auth-secret", "", "Shared secret for relays that require auth")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "relaypool-cli", "Client identity used in auth tokens")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "How long to wait for relay responses")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(newStreamCommand())
	rootCmd.AddCommand(newPublishCommand())
	rootCmd.AddCommand(newRelaysCommand())
	rootCmd.AddCommand(newTokenCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliLogger builds the console logger shared by all commands.
func cliLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// buildPool wires a pool over websocket transport to every --relay address.
// Relays are added but not yet connected; callers decide when to dial.
func buildPool(log zerolog.Logger, registerer prometheus.Registerer) (*pool.Pool, []relaypool.RelayAddress, error) {
	if len(relayAddrs) == 0 {
		return nil, nil, fmt.Errorf("at least one --relay is required")
	}

	addresses := make([]relaypool.RelayAddress, 0, len(relayAddrs))
	for _, raw := range relayAddrs {
		address, err := relaypool.ParseRelayAddress(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid relay %q: %w", raw, err)
		}
		addresses = append(addresses, address)
	}

	base := wsconn.Config{Logger: log}
	if authSecret != "" {
		auth, err := relayauth.NewTokenAuth(authSecret, clientID)
		if err != nil {
			return nil, nil, fmt.Errorf("auth setup failed: %w", err)
		}
		base.TokenProvider = auth
	}

	p, err := pool.New(&pool.Config{
		ConnFactory: wsconn.Factory(base),
		Logger:      log,
		Registerer:  registerer,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pool: %w", err)
	}

	for _, address := range addresses {
		info := relaypool.RelayInfo{
			Read:         true,
			Write:        true,
			RequiresAuth: authSecret != "",
		}
		if err := p.AddRelay(address, info); err != nil {
			p.Close()
			return nil, nil, fmt.Errorf("failed to add relay %s: %w", address, err)
		}
	}

	return p, addresses, nil
}
