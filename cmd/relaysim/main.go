package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaymesh/relaypool-go/internal/relayauth"
	"github.com/relaymesh/relaypool-go/internal/relaysim"
)

const (
	// Application info
	appName    = "relaysim"
	appVersion = "0.1.0"
)

func main() {
	// Command-line flags
	var (
		listenAddr  = flag.String("listen", ":7447", "Listen address for relay connections")
		authSecret  = flag.String("auth-secret", "", "Require token auth signed with this secret (optional)")
		replayLimit = flag.Int("replay-limit", 100, "Maximum stored events replayed per subscription")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", appName, appVersion)
		os.Exit(0)
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	config := &relaysim.Config{
		ReplayLimit: *replayLimit,
		Logger:      log,
	}

	if *authSecret != "" {
		auth, err := relayauth.NewTokenAuth(*authSecret, appName)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid auth configuration")
		}
		config.TokenAuth = auth
		log.Info().Msg("token auth required")
	}

	relay := relaysim.NewServer(config)
	server := &http.Server{Addr: *listenAddr, Handler: relay}

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown error")
		}
	}()

	log.Info().
		Str("version", appVersion).
		Str("listen", *listenAddr).
		Msg("relay simulator starting")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("relay simulator stopped")
}
