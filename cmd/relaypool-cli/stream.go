package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/relaymesh/relaypool-go/pkg/connection"
	"github.com/relaymesh/relaypool-go/pkg/protocol"
	"github.com/relaymesh/relaypool-go/pkg/relaypool"
)

func newStreamCommand() *cobra.Command {
	var (
		kinds          []string
		subscriptionID string
		metricsAddr    string
		prettyFormat   bool
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream events from the relays in real-time",
		Long: `Stream events from every --relay in real-time. Stored events matching the
filter are replayed first, then live events arrive as relays accept them.
Press Ctrl+C to stop streaming.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(kinds, subscriptionID, metricsAddr, prettyFormat)
		},
	}

	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Event kind to match (repeatable; all kinds if not specified)")
	cmd.Flags().StringVar(&subscriptionID, "subscription-id", "", "Subscription identifier (generated if not specified)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (optional)")
	cmd.Flags().BoolVar(&prettyFormat, "pretty", false, "Pretty print JSON payloads")

	return cmd
}

func runStream(kinds []string, subscriptionID, metricsAddr string, prettyFormat bool) error {
	log := cliLogger()

	var registerer prometheus.Registerer
	if metricsAddr != "" {
		registry := prometheus.NewRegistry()
		registerer = registry
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Warn().Err(err).Msg("metrics server failed")
			}
		}()
		fmt.Printf("📊 Metrics on http://%s/metrics\n", metricsAddr)
	}

	p, addresses, err := buildPool(log, registerer)
	if err != nil {
		return err
	}
	defer p.Close()

	if subscriptionID == "" {
		subscriptionID = protocol.NewSubscriptionID()
	}
	var filters []protocol.Filter
	if len(kinds) > 0 {
		filters = []protocol.Filter{{Kinds: kinds}}
	}

	eventCount := 0
	handler := func(address relaypool.RelayAddress, ev connection.Event) {
		switch ev.Kind {
		case connection.KindConnected:
			fmt.Printf("🔗 %s connected\n", address)
		case connection.KindDisconnected:
			fmt.Printf("🔌 %s disconnected\n", address)
		case connection.KindError:
			fmt.Printf("❌ %s: %v\n", address, ev.Err)
		case connection.KindMessage:
			printRelayMessage(address, ev.Message, &eventCount, prettyFormat)
		}
	}

	fmt.Printf("🌊 Streaming from %d relay(s), subscription %s\n", len(addresses), subscriptionID)
	fmt.Println("Press Ctrl+C to stop streaming")

	p.Subscribe(subscriptionID, filters, handler)
	p.Connect()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	p.Unsubscribe(subscriptionID)
	fmt.Printf("\n✅ Stream stopped. Received %d events.\n", eventCount)
	return nil
}

func printRelayMessage(address relaypool.RelayAddress, msg *protocol.RelayMessage, eventCount *int, pretty bool) {
	if msg == nil {
		return
	}
	switch msg.Type {
	case protocol.MessageEvent:
		ev, ok := msg.ContentEvent()
		if !ok {
			return
		}
		*eventCount++
		fmt.Printf("📨 Event #%d from %s:\n", *eventCount, address)
		fmt.Printf("   ID: %s\n", ev.ID)
		fmt.Printf("   Kind: %s\n", ev.Kind)
		fmt.Printf("   Time: %s\n", ev.CreatedAt.Format("2006-01-02 15:04:05.000"))
		printPayload(ev.Payload, pretty)
		fmt.Println()
	case protocol.MessageEndOfStored:
		fmt.Printf("⏳ %s: end of stored events\n", address)
	case protocol.MessageNotice:
		fmt.Printf("📢 %s: %s\n", address, msg.Notice)
	}
}

func printPayload(payload json.RawMessage, pretty bool) {
	if len(payload) == 0 {
		fmt.Printf("   Payload: null\n")
		return
	}
	if pretty {
		var buf map[string]interface{}
		if err := json.Unmarshal(payload, &buf); err == nil {
			if jsonBytes, err := json.MarshalIndent(buf, "            ", "  "); err == nil {
				fmt.Printf("   Payload:\n            %s\n", string(jsonBytes))
				return
			}
		}
	}
	fmt.Printf("   Payload: %s\n", string(payload))
}
