package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaymesh/relaypool-go/pkg/connection"
	"github.com/relaymesh/relaypool-go/pkg/protocol"
	"github.com/relaymesh/relaypool-go/pkg/relaypool"
)

func newPublishCommand() *cobra.Command {
	var (
		kind    string
		payload string
		tags    []string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an event to the relays",
		Long: `Publish an event to every --relay and wait for their acceptance
responses. Relays that are unreachable receive the event when they come
back, up to the per-relay queue bound.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(kind, payload, tags)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Event kind (required)")
	cmd.Flags().StringVar(&payload, "payload", "{}", "Event payload as JSON")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Event tag as key=value (repeatable)")
	cmd.MarkFlagRequired("kind")

	return cmd
}

func runPublish(kind, payload string, rawTags []string) error {
	log := cliLogger()

	tags, err := parseTags(rawTags)
	if err != nil {
		return err
	}

	p, addresses, err := buildPool(log, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	ev := protocol.NewEvent(kind, []byte(payload))
	if len(tags) > 0 {
		ev.Tags = tags
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	// Watch for acceptance responses from each relay.
	acks := make(chan string, len(addresses))
	handler := func(address relaypool.RelayAddress, connEv connection.Event) {
		if connEv.Kind != connection.KindMessage || connEv.Message == nil {
			return
		}
		msg := connEv.Message
		if msg.Type != protocol.MessageOK || msg.EventID != ev.ID {
			return
		}
		if msg.Accepted {
			acks <- fmt.Sprintf("✅ %s accepted %s", address, ev.ID)
		} else {
			acks <- fmt.Sprintf("❌ %s rejected %s: %s", address, ev.ID, msg.Reason)
		}
	}
	// The filter keeps relay-side replay empty; the handler itself sees
	// every response regardless of the subscription.
	p.Subscribe("publish-acks", []protocol.Filter{{IDs: []string{ev.ID}}}, handler, addresses[0])

	fmt.Printf("📤 Publishing event %s (kind %s) to %d relay(s)...\n", ev.ID, kind, len(addresses))
	p.Connect()
	p.Send(protocol.NewPublishMessage(ev))

	deadline := time.After(timeout)
	for received := 0; received < len(addresses); received++ {
		select {
		case line := <-acks:
			fmt.Println(line)
		case <-deadline:
			fmt.Printf("⏰ Timed out after %d of %d responses\n", received, len(addresses))
			return nil
		}
	}
	return nil
}

func parseTags(rawTags []string) (map[string]string, error) {
	if len(rawTags) == 0 {
		return nil, nil
	}
	tags := make(map[string]string, len(rawTags))
	for _, raw := range rawTags {
		key, value, found := strings.Cut(raw, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid tag %q: expected key=value", raw)
		}
		tags[key] = value
	}
	return tags, nil
}
