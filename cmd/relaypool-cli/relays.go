package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaymesh/relaypool-go/pkg/connection"
)

func newRelaysCommand() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "relays",
		Short: "Show connection status for each relay",
		Long: `Connect to every --relay, wait briefly for the dials to settle, and
print a status line per relay.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelays(wait)
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "How long to let connections settle")

	return cmd
}

func runRelays(wait time.Duration) error {
	log := cliLogger()

	p, _, err := buildPool(log, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	p.Connect()
	time.Sleep(wait)

	statuses := p.Relays()
	fmt.Printf("Relays (%d connected, %d connecting):\n", p.ConnectedCount(), p.ConnectingCount())
	for _, status := range statuses {
		marker := "🔌"
		switch {
		case status.Broken:
			marker = "💀"
		case status.State == connection.StateConnected:
			marker = "✅"
		case status.State == connection.StateConnecting:
			marker = "⏳"
		}
		fmt.Printf("  %s %s\n", marker, status.Address)
		fmt.Printf("     State: %s  Broken: %v  Received: %d  Queued: %d\n",
			status.State, status.Broken, status.Received, status.Queued)
	}
	return nil
}
