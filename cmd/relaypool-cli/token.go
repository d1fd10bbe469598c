package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaymesh/relaypool-go/internal/relayauth"
)

func newTokenCommand() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an auth token for a relay",
		Long: `Mint a bearer token signed with --auth-secret, scoped to the first
--relay address. Useful for handing credentials to other tools.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(ttl)
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", relayauth.DefaultTTL, "Token lifetime")

	return cmd
}

func runToken(ttl time.Duration) error {
	if authSecret == "" {
		return fmt.Errorf("--auth-secret is required")
	}
	if len(relayAddrs) == 0 {
		return fmt.Errorf("at least one --relay is required")
	}

	auth, err := relayauth.NewTokenAuth(authSecret, clientID)
	if err != nil {
		return err
	}
	auth.WithTTL(ttl)

	token, expiresAt, err := auth.GenerateToken(relayAddrs[0])
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Printf("🔑 Token for %s (expires %s):\n", relayAddrs[0], expiresAt.Format(time.RFC3339))
	fmt.Println(token)
	return nil
}
