package relaypool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelayAddress(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		addr, err := ParseRelayAddress("wss://relay.example.com")
		require.NoError(t, err)
		assert.Equal(t, "wss://relay.example.com", addr.String())
	})

	t.Run("normalizes_case_and_trailing_slash", func(t *testing.T) {
		addr, err := ParseRelayAddress("WSS://Relay.Example.COM/")
		require.NoError(t, err)
		assert.Equal(t, "wss://relay.example.com", addr.String())
	})

	t.Run("keeps_path_and_port", func(t *testing.T) {
		addr, err := ParseRelayAddress("ws://localhost:8080/relay")
		require.NoError(t, err)
		assert.Equal(t, "ws://localhost:8080/relay", addr.String())
	})

	t.Run("rejects_non_websocket_schemes", func(t *testing.T) {
		for _, raw := range []string{"http://relay.example.com", "relay.example.com", ""} {
			_, err := ParseRelayAddress(raw)
			assert.ErrorIs(t, err, ErrInvalidAddress, "input %q", raw)
		}
	})

	t.Run("rejects_missing_host", func(t *testing.T) {
		_, err := ParseRelayAddress("wss://")
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})
}
