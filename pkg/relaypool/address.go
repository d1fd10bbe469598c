package relaypool

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidAddress is returned when a relay address fails validation
var ErrInvalidAddress = errors.New("invalid relay address")

// RelayAddress is a validated, normalized relay endpoint identifier. It is
// the primary key for every per-relay collection in the pool. Construct one
// with ParseRelayAddress; the zero value is never valid.
type RelayAddress string

// ParseRelayAddress validates and normalizes a relay endpoint URL.
// Only ws:// and wss:// endpoints are accepted. Scheme and host are
// lowercased and a bare trailing slash is dropped so that equivalent
// spellings map to the same address.
func ParseRelayAddress(raw string) (RelayAddress, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("%w: scheme must be ws or wss, got %q", ErrInvalidAddress, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidAddress)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "/" {
		u.Path = ""
	}
	u.Fragment = ""

	return RelayAddress(u.String()), nil
}

// MustParseRelayAddress is ParseRelayAddress that panics on error, for
// tests and static configuration.
func MustParseRelayAddress(raw string) RelayAddress {
	addr, err := ParseRelayAddress(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a RelayAddress) String() string {
	return string(a)
}
