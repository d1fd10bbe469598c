// Package protocol defines the wire model for the relay publish/subscribe
// protocol spoken between the pool and remote relays.
//
// Messages are JSON objects with a "type" discriminator. Two directions:
//   - ClientMessage: what the pool sends to a relay (subscribe, unsubscribe,
//     publish, auth)
//   - RelayMessage: what a relay sends back (event, eose, ok, notice,
//     auth_challenge)
//
// The pool itself treats relay messages as opaque apart from two things: the
// "event" variant carries a content identifier used by the dedup ledger, and
// the transport layer reacts to "auth_challenge". Everything else is fanned
// out to handlers untouched.
package protocol
