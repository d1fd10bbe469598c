// Package relaypool defines the public surface of the relay connection pool.
//
// A Pool maintains long-lived connections to many independent, untrusted
// relays, multiplexes a small set of logical subscriptions across all of
// them, queues outbound requests for relays that are down, and recovers from
// per-connection failures without losing in-flight intent. Delivery to
// handlers is at-least-once: duplicate events arriving from redundant relays
// are tracked in a dedup ledger for observability but are not dropped.
//
// The implementation lives in internal/relaypool; construct one with its New
// function and a connection.Factory such as the websocket transport in
// internal/wsconn.
package relaypool
