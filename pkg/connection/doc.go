// Package connection defines the contract between the relay pool and the
// transport layer that owns one physical duplex channel to one relay.
//
// The pool never performs network I/O itself: it calls Connect, Disconnect,
// Reconnect and Send, all of which return immediately, and observes the
// connection entirely through the Event callback. Transport-level events
// (connecting, connected, disconnected, error) and protocol-level events
// (inbound relay messages) arrive on the same callback so the pool has a
// single ingestion path per relay.
//
// Implementations live elsewhere; the production one is internal/wsconn.
package connection
