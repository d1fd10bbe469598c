// Package reachability defines the contract for host-level connectivity
// monitoring consumed by the relay pool.
//
// A Monitor reports whether the host currently has a usable route to the
// network. The pool subscribes to status changes and schedules a
// reconnection reconciliation pass whenever the host transitions into
// Satisfied or RequiresConnection from a different prior status. Monitors
// never touch pool state themselves.
//
// Implementations live in internal/reachability: a TCP dial probe monitor
// and a manually fed monitor for embedders that already receive an OS-level
// signal.
package reachability
