package reachability

import "io"

// Status represents host-level network reachability
type Status int

const (
	// StatusUnsatisfied means no route to the network is available
	StatusUnsatisfied Status = iota
	// StatusSatisfied means the network is reachable
	StatusSatisfied
	// StatusRequiresConnection means a route exists but needs to be brought
	// up first (e.g. on-demand VPN or dial-up style links)
	StatusRequiresConnection
)

func (s Status) String() string {
	switch s {
	case StatusUnsatisfied:
		return "Unsatisfied"
	case StatusSatisfied:
		return "Satisfied"
	case StatusRequiresConnection:
		return "RequiresConnection"
	default:
		return "Unknown"
	}
}

// Usable reports whether the status allows connection attempts to be made.
func (s Status) Usable() bool {
	return s == StatusSatisfied || s == StatusRequiresConnection
}

// Monitor reports host connectivity transitions.
//
// OnStatusChange callbacks fire only when the status actually changes, from
// the monitor's own goroutine. Subscribers that care about the previous
// value track it themselves.
type Monitor interface {
	io.Closer

	// Status returns the current reachability status.
	Status() Status

	// OnStatusChange registers a callback invoked on every status change.
	// Multiple callbacks may be registered; they are invoked in
	// registration order.
	OnStatusChange(fn func(Status))
}
