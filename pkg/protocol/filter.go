package protocol

import "time"

// Filter narrows which events a subscription receives. Empty fields match
// everything; populated fields are ANDed together, values within a field are
// ORed.
type Filter struct {
	// IDs restricts matches to events with one of these identifiers
	IDs []string `json:"ids,omitempty"`

	// Kinds restricts matches to events of one of these kinds
	Kinds []string `json:"kinds,omitempty"`

	// Tags restricts matches to events carrying one of the given values
	// for each named tag
	Tags map[string][]string `json:"tags,omitempty"`

	// Since restricts matches to events created at or after this time
	Since *time.Time `json:"since,omitempty"`

	// Until restricts matches to events created at or before this time
	Until *time.Time `json:"until,omitempty"`

	// Limit caps how many stored events the relay replays for this filter
	Limit int `json:"limit,omitempty"`
}

// Matches reports whether the event satisfies this filter.
func (f Filter) Matches(ev *Event) bool {
	if ev == nil {
		return false
	}
	if len(f.IDs) > 0 && !containsString(f.IDs, ev.ID) {
		return false
	}
	if len(f.Kinds) > 0 && !containsString(f.Kinds, ev.Kind) {
		return false
	}
	for name, values := range f.Tags {
		got, ok := ev.Tags[name]
		if !ok || !containsString(values, got) {
			return false
		}
	}
	if f.Since != nil && ev.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && ev.CreatedAt.After(*f.Until) {
		return false
	}
	return true
}

// MatchesAny reports whether the event satisfies at least one of the filters.
// An empty filter list matches everything.
func MatchesAny(filters []Filter, ev *Event) bool {
	if len(filters) == 0 {
		return ev != nil
	}
	for _, f := range filters {
		if f.Matches(ev) {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
