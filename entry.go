package swrcache

import (
	"slices"
	"time"
)

// State is the freshness class of an entry at a given instant.
type State uint8

const (
	StateFresh State = iota
	StateStale
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "expired"
	}
}

// Entry is a snapshot of one cached value. Entries handed to callers are copies;
// the cache replaces entries wholesale and never mutates one in place.
type Entry[V any] struct {
	Key       string
	Value     V
	CreatedAt time.Time
	FreshFor  time.Duration
	StaleFor  time.Duration
	Tags      []string
}

// Age is the time elapsed since the entry was created.
func (e Entry[V]) Age(now time.Time) time.Duration { return now.Sub(e.CreatedAt) }

// State classifies the entry at now.
func (e Entry[V]) State(now time.Time) State {
	age := e.Age(now)
	switch {
	case age < e.FreshFor:
		return StateFresh
	case age < e.StaleFor:
		return StateStale
	default:
		return StateExpired
	}
}

// entry is the stored form: the public snapshot plus bookkeeping.
type entry[V any] struct {
	Entry[V]
	gen uint64 // store-wide install counter, for superseded-fetch detection
}

func (e *entry[V]) snapshot() Entry[V] {
	out := e.Entry
	out.Tags = slices.Clone(e.Tags)
	return out
}

// Outcome tells how a Lookup was answered.
type Outcome uint8

const (
	// OutcomeHit: fresh entry served, no fetch.
	OutcomeHit Outcome = iota
	// OutcomeStale: stale entry served, background refresh requested.
	OutcomeStale
	// OutcomeFetched: value produced by a synchronous fetch.
	OutcomeFetched
	// OutcomeFallback: synchronous fetch failed, previous value served.
	OutcomeFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeStale:
		return "stale"
	case OutcomeFetched:
		return "fetched"
	default:
		return "fallback"
	}
}

// Result is what Lookup returns.
type Result[V any] struct {
	Value   V
	Outcome Outcome
	// FetchErr is the masked fetch error when Outcome == OutcomeFallback.
	FetchErr error
}
