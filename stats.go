package swrcache

import "sync/atomic"

// Stats is a point-in-time view of the cache.
// Total/Fresh/Stale/Expired are computed against the clock at call time;
// the remaining fields are monotonic counters since New.
type Stats struct {
	Total   int
	Fresh   int
	Stale   int
	Expired int

	Hits            uint64 // fresh entry served
	StaleHits       uint64 // stale entry served
	Misses          uint64 // expired or absent on read
	Fetches         uint64 // synchronous fetches executed (after coalescing)
	FetchErrors     uint64
	Fallbacks       uint64 // fetch errors masked by a previous value
	Refreshes       uint64 // background refreshes started
	RefreshFailures uint64
	Evictions       uint64
}

type counters struct {
	hits            atomic.Uint64
	staleHits       atomic.Uint64
	misses          atomic.Uint64
	fetches         atomic.Uint64
	fetchErrors     atomic.Uint64
	fallbacks       atomic.Uint64
	refreshes       atomic.Uint64
	refreshFailures atomic.Uint64
	evictions       atomic.Uint64
}

func (c *counters) fill(s *Stats) {
	s.Hits = c.hits.Load()
	s.StaleHits = c.staleHits.Load()
	s.Misses = c.misses.Load()
	s.Fetches = c.fetches.Load()
	s.FetchErrors = c.fetchErrors.Load()
	s.Fallbacks = c.fallbacks.Load()
	s.Refreshes = c.refreshes.Load()
	s.RefreshFailures = c.refreshFailures.Load()
	s.Evictions = c.evictions.Load()
}
