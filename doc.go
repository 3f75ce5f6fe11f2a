// Package swrcache implements an in-process stale-while-revalidate cache.
// Callers ask for a key together with a Fetcher; the cache decides from the
// entry's age whether to serve it, serve it and refresh it in the background,
// or block on the fetcher.
//
// Freshness (age measured from the last successful fetch or Set):
//
//	age <  FreshFor             fresh    served, no fetch
//	FreshFor <= age < StaleFor  stale    served, one background refresh per key
//	age >= StaleFor or absent   expired  synchronous fetch (coalesced per key)
//
// When a synchronous fetch fails and an expired entry is still held, its value is
// returned instead of the error (OutcomeFallback, Hooks.StaleFallbackUsed).
//
// Entries can be tagged and removed in bulk with InvalidateByTags. The cache is
// bounded by Options.Capacity; by default the oldest-inserted key is evicted
// first (EvictFIFO), EvictLRU switches to access order.
//
// Usage:
//
//	c, _ := swrcache.New[User](swrcache.Options{Capacity: 1000})
//	u, err := c.Get(ctx, "user:42", func(ctx context.Context) (User, error) {
//	    return db.LoadUser(ctx, 42)
//	}, swrcache.EntryOptions{FreshFor: time.Minute, StaleFor: 10 * time.Minute, Tags: []string{"users"}})
package swrcache
