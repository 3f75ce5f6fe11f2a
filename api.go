package swrcache

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Fetcher produces the value for a key. The cache never interprets the result;
// it only stores and times it. Fetchers own their deadlines: the cache imposes none.
type Fetcher[V any] func(ctx context.Context) (V, error)

// Cache is the stale-while-revalidate store.
// V is the caller's value type.
type Cache[V any] interface {
	// Get returns the value for key. Fresh entries are served as-is, stale entries
	// are served and refreshed in the background, expired/absent entries block on fetch.
	// If ctx ends first Get returns ctx.Err(); the fetch keeps running for other callers.
	Get(ctx context.Context, key string, fetch Fetcher[V], opts EntryOptions) (V, error)
	// Lookup is Get with the outcome reported (hit, stale, fetched, fallback).
	Lookup(ctx context.Context, key string, fetch Fetcher[V], opts EntryOptions) (Result[V], error)

	// Set installs or replaces the entry for key without calling a fetcher.
	Set(key string, value V, opts EntryOptions) error
	// Peek returns the current entry without fetching and without touching eviction order.
	Peek(key string) (Entry[V], bool)
	Delete(key string) bool

	// InvalidateByTags removes every entry carrying at least one of tags.
	InvalidateByTags(tags ...string) int
	Clear()

	Len() int
	Stats() Stats

	Close(ctx context.Context) error
}

// EntryOptions control freshness and tagging of a single entry.
// Zero durations fall back to Options.DefaultFreshFor / Options.DefaultStaleFor.
// Both windows are measured from entry creation, not from the previous access.
type EntryOptions struct {
	FreshFor time.Duration
	StaleFor time.Duration // must be >= FreshFor
	Tags     []string
}

// EvictionPolicy selects which entry is dropped when the cache is over capacity.
type EvictionPolicy uint8

const (
	// EvictFIFO drops the oldest-inserted key regardless of access recency.
	EvictFIFO EvictionPolicy = iota
	// EvictLRU drops the least recently read or written key.
	EvictLRU
)

// Options tune the cache. Every field is optional.
type Options struct {
	Capacity        int           // 0 => 100
	DefaultFreshFor time.Duration // 0 => 5m
	DefaultStaleFor time.Duration // 0 => 10m
	Eviction        EvictionPolicy

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
	Clock  Clock  // nil => wall clock

	// RefreshLimiter, when set, gates background refreshes. A denied refresh is
	// skipped; the entry stays stale and the next stale read tries again.
	RefreshLimiter *rate.Limiter
}

func New[V any](opts Options) (Cache[V], error) {
	c, err := newCache[V](opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}
