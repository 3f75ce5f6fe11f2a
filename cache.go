package swrcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/unkn0wn-root/swrcache/internal/eviction"
)

type cache[V any] struct {
	log     Logger
	hooks   Hooks
	clock   Clock
	limiter *rate.Limiter

	capacity int
	freshFor time.Duration
	staleFor time.Duration

	// everything below mu is guarded by it
	mu         sync.Mutex
	entries    map[string]*entry[V]
	tags       tagIndex
	policy     eviction.Policy
	refreshing map[string]struct{}
	closed     bool

	// supersede bookkeeping; removedAt and tagsInvalidatedAt are only written
	// while a fetch that could be affected is pending, and pruned once it settles
	seq               uint64 // bumped on every install, explicit removal and Clear
	clearedAt         uint64
	pending           map[string]int // fetches in flight per key
	inflight          int
	removedAt         map[string]uint64
	tagsInvalidatedAt map[string]uint64

	sf    singleflight.Group
	stats counters

	// background refreshes
	baseCtx   context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// resolved is EntryOptions after defaults and validation.
type resolved struct {
	freshFor time.Duration
	staleFor time.Duration
	tags     []string
}

// observed pins the state a fetch started from. The result is installed only
// if nothing touched the key or the result's tags in the meantime.
type observed struct {
	gen uint64 // 0 = key absent
	seq uint64
}

func newCache[V any](opts Options) (*cache[V], error) {
	if opts.Capacity < 0 {
		return nil, invalidArg("capacity %d", opts.Capacity)
	}
	if opts.DefaultFreshFor < 0 || opts.DefaultStaleFor < 0 {
		return nil, invalidArg("negative default freshness window")
	}

	c := &cache[V]{
		entries:           make(map[string]*entry[V]),
		tags:              make(tagIndex),
		refreshing:        make(map[string]struct{}),
		pending:           make(map[string]int),
		removedAt:         make(map[string]uint64),
		tagsInvalidatedAt: make(map[string]uint64),
		limiter:           opts.RefreshLimiter,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.clock = coalesce[Clock](opts.Clock, systemClock{})
	c.capacity = coalesce(opts.Capacity, defaultCapacity)
	c.freshFor = coalesce(opts.DefaultFreshFor, defaultFreshFor)
	c.staleFor = coalesce(opts.DefaultStaleFor, defaultStaleFor)
	if c.staleFor < c.freshFor {
		return nil, invalidArg("default stale window %s shorter than fresh window %s", c.staleFor, c.freshFor)
	}

	switch opts.Eviction {
	case EvictFIFO:
		c.policy = eviction.NewFIFO()
	case EvictLRU:
		c.policy = eviction.NewLRU()
	default:
		return nil, invalidArg("unknown eviction policy %d", opts.Eviction)
	}

	c.baseCtx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

func (c *cache[V]) resolve(opts EntryOptions) (resolved, error) {
	if opts.FreshFor < 0 || opts.StaleFor < 0 {
		return resolved{}, invalidArg("negative freshness window")
	}
	r := resolved{
		freshFor: coalesce(opts.FreshFor, c.freshFor),
		staleFor: coalesce(opts.StaleFor, c.staleFor),
		tags:     normalizeTags(opts.Tags),
	}
	if r.staleFor < r.freshFor {
		return resolved{}, invalidArg("stale window %s shorter than fresh window %s", r.staleFor, r.freshFor)
	}
	return r, nil
}

func (c *cache[V]) Get(ctx context.Context, key string, fetch Fetcher[V], opts EntryOptions) (V, error) {
	res, err := c.Lookup(ctx, key, fetch, opts)
	if err != nil {
		var zero V
		return zero, err
	}
	return res.Value, nil
}

func (c *cache[V]) Lookup(ctx context.Context, key string, fetch Fetcher[V], opts EntryOptions) (Result[V], error) {
	if key == "" {
		return Result[V]{}, invalidArg("empty key")
	}
	if fetch == nil {
		return Result[V]{}, invalidArg("nil fetcher for %q", key)
	}
	ro, err := c.resolve(opts)
	if err != nil {
		return Result[V]{}, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result[V]{}, ErrClosed
	}
	if e, ok := c.entries[key]; ok {
		switch e.State(c.clock.Now()) {
		case StateFresh:
			c.policy.Touched(key)
			v := e.Value
			c.mu.Unlock()
			c.stats.hits.Add(1)
			return Result[V]{Value: v, Outcome: OutcomeHit}, nil
		case StateStale:
			c.policy.Touched(key)
			v := e.Value
			skip := c.reserveRefreshLocked(key)
			var obs observed
			if skip == "" {
				obs = c.beginFetchLocked(key)
			}
			c.mu.Unlock()
			c.stats.staleHits.Add(1)
			if skip != "" {
				c.hooks.RefreshSkipped(key, skip)
			} else {
				go c.refresh(ctx, key, fetch, ro, obs)
			}
			return Result[V]{Value: v, Outcome: OutcomeStale}, nil
		}
	}
	c.mu.Unlock()

	c.stats.misses.Add(1)
	return c.fetchExpired(ctx, key, fetch, ro)
}

// fetchExpired runs the blocking fetch. Concurrent callers for the same key
// share one fetcher invocation and its result. The fetch runs detached from
// any single caller: a caller whose ctx ends stops waiting with ctx.Err(),
// the others still get the value.
func (c *cache[V]) fetchExpired(ctx context.Context, key string, fetch Fetcher[V], ro resolved) (Result[V], error) {
	ch := c.sf.DoChan(key, func() (any, error) {
		c.mu.Lock()
		// another flight may have just filled the key
		if e, ok := c.entries[key]; ok && e.State(c.clock.Now()) == StateFresh {
			v := e.Value
			c.mu.Unlock()
			return Result[V]{Value: v, Outcome: OutcomeHit}, nil
		}
		obs := c.beginFetchLocked(key)
		c.mu.Unlock()

		fctx, stop := c.detach(ctx)
		defer stop()

		c.stats.fetches.Add(1)
		v, err := callFetch(fctx, fetch)
		if err != nil {
			c.mu.Lock()
			c.endFetchLocked(key)
			c.mu.Unlock()
			c.stats.fetchErrors.Add(1)
			return c.fallback(key, err)
		}
		c.commit(key, v, ro, obs, false)
		return Result[V]{Value: v, Outcome: OutcomeFetched}, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return Result[V]{}, r.Err
		}
		return r.Val.(Result[V]), nil
	case <-ctx.Done():
		return Result[V]{}, ctx.Err()
	}
}

// detach derives a fetch context that keeps parent's values but not its
// cancellation. It is cancelled by Close.
func (c *cache[V]) detach(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(c.baseCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// fallback serves whatever is still held for key after a failed fetch.
func (c *cache[V]) fallback(key string, fetchErr error) (Result[V], error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	var v V
	if ok {
		v = e.Value
	}
	c.mu.Unlock()

	if !ok {
		return Result[V]{}, &FetchError{Key: key, Err: fetchErr}
	}
	c.stats.fallbacks.Add(1)
	c.log.Info("fetch failed, serving previous value", Fields{"key": key, "err": fetchErr})
	c.hooks.StaleFallbackUsed(key, fetchErr)
	return Result[V]{Value: v, Outcome: OutcomeFallback, FetchErr: fetchErr}, nil
}

// commit installs a fetched value unless the key moved on since obs was taken.
// fromRefresh also releases the key's refresh slot in the same critical section.
func (c *cache[V]) commit(key string, v V, ro resolved, obs observed, fromRefresh bool) bool {
	c.mu.Lock()
	if fromRefresh {
		delete(c.refreshing, key)
	}
	superseded := c.supersededLocked(key, ro, obs)
	c.endFetchLocked(key)
	if c.closed || superseded {
		c.mu.Unlock()
		c.log.Debug("fetch result superseded, not installed", Fields{"key": key})
		c.hooks.FetchSuperseded(key)
		return false
	}
	evicted := c.putLocked(key, v, ro)
	c.mu.Unlock()
	c.evicted(evicted)
	return true
}

func (c *cache[V]) Set(key string, value V, opts EntryOptions) error {
	if key == "" {
		return invalidArg("empty key")
	}
	ro, err := c.resolve(opts)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	evicted := c.putLocked(key, value, ro)
	c.mu.Unlock()
	c.evicted(evicted)
	return nil
}

// putLocked replaces the entry for key and its tag registrations, then evicts
// until the cache is within capacity. Returns the evicted keys.
func (c *cache[V]) putLocked(key string, v V, ro resolved) []string {
	c.seq++
	ne := &entry[V]{
		Entry: Entry[V]{
			Key:       key,
			Value:     v,
			CreatedAt: c.clock.Now(),
			FreshFor:  ro.freshFor,
			StaleFor:  ro.staleFor,
			Tags:      ro.tags,
		},
		gen: c.seq,
	}
	if old, ok := c.entries[key]; ok {
		c.tags.remove(key, old.Tags)
		c.policy.Touched(key)
	} else {
		c.policy.Added(key)
	}
	c.entries[key] = ne
	c.tags.add(key, ne.Tags)

	var evicted []string
	for len(c.entries) > c.capacity {
		victim, ok := c.policy.Victim()
		if !ok {
			break
		}
		c.removeLocked(victim)
		evicted = append(evicted, victim)
	}
	return evicted
}

func (c *cache[V]) removeLocked(key string) bool {
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	c.tags.remove(key, e.Tags)
	c.policy.Remove(key)
	return true
}

// forgetLocked removes key on behalf of Delete or InvalidateByTags and
// remembers the removal for any fetch of key still in flight.
func (c *cache[V]) forgetLocked(key string) bool {
	if !c.removeLocked(key) {
		return false
	}
	c.seq++
	if c.pending[key] > 0 {
		c.removedAt[key] = c.seq
	}
	return true
}

func (c *cache[V]) beginFetchLocked(key string) observed {
	c.pending[key]++
	c.inflight++
	obs := observed{seq: c.seq}
	if e, ok := c.entries[key]; ok {
		obs.gen = e.gen
	}
	return obs
}

func (c *cache[V]) endFetchLocked(key string) {
	if n := c.pending[key] - 1; n > 0 {
		c.pending[key] = n
	} else {
		delete(c.pending, key)
		delete(c.removedAt, key)
	}
	c.inflight--
	if c.inflight == 0 {
		clear(c.tagsInvalidatedAt)
	}
}

// supersededLocked reports whether a result fetched from obs must be dropped:
// the key was replaced, deleted or invalidated, one of the result's tags was
// invalidated, or the cache was cleared. Eviction does not supersede.
func (c *cache[V]) supersededLocked(key string, ro resolved, obs observed) bool {
	if c.clearedAt > obs.seq {
		return true
	}
	if e, ok := c.entries[key]; ok {
		if e.gen != obs.gen {
			return true
		}
	} else if c.removedAt[key] > obs.seq {
		return true
	}
	for _, t := range ro.tags {
		if c.tagsInvalidatedAt[t] > obs.seq {
			return true
		}
	}
	return false
}

func (c *cache[V]) evicted(keys []string) {
	for _, k := range keys {
		c.stats.evictions.Add(1)
		c.log.Debug("evicted entry", Fields{"key": k})
		c.hooks.Evicted(k)
	}
}

func (c *cache[V]) Peek(key string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	return e.snapshot(), true
}

func (c *cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forgetLocked(key)
}

func (c *cache[V]) InvalidateByTags(tags ...string) int {
	tags = normalizeTags(tags)
	if len(tags) == 0 {
		return 0
	}
	c.mu.Lock()
	keys := c.tags.keys(tags)
	for _, k := range keys {
		c.forgetLocked(k)
	}
	// pending fetches carrying these tags may hold pre-invalidation data
	if c.inflight > 0 {
		c.seq++
		for _, t := range tags {
			c.tagsInvalidatedAt[t] = c.seq
		}
	}
	c.mu.Unlock()

	c.log.Debug("invalidated by tags", Fields{"tags": tags, "removed": len(keys)})
	c.hooks.Invalidated(tags, len(keys))
	return len(keys)
}

func (c *cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry[V])
	c.tags = make(tagIndex)
	c.policy.Reset()
	c.seq++
	c.clearedAt = c.seq
	c.mu.Unlock()
}

func (c *cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cache[V]) Stats() Stats {
	var s Stats
	c.mu.Lock()
	now := c.clock.Now()
	s.Total = len(c.entries)
	for _, e := range c.entries {
		switch e.State(now) {
		case StateFresh:
			s.Fresh++
		case StateStale:
			s.Stale++
		default:
			s.Expired++
		}
	}
	c.mu.Unlock()
	c.stats.fill(&s)
	return s
}

// Close stops new refreshes, cancels running fetches and waits for background
// refreshes until ctx is done.
func (c *cache[V]) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.cancel()
	})

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// callFetch runs fetch and turns a panic into ErrFetchPanicked.
func callFetch[V any](ctx context.Context, fetch Fetcher[V]) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFetchPanicked, r)
		}
	}()
	return fetch(ctx)
}
