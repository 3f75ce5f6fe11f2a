package swrcache

import "context"

const (
	skipInFlight  = "in_flight"
	skipThrottled = "throttled"
)

// reserveRefreshLocked claims the refresh slot for key. It returns a skip
// reason when no refresh must be started; otherwise the caller owns the slot
// and must start refresh, which releases it. Callers have already rejected a
// closed cache under the same lock.
func (c *cache[V]) reserveRefreshLocked(key string) string {
	if _, busy := c.refreshing[key]; busy {
		return skipInFlight
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return skipThrottled
	}
	c.refreshing[key] = struct{}{}
	c.wg.Add(1)
	return ""
}

// refresh re-fetches a stale key in the background. It outlives the caller's
// context (values are kept, cancellation is not) but stops when the cache closes.
// Failures leave the stale entry in place and are only reported through the
// logger and hooks.
func (c *cache[V]) refresh(parent context.Context, key string, fetch Fetcher[V], ro resolved, obs observed) {
	defer c.wg.Done()

	ctx, stop := c.detach(parent)
	defer stop()

	c.stats.refreshes.Add(1)
	v, err := callFetch(ctx, fetch)
	if err != nil {
		c.mu.Lock()
		delete(c.refreshing, key)
		c.endFetchLocked(key)
		c.mu.Unlock()

		c.stats.refreshFailures.Add(1)
		c.log.Warn("background refresh failed", Fields{"key": key, "err": err})
		c.hooks.RefreshFailed(key, err)
		return
	}
	if c.commit(key, v, ro, obs, true) {
		c.log.Debug("background refresh installed", Fields{"key": key})
	}
}
