package swrcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; wrap slow sinks with hooks/async.
// The cache never calls them while holding its lock.
type Hooks interface {
	// A synchronous fetch failed and a previously cached (expired) value was served.
	StaleFallbackUsed(key string, err error)

	// A background refresh failed; the stale entry was left in place.
	RefreshFailed(key string, err error)

	// A background refresh was not started.
	// reason ∈ {"in_flight", "throttled"}
	RefreshSkipped(key, reason string)

	// A fetch completed but its result was not installed because the entry was
	// replaced, deleted or invalidated while the fetch was running.
	FetchSuperseded(key string)

	// An entry was dropped to stay within capacity.
	Evicted(key string)

	// InvalidateByTags removed n entries.
	Invalidated(tags []string, n int)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) StaleFallbackUsed(string, error) {}
func (NopHooks) RefreshFailed(string, error)     {}
func (NopHooks) RefreshSkipped(string, string)   {}
func (NopHooks) FetchSuperseded(string)          {}
func (NopHooks) Evicted(string)                  {}
func (NopHooks) Invalidated([]string, int)       {}
