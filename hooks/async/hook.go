// Package asynchook moves hook delivery off the cache's call path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    RefreshSkippedEvery: 10, // sample ~every 10th skipped refresh
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := swrcache.New[User](swrcache.Options{Hooks: hooks})
//
// Events are dropped when the queue is full; Dropped reports how many.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/swrcache"
)

type Hooks struct {
	inner   swrcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends on a closed q
	closed  bool
	dropped atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(inner swrcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) StaleFallbackUsed(k string, err error) {
	h.try(func() { h.inner.StaleFallbackUsed(k, err) })
}
func (h *Hooks) RefreshFailed(k string, err error) { h.try(func() { h.inner.RefreshFailed(k, err) }) }
func (h *Hooks) RefreshSkipped(k, r string)        { h.try(func() { h.inner.RefreshSkipped(k, r) }) }
func (h *Hooks) FetchSuperseded(k string)          { h.try(func() { h.inner.FetchSuperseded(k) }) }
func (h *Hooks) Evicted(k string)                  { h.try(func() { h.inner.Evicted(k) }) }
func (h *Hooks) Invalidated(tags []string, n int) {
	tags = append([]string(nil), tags...)
	h.try(func() { h.inner.Invalidated(tags, n) })
}
