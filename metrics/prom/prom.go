// Package prom exports cache events and Stats to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	hooks := prom.NewHooks(reg, prom.Options{Cache: "users"})
//	c, _ := swrcache.New[User](swrcache.Options{Hooks: hooks})
//	reg.MustRegister(prom.NewStatsCollector(c, prom.Options{Cache: "users"}))
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/swrcache"
)

type Options struct {
	Namespace string // default "swrcache"
	Cache     string // value of the "cache" const label; empty omits it
}

func (o Options) namespace() string {
	if o.Namespace == "" {
		return "swrcache"
	}
	return o.Namespace
}

func (o Options) labels() prometheus.Labels {
	if o.Cache == "" {
		return nil
	}
	return prometheus.Labels{"cache": o.Cache}
}

// Hooks counts cache events. Register with a nil Registerer to keep the
// counters unregistered.
type Hooks struct {
	events      *prometheus.CounterVec
	invalidated prometheus.Counter
}

var _ swrcache.Hooks = (*Hooks)(nil)

const (
	eventStaleFallback   = "stale_fallback"
	eventRefreshFailed   = "refresh_failed"
	eventRefreshSkipped  = "refresh_skipped"
	eventFetchSuperseded = "fetch_superseded"
	eventEvicted         = "evicted"
	eventInvalidated     = "invalidated"
)

func NewHooks(reg prometheus.Registerer, opts Options) *Hooks {
	f := promauto.With(reg)
	return &Hooks{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.namespace(),
			Name:        "events_total",
			Help:        "Cache events by kind; reason is set for skipped refreshes.",
			ConstLabels: opts.labels(),
		}, []string{"event", "reason"}),
		invalidated: f.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.namespace(),
			Name:        "invalidated_entries_total",
			Help:        "Entries removed by tag invalidation.",
			ConstLabels: opts.labels(),
		}),
	}
}

func (h *Hooks) inc(event, reason string) { h.events.WithLabelValues(event, reason).Inc() }

func (h *Hooks) StaleFallbackUsed(string, error) { h.inc(eventStaleFallback, "") }
func (h *Hooks) RefreshFailed(string, error)     { h.inc(eventRefreshFailed, "") }
func (h *Hooks) RefreshSkipped(_, reason string) { h.inc(eventRefreshSkipped, reason) }
func (h *Hooks) FetchSuperseded(string)          { h.inc(eventFetchSuperseded, "") }
func (h *Hooks) Evicted(string)                  { h.inc(eventEvicted, "") }

func (h *Hooks) Invalidated(_ []string, n int) {
	h.inc(eventInvalidated, "")
	h.invalidated.Add(float64(n))
}
