package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/swrcache"
)

// StatsSource is satisfied by every swrcache.Cache.
type StatsSource interface {
	Stats() swrcache.Stats
}

type counterDesc struct {
	desc *prometheus.Desc
	val  func(swrcache.Stats) uint64
}

// StatsCollector reads Stats once per scrape.
type StatsCollector struct {
	src      StatsSource
	entries  *prometheus.Desc
	counters []counterDesc
}

var _ prometheus.Collector = (*StatsCollector)(nil)

func NewStatsCollector(src StatsSource, opts Options) *StatsCollector {
	ns := opts.namespace()
	cl := opts.labels()
	counter := func(name, help string, val func(swrcache.Stats) uint64) counterDesc {
		return counterDesc{
			desc: prometheus.NewDesc(prometheus.BuildFQName(ns, "", name), help, nil, cl),
			val:  val,
		}
	}
	return &StatsCollector{
		src: src,
		entries: prometheus.NewDesc(prometheus.BuildFQName(ns, "", "entries"),
			"Entries held, by freshness state.", []string{"state"}, cl),
		counters: []counterDesc{
			counter("hits_total", "Lookups served from a fresh entry.", func(s swrcache.Stats) uint64 { return s.Hits }),
			counter("stale_hits_total", "Lookups served from a stale entry.", func(s swrcache.Stats) uint64 { return s.StaleHits }),
			counter("misses_total", "Lookups that found no servable entry.", func(s swrcache.Stats) uint64 { return s.Misses }),
			counter("fetches_total", "Synchronous fetcher calls.", func(s swrcache.Stats) uint64 { return s.Fetches }),
			counter("fetch_errors_total", "Synchronous fetcher calls that failed.", func(s swrcache.Stats) uint64 { return s.FetchErrors }),
			counter("fallbacks_total", "Failed fetches answered with a previous value.", func(s swrcache.Stats) uint64 { return s.Fallbacks }),
			counter("refreshes_total", "Background refreshes started.", func(s swrcache.Stats) uint64 { return s.Refreshes }),
			counter("refresh_failures_total", "Background refreshes that failed.", func(s swrcache.Stats) uint64 { return s.RefreshFailures }),
			counter("evictions_total", "Entries evicted to stay within capacity.", func(s swrcache.Stats) uint64 { return s.Evictions }),
		},
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	for _, cd := range c.counters {
		ch <- cd.desc
	}
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Fresh), swrcache.StateFresh.String())
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Stale), swrcache.StateStale.String())
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Expired), swrcache.StateExpired.String())
	for _, cd := range c.counters {
		ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(cd.val(s)))
	}
}
