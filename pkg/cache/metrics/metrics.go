// Package metrics exposes cache statistics as Prometheus metrics.
package metrics

import (
	"github.com/opst/wlconf/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "wlconf"
	subsystem = "cache"
)

// StatsSource is what Collector reads. *cache.Store satisfies this.
type StatsSource interface {
	Stats() cache.Stats
}

// Collector reads stats of a cache on each scrape.
type Collector struct {
	source StatsSource

	size          *prometheus.Desc
	maxSize       *prometheus.Desc
	hits          *prometheus.Desc
	misses        *prometheus.Desc
	evictions     *prometheus.Desc
	invalidations *prometheus.Desc
	tags          *prometheus.Desc
}

var _ prometheus.Collector = &Collector{}

func desc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, nil)
}

func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source:        source,
		size:          desc("entries", "number of entries in the cache"),
		maxSize:       desc("max_entries", "size limit of the cache enforced by sweep"),
		hits:          desc("hits_total", "number of cache hits"),
		misses:        desc("misses_total", "number of cache misses"),
		evictions:     desc("evictions_total", "number of entries removed for expiry or size"),
		invalidations: desc("invalidations_total", "number of entries removed by invalidation"),
		tags:          desc("tags", "number of distinct tags in the cache"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.size
	ch <- c.maxSize
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.invalidations
	ch <- c.tags
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(c.maxSize, prometheus.GaugeValue, float64(s.MaxSize))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(c.invalidations, prometheus.CounterValue, float64(s.Invalidations))
	ch <- prometheus.MustNewConstMetric(c.tags, prometheus.GaugeValue, float64(s.DistinctTags))
}
