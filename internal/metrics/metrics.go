// Package metrics exposes pipeline statistics to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lanikai/alohaplay/internal/extract"
	"github.com/lanikai/alohaplay/internal/ingest"
	"github.com/lanikai/alohaplay/internal/ring"
)

const namespace = "alohaplay"

// Collector reads counters straight from the pipeline stats at scrape time,
// so the hot path never touches prometheus.
type Collector struct {
	collectors []prometheus.Collector
}

func NewCollector(ing *ingest.Stats, ext *extract.Stats, pool *ring.Pool, constLabels prometheus.Labels) *Collector {
	counter := func(subsystem, name, help string, fn func() uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, func() float64 { return float64(fn()) })
	}
	dropped := func(reason string, fn func() uint64) prometheus.Collector {
		labels := prometheus.Labels{"reason": reason}
		for k, v := range constLabels {
			labels[k] = v
		}
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "frames_dropped_total",
			Help:        "Frames found in the stream but not delivered.",
			ConstLabels: labels,
		}, func() float64 { return float64(fn()) })
	}

	return &Collector{collectors: []prometheus.Collector{
		counter("ingest", "bytes_total", "Bytes read from the source.", ing.Bytes),
		counter("ingest", "slots_total", "Slots filled and committed.", ing.Slots),
		counter("extract", "slots_total", "Slots scanned and released.", ext.Slots),
		counter("", "frames_delivered_total", "Frames decoded and delivered.", ext.Delivered),
		dropped("truncated", ext.Truncated),
		dropped("oversize", ext.Oversize),
		dropped("decode", ext.DecodeErrors),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "pool",
			Name:        "filled_slots",
			Help:        "Committed slots not yet released by the extractor.",
			ConstLabels: constLabels,
		}, func() float64 { return float64(pool.Len()) }),
	}}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.collectors {
		m.Describe(ch)
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.collectors {
		m.Collect(ch)
	}
}
