package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// engineMetrics instruments the rebuild cycle. With a nil registerer the
// collectors still exist but are never exported, which keeps the hot
// path free of nil checks.
type engineMetrics struct {
	rebuilds        prometheus.Counter
	rebuildDuration prometheus.Histogram
	generation      prometheus.Gauge
	definitions     prometheus.Gauge
	occurrences     prometheus.Gauge
}

func newEngineMetrics(reg prometheus.Registerer) *engineMetrics {
	m := &engineMetrics{
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "rebuilds_total",
			Help:      "Completed part rebuilds.",
		}),
		rebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tally",
			Name:      "rebuild_duration_seconds",
			Help:      "Wall time of one full rebuild.",
			Buckets:   prometheus.DefBuckets,
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tally",
			Name:      "generation",
			Help:      "Current snapshot generation.",
		}),
		definitions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tally",
			Name:      "part_definitions",
			Help:      "Distinct part definitions in the current generation.",
		}),
		occurrences: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tally",
			Name:      "part_occurrences",
			Help:      "Part occurrences in the current generation.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.rebuilds, m.rebuildDuration, m.generation, m.definitions, m.occurrences)
	}
	return m
}

func (m *engineMetrics) observeRebuild(d time.Duration, generation uint64, definitions, occurrences int) {
	m.rebuilds.Inc()
	m.rebuildDuration.Observe(d.Seconds())
	m.generation.Set(float64(generation))
	m.definitions.Set(float64(definitions))
	m.occurrences.Set(float64(occurrences))
}
