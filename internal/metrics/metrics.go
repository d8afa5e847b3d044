// Package metrics exposes Prometheus collectors for the vitality engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Cycles        *prometheus.CounterVec
	Reflections   prometheus.Counter
	Advancements  *prometheus.CounterVec
	Modifications *prometheus.CounterVec
	SaveFailures  prometheus.Counter
	CycleDuration prometheus.Histogram
	CachedAgents  prometheus.GaugeFunc
}

// New registers every collector. cached reports the current cache size.
func New(cached func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitality",
			Name:      "cycles_total",
			Help:      "Completed vitality cycles by experience type.",
		}, []string{"experience_type"}),
		Reflections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vitality",
			Name:      "reflections_total",
			Help:      "Reflections recorded by cycles.",
		}),
		Advancements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitality",
			Name:      "stage_advancements_total",
			Help:      "Cultivation stage advancements by destination stage.",
		}, []string{"stage"}),
		Modifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitality",
			Name:      "modifications_total",
			Help:      "Self-modification requests by outcome.",
		}, []string{"outcome"}),
		SaveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vitality",
			Name:      "save_failures_total",
			Help:      "State saves that failed.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vitality",
			Name:      "cycle_duration_seconds",
			Help:      "Time to load, run and persist one turn.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	if cached == nil {
		cached = func() int { return 0 }
	}
	m.CachedAgents = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "vitality",
		Name:      "cached_agents",
		Help:      "Agents currently held in the state cache.",
	}, func() float64 { return float64(cached()) })

	reg.MustRegister(
		m.Cycles, m.Reflections, m.Advancements, m.Modifications,
		m.SaveFailures, m.CycleDuration, m.CachedAgents,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
