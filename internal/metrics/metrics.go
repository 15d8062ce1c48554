// Package metrics registers the engine's Prometheus collectors: task
// duration/outcome, cache hit/miss, and active-instance gauge. No teacher
// analogue exists (sarlalian-ritual has no metrics layer); the shape follows
// jordigilh-kubernaut's client_golang usage — collectors constructed and
// registered explicitly, not via init().
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every collector the scheduler, dispatcher, and cache
// coordinator report to.
type Registry struct {
	TaskDuration    *prometheus.HistogramVec
	TaskOutcomes    *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	ActiveInstances prometheus.Gauge
	RetriesTotal    *prometheus.CounterVec
}

// New constructs and registers every collector against reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wovenflow",
			Name:      "task_duration_seconds",
			Help:      "Task invocation latency by task kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		TaskOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wovenflow",
			Name:      "task_outcomes_total",
			Help:      "Task invocations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wovenflow",
			Name:      "cache_hits_total",
			Help:      "Cache Store hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wovenflow",
			Name:      "cache_misses_total",
			Help:      "Cache Store misses.",
		}),
		ActiveInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wovenflow",
			Name:      "active_instances",
			Help:      "Workflow instances currently running.",
		}),
		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wovenflow",
			Name:      "retries_total",
			Help:      "Task retry attempts by task kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.TaskDuration, m.TaskOutcomes, m.CacheHits, m.CacheMisses, m.ActiveInstances, m.RetriesTotal)
	return m
}

// Noop returns a Registry wired to a fresh, unregistered registry, for tests
// that only want to assert collector calls don't panic.
func Noop() *Registry {
	return New(prometheus.NewRegistry())
}
