package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersEveryCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"wovenflow_task_duration_seconds",
		"wovenflow_task_outcomes_total",
		"wovenflow_cache_hits_total",
		"wovenflow_cache_misses_total",
		"wovenflow_active_instances",
		"wovenflow_retries_total",
	} {
		assert.True(t, names[want], "expected collector %s to be registered", want)
	}
}

func TestRegistry_CountersIncrement(t *testing.T) {
	m := Noop()

	m.CacheHits.Inc()
	m.CacheHits.Inc()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheHits))

	m.TaskOutcomes.WithLabelValues("call", "completed").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TaskOutcomes.WithLabelValues("call", "completed")))
}

func TestNoop_DoesNotPanicOnDoubleConstruction(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = Noop()
		_ = Noop()
	})
}
