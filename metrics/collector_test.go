package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/forkvm/forkvm/metrics"
)

func TestSessionCollector(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	collector := metrics.NewSessionCollector(registry)

	collector.ForkCreated()
	collector.ForkSelected()
	collector.ForkSelected()
	collector.CallExecuted(false, false, time.Millisecond)
	collector.CallExecuted(true, true, time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	require.True(t, names["forkvm_forks_created_total"])
	require.True(t, names["forkvm_forks_selected_total"])
	require.True(t, names["forkvm_calls_total"])
	require.True(t, names["forkvm_call_duration_seconds"])

	for _, family := range families {
		if family.GetName() == "forkvm_forks_selected_total" {
			require.Equal(t, float64(2), family.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

func TestNoopCollector(t *testing.T) {
	t.Parallel()

	collector := metrics.NewNoopCollector()
	collector.ForkCreated()
	collector.ForkSelected()
	collector.CallExecuted(true, false, 0)
}
