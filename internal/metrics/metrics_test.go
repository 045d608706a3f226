package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Lpint02/iot-predictive-maintenance/internal/lifecycle"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetRegistryEntries(36)
	m.Published()
	m.Published()
	m.PublishFailed()
	m.TickCompleted(300*time.Millisecond, false)
	m.TickCompleted(1200*time.Millisecond, true)
	m.ObserveLifecycle(lifecycle.Snapshot{Cycle: 100, TotalLife: 1000, FaultProgression: 0.25, Resets: 2})

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"registry entries", m.registryEntries, 36},
		{"published", m.published, 2},
		{"failures", m.publishFailures, 1},
		{"ticks", m.ticks, 2},
		{"overruns", m.overruns, 1},
		{"lifecycle tick", m.lifecycleCycle, 100},
		{"total life", m.lifecycleTotalLife, 1000},
		{"remaining", m.lifecycleRemaining, 900},
		{"progression", m.lifecycleProgress, 0.25},
		{"resets", m.lifecycleResets, 2},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}

	if n := testutil.CollectAndCount(m.tickDuration); n != 1 {
		t.Errorf("tick duration series = %d, want 1", n)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) != 11 {
		t.Errorf("registered families = %d, want 11", len(families))
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.SetRegistryEntries(1)
	m.Published()
	m.PublishFailed()
	m.TickCompleted(time.Second, true)
	m.ObserveLifecycle(lifecycle.Snapshot{})
}
