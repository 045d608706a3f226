// Package metrics exposes publish-loop and lifecycle ground-truth metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Lpint02/iot-predictive-maintenance/internal/lifecycle"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	published       prometheus.Counter
	publishFailures prometheus.Counter
	ticks           prometheus.Counter
	overruns        prometheus.Counter
	tickDuration    prometheus.Histogram
	registryEntries prometheus.Gauge

	lifecycleCycle     prometheus.Gauge
	lifecycleTotalLife prometheus.Gauge
	lifecycleRemaining prometheus.Gauge
	lifecycleProgress  prometheus.Gauge
	lifecycleResets    prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motorsim_messages_published_total",
			Help: "Telemetry messages handed to the MQTT client.",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motorsim_publish_failures_total",
			Help: "Telemetry messages dropped because the publish call failed.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motorsim_ticks_total",
			Help: "Completed publish loop iterations.",
		}),
		overruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motorsim_tick_overruns_total",
			Help: "Ticks whose processing exceeded the publish interval.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "motorsim_tick_duration_seconds",
			Help:    "Time spent generating and publishing one tick.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		registryEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motorsim_registry_entries",
			Help: "Topics published every tick.",
		}),
		lifecycleCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motorsim_lifecycle_tick",
			Help: "Cycle of the designated asset's current lifecycle.",
		}),
		lifecycleTotalLife: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motorsim_lifecycle_total_life",
			Help: "Length in cycles of the designated asset's current lifecycle.",
		}),
		lifecycleRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motorsim_lifecycle_remaining_cycles",
			Help: "Ground-truth remaining useful life of the designated asset.",
		}),
		lifecycleProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motorsim_lifecycle_fault_progression",
			Help: "Fault progression (0..1) of the designated asset.",
		}),
		lifecycleResets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motorsim_lifecycle_resets",
			Help: "Lifecycles completed by the designated asset since startup.",
		}),
	}

	reg.MustRegister(
		m.published,
		m.publishFailures,
		m.ticks,
		m.overruns,
		m.tickDuration,
		m.registryEntries,
		m.lifecycleCycle,
		m.lifecycleTotalLife,
		m.lifecycleRemaining,
		m.lifecycleProgress,
		m.lifecycleResets,
	)
	return m
}

func (m *Metrics) SetRegistryEntries(n int) {
	if m == nil {
		return
	}
	m.registryEntries.Set(float64(n))
}

func (m *Metrics) Published() {
	if m == nil {
		return
	}
	m.published.Inc()
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

// TickCompleted records one loop iteration and whether it overran the
// interval.
func (m *Metrics) TickCompleted(elapsed time.Duration, overrun bool) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(elapsed.Seconds())
	if overrun {
		m.overruns.Inc()
	}
}

func (m *Metrics) ObserveLifecycle(s lifecycle.Snapshot) {
	if m == nil {
		return
	}
	m.lifecycleCycle.Set(float64(s.Cycle))
	m.lifecycleTotalLife.Set(float64(s.TotalLife))
	m.lifecycleRemaining.Set(float64(s.RemainingCycles()))
	m.lifecycleProgress.Set(s.FaultProgression)
	m.lifecycleResets.Set(float64(s.Resets))
}
