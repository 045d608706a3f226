// Package scheduler runs the fixed-interval publish loop.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Lpint02/iot-predictive-maintenance/internal/lifecycle"
	"github.com/Lpint02/iot-predictive-maintenance/internal/metrics"
	"github.com/Lpint02/iot-predictive-maintenance/internal/telemetry"
	"github.com/Lpint02/iot-predictive-maintenance/internal/topology"
)

// Publisher sends one payload to a topic without waiting for acknowledgement.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type Options struct {
	Interval           time.Duration
	NormalProbability  float64
	WarningProbability float64
}

// TickResult summarises one loop iteration.
type TickResult struct {
	Timestamp time.Time
	Published int
	Failed    int
	Elapsed   time.Duration
	Sleep     time.Duration
}

type Scheduler struct {
	opts      Options
	registry  *topology.Registry
	engine    *lifecycle.Engine
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(opts Options, registry *topology.Registry, engine *lifecycle.Engine, pub Publisher, m *metrics.Metrics, logger *slog.Logger) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, errors.New("scheduler: interval must be positive")
	}
	if registry == nil || pub == nil {
		return nil, errors.New("scheduler: registry and publisher are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	m.SetRegistryEntries(len(registry.Entries))
	return &Scheduler{
		opts:      opts,
		registry:  registry,
		engine:    engine,
		publisher: pub,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Run publishes one tick per interval until ctx is done. Cancellation is
// observed between ticks only, so a tick is never published partially.
// Run always returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("publish loop started",
		"entries", len(s.registry.Entries),
		"interval", s.opts.Interval,
		"lifecycleAsset", s.registry.DesignatedAsset,
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := s.Tick()
		s.logger.Debug("tick completed",
			"published", res.Published,
			"failed", res.Failed,
			"elapsed", res.Elapsed,
			"sleep", res.Sleep,
		)

		if res.Sleep == 0 {
			continue
		}
		timer := time.NewTimer(res.Sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tick advances the lifecycle engine once and publishes every registry
// entry with a shared timestamp. The returned Sleep is what remains of the
// interval, or zero on overrun.
func (s *Scheduler) Tick() TickResult {
	start := time.Now()
	res := TickResult{Timestamp: start.UTC()}

	if s.engine != nil {
		s.engine.Advance()
	}

	var firstErr error
	for _, e := range s.registry.Entries {
		value := e.Read(s.opts.NormalProbability, s.opts.WarningProbability)
		payload, err := telemetry.New(value, e.Unit, res.Timestamp, e.WarningThreshold, e.CriticalThreshold).Marshal()
		if err == nil {
			err = s.publisher.Publish(e.Topic, payload)
		}
		if err != nil {
			res.Failed++
			s.metrics.PublishFailed()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		res.Published++
		s.metrics.Published()
	}

	if res.Failed > 0 {
		s.logger.Warn("telemetry dropped",
			"failed", res.Failed,
			"published", res.Published,
			"error", firstErr,
		)
	}

	if s.engine != nil {
		s.metrics.ObserveLifecycle(s.engine.Snapshot())
	}

	res.Elapsed = time.Since(start)
	res.Sleep = max(0, s.opts.Interval-res.Elapsed)
	s.metrics.TickCompleted(res.Elapsed, res.Elapsed > s.opts.Interval)
	return res
}
