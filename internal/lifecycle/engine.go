// Package lifecycle simulates the run-to-failure degradation of one motor.
//
// Unlike the independent per-tick draws of package sensor, the three signals
// produced here share a single fault progression curve, so a consumer that
// estimates remaining useful life can be checked against ground truth.
package lifecycle

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/Lpint02/iot-predictive-maintenance/internal/sensor"
)

const (
	minTotalLife = 800
	maxTotalLife = 2000 // exclusive

	minExponent = 4.0
	maxExponent = 6.0

	// Vibration severity is simulated as a velocity-like magnitude and
	// reported as acceleration in g at the 50 Hz supply frequency.
	vibrationFrequencyHz = 50.0
	standardGravityMMS2  = 9806.65
)

// Range is a closed-open interval [Min, Max) for uniform draws.
type Range struct {
	Min float64
	Max float64
}

func (r Range) draw(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Profile describes how a single signal degrades over a lifecycle.
type Profile struct {
	Base        Range
	Failure     Range
	NoiseStdDev float64
}

// Profiles maps each sensor kind to its degradation profile.
type Profiles map[sensor.Kind]Profile

// DefaultProfiles returns the degradation profiles of a class F, 400 V, 55 kW
// induction motor.
func DefaultProfiles() Profiles {
	return Profiles{
		sensor.Vibration: {
			Base:        Range{Min: 0.5, Max: 1.5},
			Failure:     Range{Min: 8.0, Max: 10.0},
			NoiseStdDev: 0.15,
		},
		sensor.Temperature: {
			Base:        Range{Min: 85.0, Max: 95.0},
			Failure:     Range{Min: 152.0, Max: 160.0},
			NoiseStdDev: 1.0,
		},
		sensor.Current: {
			Base:        Range{Min: 88.0, Max: 92.0},
			Failure:     Range{Min: 112.0, Max: 120.0},
			NoiseStdDev: 0.8,
		},
	}
}

// Signal is the base and failure value drawn for one kind in the active
// lifecycle.
type Signal struct {
	Base    float64
	Failure float64
}

// Snapshot is a read-only view of the engine after the latest Advance.
type Snapshot struct {
	AssetID          string
	Cycle            int // cycle the cached values were computed for
	TotalLife        int
	Exponent         float64
	FaultProgression float64
	Signals          map[sensor.Kind]Signal
	Values           map[sensor.Kind]float64
	Resets           int
}

// RemainingCycles is the ground-truth remaining useful life of the cycle in s.
func (s Snapshot) RemainingCycles() int {
	return s.TotalLife - s.Cycle
}

// Engine holds the state of the active lifecycle. It is driven by a single
// goroutine: Advance mutates, Value and Snapshot only read.
type Engine struct {
	assetID  string
	profiles Profiles
	rng      *rand.Rand
	logger   *slog.Logger

	totalLife   int
	tick        int
	exponent    float64
	signals     map[sensor.Kind]Signal
	values      map[sensor.Kind]float64
	progression float64
	cycle       int
	resets      int
}

// New starts a fresh lifecycle for assetID. No values are cached until the
// first Advance.
func New(assetID string, profiles Profiles, rng *rand.Rand, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		assetID:  assetID,
		profiles: profiles,
		rng:      rng,
		logger:   logger.With("asset", assetID),
		values:   make(map[sensor.Kind]float64, len(sensor.Kinds)),
	}
	e.reset()
	e.resets = 0
	return e
}

// AssetID returns the full topology path of the asset this engine drives.
func (e *Engine) AssetID() string {
	return e.assetID
}

// Tick returns the number of cycles consumed in the active lifecycle.
func (e *Engine) Tick() int {
	return e.tick
}

// TotalLife returns the length of the active lifecycle in cycles.
func (e *Engine) TotalLife() int {
	return e.totalLife
}

func (e *Engine) reset() {
	e.totalLife = minTotalLife + e.rng.IntN(maxTotalLife-minTotalLife)
	e.exponent = Range{Min: minExponent, Max: maxExponent}.draw(e.rng)
	e.signals = make(map[sensor.Kind]Signal, len(sensor.Kinds))
	for _, kind := range sensor.Kinds {
		p, ok := e.profiles[kind]
		if !ok {
			continue
		}
		e.signals[kind] = Signal{
			Base:    p.Base.draw(e.rng),
			Failure: p.Failure.draw(e.rng),
		}
	}
	e.tick = 0
	e.resets++

	e.logger.Info("lifecycle started",
		"total_life", e.totalLife,
		"exponent", math.Round(e.exponent*100)/100,
	)
}

// Advance simulates one cycle, starting a new lifecycle first when the
// active one is exhausted.
func (e *Engine) Advance() {
	if e.tick >= e.totalLife {
		e.reset()
	}

	e.progression = math.Pow(float64(e.tick)/float64(e.totalLife), e.exponent)
	for _, kind := range sensor.Kinds {
		sig, ok := e.signals[kind]
		if !ok {
			continue
		}
		noise := e.rng.NormFloat64() * e.profiles[kind].NoiseStdDev
		v := sig.Base + (sig.Failure-sig.Base)*e.progression + noise
		if kind == sensor.Vibration {
			v = toG(math.Max(v, 0))
		}
		e.values[kind] = round2(v)
	}

	e.cycle = e.tick
	e.tick++
}

// Value returns the reading cached by the latest Advance, or 0 for a kind
// the engine does not simulate.
func (e *Engine) Value(kind sensor.Kind) float64 {
	return e.values[kind]
}

// Snapshot copies the current lifecycle state.
func (e *Engine) Snapshot() Snapshot {
	signals := make(map[sensor.Kind]Signal, len(e.signals))
	for k, v := range e.signals {
		signals[k] = v
	}
	values := make(map[sensor.Kind]float64, len(e.values))
	for k, v := range e.values {
		values[k] = v
	}
	return Snapshot{
		AssetID:          e.assetID,
		Cycle:            e.cycle,
		TotalLife:        e.totalLife,
		Exponent:         e.exponent,
		FaultProgression: e.progression,
		Signals:          signals,
		Values:           values,
		Resets:           e.resets,
	}
}

func toG(v float64) float64 {
	omega := 2 * math.Pi * vibrationFrequencyHz
	return v * omega / standardGravityMMS2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
