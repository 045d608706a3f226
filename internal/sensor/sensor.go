// Package sensor generates readings for a single simulated motor sensor.
//
// Every sensor runs the same three-state model (normal, warning, critical).
// Temperature and current sensors report the drawn target directly; vibration
// sensors treat the target as an RMS acceleration and synthesize a noisy
// waveform to measure it.
package sensor

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// Kind identifies the physical quantity a sensor measures.
type Kind string

const (
	Vibration   Kind = "vibration"
	Temperature Kind = "temperature"
	Current     Kind = "current"
)

// Kinds lists every supported kind in canonical order.
var Kinds = []Kind{Vibration, Temperature, Current}

// ErrUnknownKind is returned for sensor types outside Kinds.
var ErrUnknownKind = errors.New("unknown sensor kind")

// ParseKind maps a configured type name onto a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case Vibration, Temperature, Current:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Spec is the immutable description of one physical sensor.
type Spec struct {
	Kind              Kind
	Unit              string
	Min               float64
	Max               float64
	BaseValue         float64
	WarningThreshold  float64
	CriticalThreshold float64
}

// State is the operating band selected for a single reading.
type State int

const (
	Normal State = iota
	Warning
	Critical
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sensor produces readings for one Spec. It is not safe for concurrent use:
// the random source is shared with whoever constructed it.
type Sensor struct {
	spec Spec
	rng  *rand.Rand
}

// New validates the spec kind and binds the sensor to rng.
func New(spec Spec, rng *rand.Rand) (*Sensor, error) {
	if _, err := ParseKind(string(spec.Kind)); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("sensor: nil random source")
	}
	return &Sensor{spec: spec, rng: rng}, nil
}

// Spec returns the sensor description.
func (s *Sensor) Spec() Spec {
	return s.spec
}

// Produce draws one reading. pNormal and pWarning are cumulative:
// a draw below pNormal is normal, below pWarning is warning, anything else
// is critical.
func (s *Sensor) Produce(pNormal, pWarning float64) float64 {
	_, target := s.draw(pNormal, pWarning)
	if s.spec.Kind == Vibration {
		return synthesizeRMS(target, s.rng)
	}
	return round2(math.Max(target, 0))
}

// draw picks the operating state and the target value for it.
func (s *Sensor) draw(pNormal, pWarning float64) (State, float64) {
	d := s.rng.Float64()
	switch {
	case d < pNormal:
		sigma := 0.1 * (s.spec.WarningThreshold - s.spec.BaseValue)
		v := s.spec.BaseValue + s.rng.NormFloat64()*sigma
		// Normal readings stay strictly under the warning band.
		return Normal, math.Min(v, s.spec.WarningThreshold-0.1)
	case d < pWarning:
		return Warning, uniform(s.rng, s.spec.WarningThreshold, s.spec.CriticalThreshold)
	default:
		return Critical, uniform(s.rng, s.spec.CriticalThreshold, s.spec.Max)
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
