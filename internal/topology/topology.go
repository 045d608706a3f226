// Package topology expands the compact plant description into the flat,
// ordered registry of telemetry sources the scheduler publishes every tick.
package topology

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Lpint02/iot-predictive-maintenance/internal/config"
	"github.com/Lpint02/iot-predictive-maintenance/internal/lifecycle"
	"github.com/Lpint02/iot-predictive-maintenance/internal/sensor"
)

// Entry is one published topic and the source of its readings. Exactly one
// of Sensor and Lifecycle is set.
type Entry struct {
	Topic             string
	AssetID           string
	Kind              sensor.Kind
	Unit              string
	WarningThreshold  float64
	CriticalThreshold float64

	Sensor    *sensor.Sensor
	Lifecycle *lifecycle.Engine
}

// Read returns the reading for this tick. Lifecycle-bound entries return the
// value cached by the engine's latest Advance.
func (e Entry) Read(pNormal, pWarning float64) float64 {
	if e.Lifecycle != nil {
		return e.Lifecycle.Value(e.Kind)
	}
	return e.Sensor.Produce(pNormal, pWarning)
}

// Registry is built once at startup. Its order is (sector, line, asset,
// template order).
type Registry struct {
	Entries         []Entry
	DesignatedAsset string
}

// Topics lists the registry topics in publish order.
func (r *Registry) Topics() []string {
	topics := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		topics[i] = e.Topic
	}
	return topics
}

// DesignatedAsset returns the path of the asset driven by the lifecycle
// engine: the first asset of the first line of the first sector.
func DesignatedAsset(t config.Topology) string {
	return assetPath(t, 1, 1, 1)
}

func assetPath(t config.Topology, sector, line, asset int) string {
	return fmt.Sprintf("%s_%d/%s_%d/%s_%d",
		t.Sectors.Prefix, sector,
		t.Lines.Prefix, line,
		t.Assets.Prefix, asset,
	)
}

// Build generates one entry per asset and template sensor. Entries of the
// asset matching engine.AssetID() read from engine; every other entry gets
// its own sensor whose base value is drawn from rng.
func Build(t config.Topology, template []config.SensorTemplate, engine *lifecycle.Engine, rng *rand.Rand) (*Registry, error) {
	if engine == nil {
		return nil, errors.New("topology: nil lifecycle engine")
	}
	if len(template) == 0 {
		return nil, fmt.Errorf("%w: empty sensor template", config.ErrInvalid)
	}

	kinds := make([]sensor.Kind, len(template))
	for i, st := range template {
		k, err := sensor.ParseKind(st.Type)
		if err != nil {
			return nil, fmt.Errorf("template sensor %d: %w", i, err)
		}
		kinds[i] = k
	}

	size := t.Sectors.Count * t.Lines.Count * t.Assets.Count * len(template)
	reg := &Registry{
		Entries:         make([]Entry, 0, size),
		DesignatedAsset: engine.AssetID(),
	}
	seen := make(map[string]struct{}, size)
	bound := 0

	for s := 1; s <= t.Sectors.Count; s++ {
		for l := 1; l <= t.Lines.Count; l++ {
			for a := 1; a <= t.Assets.Count; a++ {
				asset := assetPath(t, s, l, a)
				designated := asset == engine.AssetID()

				for i, st := range template {
					e := Entry{
						Topic:             asset + "/" + string(kinds[i]),
						AssetID:           asset,
						Kind:              kinds[i],
						Unit:              st.Unit,
						WarningThreshold:  st.Thresholds.Warning,
						CriticalThreshold: st.Thresholds.Critical,
					}
					if _, dup := seen[e.Topic]; dup {
						return nil, fmt.Errorf("%w: duplicate topic %q", config.ErrInvalid, e.Topic)
					}
					seen[e.Topic] = struct{}{}

					if designated {
						e.Lifecycle = engine
						bound++
					} else {
						sn, err := sensor.New(sensor.Spec{
							Kind:              kinds[i],
							Unit:              st.Unit,
							Min:               st.Min,
							Max:               st.Max,
							BaseValue:         st.BaseValAvg + uniform(rng, -st.BaseValVariance, st.BaseValVariance),
							WarningThreshold:  st.Thresholds.Warning,
							CriticalThreshold: st.Thresholds.Critical,
						}, rng)
						if err != nil {
							return nil, fmt.Errorf("sensor %s: %w", e.Topic, err)
						}
						e.Sensor = sn
					}
					reg.Entries = append(reg.Entries, e)
				}
			}
		}
	}

	if bound == 0 {
		return nil, fmt.Errorf("%w: lifecycle asset %q is not part of the topology", config.ErrInvalid, engine.AssetID())
	}
	return reg, nil
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
