package topology

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/Lpint02/iot-predictive-maintenance/internal/config"
	"github.com/Lpint02/iot-predictive-maintenance/internal/lifecycle"
	"github.com/Lpint02/iot-predictive-maintenance/internal/sensor"
)

func testTopology() config.Topology {
	return config.Topology{
		Sectors: config.Level{Count: 2, Prefix: "sector"},
		Lines:   config.Level{Count: 2, Prefix: "line"},
		Assets:  config.Level{Count: 2, Prefix: "engine"},
	}
}

func testTemplate() []config.SensorTemplate {
	return []config.SensorTemplate{
		{Type: "vibration", Unit: "g", Max: 0.5, BaseValAvg: 0.05, BaseValVariance: 0.01,
			Thresholds: config.Thresholds{Warning: 0.15, Critical: 0.22}},
		{Type: "temperature", Unit: "°C", Min: 20, Max: 180, BaseValAvg: 90, BaseValVariance: 5,
			Thresholds: config.Thresholds{Warning: 130, Critical: 150}},
		{Type: "current", Unit: "A", Max: 150, BaseValAvg: 90, BaseValVariance: 2,
			Thresholds: config.Thresholds{Warning: 105, Critical: 110}},
	}
}

func build(t *testing.T, seed uint64) (*Registry, *lifecycle.Engine) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := lifecycle.New(DesignatedAsset(testTopology()), lifecycle.DefaultProfiles(), rng, logger)
	reg, err := Build(testTopology(), testTemplate(), engine, rng)
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	return reg, engine
}

func TestDesignatedAsset(t *testing.T) {
	if got, want := DesignatedAsset(testTopology()), "sector_1/line_1/engine_1"; got != want {
		t.Errorf("DesignatedAsset() = %q, want %q", got, want)
	}
}

func TestBuild_TopicsUniqueAndOrdered(t *testing.T) {
	reg, _ := build(t, 1)

	var want []string
	for s := 1; s <= 2; s++ {
		for l := 1; l <= 2; l++ {
			for a := 1; a <= 2; a++ {
				for _, k := range []string{"vibration", "temperature", "current"} {
					want = append(want, fmt.Sprintf("sector_%d/line_%d/engine_%d/%s", s, l, a, k))
				}
			}
		}
	}

	got := reg.Topics()
	if len(got) != 24 {
		t.Fatalf("len(Topics) = %d, want 24", len(got))
	}
	seen := map[string]bool{}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("Topics[%d] = %q, want %q", i, got[i], want[i])
		}
		if seen[got[i]] {
			t.Errorf("duplicate topic %q", got[i])
		}
		seen[got[i]] = true
	}
}

func TestBuild_LifecycleBinding(t *testing.T) {
	reg, engine := build(t, 2)

	if reg.DesignatedAsset != "sector_1/line_1/engine_1" {
		t.Errorf("DesignatedAsset = %q, want sector_1/line_1/engine_1", reg.DesignatedAsset)
	}

	bound := 0
	for _, e := range reg.Entries {
		switch {
		case e.AssetID == reg.DesignatedAsset:
			bound++
			if e.Lifecycle != engine || e.Sensor != nil {
				t.Errorf("%s: want lifecycle binding only", e.Topic)
			}
		default:
			if e.Lifecycle != nil || e.Sensor == nil {
				t.Errorf("%s: want independent sensor only", e.Topic)
			}
		}
	}
	if bound != 3 {
		t.Errorf("lifecycle-bound entries = %d, want 3", bound)
	}

	engine.Advance()
	for _, e := range reg.Entries[:3] {
		if got, want := e.Read(0.85, 0.95), engine.Value(e.Kind); got != want {
			t.Errorf("%s Read() = %v, want engine value %v", e.Topic, got, want)
		}
	}
}

func TestBuild_BaseValuesWithinVariance(t *testing.T) {
	reg, _ := build(t, 3)
	tmpl := map[sensor.Kind]config.SensorTemplate{}
	for _, st := range testTemplate() {
		tmpl[sensor.Kind(st.Type)] = st
	}

	for _, e := range reg.Entries {
		if e.Sensor == nil {
			continue
		}
		st := tmpl[e.Kind]
		spec := e.Sensor.Spec()
		if spec.BaseValue < st.BaseValAvg-st.BaseValVariance || spec.BaseValue > st.BaseValAvg+st.BaseValVariance {
			t.Errorf("%s base = %v, want %v ± %v", e.Topic, spec.BaseValue, st.BaseValAvg, st.BaseValVariance)
		}
		if spec.WarningThreshold != e.WarningThreshold || spec.CriticalThreshold != e.CriticalThreshold {
			t.Errorf("%s thresholds differ between entry and sensor", e.Topic)
		}
		if spec.Unit != e.Unit {
			t.Errorf("%s unit = %q, want %q", e.Topic, spec.Unit, e.Unit)
		}
	}
}

func TestBuild_DeterministicForSeed(t *testing.T) {
	a, _ := build(t, 42)
	b, _ := build(t, 42)

	for i := range a.Entries {
		ea, eb := a.Entries[i], b.Entries[i]
		if ea.Topic != eb.Topic {
			t.Fatalf("entry %d topic %q vs %q", i, ea.Topic, eb.Topic)
		}
		if ea.Sensor != nil && ea.Sensor.Spec() != eb.Sensor.Spec() {
			t.Fatalf("entry %d spec differs: %+v vs %+v", i, ea.Sensor.Spec(), eb.Sensor.Spec())
		}
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	engine := lifecycle.New(DesignatedAsset(testTopology()), lifecycle.DefaultProfiles(), rng, nil)
	tmpl := append(testTemplate(), config.SensorTemplate{Type: "pressure", Unit: "bar"})

	_, err := Build(testTopology(), tmpl, engine, rng)
	if !errors.Is(err, sensor.ErrUnknownKind) {
		t.Fatalf("Build() error = %v, want ErrUnknownKind", err)
	}
}

func TestBuild_DuplicateTopic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	engine := lifecycle.New(DesignatedAsset(testTopology()), lifecycle.DefaultProfiles(), rng, nil)
	tmpl := append(testTemplate(), config.SensorTemplate{Type: "Current", Unit: "A"})

	_, err := Build(testTopology(), tmpl, engine, rng)
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("Build() error = %v, want ErrInvalid", err)
	}
}

func TestBuild_LifecycleAssetOutsideTopology(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	engine := lifecycle.New("sector_9/line_9/engine_9", lifecycle.DefaultProfiles(), rng, nil)

	_, err := Build(testTopology(), testTemplate(), engine, rng)
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("Build() error = %v, want ErrInvalid", err)
	}
}

func TestBuild_NilEngine(t *testing.T) {
	if _, err := Build(testTopology(), testTemplate(), nil, rand.New(rand.NewPCG(1, 1))); err == nil {
		t.Fatal("Build() error = nil, want non-nil")
	}
}
