package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MotorTemplate is the template applied to every generated asset.
const MotorTemplate = "standard_motor"

const (
	DefaultNormalStateProbability  = 0.85
	DefaultWarningStateProbability = 0.95
)

// Simulation mirrors the simulation file. The file may be JSON or YAML.
type Simulation struct {
	MQTT      MQTT                        `yaml:"mqtt"`
	Run       Run                         `yaml:"simulation"`
	Topology  Topology                    `yaml:"topology"`
	Templates map[string][]SensorTemplate `yaml:"templates"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

type Run struct {
	IntervalSeconds         float64  `yaml:"interval_seconds"`
	NormalStateProbability  *float64 `yaml:"normal_state_probability"`
	WarningStateProbability *float64 `yaml:"warning_state_probability"`
}

// Interval is the target publish period.
func (r Run) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds * float64(time.Second))
}

// Probabilities returns the cumulative normal and warning state
// probabilities, falling back to the defaults when absent.
func (r Run) Probabilities() (normal, warning float64) {
	normal, warning = DefaultNormalStateProbability, DefaultWarningStateProbability
	if r.NormalStateProbability != nil {
		normal = *r.NormalStateProbability
	}
	if r.WarningStateProbability != nil {
		warning = *r.WarningStateProbability
	}
	return normal, warning
}

// Level is one counted level of the plant hierarchy.
type Level struct {
	Count  int    `yaml:"count"`
	Prefix string `yaml:"prefix"`
}

type Topology struct {
	Sectors Level `yaml:"sectors"`
	Lines   Level `yaml:"lines_per_sector"`
	Assets  Level `yaml:"assets_per_line"`
}

type Thresholds struct {
	Warning  float64 `yaml:"warning"`
	Critical float64 `yaml:"critical"`
}

// SensorTemplate describes one sensor fitted to every asset.
type SensorTemplate struct {
	Type            string     `yaml:"type"`
	Unit            string     `yaml:"unit"`
	Min             float64    `yaml:"min"`
	Max             float64    `yaml:"max"`
	BaseValAvg      float64    `yaml:"base_val_avg"`
	BaseValVariance float64    `yaml:"base_val_variance"`
	Thresholds      Thresholds `yaml:"thresholds"`

	// missing lists required keys absent from the decoded document.
	missing []string
}

// UnmarshalYAML decodes a template and records which required keys were
// absent. base_val_variance defaults to 0.
func (st *SensorTemplate) UnmarshalYAML(node *yaml.Node) error {
	var w struct {
		Type            string   `yaml:"type"`
		Unit            string   `yaml:"unit"`
		Min             *float64 `yaml:"min"`
		Max             *float64 `yaml:"max"`
		BaseValAvg      *float64 `yaml:"base_val_avg"`
		BaseValVariance float64  `yaml:"base_val_variance"`
		Thresholds      struct {
			Warning  *float64 `yaml:"warning"`
			Critical *float64 `yaml:"critical"`
		} `yaml:"thresholds"`
	}
	if err := node.Decode(&w); err != nil {
		return err
	}

	*st = SensorTemplate{Type: w.Type, Unit: w.Unit, BaseValVariance: w.BaseValVariance}
	required := []struct {
		key string
		src *float64
		dst *float64
	}{
		{"min", w.Min, &st.Min},
		{"max", w.Max, &st.Max},
		{"base_val_avg", w.BaseValAvg, &st.BaseValAvg},
		{"thresholds.warning", w.Thresholds.Warning, &st.Thresholds.Warning},
		{"thresholds.critical", w.Thresholds.Critical, &st.Thresholds.Critical},
	}
	for _, r := range required {
		if r.src == nil {
			st.missing = append(st.missing, r.key)
			continue
		}
		*r.dst = *r.src
	}
	return nil
}

// MotorSensors returns the sensors of the standard motor template.
func (s Simulation) MotorSensors() []SensorTemplate {
	return s.Templates[MotorTemplate]
}

// LoadSimulation decodes the simulation file at path. It does not validate.
func LoadSimulation(path string) (Simulation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Simulation{}, fmt.Errorf("read simulation config %q: %w", path, err)
	}
	return ParseSimulation(data)
}

// ParseSimulation decodes a JSON or YAML simulation document.
func ParseSimulation(data []byte) (Simulation, error) {
	var sim Simulation
	if err := yaml.Unmarshal(data, &sim); err != nil {
		return Simulation{}, fmt.Errorf("%w: decode simulation config: %v", ErrInvalid, err)
	}
	return sim, nil
}

// Validate reports every structural problem at once. Sensor types are
// checked when the topology is built.
func (s Simulation) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if s.MQTT.Broker == "" {
		add("mqtt.broker is required")
	}
	if s.MQTT.Port <= 0 || s.MQTT.Port > 65535 {
		add("mqtt.port %d out of range", s.MQTT.Port)
	}

	if s.Run.IntervalSeconds <= 0 {
		add("simulation.interval_seconds must be positive, got %v", s.Run.IntervalSeconds)
	}
	pn, pw := s.Run.Probabilities()
	if pn < 0 || pw > 1 || pn > pw {
		add("state probabilities must satisfy 0 <= normal (%v) <= warning (%v) <= 1", pn, pw)
	}

	levels := []struct {
		name string
		lvl  Level
	}{
		{"topology.sectors", s.Topology.Sectors},
		{"topology.lines_per_sector", s.Topology.Lines},
		{"topology.assets_per_line", s.Topology.Assets},
	}
	for _, l := range levels {
		if l.lvl.Count < 1 {
			add("%s.count must be at least 1, got %d", l.name, l.lvl.Count)
		}
		if l.lvl.Prefix == "" {
			add("%s.prefix is required", l.name)
		}
	}

	sensors := s.MotorSensors()
	if len(sensors) == 0 {
		add("templates.%s must list at least one sensor", MotorTemplate)
	}
	seen := make(map[string]bool, len(sensors))
	for i, st := range sensors {
		if st.Type == "" {
			add("templates.%s[%d].type is required", MotorTemplate, i)
			continue
		}
		if seen[st.Type] {
			add("templates.%s[%d]: duplicate sensor type %q", MotorTemplate, i, st.Type)
		}
		seen[st.Type] = true
		if st.Unit == "" {
			add("templates.%s[%d].unit is required", MotorTemplate, i)
		}
		for _, key := range st.missing {
			add("templates.%s[%d].%s is required", MotorTemplate, i, key)
		}
	}

	return errors.Join(errs...)
}
