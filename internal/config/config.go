package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ctrlblocks/internal/control"
	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/lti"
	"github.com/san-kum/ctrlblocks/internal/nonlinear"
)

const (
	DefaultTs       = 1.0
	DefaultDuration = 100.0
	DefaultKp       = 3.0
	DefaultKi       = 0.5
	DefaultTf       = 0.01
	DefaultKt       = 0.4
)

// Config describes one closed loop: plant, reference, controller and the
// elements around it.
type Config struct {
	Name       string           `yaml:"name,omitempty"`
	Ts         float64          `yaml:"ts"`
	Duration   float64          `yaml:"duration"`
	Plant      PlantConfig      `yaml:"plant"`
	Reference  ReferenceConfig  `yaml:"reference"`
	Controller ControllerConfig `yaml:"controller"`
	Actuator   []ElementConfig  `yaml:"actuator,omitempty"`
	Sensor     []ElementConfig  `yaml:"sensor,omitempty"`
	Observer   *ObserverConfig  `yaml:"observer,omitempty"`
	Metrics    []string         `yaml:"metrics,omitempty"`
}

type PlantConfig struct {
	Type          string    `yaml:"type"`
	Gain          float64   `yaml:"gain"`
	TimeConstant  float64   `yaml:"time_constant"`
	TimeConstant2 float64   `yaml:"time_constant2"`
	Method        string    `yaml:"method"`
	Mass          float64   `yaml:"mass"`
	Damping       float64   `yaml:"damping"`
	Stiffness     float64   `yaml:"stiffness"`
	Num           []float64 `yaml:"num,omitempty"`
	Den           []float64 `yaml:"den,omitempty"`
	Integrator    string    `yaml:"integrator"`
	Substeps      int       `yaml:"substeps"`
	X0            []float64 `yaml:"x0,omitempty"`
}

type ReferenceConfig struct {
	Type      string  `yaml:"type"`
	Amplitude float64 `yaml:"amplitude"`
	At        float64 `yaml:"at"`
	Slope     float64 `yaml:"slope"`
	Period    float64 `yaml:"period"`
	Frequency float64 `yaml:"frequency"`
}

type ControllerConfig struct {
	Type       string            `yaml:"type"`
	Kp         float64           `yaml:"kp"`
	Ki         float64           `yaml:"ki"`
	Kd         float64           `yaml:"kd"`
	Tf         float64           `yaml:"tf"`
	IntMethod  string            `yaml:"int_method"`
	DerMethod  string            `yaml:"der_method"`
	Saturation *SaturationConfig `yaml:"saturation,omitempty"`
	AntiWindup string            `yaml:"anti_windup"`
	Kb         float64           `yaml:"kb"`
	Tracking   bool              `yaml:"tracking"`
	Kt         float64           `yaml:"kt"`
}

type SaturationConfig struct {
	Upper float64 `yaml:"upper"`
	Lower float64 `yaml:"lower"`
}

// ElementConfig is one actuator or sensor element. Only the fields of its
// type are read.
type ElementConfig struct {
	Type     string  `yaml:"type"`
	Upper    float64 `yaml:"upper,omitempty"`
	Lower    float64 `yaml:"lower,omitempty"`
	Rising   float64 `yaml:"rising,omitempty"`
	Falling  float64 `yaml:"falling,omitempty"`
	Y0       float64 `yaml:"y0,omitempty"`
	Offset   float64 `yaml:"offset,omitempty"`
	Interval float64 `yaml:"interval,omitempty"`
	Rounding string  `yaml:"rounding,omitempty"`
}

// ObserverConfig adds a state observer on the discretized plant, and
// optionally state feedback u -= K (xhat - target) on its estimate.
type ObserverConfig struct {
	L        []float64 `yaml:"l"`
	X0       []float64 `yaml:"x0,omitempty"`
	Feedback []float64 `yaml:"feedback,omitempty"`
	Target   []float64 `yaml:"target,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:     "pid2",
		Ts:       DefaultTs,
		Duration: DefaultDuration,
		Plant: PlantConfig{
			Type:         "pt1",
			Gain:         2,
			TimeConstant: 20,
			Method:       lti.ForwardEuler.String(),
		},
		Reference: ReferenceConfig{Type: "step", Amplitude: 1, At: 1},
		Controller: ControllerConfig{
			Type:      "pid",
			Kp:        DefaultKp,
			Ki:        DefaultKi,
			Tf:        DefaultTf,
			IntMethod: lti.ForwardEuler.String(),
			DerMethod: lti.ForwardEuler.String(),
			Tracking:  true,
			Kt:        DefaultKt,
		},
		Actuator: []ElementConfig{{Type: "saturation", Upper: 1, Lower: 0}},
		Metrics:  []string{"iae", "overshoot", "saturation_ratio"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone is a deep copy, so presets can be edited without touching the table.
func (c *Config) Clone() *Config {
	out := *c
	out.Plant.Num = append([]float64(nil), c.Plant.Num...)
	out.Plant.Den = append([]float64(nil), c.Plant.Den...)
	out.Plant.X0 = append([]float64(nil), c.Plant.X0...)
	out.Actuator = append([]ElementConfig(nil), c.Actuator...)
	out.Sensor = append([]ElementConfig(nil), c.Sensor...)
	out.Metrics = append([]string(nil), c.Metrics...)
	if c.Controller.Saturation != nil {
		s := *c.Controller.Saturation
		out.Controller.Saturation = &s
	}
	if c.Observer != nil {
		o := ObserverConfig{
			L:        append([]float64(nil), c.Observer.L...),
			X0:       append([]float64(nil), c.Observer.X0...),
			Feedback: append([]float64(nil), c.Observer.Feedback...),
			Target:   append([]float64(nil), c.Observer.Target...),
		}
		out.Observer = &o
	}
	return &out
}

// Validate checks the settings that do not depend on the block registry.
// Unknown plant, reference and element types are reported when the loop is
// built.
func (c *Config) Validate() error {
	if !(c.Ts > 0) {
		return invalid("ts must be positive, got %g", c.Ts)
	}
	if !(c.Duration > 0) {
		return invalid("duration must be positive, got %g", c.Duration)
	}
	if c.Duration < c.Ts {
		return invalid("duration %g is shorter than one sample", c.Duration)
	}
	if c.Plant.Method != "" {
		if _, err := lti.ParseMethod(c.Plant.Method); err != nil {
			return fmt.Errorf("plant: %w", err)
		}
	}
	if err := c.Controller.validate(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	for i, el := range c.Actuator {
		if err := el.validate(); err != nil {
			return fmt.Errorf("actuator[%d]: %w", i, err)
		}
	}
	for i, el := range c.Sensor {
		if err := el.validate(); err != nil {
			return fmt.Errorf("sensor[%d]: %w", i, err)
		}
	}
	if o := c.Observer; o != nil {
		if len(o.L) == 0 {
			return invalid("observer: correction gain l is required")
		}
		if len(o.Feedback) > 0 && len(o.Feedback) != len(o.L) {
			return fmt.Errorf("%w: observer: feedback has %d gains for %d states",
				dynamo.ErrDimensionMismatch, len(o.Feedback), len(o.L))
		}
	}
	return nil
}

func (c ControllerConfig) validate() error {
	switch c.Type {
	case "none":
		return nil
	case "pid":
	default:
		return invalid("unknown controller %q", c.Type)
	}
	if !(c.Tf > 0) {
		return invalid("tf must be positive, got %g", c.Tf)
	}
	if _, err := lti.ParseMethod(c.IntMethod); err != nil {
		return err
	}
	if _, err := lti.ParseMethod(c.DerMethod); err != nil {
		return err
	}
	if c.AntiWindup != "" {
		if _, err := control.ParseAntiWindup(c.AntiWindup); err != nil {
			return err
		}
	}
	if s := c.Saturation; s != nil && !(s.Upper > s.Lower) {
		return invalid("saturation upper %g must exceed lower %g", s.Upper, s.Lower)
	}
	return nil
}

func (e ElementConfig) validate() error {
	switch e.Type {
	case "saturation", "deadzone":
		if !(e.Upper > e.Lower) {
			return invalid("%s: upper %g must exceed lower %g", e.Type, e.Upper, e.Lower)
		}
	case "rate_limiter":
		if !(e.Rising > 0) || !(e.Falling < 0) {
			return invalid("rate_limiter: need rising > 0 > falling, got %g, %g", e.Rising, e.Falling)
		}
	case "quantizer":
		if !(e.Interval > 0) {
			return invalid("quantizer: interval must be positive, got %g", e.Interval)
		}
		if e.Rounding != "" {
			if _, err := nonlinear.ParseRounding(e.Rounding); err != nil {
				return err
			}
		}
	default:
		return invalid("unknown element %q", e.Type)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{dynamo.ErrInvalidConfig}, args...)...)
}
