package config

import (
	"sort"
)

// params maps the tunable scalar settings of a loop to their fields.
var params = map[string]func(c *Config) *float64{
	"ts":                   func(c *Config) *float64 { return &c.Ts },
	"duration":             func(c *Config) *float64 { return &c.Duration },
	"kp":                   func(c *Config) *float64 { return &c.Controller.Kp },
	"ki":                   func(c *Config) *float64 { return &c.Controller.Ki },
	"kd":                   func(c *Config) *float64 { return &c.Controller.Kd },
	"tf":                   func(c *Config) *float64 { return &c.Controller.Tf },
	"kb":                   func(c *Config) *float64 { return &c.Controller.Kb },
	"kt":                   func(c *Config) *float64 { return &c.Controller.Kt },
	"plant.gain":           func(c *Config) *float64 { return &c.Plant.Gain },
	"plant.time_constant":  func(c *Config) *float64 { return &c.Plant.TimeConstant },
	"plant.time_constant2": func(c *Config) *float64 { return &c.Plant.TimeConstant2 },
	"plant.mass":           func(c *Config) *float64 { return &c.Plant.Mass },
	"plant.damping":        func(c *Config) *float64 { return &c.Plant.Damping },
	"plant.stiffness":      func(c *Config) *float64 { return &c.Plant.Stiffness },
	"reference.amplitude":  func(c *Config) *float64 { return &c.Reference.Amplitude },
	"reference.at":         func(c *Config) *float64 { return &c.Reference.At },
	"reference.period":     func(c *Config) *float64 { return &c.Reference.Period },
	"reference.frequency":  func(c *Config) *float64 { return &c.Reference.Frequency },
	"reference.slope":      func(c *Config) *float64 { return &c.Reference.Slope },
}

// SetParam sets one named scalar setting. The result is not validated.
func (c *Config) SetParam(name string, value float64) error {
	field, ok := params[name]
	if !ok {
		return invalid("unknown parameter %q", name)
	}
	*field(c) = value
	return nil
}

// Param reads one named scalar setting.
func (c *Config) Param(name string) (float64, error) {
	field, ok := params[name]
	if !ok {
		return 0, invalid("unknown parameter %q", name)
	}
	return *field(c), nil
}

// ParamNames lists the names accepted by SetParam.
func ParamNames() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
