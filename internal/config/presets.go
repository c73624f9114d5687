package config

import "sort"

// Presets are named loops for the CLI. pid2 is the reference scenario: a PI
// controller with tracking behind an external [0, 1] actuator limit,
// driving 2/(20s+1) sampled at 1s.
var Presets = map[string]*Config{
	"pid2": DefaultConfig(),
	"pid2-clamping": {
		Name: "pid2-clamping", Ts: 1, Duration: 100,
		Plant:     PlantConfig{Type: "pt1", Gain: 2, TimeConstant: 20, Method: "forward_euler"},
		Reference: ReferenceConfig{Type: "step", Amplitude: 1, At: 1},
		Controller: ControllerConfig{
			Type: "pid", Kp: 3, Ki: 0.5, Tf: 0.01,
			IntMethod: "forward_euler", DerMethod: "forward_euler",
			Saturation: &SaturationConfig{Upper: 1, Lower: 0},
			AntiWindup: "clamping",
		},
		Metrics: []string{"iae", "overshoot", "saturation_ratio"},
	},
	"motor-speed": {
		Name: "motor-speed", Ts: 0.01, Duration: 5,
		Plant:     PlantConfig{Type: "dc_motor", Gain: 2, TimeConstant: 0.5, Integrator: "rk4", Substeps: 10},
		Reference: ReferenceConfig{Type: "step", Amplitude: 1, At: 0.5},
		Controller: ControllerConfig{
			Type: "pid", Kp: 0.5, Ki: 2, Tf: 0.01,
			IntMethod: "trapezoidal", DerMethod: "trapezoidal",
			Tracking: true, Kt: 5,
		},
		Actuator: []ElementConfig{
			{Type: "rate_limiter", Rising: 5, Falling: -5},
			{Type: "saturation", Upper: 1, Lower: -1},
		},
		Metrics: []string{"iae", "ise", "control_effort", "overshoot"},
	},
	"mass-spring": {
		Name: "mass-spring", Ts: 0.01, Duration: 20,
		Plant:     PlantConfig{Type: "mass_spring_damper", Mass: 1, Damping: 0.5, Stiffness: 2, Integrator: "rk4", Substeps: 4},
		Reference: ReferenceConfig{Type: "square", Amplitude: 1, Period: 10},
		Controller: ControllerConfig{
			Type: "pid", Kp: 5, Ki: 3, Kd: 1, Tf: 0.05,
			IntMethod: "trapezoidal", DerMethod: "trapezoidal",
			Saturation: &SaturationConfig{Upper: 10, Lower: -10},
			AntiWindup: "back_calculation", Kb: 1,
		},
		Metrics: []string{"iae", "ise", "overshoot", "saturation_ratio"},
	},
	"quantized-sensor": {
		Name: "quantized-sensor", Ts: 0.1, Duration: 60,
		Plant:     PlantConfig{Type: "pt1", Gain: 1, TimeConstant: 2, Method: "trapezoidal"},
		Reference: ReferenceConfig{Type: "constant", Amplitude: 0.52},
		Controller: ControllerConfig{
			Type: "pid", Kp: 1, Ki: 1, Tf: 0.01,
			IntMethod: "backward_euler", DerMethod: "backward_euler",
		},
		Sensor:  []ElementConfig{{Type: "quantizer", Interval: 0.05, Rounding: "nearest"}},
		Metrics: []string{"iae", "control_effort"},
	},
	"observer": {
		Name: "observer", Ts: 1, Duration: 100,
		Plant:      PlantConfig{Type: "pt1", Gain: 2, TimeConstant: 20, Method: "forward_euler"},
		Reference:  ReferenceConfig{Type: "constant"},
		Controller: ControllerConfig{Type: "none"},
		Observer: &ObserverConfig{
			L:        []float64{0.95},
			Feedback: []float64{0.5},
			Target:   []float64{1},
		},
		Metrics: []string{"control_effort"},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
