package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "pt1", cfg.Plant.Type)
	assert.Equal(t, "pid", cfg.Controller.Type)
	assert.True(t, cfg.Controller.Tracking)
	assert.Len(t, cfg.Actuator, 1)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.yaml")
	cfg := GetPreset("motor-speed")
	require.NotNil(t, cfg)

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ts: 0.5\ncontroller:\n  kp: 7\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Ts)
	assert.Equal(t, 7.0, cfg.Controller.Kp)
	assert.Equal(t, DefaultKi, cfg.Controller.Ki)
	assert.Equal(t, "pt1", cfg.Plant.Type)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("ts: [1, 2"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("ts: -1\n"), 0644))
	_, err = Load(invalid)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero ts", func(c *Config) { c.Ts = 0 }},
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"duration below ts", func(c *Config) { c.Duration = 0.5 }},
		{"plant method", func(c *Config) { c.Plant.Method = "simpson" }},
		{"controller type", func(c *Config) { c.Controller.Type = "lqr" }},
		{"tf", func(c *Config) { c.Controller.Tf = 0 }},
		{"int method", func(c *Config) { c.Controller.IntMethod = "rk4" }},
		{"anti-windup", func(c *Config) { c.Controller.AntiWindup = "magic" }},
		{"saturation", func(c *Config) { c.Controller.Saturation = &SaturationConfig{Upper: 0, Lower: 0} }},
		{"element type", func(c *Config) { c.Sensor = []ElementConfig{{Type: "hysteresis"}} }},
		{"element limits", func(c *Config) { c.Actuator[0].Lower = 2 }},
		{"rate limiter", func(c *Config) { c.Actuator = []ElementConfig{{Type: "rate_limiter", Rising: 1, Falling: 1}} }},
		{"quantizer", func(c *Config) { c.Sensor = []ElementConfig{{Type: "quantizer"}} }},
		{"rounding", func(c *Config) { c.Sensor = []ElementConfig{{Type: "quantizer", Interval: 1, Rounding: "bankers"}} }},
		{"observer gain", func(c *Config) { c.Observer = &ObserverConfig{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), dynamo.ErrInvalidConfig)
		})
	}

	cfg := DefaultConfig()
	cfg.Observer = &ObserverConfig{L: []float64{1, 2}, Feedback: []float64{1}}
	assert.ErrorIs(t, cfg.Validate(), dynamo.ErrDimensionMismatch)
}

func TestPresets(t *testing.T) {
	names := ListPresets()
	require.NotEmpty(t, names)
	assert.Contains(t, names, "pid2")
	for _, name := range names {
		cfg := GetPreset(name)
		require.NotNil(t, cfg, name)
		assert.Equal(t, name, cfg.Name)
		assert.NoError(t, cfg.Validate(), name)
	}
	assert.Nil(t, GetPreset("nonexistent"))
}

func TestGetPresetReturnsCopy(t *testing.T) {
	cfg := GetPreset("mass-spring")
	cfg.Controller.Saturation.Upper = 99
	cfg.Metrics[0] = "changed"
	cfg.Plant.Mass = 42

	again := GetPreset("mass-spring")
	assert.Equal(t, 10.0, again.Controller.Saturation.Upper)
	assert.Equal(t, "iae", again.Metrics[0])
	assert.Equal(t, 1.0, again.Plant.Mass)
}

func TestSetParam(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.SetParam("kp", 4.5))
	require.NoError(t, cfg.SetParam("plant.time_constant", 10))
	assert.Equal(t, 4.5, cfg.Controller.Kp)
	assert.Equal(t, 10.0, cfg.Plant.TimeConstant)

	v, err := cfg.Param("kp")
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)

	assert.ErrorIs(t, cfg.SetParam("gain", 1), dynamo.ErrInvalidConfig)
	_, err = cfg.Param("gain")
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
	assert.Contains(t, ParamNames(), "reference.amplitude")
}
