package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ctrlblocks/internal/config"
	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/experiment"
)

const scenarioYAML = `name: windup
description: pid2 with and without anti-windup
steps:
  - preset: pid2-clamping
    anti_windup: none
    save_as: unguarded
  - preset: pid2-clamping
    save_as: clamped
  - config: slow.yaml
    params:
      kp: 1
`

func writeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	slow := config.DefaultConfig()
	slow.Name = "slow"
	require.NoError(t, config.Save(filepath.Join(dir, "slow.yaml"), slow))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0o644))
	return path
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 3)

	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "unguarded", results[0].Name)
	assert.Equal(t, "none", results[0].Config.Controller.AntiWindup)
	assert.Equal(t, "clamped", results[1].Name)
	assert.Equal(t, "clamping", results[1].Config.Controller.AntiWindup)
	assert.Greater(t, results[0].Trace.Metrics["overshoot"], results[1].Trace.Metrics["overshoot"])

	assert.Equal(t, "slow", results[2].Name)
	assert.Equal(t, 1.0, results[2].Config.Controller.Kp)
	assert.Equal(t, 100, results[2].Trace.StepsTaken)
}

func TestScenarioErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("name: empty\n"), 0o644))
	_, err := LoadScenario(empty)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)

	_, err = LoadScenario(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	sc := &Scenario{Steps: []ScenarioStep{{Preset: "pid2"}, {Preset: "unknown"}}}
	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), nil)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
	assert.Len(t, results, 1)

	sc = &Scenario{Steps: []ScenarioStep{{Params: map[string]float64{"gain": 2}}}}
	_, err = sc.StepConfig(0)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
}

func TestRunSweep(t *testing.T) {
	sweep := &ParameterSweep{
		Base:     config.DefaultConfig(),
		Param:    "kp",
		Min:      1,
		Max:      4,
		NumSteps: 4,
		Limit:    2,
	}
	points, err := RunSweep(context.Background(), sweep, experiment.NewRegistry())
	require.NoError(t, err)
	require.Len(t, points, 4)
	for i, p := range points {
		assert.Equal(t, float64(i+1), p.Value)
		assert.Equal(t, p.Value, p.Config.Controller.Kp)
		assert.InDelta(t, 1, p.Trace.Last().Output, 0.02)
	}
	// the base is not modified
	assert.Equal(t, config.DefaultKp, sweep.Base.Controller.Kp)
}

func TestRunSweepErrors(t *testing.T) {
	reg := experiment.NewRegistry()
	_, err := RunSweep(context.Background(), &ParameterSweep{Base: config.DefaultConfig(), Param: "kp"}, reg)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
	_, err = RunSweep(context.Background(), &ParameterSweep{Base: config.DefaultConfig(), Param: "zeta", NumSteps: 2}, reg)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
}

func TestRunMonteCarlo(t *testing.T) {
	mc := &MonteCarloConfig{
		Base:         config.DefaultConfig(),
		Params:       []string{"plant.gain"},
		Perturbation: 0.2,
		NumTrials:    8,
		Seed:         7,
	}
	reg := experiment.NewRegistry()
	results, err := RunMonteCarlo(context.Background(), mc, reg)
	require.NoError(t, err)
	require.Len(t, results, 8)
	for _, r := range results {
		g := r.Params["plant.gain"]
		assert.GreaterOrEqual(t, g, 1.6)
		assert.LessOrEqual(t, g, 2.4)
		assert.InDelta(t, 1, r.Final, 1e-3)
	}
	stable, unstable := MonteCarloStats(results)
	assert.Equal(t, 8, stable)
	assert.Zero(t, unstable)

	again, err := RunMonteCarlo(context.Background(), mc, reg)
	require.NoError(t, err)
	assert.Equal(t, results[3].Params, again[3].Params)
}

func TestRunMonteCarloUnstable(t *testing.T) {
	// forward Euler with Ts > 2T has a pole outside the unit circle
	base := config.DefaultConfig()
	base.Plant.TimeConstant = 0.4
	base.Actuator = nil
	mc := &MonteCarloConfig{
		Base:         base,
		Params:       []string{"plant.time_constant"},
		Perturbation: 0.1,
		NumTrials:    3,
		Seed:         1,
	}
	results, err := RunMonteCarlo(context.Background(), mc, experiment.NewRegistry())
	require.NoError(t, err)
	stable, unstable := MonteCarloStats(results)
	assert.Zero(t, stable)
	assert.Equal(t, 3, unstable)
	for _, r := range results {
		assert.False(t, r.Stable)
	}
}

func TestRunMonteCarloErrors(t *testing.T) {
	reg := experiment.NewRegistry()
	_, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{Base: config.DefaultConfig()}, reg)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
	_, err = RunMonteCarlo(context.Background(), &MonteCarloConfig{Base: config.DefaultConfig(), Params: []string{"zeta"}, NumTrials: 1}, reg)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
}
