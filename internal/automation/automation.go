// Package automation runs batches of loops: scripted scenarios, parameter
// sweeps and Monte Carlo robustness checks.
package automation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/ctrlblocks/internal/config"
	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/experiment"
	"github.com/san-kum/ctrlblocks/internal/sim"
)

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`

	dir string
}

// ScenarioStep starts from a preset or a config file (relative to the
// scenario file) and overrides single parameters.
type ScenarioStep struct {
	Preset     string             `yaml:"preset"`
	Config     string             `yaml:"config"`
	AntiWindup string             `yaml:"anti_windup"`
	Params     map[string]float64 `yaml:"params"`
	SaveAs     string             `yaml:"save_as"`
}

type StepResult struct {
	Name   string
	Config *config.Config
	Trace  *sim.Trace
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: scenario %s has no steps", dynamo.ErrInvalidConfig, path)
	}
	scenario.dir = filepath.Dir(path)
	return &scenario, nil
}

// StepConfig resolves the configuration of one step.
func (s *Scenario) StepConfig(i int) (*config.Config, error) {
	step := s.Steps[i]
	var cfg *config.Config
	switch {
	case step.Config != "":
		path := step.Config
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		c, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	case step.Preset != "":
		cfg = config.GetPreset(step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", dynamo.ErrInvalidConfig, step.Preset)
		}
	default:
		cfg = config.DefaultConfig()
	}

	if step.AntiWindup != "" {
		cfg.Controller.AntiWindup = step.AntiWindup
	}
	for name, v := range step.Params {
		if err := cfg.SetParam(name, v); err != nil {
			return nil, err
		}
	}
	if step.SaveAs != "" {
		cfg.Name = step.SaveAs
	}
	return cfg, cfg.Validate()
}

// RunScenario executes all steps in order and stops at the first failure.
// The results of the completed steps are returned with the error.
func RunScenario(ctx context.Context, scenario *Scenario, reg *experiment.Registry, log *zap.Logger) ([]StepResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i := range scenario.Steps {
		cfg, err := scenario.StepConfig(i)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		log.Info("scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.String("name", cfg.Name),
		)

		trace, _, err := experiment.New(cfg, reg, log).Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Name: cfg.Name, Config: cfg, Trace: trace})
	}

	return results, nil
}

// ParameterSweep runs a base configuration over an evenly spaced range of
// one parameter.
type ParameterSweep struct {
	Base     *config.Config
	Param    string
	Min      float64
	Max      float64
	NumSteps int
	Limit    int // concurrent runs, <= 0 for no limit
}

type SweepPoint struct {
	Value  float64
	Config *config.Config
	Trace  *sim.Trace
}

// RunSweep executes a parameter sweep concurrently. Any failed run fails the
// sweep.
func RunSweep(ctx context.Context, sweep *ParameterSweep, reg *experiment.Registry) ([]SweepPoint, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("%w: sweep needs at least one step", dynamo.ErrInvalidConfig)
	}
	if _, err := sweep.Base.Param(sweep.Param); err != nil {
		return nil, err
	}

	points := make([]SweepPoint, sweep.NumSteps)
	jobs := make([]sim.Job, sweep.NumSteps)
	for i := range points {
		v := sweep.Min
		if sweep.NumSteps > 1 {
			v += float64(i) * (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)
		}
		cfg := sweep.Base.Clone()
		cfg.SetParam(sweep.Param, v)
		cfg.Name = fmt.Sprintf("%s_%s=%g", sweep.Base.Name, sweep.Param, v)
		points[i] = SweepPoint{Value: v, Config: cfg}
		jobs[i] = experiment.New(cfg, reg, nil).Job()
	}

	results, err := sim.Sweep(ctx, jobs, sweep.Limit)
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		points[i].Trace = r.Trace
	}
	return points, nil
}

// MonteCarloConfig perturbs the named parameters of a base configuration by
// a uniform relative amount in [-Perturbation, Perturbation].
type MonteCarloConfig struct {
	Base         *config.Config
	Params       []string
	Perturbation float64
	NumTrials    int
	Seed         int64
}

// MonteCarloResult holds the outcome of one trial.
type MonteCarloResult struct {
	TrialID int
	Params  map[string]float64
	Final   float64 // last plant output
	Peak    float64 // largest |y| over the run
	Metrics map[string]float64
	Stable  bool // the output stayed finite and bounded
}

// StableBound is the output magnitude above which a trial counts as
// unstable. It is checked against the peak, not the last sample.
const StableBound = 1e6

// RunMonteCarlo executes the trials one after another. A loop that blows up
// is a result, not an error; a configuration that cannot be built is.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, reg *experiment.Registry) ([]MonteCarloResult, error) {
	if cfg.NumTrials < 1 {
		return nil, fmt.Errorf("%w: need at least one trial", dynamo.ErrInvalidConfig)
	}
	nominal := make(map[string]float64, len(cfg.Params))
	for _, name := range cfg.Params {
		v, err := cfg.Base.Param(name)
		if err != nil {
			return nil, err
		}
		nominal[name] = v
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	results := make([]MonteCarloResult, 0, cfg.NumTrials)
	for trial := 0; trial < cfg.NumTrials; trial++ {
		c := cfg.Base.Clone()
		c.Name = fmt.Sprintf("%s_mc%d", cfg.Base.Name, trial)
		params := make(map[string]float64, len(cfg.Params))
		for _, name := range cfg.Params {
			v := nominal[name] * (1 + (rng.Float64()-0.5)*2*cfg.Perturbation)
			params[name] = v
			c.SetParam(name, v)
		}

		res := MonteCarloResult{TrialID: trial, Params: params, Stable: true}
		trace, _, err := experiment.New(c, reg, nil).Run(ctx)
		switch {
		case errors.Is(err, dynamo.ErrUnstable):
			res.Stable = false
		case err != nil:
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}
		if trace != nil {
			res.Final = trace.Last().Output
			res.Peak = peak(trace)
			res.Metrics = trace.Metrics
			if res.Peak > StableBound {
				res.Stable = false
			}
		}
		results = append(results, res)
	}

	return results, nil
}

func peak(trace *sim.Trace) float64 {
	var p float64
	for _, s := range trace.Samples {
		if a := math.Abs(s.Output); a > p || math.IsNaN(a) {
			p = a
		}
	}
	return p
}

// MonteCarloStats counts stable and unstable trials.
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
