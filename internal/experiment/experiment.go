package experiment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ctrlblocks/internal/config"
	"github.com/san-kum/ctrlblocks/internal/control"
	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/lti"
	"github.com/san-kum/ctrlblocks/internal/metrics"
	"github.com/san-kum/ctrlblocks/internal/plant"
	"github.com/san-kum/ctrlblocks/internal/sim"
)

// Setup is one built loop. PID is nil unless the controller is a PID.
type Setup struct {
	Loop *sim.Loop
	PID  *control.PID
}

type Experiment struct {
	cfg *config.Config
	reg *Registry
	log *zap.Logger

	traceEvery int
}

func New(cfg *config.Config, reg *Registry, log *zap.Logger) *Experiment {
	if log == nil {
		log = zap.NewNop()
	}
	return &Experiment{cfg: cfg, reg: reg, log: log}
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// TraceEvery makes every built loop log one tick in n at debug level.
// n <= 0 turns tracing off.
func (e *Experiment) TraceEvery(n int) { e.traceEvery = n }

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{Ts: e.cfg.Ts, Duration: e.cfg.Duration}
}

// Build creates a fresh loop from the configuration. Blocks are never shared
// between two builds.
func (e *Experiment) Build() (*Setup, error) {
	cfg := e.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p, err := e.reg.GetPlant(cfg.Plant, cfg.Ts)
	if err != nil {
		return nil, fmt.Errorf("plant: %w", err)
	}
	ref, err := e.reg.GetReference(cfg.Reference)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}

	setup := &Setup{}
	var ctrl control.Controller = control.NewNone()
	if cfg.Controller.Type == "pid" {
		pid, err := buildPID(cfg.Controller, cfg.Ts)
		if err != nil {
			return nil, fmt.Errorf("controller: %w", err)
		}
		ctrl, setup.PID = pid, pid
	}

	loop := sim.NewLoop(ctrl, p, ref)
	if loop.Actuator, err = e.elements(cfg.Actuator, "actuator"); err != nil {
		return nil, err
	}
	if loop.Sensor, err = e.elements(cfg.Sensor, "sensor"); err != nil {
		return nil, err
	}
	if cfg.Observer != nil {
		if err := attachObserver(loop, p, cfg.Observer); err != nil {
			return nil, fmt.Errorf("observer: %w", err)
		}
	}
	for _, name := range cfg.Metrics {
		m, err := metrics.New(name, cfg.Ts)
		if err != nil {
			return nil, err
		}
		loop.AddMetric(m)
	}

	if e.traceEvery > 0 {
		var terms control.TermReporter
		if setup.PID != nil {
			terms = setup.PID
		}
		loop.AddObserver(sim.NewLogObserver(e.log, terms, e.traceEvery))
	}

	setup.Loop = loop
	e.log.Debug("loop built",
		zap.String("name", cfg.Name),
		zap.String("plant", cfg.Plant.Type),
		zap.String("controller", cfg.Controller.Type),
		zap.Int("actuator", len(loop.Actuator)),
		zap.Int("sensor", len(loop.Sensor)),
		zap.Bool("observer", loop.Observer != nil),
	)
	return setup, nil
}

// Run builds a loop and simulates it.
func (e *Experiment) Run(ctx context.Context) (*sim.Trace, *Setup, error) {
	setup, err := e.Build()
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	e.log.Info("run started", zap.String("name", e.cfg.Name), zap.Float64("ts", e.cfg.Ts), zap.Float64("duration", e.cfg.Duration))

	trace, err := setup.Loop.Run(ctx, e.SimConfig())
	if err != nil {
		e.log.Warn("run stopped", zap.String("name", e.cfg.Name), zap.Error(err))
		return trace, setup, err
	}
	e.log.Info("run finished",
		zap.String("name", e.cfg.Name),
		zap.Int("steps", trace.StepsTaken),
		zap.Duration("elapsed", time.Since(start)),
	)
	return trace, setup, nil
}

// Job wraps the experiment for sim.Sweep.
func (e *Experiment) Job() sim.Job {
	return sim.Job{
		Name: e.cfg.Name,
		Build: func() (*sim.Loop, error) {
			s, err := e.Build()
			if err != nil {
				return nil, err
			}
			return s.Loop, nil
		},
		Config: e.SimConfig(),
	}
}

func (e *Experiment) elements(cfgs []config.ElementConfig, where string) ([]dynamo.Element, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}
	out := make([]dynamo.Element, 0, len(cfgs))
	for i, ec := range cfgs {
		el, err := e.reg.GetElement(ec, e.cfg.Ts)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", where, i, err)
		}
		out = append(out, el)
	}
	return out, nil
}

func buildPID(cc config.ControllerConfig, ts float64) (*control.PID, error) {
	im, err := lti.ParseMethod(cc.IntMethod)
	if err != nil {
		return nil, err
	}
	dm, err := lti.ParseMethod(cc.DerMethod)
	if err != nil {
		return nil, err
	}
	pid, err := control.NewPID(cc.Kp, cc.Ki, cc.Kd, ts, im, cc.Tf, dm)
	if err != nil {
		return nil, err
	}
	if s := cc.Saturation; s != nil {
		if err := pid.SetOutputSaturation(true, s.Upper, s.Lower); err != nil {
			return nil, err
		}
	}
	aw, err := control.ParseAntiWindup(cc.AntiWindup)
	if err != nil {
		return nil, err
	}
	if err := pid.SetAntiWindup(aw, cc.Kb); err != nil {
		return nil, err
	}
	if err := pid.SetTracking(cc.Tracking, cc.Kt); err != nil {
		return nil, err
	}
	return pid, nil
}

// attachObserver builds the observer on the sampled plant model: the
// wrapped model of a discrete plant, the zero-order-hold equivalent of a
// continuous one.
func attachObserver(loop *sim.Loop, p plant.Plant, oc *config.ObserverConfig) error {
	var model *lti.StateSpace
	switch pt := p.(type) {
	case *plant.Discrete:
		model = pt.Model()
	case *plant.Continuous:
		m, err := pt.Discretize()
		if err != nil {
			return err
		}
		model = m
	default:
		return fmt.Errorf("%w: no sampled model for plant %T", dynamo.ErrInvalidConfig, p)
	}

	var x0 []float64
	if len(oc.X0) > 0 {
		x0 = oc.X0
	}
	obs, err := lti.NewObserverFromModel(model, mat.NewDense(len(oc.L), 1, oc.L), x0)
	if err != nil {
		return err
	}
	loop.Observer = obs

	if len(oc.Feedback) > 0 {
		fb, err := control.NewStateFeedback([][]float64{oc.Feedback}, oc.Target)
		if err != nil {
			return err
		}
		loop.Feedback = fb
	}
	return nil
}
