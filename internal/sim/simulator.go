package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/ctrlblocks/internal/control"
	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/lti"
	"github.com/san-kum/ctrlblocks/internal/plant"
)

// Loop is a single-loop feedback system sampled at a fixed rate:
//
//	r -> (+) -e-> Controller -x-> Actuator -u-> Plant -y-> Sensor -m-+
//	      ^-----------------------------------------------------------+
//
// Each tick the sensor reads the plant output of the previous tick, and the
// controller receives the previously applied actuator command as its
// tracking reference.
type Loop struct {
	Controller control.Controller
	Plant      plant.Plant
	Reference  Reference
	Actuator   []dynamo.Element
	Sensor     []dynamo.Element

	// Observer, when set, estimates the plant state from (u, y) every tick.
	Observer *lti.Observer
	// Feedback, when set, adds -K (xhat - target) to the controller output.
	// It needs an Observer.
	Feedback *control.StateFeedback

	metrics   []dynamo.Metric
	observers []dynamo.Observer

	k            int
	uPrev, yPrev float64
	xhat         []float64
}

func NewLoop(ctrl control.Controller, p plant.Plant, ref Reference) *Loop {
	return &Loop{
		Controller: ctrl,
		Plant:      p,
		Reference:  ref,
	}
}

func (l *Loop) AddMetric(m dynamo.Metric)     { l.metrics = append(l.metrics, m) }
func (l *Loop) AddObserver(o dynamo.Observer) { l.observers = append(l.observers, o) }

func (l *Loop) validate() error {
	if l.Controller == nil || l.Plant == nil || l.Reference == nil {
		return fmt.Errorf("%w: loop needs a controller, a plant and a reference", dynamo.ErrInvalidConfig)
	}
	if l.Feedback != nil {
		if l.Observer == nil {
			return fmt.Errorf("%w: state feedback needs an observer", dynamo.ErrInvalidConfig)
		}
		nx, _, _ := l.Observer.Dims()
		if fx, fu := l.Feedback.Dims(); fx != nx || fu != 1 {
			return fmt.Errorf("%w: feedback gain is %dx%d, observer has %d states", dynamo.ErrDimensionMismatch, fu, fx, nx)
		}
	}
	return nil
}

// Reset returns every block of the loop to its initial condition and
// clears the metrics.
func (l *Loop) Reset() error {
	if err := l.validate(); err != nil {
		return err
	}
	if err := l.Controller.Reset(); err != nil {
		return err
	}
	if err := l.Plant.Reset(); err != nil {
		return err
	}
	for _, el := range l.Actuator {
		el.Reset()
	}
	for _, el := range l.Sensor {
		el.Reset()
	}
	l.xhat = nil
	if l.Observer != nil {
		if err := l.Observer.Reset(); err != nil {
			return err
		}
		l.xhat = l.Observer.Estimate()
	}
	for _, m := range l.metrics {
		m.Reset()
	}
	l.k = 0
	l.uPrev, l.yPrev = 0, 0
	return nil
}

// Step advances the loop by one tick of length ts.
func (l *Loop) Step(ts float64) (dynamo.Sample, error) {
	t := float64(l.k) * ts
	s := dynamo.Sample{Step: l.k, T: t}

	s.Reference = l.Reference(t)
	s.Measured = chain(l.Sensor, l.yPrev)
	s.Error = s.Reference - s.Measured

	x, err := l.Controller.Update(s.Error, l.uPrev)
	if err != nil {
		return s, &dynamo.SimError{Time: t, Step: l.k, Wrapped: err}
	}
	if l.Feedback != nil {
		fb, err := l.Feedback.Compute(l.xhat)
		if err != nil {
			return s, &dynamo.SimError{Time: t, Step: l.k, Wrapped: err}
		}
		x += fb[0]
	}
	s.Command = x
	s.Control = chain(l.Actuator, x)
	s.Saturated = s.Control != s.Command

	y, err := l.Plant.Update(s.Control)
	if err != nil {
		return s, &dynamo.SimError{Time: t, Step: l.k, Wrapped: err}
	}
	s.Output = y

	if l.Observer != nil {
		xhat, err := l.Observer.Update([]float64{s.Control}, []float64{y})
		if err != nil {
			return s, &dynamo.SimError{Time: t, Step: l.k, Wrapped: err}
		}
		copy(l.xhat, xhat)
	}

	if !finite(s) {
		return s, &dynamo.SimError{Time: t, Step: l.k, Wrapped: dynamo.ErrUnstable}
	}

	for _, m := range l.metrics {
		m.Observe(s)
	}
	for _, o := range l.observers {
		o.OnStep(s)
	}

	l.uPrev, l.yPrev = s.Control, y
	l.k++
	return s, nil
}

// Estimate is the observer estimate after the last tick, or nil.
func (l *Loop) Estimate() []float64 {
	if l.xhat == nil {
		return nil
	}
	return append([]float64(nil), l.xhat...)
}

func chain(elements []dynamo.Element, v float64) float64 {
	for _, el := range elements {
		v = el.Update(v)
	}
	return v
}

// Run resets the loop and simulates cfg.Duration. ctx is checked between
// ticks. On error the returned trace holds the ticks completed so far.
func (l *Loop) Run(ctx context.Context, cfg Config) (*Trace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := l.Reset(); err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	trace := &Trace{
		Config:  cfg,
		Samples: make([]dynamo.Sample, 0, steps),
		Metrics: make(map[string]float64),
	}
	if l.Observer != nil {
		trace.Estimates = make([][]float64, 0, steps)
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			l.collect(trace)
			return trace, ctx.Err()
		default:
		}

		s, err := l.Step(cfg.Ts)
		if err != nil {
			l.collect(trace)
			return trace, err
		}
		trace.Samples = append(trace.Samples, s)
		if l.Observer != nil {
			trace.Estimates = append(trace.Estimates, l.Estimate())
		}
		trace.StepsTaken++
	}

	l.collect(trace)
	return trace, nil
}

func (l *Loop) collect(trace *Trace) {
	for _, m := range l.metrics {
		trace.Metrics[m.Name()] = m.Value()
	}
}
