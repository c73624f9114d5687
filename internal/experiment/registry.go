package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/ctrlblocks/internal/config"
	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/integrators"
	"github.com/san-kum/ctrlblocks/internal/lti"
	"github.com/san-kum/ctrlblocks/internal/nonlinear"
	"github.com/san-kum/ctrlblocks/internal/plant"
	"github.com/san-kum/ctrlblocks/internal/sim"
)

type (
	plantFactory     func(pc config.PlantConfig, ts float64, r *Registry) (plant.Plant, error)
	referenceFactory func(rc config.ReferenceConfig) sim.Reference
	elementFactory   func(ec config.ElementConfig, ts float64) (dynamo.Element, error)
)

// Registry maps configuration type names to block constructors. Every Get
// call returns a new instance.
type Registry struct {
	plants      map[string]plantFactory
	references  map[string]referenceFactory
	elements    map[string]elementFactory
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		plants:      make(map[string]plantFactory),
		references:  make(map[string]referenceFactory),
		elements:    make(map[string]elementFactory),
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.plants["pt1"] = func(pc config.PlantConfig, ts float64, _ *Registry) (plant.Plant, error) {
		m, err := method(pc.Method)
		if err != nil {
			return nil, err
		}
		return discrete(lti.NewPT1(pc.Gain, pc.TimeConstant, ts, m, first(pc.X0)))
	}
	r.plants["lead_lag"] = func(pc config.PlantConfig, ts float64, _ *Registry) (plant.Plant, error) {
		m, err := method(pc.Method)
		if err != nil {
			return nil, err
		}
		return discrete(lti.NewLeadLag(pc.TimeConstant, pc.TimeConstant2, ts, m, first(pc.X0)))
	}
	r.plants["integrator"] = func(pc config.PlantConfig, ts float64, _ *Registry) (plant.Plant, error) {
		m, err := method(pc.Method)
		if err != nil {
			return nil, err
		}
		return discrete(lti.NewIntegrator(pc.Gain, ts, m, first(pc.X0)))
	}
	r.plants["transfer_function"] = func(pc config.PlantConfig, _ float64, _ *Registry) (plant.Plant, error) {
		return discrete(lti.NewFromTransferFunction(padNum(pc.Num, len(pc.Den)), pc.Den, pc.X0))
	}
	r.plants["mass_spring_damper"] = func(pc config.PlantConfig, ts float64, r *Registry) (plant.Plant, error) {
		s, err := r.sampling(pc, ts)
		if err != nil {
			return nil, err
		}
		p, err := plant.NewMassSpringDamper(pc.Mass, pc.Damping, pc.Stiffness, s)
		if err != nil {
			return nil, err
		}
		return withState(p, pc.X0)
	}
	r.plants["dc_motor"] = func(pc config.PlantConfig, ts float64, r *Registry) (plant.Plant, error) {
		s, err := r.sampling(pc, ts)
		if err != nil {
			return nil, err
		}
		p, err := plant.NewDCMotor(pc.Gain, pc.TimeConstant, s)
		if err != nil {
			return nil, err
		}
		return withState(p, pc.X0)
	}

	r.references["constant"] = func(rc config.ReferenceConfig) sim.Reference { return sim.Constant(rc.Amplitude) }
	r.references["step"] = func(rc config.ReferenceConfig) sim.Reference { return sim.Step(rc.At, rc.Amplitude) }
	r.references["ramp"] = func(rc config.ReferenceConfig) sim.Reference { return sim.Ramp(rc.At, rc.Slope) }
	r.references["square"] = func(rc config.ReferenceConfig) sim.Reference { return sim.Square(rc.Period, rc.Amplitude) }
	r.references["sine"] = func(rc config.ReferenceConfig) sim.Reference { return sim.Sine(rc.Frequency, rc.Amplitude) }

	r.elements["saturation"] = func(ec config.ElementConfig, _ float64) (dynamo.Element, error) {
		return element(nonlinear.NewSaturation(ec.Upper, ec.Lower))
	}
	r.elements["deadzone"] = func(ec config.ElementConfig, _ float64) (dynamo.Element, error) {
		return element(nonlinear.NewDeadZone(ec.Upper, ec.Lower))
	}
	r.elements["rate_limiter"] = func(ec config.ElementConfig, ts float64) (dynamo.Element, error) {
		return element(nonlinear.NewRateLimiter(ec.Rising, ec.Falling, ts, ec.Y0))
	}
	r.elements["quantizer"] = func(ec config.ElementConfig, _ float64) (dynamo.Element, error) {
		rounding, err := nonlinear.ParseRounding(ec.Rounding)
		if err != nil {
			return nil, err
		}
		return element(nonlinear.NewQuantizer(ec.Offset, ec.Interval, rounding))
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }

	return r
}

func (r *Registry) GetPlant(pc config.PlantConfig, ts float64) (plant.Plant, error) {
	fn, ok := r.plants[pc.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown plant: %s", dynamo.ErrInvalidConfig, pc.Type)
	}
	return fn(pc, ts, r)
}

func (r *Registry) GetReference(rc config.ReferenceConfig) (sim.Reference, error) {
	fn, ok := r.references[rc.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown reference: %s", dynamo.ErrInvalidConfig, rc.Type)
	}
	return fn(rc), nil
}

func (r *Registry) GetElement(ec config.ElementConfig, ts float64) (dynamo.Element, error) {
	fn, ok := r.elements[ec.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown element: %s", dynamo.ErrInvalidConfig, ec.Type)
	}
	return fn(ec, ts)
}

// GetIntegrator defaults to rk4 for an empty name.
func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	if name == "" {
		name = "rk4"
	}
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator: %s", dynamo.ErrInvalidConfig, name)
	}
	return fn(), nil
}

func (r *Registry) ListPlants() []string      { return keys(r.plants) }
func (r *Registry) ListReferences() []string  { return keys(r.references) }
func (r *Registry) ListElements() []string    { return keys(r.elements) }
func (r *Registry) ListIntegrators() []string { return keys(r.integrators) }

func (r *Registry) sampling(pc config.PlantConfig, ts float64) (plant.Sampling, error) {
	integ, err := r.GetIntegrator(pc.Integrator)
	if err != nil {
		return plant.Sampling{}, err
	}
	s := plant.DefaultSampling(ts)
	s.Integrator = integ
	if pc.Substeps > 0 {
		s.Substeps = pc.Substeps
	}
	return s, nil
}

func keys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// method defaults to forward Euler for an empty name.
func method(name string) (lti.Method, error) {
	if name == "" {
		return lti.ForwardEuler, nil
	}
	return lti.ParseMethod(name)
}

func first(x0 []float64) float64 {
	if len(x0) == 0 {
		return 0
	}
	return x0[0]
}

func discrete(m *lti.StateSpace, err error) (plant.Plant, error) {
	if err != nil {
		return nil, err
	}
	p, err := plant.NewDiscrete(m)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func withState(p *plant.Continuous, x0 []float64) (plant.Plant, error) {
	if x0 != nil {
		if err := p.SetState(x0); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// element never returns a non-nil interface holding a nil pointer.
func element(e dynamo.Element, err error) (dynamo.Element, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

// padNum fills a strictly proper numerator with zero high-power
// coefficients up to the denominator length. A longer numerator is left
// alone and rejected by the realization.
func padNum(num []float64, n int) []float64 {
	if len(num) >= n {
		return num
	}
	out := make([]float64, n)
	copy(out, num)
	return out
}
