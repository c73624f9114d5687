package plant

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/integrators"
	"github.com/san-kum/ctrlblocks/internal/lti"
)

// Sampling describes how a continuous plant is advanced per sample.
type Sampling struct {
	Ts         float64
	Substeps   int
	Integrator dynamo.Integrator
}

// DefaultSampling uses RK4 with ten substeps.
func DefaultSampling(ts float64) Sampling {
	return Sampling{Ts: ts, Substeps: 10, Integrator: integrators.NewRK4()}
}

// Continuous is the LTI plant
//
//	dx/dt = A x + B u
//	y     = C x + D u
type Continuous struct {
	name    string
	a, b, c *mat.Dense
	d       float64

	sampling Sampling

	x, x0 dynamo.Vector
	t     float64

	u  dynamo.Vector
	dx dynamo.Vector
}

var _ dynamo.System = (*Continuous)(nil)

// NewContinuous copies A (n x n), B (n x 1) and C (1 x n).
func NewContinuous(name string, a, b, c mat.Matrix, d float64, s Sampling) (*Continuous, error) {
	n, ac := a.Dims()
	if n == 0 || n != ac {
		return nil, dynamo.Errorf("Continuous", "New", dynamo.ErrDimensionMismatch, "A is %dx%d, want square", n, ac)
	}
	if r, cl := b.Dims(); r != n || cl != 1 {
		return nil, dynamo.Errorf("Continuous", "New", dynamo.ErrDimensionMismatch, "B is %dx%d, want %dx1", r, cl, n)
	}
	if r, cl := c.Dims(); r != 1 || cl != n {
		return nil, dynamo.Errorf("Continuous", "New", dynamo.ErrDimensionMismatch, "C is %dx%d, want 1x%d", r, cl, n)
	}
	if !(s.Ts > 0) || math.IsInf(s.Ts, 0) {
		return nil, dynamo.Errorf("Continuous", "New", dynamo.ErrInvalidConfig, "sample time must be positive, got %g", s.Ts)
	}
	if s.Substeps < 1 {
		s.Substeps = 1
	}
	if s.Integrator == nil {
		s.Integrator = integrators.NewRK4()
	}
	return &Continuous{
		name:     name,
		a:        mat.DenseCopyOf(a),
		b:        mat.DenseCopyOf(b),
		c:        mat.DenseCopyOf(c),
		d:        d,
		sampling: s,
		x:        make(dynamo.Vector, n),
		x0:       make(dynamo.Vector, n),
		u:        make(dynamo.Vector, 1),
		dx:       make(dynamo.Vector, n),
	}, nil
}

// NewMassSpringDamper is m x'' + c x' + k x = F with position output.
func NewMassSpringDamper(m, c, k float64, s Sampling) (*Continuous, error) {
	if !(m > 0) {
		return nil, dynamo.Errorf("Continuous", "NewMassSpringDamper", dynamo.ErrInvalidConfig, "mass must be positive, got %g", m)
	}
	return NewContinuous("mass_spring_damper",
		mat.NewDense(2, 2, []float64{0, 1, -k / m, -c / m}),
		mat.NewDense(2, 1, []float64{0, 1 / m}),
		mat.NewDense(1, 2, []float64{1, 0}),
		0, s)
}

// NewDCMotor is the speed loop of a DC motor, tau w' + w = K v.
func NewDCMotor(gain, tau float64, s Sampling) (*Continuous, error) {
	if !(tau > 0) {
		return nil, dynamo.Errorf("Continuous", "NewDCMotor", dynamo.ErrInvalidConfig, "time constant must be positive, got %g", tau)
	}
	return NewContinuous("dc_motor",
		mat.NewDense(1, 1, []float64{-1 / tau}),
		mat.NewDense(1, 1, []float64{gain / tau}),
		mat.NewDense(1, 1, []float64{1}),
		0, s)
}

func (p *Continuous) Name() string { return p.name }

func (p *Continuous) StateDim() int   { return len(p.x) }
func (p *Continuous) ControlDim() int { return 1 }

// Derive returns A x + B u in a buffer reused by the next call.
func (p *Continuous) Derive(x dynamo.Vector, u dynamo.Vector, t float64) dynamo.Vector {
	n := len(p.dx)
	dx := mat.NewVecDense(n, p.dx)
	dx.MulVec(p.a, mat.NewVecDense(n, x))
	for i := 0; i < n; i++ {
		p.dx[i] += p.b.At(i, 0) * u[0]
	}
	return p.dx
}

// Update returns C x + D u and then integrates one sample period with u
// held constant.
func (p *Continuous) Update(u float64) (float64, error) {
	y := p.output(u)

	p.u[0] = u
	h := p.sampling.Ts / float64(p.sampling.Substeps)
	for i := 0; i < p.sampling.Substeps; i++ {
		copy(p.x, p.sampling.Integrator.Step(p, p.x, p.u, p.t, h))
		p.t += h
	}
	if !p.x.IsValid() {
		return y, dynamo.Errorf("Continuous", "Update", dynamo.ErrUnstable, "%s state %v", p.name, p.x)
	}
	return y, nil
}

func (p *Continuous) output(u float64) float64 {
	y := p.d * u
	for j, xj := range p.x {
		y += p.c.At(0, j) * xj
	}
	return y
}

func (p *Continuous) Reset() error {
	copy(p.x, p.x0)
	p.t = 0
	return nil
}

// SetState sets both the initial and the live state.
func (p *Continuous) SetState(x0 []float64) error {
	if len(x0) != len(p.x) {
		return dynamo.Errorf("Continuous", "SetState", dynamo.ErrDimensionMismatch, "len(x0)=%d, nx=%d", len(x0), len(p.x))
	}
	copy(p.x0, x0)
	copy(p.x, x0)
	return nil
}

func (p *Continuous) State() dynamo.Vector {
	return p.x.Clone()
}

// DCGain is -C A^-1 B + D, the steady-state output per unit input.
func (p *Continuous) DCGain() (float64, error) {
	var ainvb mat.Dense
	if err := ainvb.Solve(p.a, p.b); err != nil {
		return 0, dynamo.Errorf("Continuous", "DCGain", dynamo.ErrInvalidConfig, "A is singular: %v", err)
	}
	var g mat.Dense
	g.Mul(p.c, &ainvb)
	return -g.At(0, 0) + p.d, nil
}

// Discretize returns the exact zero-order-hold equivalent sampled at Ts:
// exp([[A B] [0 0]] Ts) = [[Ad Bd] [0 I]].
func (p *Continuous) Discretize() (*lti.StateSpace, error) {
	n := len(p.x)
	ts := p.sampling.Ts

	aug := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aug.Set(i, j, p.a.At(i, j)*ts)
		}
		aug.Set(i, n, p.b.At(i, 0)*ts)
	}
	var e mat.Dense
	e.Exp(aug)

	ad := mat.DenseCopyOf(e.Slice(0, n, 0, n))
	bd := mat.DenseCopyOf(e.Slice(0, n, n, n+1))
	d := mat.NewDense(1, 1, []float64{p.d})
	return lti.NewFromMatrices(ad, bd, p.c, d, p.x0)
}
