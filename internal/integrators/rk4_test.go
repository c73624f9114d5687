package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// oscillator is x'' = -x, or a first-order lag when u is given.
type oscillator struct{}

func (s *oscillator) Derive(x dynamo.Vector, u dynamo.Vector, t float64) dynamo.Vector {
	return dynamo.Vector{x[1], -x[0]}
}

func (s *oscillator) StateDim() int   { return 2 }
func (s *oscillator) ControlDim() int { return 0 }

// lag is x' = -x + u.
type lag struct{}

func (l *lag) Derive(x dynamo.Vector, u dynamo.Vector, t float64) dynamo.Vector {
	return dynamo.Vector{-x[0] + u[0]}
}

func (l *lag) StateDim() int   { return 1 }
func (l *lag) ControlDim() int { return 1 }

func integrate(integ dynamo.Integrator, dyn dynamo.System, x0, u dynamo.Vector, dt float64, steps int) dynamo.Vector {
	x := x0.Clone()
	for i := 0; i < steps; i++ {
		copy(x, integ.Step(dyn, x, u, float64(i)*dt, dt))
	}
	return x
}

func TestRK4Accuracy(t *testing.T) {
	dt := 0.01
	steps := 100
	x := integrate(NewRK4(), &oscillator{}, dynamo.Vector{1, 0}, nil, dt, steps)

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-8 {
		t.Errorf("velocity error too large: got %.10f, expected %.10f", x[1], expectedV)
	}
}

func TestIntegrators_ZeroOrderHold(t *testing.T) {
	want := 1 - math.Exp(-1)
	tests := []struct {
		name  string
		integ dynamo.Integrator
		tol   float64
	}{
		{"euler", NewEuler(), 1e-3},
		{"rk4", NewRK4(), 1e-9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := integrate(tt.integ, &lag{}, dynamo.Vector{0}, dynamo.Vector{1}, 0.001, 1000)
			if math.Abs(x[0]-want) > tt.tol {
				t.Errorf("x(1) = %.10f, want %.10f", x[0], want)
			}
		})
	}
}

func TestEuler_SingleStep(t *testing.T) {
	x := NewEuler().Step(&oscillator{}, dynamo.Vector{1, 2}, nil, 0, 0.5)
	if x[0] != 2 || x[1] != 1.5 {
		t.Errorf("got %v, want [2 1.5]", x)
	}
}

func TestRK4_ResizesScratch(t *testing.T) {
	integ := NewRK4()
	integ.Step(&oscillator{}, dynamo.Vector{1, 0}, nil, 0, 0.1)
	x := integ.Step(&lag{}, dynamo.Vector{0}, dynamo.Vector{1}, 0, 0.1)
	if len(x) != 1 || !x.IsValid() {
		t.Errorf("unexpected result %v", x)
	}
}
