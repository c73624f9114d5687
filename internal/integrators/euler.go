package integrators

import "github.com/san-kum/ctrlblocks/internal/dynamo"

// Euler is the explicit first-order integrator x + dt*f(x, u, t).
type Euler struct {
	next dynamo.Vector
}

func NewEuler() *Euler {
	return &Euler{}
}

// Step returns a slice owned by the integrator; it is overwritten by the
// next call.
func (e *Euler) Step(dyn dynamo.System, x dynamo.Vector, u dynamo.Vector, t float64, dt float64) dynamo.Vector {
	dx := dyn.Derive(x, u, t)
	if len(e.next) != len(x) {
		e.next = make(dynamo.Vector, len(x))
	}
	for i := range x {
		e.next[i] = x[i] + dt*dx[i]
	}
	return e.next
}
