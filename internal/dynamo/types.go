package dynamo

import (
	"math"
)

type Vector []float64

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Block is a fixed-rate discrete-time block. Update is called exactly once per
// sample period; Reset restores the initial condition between runs.
type Block interface {
	Update(u []float64) ([]float64, error)
	Reset() error
	Dims() (nx, nu, ny int)
}

// Element is a scalar element composed around a controller (saturation,
// dead zone, rate limiter, quantizer).
type Element interface {
	Update(u float64) float64
	Reset()
}

// System is a continuous-time plant.
type System interface {
	Derive(x Vector, u Vector, t float64) Vector
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x Vector, u Vector, t float64, dt float64) Vector
}

// Sample is one tick of a closed control loop.
type Sample struct {
	Step      int
	T         float64
	Reference float64
	Error     float64
	Command   float64 // controller output, before the actuator elements
	Control   float64 // actuator output applied to the plant
	Output    float64 // plant output
	Measured  float64 // sensor reading used to form the error
	Saturated bool
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}
