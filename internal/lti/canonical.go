package lti

import (
	"math"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// Canonical first-order blocks. Each one discretizes its continuous
// transfer function with the chosen Method and returns a one-state SISO
// model whose state starts at x0.

// NewPT1 builds K / (T s + 1).
func NewPT1(k, t, ts float64, m Method, x0 float64) (*StateSpace, error) {
	if err := positive("NewPT1", "T", t); err != nil {
		return nil, err
	}
	return firstOrderBlock("NewPT1", 0, k, t, 1, ts, m, x0)
}

// NewLowPass builds the first-order low-pass K / (T s + 1).
func NewLowPass(k, t, ts float64, m Method, x0 float64) (*StateSpace, error) {
	if err := positive("NewLowPass", "T", t); err != nil {
		return nil, err
	}
	return firstOrderBlock("NewLowPass", 0, k, t, 1, ts, m, x0)
}

// NewHighPass builds the first-order high-pass K T s / (T s + 1).
func NewHighPass(k, t, ts float64, m Method, x0 float64) (*StateSpace, error) {
	if err := positive("NewHighPass", "T", t); err != nil {
		return nil, err
	}
	return firstOrderBlock("NewHighPass", k*t, 0, t, 1, ts, m, x0)
}

// NewLeadLag builds (T1 s + 1) / (T2 s + 1). T1 > T2 gives phase lead.
func NewLeadLag(t1, t2, ts float64, m Method, x0 float64) (*StateSpace, error) {
	if err := positive("NewLeadLag", "T2", t2); err != nil {
		return nil, err
	}
	if math.IsNaN(t1) || math.IsInf(t1, 0) {
		return nil, dynamo.Errorf(blockName, "NewLeadLag", dynamo.ErrInvalidConfig, "T1 must be finite, got %g", t1)
	}
	return firstOrderBlock("NewLeadLag", t1, 1, t2, 1, ts, m, x0)
}

// NewIntegrator builds K / s. The state is the running integral.
func NewIntegrator(k, ts float64, m Method, x0 float64) (*StateSpace, error) {
	return firstOrderBlock("NewIntegrator", 0, k, 1, 0, ts, m, x0)
}

// NewDerivative builds the filtered derivative K s / (T s + 1).
func NewDerivative(k, t, ts float64, m Method, x0 float64) (*StateSpace, error) {
	if err := positive("NewDerivative", "T", t); err != nil {
		return nil, err
	}
	return firstOrderBlock("NewDerivative", k, 0, t, 1, ts, m, x0)
}

func firstOrderBlock(op string, b1, b0, a1, a0, ts float64, m Method, x0 float64) (*StateSpace, error) {
	if !(ts > 0) || math.IsInf(ts, 0) {
		return nil, dynamo.Errorf(blockName, op, dynamo.ErrInvalidConfig, "sample time must be positive, got %g", ts)
	}
	fo, err := discretize(b1, b0, a1, a0, ts, m)
	if err != nil {
		return nil, &dynamo.BlockError{Block: blockName, Op: op, Wrapped: err}
	}
	return NewFromArrays(1, 1, 1,
		[]float64{fo.a},
		[]float64{fo.b},
		[]float64{fo.c},
		[]float64{fo.d},
		[]float64{x0},
	)
}

func positive(op, name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return dynamo.Errorf(blockName, op, dynamo.ErrInvalidConfig, "%s must be positive, got %g", name, v)
	}
	return nil
}
