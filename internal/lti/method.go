package lti

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// Method selects the s-to-z substitution used to discretize a
// continuous-time block.
type Method int

const (
	// ForwardEuler substitutes s = (z - 1) / Ts.
	ForwardEuler Method = iota
	// BackwardEuler substitutes s = (z - 1) / (z * Ts).
	BackwardEuler
	// Trapezoidal (Tustin) substitutes s = (2 / Ts) * (z - 1) / (z + 1).
	Trapezoidal
)

var methodNames = map[Method]string{
	ForwardEuler:  "forward_euler",
	BackwardEuler: "backward_euler",
	Trapezoidal:   "trapezoidal",
}

var methodAliases = map[string]Method{
	"forward_euler":  ForwardEuler,
	"forward":        ForwardEuler,
	"euler":          ForwardEuler,
	"fe":             ForwardEuler,
	"backward_euler": BackwardEuler,
	"backward":       BackwardEuler,
	"be":             BackwardEuler,
	"trapezoidal":    Trapezoidal,
	"tustin":         Trapezoidal,
	"bilinear":       Trapezoidal,
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Methods lists every supported approximation in declaration order.
func Methods() []Method {
	return []Method{ForwardEuler, BackwardEuler, Trapezoidal}
}

// ParseMethod accepts the canonical names and the usual aliases
// (euler, tustin, bilinear, ...), case-insensitive.
func ParseMethod(s string) (Method, error) {
	m, ok := methodAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown approximation method %q", dynamo.ErrInvalidConfig, s)
	}
	return m, nil
}

// theta is the weight in s = (z - 1) / (Ts * (theta*z + 1 - theta)).
func (m Method) theta() (float64, bool) {
	switch m {
	case ForwardEuler:
		return 0, true
	case BackwardEuler:
		return 1, true
	case Trapezoidal:
		return 0.5, true
	}
	return 0, false
}

// firstOrder is a one-state discrete realization with C = 1.
type firstOrder struct {
	a, b, c, d float64
}

// discretize maps H(s) = (b1*s + b0) / (a1*s + a0) onto
// H(z) = (n1*z + n0) / (d1*z + d0) and realizes it with one state.
//
// H(z=1) = b0/a0 for every method, so the DC gain of the continuous block
// survives discretization.
func discretize(b1, b0, a1, a0, ts float64, m Method) (firstOrder, error) {
	theta, ok := m.theta()
	if !ok {
		return firstOrder{}, fmt.Errorf("%w: unknown approximation method %d", dynamo.ErrInvalidConfig, int(m))
	}
	if !(ts > 0) || math.IsInf(ts, 0) {
		return firstOrder{}, fmt.Errorf("%w: sample time must be positive, got %g", dynamo.ErrInvalidConfig, ts)
	}

	n1 := b1 + b0*ts*theta
	n0 := -b1 + b0*ts*(1-theta)
	d1 := a1 + a0*ts*theta
	d0 := -a1 + a0*ts*(1-theta)

	if d1 == 0 {
		return firstOrder{}, fmt.Errorf("%w: %s realization is not causal (leading denominator coefficient is zero)", dynamo.ErrInvalidConfig, m)
	}

	alpha := d0 / d1
	beta1 := n1 / d1
	beta0 := n0 / d1

	return firstOrder{
		a: -alpha,
		b: beta0 - beta1*alpha,
		c: 1,
		d: beta1,
	}, nil
}
