package control

import (
	"fmt"
	"math"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/lti"
)

const pidName = "PID"

// Terms is the per-sample trace of a PID update. After a call to Update it
// holds the values computed in that call; PreSat and PostSat are read back
// by the next call.
type Terms struct {
	FromP   float64
	FromI   float64
	FromD   float64
	FromTR  float64
	FromAW  float64
	PreInt  float64
	ToInt   float64
	PreSat  float64
	PostSat float64
}

// PID is a discrete PID controller whose integral and derivative paths are
// lti state-space models. Output saturation, anti-windup and tracking are
// off until enabled with their setters.
//
// The zero value is an invalid handle; use NewPID.
type PID struct {
	kp, ki, kd float64

	ts, tf               float64
	intMethod, derMethod lti.Method

	limit        bool
	upper, lower float64

	antiWindup AntiWindup
	kb         float64

	tracking bool
	kt       float64

	integrator *lti.StateSpace
	derivative *lti.StateSpace

	terms Terms
	valid bool
}

var _ dynamo.Configurable = (*PID)(nil)

// NewPID builds the integrator 1/s and the derivative filter s/(tf s + 1),
// both sampled at ts with the given approximation methods.
func NewPID(kp, ki, kd, ts float64, intMethod lti.Method, tf float64, derMethod lti.Method) (*PID, error) {
	integ, deriv, err := buildPaths(ts, intMethod, tf, derMethod)
	if err != nil {
		return nil, &dynamo.BlockError{Block: pidName, Op: "NewPID", Wrapped: err}
	}
	return &PID{
		kp:         kp,
		ki:         ki,
		kd:         kd,
		ts:         ts,
		tf:         tf,
		intMethod:  intMethod,
		derMethod:  derMethod,
		integrator: integ,
		derivative: deriv,
		valid:      true,
	}, nil
}

func buildPaths(ts float64, im lti.Method, tf float64, dm lti.Method) (*lti.StateSpace, *lti.StateSpace, error) {
	if !(ts > 0) || math.IsInf(ts, 0) {
		return nil, nil, fmt.Errorf("%w: sample time must be positive, got %g", dynamo.ErrInvalidConfig, ts)
	}
	if !(tf > 0) || math.IsInf(tf, 0) {
		return nil, nil, fmt.Errorf("%w: derivative filter time constant must be positive, got %g", dynamo.ErrInvalidConfig, tf)
	}
	integ, err := lti.NewIntegrator(1, ts, im, 0)
	if err != nil {
		return nil, nil, err
	}
	deriv, err := lti.NewDerivative(1, tf, ts, dm, 0)
	if err != nil {
		integ.Release()
		return nil, nil, err
	}
	return integ, deriv, nil
}

func (p *PID) check(op string) error {
	if p == nil || !p.valid {
		return dynamo.Errorf(pidName, op, dynamo.ErrInvalidHandle, "")
	}
	return nil
}

// Update runs one sample with error e and tracking reference tr and
// returns the (possibly saturated) controller output.
func (p *PID) Update(e, tr float64) (float64, error) {
	if err := p.check("Update"); err != nil {
		return 0, err
	}
	prevPre, prevPost := p.terms.PreSat, p.terms.PostSat
	t := &p.terms

	t.FromP = p.kp * e

	t.FromTR = 0
	if p.tracking {
		t.FromTR = p.kt * (tr - prevPost)
	}

	t.FromAW = 0
	if p.limit && p.antiWindup == BackCalculation {
		t.FromAW = p.kb * (prevPost - prevPre)
	}

	t.PreInt = p.ki*e + t.FromTR + t.FromAW

	t.ToInt = t.PreInt
	if p.limit && p.antiWindup == Clamping {
		if (prevPre > p.upper && t.PreInt > 0) || (prevPre < p.lower && t.PreInt < 0) {
			t.ToInt = 0
		}
	}

	fromI, err := p.integrator.UpdateScalar(t.ToInt)
	if err != nil {
		return 0, err
	}
	t.FromI = fromI

	fromD, err := p.derivative.UpdateScalar(p.kd * e)
	if err != nil {
		return 0, err
	}
	t.FromD = fromD

	t.PreSat = t.FromP + t.FromI + t.FromD

	t.PostSat = t.PreSat
	if p.limit {
		t.PostSat = clamp(t.PreSat, p.lower, p.upper)
	}
	return t.PostSat, nil
}

func clamp(v, lower, upper float64) float64 {
	if v >= upper {
		return upper
	}
	if v <= lower {
		return lower
	}
	return v
}

func (p *PID) SetGains(kp, ki, kd float64) error {
	if err := p.check("SetGains"); err != nil {
		return err
	}
	p.kp, p.ki, p.kd = kp, ki, kd
	return nil
}

func (p *PID) Gains() (kp, ki, kd float64) {
	return p.kp, p.ki, p.kd
}

// SetDiscretization rebuilds both internal models. On success the
// controller is reset: model states and all terms start from zero. On
// failure nothing changes.
func (p *PID) SetDiscretization(ts float64, intMethod lti.Method, tf float64, derMethod lti.Method) error {
	if err := p.check("SetDiscretization"); err != nil {
		return err
	}
	integ, deriv, err := buildPaths(ts, intMethod, tf, derMethod)
	if err != nil {
		return &dynamo.BlockError{Block: pidName, Op: "SetDiscretization", Wrapped: err}
	}
	p.integrator.Release()
	p.derivative.Release()
	p.integrator, p.derivative = integ, deriv
	p.ts, p.tf = ts, tf
	p.intMethod, p.derMethod = intMethod, derMethod
	p.terms = Terms{}
	return nil
}

func (p *PID) Discretization() (ts float64, intMethod lti.Method, tf float64, derMethod lti.Method) {
	return p.ts, p.intMethod, p.tf, p.derMethod
}

// SetInitialState sets the initial (and live) states of the integrator and
// derivative models.
func (p *PID) SetInitialState(xi0, xd0 float64) error {
	if err := p.check("SetInitialState"); err != nil {
		return err
	}
	if err := p.integrator.SetState([]float64{xi0}); err != nil {
		return err
	}
	return p.derivative.SetState([]float64{xd0})
}

// Reset returns both models to their initial states and zeroes all terms.
func (p *PID) Reset() error {
	if err := p.check("Reset"); err != nil {
		return err
	}
	if err := p.integrator.Reset(); err != nil {
		return err
	}
	if err := p.derivative.Reset(); err != nil {
		return err
	}
	p.terms = Terms{}
	return nil
}

// SetOutputSaturation enables or disables the output clamp. Enabling
// requires upper > lower.
func (p *PID) SetOutputSaturation(enabled bool, upper, lower float64) error {
	if err := p.check("SetOutputSaturation"); err != nil {
		return err
	}
	if enabled {
		if !(upper > lower) {
			return dynamo.Errorf(pidName, "SetOutputSaturation", dynamo.ErrInvalidConfig,
				"upper limit %g must exceed lower limit %g", upper, lower)
		}
		p.upper, p.lower = upper, lower
	}
	p.limit = enabled
	return nil
}

func (p *PID) OutputSaturation() (enabled bool, upper, lower float64) {
	return p.limit, p.upper, p.lower
}

// SetAntiWindup selects the anti-windup method; kb is used by
// BackCalculation only.
func (p *PID) SetAntiWindup(method AntiWindup, kb float64) error {
	if err := p.check("SetAntiWindup"); err != nil {
		return err
	}
	if !method.valid() {
		return dynamo.Errorf(pidName, "SetAntiWindup", dynamo.ErrInvalidConfig, "unknown method %d", int(method))
	}
	p.antiWindup, p.kb = method, kb
	return nil
}

func (p *PID) AntiWindup() (AntiWindup, float64) {
	return p.antiWindup, p.kb
}

// SetTracking enables tracking of an external reference with gain kt.
func (p *PID) SetTracking(enabled bool, kt float64) error {
	if err := p.check("SetTracking"); err != nil {
		return err
	}
	p.tracking, p.kt = enabled, kt
	return nil
}

func (p *PID) Tracking() (enabled bool, kt float64) {
	return p.tracking, p.kt
}

// Terms returns the values computed by the most recent Update.
func (p *PID) Terms() Terms {
	if p == nil {
		return Terms{}
	}
	return p.terms
}

// Output is the most recent saturated output.
func (p *PID) Output() float64 {
	return p.Terms().PostSat
}

func (p *PID) IntegratorState() float64 {
	if !p.Valid() {
		return 0
	}
	return p.integrator.State()[0]
}

func (p *PID) DerivativeState() float64 {
	if !p.Valid() {
		return 0
	}
	return p.derivative.State()[0]
}

func (p *PID) Valid() bool {
	return p != nil && p.valid
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":    p.kp,
		"Ki":    p.ki,
		"Kd":    p.kd,
		"Kb":    p.kb,
		"Kt":    p.kt,
		"Upper": p.upper,
		"Lower": p.lower,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	if err := p.check("SetParam"); err != nil {
		return err
	}
	switch name {
	case "Kp":
		p.kp = value
	case "Ki":
		p.ki = value
	case "Kd":
		p.kd = value
	case "Kb":
		p.kb = value
	case "Kt":
		p.kt = value
	case "Upper":
		if p.limit {
			return p.SetOutputSaturation(true, value, p.lower)
		}
		p.upper = value
	case "Lower":
		if p.limit {
			return p.SetOutputSaturation(true, p.upper, value)
		}
		p.lower = value
	default:
		return dynamo.Errorf(pidName, "SetParam", dynamo.ErrInvalidConfig, "unknown parameter %q", name)
	}
	return nil
}

// Clone returns an independent deep copy including model states and terms.
func (p *PID) Clone() (*PID, error) {
	if err := p.check("Clone"); err != nil {
		return nil, err
	}
	return p.clone()
}

func (p *PID) clone() (*PID, error) {
	n := *p
	integ, err := p.integrator.Clone()
	if err != nil {
		return nil, err
	}
	deriv, err := p.derivative.Clone()
	if err != nil {
		return nil, err
	}
	n.integrator, n.derivative = integ, deriv
	return &n, nil
}

func (p *PID) CopyFrom(src *PID) error {
	if p == nil || p == src {
		return dynamo.Errorf(pidName, "CopyFrom", dynamo.ErrInvalidHandle, "self assignment")
	}
	if err := src.check("CopyFrom"); err != nil {
		return err
	}
	n, err := src.clone()
	if err != nil {
		return err
	}
	*p = *n
	return nil
}

// Move transfers the controller to a new handle and leaves p invalid.
func (p *PID) Move() (*PID, error) {
	if err := p.check("Move"); err != nil {
		return nil, err
	}
	n := new(PID)
	*n = *p
	*p = PID{}
	return n, nil
}

func (p *PID) MoveFrom(src *PID) error {
	if p == nil || p == src {
		return dynamo.Errorf(pidName, "MoveFrom", dynamo.ErrInvalidHandle, "self assignment")
	}
	if err := src.check("MoveFrom"); err != nil {
		return err
	}
	*p = *src
	*src = PID{}
	return nil
}

func (p *PID) Swap(other *PID) error {
	if p == nil || other == nil || p == other {
		return dynamo.Errorf(pidName, "Swap", dynamo.ErrInvalidHandle, "need two distinct handles")
	}
	*p, *other = *other, *p
	return nil
}

// Release drops both internal models. Releasing an invalid handle is a
// no-op.
func (p *PID) Release() {
	if p == nil {
		return
	}
	p.integrator.Release()
	p.derivative.Release()
	*p = PID{}
}
