package lti

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

const observerName = "Observer"

// Observer is a Luenberger state estimator
//
//	xhat[n+1] = A xhat[n] + B u[n] + L (y[n] - C xhat[n] - D u[n])
//
// L is supplied by the caller. Stability of A - L C is the caller's concern.
type Observer struct {
	sys *StateSpace
	l   *mat.Dense

	xhat, x0 *mat.VecDense

	// scratch
	u, y, yhat, du, bu, corr, next *mat.VecDense

	valid bool
}

// NewObserver returns an observer with all-zero matrices. nx must be at
// least one.
func NewObserver(nx, nu, ny int) (*Observer, error) {
	sys, err := New(nx, nu, ny)
	if err != nil {
		return nil, err
	}
	return newObserver(sys, nil, nil)
}

// NewObserverFromArrays copies row-major A, B, C, D and L (nx x ny).
func NewObserverFromArrays(nx, nu, ny int, a, b, c, d, l, x0 []float64) (*Observer, error) {
	sys, err := NewFromArrays(nx, nu, ny, a, b, c, d, nil)
	if err != nil {
		return nil, err
	}
	if len(l) != nx*ny {
		return nil, dynamo.Errorf(observerName, "NewObserverFromArrays", dynamo.ErrDimensionMismatch,
			"len(L)=%d, want %d", len(l), nx*ny)
	}
	var lm *mat.Dense
	if nx > 0 {
		lm = mat.NewDense(nx, ny, append([]float64(nil), l...))
	}
	return newObserver(sys, lm, x0)
}

// NewObserverFromMatrices copies A, B, C, D and L.
func NewObserverFromMatrices(a, b, c, d, l mat.Matrix, x0 []float64) (*Observer, error) {
	sys, err := NewFromMatrices(a, b, c, d, nil)
	if err != nil {
		return nil, err
	}
	return observerWithGain(sys, l, x0, "NewObserverFromMatrices")
}

// NewObserverFromModel copies the matrices of m. The model itself is not
// retained and its state is ignored.
func NewObserverFromModel(m *StateSpace, l mat.Matrix, x0 []float64) (*Observer, error) {
	if err := m.check("NewObserverFromModel"); err != nil {
		return nil, err
	}
	return observerWithGain(m.clone(), l, x0, "NewObserverFromModel")
}

func observerWithGain(sys *StateSpace, l mat.Matrix, x0 []float64, op string) (*Observer, error) {
	if l == nil {
		return nil, dynamo.Errorf(observerName, op, dynamo.ErrInvalidConfig, "correction matrix L is required")
	}
	r, c := l.Dims()
	if r != sys.nx || c != sys.ny {
		return nil, dynamo.Errorf(observerName, op, dynamo.ErrDimensionMismatch,
			"L is %dx%d, want %dx%d", r, c, sys.nx, sys.ny)
	}
	return newObserver(sys, mat.DenseCopyOf(l), x0)
}

func newObserver(sys *StateSpace, l *mat.Dense, x0 []float64) (*Observer, error) {
	nx, nu, ny := sys.nx, sys.nu, sys.ny
	if nx < 1 {
		return nil, dynamo.Errorf(observerName, "New", dynamo.ErrInvalidConfig, "observer needs at least one state")
	}
	if l == nil {
		l = mat.NewDense(nx, ny, nil)
	}

	o := &Observer{
		sys:   sys,
		l:     l,
		xhat:  mat.NewVecDense(nx, nil),
		x0:    mat.NewVecDense(nx, nil),
		u:     mat.NewVecDense(nu, nil),
		y:     mat.NewVecDense(ny, nil),
		yhat:  mat.NewVecDense(ny, nil),
		du:    mat.NewVecDense(ny, nil),
		bu:    mat.NewVecDense(nx, nil),
		corr:  mat.NewVecDense(nx, nil),
		next:  mat.NewVecDense(nx, nil),
		valid: true,
	}
	if x0 != nil {
		if err := o.SetState(x0); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) check(op string) error {
	if o == nil || !o.valid {
		return dynamo.Errorf(observerName, op, dynamo.ErrInvalidHandle, "")
	}
	return nil
}

// Update corrects the estimate with the measured pair (u, y) and returns the
// new estimate. The returned slice is owned by the observer.
func (o *Observer) Update(u, y []float64) ([]float64, error) {
	if err := o.check("Update"); err != nil {
		return nil, err
	}
	s := o.sys
	if len(u) != s.nu {
		return nil, dynamo.Errorf(observerName, "Update", dynamo.ErrDimensionMismatch, "len(u)=%d, nu=%d", len(u), s.nu)
	}
	if len(y) != s.ny {
		return nil, dynamo.Errorf(observerName, "Update", dynamo.ErrDimensionMismatch, "len(y)=%d, ny=%d", len(y), s.ny)
	}
	copy(o.u.RawVector().Data, u)
	copy(o.y.RawVector().Data, y)

	// innovation y - C xhat - D u
	o.yhat.MulVec(s.c, o.xhat)
	o.du.MulVec(s.d, o.u)
	o.yhat.AddVec(o.yhat, o.du)
	o.y.SubVec(o.y, o.yhat)

	o.next.MulVec(s.a, o.xhat)
	o.bu.MulVec(s.b, o.u)
	o.corr.MulVec(o.l, o.y)
	o.next.AddVec(o.next, o.bu)
	o.next.AddVec(o.next, o.corr)
	o.xhat, o.next = o.next, o.xhat

	return o.xhat.RawVector().Data, nil
}

// Estimate returns a copy of the current estimate.
func (o *Observer) Estimate() []float64 {
	if o == nil || !o.valid {
		return nil
	}
	return vecCopy(o.xhat, o.sys.nx)
}

func (o *Observer) Reset() error {
	if err := o.check("Reset"); err != nil {
		return err
	}
	o.xhat.CopyVec(o.x0)
	return nil
}

// SetState overwrites both the initial and the live estimate.
func (o *Observer) SetState(x0 []float64) error {
	if err := o.check("SetState"); err != nil {
		return err
	}
	if len(x0) != o.sys.nx {
		return dynamo.Errorf(observerName, "SetState", dynamo.ErrDimensionMismatch, "len(x0)=%d, nx=%d", len(x0), o.sys.nx)
	}
	copy(o.x0.RawVector().Data, x0)
	o.xhat.CopyVec(o.x0)
	return nil
}

// SetGain replaces L.
func (o *Observer) SetGain(l mat.Matrix) error {
	if err := o.check("SetGain"); err != nil {
		return err
	}
	if l == nil {
		return dynamo.Errorf(observerName, "SetGain", dynamo.ErrInvalidConfig, "correction matrix L is required")
	}
	r, c := l.Dims()
	if r != o.sys.nx || c != o.sys.ny {
		return dynamo.Errorf(observerName, "SetGain", dynamo.ErrDimensionMismatch,
			"L is %dx%d, want %dx%d", r, c, o.sys.nx, o.sys.ny)
	}
	o.l.Copy(l)
	return nil
}

func (o *Observer) Dims() (nx, nu, ny int) {
	if o == nil || !o.valid {
		return 0, 0, 0
	}
	return o.sys.Dims()
}

func (o *Observer) Valid() bool {
	return o != nil && o.valid
}

func (o *Observer) Clone() (*Observer, error) {
	if err := o.check("Clone"); err != nil {
		return nil, err
	}
	return o.clone(), nil
}

func (o *Observer) clone() *Observer {
	n, _ := newObserver(o.sys.clone(), mat.DenseCopyOf(o.l), nil)
	n.x0.CopyVec(o.x0)
	n.xhat.CopyVec(o.xhat)
	return n
}

func (o *Observer) CopyFrom(src *Observer) error {
	if o == nil || o == src {
		return dynamo.Errorf(observerName, "CopyFrom", dynamo.ErrInvalidHandle, "self assignment")
	}
	if err := src.check("CopyFrom"); err != nil {
		return err
	}
	*o = *src.clone()
	return nil
}

func (o *Observer) Move() (*Observer, error) {
	if err := o.check("Move"); err != nil {
		return nil, err
	}
	n := new(Observer)
	*n = *o
	*o = Observer{}
	return n, nil
}

func (o *Observer) MoveFrom(src *Observer) error {
	if o == nil || o == src {
		return dynamo.Errorf(observerName, "MoveFrom", dynamo.ErrInvalidHandle, "self assignment")
	}
	if err := src.check("MoveFrom"); err != nil {
		return err
	}
	*o = *src
	*src = Observer{}
	return nil
}

func (o *Observer) Swap(other *Observer) error {
	if o == nil || other == nil || o == other {
		return dynamo.Errorf(observerName, "Swap", dynamo.ErrInvalidHandle, "need two distinct handles")
	}
	*o, *other = *other, *o
	return nil
}

func (o *Observer) Release() {
	if o == nil {
		return
	}
	*o = Observer{}
}
