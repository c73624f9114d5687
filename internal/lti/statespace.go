package lti

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

const blockName = "StateSpace"

// StateSpace is a discrete-time LTI block
//
//	y[n]   = C x[n] + D u[n]
//	x[n+1] = A x[n] + B u[n]
//
// The zero value is an invalid handle; build one with a constructor.
// A, B and C are nil when the model has no states.
type StateSpace struct {
	nx, nu, ny int

	a, b, c, d *mat.Dense

	x, x0 *mat.VecDense

	// scratch, sized at construction so Update never allocates
	u, y, cx, bu, next *mat.VecDense

	valid bool
}

var _ dynamo.Block = (*StateSpace)(nil)

// New returns a model with all-zero matrices and state.
func New(nx, nu, ny int) (*StateSpace, error) {
	if nx < 0 || nu < 1 || ny < 1 {
		return nil, dynamo.Errorf(blockName, "New", dynamo.ErrInvalidConfig,
			"need nx >= 0, nu >= 1, ny >= 1, got (%d, %d, %d)", nx, nu, ny)
	}
	return alloc(nx, nu, ny), nil
}

// NewFromArrays copies row-major matrix data into a new model. A nil x0
// starts the model at rest.
func NewFromArrays(nx, nu, ny int, a, b, c, d, x0 []float64) (*StateSpace, error) {
	m, err := New(nx, nu, ny)
	if err != nil {
		return nil, err
	}
	checks := []struct {
		name string
		data []float64
		want int
	}{
		{"A", a, nx * nx},
		{"B", b, nx * nu},
		{"C", c, ny * nx},
		{"D", d, ny * nu},
	}
	for _, chk := range checks {
		if len(chk.data) != chk.want {
			return nil, dynamo.Errorf(blockName, "NewFromArrays", dynamo.ErrDimensionMismatch,
				"len(%s)=%d, want %d", chk.name, len(chk.data), chk.want)
		}
	}
	if nx > 0 {
		copy(m.a.RawMatrix().Data, a)
		copy(m.b.RawMatrix().Data, b)
		copy(m.c.RawMatrix().Data, c)
	}
	copy(m.d.RawMatrix().Data, d)

	if x0 != nil {
		if err := m.SetState(x0); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewFromMatrices copies A, B, C and D into a new model. A nil A builds a
// static gain y = D u; a nil D is read as zero.
func NewFromMatrices(a, b, c, d mat.Matrix, x0 []float64) (*StateSpace, error) {
	nx, nu, ny := 0, 0, 0
	switch {
	case a != nil:
		r, cl := a.Dims()
		if r != cl {
			return nil, dynamo.Errorf(blockName, "NewFromMatrices", dynamo.ErrDimensionMismatch, "A is %dx%d, want square", r, cl)
		}
		if b == nil || c == nil {
			return nil, dynamo.Errorf(blockName, "NewFromMatrices", dynamo.ErrDimensionMismatch, "B and C are required when A is given")
		}
		nx = r
		_, nu = b.Dims()
		ny, _ = c.Dims()
	case d != nil:
		ny, nu = d.Dims()
	default:
		return nil, dynamo.Errorf(blockName, "NewFromMatrices", dynamo.ErrInvalidConfig, "need at least A, B, C or D")
	}

	m, err := New(nx, nu, ny)
	if err != nil {
		return nil, err
	}

	if nx > 0 {
		if err := copyShaped(m.b, b, "B"); err != nil {
			return nil, err
		}
		if err := copyShaped(m.c, c, "C"); err != nil {
			return nil, err
		}
		m.a.Copy(a)
	}
	if d != nil {
		if err := copyShaped(m.d, d, "D"); err != nil {
			return nil, err
		}
	}

	if x0 != nil {
		if err := m.SetState(x0); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func copyShaped(dst *mat.Dense, src mat.Matrix, name string) error {
	wr, wc := dst.Dims()
	r, c := src.Dims()
	if r != wr || c != wc {
		return dynamo.Errorf(blockName, "NewFromMatrices", dynamo.ErrDimensionMismatch,
			"%s is %dx%d, want %dx%d", name, r, c, wr, wc)
	}
	dst.Copy(src)
	return nil
}

func alloc(nx, nu, ny int) *StateSpace {
	m := &StateSpace{
		nx:    nx,
		nu:    nu,
		ny:    ny,
		d:     mat.NewDense(ny, nu, nil),
		u:     mat.NewVecDense(nu, nil),
		y:     mat.NewVecDense(ny, nil),
		valid: true,
	}
	if nx > 0 {
		m.a = mat.NewDense(nx, nx, nil)
		m.b = mat.NewDense(nx, nu, nil)
		m.c = mat.NewDense(ny, nx, nil)
		m.x = mat.NewVecDense(nx, nil)
		m.x0 = mat.NewVecDense(nx, nil)
		m.cx = mat.NewVecDense(ny, nil)
		m.bu = mat.NewVecDense(nx, nil)
		m.next = mat.NewVecDense(nx, nil)
	}
	return m
}

func (m *StateSpace) check(op string) error {
	if m == nil || !m.valid {
		return dynamo.Errorf(blockName, op, dynamo.ErrInvalidHandle, "")
	}
	return nil
}

// Update computes y from the current state and u, then advances the state.
// The returned slice is owned by the model and overwritten by the next call.
func (m *StateSpace) Update(u []float64) ([]float64, error) {
	if err := m.load("Update", u); err != nil {
		return nil, err
	}
	m.output()
	m.advance()
	return m.y.RawVector().Data, nil
}

// UpdateScalar is Update for single-input single-output models.
func (m *StateSpace) UpdateScalar(u float64) (float64, error) {
	if err := m.check("UpdateScalar"); err != nil {
		return 0, err
	}
	if m.nu != 1 || m.ny != 1 {
		return 0, dynamo.Errorf(blockName, "UpdateScalar", dynamo.ErrDimensionMismatch,
			"model is %d-in %d-out, want SISO", m.nu, m.ny)
	}
	m.u.SetVec(0, u)
	m.output()
	m.advance()
	return m.y.AtVec(0), nil
}

// Output computes y for input u without advancing the state.
func (m *StateSpace) Output(u []float64) ([]float64, error) {
	if err := m.load("Output", u); err != nil {
		return nil, err
	}
	m.output()
	return m.y.RawVector().Data, nil
}

func (m *StateSpace) load(op string, u []float64) error {
	if err := m.check(op); err != nil {
		return err
	}
	if len(u) != m.nu {
		return dynamo.Errorf(blockName, op, dynamo.ErrDimensionMismatch, "len(u)=%d, nu=%d", len(u), m.nu)
	}
	copy(m.u.RawVector().Data, u)
	return nil
}

func (m *StateSpace) output() {
	m.y.MulVec(m.d, m.u)
	if m.nx > 0 {
		m.cx.MulVec(m.c, m.x)
		m.y.AddVec(m.y, m.cx)
	}
}

func (m *StateSpace) advance() {
	if m.nx == 0 {
		return
	}
	m.next.MulVec(m.a, m.x)
	m.bu.MulVec(m.b, m.u)
	m.next.AddVec(m.next, m.bu)
	m.x, m.next = m.next, m.x
}

// Reset restores the state to the remembered initial state.
func (m *StateSpace) Reset() error {
	if err := m.check("Reset"); err != nil {
		return err
	}
	if m.nx > 0 {
		m.x.CopyVec(m.x0)
	}
	m.y.Zero()
	return nil
}

// SetState overwrites both the initial and the live state.
func (m *StateSpace) SetState(x0 []float64) error {
	if err := m.check("SetState"); err != nil {
		return err
	}
	if len(x0) != m.nx {
		return dynamo.Errorf(blockName, "SetState", dynamo.ErrDimensionMismatch, "len(x0)=%d, nx=%d", len(x0), m.nx)
	}
	if m.nx > 0 {
		copy(m.x0.RawVector().Data, x0)
		m.x.CopyVec(m.x0)
	}
	return nil
}

// Dims reports (nx, nu, ny). An invalid handle reports zeros.
func (m *StateSpace) Dims() (nx, nu, ny int) {
	if m == nil || !m.valid {
		return 0, 0, 0
	}
	return m.nx, m.nu, m.ny
}

func (m *StateSpace) Valid() bool {
	return m != nil && m.valid
}

// State returns a copy of the live state.
func (m *StateSpace) State() []float64 {
	if !m.Valid() {
		return nil
	}
	return vecCopy(m.x, m.nx)
}

func (m *StateSpace) InitialState() []float64 {
	if !m.Valid() {
		return nil
	}
	return vecCopy(m.x0, m.nx)
}

// LastOutput returns a copy of the most recent output.
func (m *StateSpace) LastOutput() []float64 {
	if !m.Valid() {
		return nil
	}
	return vecCopy(m.y, m.ny)
}

// Matrices returns copies of A, B, C and D. A, B and C are nil for a
// stateless model.
func (m *StateSpace) Matrices() (a, b, c, d *mat.Dense) {
	if !m.Valid() {
		return nil, nil, nil, nil
	}
	return denseCopy(m.a), denseCopy(m.b), denseCopy(m.c), denseCopy(m.d)
}

func (m *StateSpace) String() string {
	if !m.Valid() {
		return "StateSpace(invalid)"
	}
	return fmt.Sprintf("StateSpace(nx=%d, nu=%d, ny=%d)", m.nx, m.nu, m.ny)
}

// Clone returns an independent deep copy.
func (m *StateSpace) Clone() (*StateSpace, error) {
	if err := m.check("Clone"); err != nil {
		return nil, err
	}
	return m.clone(), nil
}

func (m *StateSpace) clone() *StateSpace {
	n := alloc(m.nx, m.nu, m.ny)
	n.d.Copy(m.d)
	n.y.CopyVec(m.y)
	if m.nx > 0 {
		n.a.Copy(m.a)
		n.b.Copy(m.b)
		n.c.Copy(m.c)
		n.x.CopyVec(m.x)
		n.x0.CopyVec(m.x0)
	}
	return n
}

// CopyFrom replaces m with a deep copy of src. m may be a moved-from or
// released handle.
func (m *StateSpace) CopyFrom(src *StateSpace) error {
	if m == nil || m == src {
		return dynamo.Errorf(blockName, "CopyFrom", dynamo.ErrInvalidHandle, "self assignment")
	}
	if err := src.check("CopyFrom"); err != nil {
		return err
	}
	*m = *src.clone()
	return nil
}

// Move transfers ownership to a new handle and leaves m invalid.
func (m *StateSpace) Move() (*StateSpace, error) {
	if err := m.check("Move"); err != nil {
		return nil, err
	}
	n := new(StateSpace)
	*n = *m
	*m = StateSpace{}
	return n, nil
}

// MoveFrom takes ownership of src's buffers and leaves src invalid.
func (m *StateSpace) MoveFrom(src *StateSpace) error {
	if m == nil || m == src {
		return dynamo.Errorf(blockName, "MoveFrom", dynamo.ErrInvalidHandle, "self assignment")
	}
	if err := src.check("MoveFrom"); err != nil {
		return err
	}
	*m = *src
	*src = StateSpace{}
	return nil
}

// Swap exchanges the payloads of m and other without copying.
func (m *StateSpace) Swap(other *StateSpace) error {
	if m == nil || other == nil || m == other {
		return dynamo.Errorf(blockName, "Swap", dynamo.ErrInvalidHandle, "need two distinct handles")
	}
	*m, *other = *other, *m
	return nil
}

// Release drops the owned buffers. Releasing an invalid handle is a no-op.
func (m *StateSpace) Release() {
	if m == nil {
		return
	}
	*m = StateSpace{}
}

func vecCopy(v *mat.VecDense, n int) []float64 {
	out := make([]float64, n)
	if n > 0 {
		copy(out, v.RawVector().Data)
	}
	return out
}

func denseCopy(d *mat.Dense) *mat.Dense {
	if d == nil {
		return nil
	}
	return mat.DenseCopyOf(d)
}
