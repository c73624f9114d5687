package control

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// StateFeedback computes u = -K (x - target) with a caller-supplied gain.
type StateFeedback struct {
	k      *mat.Dense
	target *mat.VecDense

	x, dx, u *mat.VecDense
}

// NewStateFeedback takes K as rows (one per control input). A nil target
// regulates to the origin.
func NewStateFeedback(k [][]float64, target []float64) (*StateFeedback, error) {
	if len(k) == 0 || len(k[0]) == 0 {
		return nil, dynamo.Errorf("StateFeedback", "New", dynamo.ErrInvalidConfig, "empty gain matrix")
	}
	nu, nx := len(k), len(k[0])
	data := make([]float64, 0, nu*nx)
	for i, row := range k {
		if len(row) != nx {
			return nil, dynamo.Errorf("StateFeedback", "New", dynamo.ErrDimensionMismatch,
				"row %d has %d columns, want %d", i, len(row), nx)
		}
		data = append(data, row...)
	}
	if target == nil {
		target = make([]float64, nx)
	}
	if len(target) != nx {
		return nil, dynamo.Errorf("StateFeedback", "New", dynamo.ErrDimensionMismatch,
			"len(target)=%d, nx=%d", len(target), nx)
	}
	return &StateFeedback{
		k:      mat.NewDense(nu, nx, data),
		target: mat.NewVecDense(nx, append([]float64(nil), target...)),
		x:      mat.NewVecDense(nx, nil),
		dx:     mat.NewVecDense(nx, nil),
		u:      mat.NewVecDense(nu, nil),
	}, nil
}

// Compute returns the control vector for state x. The slice is reused by
// the next call.
func (s *StateFeedback) Compute(x []float64) ([]float64, error) {
	nu, nx := s.k.Dims()
	if len(x) != nx {
		return nil, dynamo.Errorf("StateFeedback", "Compute", dynamo.ErrDimensionMismatch, "len(x)=%d, nx=%d", len(x), nx)
	}
	copy(s.x.RawVector().Data, x)
	s.dx.SubVec(s.x, s.target)
	s.u.MulVec(s.k, s.dx)
	s.u.ScaleVec(-1, s.u)
	return s.u.RawVector().Data[:nu], nil
}

// Dims reports (nx, nu).
func (s *StateFeedback) Dims() (nx, nu int) {
	nu, nx = s.k.Dims()
	return nx, nu
}

// SetTarget moves the regulation point.
func (s *StateFeedback) SetTarget(target []float64) error {
	nx, _ := s.Dims()
	if len(target) != nx {
		return dynamo.Errorf("StateFeedback", "SetTarget", dynamo.ErrDimensionMismatch, "len(target)=%d, nx=%d", len(target), nx)
	}
	copy(s.target.RawVector().Data, target)
	return nil
}
