package lti

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// TransferFunction is a SISO discrete transfer function
//
//	H(z) = (b0 + b1 z + ... + bn z^n) / (a0 + a1 z + ... + an z^n)
//
// evaluated directly as a difference equation. Coefficients are stored
// normalized so that an == 1. The zero value is not a valid transfer
// function; build one with NewTransferFunction.
type TransferFunction struct {
	num, den []float64

	// uh[j] = u[n-1-j], yh[j] = y[n-1-j]
	uh, yh []float64
	u0, y0 float64
}

// NewTransferFunction copies num and den, given in ascending powers of z.
// Both must have the same length and the leading denominator coefficient
// must be non-zero.
func NewTransferFunction(num, den []float64) (*TransferFunction, error) {
	nb, na, err := normalize("NewTransferFunction", num, den)
	if err != nil {
		return nil, err
	}
	n := len(na) - 1
	return &TransferFunction{
		num: nb,
		den: na,
		uh:  make([]float64, n),
		yh:  make([]float64, n),
	}, nil
}

func normalize(op string, num, den []float64) ([]float64, []float64, error) {
	if len(den) == 0 {
		return nil, nil, dynamo.Errorf("TransferFunction", op, dynamo.ErrInvalidConfig, "empty denominator")
	}
	if len(num) != len(den) {
		return nil, nil, dynamo.Errorf("TransferFunction", op, dynamo.ErrDimensionMismatch,
			"len(num)=%d, len(den)=%d", len(num), len(den))
	}
	lead := den[len(den)-1]
	if lead == 0 {
		return nil, nil, dynamo.Errorf("TransferFunction", op, dynamo.ErrInvalidConfig, "leading denominator coefficient is zero")
	}
	nb := make([]float64, len(num))
	na := make([]float64, len(den))
	for i := range num {
		nb[i] = num[i] / lead
		na[i] = den[i] / lead
	}
	return nb, na, nil
}

// Order is the degree of the denominator.
func (tf *TransferFunction) Order() int {
	return len(tf.den) - 1
}

// Coefficients returns copies of the normalized numerator and denominator.
func (tf *TransferFunction) Coefficients() (num, den []float64) {
	num = append([]float64(nil), tf.num...)
	den = append([]float64(nil), tf.den...)
	return num, den
}

// DCGain is H(1).
func (tf *TransferFunction) DCGain() float64 {
	var sb, sa float64
	for i := range tf.num {
		sb += tf.num[i]
		sa += tf.den[i]
	}
	return sb / sa
}

// Valid reports whether tf was built by NewTransferFunction.
func (tf *TransferFunction) Valid() bool {
	return tf != nil && len(tf.den) > 0
}

func (tf *TransferFunction) check(op string) error {
	if !tf.Valid() {
		return dynamo.Errorf("TransferFunction", op, dynamo.ErrInvalidHandle, "transfer function is not initialized")
	}
	return nil
}

func (tf *TransferFunction) Update(u float64) (float64, error) {
	if err := tf.check("Update"); err != nil {
		return 0, err
	}
	n := tf.Order()
	y := tf.num[n] * u
	for k := 0; k < n; k++ {
		j := n - 1 - k
		y += tf.num[k]*tf.uh[j] - tf.den[k]*tf.yh[j]
	}
	for j := n - 1; j > 0; j-- {
		tf.uh[j] = tf.uh[j-1]
		tf.yh[j] = tf.yh[j-1]
	}
	if n > 0 {
		tf.uh[0] = u
		tf.yh[0] = y
	}
	return y, nil
}

// SetInitialCondition fills the input and output history with constant
// values, e.g. a steady-state operating point.
func (tf *TransferFunction) SetInitialCondition(u0, y0 float64) error {
	if err := tf.check("SetInitialCondition"); err != nil {
		return err
	}
	tf.u0, tf.y0 = u0, y0
	return tf.Reset()
}

func (tf *TransferFunction) Reset() error {
	if err := tf.check("Reset"); err != nil {
		return err
	}
	for j := range tf.uh {
		tf.uh[j] = tf.u0
		tf.yh[j] = tf.y0
	}
	return nil
}

// NewFromTransferFunction realizes num/den (ascending powers of z, equal
// length order+1) in controllable canonical form. A nil x0 starts at rest.
func NewFromTransferFunction(num, den, x0 []float64) (*StateSpace, error) {
	nb, na, err := normalize("NewFromTransferFunction", num, den)
	if err != nil {
		return nil, err
	}
	n := len(na) - 1
	bn := nb[n]

	if n == 0 {
		return NewFromMatrices(nil, nil, nil, mat.NewDense(1, 1, []float64{bn}), x0)
	}

	a := mat.NewDense(n, n, nil)
	for i := 0; i < n-1; i++ {
		a.Set(i, i+1, 1)
	}
	c := mat.NewDense(1, n, nil)
	for j := 0; j < n; j++ {
		a.Set(n-1, j, -na[j])
		c.Set(0, j, nb[j]-bn*na[j])
	}
	b := mat.NewDense(n, 1, nil)
	b.Set(n-1, 0, 1)
	d := mat.NewDense(1, 1, []float64{bn})

	return NewFromMatrices(a, b, c, d, x0)
}

// NewFromTF realizes tf in controllable canonical form.
func NewFromTF(tf *TransferFunction, x0 []float64) (*StateSpace, error) {
	if !tf.Valid() {
		return nil, dynamo.Errorf(blockName, "NewFromTF", dynamo.ErrInvalidHandle, "transfer function is not initialized")
	}
	return NewFromTransferFunction(tf.num, tf.den, x0)
}
