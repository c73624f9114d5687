package lti

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

func TestTransferFunction_MatchesStateSpace(t *testing.T) {
	tests := []struct {
		name     string
		num, den []float64
	}{
		{"first order", []float64{0.2, 0.5}, []float64{-0.7, 1}},
		{"second order", []float64{0.1, 0.2, 0.3}, []float64{0.5, -1.2, 1}},
		{"unnormalized", []float64{1, 0, 2, 0.5}, []float64{0.1, -0.4, 0.2, 2}},
		{"static", []float64{3}, []float64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tf, err := NewTransferFunction(tt.num, tt.den)
			if err != nil {
				t.Fatal(err)
			}
			ss, err := NewFromTF(tf, nil)
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 200; i++ {
				u := math.Sin(0.1*float64(i)) + 0.5
				want, err := tf.Update(u)
				if err != nil {
					t.Fatal(err)
				}
				got, err := ss.UpdateScalar(u)
				if err != nil {
					t.Fatal(err)
				}
				if math.Abs(got-want) > 1e-9 {
					t.Fatalf("step %d: state space %g, difference equation %g", i, got, want)
				}
			}
		})
	}
}

func TestTransferFunction_DCGain(t *testing.T) {
	tf, err := NewTransferFunction([]float64{0.1, 0.2, 0.3}, []float64{0.5, -1.2, 1})
	if err != nil {
		t.Fatal(err)
	}
	want := 0.6 / 0.3
	if math.Abs(tf.DCGain()-want) > 1e-12 {
		t.Errorf("DCGain() = %g, want %g", tf.DCGain(), want)
	}

	var y float64
	for i := 0; i < 500; i++ {
		if y, err = tf.Update(1); err != nil {
			t.Fatal(err)
		}
	}
	if math.Abs(y-want) > 1e-9 {
		t.Errorf("step response settles at %g, want %g", y, want)
	}
}

func TestTransferFunction_InitialCondition(t *testing.T) {
	tf, _ := NewTransferFunction([]float64{0.2, 0}, []float64{-0.8, 1})
	// steady state of y = 0.8 y + 0.2 u for u = 1 is y = 1
	if err := tf.SetInitialCondition(1, 1); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if y, _ := tf.Update(1); math.Abs(y-1) > 1e-12 {
			t.Fatalf("step %d: %g, want 1", i, y)
		}
	}
	tf.Update(0)
	if err := tf.Reset(); err != nil {
		t.Fatal(err)
	}
	if y, _ := tf.Update(1); math.Abs(y-1) > 1e-12 {
		t.Errorf("after reset: %g, want 1", y)
	}
}

func TestTransferFunction_Invalid(t *testing.T) {
	if _, err := NewTransferFunction([]float64{1, 1}, []float64{1, 0}); !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("zero leading coefficient: got %v", err)
	}
	if _, err := NewTransferFunction([]float64{1}, []float64{1, 1}); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("length mismatch: got %v", err)
	}
	if _, err := NewFromTransferFunction(nil, nil, nil); !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("empty: got %v", err)
	}
	if _, err := NewFromTransferFunction([]float64{1, 0}, []float64{2, 0}, nil); !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("zero leading coefficient: got %v", err)
	}
	if _, err := NewFromTF(nil, nil); !errors.Is(err, dynamo.ErrInvalidHandle) {
		t.Errorf("nil tf: got %v", err)
	}
}

func TestTransferFunction_ZeroValue(t *testing.T) {
	var tf TransferFunction
	if tf.Valid() {
		t.Fatal("zero value reports valid")
	}
	if _, err := tf.Update(1); !errors.Is(err, dynamo.ErrInvalidHandle) {
		t.Errorf("Update: got %v", err)
	}
	if err := tf.Reset(); !errors.Is(err, dynamo.ErrInvalidHandle) {
		t.Errorf("Reset: got %v", err)
	}
	if err := tf.SetInitialCondition(1, 1); !errors.Is(err, dynamo.ErrInvalidHandle) {
		t.Errorf("SetInitialCondition: got %v", err)
	}
	if _, err := NewFromTF(&tf, nil); !errors.Is(err, dynamo.ErrInvalidHandle) {
		t.Errorf("NewFromTF: got %v", err)
	}
}

func TestNewFromTransferFunction_CanonicalForm(t *testing.T) {
	ss, err := NewFromTransferFunction([]float64{1, 2, 0}, []float64{0.25, -1, 1}, []float64{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	a, b, c, d := ss.Matrices()
	wantA := [][]float64{{0, 1}, {-0.25, 1}}
	for i := range wantA {
		for j := range wantA[i] {
			if a.At(i, j) != wantA[i][j] {
				t.Errorf("A[%d][%d] = %g, want %g", i, j, a.At(i, j), wantA[i][j])
			}
		}
	}
	if b.At(0, 0) != 0 || b.At(1, 0) != 1 {
		t.Errorf("B = %v", b)
	}
	if c.At(0, 0) != 1 || c.At(0, 1) != 2 || d.At(0, 0) != 0 {
		t.Errorf("C = %v, D = %v", c, d)
	}
	if y, _ := ss.UpdateScalar(0); y != 2 {
		t.Errorf("C x0 = %g, want 2", y)
	}
}
