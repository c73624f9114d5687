package nonlinear

import (
	"math"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// RateLimiter bounds how fast its output may move: at most rising*Ts up
// and falling*Ts down per sample.
type RateLimiter struct {
	rising, falling float64
	ts              float64

	up, down float64 // per-sample step bounds

	y0, output float64
}

var _ dynamo.Element = (*RateLimiter)(nil)

// NewRateLimiter needs rising > 0 > falling (units per second) and ts > 0.
func NewRateLimiter(rising, falling, ts, y0 float64) (*RateLimiter, error) {
	r := &RateLimiter{}
	if err := r.SetLimits(rising, falling, ts); err != nil {
		return nil, err
	}
	r.SetInitialCondition(y0)
	return r, nil
}

func (r *RateLimiter) SetLimits(rising, falling, ts float64) error {
	if !(ts > 0) || math.IsInf(ts, 0) {
		return dynamo.Errorf("RateLimiter", "SetLimits", dynamo.ErrInvalidConfig, "sample time must be positive, got %g", ts)
	}
	if !(rising > 0) || !(falling < 0) {
		return dynamo.Errorf("RateLimiter", "SetLimits", dynamo.ErrInvalidConfig,
			"need rising > 0 > falling, got %g and %g", rising, falling)
	}
	r.rising, r.falling, r.ts = rising, falling, ts
	r.up, r.down = rising*ts, falling*ts
	return nil
}

// SetInitialCondition sets the output the next step is measured from and
// the value Reset returns to.
func (r *RateLimiter) SetInitialCondition(y0 float64) {
	r.y0 = y0
	r.output = y0
}

func (r *RateLimiter) Update(u float64) float64 {
	step := u - r.output
	switch {
	case step > r.up:
		r.output += r.up
	case step < r.down:
		r.output += r.down
	default:
		r.output = u
	}
	return r.output
}

func (r *RateLimiter) Output() float64 { return r.output }

func (r *RateLimiter) Reset() { r.output = r.y0 }
