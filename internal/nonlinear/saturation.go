package nonlinear

import (
	"math"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// Saturation clamps its input to [lower, upper].
type Saturation struct {
	upper, lower float64
	output       float64
}

var _ dynamo.Element = (*Saturation)(nil)

func NewSaturation(upper, lower float64) (*Saturation, error) {
	s := &Saturation{}
	if err := s.SetLimits(upper, lower); err != nil {
		return nil, err
	}
	return s, nil
}

// SetLimits requires upper > lower. On error the old limits are kept.
func (s *Saturation) SetLimits(upper, lower float64) error {
	if err := checkLimits("Saturation", upper, lower); err != nil {
		return err
	}
	s.upper, s.lower = upper, lower
	return nil
}

func (s *Saturation) Limits() (upper, lower float64) {
	return s.upper, s.lower
}

func (s *Saturation) Update(u float64) float64 {
	switch {
	case u >= s.upper:
		s.output = s.upper
	case u <= s.lower:
		s.output = s.lower
	default:
		s.output = u
	}
	return s.output
}

func (s *Saturation) Output() float64 { return s.output }

func (s *Saturation) Reset() { s.output = 0 }

// DeadZone outputs zero inside [lower, upper] and the distance to the
// nearest edge outside it.
type DeadZone struct {
	upper, lower float64
	output       float64
}

var _ dynamo.Element = (*DeadZone)(nil)

func NewDeadZone(upper, lower float64) (*DeadZone, error) {
	d := &DeadZone{}
	if err := d.SetLimits(upper, lower); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DeadZone) SetLimits(upper, lower float64) error {
	if err := checkLimits("DeadZone", upper, lower); err != nil {
		return err
	}
	d.upper, d.lower = upper, lower
	return nil
}

func (d *DeadZone) Update(u float64) float64 {
	switch {
	case u > d.upper:
		d.output = u - d.upper
	case u < d.lower:
		d.output = u - d.lower
	default:
		d.output = 0
	}
	return d.output
}

func (d *DeadZone) Output() float64 { return d.output }

func (d *DeadZone) Reset() { d.output = 0 }

func checkLimits(block string, upper, lower float64) error {
	if math.IsNaN(upper) || math.IsNaN(lower) || !(upper > lower) {
		return dynamo.Errorf(block, "SetLimits", dynamo.ErrInvalidConfig,
			"upper limit %g must exceed lower limit %g", upper, lower)
	}
	return nil
}
