package nonlinear

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// Rounding selects how a quantizer maps onto its grid.
type Rounding int

const (
	RoundNearest Rounding = iota
	RoundDown
	RoundUp
)

func (r Rounding) String() string {
	switch r {
	case RoundNearest:
		return "nearest"
	case RoundDown:
		return "down"
	case RoundUp:
		return "up"
	}
	return fmt.Sprintf("Rounding(%d)", int(r))
}

func ParseRounding(s string) (Rounding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nearest", "round", "math":
		return RoundNearest, nil
	case "down", "floor":
		return RoundDown, nil
	case "up", "ceil":
		return RoundUp, nil
	}
	return 0, fmt.Errorf("%w: unknown rounding %q", dynamo.ErrInvalidConfig, s)
}

func (r Rounding) apply(v float64) float64 {
	switch r {
	case RoundDown:
		return math.Floor(v)
	case RoundUp:
		return math.Ceil(v)
	default:
		return math.Round(v)
	}
}

// Quantizer maps u onto the grid offset + k*interval:
//
//	y = offset + interval * round((u - offset) / interval)
type Quantizer struct {
	offset, interval float64
	rounding         Rounding
	output           float64
}

var _ dynamo.Element = (*Quantizer)(nil)

func NewQuantizer(offset, interval float64, rounding Rounding) (*Quantizer, error) {
	q := &Quantizer{}
	if err := q.SetParameters(offset, interval, rounding); err != nil {
		return nil, err
	}
	return q, nil
}

// NewRounder quantizes to precision decimal places.
func NewRounder(precision int, rounding Rounding) (*Quantizer, error) {
	if precision < 0 {
		return nil, dynamo.Errorf("Quantizer", "NewRounder", dynamo.ErrInvalidConfig, "negative precision %d", precision)
	}
	return NewQuantizer(0, math.Pow(10, -float64(precision)), rounding)
}

func (q *Quantizer) SetParameters(offset, interval float64, rounding Rounding) error {
	if !(interval > 0) || math.IsInf(interval, 0) {
		return dynamo.Errorf("Quantizer", "SetParameters", dynamo.ErrInvalidConfig, "interval must be positive, got %g", interval)
	}
	if rounding < RoundNearest || rounding > RoundUp {
		return dynamo.Errorf("Quantizer", "SetParameters", dynamo.ErrInvalidConfig, "unknown rounding %d", int(rounding))
	}
	q.offset, q.interval, q.rounding = offset, interval, rounding
	return nil
}

func (q *Quantizer) Update(u float64) float64 {
	q.output = q.offset + q.interval*q.rounding.apply((u-q.offset)/q.interval)
	return q.output
}

func (q *Quantizer) Output() float64 { return q.output }

func (q *Quantizer) Reset() { q.output = 0 }
