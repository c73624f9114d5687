package metrics

import (
	"math"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// IAE is the integral of the absolute error, sum |e| * Ts.
type IAE struct {
	name string
	ts   float64
	sum  float64
}

func NewIAE(ts float64) *IAE {
	return &IAE{name: "iae", ts: ts}
}

func (m *IAE) Name() string { return m.name }

func (m *IAE) Observe(s dynamo.Sample) {
	m.sum += math.Abs(s.Error) * m.ts
}

func (m *IAE) Value() float64 { return m.sum }

func (m *IAE) Reset() { m.sum = 0 }

// ISE is the integral of the squared error, sum e^2 * Ts.
type ISE struct {
	name string
	ts   float64
	sum  float64
}

func NewISE(ts float64) *ISE {
	return &ISE{name: "ise", ts: ts}
}

func (m *ISE) Name() string { return m.name }

func (m *ISE) Observe(s dynamo.Sample) {
	m.sum += s.Error * s.Error * m.ts
}

func (m *ISE) Value() float64 { return m.sum }

func (m *ISE) Reset() { m.sum = 0 }

// Overshoot is the peak excursion of the output past the final reference,
// in percent of that reference. It is zero while the reference is zero.
type Overshoot struct {
	name    string
	peak    float64
	lowest  float64
	final   float64
	samples int
}

func NewOvershoot() *Overshoot {
	return &Overshoot{name: "overshoot"}
}

func (m *Overshoot) Name() string { return m.name }

func (m *Overshoot) Observe(s dynamo.Sample) {
	if m.samples == 0 || s.Output > m.peak {
		m.peak = s.Output
	}
	if m.samples == 0 || s.Output < m.lowest {
		m.lowest = s.Output
	}
	m.final = s.Reference
	m.samples++
}

func (m *Overshoot) Value() float64 {
	if m.samples == 0 || m.final == 0 {
		return 0
	}
	excess := m.peak - m.final
	if m.final < 0 {
		excess = m.final - m.lowest
	}
	return math.Max(0, excess/math.Abs(m.final)*100)
}

func (m *Overshoot) Reset() {
	m.peak, m.lowest, m.final = 0, 0, 0
	m.samples = 0
}
