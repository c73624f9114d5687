package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// Config is the fixed-step schedule of a run.
type Config struct {
	Ts       float64
	Duration float64
}

func (c Config) Validate() error {
	if !(c.Ts > 0) || math.IsInf(c.Ts, 0) {
		return fmt.Errorf("%w: sample time must be positive, got %g", dynamo.ErrInvalidConfig, c.Ts)
	}
	if !(c.Duration > 0) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("%w: duration must be positive, got %g", dynamo.ErrInvalidConfig, c.Duration)
	}
	return nil
}

// Steps is the number of ticks in the run.
func (c Config) Steps() int {
	return int(math.Round(c.Duration / c.Ts))
}

// Trace is the record of one run.
type Trace struct {
	Config     Config
	Samples    []dynamo.Sample
	Estimates  [][]float64 // observer estimate after each tick; nil without an observer
	Metrics    map[string]float64
	StepsTaken int
}

// Column names in export order.
var Columns = []string{"t", "r", "e", "x", "u", "y", "m"}

// Column returns one signal of the trace by its export name.
func (tr *Trace) Column(name string) ([]float64, error) {
	pick, ok := columnPickers[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]float64, len(tr.Samples))
	for i, s := range tr.Samples {
		out[i] = pick(s)
	}
	return out, nil
}

var columnPickers = map[string]func(dynamo.Sample) float64{
	"t": func(s dynamo.Sample) float64 { return s.T },
	"r": func(s dynamo.Sample) float64 { return s.Reference },
	"e": func(s dynamo.Sample) float64 { return s.Error },
	"x": func(s dynamo.Sample) float64 { return s.Command },
	"u": func(s dynamo.Sample) float64 { return s.Control },
	"y": func(s dynamo.Sample) float64 { return s.Output },
	"m": func(s dynamo.Sample) float64 { return s.Measured },
}

// Row returns the exported values of sample i in Columns order.
func (tr *Trace) Row(i int) []float64 {
	s := tr.Samples[i]
	return []float64{s.T, s.Reference, s.Error, s.Command, s.Control, s.Output, s.Measured}
}

// Last is the final sample, or the zero sample for an empty trace.
func (tr *Trace) Last() dynamo.Sample {
	if len(tr.Samples) == 0 {
		return dynamo.Sample{}
	}
	return tr.Samples[len(tr.Samples)-1]
}

func finite(s dynamo.Sample) bool {
	for _, v := range []float64{s.Error, s.Command, s.Control, s.Output, s.Measured} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
