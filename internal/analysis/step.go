package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// SettlingBand is the relative band around the final value used for the
// settling time.
const SettlingBand = 0.02

// StepInfo summarizes a step response. Times are in the units of the time
// column passed to AnalyzeStep.
type StepInfo struct {
	RiseTime     float64 // 10% to 90% of the final value
	Overshoot    float64 // percent of the final value
	SettlingTime float64 // first time after which y stays in the band
	SteadyState  float64 // last sample
}

// AnalyzeStep measures the response y(t) of a loop to a step applied at
// t[0]. Rise time and overshoot are zero when the response ends at zero.
func AnalyzeStep(t, y []float64) (StepInfo, error) {
	if len(t) != len(y) {
		return StepInfo{}, fmt.Errorf("%w: %d times for %d samples", dynamo.ErrDimensionMismatch, len(t), len(y))
	}
	if len(y) < 2 {
		return StepInfo{}, fmt.Errorf("%w: need at least 2 samples", dynamo.ErrInvalidConfig)
	}

	final := y[len(y)-1]
	info := StepInfo{SteadyState: final, SettlingTime: t[0]}
	if final == 0 {
		return info, nil
	}

	// work on the response normalized to a positive final value of 1
	norm := func(v float64) float64 { return v / final }

	t10, t90 := math.NaN(), math.NaN()
	peak := math.Inf(-1)
	for i, v := range y {
		n := norm(v)
		if math.IsNaN(t10) && n >= 0.1 {
			t10 = t[i]
		}
		if math.IsNaN(t90) && n >= 0.9 {
			t90 = t[i]
		}
		peak = math.Max(peak, n)
	}
	info.RiseTime = t90 - t10
	info.Overshoot = math.Max(0, (peak-1)*100)

	for i := len(y) - 1; i >= 0; i-- {
		if math.Abs(norm(y[i])-1) > SettlingBand {
			if i+1 < len(t) {
				info.SettlingTime = t[i+1]
			}
			break
		}
	}
	return info, nil
}
