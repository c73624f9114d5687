package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// PowerSpectrum returns the magnitude of bins 0..n/2 of the DFT of data.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	x := fft.FFTReal(data)
	ps := make([]float64, len(data)/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(x[i])
	}
	return ps
}

// DominantFrequency is the frequency in Hz of the strongest non-DC component
// of a signal sampled every ts seconds. The mean is removed first.
func DominantFrequency(data []float64, ts float64) (float64, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("%w: need at least 4 samples, got %d", dynamo.ErrInvalidConfig, len(data))
	}
	if !(ts > 0) {
		return 0, fmt.Errorf("%w: sample time must be positive, got %g", dynamo.ErrInvalidConfig, ts)
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	ps := PowerSpectrum(centered)
	best := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[best] {
			best = k
		}
	}
	return float64(best) / (float64(len(data)) * ts), nil
}
