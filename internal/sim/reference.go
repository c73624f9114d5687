package sim

import "math"

// Reference is a setpoint signal r(t).
type Reference func(t float64) float64

func Constant(v float64) Reference {
	return func(float64) float64 { return v }
}

// Step jumps from 0 to amplitude at time at.
func Step(at, amplitude float64) Reference {
	return func(t float64) float64 {
		if t >= at {
			return amplitude
		}
		return 0
	}
}

// Ramp rises with slope from time at.
func Ramp(at, slope float64) Reference {
	return func(t float64) float64 {
		if t <= at {
			return 0
		}
		return slope * (t - at)
	}
}

// Square alternates between +amplitude and -amplitude, starting high.
func Square(period, amplitude float64) Reference {
	return func(t float64) float64 {
		if period <= 0 {
			return amplitude
		}
		if math.Mod(t, period) < period/2 {
			return amplitude
		}
		return -amplitude
	}
}

func Sine(freq, amplitude float64) Reference {
	return func(t float64) float64 {
		return amplitude * math.Sin(2*math.Pi*freq*t)
	}
}
