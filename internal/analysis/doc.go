// Package analysis characterizes recorded loop signals.
//
//   - [PowerSpectrum] and [DominantFrequency] find limit cycles and
//     oscillations in a trace, for example a loop hunting around a quantized
//     sensor.
//   - [AnalyzeStep] reports rise time, overshoot and settling time of a step
//     response.
//
// The spectrum is computed with github.com/mjibson/go-dsp/fft, which accepts
// any input length.
package analysis
