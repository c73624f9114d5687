// Package lti implements discrete-time linear time-invariant blocks.
//
// The building block is [StateSpace], a fixed-dimension (A, B, C, D) model
// updated once per sample period. Models are built from raw arrays, from
// gonum matrices, from a z-domain transfer function (controllable canonical
// form) or from one of the canonical continuous-time blocks discretized with
// an approximation [Method]:
//
//   - [NewPT1], [NewLowPass]: K / (T s + 1)
//   - [NewHighPass]: K T s / (T s + 1)
//   - [NewLeadLag]: (T1 s + 1) / (T2 s + 1)
//   - [NewIntegrator]: K / s
//   - [NewDerivative]: K s / (T s + 1)
//
// Every method preserves the continuous DC gain.
//
// # Update Order
//
// Update computes the output from the state as it stood at the start of the
// sample and only then advances the state. Chained models therefore all see
// this tick's state:
//
//	integ, _ := lti.NewIntegrator(1, 0.01, lti.Trapezoidal, 0)
//	y, err := integ.UpdateScalar(e)
//
// [Observer] runs a Luenberger estimator over the same matrices with a
// caller-supplied correction gain.
//
// # Ownership
//
// A model owns its matrices and buffers. Clone and CopyFrom deep-copy, Move
// and MoveFrom transfer the buffers and leave the source invalid, Swap
// exchanges payloads. Operations on an invalid model fail with
// [dynamo.ErrInvalidHandle].
package lti
