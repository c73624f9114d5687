// Package dynamo provides the shared vocabulary of the control-block library.
//
// The package defines the fundamental types, interfaces and errors used by
// the discrete-time blocks and the host-side simulator:
//
//   - [Vector]: dense signal/state vector
//   - [Block]: fixed-rate multi-input multi-output block (update, reset)
//   - [Element]: scalar memoryless (or one-sample) element
//   - [System]: continuous-time plant (dX/dt = f(X, u, t))
//   - [Integrator]: numerical integrator for continuous plants
//   - [Metric], [Observer]: per-sample hooks used by the simulator
//
// # Errors
//
// Every failing operation reports one of the sentinel errors below, possibly
// wrapped in a [BlockError] naming the operation. Match with errors.Is:
//
//	if _, err := pid.Update(e, tr); errors.Is(err, dynamo.ErrInvalidHandle) {
//	    // controller was moved from or released
//	}
//
// # Thread Safety
//
// Nothing in this library synchronizes internally. A block instance belongs
// to exactly one control loop; share it only behind external locking.
package dynamo
