// Package plant provides the processes a control loop drives.
//
// [Continuous] integrates dx/dt = A x + B u with a numerical integrator
// under zero-order hold, several substeps per sample period. [Discrete]
// wraps a SISO [lti.StateSpace]. Both satisfy [Plant] and follow the block
// convention: Update returns the output for the state at the start of the
// sample, then advances.
package plant
