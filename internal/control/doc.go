// Package control provides the discrete-time controllers driven by a
// control loop.
//
// Controllers implement [Controller]: error and tracking reference in,
// actuator command out, once per sample period.
//
//   - [PID]: state-space PID with output saturation, anti-windup and tracking
//   - [Bumpless]: manual/automatic station around a tracking PID
//   - [Manual]: fixed operator command
//   - [None]: open loop (zero command)
//
// [StateFeedback] computes u = -K (x - target) from a (possibly estimated)
// state vector.
//
// # Usage
//
//	pid, err := control.NewPID(3, 0.5, 0, 1, lti.ForwardEuler, 0.01, lti.ForwardEuler)
//	if err != nil {
//	    return err
//	}
//	pid.SetOutputSaturation(true, 1, 0)
//	pid.SetAntiWindup(control.Clamping, 0)
//	u, err := pid.Update(r-y, uPrev)
//
// Each PID update runs, in order: proportional term, tracking and
// back-calculation corrections from the previous sample's outputs, the
// clamping gate, the integrator, the derivative filter, and finally the
// output clamp.
//
// [PID] implements [dynamo.Configurable] for live tuning.
package control
