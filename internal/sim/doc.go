// Package sim runs discrete-time control loops on the host.
//
// A [Loop] wires a controller, actuator and sensor elements, a plant and an
// optional observer, and advances them one sample per [Loop.Step]. [Loop.Run]
// records a [Trace]; [Sweep] runs independent loops concurrently.
package sim
