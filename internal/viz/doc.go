// Package viz is the live terminal view of a running loop, built on Bubble
// Tea.
//
//   - [Model]: steps a loop on a timer, plots r, y and u with asciigraph and
//     shows the PID terms next to the plot
//   - [Menu]: preset picker that starts a [Model]
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset the loop to its initial condition
//	Tab   - Select the next PID parameter
//	Up/K  - Increase the parameter by 5%
//	Down/J- Decrease the parameter by 5%
//	Q     - Quit
//
// Tuning goes through PID.SetParam, so the new gains apply from the next
// sample without resetting the controller state.
package viz
