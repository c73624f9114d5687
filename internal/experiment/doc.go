// Package experiment turns a loop configuration into a runnable sim.Loop.
//
// The [Registry] maps type names from the YAML configuration (plants,
// references, actuator and sensor elements, integrators) to constructors.
// [Experiment.Build] returns fresh block instances on every call, so the
// same experiment can feed several goroutines of a sweep.
package experiment
