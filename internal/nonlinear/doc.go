// Package nonlinear provides the scalar discontinuous elements composed
// around a controller: [Saturation], [DeadZone], [RateLimiter] and
// [Quantizer]. Each implements [dynamo.Element] and remembers its last
// output.
package nonlinear
