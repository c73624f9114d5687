package control

import (
	"fmt"
	"strings"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// AntiWindup selects how the integrator is kept from winding up while the
// output is saturated. It only acts when output saturation is enabled.
type AntiWindup int

const (
	AntiWindupNone AntiWindup = iota
	// Clamping freezes the integrator input while the previous raw output is
	// beyond a limit and the new input pushes further out.
	Clamping
	// BackCalculation feeds Kb * (postSat - preSat) of the previous sample
	// back into the integrator input.
	BackCalculation
)

func (a AntiWindup) String() string {
	switch a {
	case AntiWindupNone:
		return "none"
	case Clamping:
		return "clamping"
	case BackCalculation:
		return "back_calculation"
	}
	return fmt.Sprintf("AntiWindup(%d)", int(a))
}

func (a AntiWindup) valid() bool {
	return a >= AntiWindupNone && a <= BackCalculation
}

// AntiWindupMethods lists all methods in declaration order.
func AntiWindupMethods() []AntiWindup {
	return []AntiWindup{AntiWindupNone, Clamping, BackCalculation}
}

func ParseAntiWindup(s string) (AntiWindup, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return AntiWindupNone, nil
	case "clamping", "clamp", "conditional_integration":
		return Clamping, nil
	case "back_calculation", "backcalculation", "back-calculation", "backcalc":
		return BackCalculation, nil
	}
	return 0, fmt.Errorf("%w: unknown anti-windup method %q", dynamo.ErrInvalidConfig, s)
}
