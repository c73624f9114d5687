package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for block operations.
var (
	// ErrInvalidConfig indicates a rejected configuration: non-positive sample
	// time or time constant, inverted saturation limits, unknown method.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrDimensionMismatch indicates an input, output or state vector whose
	// length does not match the block dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrInvalidHandle indicates an operation on an unconstructed, moved-from
	// or released block.
	ErrInvalidHandle = errors.New("dynamo: invalid handle (block not constructed, moved or released)")

	// ErrUnstable indicates the simulated loop diverged (NaN or Inf detected).
	ErrUnstable = errors.New("dynamo: simulation unstable (signal diverged)")
)

// BlockError wraps an error with the failing block and operation.
type BlockError struct {
	Block   string
	Op      string
	Detail  string
	Wrapped error
}

func (e *BlockError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s.%s: %v", e.Block, e.Op, e.Wrapped)
	}
	return fmt.Sprintf("%s.%s: %v: %s", e.Block, e.Op, e.Wrapped, e.Detail)
}

func (e *BlockError) Unwrap() error {
	return e.Wrapped
}

// Errorf builds a BlockError around one of the sentinel errors.
func Errorf(block, op string, wrapped error, format string, args ...any) error {
	return &BlockError{
		Block:   block,
		Op:      op,
		Detail:  fmt.Sprintf(format, args...),
		Wrapped: wrapped,
	}
}

// SimError reports where a simulation run stopped.
type SimError struct {
	Time    float64
	Step    int
	Wrapped error
}

func (e *SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimError) Unwrap() error {
	return e.Wrapped
}
