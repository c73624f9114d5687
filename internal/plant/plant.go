package plant

import "github.com/san-kum/ctrlblocks/internal/dynamo"

// Plant is a single-input single-output process sampled once per period.
type Plant interface {
	Update(u float64) (float64, error)
	Reset() error
	State() dynamo.Vector
}

var (
	_ Plant = (*Continuous)(nil)
	_ Plant = (*Discrete)(nil)
)
