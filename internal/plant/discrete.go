package plant

import (
	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/lti"
)

// Discrete is a plant given directly as a discrete-time model.
type Discrete struct {
	model *lti.StateSpace
}

// NewDiscrete takes ownership of a SISO model.
func NewDiscrete(model *lti.StateSpace) (*Discrete, error) {
	if !model.Valid() {
		return nil, dynamo.Errorf("Discrete", "New", dynamo.ErrInvalidHandle, "")
	}
	if _, nu, ny := model.Dims(); nu != 1 || ny != 1 {
		return nil, dynamo.Errorf("Discrete", "New", dynamo.ErrDimensionMismatch, "plant must be SISO, got %d-in %d-out", nu, ny)
	}
	return &Discrete{model: model}, nil
}

func (d *Discrete) Update(u float64) (float64, error) {
	return d.model.UpdateScalar(u)
}

func (d *Discrete) Reset() error {
	return d.model.Reset()
}

func (d *Discrete) State() dynamo.Vector {
	return d.model.State()
}

// Model is the wrapped model, e.g. to build an observer from.
func (d *Discrete) Model() *lti.StateSpace {
	return d.model
}
