package control

import (
	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// Manual outputs an operator-set command regardless of the error.
type Manual struct {
	U float64
}

func NewManual(u float64) *Manual {
	return &Manual{U: u}
}

// Set updates the manual command.
func (m *Manual) Set(u float64) {
	m.U = u
}

func (m *Manual) Update(e, tr float64) (float64, error) {
	return m.U, nil
}

func (m *Manual) Reset() error {
	return nil
}

// Bumpless switches between a manual command and a PID. In manual mode the
// PID keeps running with the manual command as its tracking reference, so
// with tracking enabled its output follows the manual value and switching to
// automatic does not step the actuator.
type Bumpless struct {
	PID    *PID
	Manual *Manual
	auto   bool
}

func NewBumpless(pid *PID, manual *Manual) (*Bumpless, error) {
	if !pid.Valid() {
		return nil, dynamo.Errorf("Bumpless", "New", dynamo.ErrInvalidHandle, "invalid PID")
	}
	if manual == nil {
		return nil, dynamo.Errorf("Bumpless", "New", dynamo.ErrInvalidConfig, "manual station is required")
	}
	return &Bumpless{PID: pid, Manual: manual}, nil
}

// SetAuto selects automatic (PID) or manual output.
func (b *Bumpless) SetAuto(auto bool) {
	b.auto = auto
}

func (b *Bumpless) Auto() bool {
	return b.auto
}

func (b *Bumpless) Update(e, tr float64) (float64, error) {
	if !b.auto {
		tr = b.Manual.U
	}
	u, err := b.PID.Update(e, tr)
	if err != nil {
		return 0, err
	}
	if !b.auto {
		return b.Manual.U, nil
	}
	return u, nil
}

func (b *Bumpless) Reset() error {
	return b.PID.Reset()
}

func (b *Bumpless) Terms() Terms {
	return b.PID.Terms()
}
