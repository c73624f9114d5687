package metrics

import (
	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// SaturationRatio is the fraction of ticks in which the actuator changed
// the controller command.
type SaturationRatio struct {
	name      string
	saturated int
	samples   int
}

func NewSaturationRatio() *SaturationRatio {
	return &SaturationRatio{
		name: "saturation_ratio",
	}
}

func (s *SaturationRatio) Name() string {
	return s.name
}

func (s *SaturationRatio) Observe(sample dynamo.Sample) {
	s.samples++
	if sample.Saturated {
		s.saturated++
	}
}

func (s *SaturationRatio) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *SaturationRatio) Reset() {
	s.saturated = 0
	s.samples = 0
}
