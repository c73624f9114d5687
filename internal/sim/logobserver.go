package sim

import (
	"go.uber.org/zap"

	"github.com/san-kum/ctrlblocks/internal/control"
	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

// LogObserver writes every n-th tick to a logger at debug level, with the
// controller terms when the controller reports them.
type LogObserver struct {
	log   *zap.Logger
	terms control.TermReporter
	every int
}

var _ dynamo.Observer = (*LogObserver)(nil)

// NewLogObserver logs one tick in every. terms may be nil.
func NewLogObserver(log *zap.Logger, terms control.TermReporter, every int) *LogObserver {
	if every < 1 {
		every = 1
	}
	return &LogObserver{log: log, terms: terms, every: every}
}

func (o *LogObserver) OnStep(s dynamo.Sample) {
	if s.Step%o.every != 0 {
		return
	}
	ce := o.log.Check(zap.DebugLevel, "tick")
	if ce == nil {
		return
	}
	fields := []zap.Field{
		zap.Int("step", s.Step),
		zap.Float64("t", s.T),
		zap.Float64("r", s.Reference),
		zap.Float64("e", s.Error),
		zap.Float64("x", s.Command),
		zap.Float64("u", s.Control),
		zap.Float64("y", s.Output),
		zap.Bool("saturated", s.Saturated),
	}
	if o.terms != nil {
		t := o.terms.Terms()
		fields = append(fields,
			zap.Float64("fromP", t.FromP),
			zap.Float64("fromI", t.FromI),
			zap.Float64("fromD", t.FromD),
			zap.Float64("fromTR", t.FromTR),
			zap.Float64("fromAW", t.FromAW),
			zap.Float64("toInt", t.ToInt),
			zap.Float64("preSat", t.PreSat),
		)
	}
	ce.Write(fields...)
}
