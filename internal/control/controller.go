package control

// Controller is the per-sample contract a control loop drives: error in,
// actuator command out, with an optional tracking reference.
type Controller interface {
	Update(e, tr float64) (float64, error)
	Reset() error
}

// TermReporter is implemented by controllers that expose their internal
// per-sample terms for tracing.
type TermReporter interface {
	Terms() Terms
}

var (
	_ Controller   = (*PID)(nil)
	_ Controller   = (*None)(nil)
	_ Controller   = (*Manual)(nil)
	_ Controller   = (*Bumpless)(nil)
	_ TermReporter = (*PID)(nil)
	_ TermReporter = (*Bumpless)(nil)
)
