package control_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ctrlblocks/internal/control"
	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/lti"
)

func mustPID(kp, ki, kd, ts float64, im lti.Method, tf float64, dm lti.Method) *control.PID {
	pid, err := control.NewPID(kp, ki, kd, ts, im, tf, dm)
	Expect(err).NotTo(HaveOccurred())
	return pid
}

// configured returns a controller with every optional path switched on.
func configured() *control.PID {
	pid := mustPID(1.2, 0.8, 0.05, 0.1, lti.Trapezoidal, 0.2, lti.BackwardEuler)
	Expect(pid.SetOutputSaturation(true, 1, -1)).To(Succeed())
	Expect(pid.SetAntiWindup(control.BackCalculation, 0.3)).To(Succeed())
	Expect(pid.SetTracking(true, 0.2)).To(Succeed())
	return pid
}

func drive(pid *control.PID, n int) []float64 {
	out := make([]float64, n)
	tr := 0.0
	for i := range out {
		e := 2 * math.Sin(0.15*float64(i))
		u, err := pid.Update(e, tr)
		Expect(err).NotTo(HaveOccurred())
		out[i] = u
		tr = 0.5 * u
	}
	return out
}

var _ = Describe("PID", func() {
	Describe("construction", func() {
		DescribeTable("rejects ill-posed discretizations",
			func(ts, tf float64) {
				pid, err := control.NewPID(1, 1, 1, ts, lti.ForwardEuler, tf, lti.ForwardEuler)
				Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
				Expect(pid).To(BeNil())
			},
			Entry("zero sample time", 0.0, 0.1),
			Entry("negative sample time", -0.01, 0.1),
			Entry("zero filter time constant", 0.01, 0.0),
			Entry("negative filter time constant", 0.01, -1.0),
			Entry("NaN sample time", math.NaN(), 0.1),
		)

		It("rejects an unknown approximation method", func() {
			_, err := control.NewPID(1, 1, 1, 0.1, lti.Method(12), 0.1, lti.ForwardEuler)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
		})

		It("starts with all terms at zero", func() {
			pid := mustPID(1, 2, 3, 0.01, lti.ForwardEuler, 0.1, lti.Trapezoidal)
			Expect(pid.Terms()).To(Equal(control.Terms{}))
			Expect(pid.IntegratorState()).To(BeZero())
			Expect(pid.DerivativeState()).To(BeZero())
		})
	})

	DescribeTable("gain-only mode returns Kp*e every sample",
		func(im, dm lti.Method) {
			pid := mustPID(2.5, 0, 0, 0.01, im, 0.05, dm)
			for i := 0; i < 50; i++ {
				e := math.Sin(float64(i)) * 3
				u, err := pid.Update(e, 7)
				Expect(err).NotTo(HaveOccurred())
				Expect(u).To(Equal(2.5 * e))
			}
		},
		Entry("forward/forward", lti.ForwardEuler, lti.ForwardEuler),
		Entry("backward/trapezoidal", lti.BackwardEuler, lti.Trapezoidal),
		Entry("trapezoidal/backward", lti.Trapezoidal, lti.BackwardEuler),
	)

	DescribeTable("integrates a constant error",
		func(m lti.Method, want []float64) {
			pid := mustPID(0, 1, 0, 0.1, m, 1, lti.ForwardEuler)
			for _, w := range want {
				u, err := pid.Update(1, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(u).To(BeNumerically("~", w, 1e-12))
			}
		},
		Entry("forward Euler lags one sample", lti.ForwardEuler, []float64{0, 0.1, 0.2, 0.3}),
		Entry("backward Euler", lti.BackwardEuler, []float64{0.1, 0.2, 0.3, 0.4}),
		Entry("trapezoidal", lti.Trapezoidal, []float64{0.05, 0.15, 0.25, 0.35}),
	)

	It("filters the derivative of a step", func() {
		pid := mustPID(0, 0, 1, 0.01, lti.ForwardEuler, 0.1, lti.BackwardEuler)
		first, err := pid.Update(1, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(BeNumerically(">", 0))
		var last float64
		for i := 0; i < 500; i++ {
			last, _ = pid.Update(1, 0)
		}
		Expect(last).To(BeNumerically("~", 0, 1e-9))
	})

	It("applies the initial states of both paths", func() {
		pid := mustPID(0, 1, 0, 0.1, lti.ForwardEuler, 0.1, lti.ForwardEuler)
		Expect(pid.SetInitialState(2, 0)).To(Succeed())
		u, err := pid.Update(0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(Equal(2.0))
		Expect(pid.IntegratorState()).To(Equal(2.0))
	})

	Describe("output saturation", func() {
		It("clamps to the limits", func() {
			pid := mustPID(10, 0, 0, 0.1, lti.ForwardEuler, 0.1, lti.ForwardEuler)
			Expect(pid.SetOutputSaturation(true, 1, -0.5)).To(Succeed())

			u, _ := pid.Update(1, 0)
			Expect(u).To(Equal(1.0))
			Expect(pid.Terms().PreSat).To(Equal(10.0))

			u, _ = pid.Update(-1, 0)
			Expect(u).To(Equal(-0.5))

			u, _ = pid.Update(0.01, 0)
			Expect(u).To(BeNumerically("~", 0.1, 1e-12))
		})

		It("rejects inverted or equal limits and keeps the old ones", func() {
			pid := mustPID(1, 0, 0, 0.1, lti.ForwardEuler, 0.1, lti.ForwardEuler)
			Expect(pid.SetOutputSaturation(true, 2, -2)).To(Succeed())
			Expect(pid.SetOutputSaturation(true, -1, 1)).To(MatchError(dynamo.ErrInvalidConfig))
			Expect(pid.SetOutputSaturation(true, 1, 1)).To(MatchError(dynamo.ErrInvalidConfig))

			enabled, upper, lower := pid.OutputSaturation()
			Expect(enabled).To(BeTrue())
			Expect(upper).To(Equal(2.0))
			Expect(lower).To(Equal(-2.0))
		})

		It("ignores limits when disabled", func() {
			pid := mustPID(1, 0, 0, 0.1, lti.ForwardEuler, 0.1, lti.ForwardEuler)
			Expect(pid.SetOutputSaturation(false, -1, 1)).To(Succeed())
			u, _ := pid.Update(50, 0)
			Expect(u).To(Equal(50.0))
		})
	})

	Describe("clamping anti-windup", func() {
		var pid *control.PID

		BeforeEach(func() {
			pid = mustPID(1, 1, 0, 0.1, lti.ForwardEuler, 1, lti.ForwardEuler)
			Expect(pid.SetOutputSaturation(true, 1, -1)).To(Succeed())
			Expect(pid.SetAntiWindup(control.Clamping, 0)).To(Succeed())
		})

		It("freezes the integrator while saturated against a push in the same direction", func() {
			_, err := pid.Update(10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(pid.Terms().PreSat).To(BeNumerically(">", 1))
			held := pid.IntegratorState()

			for i := 0; i < 20; i++ {
				_, err := pid.Update(10, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(pid.Terms().PreInt).To(BeNumerically(">", 0))
				Expect(pid.Terms().ToInt).To(BeZero())
				Expect(pid.IntegratorState()).To(Equal(held))
			}
		})

		It("integrates again when the error reverses", func() {
			pid.Update(10, 0)
			pid.Update(10, 0)
			held := pid.IntegratorState()

			pid.Update(-10, 0)
			Expect(pid.Terms().ToInt).To(Equal(-10.0))
			Expect(pid.IntegratorState()).To(BeNumerically("<", held))
		})

		It("winds up without anti-windup", func() {
			Expect(pid.SetAntiWindup(control.AntiWindupNone, 0)).To(Succeed())
			pid.Update(10, 0)
			before := pid.IntegratorState()
			pid.Update(10, 0)
			Expect(pid.IntegratorState()).To(BeNumerically(">", before))
		})

		It("is inactive while saturation is disabled", func() {
			Expect(pid.SetOutputSaturation(false, 0, 0)).To(Succeed())
			pid.Update(10, 0)
			pid.Update(10, 0)
			Expect(pid.Terms().ToInt).To(Equal(10.0))
		})
	})

	Describe("back-calculation anti-windup", func() {
		It("feeds back the previous saturation excess", func() {
			pid := mustPID(1, 1, 0, 0.1, lti.ForwardEuler, 1, lti.ForwardEuler)
			Expect(pid.SetOutputSaturation(true, 1, -1)).To(Succeed())
			Expect(pid.SetAntiWindup(control.BackCalculation, 0.5)).To(Succeed())

			pid.Update(10, 0)
			Expect(pid.Terms().FromAW).To(BeZero())
			Expect(pid.Terms().PreSat).To(Equal(10.0))
			Expect(pid.Terms().PostSat).To(Equal(1.0))

			pid.Update(10, 0)
			Expect(pid.Terms().FromAW).To(BeNumerically("~", 0.5*(1-10), 1e-12))
			Expect(pid.Terms().PreInt).To(BeNumerically("~", 10-4.5, 1e-12))
		})

		It("contributes nothing without saturation", func() {
			pid := mustPID(1, 1, 0, 0.1, lti.ForwardEuler, 1, lti.ForwardEuler)
			Expect(pid.SetAntiWindup(control.BackCalculation, 0.5)).To(Succeed())
			pid.Update(10, 0)
			pid.Update(10, 0)
			Expect(pid.Terms().FromAW).To(BeZero())
		})

		It("rejects unknown methods", func() {
			pid := mustPID(1, 1, 0, 0.1, lti.ForwardEuler, 1, lti.ForwardEuler)
			Expect(pid.SetAntiWindup(control.AntiWindup(9), 1)).To(MatchError(dynamo.ErrInvalidConfig))
			method, _ := pid.AntiWindup()
			Expect(method).To(Equal(control.AntiWindupNone))
		})
	})

	Describe("tracking", func() {
		It("uses the previous output, not the one being computed", func() {
			pid := mustPID(5, 0, 0, 0.1, lti.ForwardEuler, 1, lti.ForwardEuler)
			Expect(pid.SetTracking(true, 0.4)).To(Succeed())

			pid.Update(1, 1)
			Expect(pid.Terms().FromTR).To(BeNumerically("~", 0.4, 1e-12))

			pid.Update(1, 1)
			Expect(pid.Terms().FromTR).To(BeNumerically("~", 0.4*(1-5), 1e-12))
		})

		It("is bumpless when fed its own previous output", func() {
			pid := configured()
			prev := 0.0
			for i := 0; i < 200; i++ {
				e := 3 * math.Sin(0.05*float64(i))
				u, err := pid.Update(e, prev)
				Expect(err).NotTo(HaveOccurred())
				Expect(pid.Terms().FromTR).To(BeZero())
				prev = u
			}
		})
	})

	Describe("reconfiguration", func() {
		It("rebuilds and resets on SetDiscretization", func() {
			pid := configured()
			drive(pid, 30)
			Expect(pid.IntegratorState()).NotTo(BeZero())

			Expect(pid.SetDiscretization(0.05, lti.ForwardEuler, 0.5, lti.Trapezoidal)).To(Succeed())
			Expect(pid.Terms()).To(Equal(control.Terms{}))
			Expect(pid.IntegratorState()).To(BeZero())

			ts, im, tf, dm := pid.Discretization()
			Expect(ts).To(Equal(0.05))
			Expect(im).To(Equal(lti.ForwardEuler))
			Expect(tf).To(Equal(0.5))
			Expect(dm).To(Equal(lti.Trapezoidal))
		})

		It("leaves everything unchanged when SetDiscretization fails", func() {
			pid := configured()
			drive(pid, 30)
			terms := pid.Terms()
			xi := pid.IntegratorState()

			Expect(pid.SetDiscretization(0, lti.ForwardEuler, 0.5, lti.Trapezoidal)).To(MatchError(dynamo.ErrInvalidConfig))
			Expect(pid.SetDiscretization(0.1, lti.ForwardEuler, -1, lti.Trapezoidal)).To(MatchError(dynamo.ErrInvalidConfig))

			Expect(pid.Terms()).To(Equal(terms))
			Expect(pid.IntegratorState()).To(Equal(xi))
			ts, _, tf, _ := pid.Discretization()
			Expect(ts).To(Equal(0.1))
			Expect(tf).To(Equal(0.2))
		})

		It("updates gains in place", func() {
			pid := mustPID(1, 0, 0, 0.1, lti.ForwardEuler, 1, lti.ForwardEuler)
			Expect(pid.SetGains(4, 0, 0)).To(Succeed())
			u, _ := pid.Update(0.5, 0)
			Expect(u).To(Equal(2.0))
			kp, ki, kd := pid.Gains()
			Expect([]float64{kp, ki, kd}).To(Equal([]float64{4, 0, 0}))
		})

		It("tunes through GetParams/SetParam", func() {
			pid := configured()
			Expect(pid.SetParam("Kp", 3)).To(Succeed())
			Expect(pid.SetParam("Kt", 0.9)).To(Succeed())
			Expect(pid.GetParams()).To(HaveKeyWithValue("Kp", 3.0))
			Expect(pid.GetParams()).To(HaveKeyWithValue("Kt", 0.9))

			Expect(pid.SetParam("Upper", -5)).To(MatchError(dynamo.ErrInvalidConfig))
			Expect(pid.GetParams()).To(HaveKeyWithValue("Upper", 1.0))
			Expect(pid.SetParam("Gamma", 1)).To(MatchError(dynamo.ErrInvalidConfig))
		})
	})

	Describe("reset", func() {
		It("reproduces a freshly constructed controller", func() {
			pid := configured()
			Expect(pid.SetInitialState(0.3, 0)).To(Succeed())
			drive(pid, 80)
			Expect(pid.Reset()).To(Succeed())

			fresh := configured()
			Expect(fresh.SetInitialState(0.3, 0)).To(Succeed())

			Expect(drive(pid, 120)).To(Equal(drive(fresh, 120)))
		})
	})

	Describe("value semantics", func() {
		It("clones bit-identically", func() {
			a := configured()
			drive(a, 25)
			b, err := a.Clone()
			Expect(err).NotTo(HaveOccurred())
			Expect(drive(b, 60)).To(Equal(drive(a, 60)))
		})

		It("clones independently", func() {
			a := configured()
			b, _ := a.Clone()
			drive(a, 10)
			Expect(b.Terms()).To(Equal(control.Terms{}))
			Expect(b.IntegratorState()).To(BeZero())
		})

		It("moves and leaves an empty source", func() {
			a := configured()
			drive(a, 25)
			ref, _ := a.Clone()

			b, err := a.Move()
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Valid()).To(BeFalse())
			Expect(drive(b, 40)).To(Equal(drive(ref, 40)))

			_, err = a.Update(1, 0)
			Expect(err).To(MatchError(dynamo.ErrInvalidHandle))
			Expect(a.SetGains(1, 1, 1)).To(MatchError(dynamo.ErrInvalidHandle))
			Expect(a.Reset()).To(MatchError(dynamo.ErrInvalidHandle))

			Expect(a.CopyFrom(b)).To(Succeed())
			Expect(a.Valid()).To(BeTrue())
			a.Release()
			a.Release()
		})

		It("move-assigns", func() {
			a := configured()
			b := new(control.PID)
			Expect(b.MoveFrom(a)).To(Succeed())
			Expect(a.Valid()).To(BeFalse())
			Expect(b.Valid()).To(BeTrue())
			Expect(b.MoveFrom(b)).To(MatchError(dynamo.ErrInvalidHandle))
		})

		It("swaps payloads", func() {
			a := mustPID(1, 0, 0, 0.1, lti.ForwardEuler, 1, lti.ForwardEuler)
			b := mustPID(7, 0, 0, 0.1, lti.ForwardEuler, 1, lti.ForwardEuler)
			Expect(a.Swap(b)).To(Succeed())
			ua, _ := a.Update(1, 0)
			ub, _ := b.Update(1, 0)
			Expect(ua).To(Equal(7.0))
			Expect(ub).To(Equal(1.0))
			Expect(a.Swap(a)).To(MatchError(dynamo.ErrInvalidHandle))
		})

		It("reports the zero value as invalid", func() {
			var pid control.PID
			_, err := pid.Update(1, 0)
			Expect(err).To(MatchError(dynamo.ErrInvalidHandle))
			_, err = pid.Clone()
			Expect(err).To(MatchError(dynamo.ErrInvalidHandle))
		})
	})

	It("settles a PT1 plant behind an external actuator limit", func() {
		// Kp=3, Ki=0.5, Ts=1 with tracking on the applied actuator command.
		pid := mustPID(3, 0.5, 0, 1, lti.ForwardEuler, 0.01, lti.ForwardEuler)
		Expect(pid.SetTracking(true, 0.4)).To(Succeed())
		plant, err := lti.NewPT1(2, 20, 1, lti.ForwardEuler, 0)
		Expect(err).NotTo(HaveOccurred())

		var u, y float64
		for k := 0; k < 400; k++ {
			e := 1 - y
			x, err := pid.Update(e, u)
			Expect(err).NotTo(HaveOccurred())
			u = math.Max(0, math.Min(1, x))
			y, err = plant.UpdateScalar(u)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(y).To(BeNumerically("~", 1, 1e-6))
		Expect(u).To(BeNumerically("~", 0.5, 1e-6))
	})
})
