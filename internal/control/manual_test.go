package control_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ctrlblocks/internal/control"
	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/lti"
)

var _ = Describe("Bumpless", func() {
	var (
		pid    *control.PID
		manual *control.Manual
		b      *control.Bumpless
	)

	BeforeEach(func() {
		pid = mustPID(1, 1, 0, 0.1, lti.ForwardEuler, 1, lti.ForwardEuler)
		Expect(pid.SetTracking(true, 2)).To(Succeed())
		manual = control.NewManual(0.7)

		var err error
		b, err = control.NewBumpless(pid, manual)
		Expect(err).NotTo(HaveOccurred())
	})

	It("outputs the manual command while in manual", func() {
		for i := 0; i < 10; i++ {
			u, err := b.Update(0.3, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(Equal(0.7))
		}
		Expect(b.Auto()).To(BeFalse())
	})

	It("hands over to the PID without a step", func() {
		for i := 0; i < 300; i++ {
			_, err := b.Update(0, 0)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(b.Terms().PostSat).To(BeNumerically("~", 0.7, 1e-9))

		b.SetAuto(true)
		u, err := b.Update(0, 0.7)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeNumerically("~", 0.7, 1e-9))
	})

	It("follows manual changes", func() {
		manual.Set(-0.2)
		u, _ := b.Update(0, 0)
		Expect(u).To(Equal(-0.2))
	})

	It("resets the PID", func() {
		b.Update(1, 0)
		Expect(b.Reset()).To(Succeed())
		Expect(pid.Terms()).To(Equal(control.Terms{}))
	})

	It("requires a valid PID and a manual station", func() {
		_, err := control.NewBumpless(&control.PID{}, manual)
		Expect(err).To(MatchError(dynamo.ErrInvalidHandle))
		_, err = control.NewBumpless(pid, nil)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
	})
})

var _ = Describe("None", func() {
	It("always outputs zero", func() {
		n := control.NewNone()
		u, err := n.Update(100, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeZero())
		Expect(n.Reset()).To(Succeed())
	})
})

var _ = Describe("StateFeedback", func() {
	It("regulates towards the target", func() {
		sf, err := control.NewStateFeedback([][]float64{{2, 1}}, []float64{1, 0})
		Expect(err).NotTo(HaveOccurred())

		u, err := sf.Compute([]float64{0, 0})
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(Equal([]float64{2}))

		u, _ = sf.Compute([]float64{1, 3})
		Expect(u).To(Equal([]float64{-3}))

		Expect(sf.SetTarget([]float64{0, 0})).To(Succeed())
		u, _ = sf.Compute([]float64{1, 0})
		Expect(u).To(Equal([]float64{-2}))
	})

	It("handles multiple inputs", func() {
		sf, err := control.NewStateFeedback([][]float64{{1, 0}, {0, 2}}, nil)
		Expect(err).NotTo(HaveOccurred())
		nx, nu := sf.Dims()
		Expect(nx).To(Equal(2))
		Expect(nu).To(Equal(2))

		u, _ := sf.Compute([]float64{1, 1})
		Expect(u).To(Equal([]float64{-1, -2}))
	})

	It("checks dimensions", func() {
		_, err := control.NewStateFeedback([][]float64{{1, 2}, {3}}, nil)
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		_, err = control.NewStateFeedback([][]float64{{1, 2}}, []float64{0})
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		_, err = control.NewStateFeedback(nil, nil)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfig))

		sf, _ := control.NewStateFeedback([][]float64{{1, 2}}, nil)
		_, err = sf.Compute([]float64{1})
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		Expect(sf.SetTarget([]float64{1, 2, 3})).To(MatchError(dynamo.ErrDimensionMismatch))
	})
})
