package continuity

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PhaseGauge", func() {
	var g *PhaseGauge

	BeforeEach(func() {
		g = &PhaseGauge{}
	})

	It("seeds the first call directly from the raw value with no wrap event", func() {
		phase, wrap := g.Advance(0.05)
		Expect(phase).To(BeNumerically("~", 0.05, 1e-9))
		Expect(wrap).To(BeFalse())
	})

	It("tracks forward-increasing raw continuously, including across its own integer wrap", func() {
		g.Advance(0.05)
		p1, w1 := g.Advance(0.10)
		p2, w2 := g.Advance(0.95)
		p3, w3 := g.Advance(1.05) // crosses an integer boundary while still moving forward

		Expect(p1).To(BeNumerically("~", 0.10, 1e-9))
		Expect(w1).To(BeFalse())
		Expect(p2).To(BeNumerically("~", 0.95, 1e-9))
		Expect(w2).To(BeFalse())
		// wrapping through 1.0 under continuous forward motion is periodic
		// progress, not a discontinuity: the exposed phase keeps tracking
		// raw's fractional part with no offset injected.
		Expect(p3).To(BeNumerically("~", 0.05, 1e-9))
		Expect(w3).To(BeTrue())
	})

	It("holds the exposed phase steady at the instant of a backward (scrub) jump", func() {
		g.Advance(0.05)
		g.Advance(0.10)
		g.Advance(0.95)
		before, _ := g.Advance(1.05) // phase is 0.05 here

		after, wrap := g.Advance(0.20) // scrub backward in raw

		Expect(wrap).To(BeTrue())
		Expect(after).To(BeNumerically("~", before, 1e-9))
	})

	It("resumes continuous forward motion from the reconciled phase after a scrub", func() {
		g.Advance(0.05)
		g.Advance(0.10)
		g.Advance(0.95)
		g.Advance(1.05)
		afterScrub, _ := g.Advance(0.20)

		next, wrap := g.Advance(0.25)

		Expect(wrap).To(BeFalse())
		Expect(next).To(BeNumerically("~", afterScrub+0.05, 1e-9))
	})

	It("reseeds cleanly after Reset, discarding any accumulated offset", func() {
		g.Advance(0.05)
		g.Advance(1.05)
		g.Advance(0.20) // scrub, accumulates a nonzero phaseOffset

		g.Reset()
		phase, wrap := g.Advance(0.37)

		Expect(wrap).To(BeFalse())
		Expect(phase).To(BeNumerically("~", 0.37, 1e-9))
	})

	Describe("Phase", func() {
		It("returns the same value as the last Advance call without mutating state", func() {
			_, _ = g.Advance(0.42)
			first := g.Phase()
			second := g.Phase()
			Expect(first).To(Equal(second))
			Expect(first).To(BeNumerically("~", 0.42, 1e-9))
		})
	})
})
