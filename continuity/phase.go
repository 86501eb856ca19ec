// Package continuity keeps rendered values visually continuous across
// the discontinuities a live-editable patch graph produces: time-rail
// jumps (scrub, reset, tempo change) and target-set changes (elements
// appearing, disappearing, or being renumbered) (spec.md §4.11).
package continuity

import "math"

// PhaseGauge tracks one canonical phase rail's running value across
// frames using the reconciliation law (spec.md §4.11.1): the rail's
// visible phase is basePhase (the clean wrap of the driving raw value)
// plus phaseOffset, an accumulator that absorbs whatever discontinuity
// the raw value just took so the visible phase itself never jumps.
type PhaseGauge struct {
	basePhase   float64
	phaseOffset float64
	prevRaw     float64
	seeded      bool
}

// Advance feeds in this frame's raw (unwrapped) phase value — e.g.
// tModelMs/periodMs — and returns the reconciled, always-continuous
// phase plus whether a wrap boundary was crossed this frame. Crossing
// an integer boundary while raw keeps increasing is ordinary periodic
// motion, not a discontinuity: basePhase wraps through it for free.
// Reconciliation only fires when raw itself moves backward (a seek or
// scrub), the one case this single-value API can detect without a
// caller-supplied discontinuity flag.
func (g *PhaseGauge) Advance(raw float64) (phase float64, wrapEvent bool) {
	newBase := wrap01(raw)

	if !g.seeded {
		g.seeded = true
		g.prevRaw = raw
		g.basePhase = newBase
		return g.Phase(), false
	}

	wrapEvent = math.Floor(raw) != math.Floor(g.prevRaw)
	if raw < g.prevRaw {
		oldEff := g.Phase()
		g.phaseOffset = wrap01(oldEff - newBase)
	}
	g.basePhase = newBase
	g.prevRaw = raw

	return g.Phase(), wrapEvent
}

// Phase returns the current reconciled phase without advancing.
func (g *PhaseGauge) Phase() float64 { return wrap01(g.basePhase + g.phaseOffset) }

// Reset clears the gauge back to an unseeded state, discarding any
// accumulated phaseOffset; the next Advance reseeds from its raw value.
func (g *PhaseGauge) Reset() { *g = PhaseGauge{} }

func wrap01(x float64) float64 { return x - math.Floor(x) }
