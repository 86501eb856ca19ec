// This file drives Runtime execution from an akita simulation engine
// so a host can advance frames on its own clock or on a virtual one
// used by tests (spec.md §3.4, §5). Grounded on core.Builder/core.Core's
// fluent builder plus TickingComponent embedding.
package runtime

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/oscilla-animator/oscilla-core/ir"
)

// Driver ticks a Runtime once per simulated cycle, translating akita's
// tick cadence into RunFrame calls. One cycle is one frame; frame
// period is entirely a function of the driver's configured Freq.
type Driver struct {
	*sim.TickingComponent

	runtime *Runtime

	pendingInput RunFrameInput
	lastResult   FrameResult
	frameMs      float64
}

// Tick advances one frame whenever the engine schedules this
// component, mirroring core.Core's Tick(now) (madeProgress bool)
// contract so Driver composes with the same sim.Engine loop the rest
// of the module drives.
func (d *Driver) Tick(now sim.VTimeInSec) (madeProgress bool) {
	in := d.pendingInput
	in.TModelMs += d.frameMs
	d.pendingInput.TModelMs = in.TModelMs

	d.lastResult = d.runtime.RunFrame(in)
	return true
}

// LastResult returns the most recently produced FrameResult.
func (d *Driver) LastResult() FrameResult { return d.lastResult }

// SetExternalSlot publishes one external value for every subsequent
// frame until replaced (spec.md §3.4: external/domain-published
// signals persist until overwritten, they are not one-shot events).
func (d *Driver) SetExternalSlot(slot ir.ValueSlotID, vals []float64) {
	if d.pendingInput.ExternalSlots == nil {
		d.pendingInput.ExternalSlots = map[ir.ValueSlotID][]float64{}
	}
	d.pendingInput.ExternalSlots[slot] = vals
}

// SetPeriods configures the PhaseA/PhaseB rail periods this driver
// feeds into every RunFrame (spec.md §4.5 canonical rails).
func (d *Driver) SetPeriods(periodAMs, periodBMs float64) {
	d.pendingInput.PeriodAMs = periodAMs
	d.pendingInput.PeriodBMs = periodBMs
}

// Runtime exposes the driven Runtime for callers that need direct
// state access (render assembly, diagnostics snapshots).
func (d *Driver) Runtime() *Runtime { return d.runtime }

// DriverBuilder constructs a Driver bound to an akita engine at a
// fixed frame rate, following config.DeviceBuilder's fluent
// WithX(...) T style.
type DriverBuilder struct {
	engine  sim.Engine
	freq    sim.Freq
	frameMs float64
}

func NewDriverBuilder() DriverBuilder {
	return DriverBuilder{freq: 60 * sim.Hz, frameMs: 1000.0 / 60.0}
}

// WithEngine sets the simulation engine driving ticks.
func (b DriverBuilder) WithEngine(engine sim.Engine) DriverBuilder {
	b.engine = engine
	return b
}

// WithFrameRate sets both the tick frequency and the model-time step
// advanced on every tick, keeping them in lockstep.
func (b DriverBuilder) WithFrameRate(fps float64) DriverBuilder {
	b.freq = sim.Freq(fps) * sim.Hz
	b.frameMs = 1000.0 / fps
	return b
}

// Build wires a Driver around program, ready to tick.
func (b DriverBuilder) Build(name string, program *ir.CompiledProgram) *Driver {
	d := &Driver{
		runtime: NewRuntime(program),
		frameMs: b.frameMs,
	}
	d.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, d)
	return d
}
