package runtime

import (
	"time"

	"github.com/oscilla-animator/oscilla-core/ir"
)

// RunFrameInput is the caller-supplied driving signal for one frame:
// the model-time rail plus whatever domain values are published onto
// external slots this frame (spec.md §4.5, §3.4).
type RunFrameInput struct {
	TModelMs      float64
	PeriodAMs     float64 // 0 disables PhaseA for this program
	PeriodBMs     float64 // 0 disables PhaseB
	ExternalSlots map[ir.ValueSlotID][]float64
}

// FrameResult is what one RunFrame call produces: whether a render
// step ran and the frame's health sample (State already retains
// everything the next RunFrame needs).
type FrameResult struct {
	RenderReady bool
	Health      healthSample
}

// Runtime is the live, hot-swappable executor for one CompiledProgram
// (spec.md §3.4, §5: "the runtime is the only long-lived stateful
// component"). Grounded on core/core.go's Core, which owns register
// state across Tick calls the same way Runtime owns State across
// RunFrame calls.
type Runtime struct {
	program *ir.CompiledProgram
	state   *State

	fieldLaneCounts map[string]int
	fieldValues     map[string][][]float64

	continuity continuityState
}

// NewRuntime allocates a Runtime sized for program's slot layout.
func NewRuntime(program *ir.CompiledProgram) *Runtime {
	r := &Runtime{
		program:         program,
		fieldLaneCounts: map[string]int{},
		fieldValues:     map[string][][]float64{},
		continuity:      newContinuityState(),
	}
	r.state = NewState(program.SlotCounts, program.StateSlotCount)
	return r
}

// LoadProgram hot-swaps to a newly compiled program, preserving
// existing state-slot contents (compiler/bind's ExistingState
// carry-forward already lines the old and new StateSlotIDs up;
// Runtime only needs to grow its buffers, never zero them) (spec.md
// §3.4 Lifecycle, §6.4).
func (r *Runtime) LoadProgram(program *ir.CompiledProgram) {
	r.state.Resize(program.SlotCounts, program.StateSlotCount)
	r.program = program
}

// SetFieldLaneCount tells the runtime how many instances a given
// field-bearing block currently has, ahead of the frame that first
// materializes it (spec.md §4.6: instance counts are a per-frame
// external input, not something the schedule can know statically).
func (r *Runtime) SetFieldLaneCount(instanceID string, n int) {
	r.fieldLaneCounts[instanceID] = n
}

func (r *Runtime) laneCount(instanceID string) int {
	if n, ok := r.fieldLaneCounts[instanceID]; ok && n > 0 {
		return n
	}
	return 1
}

// State exposes the runtime's persistent frame state, mainly so the
// render package can read back value-slot contents by SlotMeta
// without Runtime needing to know anything about render frames
// itself.
func (r *Runtime) State() *State { return r.state }

// Program exposes the currently bound CompiledProgram, mainly for
// SlotMetaFor lookups by the render package.
func (r *Runtime) Program() *ir.CompiledProgram { return r.program }

// RunFrame executes one full frame: advance the time rails, then walk
// the schedule phase by phase (spec.md §4.9 Ordering — phase 1 compute
// before phase 2 render before phase 3 state write, each phase
// internally in schedule order).
func (r *Runtime) RunFrame(in RunFrameInput) FrameResult {
	start := time.Now()
	r.advanceTime(in)

	ec := newEvalContext(r.program.Table, r.state, r.state.time, in.ExternalSlots)

	nan, inf := 0, 0
	renderReady := false

	for _, st := range r.program.Schedule.ByPhase(ir.Phase1Compute) {
		switch st.Kind {
		case ir.StepEvalValue:
			vals := ec.eval(st.ExprID)
			n, i := nanOrInf(vals)
			nan += n
			inf += i
		case ir.StepMaterialize:
			lanes := r.laneCount(st.InstanceID)
			out := make([][]float64, lanes)
			for lane := 0; lane < lanes; lane++ {
				ec.resetLane(lane, lanes)
				vals := ec.eval(st.FieldExprID)
				n, i := nanOrInf(vals)
				nan += n
				inf += i
				out[lane] = vals
			}
			ec.resetLane(0, 1)
			r.fieldValues[st.InstanceID] = out
		case ir.StepContinuityApply:
			r.applyContinuityStep(st)
		case ir.StepContinuityMapBuild:
			// Mapping cache lookup/build plugs in once a domain block
			// publishes elementId/position-hint buffers for this
			// instance; until then continuity runs with identity
			// mapping implicitly (see applyContinuityStep).
		}
	}

	for _, st := range r.program.Schedule.ByPhase(ir.Phase2Render) {
		if st.Kind == ir.StepRender {
			renderReady = true
		}
	}

	for _, st := range r.program.Schedule.ByPhase(ir.Phase3StateWrite) {
		switch st.Kind {
		case ir.StepStateWrite:
			vals := ec.eval(st.ValueExprID_)
			n, i := nanOrInf(vals)
			nan += n
			inf += i
			r.state.state[st.StateSlot] = vals
		case ir.StepFieldStateWrite:
			lanes := r.laneCount(st.InstanceID)
			written := make([]float64, 0, lanes)
			for lane := 0; lane < lanes; lane++ {
				ec.resetLane(lane, lanes)
				vals := ec.eval(st.ValueExprID_)
				n, i := nanOrInf(vals)
				nan += n
				inf += i
				written = append(written, vals...)
			}
			ec.resetLane(0, 1)
			r.state.state[st.StateSlot] = written
		}
	}

	r.state.frameID++
	h := healthSample{
		FrameID:    r.state.frameID,
		FrameMs:    time.Since(start).Seconds() * 1000,
		NaNCount:   nan,
		InfCount:   inf,
		OverBudget: time.Since(start) > 16*time.Millisecond,
	}
	r.state.recordHealth(h)

	return FrameResult{RenderReady: renderReady, Health: h}
}

// advanceTime updates the time rails, delegating PhaseA/PhaseB's
// continuity bookkeeping to their continuity.PhaseGauge.
func (r *Runtime) advanceTime(in RunFrameInput) {
	t := &r.state.time
	dt := (in.TModelMs - t.tModelMs) / 1000.0
	if r.state.frameID == 0 {
		dt = 0
	}
	t.prevTModelMs = t.tModelMs
	t.tModelMs = in.TModelMs
	t.dt = dt

	wrap := false
	if in.PeriodAMs > 0 {
		phase, w := t.gaugeA.Advance(in.TModelMs / in.PeriodAMs)
		wrap = wrap || w
		t.progress01 = phase
	}
	if in.PeriodBMs > 0 {
		_, w := t.gaugeB.Advance(in.TModelMs / in.PeriodBMs)
		wrap = wrap || w
	}
	t.wrapEvent = wrap
}
