package runtime

import (
	"github.com/oscilla-animator/oscilla-core/continuity"
	"github.com/oscilla-animator/oscilla-core/ir"
)

// continuityState is the part of Runtime dedicated to the continuity
// layer: one Target per scheduled continuityApply step, keyed by the
// schedule's TargetKey (already a stable string the compiler derived
// from the target's StableTargetId), plus the shared scratch pool
// (spec.md §4.11, §4.11.4).
type continuityState struct {
	targets map[string]*continuity.Target
	pool    *continuity.BufferPool
}

func newContinuityState() continuityState {
	return continuityState{
		targets: map[string]*continuity.Target{},
		pool:    continuity.NewBufferPool(),
	}
}

// SetContinuityPolicy overrides a target's policy until the next
// override. A preserve-continuity hot-swap keeps it (Runtime.LoadProgram
// leaves continuity state in place); a fresh load builds a new Runtime
// without it (spec.md §6.2: "config survives hot-swap").
func (r *Runtime) SetContinuityPolicy(targetKey string, policy continuity.Policy) {
	if t, ok := r.continuity.targets[targetKey]; ok {
		t.Policy = policy
		return
	}
	r.continuity.targets[targetKey] = continuity.NewTarget(continuity.StableTargetId(targetKey), policy)
}

func (r *Runtime) continuityTarget(targetKey string, semantic ir.ContinuitySemantic) *continuity.Target {
	if t, ok := r.continuity.targets[targetKey]; ok {
		return t
	}
	t := continuity.NewTarget(continuity.StableTargetId(targetKey), continuity.DefaultPolicy(semantic))
	r.continuity.targets[targetKey] = t
	return t
}

// applyContinuityStep runs one StepContinuityApply: read the base
// value out of BaseSlot, reconcile it through the target's policy, and
// write the result to OutputSlot (spec.md §4.10 step 5). Element
// mapping (identity/byId/byPosition) plugs in here once a domain block
// publishes elementId/position-hint buffers; until then every apply
// runs with mapping == nil, which is exact for the scalar semantics
// (radius, opacity, color) and a documented simplification for
// position (falls back to pass-through projection).
func (r *Runtime) applyContinuityStep(st ir.Step) {
	baseMeta, ok := r.program.SlotMetaFor(st.BaseSlot)
	if !ok {
		return
	}
	outMeta, ok := r.program.SlotMetaFor(st.OutputSlot)
	if !ok {
		outMeta = baseMeta
		outMeta.Slot = st.OutputSlot
	}

	base := r.state.ReadSlot(baseMeta)
	target := r.continuityTarget(st.TargetKey, st.Semantic)
	dtMs := r.state.time.dt * 1000
	result := target.Apply(base, nil, dtMs, r.continuity.pool)
	r.state.WriteSlot(outMeta, result)
}
