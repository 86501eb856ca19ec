package runtime

import (
	"math"

	"github.com/oscilla-animator/oscilla-core/ir"
)

// evalContext evaluates a Table of ValueExprs against one frame's
// State, memoizing each expression's result for the duration of the
// frame (spec.md §4.9: "every expression is evaluated at most once
// per frame regardless of fan-out").
type evalContext struct {
	table *ir.Table
	state *State
	time  timeState
	cache [][]float64
	done  []bool
	slots map[ir.ValueSlotID][]float64

	// laneIndex/laneCount give per-instance intrinsics (Index,
	// NormIndex, Rank, Seed) their field position when this
	// evalContext is reused across a field's lanes; top-level,
	// non-field evaluation leaves them at the zero value (lane 0 of 1).
	laneIndex int
	laneCount int
}

func newEvalContext(table *ir.Table, state *State, t timeState, slotValues map[ir.ValueSlotID][]float64) *evalContext {
	return &evalContext{
		table:     table,
		state:     state,
		time:      t,
		cache:     make([][]float64, len(table.Exprs)),
		done:      make([]bool, len(table.Exprs)),
		slots:     slotValues,
		laneCount: 1,
	}
}

// resetLane clears the per-expression memo cache and repoints lane
// bookkeeping, so a field's per-instance expressions (those reachable
// from an Index/NormIndex/Rank/Seed intrinsic) get recomputed once per
// lane instead of being cached from lane 0 (spec.md §4.6 field
// materialization).
func (ec *evalContext) resetLane(index, count int) {
	for i := range ec.done {
		ec.done[i] = false
	}
	ec.laneIndex = index
	ec.laneCount = count
}

// eval resolves a ValueExprID to its component slice, recursing into
// KernelArgs depth-first. ValueExpr graphs are acyclic by construction
// (spec.md §4.2 memory-boundary rule: every cycle in the patch graph
// is broken by a stateful primitive, so expression dependencies never
// loop back through an ExprKernel chain).
func (ec *evalContext) eval(id ir.ValueExprID) []float64 {
	if ec.done[id] {
		return ec.cache[id]
	}
	e := ec.table.Get(id)
	var out []float64
	switch e.Kind {
	case ir.ExprConst:
		out = toFloats(ec.table.Constants[e.ConstValue])
	case ir.ExprExternal:
		out = ec.slots[e.ExternalSlot]
	case ir.ExprIntrinsic:
		out = ec.evalIntrinsic(e)
	case ir.ExprKernel:
		args := make([][]float64, len(e.KernelArgs))
		for i, a := range e.KernelArgs {
			args[i] = ec.eval(a)
		}
		fn, ok := lookupKernel(e.KernelFunc)
		if !ok {
			out = []float64{0}
			break
		}
		out = fn(args...)
	case ir.ExprState:
		out = toFloats(ec.state.state[e.ResolvedSlot])
	case ir.ExprTime:
		out = ec.evalTimeRail(e.TimeRail)
	}
	ec.cache[id] = out
	ec.done[id] = true
	return out
}

func (ec *evalContext) evalTimeRail(rail ir.TimeRail) []float64 {
	switch rail {
	case ir.RailTModel:
		return []float64{ec.time.tModelMs}
	case ir.RailDt:
		return []float64{ec.time.dt}
	case ir.RailPhaseA:
		return []float64{ec.time.gaugeA.Phase()}
	case ir.RailPhaseB:
		return []float64{ec.time.gaugeB.Phase()}
	case ir.RailWrapEvent:
		if ec.time.wrapEvent {
			return []float64{1}
		}
		return []float64{0}
	case ir.RailProgress01:
		return []float64{ec.time.progress01}
	default:
		return []float64{0}
	}
}

// evalIntrinsic handles the fixed per-instance intrinsic set. Lane
// index/count come from the evalContext's laneIndex/laneCount, which
// runtime/execute.go's field materialization sets for each lane via
// resetLane; outside that, evaluation runs at lane 0 of 1.
func (ec *evalContext) evalIntrinsic(e ir.ValueExpr) []float64 {
	switch e.Intrinsic {
	case ir.IntrinsicIndex:
		return []float64{float64(ec.laneIndex)}
	case ir.IntrinsicNormIndex:
		if ec.laneCount <= 1 {
			return []float64{0}
		}
		return []float64{float64(ec.laneIndex) / float64(ec.laneCount-1)}
	case ir.IntrinsicRank:
		return []float64{float64(ec.laneIndex)}
	case ir.IntrinsicSeed:
		return []float64{hashSeed(ec.laneIndex)}
	case ir.IntrinsicUV:
		return []float64{0, 0}
	case ir.IntrinsicRandomID:
		return []float64{hashSeed(ec.laneIndex)}
	default:
		return []float64{0}
	}
}

func hashSeed(i int) float64 {
	x := uint32(i)*2654435761 + 1
	return float64(x%1000001) / 1000001
}

func toFloats(v any) []float64 {
	switch t := v.(type) {
	case float64:
		return []float64{t}
	case float32:
		return []float64{float64(t)}
	case int32:
		return []float64{float64(t)}
	case bool:
		if t {
			return []float64{1}
		}
		return []float64{0}
	case [2]float32:
		return []float64{float64(t[0]), float64(t[1])}
	case [3]float32:
		return []float64{float64(t[0]), float64(t[1]), float64(t[2])}
	case [4]float32:
		return []float64{float64(t[0]), float64(t[1]), float64(t[2]), float64(t[3])}
	case []float64:
		return t
	case nil:
		return []float64{0}
	default:
		return []float64{0}
	}
}

func nanOrInf(vals []float64) (nan, inf int) {
	for _, v := range vals {
		if math.IsNaN(v) {
			nan++
		} else if math.IsInf(v, 0) {
			inf++
		}
	}
	return
}
