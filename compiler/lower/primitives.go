package lower

import (
	"github.com/oscilla-animator/oscilla-core/canontype"
	"github.com/oscilla-animator/oscilla-core/ir"
	"github.com/oscilla-animator/oscilla-core/patch"
)

// The six canonical stateful primitives (spec.md §4.7.1). Each reads
// its previous-frame state symbolically, computes this frame's output
// as pure IR, and requests a stateWrite effect persisting the new
// value for next frame — never allocating a slot or writing a
// schedule step directly (spec.md §9).

func lowerUnitDelay(ctx *Context) Result {
	x := ctx.Inputs["x"]
	typ := ctx.InputTypes["x"]
	key := ctx.StateKey(StateKindPrimary)

	prev := ctx.StateRead(key, typ)

	return Result{
		ExprOutputs: map[patch.PortID]ir.ValueExprID{"y": prev},
		Effects: Effects{
			StateDecls:   []StateDecl{{Key: key, InitialValue: zeroFor(typ)}},
			StepRequests: []StepRequest{{Kind: ReqStateWrite, StateKey: key, ValueExpr: x}},
		},
	}
}

func lowerLag(ctx *Context) Result {
	target := ctx.Inputs["target"]
	typ := ctx.InputTypes["target"]
	riseTau := ctx.Inputs["riseTau"]
	fallTau := ctx.Inputs["fallTau"]
	key := ctx.StateKey(StateKindPrimary)

	prev := ctx.StateRead(key, typ)
	linear, _ := ctx.Params["exponential"].(bool)
	fn := "lag.linear"
	if linear {
		fn = "lag.exponential"
	}
	next := ctx.Kernel(typ, ir.KernelMap, fn, prev, target, riseTau, fallTau, ctx.TimeRead(ir.RailDt, dtType()))

	return Result{
		ExprOutputs: map[patch.PortID]ir.ValueExprID{"y": next},
		Effects: Effects{
			StateDecls:   []StateDecl{{Key: key, InitialValue: zeroFor(typ)}},
			StepRequests: []StepRequest{{Kind: ReqStateWrite, StateKey: key, ValueExpr: next}},
		},
	}
}

func lowerPhasor(ctx *Context) Result {
	rate := ctx.Inputs["rate"]
	typ := canontype.Concrete(canontype.PayloadFloat, canontype.Cardinality{Kind: canontype.CardOne}, canontype.TemporalContinuous, canontype.BindingLaneLocal)
	key := ctx.StateKey(StateKindPrimary)

	prevPhase := ctx.StateRead(key, typ)
	dt := ctx.TimeRead(ir.RailDt, dtType())
	nextRaw := ctx.Kernel(typ, ir.KernelMap, "phasor.advance", prevPhase, rate, dt)
	nextPhase := ctx.Kernel(typ, ir.KernelMap, "math.fract", nextRaw)

	eventType := canontype.Concrete(canontype.PayloadBool, canontype.Cardinality{Kind: canontype.CardOne}, canontype.TemporalDiscrete, canontype.BindingLaneLocal)
	wrapEvent := ctx.Kernel(eventType, ir.KernelMap, "phasor.wrapEvent", prevPhase, nextRaw)

	return Result{
		ExprOutputs: map[patch.PortID]ir.ValueExprID{"phase": nextPhase, "wrap": wrapEvent},
		Effects: Effects{
			StateDecls:   []StateDecl{{Key: key, InitialValue: 0.0}},
			StepRequests: []StepRequest{{Kind: ReqStateWrite, StateKey: key, ValueExpr: nextPhase}},
		},
	}
}

func lowerSampleAndHold(ctx *Context) Result {
	in := ctx.Inputs["in"]
	typ := ctx.InputTypes["in"]
	trigger := ctx.Inputs["trigger"]
	key := ctx.StateKey(StateKindPrimary)

	prevHeld := ctx.StateRead(key, typ)
	next := ctx.Kernel(typ, ir.KernelMap, "sampleAndHold.latch", prevHeld, in, trigger)

	return Result{
		ExprOutputs: map[patch.PortID]ir.ValueExprID{"out": next},
		Effects: Effects{
			StateDecls:   []StateDecl{{Key: key, InitialValue: zeroFor(typ)}},
			StepRequests: []StepRequest{{Kind: ReqStateWrite, StateKey: key, ValueExpr: next}},
		},
	}
}

func lowerAccumulator(ctx *Context) Result {
	delta := ctx.Inputs["delta"]
	typ := ctx.InputTypes["delta"]
	reset, hasReset := ctx.Inputs["reset"]
	key := ctx.StateKey(StateKindPrimary)

	prevSum := ctx.StateRead(key, typ)
	var next ir.ValueExprID
	if hasReset {
		next = ctx.Kernel(typ, ir.KernelMap, "accumulator.addWithReset", prevSum, delta, reset)
	} else {
		next = ctx.Kernel(typ, ir.KernelMap, "accumulator.add", prevSum, delta)
	}

	return Result{
		ExprOutputs: map[patch.PortID]ir.ValueExprID{"sum": next},
		Effects: Effects{
			StateDecls:   []StateDecl{{Key: key, InitialValue: zeroFor(typ)}},
			StepRequests: []StepRequest{{Kind: ReqStateWrite, StateKey: key, ValueExpr: next}},
		},
	}
}

func lowerSlew(ctx *Context) Result {
	target := ctx.Inputs["target"]
	typ := ctx.InputTypes["target"]
	key := ctx.StateKey(StateKindPrimary)

	tau, _ := ctx.Params["tau"].(float64)
	if tau <= 0 {
		tau = 0.12
	}
	tauExpr := ctx.Const(canontype.Concrete(canontype.PayloadFloat, canontype.Cardinality{Kind: canontype.CardZero}, canontype.TemporalStatic, canontype.BindingLaneLocal), tau)

	prevY := ctx.StateRead(key, typ)
	dt := ctx.TimeRead(ir.RailDt, dtType())
	next := ctx.Kernel(typ, ir.KernelMap, "slew.step", prevY, target, dt, tauExpr)

	return Result{
		ExprOutputs: map[patch.PortID]ir.ValueExprID{"y": next},
		Effects: Effects{
			StateDecls:   []StateDecl{{Key: key, InitialValue: zeroFor(typ)}},
			StepRequests: []StepRequest{{Kind: ReqStateWrite, StateKey: key, ValueExpr: next}},
		},
	}
}

func dtType() canontype.CanonicalType {
	return canontype.Concrete(canontype.PayloadFloat, canontype.Cardinality{Kind: canontype.CardOne}, canontype.TemporalContinuous, canontype.BindingLaneLocal)
}

func zeroFor(t canontype.CanonicalType) any {
	if t.Extent.Payload.Kind != canontype.AxisInst {
		return 0.0
	}
	switch t.Extent.Payload.Value {
	case canontype.PayloadBool:
		return false
	case canontype.PayloadInt:
		return int32(0)
	case canontype.PayloadVec2:
		return [2]float32{}
	case canontype.PayloadVec3:
		return [3]float32{}
	case canontype.PayloadColor:
		return [4]float32{}
	default:
		return float32(0)
	}
}
