package lower

import (
	"github.com/oscilla-animator/oscilla-core/canontype"
	"github.com/oscilla-animator/oscilla-core/compiler/defaultsrc"
	"github.com/oscilla-animator/oscilla-core/ir"
	"github.com/oscilla-animator/oscilla-core/patch"
)

// lowerDefaultSource lowers the synthesized DefaultSource block
// defaultsrc.Insert places on every unconnected input port. Its output
// type is whatever the solver narrowed it to; defaultsrc.ResolvePlan
// maps that resolved (temporality, payload) pair to a concrete
// lowering strategy (spec.md §4.2's policy table).
func lowerDefaultSource(ctx *Context) Result {
	typ := ctx.OutputTypes["out"]
	payload := typ.Extent.Payload.Value
	temporal := typ.Extent.Temporality.Value

	plan, ok := defaultsrc.ResolvePlan(temporal, payload)
	if !ok {
		// cameraProjection and anything else outside the policy table
		// demand an explicit source; the type solver already let this
		// type through, so there is nothing principled left to emit.
		// No expression and no diagnostic is produced: the block has no
		// "out" output, so its consumer finds no lowered expression for
		// that input.
		return Result{ExprOutputs: map[patch.PortID]ir.ValueExprID{}}
	}

	var out ir.ValueExprID
	switch plan.Kind {
	case defaultsrc.PlanConstZero:
		out = ctx.Const(typ, int32(0))
	case defaultsrc.PlanConstOne:
		out = ctx.Const(typ, float32(1))
	case defaultsrc.PlanConstFalse:
		out = ctx.Const(typ, false)
	case defaultsrc.PlanConstVec2Zero:
		out = ctx.Const(typ, [2]float32{})
	case defaultsrc.PlanConstVec3Zero:
		out = ctx.Const(typ, [3]float32{})
	case defaultsrc.PlanPaletteMacro:
		out = lowerPaletteMacro(ctx, typ)
	case defaultsrc.PlanEventNever:
		out = ctx.Const(typ, false)
	default:
		out = ctx.Const(typ, zeroFor(typ))
	}

	return Result{ExprOutputs: map[patch.PortID]ir.ValueExprID{"out": out}}
}

// lowerPaletteMacro expands a color DefaultSource into a cycling
// HSL->RGB value hued by the phaseA rail (spec.md §4.2: "macro: expand
// cycling HSL→RGB using the palette time rail"). phaseA is the
// canonical rail closest to a dedicated palette clock; the kernel
// folds the hue rotation and HSL->RGB conversion into one step so the
// expression graph stays a single node.
func lowerPaletteMacro(ctx *Context, typ canontype.CanonicalType) ir.ValueExprID {
	hue := ctx.TimeRead(ir.RailPhaseA, dtType())
	return ctx.Kernel(typ, ir.KernelMap, "palette.hueCycle", hue)
}
