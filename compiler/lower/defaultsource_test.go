package lower

import (
	"testing"

	"github.com/oscilla-animator/oscilla-core/canontype"
	"github.com/oscilla-animator/oscilla-core/ir"
	"github.com/oscilla-animator/oscilla-core/patch"
)

func floatType() canontype.CanonicalType {
	return canontype.Concrete(canontype.PayloadFloat, canontype.Cardinality{Kind: canontype.CardOne}, canontype.TemporalContinuous, canontype.BindingLaneLocal)
}

func colorType() canontype.CanonicalType {
	return canontype.Concrete(canontype.PayloadColor, canontype.Cardinality{Kind: canontype.CardOne}, canontype.TemporalContinuous, canontype.BindingLaneLocal)
}

func TestLowerDefaultSourceFloatEmitsConstOne(t *testing.T) {
	ctx := &Context{
		Table:       ir.NewTable(),
		OutputTypes: map[patch.PortID]canontype.CanonicalType{"out": floatType()},
	}

	res := lowerDefaultSource(ctx)

	id, ok := res.ExprOutputs["out"]
	if !ok {
		t.Fatalf("expected an \"out\" expression output")
	}
	expr := ctx.Table.Get(id)
	if expr.Kind != ir.ExprConst {
		t.Fatalf("expected a const expression, got %v", expr.Kind)
	}
	if v := ctx.Table.Constants[expr.ConstValue]; v != float32(1) {
		t.Fatalf("expected float default source to const-fold to 1, got %v", v)
	}
}

func TestLowerDefaultSourceColorEmitsPaletteMacroKernel(t *testing.T) {
	ctx := &Context{
		Table:       ir.NewTable(),
		OutputTypes: map[patch.PortID]canontype.CanonicalType{"out": colorType()},
	}

	res := lowerDefaultSource(ctx)

	id, ok := res.ExprOutputs["out"]
	if !ok {
		t.Fatalf("expected an \"out\" expression output")
	}
	expr := ctx.Table.Get(id)
	if expr.Kind != ir.ExprKernel {
		t.Fatalf("expected a kernel expression, got %v", expr.Kind)
	}
	if expr.KernelFunc != "palette.hueCycle" {
		t.Fatalf("expected palette.hueCycle kernel, got %q", expr.KernelFunc)
	}
	if len(expr.KernelArgs) != 1 {
		t.Fatalf("expected exactly one kernel argument (the hue rail read), got %d", len(expr.KernelArgs))
	}
	hueExpr := ctx.Table.Get(expr.KernelArgs[0])
	if hueExpr.Kind != ir.ExprTime || hueExpr.TimeRail != ir.RailPhaseA {
		t.Fatalf("expected the hue argument to read RailPhaseA, got %+v", hueExpr)
	}
}

func TestLowerTimeRootIsANoOp(t *testing.T) {
	ctx := &Context{Table: ir.NewTable()}
	res := lowerTimeRoot(ctx)
	if len(res.ExprOutputs) != 0 {
		t.Fatalf("expected TimeRoot to emit no expression outputs, got %v", res.ExprOutputs)
	}
	if len(res.Effects.StateDecls) != 0 || len(res.Effects.StepRequests) != 0 {
		t.Fatalf("expected TimeRoot to emit no effects, got %+v", res.Effects)
	}
}
