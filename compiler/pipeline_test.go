package compiler

import (
	"testing"

	"github.com/oscilla-animator/oscilla-core/compiler/timeroot"
	"github.com/oscilla-animator/oscilla-core/ir"
	"github.com/oscilla-animator/oscilla-core/patch"
)

func phasorPatch() patch.Patch {
	return patch.Patch{
		Blocks: []patch.Block{
			{ID: "root", Type: timeroot.BlockTypeTimeRoot, Params: map[string]any{"model": "infinite", "speed": 1.0}},
			{
				ID:          "phasor1",
				Type:        "Phasor",
				InputPorts:  []patch.Port{{ID: "rate"}},
				OutputPorts: []patch.Port{{ID: "phase"}, {ID: "wrap"}},
			},
		},
	}
}

func TestCompilePhasorWithUnconnectedRateSucceeds(t *testing.T) {
	res := Compile(phasorPatch(), Options{CompileID: "c1", PatchRevision: 1})

	if len(res.Diagnostics) > 0 {
		t.Fatalf("expected a clean compile, got diagnostics: %+v", res.Diagnostics)
	}
	if res.Program == nil {
		t.Fatalf("expected a compiled program")
	}
	if res.Program.StateSlotCount == 0 {
		t.Fatalf("expected Phasor's phase state slot to be allocated")
	}
}

func TestCompileRejectsMissingTimeRoot(t *testing.T) {
	p := phasorPatch()
	p.Blocks = p.Blocks[1:] // drop the TimeRoot block

	res := Compile(p, Options{CompileID: "c2", PatchRevision: 1})

	if res.Program != nil {
		t.Fatalf("expected compilation to fail without a TimeRoot block")
	}
	if len(res.Diagnostics) == 0 {
		t.Fatalf("expected at least one diagnostic for the missing TimeRoot")
	}
}

func TestCompileOrdersSynthesizedDefaultSourceBeforeItsConsumer(t *testing.T) {
	res := Compile(phasorPatch(), Options{CompileID: "c3", PatchRevision: 1})
	if res.Program == nil {
		t.Fatalf("expected a compiled program, got diagnostics: %+v", res.Diagnostics)
	}

	// phasor.advance's rate argument should trace back to the
	// synthesized DefaultSource's float-payload constant (1.0). If the
	// DefaultSource had lowered after Phasor (the bug the BlockOf
	// topological reindex fixes), this argument would silently
	// resolve to the zero ValueExprID instead.
	var advance *ir.ValueExpr
	for i := range res.Program.Table.Exprs {
		if res.Program.Table.Exprs[i].KernelFunc == "phasor.advance" {
			advance = &res.Program.Table.Exprs[i]
			break
		}
	}
	if advance == nil {
		t.Fatalf("expected a phasor.advance kernel expression in the table")
	}
	rateExpr := res.Program.Table.Get(advance.KernelArgs[1])
	if rateExpr.Kind != ir.ExprConst {
		t.Fatalf("expected the unconnected rate port to resolve to a const default source, got %v", rateExpr.Kind)
	}
	if v := res.Program.Table.Constants[rateExpr.ConstValue]; v != float32(1) {
		t.Fatalf("expected the default rate constant to be 1.0, got %v", v)
	}
}
