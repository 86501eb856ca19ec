// Package defaultsrc implements default-source insertion (spec.md
// §4.2): any input port with no incoming edge receives a synthesized
// DefaultSource block whose payload-generic output is later narrowed
// by the type solver, then lowered per a static policy table.
//
// Grounded on program/isa.go's ISA registration-table pattern: a
// default source policy is registered once per payload, the same way
// an instruction behavior is registered once per opcode name.
package defaultsrc

import (
	"fmt"

	"github.com/oscilla-animator/oscilla-core/canontype"
	"github.com/oscilla-animator/oscilla-core/diag"
	"github.com/oscilla-animator/oscilla-core/patch"
)

// BlockTypeDefaultSource is the synthesized block type name.
const BlockTypeDefaultSource = "__defaultSource"

// PlanKind names the lowering strategy a resolved payload maps to.
type PlanKind int

const (
	PlanConstZero PlanKind = iota
	PlanConstOne
	PlanConstFalse
	PlanConstVec2Zero
	PlanConstVec3Zero
	PlanPaletteMacro
	PlanEventNever
	PlanHardError
)

// Plan is the resolved lowering strategy for one DefaultSource,
// determined once the type solver narrows its payload.
type Plan struct {
	Kind PlanKind
}

// policyTable maps a resolved Payload to its Plan, per spec.md §4.2's
// table. cameraProjection has no plan (hard error: explicit source
// required).
var policyTable = map[canontype.Payload]Plan{
	canontype.PayloadFloat: {PlanConstOne},
	canontype.PayloadInt:   {PlanConstZero},
	canontype.PayloadBool:  {PlanConstFalse},
	canontype.PayloadVec2:  {PlanConstVec2Zero},
	canontype.PayloadVec3:  {PlanConstVec3Zero},
	canontype.PayloadColor: {PlanPaletteMacro},
}

// ResolvePlan looks up the lowering plan for a resolved payload, or
// returns ok=false for cameraProjection / anything outside the table
// (the caller turns that into PayloadNotSupportedByDefaultSource).
func ResolvePlan(temporal canontype.Temporality, payload canontype.Payload) (Plan, bool) {
	if temporal == canontype.TemporalDiscrete {
		return Plan{PlanEventNever}, true
	}
	if payload == canontype.PayloadCameraProjection {
		return Plan{PlanHardError}, false
	}
	p, ok := policyTable[payload]
	return p, ok
}

// Insert walks every input port of every block; for any port with no
// incoming edge it synthesizes a DefaultSource block wired to it, with
// an anchor-derived stable id (spec.md §4.1, §4.2). The DefaultSource
// output type carries fresh payload/cardinality/temporality variables
// for the solver to narrow; Insert never resolves the plan itself —
// that happens after the type solver runs (compiler/lower consults
// ResolvePlan once types are concrete).
func Insert(np *patch.NormalizedPatch, solver *canontype.Solver) []diag.Diagnostic {
	var diags []diag.Diagnostic

	connected := map[string]bool{}
	for _, e := range np.Edges {
		if !e.Enabled {
			continue
		}
		connected[string(e.ToBlock)+"."+string(e.ToPort)] = true
	}

	// Iterate in canonical block order for determinism.
	for _, id := range np.BlockOf {
		blk, _ := np.BlockByID(id)
		for pi := range blk.InputPorts {
			port := &blk.InputPorts[pi]
			key := string(blk.ID) + "." + string(port.ID)
			if connected[key] {
				continue
			}

			srcID := patch.AnchorID("defaultSource", blk.ID, string(port.ID))
			outPort := patch.PortID("out")

			payloadVar := solver.NewVar()
			cardVar := solver.NewVar()
			tempVar := solver.NewVar()
			bindVar := solver.NewVar()
			outType := canontype.CanonicalType{Extent: canontype.Extent{
				Payload:     canontype.Var[canontype.Payload](payloadVar),
				Cardinality: canontype.Var[canontype.Cardinality](cardVar),
				Temporality: canontype.Var[canontype.Temporality](tempVar),
				Binding:     canontype.Var[canontype.Binding](bindVar),
				Perspective: canontype.Inst(canontype.PerspectiveDefault),
				Branch:      canontype.Inst(canontype.BranchDefault),
			}}

			synth := patch.Block{
				ID:          srcID,
				Type:        BlockTypeDefaultSource,
				OutputPorts: []patch.Port{{ID: outPort, Type: outType}},
				DisplayName: fmt.Sprintf("DefaultSource(%s.%s)", blk.ID, port.ID),
			}
			np.Blocks = append(np.Blocks, synth)
			np.IndexOf[srcID] = patch.BlockIndex(len(np.BlockOf))
			np.BlockOf = append(np.BlockOf, srcID)
			np.SynthAnchors[srcID] = true

			np.Edges = append(np.Edges, patch.Edge{
				FromBlock:   srcID,
				FromPort:    outPort,
				ToBlock:     blk.ID,
				ToPort:      port.ID,
				CombineMode: patch.CombineWriterWins,
				Enabled:     true,
			})

			// The edge also unifies the synthesized output with the
			// consuming port's declared type, same as any other edge,
			// so the solver narrows payload/cardinality together.
			solver.UnifyType(outType, port.Type)
		}
	}

	return diags
}
