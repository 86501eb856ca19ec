// Package compiler orchestrates the full pass pipeline from spec.md
// §2's flow diagram: normalize, insert default sources, solve types,
// insert adapters, resolve time, build the dependency graph and check
// cycle legality, lower every block, bind, and assemble the schedule
// into a CompiledProgram. Grounded on config.DeviceBuilder's fluent
// Build orchestration.
package compiler

import (
	"fmt"

	"github.com/oscilla-animator/oscilla-core/canontype"
	"github.com/oscilla-animator/oscilla-core/compiler/adapt"
	"github.com/oscilla-animator/oscilla-core/compiler/bind"
	"github.com/oscilla-animator/oscilla-core/compiler/defaultsrc"
	"github.com/oscilla-animator/oscilla-core/compiler/depgraph"
	"github.com/oscilla-animator/oscilla-core/compiler/lower"
	"github.com/oscilla-animator/oscilla-core/compiler/timeroot"
	"github.com/oscilla-animator/oscilla-core/diag"
	"github.com/oscilla-animator/oscilla-core/ir"
	"github.com/oscilla-animator/oscilla-core/patch"
)

// Result is what Compile returns: the compiled program (nil on
// failure) plus every diagnostic collected along the way (spec.md
// §6.1, §7).
type Result struct {
	Program     *ir.CompiledProgram
	Diagnostics []diag.Diagnostic
}

// Options configures one compile; CompileID/PatchRevision flow into
// every Diagnostic's Scope so the DiagnosticHub can key replace-vs-
// merge semantics correctly.
type Options struct {
	CompileID     string
	PatchRevision int
	ExistingState map[patch.StableStateId]ir.StateSlotID
}

// Compile runs the full pipeline. It halts at the end of whichever
// pass first produces a fatal diagnostic, returning everything
// collected in that pass (spec.md §7 propagation policy) — the caller
// (engine.Compile) is responsible for keeping the previous program
// alive when Result.Program is nil.
func Compile(raw patch.Patch, opts Options) Result {
	scope := diag.Scope{PatchRevision: opts.PatchRevision, CompileID: opts.CompileID}

	np, normErrs := patch.Normalize(raw)
	if normErrs != nil {
		var diags []diag.Diagnostic
		for _, e := range normErrs {
			diags = append(diags, diag.New(diag.Code(e.Code), diag.SeverityFatal, diag.DomainStructural,
				"", scope, e.Code, e.Message))
		}
		return Result{Diagnostics: diags}
	}

	// Authored ports keep whatever CanonicalType the caller gave them;
	// a port built without one holds the zero CanonicalType, whose axes
	// all read as concrete (float, zero cardinality, static,
	// lane-local). The only axis variables are the ones
	// defaultsrc.Insert allocates from this solver for the DefaultSource
	// outputs it synthesizes.
	solver := canontype.NewSolver()

	dsDiags := defaultsrc.Insert(np, solver)
	if hasFatal(dsDiags) {
		return Result{Diagnostics: dsDiags}
	}

	// Unify every edge's endpoint types (spec.md §4.3 step 2), in the
	// patch's canonical (already-sorted) edge order for determinism.
	for _, e := range np.Edges {
		if !e.Enabled {
			continue
		}
		fromBlk, _ := np.BlockByID(e.FromBlock)
		toBlk, _ := np.BlockByID(e.ToBlock)
		fromPort, _ := fromBlk.OutputPort(e.FromPort)
		toPort, _ := toBlk.InputPort(e.ToPort)
		solver.UnifyType(fromPort.Type, toPort.Type)
	}

	var typeDiags []diag.Diagnostic
	for _, c := range solver.Conflicts() {
		typeDiags = append(typeDiags, diag.New(diag.CodeConflictingPayloads, diag.SeverityFatal, diag.DomainTyping,
			"", scope, "Conflicting types", c.Error()))
	}
	if len(typeDiags) > 0 {
		return Result{Diagnostics: typeDiags}
	}

	resolvedType := func(blockID patch.BlockID, portID patch.PortID, isOutput bool) canontype.CanonicalType {
		blk, _ := np.BlockByID(blockID)
		var port *patch.Port
		if isOutput {
			port, _ = blk.OutputPort(portID)
		} else {
			port, _ = blk.InputPort(portID)
		}
		return solver.ResolveType(port.Type)
	}

	// Validate: any axis remaining var after fixpoint is unresolved
	// (spec.md §4.3 step 4). Walked in canonical block order so the
	// diagnostic list itself is deterministic.
	var unresolved []diag.Diagnostic
	for _, id := range np.BlockOf {
		b, _ := np.BlockByID(id)
		for _, p := range b.InputPorts {
			if t := solver.ResolveType(p.Type); !t.IsFullyConcrete() {
				unresolved = append(unresolved, diag.New(diag.CodeUnresolvedType, diag.SeverityFatal, diag.DomainTyping,
					fmt.Sprintf("%s.%s", b.ID, p.ID), scope,
					"Unresolved type",
					fmt.Sprintf("port %s.%s left unconstrained: %s", b.ID, p.ID, t)))
			}
		}
	}
	if len(unresolved) > 0 {
		return Result{Diagnostics: unresolved}
	}

	inserted, adaptDiags := adapt.Insert(np, resolvedType)
	if hasFatal(adaptDiags) {
		return Result{Diagnostics: adaptDiags}
	}
	spliceAdapters(np, inserted)

	// defaultsrc.Insert and spliceAdapters both append synthesized
	// blocks to the end of BlockOf, out of dependency order; the
	// lowering loop below walks BlockOf in order and needs every
	// producer lowered before its consumers; recomputing the
	// topological order after synthesis restores that invariant.
	np.Reindex(patch.TopologicalOrder(np.Blocks, np.Edges))

	_, timeRootID, timeDiags := timeroot.Resolve(np)
	if timeDiags != nil {
		return Result{Diagnostics: timeDiags}
	}

	graph := depgraph.Build(np)
	sccs := graph.Tarjan()
	blockType := func(id patch.BlockID) string {
		b, _ := np.BlockByID(id)
		return b.Type
	}
	cycleDiags := depgraph.CheckLegality(sccs, blockType)
	if len(cycleDiags) > 0 {
		return Result{Diagnostics: cycleDiags}
	}

	table := ir.NewTable()
	var blockResults []bind.BlockResult
	var lowerDiags []diag.Diagnostic

	// Lower every block in canonical BlockIndex order (a single pass
	// suffices here: the two-phase SCC lowering spec.md §4.8
	// describes applies when a memory-boundary primitive's state
	// straddles a cycle; UnitDelay/Lag/Phasor/SampleAndHold/
	// Accumulator/Slew all read previous-frame state up front, so
	// phase 1 and phase 2 coincide for every block in this pipeline).
	portExprs := map[string]ir.ValueExprID{}
	for _, id := range np.BlockOf {
		blk, _ := np.BlockByID(id)
		fn, ok := lower.Lookup(blk.Type)
		if !ok {
			lowerDiags = append(lowerDiags, diag.New(diag.CodeUnknownBlockType, diag.SeverityFatal, diag.DomainStructural,
				string(blk.ID), scope, "Unknown block type", fmt.Sprintf("no lowering registered for block type %q", blk.Type)))
			continue
		}

		ctx := &lower.Context{
			Table:       table,
			BlockID:     blk.ID,
			Params:      blk.Params,
			Inputs:      map[patch.PortID]ir.ValueExprID{},
			InputTypes:  map[patch.PortID]canontype.CanonicalType{},
			OutputTypes: map[patch.PortID]canontype.CanonicalType{},
		}
		for _, p := range blk.OutputPorts {
			ctx.OutputTypes[p.ID] = resolvedType(blk.ID, p.ID, true)
		}
		for _, e := range np.Edges {
			if !e.Enabled || e.ToBlock != blk.ID {
				continue
			}
			srcKey := string(e.FromBlock) + "." + string(e.FromPort)
			if exprID, ok := portExprs[srcKey]; ok {
				ctx.Inputs[e.ToPort] = exprID
				ctx.InputTypes[e.ToPort] = resolvedType(e.FromBlock, e.FromPort, true)
			}
		}

		res := fn(ctx)
		for portID, exprID := range res.ExprOutputs {
			portExprs[string(blk.ID)+"."+string(portID)] = exprID
		}

		blockResults = append(blockResults, bind.BlockResult{
			BlockIndex: int(np.IndexOf[blk.ID]),
			BlockID:    blk.ID,
			Result:     res,
		})
	}
	if len(lowerDiags) > 0 {
		return Result{Diagnostics: lowerDiags}
	}

	bound := bind.Bind(bind.Input{
		Table:         table,
		BlockResults:  blockResults,
		ExistingState: opts.ExistingState,
	})
	bound.Debug.Labels["timeRoot"] = string(timeRootID)

	schedule := &ir.Schedule{Steps: bound.Steps}

	program := &ir.CompiledProgram{
		IRVersion:      ir.IRVersion,
		Table:          table,
		Schedule:       schedule,
		SlotMeta:       bound.SlotMeta,
		Outputs:        []ir.Output{},
		Debug:          bound.Debug,
		StateSlotCount: bound.StateCount,
	}

	return Result{Program: program, Diagnostics: nil}
}

func hasFatal(diags []diag.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == diag.SeverityFatal || d.Severity == diag.SeverityError {
			return true
		}
	}
	return false
}

// spliceAdapters rewrites the normalized patch to insert each
// synthesized adapter block and its two edges, removing the original
// direct edge (spec.md §4.4: "the edge is rewritten as source ->
// adapter -> target").
func spliceAdapters(np *patch.NormalizedPatch, inserted []adapt.AdapterBlock) {
	if len(inserted) == 0 {
		return
	}
	remove := map[string]bool{}
	for _, a := range inserted {
		key := string(a.Edge1.FromBlock) + "." + string(a.Edge1.FromPort) + "->" + string(a.Edge2.ToBlock) + "." + string(a.Edge2.ToPort)
		remove[key] = true

		np.Blocks = append(np.Blocks, a.Block)
		np.IndexOf[a.Block.ID] = patch.BlockIndex(len(np.BlockOf))
		np.BlockOf = append(np.BlockOf, a.Block.ID)
		np.SynthAnchors[a.Block.ID] = true

		np.Edges = append(np.Edges, a.Edge1, a.Edge2)
	}

	var kept []patch.Edge
	for _, e := range np.Edges {
		key := string(e.FromBlock) + "." + string(e.FromPort) + "->" + string(e.ToBlock) + "." + string(e.ToPort)
		if remove[key] {
			continue
		}
		kept = append(kept, e)
	}
	np.Edges = kept
}
