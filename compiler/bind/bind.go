// Package bind implements the binding pass (spec.md §4.8): the single
// post-lowering function that turns symbolic LowerResults into a
// fully physical CompiledProgram. Binding is pure — same inputs yield
// bit-identical SlotMeta, Schedule and state mappings (spec.md §8
// property 3). Grounded on confignew/idbinding.go's
// NameIDBinding/IDImplBinding, generalized from name<->id tables to
// StableStateId<->StateSlotID and (blockIndex,portId)<->ValueSlotID
// tables.
package bind

import (
	"sort"

	"github.com/oscilla-animator/oscilla-core/compiler/lower"
	"github.com/oscilla-animator/oscilla-core/ir"
	"github.com/oscilla-animator/oscilla-core/patch"
)

// BlockResult pairs a block's lowering output with its BlockIndex and
// id, since the binder needs both for deterministic ordering and for
// DebugIndex population.
type BlockResult struct {
	BlockIndex int
	BlockID    patch.BlockID
	Result     lower.Result
}

// Input is everything the binder needs: all per-block lowering
// results (compiler/pipeline lowers every block in one pass, in
// BlockIndex order), the shared ValueExpr table they wrote into, and
// any state slots already allocated from a previous binding pass
// (continuity across hot-swap carries state slots forward via
// existingState).
type Input struct {
	Table         *ir.Table
	BlockResults  []BlockResult // in lowering order
	ExistingState map[patch.StableStateId]ir.StateSlotID
}

// Output is the fully physical program fragment the binder produces;
// compiler/pipeline assembles this into the final CompiledProgram,
// using Steps unchanged as the whole schedule.
type Output struct {
	StateSlots map[patch.StableStateId]ir.StateSlotID
	StateCount int

	ValueSlots map[string]ir.ValueSlotID // "blockId.portId" -> slot
	SlotMeta   []ir.SlotMeta

	Steps []ir.Step

	Debug *ir.DebugIndex
}

// Bind performs steps 1 to 4 of the binding pass described in spec.md
// §4.8; step 5 is not performed (see the note at the end of Bind).
func Bind(in Input) Output {
	out := Output{
		StateSlots: map[patch.StableStateId]ir.StateSlotID{},
		ValueSlots: map[string]ir.ValueSlotID{},
		Debug:      ir.NewDebugIndex(),
	}
	for k, v := range in.ExistingState {
		out.StateSlots[k] = v
	}

	// Step 1: collect all stateDecls in stable StableStateId order,
	// allocating physical slots idempotently.
	var allDecls []lower.StateDecl
	for _, br := range in.BlockResults {
		allDecls = append(allDecls, br.Result.Effects.StateDecls...)
	}
	sort.SliceStable(allDecls, func(i, j int) bool { return allDecls[i].Key < allDecls[j].Key })

	next := ir.StateSlotID(len(out.StateSlots))
	seen := map[patch.StableStateId]bool{}
	for _, d := range allDecls {
		if seen[d.Key] {
			continue
		}
		seen[d.Key] = true
		if _, ok := out.StateSlots[d.Key]; ok {
			continue // idempotent: already carried forward from existingState
		}
		out.StateSlots[d.Key] = next
		next++
	}
	out.StateCount = int(next)

	// Step 2: walk the ValueExpr table patching every State
	// expression's ResolvedSlot from the stateKey -> stateSlot map.
	for i := range in.Table.Exprs {
		e := &in.Table.Exprs[i]
		if e.Kind != ir.ExprState {
			continue
		}
		if slot, ok := out.StateSlots[patch.StableStateId(e.StateKey)]; ok {
			e.ResolvedSlot = slot
		}
	}

	// Step 3: collect slotRequests, sort by (blockIndex, portId),
	// allocate ValueSlot + offset per storage bank.
	type slotReq struct {
		blockIndex int
		req        lower.SlotRequest
	}
	var reqs []slotReq
	for _, br := range in.BlockResults {
		for _, sr := range br.Result.Effects.SlotRequests {
			reqs = append(reqs, slotReq{br.BlockIndex, sr})
		}
	}
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].blockIndex != reqs[j].blockIndex {
			return reqs[i].blockIndex < reqs[j].blockIndex
		}
		return reqs[i].req.PortID < reqs[j].req.PortID
	})

	offsets := map[ir.StorageBank]int{}
	var slotCounter ir.ValueSlotID
	for _, r := range reqs {
		bank := ir.BankFor(r.req.Type.Extent.Payload.Value)
		offset := offsets[bank]
		offsets[bank] += stride(r.req)

		slot := slotCounter
		slotCounter++

		key := string(r.req.BlockID) + "." + string(r.req.PortID)
		out.ValueSlots[key] = slot
		out.SlotMeta = append(out.SlotMeta, ir.SlotMeta{
			Slot:      slot,
			Storage:   bank,
			Offset:    offset,
			Type:      r.req.Type,
			DebugName: key,
		})
		out.Debug.SlotToBlock[slot] = string(r.req.BlockID)
		out.Debug.PortBindings[key] = slot
	}

	// Step 4: materialize stepRequests into concrete Steps, preserving
	// request order (which is already the deterministic
	// phase1-then-phase2, block-declaration order of BlockResults).
	for _, br := range in.BlockResults {
		for _, sr := range br.Result.Effects.StepRequests {
			step := materializeStep(sr, out.StateSlots)
			out.Steps = append(out.Steps, step)
			out.Debug.StepToBlock[len(out.Steps)-1] = string(br.BlockID)
		}
	}

	// Step 5 (filling in physical slots for every downstream
	// ExternalSlot consumer) is not done here: it needs the edge list,
	// which the binder has no dependency on (keeping Bind pure over
	// (Table, BlockResults, ExistingState) only). compiler/pipeline
	// does not do it either; ExprExternal expressions keep whatever
	// ExternalSlot they were built with.

	return out
}

func stride(r lower.SlotRequest) int {
	return r.Type.Extent.Payload.Value.Stride()
}

func materializeStep(sr lower.StepRequest, stateSlots map[patch.StableStateId]ir.StateSlotID) ir.Step {
	switch sr.Kind {
	case lower.ReqStateWrite:
		return ir.Step{
			Kind:         ir.StepStateWrite,
			Phase:        ir.Phase3StateWrite,
			StateSlot:    stateSlots[sr.StateKey],
			ValueExprID_: sr.ValueExpr,
		}
	case lower.ReqFieldStateWrite:
		return ir.Step{
			Kind:         ir.StepFieldStateWrite,
			Phase:        ir.Phase3StateWrite,
			StateSlot:    stateSlots[sr.StateKey],
			InstanceID:   sr.Instance,
			ValueExprID_: sr.ValueExpr,
		}
	case lower.ReqMaterialize:
		return ir.Step{
			Kind:        ir.StepMaterialize,
			Phase:       ir.Phase1Compute,
			FieldExprID: sr.FieldExpr,
			InstanceID:  sr.Instance,
		}
	case lower.ReqContinuityMapBuild:
		return ir.Step{
			Kind:          ir.StepContinuityMapBuild,
			Phase:         ir.Phase1Compute,
			InstanceID:    sr.Instance,
			MappingOutput: sr.TargetKey,
		}
	case lower.ReqContinuityApply:
		return ir.Step{
			Kind:       ir.StepContinuityApply,
			Phase:      ir.Phase1Compute,
			TargetKey:  sr.TargetKey,
			Policy:     sr.Policy,
			InstanceID: sr.Instance,
			Semantic:   sr.Semantic,
		}
	case lower.ReqRender:
		return ir.Step{
			Kind:  ir.StepRender,
			Phase: ir.Phase2Render,
		}
	default:
		return ir.Step{}
	}
}
