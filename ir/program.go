package ir

// OutputKind names an entry in CompiledProgram.Outputs. The spec
// requires at least one 'renderFrame' output; future backends may add
// more kinds without changing the shape.
type OutputKind string

const OutputRenderFrame OutputKind = "renderFrame"

// Output is one program output: a kind and the slot it is produced
// into.
type Output struct {
	Kind OutputKind
	Slot ValueSlotID
}

// DebugIndex maps schedule/IR positions back to authoring identity so
// diagnostics and inspectors can resolve a slot or step to the block
// that produced it (spec.md §3.3).
type DebugIndex struct {
	StepToBlock   map[int]string
	SlotToBlock   map[ValueSlotID]string
	PortBindings  map[string]ValueSlotID // "blockId.portId" -> slot
	Labels        map[string]string
}

func NewDebugIndex() *DebugIndex {
	return &DebugIndex{
		StepToBlock:  map[int]string{},
		SlotToBlock:  map[ValueSlotID]string{},
		PortBindings: map[string]ValueSlotID{},
		Labels:       map[string]string{},
	}
}

// CompiledProgram is the complete output of the compiler pipeline: a
// ValueExpr table, the schedule, per-slot metadata, declared outputs
// and a debug index (spec.md §3.3). It is immutable once produced;
// hot-swapping the runtime to a new CompiledProgram is the only way
// its contents change from the runtime's perspective.
type CompiledProgram struct {
	IRVersion int
	Table     *Table
	Schedule  *Schedule
	SlotMeta  []SlotMeta
	Outputs   []Output
	Debug     *DebugIndex

	// SlotCount per storage bank, used by runtime.NewRuntime and
	// Runtime.LoadProgram to size the value banks (spec.md §3.4
	// Lifecycle).
	SlotCounts map[StorageBank]int
	// StateSlotCount is the number of persistent state slots bound.
	StateSlotCount int
}

// SlotMetaFor is a convenience lookup by linear scan over SlotMeta.
// The runtime's continuity steps and the render package both look
// value slots up through it.
func (p *CompiledProgram) SlotMetaFor(slot ValueSlotID) (SlotMeta, bool) {
	for _, m := range p.SlotMeta {
		if m.Slot == slot {
			return m, true
		}
	}
	return SlotMeta{}, false
}
