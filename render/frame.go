package render

import (
	"github.com/oscilla-animator/oscilla-core/ir"
	"github.com/oscilla-animator/oscilla-core/runtime"
)

// FrameVersion is the wire version stamped on every RenderFrame
// (spec.md §4.12 step 5: "RenderFrame { version:2, ops[] }").
const FrameVersion = 2

// PathStyle is one path's fill/stroke appearance.
type PathStyle struct {
	FillColor   [4]float32
	HasStroke   bool
	StrokeColor [4]float32
	StrokeWidth float32
}

// DrawPathInstancesOp draws one topology group's instances in a
// single op, the renderer's unit of batching (spec.md §4.12 step 2).
type DrawPathInstancesOp struct {
	Topology Topology
	Count    int

	// Per-instance SoA buffers, each len == Count*componentsPerInstance
	// (2 for Positions/Scale2, 4 for Colors, 1 for Sizes/Rotations).
	Positions []float32
	Colors    []float32
	Sizes     []float32
	Rotations []float32
	Scale2    []float32

	Style PathStyle
}

// RenderFrame is the complete per-frame output the renderer consumes
// (spec.md §4.12 step 5).
type RenderFrame struct {
	Version int
	Ops     []DrawPathInstancesOp
}

// shapeWord is one instance's decoded packed shape descriptor (spec.md
// §4.12 step 2: "packed Uint32 per instance: [topologyId,
// pointsFieldSlot, pointsCount, styleRef, flags, reserved...], 8
// words").
type shapeWord struct {
	topologyID      uint32
	pointsFieldSlot uint32
	pointsCount     uint32
	styleRef        uint32
	flags           uint32
}

func decodeShapeWord(raw [8]uint32) shapeWord {
	return shapeWord{
		topologyID:      raw[0],
		pointsFieldSlot: raw[1],
		pointsCount:     raw[2],
		styleRef:        raw[3],
		flags:           raw[4],
	}
}

// AssembleFrame executes one ir.StepRender: it resolves
// position/color/size/rotation/scale2 from their bound slots and, for
// per-instance shape buffers, groups instances by (topologyId,
// pointsFieldSlot) before emitting one DrawPathInstancesOp per group
// (spec.md §4.12).
func AssembleFrame(st ir.Step, rt *runtime.Runtime) RenderFrame {
	state := rt.State()
	program := rt.Program()

	positions := readF32(program, state, st.PositionSlot)
	colors := readF32(program, state, st.ColorSlot)
	sizes := readF32(program, state, st.SizeSlot)
	rotations := readF32(program, state, st.RotationSlot)
	scale2 := readF32(program, state, st.Scale2Slot)

	if st.ShapeMode == ir.ShapeUniform {
		topo, _ := LookupTopology(topologyIDFor(st.UniformShape))
		count := len(positions) / 2
		return RenderFrame{
			Version: FrameVersion,
			Ops: []DrawPathInstancesOp{{
				Topology:  topo,
				Count:     count,
				Positions: positions,
				Colors:    colors,
				Sizes:     sizes,
				Rotations: rotations,
				Scale2:    scale2,
				Style:     defaultStyle(),
			}},
		}
	}

	shapes := readShapeBuffer(program, state, st.ShapeSlot)
	groups := groupInstances(shapes)
	keys := sortedGroupKeys(groups)

	ops := make([]DrawPathInstancesOp, 0, len(keys))
	for _, k := range keys {
		idx := groups[k]
		topo, _ := LookupTopology(k.topologyID)
		ops = append(ops, DrawPathInstancesOp{
			Topology:  topo,
			Count:     len(idx),
			Positions: gatherVec(positions, idx, 2),
			Colors:    gatherVec(colors, idx, 4),
			Sizes:     gatherVec(sizes, idx, 1),
			Rotations: gatherVec(rotations, idx, 1),
			Scale2:    gatherVec(scale2, idx, 2),
			Style:     defaultStyle(),
		})
	}

	return RenderFrame{Version: FrameVersion, Ops: ops}
}

func defaultStyle() PathStyle {
	return PathStyle{FillColor: [4]float32{1, 1, 1, 1}}
}

// topologyIDFor resolves a uniform-shape string label (the compiler's
// UniformShape debug label) to a numeric topology id; unknown labels
// fall back to the circle.
func topologyIDFor(label string) uint32 {
	switch label {
	case "square":
		return TopologySquare
	case "triangle":
		return TopologyTriangle
	case "line":
		return TopologyLine
	default:
		return TopologyCircle
	}
}

func readF32(program *ir.CompiledProgram, state *runtime.State, slot ir.ValueSlotID) []float32 {
	meta, ok := program.SlotMetaFor(slot)
	if !ok {
		return nil
	}
	vals := state.ReadSlot(meta)
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = float32(v)
	}
	return out
}

// readShapeBuffer reads a per-instance shape buffer out of the object
// bank: it is stored as a []uint32 of 8-word groups, one per instance.
func readShapeBuffer(program *ir.CompiledProgram, state *runtime.State, slot ir.ValueSlotID) []shapeWord {
	meta, ok := program.SlotMetaFor(slot)
	if !ok || meta.Storage != ir.StorageObject {
		return nil
	}
	raw, ok := state.ReadObjectSlot(meta).([]uint32)
	if !ok {
		return nil
	}
	n := len(raw) / 8
	out := make([]shapeWord, n)
	for i := 0; i < n; i++ {
		var words [8]uint32
		copy(words[:], raw[i*8:i*8+8])
		out[i] = decodeShapeWord(words)
	}
	return out
}

// gatherVec slices or gathers componentsPerInstance-wide runs out of
// src for the given instance indices, using a zero-copy slice when idx
// is contiguous (spec.md §4.11.4).
func gatherVec(src []float32, idx []int, componentsPerInstance int) []float32 {
	if len(idx) == 0 || len(src) == 0 {
		return nil
	}
	if contiguous(idx) {
		start := idx[0] * componentsPerInstance
		end := (idx[len(idx)-1] + 1) * componentsPerInstance
		if end <= len(src) {
			return src[start:end]
		}
	}
	out := make([]float32, 0, len(idx)*componentsPerInstance)
	for _, i := range idx {
		start := i * componentsPerInstance
		end := start + componentsPerInstance
		if end <= len(src) {
			out = append(out, src[start:end]...)
		}
	}
	return out
}
