// Package render assembles a RenderFrame from a frame's bound value
// slots: the renderer is a pure sink over positions, colors, sizes,
// rotations, and per-instance shape buffers (spec.md §4.12).
package render

import "sort"

// Verb names one control-point instruction in a topology's path
// (spec.md §4.12 step 3: "control-point verbs + flags").
type Verb byte

const (
	VerbMoveTo Verb = iota
	VerbLineTo
	VerbQuadTo
	VerbCubicTo
	VerbClose
)

// Topology is one canonical shape's static geometry description,
// addressed by a small integer id so a per-instance shape buffer can
// reference it without repeating the path data (spec.md §4.12 step 2
// packed shape word: "[topologyId, ...]").
type Topology struct {
	ID           uint32
	ControlPoints [][2]float32
	Verbs        []Verb
	Flags        uint32
}

// Canonical built-in topology ids. Domain-registered topologies start
// at 1000 and are added via RegisterTopology.
const (
	TopologyCircle uint32 = iota
	TopologySquare
	TopologyTriangle
	TopologyLine
)

var topologyTable = map[uint32]Topology{
	TopologyCircle: {
		ID:           TopologyCircle,
		ControlPoints: [][2]float32{{0, -1}, {1, 0}, {0, 1}, {-1, 0}},
		Verbs:        []Verb{VerbMoveTo, VerbQuadTo, VerbQuadTo, VerbQuadTo, VerbQuadTo, VerbClose},
	},
	TopologySquare: {
		ID:           TopologySquare,
		ControlPoints: [][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}},
		Verbs:        []Verb{VerbMoveTo, VerbLineTo, VerbLineTo, VerbLineTo, VerbClose},
	},
	TopologyTriangle: {
		ID:           TopologyTriangle,
		ControlPoints: [][2]float32{{0, -1}, {1, 1}, {-1, 1}},
		Verbs:        []Verb{VerbMoveTo, VerbLineTo, VerbLineTo, VerbClose},
	},
	TopologyLine: {
		ID:           TopologyLine,
		ControlPoints: [][2]float32{{-1, 0}, {1, 0}},
		Verbs:        []Verb{VerbMoveTo, VerbLineTo},
	},
}

// LookupTopology resolves a topology id to its static geometry.
func LookupTopology(id uint32) (Topology, bool) {
	t, ok := topologyTable[id]
	return t, ok
}

// RegisterTopology adds or replaces a domain-defined topology. Block
// libraries call this once at load time, outside the frame loop.
func RegisterTopology(t Topology) {
	topologyTable[t.ID] = t
}

// groupKey is (topologyId, pointsFieldSlot) — spec.md §4.12 step 2's
// grouping key for per-instance shape buffers.
type groupKey struct {
	topologyID      uint32
	pointsFieldSlot uint32
}

// groupInstances buckets instance indices by groupKey. The returned
// map is unordered; sortedGroupKeys gives the deterministic sorted key
// order callers iterate in (spec.md §4.12: "topology groups iterate in
// sorted key order").
func groupInstances(shapes []shapeWord) map[groupKey][]int {
	groups := map[groupKey][]int{}
	for i, s := range shapes {
		k := groupKey{s.topologyID, s.pointsFieldSlot}
		groups[k] = append(groups[k], i)
	}
	return groups
}

func sortedGroupKeys(groups map[groupKey][]int) []groupKey {
	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].topologyID != keys[j].topologyID {
			return keys[i].topologyID < keys[j].topologyID
		}
		return keys[i].pointsFieldSlot < keys[j].pointsFieldSlot
	})
	return keys
}

// contiguous reports whether idx is a run of consecutive ascending
// integers, the condition under which a group's instance buffers can
// be sliced zero-copy instead of gathered (spec.md §4.11.4).
func contiguous(idx []int) bool {
	for i := 1; i < len(idx); i++ {
		if idx[i] != idx[i-1]+1 {
			return false
		}
	}
	return true
}
