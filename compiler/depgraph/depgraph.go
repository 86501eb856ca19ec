// Package depgraph builds the block dependency graph and computes
// Strongly Connected Components to decide cycle legality (spec.md
// §4.6). Grounded on cgra/cgra.go's explicit tile/side adjacency
// construction, generalized from spatial neighbors to data
// dependency edges.
package depgraph

import (
	"fmt"
	"sort"

	"github.com/oscilla-animator/oscilla-core/diag"
	"github.com/oscilla-animator/oscilla-core/patch"
)

// MemoryPrimitiveTypes is the fixed set of stateful primitives whose
// state read/write can straddle a cycle and make it legal (spec.md
// §4.6, §4.7.1 — exactly six).
var MemoryPrimitiveTypes = map[string]bool{
	"UnitDelay":      true,
	"Lag":            true,
	"Phasor":         true,
	"SampleAndHold":  true,
	"Accumulator":    true,
	"Slew":           true,
}

// Graph is the directed block dependency graph used for SCC analysis.
type Graph struct {
	nodes []patch.BlockID
	index map[patch.BlockID]int
	adj   [][]int
}

// Build constructs the dependency graph from the normalized patch's
// enabled edges, one node per block in canonical BlockIndex order.
func Build(np *patch.NormalizedPatch) *Graph {
	g := &Graph{
		nodes: append([]patch.BlockID(nil), np.BlockOf...),
		index: make(map[patch.BlockID]int, len(np.BlockOf)),
	}
	for i, id := range g.nodes {
		g.index[id] = i
	}
	g.adj = make([][]int, len(g.nodes))
	for _, e := range np.Edges {
		if !e.Enabled {
			continue
		}
		fi, fok := g.index[e.FromBlock]
		ti, tok := g.index[e.ToBlock]
		if !fok || !tok {
			continue
		}
		g.adj[fi] = append(g.adj[fi], ti)
	}
	return g
}

// SCC is one strongly connected component; Blocks are sorted by
// BlockIndex.
type SCC struct {
	Blocks   []patch.BlockID
	SelfLoop bool // true when the single-block SCC has a self edge
}

// Tarjan computes all SCCs in deterministic order: each SCC's blocks
// are sorted by BlockIndex, and the returned list is sorted by the id
// string of each SCC's first block.
func (g *Graph) Tarjan() []SCC {
	n := len(g.nodes)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	counter := 0
	var result []SCC

	var strongconnect func(v int)
	strongconnect = func(v int) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.adj[v] {
			if index[w] == -1 {
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] {
				if index[w] < low[v] {
					low[v] = index[w]
				}
			}
		}

		if low[v] == index[v] {
			var comp []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sort.Ints(comp)
			blocks := make([]patch.BlockID, len(comp))
			for i, idx := range comp {
				blocks[i] = g.nodes[idx]
			}
			selfLoop := false
			if len(comp) == 1 {
				for _, w := range g.adj[comp[0]] {
					if w == comp[0] {
						selfLoop = true
					}
				}
			}
			result = append(result, SCC{Blocks: blocks, SelfLoop: selfLoop})
		}
	}

	for v := 0; v < n; v++ {
		if index[v] == -1 {
			strongconnect(v)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return string(result[i].Blocks[0]) < string(result[j].Blocks[0])
	})
	return result
}

// CheckLegality validates every SCC per spec.md §4.6: size-1 with no
// self-loop is trivially acyclic; size>=2 or a self-loop is a cycle,
// legal only if it contains at least one of the six memory-boundary
// primitives. blockType maps a block id to its declared block type.
func CheckLegality(sccs []SCC, blockType func(patch.BlockID) string) []diag.Diagnostic {
	var diags []diag.Diagnostic
	for _, scc := range sccs {
		isCycle := len(scc.Blocks) >= 2 || scc.SelfLoop
		if !isCycle {
			continue
		}

		hasMemory := false
		for _, b := range scc.Blocks {
			if MemoryPrimitiveTypes[blockType(b)] {
				hasMemory = true
				break
			}
		}

		if !hasMemory {
			names := make([]string, len(scc.Blocks))
			for i, b := range scc.Blocks {
				names[i] = string(b)
			}
			diags = append(diags, diag.New(diag.CodeCycleIllegal, diag.SeverityFatal, diag.DomainTopology,
				names[0], diag.Scope{},
				"Illegal cycle",
				fmt.Sprintf("blocks %v form a cycle with no memory-boundary primitive "+
					"(one of UnitDelay, Lag, Phasor, SampleAndHold, Accumulator, Slew)", names),
			).WithMetadata("blocks", names))
		}
	}
	return diags
}
