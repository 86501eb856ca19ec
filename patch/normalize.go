package patch

import (
	"fmt"
	"sort"
)

// BlockIndex is the dense, canonical-order index assigned to a block
// during normalization. Topological when the raw graph is acyclic;
// otherwise blocks participating in cycles keep a stable relative
// order derived from their original declaration order.
type BlockIndex int

// NormalizationError reports a fatal structural defect (spec.md §4.1).
type NormalizationError struct {
	Code    string
	Message string
}

func (e *NormalizationError) Error() string { return e.Code + ": " + e.Message }

// NormalizedPatch is a Patch annotated with dense identity: a
// BlockIndex per block, a side table back to the original BlockID,
// and edges canonicalized into a stable, deterministic order.
type NormalizedPatch struct {
	Patch

	IndexOf   map[BlockID]BlockIndex
	BlockOf   []BlockID // BlockIndex -> BlockID
	SynthAnchors map[BlockID]bool // true for synthesized (default-source/adapter) blocks
}

// Normalize assigns dense indices, rejects structurally invalid
// edges, and canonicalizes edge order (spec.md §4.1).
func Normalize(p Patch) (*NormalizedPatch, []*NormalizationError) {
	var errs []*NormalizationError

	seen := map[BlockID]bool{}
	for _, b := range p.Blocks {
		if seen[b.ID] {
			errs = append(errs, &NormalizationError{"DuplicateBlockId", string(b.ID)})
			continue
		}
		seen[b.ID] = true
	}

	var validEdges []Edge
	for _, e := range p.Edges {
		from, fromOK := p.BlockByID(e.FromBlock)
		to, toOK := p.BlockByID(e.ToBlock)
		if !fromOK || !toOK {
			errs = append(errs, &NormalizationError{"DanglingEdge",
				fmt.Sprintf("%s.%s -> %s.%s", e.FromBlock, e.FromPort, e.ToBlock, e.ToPort)})
			continue
		}
		if _, ok := from.OutputPort(e.FromPort); !ok {
			errs = append(errs, &NormalizationError{"DanglingEdge",
				fmt.Sprintf("unknown output port %s.%s", e.FromBlock, e.FromPort)})
			continue
		}
		if _, ok := to.InputPort(e.ToPort); !ok {
			errs = append(errs, &NormalizationError{"DanglingEdge",
				fmt.Sprintf("unknown input port %s.%s", e.ToBlock, e.ToPort)})
			continue
		}
		validEdges = append(validEdges, e)
	}

	if len(errs) > 0 {
		return nil, errs
	}

	// Canonicalize edge order by (toBlock, toPort, fromBlock, fromPort).
	sort.SliceStable(validEdges, func(i, j int) bool {
		a, b := validEdges[i], validEdges[j]
		if a.ToBlock != b.ToBlock {
			return a.ToBlock < b.ToBlock
		}
		if a.ToPort != b.ToPort {
			return a.ToPort < b.ToPort
		}
		if a.FromBlock != b.FromBlock {
			return a.FromBlock < b.FromBlock
		}
		return a.FromPort < b.FromPort
	})

	order := topologicalOrder(p.Blocks, validEdges)

	np := &NormalizedPatch{
		Patch:        Patch{Blocks: p.Blocks, Edges: validEdges},
		IndexOf:      make(map[BlockID]BlockIndex, len(order)),
		BlockOf:      make([]BlockID, len(order)),
		SynthAnchors: map[BlockID]bool{},
	}
	for i, id := range order {
		np.IndexOf[id] = BlockIndex(i)
		np.BlockOf[i] = id
	}
	return np, nil
}

// topologicalOrder orders blocks topologically when the graph is
// acyclic; blocks inside a cycle retain their original declaration
// order, stably merged with the topological prefix/suffix around
// them. Cycle *legality* is decided later by compiler/depgraph — this
// is purely about assigning a deterministic, dependency-respecting
// BlockIndex for dense array allocation.
func topologicalOrder(blocks []Block, edges []Edge) []BlockID {
	indeg := map[BlockID]int{}
	adj := map[BlockID][]BlockID{}
	declOrder := map[BlockID]int{}
	for i, b := range blocks {
		indeg[b.ID] = 0
		declOrder[b.ID] = i
	}
	for _, e := range edges {
		adj[e.FromBlock] = append(adj[e.FromBlock], e.ToBlock)
		indeg[e.ToBlock]++
	}

	var ready []BlockID
	for _, b := range blocks {
		if indeg[b.ID] == 0 {
			ready = append(ready, b.ID)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return declOrder[ready[i]] < declOrder[ready[j]] })

	var order []BlockID
	visited := map[BlockID]bool{}
	for len(ready) > 0 {
		// pop smallest by declaration order for determinism
		id := ready[0]
		ready = ready[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		order = append(order, id)

		var newlyReady []BlockID
		for _, next := range adj[id] {
			indeg[next]--
			if indeg[next] == 0 {
				newlyReady = append(newlyReady, next)
			}
		}
		sort.Slice(newlyReady, func(i, j int) bool { return declOrder[newlyReady[i]] < declOrder[newlyReady[j]] })
		ready = append(ready, newlyReady...)
		sort.SliceStable(ready, func(i, j int) bool { return declOrder[ready[i]] < declOrder[ready[j]] })
	}

	// Any remaining blocks are part of a cycle; append them in
	// declaration order (deterministic, legality checked later).
	for _, b := range blocks {
		if !visited[b.ID] {
			order = append(order, b.ID)
			visited[b.ID] = true
		}
	}
	return order
}

// TopologicalOrder exposes topologicalOrder to callers outside this
// package (compiler/pipeline re-sorts a NormalizedPatch's BlockOf
// after default-source/adapter insertion adds blocks out of
// dependency order).
func TopologicalOrder(blocks []Block, edges []Edge) []BlockID {
	return topologicalOrder(blocks, edges)
}

// Reindex rebuilds IndexOf/BlockOf from a freshly computed order,
// used after synthesized blocks are spliced in (spec.md §4.2, §4.4).
func (np *NormalizedPatch) Reindex(order []BlockID) {
	np.BlockOf = order
	np.IndexOf = make(map[BlockID]BlockIndex, len(order))
	for i, id := range order {
		np.IndexOf[id] = BlockIndex(i)
	}
}

// AnchorID derives a stable id for a synthesized artifact (default
// source, adapter) from its anchor block/port, so recompiles that
// don't touch the anchor reuse the same id (spec.md §4.1).
func AnchorID(kind string, anchor BlockID, localName string) BlockID {
	return BlockID(hashStrings("anchor", kind, string(anchor), localName))
}
