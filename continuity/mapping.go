package continuity

import (
	"sync"
)

// MappingKind names which strategy produced an ElementMapping
// (spec.md §4.11.2).
type MappingKind int

const (
	MappingIdentity MappingKind = iota
	MappingByID
	MappingByPosition
	MappingCrossfadeFallback
)

// ElementMapping carries, for each element in the new domain, the
// index of the corresponding old element (or -1 for a newborn).
type ElementMapping struct {
	Kind     MappingKind
	NewToOld []int32
}

// IdentityMode matches a domain's declared identityMode (spec.md
// §4.11.2).
type IdentityMode int

const (
	IdentityNone IdentityMode = iota
	IdentityStable
)

// BuildMapping derives an ElementMapping from the old and new
// element-id arrays (and position hints, when ids are unusable).
// Identity-count, same-order domains short-circuit to MappingIdentity
// without allocating a lookup table.
func BuildMapping(oldIDs, newIDs []uint32, mode IdentityMode, oldPos, newPos [][2]float32) *ElementMapping {
	if len(oldIDs) == len(newIDs) && sameOrder(oldIDs, newIDs) {
		return &ElementMapping{Kind: MappingIdentity, NewToOld: identitySlice(len(newIDs))}
	}

	if mode == IdentityStable && len(oldIDs) > 0 {
		return &ElementMapping{Kind: MappingByID, NewToOld: mapByID(oldIDs, newIDs)}
	}

	if len(oldPos) > 0 && len(newPos) == len(newIDs) {
		return &ElementMapping{Kind: MappingByPosition, NewToOld: mapByPosition(oldPos, newPos)}
	}

	out := make([]int32, len(newIDs))
	for i := range out {
		out[i] = -1
	}
	return &ElementMapping{Kind: MappingCrossfadeFallback, NewToOld: out}
}

func sameOrder(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func identitySlice(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(i)
	}
	return out
}

func mapByID(oldIDs, newIDs []uint32) []int32 {
	index := make(map[uint32]int32, len(oldIDs))
	for i, id := range oldIDs {
		index[id] = int32(i)
	}
	out := make([]int32, len(newIDs))
	for i, id := range newIDs {
		if oldIdx, ok := index[id]; ok {
			out[i] = oldIdx
		} else {
			out[i] = -1
		}
	}
	return out
}

// gridCellSize is the spatial-hash bucket size used by byPosition
// matching. Position hints are normalized ([0,1]-ish) domain
// coordinates in practice, so a coarse fixed cell keeps bucket
// occupancy low without needing a dynamic grid.
const gridCellSize = 0.05

func mapByPosition(oldPos, newPos [][2]float32) []int32 {
	grid := make(map[[2]int32][]int32, len(oldPos))
	cell := func(p [2]float32) [2]int32 {
		return [2]int32{int32(p[0] / gridCellSize), int32(p[1] / gridCellSize)}
	}
	for i, p := range oldPos {
		c := cell(p)
		grid[c] = append(grid[c], int32(i))
	}

	used := make(map[int32]bool, len(oldPos))
	out := make([]int32, len(newPos))
	for i, p := range newPos {
		c := cell(p)
		best := int32(-1)
		bestDist := float32(-1)
		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				for _, oldIdx := range grid[[2]int32{c[0] + dx, c[1] + dy}] {
					if used[oldIdx] {
						continue
					}
					op := oldPos[oldIdx]
					d := sqDist(p, op)
					if best == -1 || d < bestDist {
						best, bestDist = oldIdx, d
					}
				}
			}
		}
		if best != -1 {
			used[best] = true
		}
		out[i] = best
	}
	return out
}

func sqDist(a, b [2]float32) float32 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}

// domainKey identifies one side (old or new) of a mapping cache entry.
type domainKey struct {
	blockID string
	rev     uint64
}

// MappingCache memoizes ElementMapping by (oldDomainKey, newDomainKey)
// so mapping only rebuilds on an actual domain change, never per frame
// (spec.md §4.11.2: "Mapping is built only on domain change").
type MappingCache struct {
	mu      sync.Mutex
	entries map[[2]domainKey]*ElementMapping
}

func NewMappingCache() *MappingCache {
	return &MappingCache{entries: map[[2]domainKey]*ElementMapping{}}
}

func (c *MappingCache) Get(oldBlock string, oldRev uint64, newBlock string, newRev uint64) (*ElementMapping, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[[2]domainKey{{oldBlock, oldRev}, {newBlock, newRev}}]
	return m, ok
}

func (c *MappingCache) Put(oldBlock string, oldRev uint64, newBlock string, newRev uint64, m *ElementMapping) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[[2]domainKey{{oldBlock, oldRev}, {newBlock, newRev}}] = m
}
