// Package patch defines the authored Patch graph — blocks, edges and
// ports — and the normalization pass that gives it stable, dense
// identity before compilation (spec.md §3.2, §4.1).
package patch

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/oscilla-animator/oscilla-core/canontype"
)

// CombineMode selects how multiple edges targeting the same input
// port are merged.
type CombineMode string

const (
	CombineWriterWins CombineMode = "writerWins"
	CombineAdditive   CombineMode = "additive"
	CombineMax        CombineMode = "max"
	CombineMin        CombineMode = "min"
	CombineMul        CombineMode = "mul"
	CombineOverlay    CombineMode = "overlay"
)

// BlockID is the author-facing, edit-stable identity of a block.
type BlockID string

// PortID names a port within a block's input or output port set.
type PortID string

// StateKind names a sub-slot of persistent state a block declares,
// e.g. "primary", the kind every stateful primitive in compiler/lower
// declares (Phasor included). Combined with BlockID it forms the
// semantic handle for persistent state across edits (spec.md §3.2).
type StateKind string

// StableStateId is hash(blockId, stateKind) — the handle a lowering
// function uses to reference persistent state symbolically.
type StableStateId string

func NewStableStateId(block BlockID, kind StateKind) StableStateId {
	return StableStateId(hashStrings("state", string(block), string(kind)))
}

// Port declares a CanonicalType which may contain unification
// variables until the type solver runs.
type Port struct {
	ID   PortID
	Type canontype.CanonicalType
}

// Block is a compute unit with typed input/output ports and optional
// params. Block IDs are stable across recompiles (spec.md §4.1).
type Block struct {
	ID          BlockID
	Type        string
	Params      map[string]any
	InputPorts  []Port
	OutputPorts []Port
	DisplayName string
}

func (b *Block) InputPort(id PortID) (*Port, bool) {
	for i := range b.InputPorts {
		if b.InputPorts[i].ID == id {
			return &b.InputPorts[i], true
		}
	}
	return nil, false
}

func (b *Block) OutputPort(id PortID) (*Port, bool) {
	for i := range b.OutputPorts {
		if b.OutputPorts[i].ID == id {
			return &b.OutputPorts[i], true
		}
	}
	return nil, false
}

// Edge is a typed connection between an output port and an input
// port, carrying the combine mode applied when multiple edges target
// the same input.
type Edge struct {
	FromBlock   BlockID
	FromPort    PortID
	ToBlock     BlockID
	ToPort      PortID
	CombineMode CombineMode
	Enabled     bool
}

// Patch is the raw authored graph.
type Patch struct {
	Blocks []Block
	Edges  []Edge
}

// BlockByID does a linear scan; callers on the hot compile path should
// use NormalizedPatch's index instead.
func (p *Patch) BlockByID(id BlockID) (*Block, bool) {
	for i := range p.Blocks {
		if p.Blocks[i].ID == id {
			return &p.Blocks[i], true
		}
	}
	return nil, false
}

// hashStrings produces a short, stable, content-addressed hex id from
// an ordered list of string fields. Used for StableStateId and
// anchor-derived synthetic block ids. Plain stdlib crypto/sha256: no
// ecosystem library in the pack does deterministic content hashing
// better than the standard library for this shape of input.
func hashStrings(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		var lenBuf [8]byte
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(p)))
		h.Write(lenBuf[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// sortedKeys is a small helper used by normalization/solver code that
// must iterate maps in deterministic order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
