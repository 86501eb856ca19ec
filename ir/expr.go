// Package ir is the unified intermediate representation a compiled
// Patch lowers to: a dense ValueExpr table, a constant pool, a typed
// schedule, per-slot metadata and a debug index (spec.md §3.3).
package ir

import "github.com/oscilla-animator/oscilla-core/canontype"

// IRVersion is the numeric literal persisted programs are tagged
// with; bumping it requires migration (spec.md §6.4).
const IRVersion = 1

// ValueExprID indexes the dense ValueExpr table.
type ValueExprID int

// ConstID indexes the constants pool.
type ConstID int

// ExprKind discriminates ValueExpr variants.
type ExprKind int

const (
	ExprConst ExprKind = iota
	ExprExternal
	ExprIntrinsic
	ExprKernel
	ExprState
	ExprTime
)

// IntrinsicKind enumerates the fixed intrinsic set (spec.md §3.3).
type IntrinsicKind int

const (
	IntrinsicIndex IntrinsicKind = iota
	IntrinsicNormIndex
	IntrinsicRandomID
	IntrinsicUV
	IntrinsicRank
	IntrinsicSeed
)

// KernelOp enumerates the pure map/zip/reduce/broadcast shapes a
// Kernel expression may take. The actual function is referenced
// symbolically by name (ValueExpr.KernelFunc) into a registry
// resolved at runtime —
// ValueExpr itself stays pure data, per the effects-as-data lowering
// discipline (spec.md §4.7, §9).
type KernelOp int

const (
	KernelMap KernelOp = iota
	KernelZip
	KernelReduce
	KernelBroadcast
)

// StateSlotID is the physical, post-binding index of a persistent
// state slot. -1 denotes "not yet bound" (symbolic only).
type StateSlotID int

const UnboundStateSlot StateSlotID = -1

// ValueSlotID is the physical, post-binding index of a value slot.
type ValueSlotID int

// ValueExpr is one entry in the unified expression table. Every
// variant carries `Type`; `Kind` is the discriminant (spec.md §3.3 —
// forbidding separate typed constant pools or redundant instanceId
// fields is enforced by keeping exactly these fields and nothing more
// per variant).
type ValueExpr struct {
	Kind ExprKind
	Type canontype.CanonicalType

	// ExprConst
	ConstValue ConstID

	// ExprExternal: a slot read, e.g. a domain-published signal.
	ExternalSlot ValueSlotID

	// ExprIntrinsic
	Intrinsic IntrinsicKind

	// ExprKernel
	KernelOp   KernelOp
	KernelFunc string        // symbolic reference into the pure-function registry
	KernelArgs []ValueExprID

	// ExprState: symbolic before binding; ResolvedSlot is filled by
	// the binding pass (spec.md §4.8 step 2).
	StateKey      string // patch.StableStateId, stored as string to avoid an import cycle
	ResolvedSlot  StateSlotID

	// ExprTime: which canonical time rail this reads (spec.md §4.5).
	TimeRail TimeRail
}

// TimeRail names one of the canonical time-derived signals.
type TimeRail int

const (
	RailTModel TimeRail = iota
	RailDt
	RailPhaseA
	RailPhaseB
	RailWrapEvent
	RailProgress01
)

// Table is the dense ValueExpr array plus the constants pool it
// addresses by index (spec.md §3.3: "constants.json: all compile-time
// constants as canonical JSON values addressed by index").
type Table struct {
	Exprs     []ValueExpr
	Constants []any
}

func NewTable() *Table {
	return &Table{}
}

// Add appends an expression and returns its id. Builders use this
// during lowering; the resulting ids are pure IR, no slot allocation
// happens here (spec.md §4.7's effects-as-data discipline).
func (t *Table) Add(e ValueExpr) ValueExprID {
	t.Exprs = append(t.Exprs, e)
	return ValueExprID(len(t.Exprs) - 1)
}

// AddConst interns a compile-time constant and returns a Const
// ValueExpr referencing it.
func (t *Table) AddConst(typ canontype.CanonicalType, v any) ValueExprID {
	cid := ConstID(len(t.Constants))
	t.Constants = append(t.Constants, v)
	return t.Add(ValueExpr{Kind: ExprConst, Type: typ, ConstValue: cid})
}

func (t *Table) Get(id ValueExprID) ValueExpr { return t.Exprs[id] }
