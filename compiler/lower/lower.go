// Package lower implements effects-as-data lowering (spec.md §4.7):
// every block's lowering function is declarative, returning pure IR
// expression ids plus a bundle of effects (state declarations, step
// requests, slot requests) for a single later pass to apply. Grounded
// directly on core/emu_ir.go's RunInstIR/runPhiIR, which already
// returns computed results rather than mutating global interpreter
// state inline.
package lower

import (
	"github.com/oscilla-animator/oscilla-core/canontype"
	"github.com/oscilla-animator/oscilla-core/ir"
	"github.com/oscilla-animator/oscilla-core/patch"
)

// StateDecl declares a persistent state slot a block's lowering needs.
// Referenced symbolically by StableStateId; physical allocation is the
// binding pass's job (spec.md §4.7, §4.8).
type StateDecl struct {
	Key         patch.StableStateId
	InitialValue any
	Stride      int    // 0 means scalar
	Instance    string // non-empty for per-element (fieldState) declarations
	LaneCount   int
}

// StepRequestKind discriminates a requested schedule step before it
// has physical slots (spec.md §4.7's stepRequests tags).
type StepRequestKind int

const (
	ReqStateWrite StepRequestKind = iota
	ReqFieldStateWrite
	ReqMaterialize
	ReqContinuityMapBuild
	ReqContinuityApply
	ReqRender
)

// StepRequest is a symbolic schedule step: it names value-expr ids and
// StableStateIds, not physical slots. compiler/bind materializes these
// into ir.Step values.
type StepRequest struct {
	Kind StepRequestKind

	StateKey    patch.StableStateId
	ValueExpr   ir.ValueExprID
	FieldExpr   ir.ValueExprID
	Instance    string

	// ReqContinuityMapBuild / ReqContinuityApply
	TargetKey string
	Policy    string
	BaseExpr  ir.ValueExprID
	Semantic  ir.ContinuitySemantic

	// ReqRender
	PositionExpr ir.ValueExprID
	ColorExpr    ir.ValueExprID
	SizeExpr     ir.ValueExprID
	RotationExpr ir.ValueExprID
	Scale2Expr   ir.ValueExprID
	ShapeExpr    ir.ValueExprID
	UniformShape string
}

// SlotRequest asks the binder to allocate a physical ValueSlot for a
// block output port (spec.md §4.7).
type SlotRequest struct {
	BlockID patch.BlockID
	PortID  patch.PortID
	Type    canontype.CanonicalType
}

// Effects is the data a lowering function returns alongside its pure
// expression outputs; blocks never allocate slots or write schedule
// steps directly (spec.md §4.7, §9 "Effects-as-data lowering").
type Effects struct {
	StateDecls   []StateDecl
	StepRequests []StepRequest
	SlotRequests []SlotRequest
}

// Result is the full return value of a block's lowering function.
type Result struct {
	ExprOutputs map[patch.PortID]ir.ValueExprID
	Effects     Effects
}

// Context is the builder handle a lowering function uses for pure IR
// construction, plus resolved inputs, config and instance id (spec.md
// §4.7). It wraps an *ir.Table so lowering functions never see the
// table's internal array mechanics, matching the teacher's pattern of
// instruction behaviors operating purely on typed operands
// (instr/instr.go's Inst.Execute).
type Context struct {
	Table *ir.Table

	BlockID  patch.BlockID
	Params   map[string]any
	Instance string // non-empty when the block executes over a domain

	// Inputs maps input PortID to the already-lowered expression
	// feeding it (after combine-mode resolution upstream).
	Inputs map[patch.PortID]ir.ValueExprID

	// InputTypes mirrors Inputs with each input's resolved type, for
	// lowering functions that branch on payload.
	InputTypes map[patch.PortID]canontype.CanonicalType

	// OutputTypes carries each of the block's own output ports'
	// resolved type, for lowering functions whose output shape is
	// solver-determined rather than fixed (DefaultSource's payload is
	// whatever the solver narrowed it to).
	OutputTypes map[patch.PortID]canontype.CanonicalType
}

func (c *Context) StateKey(kind patch.StateKind) patch.StableStateId {
	return patch.NewStableStateId(c.BlockID, kind)
}

// StateRead emits a symbolic State expression reading the given key;
// resolvedSlot is left unbound until compiler/bind patches it in
// (spec.md §4.8 step 2).
func (c *Context) StateRead(key patch.StableStateId, typ canontype.CanonicalType) ir.ValueExprID {
	return c.Table.Add(ir.ValueExpr{
		Kind:         ir.ExprState,
		Type:         typ,
		StateKey:     string(key),
		ResolvedSlot: ir.UnboundStateSlot,
	})
}

// TimeRead emits an expression reading one of the canonical time
// rails (spec.md §4.5).
func (c *Context) TimeRead(rail ir.TimeRail, typ canontype.CanonicalType) ir.ValueExprID {
	return c.Table.Add(ir.ValueExpr{Kind: ir.ExprTime, Type: typ, TimeRail: rail})
}

// Const interns a compile-time constant.
func (c *Context) Const(typ canontype.CanonicalType, v any) ir.ValueExprID {
	return c.Table.AddConst(typ, v)
}

// Kernel emits a pure map/zip/reduce/broadcast expression referencing
// a symbolic function name resolved by the runtime's pure-function
// registry (spec.md §3.3).
func (c *Context) Kernel(typ canontype.CanonicalType, op ir.KernelOp, funcName string, args ...ir.ValueExprID) ir.ValueExprID {
	return c.Table.Add(ir.ValueExpr{
		Kind:       ir.ExprKernel,
		Type:       typ,
		KernelOp:   op,
		KernelFunc: funcName,
		KernelArgs: args,
	})
}

// LowerFunc is the declarative signature every block type implements:
// given a Context, return pure IR outputs plus effects. No lowering
// function may mutate global compiler state (spec.md §9).
type LowerFunc func(ctx *Context) Result
