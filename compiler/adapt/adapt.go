// Package adapt implements adapter insertion (spec.md §4.4): ordinary
// pure blocks selected from a static rule table and spliced into an
// edge whose endpoints differ in a bridgeable way. Grounded on
// program/isa.go's registration-table pattern, generalized from
// name->behavior to pattern->transform.
package adapt

import (
	"fmt"

	"github.com/oscilla-animator/oscilla-core/canontype"
	"github.com/oscilla-animator/oscilla-core/diag"
	"github.com/oscilla-animator/oscilla-core/patch"
)

// AxisPattern is per-axis: any matches regardless of concrete value,
// Specific matches only the named value.
type AxisPattern[V comparable] struct {
	Any      bool
	Specific V
}

func Any[V comparable]() AxisPattern[V]           { return AxisPattern[V]{Any: true} }
func Specific[V comparable](v V) AxisPattern[V]    { return AxisPattern[V]{Specific: v} }

func (p AxisPattern[V]) matches(v V) bool {
	return p.Any || p.Specific == v
}

// TypePattern is a per-axis pattern over payload/cardinality-kind/
// temporality/binding. Cardinality is matched by kind only (zero/one/
// many) since instance identity never participates in adapter
// selection.
type TypePattern struct {
	Payload     AxisPattern[canontype.Payload]
	Cardinality AxisPattern[canontype.CardinalityKind]
	Temporality AxisPattern[canontype.Temporality]
	Binding     AxisPattern[canontype.Binding]
}

func (tp TypePattern) Matches(t canontype.CanonicalType) bool {
	if t.Extent.Payload.Kind != canontype.AxisInst || !tp.Payload.matches(t.Extent.Payload.Value) {
		return false
	}
	if t.Extent.Cardinality.Kind != canontype.AxisInst || !tp.Cardinality.matches(t.Extent.Cardinality.Value.Kind) {
		return false
	}
	if t.Extent.Temporality.Kind != canontype.AxisInst || !tp.Temporality.matches(t.Extent.Temporality.Value) {
		return false
	}
	if t.Extent.Binding.Kind != canontype.AxisInst || !tp.Binding.matches(t.Extent.Binding.Value) {
		return false
	}
	return true
}

// ExtentTransform computes the adapter's output type given its
// resolved input type.
type ExtentTransform func(in canontype.CanonicalType) canontype.CanonicalType

// Rule is one static adapter rule. Rules are declared most-specific
// first; Insert uses first-match-wins (spec.md §4.4).
type Rule struct {
	ID        string
	Name      string
	From      TypePattern
	To        TypePattern
	Transform ExtentTransform
	BlockType string
}

// table is the static rule list. Its declaration order is
// authoritative and no specificity score is computed: rules are
// registered most-specific first (an editorial property of the table,
// not something Insert recomputes).
var table []Rule

// Register appends a rule to the static table. Called from an init()
// in a catalog file the way program/isa.go's defaultISAinit registers
// instruction behaviors.
func Register(r Rule) {
	table = append(table, r)
}

func init() {
	// float (signal) -> vec2 (signal): broadcast into both components.
	Register(Rule{
		ID:   "float-signal-to-vec2-signal",
		Name: "BroadcastFloatToVec2",
		From: TypePattern{Payload: Specific(canontype.PayloadFloat), Cardinality: Specific(canontype.CardOne), Temporality: Any[canontype.Temporality](), Binding: Any[canontype.Binding]()},
		To:   TypePattern{Payload: Specific(canontype.PayloadVec2), Cardinality: Specific(canontype.CardOne), Temporality: Any[canontype.Temporality](), Binding: Any[canontype.Binding]()},
		Transform: func(in canontype.CanonicalType) canontype.CanonicalType {
			out := in
			out.Extent.Payload = canontype.Inst(canontype.PayloadVec2)
			return out
		},
		BlockType: "__adapter_broadcastFloatToVec2",
	})

	// int (signal) -> float (signal): widen.
	Register(Rule{
		ID:   "int-signal-to-float-signal",
		Name: "WidenIntToFloat",
		From: TypePattern{Payload: Specific(canontype.PayloadInt), Cardinality: Specific(canontype.CardOne), Temporality: Any[canontype.Temporality](), Binding: Any[canontype.Binding]()},
		To:   TypePattern{Payload: Specific(canontype.PayloadFloat), Cardinality: Specific(canontype.CardOne), Temporality: Any[canontype.Temporality](), Binding: Any[canontype.Binding]()},
		Transform: func(in canontype.CanonicalType) canontype.CanonicalType {
			out := in
			out.Extent.Payload = canontype.Inst(canontype.PayloadFloat)
			return out
		},
		BlockType: "__adapter_widenIntToFloat",
	})

	// float (const) -> float (signal): lift a compile-time constant to
	// a per-frame signal lane.
	Register(Rule{
		ID:   "float-const-to-float-signal",
		Name: "LiftFloatConstToSignal",
		From: TypePattern{Payload: Specific(canontype.PayloadFloat), Cardinality: Specific(canontype.CardZero), Temporality: Any[canontype.Temporality](), Binding: Any[canontype.Binding]()},
		To:   TypePattern{Payload: Specific(canontype.PayloadFloat), Cardinality: Specific(canontype.CardOne), Temporality: Specific(canontype.TemporalContinuous), Binding: Any[canontype.Binding]()},
		Transform: func(in canontype.CanonicalType) canontype.CanonicalType {
			out := in
			out.Extent.Cardinality = canontype.Inst(canontype.Cardinality{Kind: canontype.CardOne})
			out.Extent.Temporality = canontype.Inst(canontype.TemporalContinuous)
			return out
		},
		BlockType: "__adapter_liftFloatConstToSignal",
	})
}

// AdapterBlock describes one synthesized adapter block to splice
// between an edge's original endpoints.
type AdapterBlock struct {
	Block   patch.Block
	Rule    Rule
	Edge1   patch.Edge // source -> adapter
	Edge2   patch.Edge // adapter -> original target
}

// Insert scans resolved edges and, for any edge whose endpoint types
// differ, finds the first matching rule and splices an adapter block
// in. Edges whose types already match are left untouched. An edge
// with no matching rule produces an Unbridgeable diagnostic.
func Insert(np *patch.NormalizedPatch, resolvedType func(blockID patch.BlockID, portID patch.PortID, isOutput bool) canontype.CanonicalType) (inserted []AdapterBlock, diags []diag.Diagnostic) {
	for _, e := range np.Edges {
		if !e.Enabled {
			continue
		}
		fromType := resolvedType(e.FromBlock, e.FromPort, true)
		toType := resolvedType(e.ToBlock, e.ToPort, false)
		if typesEqual(fromType, toType) {
			continue
		}

		rule, ok := findRule(fromType, toType)
		if !ok {
			diags = append(diags, diag.New(diag.CodeUnbridgeable, diag.SeverityError, diag.DomainAdaptation,
				fmt.Sprintf("%s.%s->%s.%s", e.FromBlock, e.FromPort, e.ToBlock, e.ToPort),
				diag.Scope{},
				"Unbridgeable type mismatch",
				fmt.Sprintf("no adapter rule bridges %s to %s", fromType, toType),
			))
			continue
		}

		adapterID := patch.AnchorID("adapter", e.ToBlock, string(e.ToPort)+"<-"+string(e.FromBlock)+"."+string(e.FromPort))
		outType := rule.Transform(fromType)
		blk := patch.Block{
			ID:          adapterID,
			Type:        rule.BlockType,
			InputPorts:  []patch.Port{{ID: "in", Type: fromType}},
			OutputPorts: []patch.Port{{ID: "out", Type: outType}},
			DisplayName: rule.Name,
		}

		inserted = append(inserted, AdapterBlock{
			Block: blk,
			Rule:  rule,
			Edge1: patch.Edge{FromBlock: e.FromBlock, FromPort: e.FromPort, ToBlock: adapterID, ToPort: "in", CombineMode: patch.CombineWriterWins, Enabled: true},
			Edge2: patch.Edge{FromBlock: adapterID, FromPort: "out", ToBlock: e.ToBlock, ToPort: e.ToPort, CombineMode: e.CombineMode, Enabled: true},
		})
	}
	return inserted, diags
}

func findRule(from, to canontype.CanonicalType) (Rule, bool) {
	for _, r := range table {
		if r.From.Matches(from) && r.To.Matches(to) {
			return r, true
		}
	}
	return Rule{}, false
}

func typesEqual(a, b canontype.CanonicalType) bool {
	return a.Extent.Payload == b.Extent.Payload &&
		a.Extent.Cardinality.Kind == canontype.AxisInst && b.Extent.Cardinality.Kind == canontype.AxisInst &&
		a.Extent.Cardinality.Value.Kind == b.Extent.Cardinality.Value.Kind &&
		a.Extent.Cardinality.Value.InstanceRef == b.Extent.Cardinality.Value.InstanceRef &&
		a.Extent.Temporality == b.Extent.Temporality &&
		a.Extent.Binding == b.Extent.Binding
}
