package canontype

import "fmt"

// Solver is a monotone, confluent union-find unification engine over
// the five-plus-payload axes. One Solver instance is scoped to a
// single compile (spec.md §4.3); it is deterministic because callers
// must iterate edges in canonical order before calling Unify.
type Solver struct {
	parent []int
	// One map per axis holds the concrete value recorded for a
	// union-find id, kept separate per axis because each axis has its
	// own value type; ResolveX looks a var's root up in its axis's map.
	payload     map[int]Payload
	cardinality map[int]Cardinality
	temporality map[int]Temporality
	binding     map[int]Binding

	// conflicts collected during Unify, consumed by the caller to
	// build diagnostics; a Solver does not itself throw.
	conflicts []Conflict
}

// Conflict records two concrete, unequal values merged by a Unify
// call, with the axis name for diagnostic rendering.
type Conflict struct {
	Axis string
	A, B string
}

func NewSolver() *Solver {
	return &Solver{
		parent:      make([]int, 0, 64),
		payload:     map[int]Payload{},
		cardinality: map[int]Cardinality{},
		temporality: map[int]Temporality{},
		binding:     map[int]Binding{},
	}
}

// NewVar allocates a fresh unification variable and returns its id.
func (s *Solver) NewVar() VarID {
	id := len(s.parent)
	s.parent = append(s.parent, id)
	return VarID(id)
}

func (s *Solver) find(id int) int {
	for s.parent[id] != id {
		s.parent[id] = s.parent[s.parent[id]]
		id = s.parent[id]
	}
	return id
}

func (s *Solver) union(a, b int) int {
	ra, rb := s.find(a), s.find(b)
	if ra == rb {
		return ra
	}
	// union by index keeps merges deterministic: the lower id survives
	// as root, independent of call order within a single fixpoint pass.
	if ra > rb {
		ra, rb = rb, ra
	}
	s.parent[rb] = ra
	return ra
}

// varOrFresh returns the union-find class id for an axis endpoint,
// allocating a fresh singleton class for concrete (inst) values so
// UnifyX can treat var/inst uniformly.
func (a Axis[V]) varOrFresh(s *Solver) int {
	if a.Kind == AxisVar {
		return int(a.VarID)
	}
	id := len(s.parent)
	s.parent = append(s.parent, id)
	return id
}

// UnifyPayload merges two Axis[Payload] endpoints.
func (s *Solver) UnifyPayload(a, b Axis[Payload]) {
	ra, rb := a.varOrFresh(s), b.varOrFresh(s)
	if a.Kind == AxisInst {
		s.payload[ra] = a.Value
	}
	if b.Kind == AxisInst {
		s.payload[rb] = b.Value
	}
	root := s.union(ra, rb)
	pa, hasA := s.payload[ra]
	pb, hasB := s.payload[rb]
	switch {
	case hasA && hasB && pa != pb:
		s.conflicts = append(s.conflicts, Conflict{"payload", pa.String(), pb.String()})
		s.payload[root] = pa
	case hasA:
		s.payload[root] = pa
	case hasB:
		s.payload[root] = pb
	}
}

// UnifyCardinality merges two Axis[Cardinality] endpoints.
func (s *Solver) UnifyCardinality(a, b Axis[Cardinality]) {
	ra, rb := a.varOrFresh(s), b.varOrFresh(s)
	if a.Kind == AxisInst {
		s.cardinality[ra] = a.Value
	}
	if b.Kind == AxisInst {
		s.cardinality[rb] = b.Value
	}
	root := s.union(ra, rb)
	ca, hasA := s.cardinality[ra]
	cb, hasB := s.cardinality[rb]
	switch {
	case hasA && hasB && !sameCardinality(ca, cb):
		s.conflicts = append(s.conflicts, Conflict{"cardinality", ca.String(), cb.String()})
		s.cardinality[root] = ca
	case hasA:
		s.cardinality[root] = ca
	case hasB:
		s.cardinality[root] = cb
	}
}

func sameCardinality(a, b Cardinality) bool {
	return a.Kind == b.Kind && a.InstanceRef == b.InstanceRef
}

// UnifyTemporality merges two Axis[Temporality] endpoints.
func (s *Solver) UnifyTemporality(a, b Axis[Temporality]) {
	ra, rb := a.varOrFresh(s), b.varOrFresh(s)
	if a.Kind == AxisInst {
		s.temporality[ra] = a.Value
	}
	if b.Kind == AxisInst {
		s.temporality[rb] = b.Value
	}
	root := s.union(ra, rb)
	ta, hasA := s.temporality[ra]
	tb, hasB := s.temporality[rb]
	switch {
	case hasA && hasB && ta != tb:
		s.conflicts = append(s.conflicts, Conflict{"temporality", ta.String(), tb.String()})
		s.temporality[root] = ta
	case hasA:
		s.temporality[root] = ta
	case hasB:
		s.temporality[root] = tb
	}
}

// UnifyBinding merges two Axis[Binding] endpoints.
func (s *Solver) UnifyBinding(a, b Axis[Binding]) {
	ra, rb := a.varOrFresh(s), b.varOrFresh(s)
	if a.Kind == AxisInst {
		s.binding[ra] = a.Value
	}
	if b.Kind == AxisInst {
		s.binding[rb] = b.Value
	}
	root := s.union(ra, rb)
	ba, hasA := s.binding[ra]
	bb, hasB := s.binding[rb]
	switch {
	case hasA && hasB && ba != bb:
		s.conflicts = append(s.conflicts, Conflict{"binding", ba.String(), bb.String()})
		s.binding[root] = ba
	case hasA:
		s.binding[root] = ba
	case hasB:
		s.binding[root] = bb
	}
}

// UnifyType unifies two CanonicalTypes axis by axis (spec.md §4.3
// step 2: `Type(fromPort) ≡ Type(toPort)` structural equality).
func (s *Solver) UnifyType(a, b CanonicalType) {
	s.UnifyPayload(a.Extent.Payload, b.Extent.Payload)
	s.UnifyCardinality(a.Extent.Cardinality, b.Extent.Cardinality)
	s.UnifyTemporality(a.Extent.Temporality, b.Extent.Temporality)
	s.UnifyBinding(a.Extent.Binding, b.Extent.Binding)
	// Perspective and Branch are reserved to their single default
	// value in this version; nothing to unify.
}

// Conflicts returns all axis conflicts collected since construction.
func (s *Solver) Conflicts() []Conflict { return s.conflicts }

// ResolvePayload returns the concrete value for a var, if the solver
// has narrowed its class to one.
func (s *Solver) ResolvePayload(id VarID) (Payload, bool) {
	v, ok := s.payload[s.find(int(id))]
	return v, ok
}

func (s *Solver) ResolveCardinality(id VarID) (Cardinality, bool) {
	v, ok := s.cardinality[s.find(int(id))]
	return v, ok
}

func (s *Solver) ResolveTemporality(id VarID) (Temporality, bool) {
	v, ok := s.temporality[s.find(int(id))]
	return v, ok
}

func (s *Solver) ResolveBinding(id VarID) (Binding, bool) {
	v, ok := s.binding[s.find(int(id))]
	return v, ok
}

// ResolveType rewrites every var axis in t that the solver has
// resolved into an inst, leaving unresolved axes as var. Callers must
// check IsFullyConcrete after the solve fixpoint; any remaining var is
// an UnresolvedType error (spec.md §4.3 step 4).
func (s *Solver) ResolveType(t CanonicalType) CanonicalType {
	out := t
	if t.Extent.Payload.IsVar() {
		if v, ok := s.ResolvePayload(t.Extent.Payload.VarID); ok {
			out.Extent.Payload = Inst(v)
		}
	}
	if t.Extent.Cardinality.IsVar() {
		if v, ok := s.ResolveCardinality(t.Extent.Cardinality.VarID); ok {
			out.Extent.Cardinality = Inst(v)
		}
	}
	if t.Extent.Temporality.IsVar() {
		if v, ok := s.ResolveTemporality(t.Extent.Temporality.VarID); ok {
			out.Extent.Temporality = Inst(v)
		}
	}
	if t.Extent.Binding.IsVar() {
		if v, ok := s.ResolveBinding(t.Extent.Binding.VarID); ok {
			out.Extent.Binding = Inst(v)
		}
	}
	return out
}

func (c Conflict) Error() string {
	return fmt.Sprintf("conflicting %s: %s vs %s", c.Axis, c.A, c.B)
}
