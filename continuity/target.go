package continuity

import (
	"hash/fnv"
	"math"
	"strconv"

	"github.com/oscilla-animator/oscilla-core/ir"
)

// StableTargetId identifies one continuity target independent of
// recompiles: hash(semanticRole, producingBlockId, outputPort,
// domainBindingIdentity) (spec.md §4.11). Slot numbers are not stable
// across hot-swap; this id is.
type StableTargetId string

// NewStableTargetId derives a StableTargetId from its four components.
func NewStableTargetId(semanticRole, producingBlockId, outputPort, domainBindingIdentity string) StableTargetId {
	h := fnv.New64a()
	for _, s := range []string{semanticRole, producingBlockId, outputPort, domainBindingIdentity} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return StableTargetId(strconv.FormatUint(h.Sum64(), 16))
}

// PolicyKind names one of the five continuity policies (spec.md
// §4.11's policy table).
type PolicyKind int

const (
	PolicyNone PolicyKind = iota
	PolicyPreserve
	PolicySlew
	PolicyCrossfade
	PolicyProject
)

// Policy configures one target's reconciliation behavior. Only the
// fields relevant to Kind are used.
type Policy struct {
	Kind PolicyKind

	TauMs    float64 // preserve/slew gauge time constant
	WindowMs float64 // crossfade window
	Curve    string  // crossfade easing name

	Projector string  // project: element-mapping strategy name
	Post      *Policy // project: policy applied after projection
}

// DefaultPolicy returns the canonical per-semantic default (spec.md
// §4.11: "Canonical defaults" table).
func DefaultPolicy(semantic ir.ContinuitySemantic) Policy {
	switch semantic {
	case ir.SemanticPosition:
		return Policy{Kind: PolicyProject, Projector: "byId", Post: &Policy{Kind: PolicySlew, TauMs: 120}}
	case ir.SemanticRadius:
		return Policy{Kind: PolicySlew, TauMs: 120}
	case ir.SemanticOpacity:
		return Policy{Kind: PolicySlew, TauMs: 80}
	case ir.SemanticColor:
		return Policy{Kind: PolicySlew, TauMs: 150}
	default:
		return Policy{Kind: PolicyCrossfade, WindowMs: 150, Curve: "linear"}
	}
}

// Target is one continuity target's full runtime state: its policy
// and whatever gauge memory that policy needs, keyed by StableTargetId
// so it survives hot-swap (spec.md §4.11.3).
type Target struct {
	ID     StableTargetId
	Policy Policy

	delta []float64 // preserve
	y     []float64 // slew
	yInit bool

	crossfadeOld  []float64
	crossfadeElapsedMs float64
	crossfadeActive bool
}

// NewTarget creates a target with no prior gauge memory.
func NewTarget(id StableTargetId, policy Policy) *Target {
	return &Target{ID: id, Policy: policy}
}

// Apply reconciles base against this target's running gauge state for
// one frame, returning the value the graph should see this frame
// (spec.md §4.11's policy semantics). mapping is nil when the element
// set hasn't changed this frame; non-nil mapping triggers the
// boundary reseed described per policy.
func (t *Target) Apply(base []float64, mapping *ElementMapping, dtMs float64, pool *BufferPool) []float64 {
	switch t.Policy.Kind {
	case PolicyNone:
		return base
	case PolicyPreserve:
		return t.applyPreserve(base, mapping, pool)
	case PolicySlew:
		return t.applySlew(base, mapping, dtMs, pool)
	case PolicyCrossfade:
		return t.applyCrossfade(base, mapping, dtMs, pool)
	case PolicyProject:
		projected := base
		if mapping != nil {
			projected = remap(base, mapping, pool)
		}
		if t.Policy.Post == nil {
			return projected
		}
		sub := &Target{ID: t.ID, Policy: *t.Policy.Post, delta: t.delta, y: t.y, yInit: t.yInit,
			crossfadeOld: t.crossfadeOld, crossfadeElapsedMs: t.crossfadeElapsedMs, crossfadeActive: t.crossfadeActive}
		out := sub.Apply(projected, nil, dtMs, pool)
		t.delta, t.y, t.yInit = sub.delta, sub.y, sub.yInit
		t.crossfadeOld, t.crossfadeElapsedMs, t.crossfadeActive = sub.crossfadeOld, sub.crossfadeElapsedMs, sub.crossfadeActive
		return out
	default:
		return base
	}
}

func (t *Target) applyPreserve(base []float64, mapping *ElementMapping, pool *BufferPool) []float64 {
	if mapping != nil || len(t.delta) != len(base) {
		oldEff := make([]float64, len(base))
		if len(t.delta) == len(base) {
			// no remap, same length: oldEff[i] == prior applied value
			for i := range oldEff {
				oldEff[i] = base[i] + t.delta[i]
			}
		}
		newDelta := pool.Get(len(base), "preserve.delta")
		for i, oldIdx := range mappingOrIdentity(mapping, len(base)) {
			if oldIdx >= 0 && oldIdx < len(t.delta) {
				newDelta[i] = (base[oldIdx] + t.delta[oldIdx]) - base[i]
			} else {
				newDelta[i] = 0
			}
		}
		if t.delta != nil {
			pool.Put(t.delta, "preserve.delta")
		}
		t.delta = newDelta
	}
	out := pool.Get(len(base), "preserve.out")
	for i := range base {
		out[i] = base[i] + t.delta[i]
	}
	return out
}

func (t *Target) applySlew(base []float64, mapping *ElementMapping, dtMs float64, pool *BufferPool) []float64 {
	if !t.yInit || len(t.y) != len(base) || mapping != nil {
		newY := pool.Get(len(base), "slew.y")
		idx := mappingOrIdentity(mapping, len(base))
		for i := range base {
			oldIdx := idx[i]
			if t.yInit && oldIdx >= 0 && oldIdx < len(t.y) {
				newY[i] = t.y[oldIdx]
			} else {
				newY[i] = base[i]
			}
		}
		if t.y != nil {
			pool.Put(t.y, "slew.y")
		}
		t.y = newY
		t.yInit = true
	}

	tau := t.Policy.TauMs
	if tau <= 0 {
		tau = 120
	}
	alpha := 1 - math.Exp(-dtMs/tau)
	for i := range base {
		t.y[i] += alpha * (base[i] - t.y[i])
	}
	return t.y
}

func (t *Target) applyCrossfade(base []float64, mapping *ElementMapping, dtMs float64, pool *BufferPool) []float64 {
	if mapping != nil {
		old := pool.Get(len(base), "crossfade.old")
		copy(old, t.resolvedOr(base))
		if t.crossfadeOld != nil {
			pool.Put(t.crossfadeOld, "crossfade.old")
		}
		t.crossfadeOld = old
		t.crossfadeElapsedMs = 0
		t.crossfadeActive = true
	}
	if !t.crossfadeActive {
		return base
	}
	window := t.Policy.WindowMs
	if window <= 0 {
		window = 150
	}
	t.crossfadeElapsedMs += dtMs
	w := t.crossfadeElapsedMs / window
	if w >= 1 {
		t.crossfadeActive = false
		return base
	}
	out := pool.Get(len(base), "crossfade.out")
	for i := range base {
		old := 0.0
		if i < len(t.crossfadeOld) {
			old = t.crossfadeOld[i]
		}
		out[i] = old + w*(base[i]-old)
	}
	return out
}

func (t *Target) resolvedOr(base []float64) []float64 {
	if t.crossfadeOld != nil {
		return t.crossfadeOld
	}
	return base
}

// mappingOrIdentity returns a newCount-length slice of old indices,
// using mapping when present or the identity mapping otherwise.
func mappingOrIdentity(mapping *ElementMapping, newCount int) []int32 {
	if mapping != nil {
		return mapping.NewToOld
	}
	ident := make([]int32, newCount)
	for i := range ident {
		ident[i] = int32(i)
	}
	return ident
}

func remap(base []float64, mapping *ElementMapping, pool *BufferPool) []float64 {
	out := pool.Get(len(mapping.NewToOld), "project.remap")
	for i, oldIdx := range mapping.NewToOld {
		if oldIdx >= 0 && int(oldIdx) < len(base) {
			out[i] = base[oldIdx]
		} else {
			out[i] = 0
		}
	}
	return out
}
