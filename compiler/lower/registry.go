package lower

import (
	"github.com/oscilla-animator/oscilla-core/compiler/defaultsrc"
	"github.com/oscilla-animator/oscilla-core/patch"
)

// registry maps a block type name to its LowerFunc, the same
// name->behavior registration shape as program/isa.go's ISA
// (nameToBehavior), generalized from instruction opcodes to block
// types.
var registry = map[string]LowerFunc{}

// Register adds a block type's lowering function to the catalog.
// Called from package init()s the way program/default.go's behaviors
// are wired into the default ISA.
func Register(blockType string, fn LowerFunc) {
	registry[blockType] = fn
}

// Lookup returns the lowering function for a block type, or false if
// none is registered (UnknownBlockType, spec.md §7).
func Lookup(blockType string) (LowerFunc, bool) {
	fn, ok := registry[blockType]
	return fn, ok
}

func init() {
	Register("UnitDelay", lowerUnitDelay)
	Register("Lag", lowerLag)
	Register("Phasor", lowerPhasor)
	Register("SampleAndHold", lowerSampleAndHold)
	Register("Accumulator", lowerAccumulator)
	Register("Slew", lowerSlew)
	Register(defaultsrc.BlockTypeDefaultSource, lowerDefaultSource)
}

// StateKindPrimary is the canonical state-kind name used by every one
// of the six stateful primitives, since each declares exactly one
// piece of persistent state (spec.md §4.7.1).
const StateKindPrimary patch.StateKind = "primary"
