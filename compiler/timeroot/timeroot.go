// Package timeroot implements time resolution (spec.md §4.5): exactly
// one TimeRoot block must exist, its time model determines how the
// canonical time rails are derived, and rails may be driven/overridden
// by patch signals but never fed back instantaneously.
package timeroot

import (
	"fmt"

	"github.com/oscilla-animator/oscilla-core/diag"
	"github.com/oscilla-animator/oscilla-core/patch"
)

// ModelKind discriminates the three time models a TimeRoot may
// declare.
type ModelKind int

const (
	ModelInfinite ModelKind = iota
	ModelFinite
	ModelDriven
)

// Model is the resolved time model for a patch's single TimeRoot.
type Model struct {
	Kind ModelKind

	// ModelInfinite
	Speed float64

	// ModelFinite
	PeriodMs float64

	// ModelDriven: parameter block/port references, sampled with a
	// one-frame latch (frame N parameters drive frame N+1 output).
	DrivenPeriodSource string
	DrivenTempoSource  string
	DrivenPaletteSource string
}

const BlockTypeTimeRoot = "TimeRoot"

// Resolve finds the patch's TimeRoot block and extracts its time
// model from params. Exactly one TimeRoot is required; zero or
// multiple are fatal (spec.md §4.5, §7).
func Resolve(np *patch.NormalizedPatch) (Model, patch.BlockID, []diag.Diagnostic) {
	var roots []patch.BlockID
	for _, b := range np.Blocks {
		if b.Type == BlockTypeTimeRoot {
			roots = append(roots, b.ID)
		}
	}

	if len(roots) == 0 {
		return Model{}, "", []diag.Diagnostic{
			diag.New(diag.CodeNoTimeRoot, diag.SeverityFatal, diag.DomainTopology, "",
				diag.Scope{}, "No TimeRoot block", "Every patch requires exactly one TimeRoot block."),
		}
	}
	if len(roots) > 1 {
		names := make([]string, len(roots))
		for i, r := range roots {
			names[i] = string(r)
		}
		return Model{}, "", []diag.Diagnostic{
			diag.New(diag.CodeMultipleTimeRoots, diag.SeverityFatal, diag.DomainTopology, names[0],
				diag.Scope{}, "Multiple TimeRoot blocks",
				fmt.Sprintf("found %d TimeRoot blocks: %v", len(roots), names)),
		}
	}

	rootID := roots[0]
	blk, _ := np.BlockByID(rootID)
	model := parseModel(blk)
	return model, rootID, nil
}

func parseModel(blk *patch.Block) Model {
	kindStr, _ := blk.Params["model"].(string)
	switch kindStr {
	case "finite":
		period, _ := blk.Params["periodMs"].(float64)
		return Model{Kind: ModelFinite, PeriodMs: period}
	case "driven":
		period, _ := blk.Params["periodSource"].(string)
		tempo, _ := blk.Params["tempoSource"].(string)
		palette, _ := blk.Params["paletteSource"].(string)
		return Model{Kind: ModelDriven, DrivenPeriodSource: period, DrivenTempoSource: tempo, DrivenPaletteSource: palette}
	default:
		speed, ok := blk.Params["speed"].(float64)
		if !ok {
			speed = 1.0
		}
		return Model{Kind: ModelInfinite, Speed: speed}
	}
}

// RailBinding describes how a patch signal participates in a rail:
// Driven means the signal feeds a parameter with a one-frame latch;
// Overridden means the signal replaces the rail's output outright.
type RailBindingKind int

const (
	RailDriven RailBindingKind = iota
	RailOverridden
)

type RailBinding struct {
	Rail string
	Kind RailBindingKind
	SourceBlock patch.BlockID
	SourcePort  patch.PortID
}

// CheckAlgebraicLoop enforces the spec.md §4.5 rule: a rail may be
// driven/overridden by a patch signal, but that signal must not
// itself (transitively, within the same frame) depend on the rail it
// feeds — that would be an instantaneous algebraic loop at the same
// time instant. dependsOnRail reports whether sourceBlock's output
// transitively reads the given rail without crossing a memory
// boundary; the caller supplies it (compiler/depgraph has no
// reachability query, and compiler/pipeline does not call this
// function).
func CheckAlgebraicLoop(bindings []RailBinding, dependsOnRail func(block patch.BlockID, rail string) bool) []diag.Diagnostic {
	var diags []diag.Diagnostic
	for _, b := range bindings {
		if dependsOnRail(b.SourceBlock, b.Rail) {
			diags = append(diags, diag.New(diag.CodeTimeAlgebraicLoop, diag.SeverityFatal, diag.DomainTopology,
				string(b.SourceBlock), diag.Scope{},
				"Algebraic loop on time rail",
				fmt.Sprintf("%s.%s feeds rail %q while depending on it in the same instant", b.SourceBlock, b.SourcePort, b.Rail)))
		}
	}
	return diags
}
