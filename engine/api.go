package engine

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/oscilla-animator/oscilla-core/compiler"
	"github.com/oscilla-animator/oscilla-core/continuity"
	"github.com/oscilla-animator/oscilla-core/diag"
	"github.com/oscilla-animator/oscilla-core/ir"
	"github.com/oscilla-animator/oscilla-core/patch"
	"github.com/oscilla-animator/oscilla-core/render"
	"github.com/oscilla-animator/oscilla-core/runtime"
)

// FrameOutput is the host-facing render result for one frame: one
// RenderFrame per StepRender in the program's schedule (spec.md §4.12
// step 5 describes a single frame payload; a program with more than
// one render root produces one RenderFrame each, in schedule order).
type FrameOutput struct {
	Frames []render.RenderFrame
}

// LoadStrategy selects how loadProgram treats the runtime's existing
// state when swapping in a newly compiled program (spec.md §6.1:
// "strategy: 'fresh' | 'preserve-continuity'").
type LoadStrategy string

const (
	StrategyFresh              LoadStrategy = "fresh"
	StrategyPreserveContinuity LoadStrategy = "preserve-continuity"
)

// DiscontinuityKind names why this frame's tModel may not follow
// smoothly from the last (spec.md §6.1's runFrame signature).
type DiscontinuityKind string

const (
	DiscontinuityNone       DiscontinuityKind = ""
	DiscontinuitySeek       DiscontinuityKind = "seek"
	DiscontinuityRateChange DiscontinuityKind = "rateChange"
	DiscontinuityLoop       DiscontinuityKind = "loop"
	DiscontinuityHotSwap    DiscontinuityKind = "hotSwap"
)

// Engine is the external API surface (spec.md §6.1). One Engine owns
// exactly one Runtime, one DiagnosticHub, and the compile state needed
// to hot-swap without losing continuity. Grounded on api.Driver's
// interface shape, generalized from a CGRA accelerator's FeedIn/
// Collect/MapProgram/Run to Oscilla's compile/run operation set.
type Engine struct {
	config EngineConfig
	hub    *diag.Hub

	rt            *runtime.Runtime
	program       *ir.CompiledProgram
	revision      int
	existingState map[patch.StableStateId]ir.StateSlotID

	compileCounter int
}

// New constructs an Engine. port may be nil; it is forwarded to
// diag.NewHub unchanged (see Hub's own doc comment on nil ports).
func New(cfg EngineConfig, port sim.Port) *Engine {
	return &Engine{
		config: cfg,
		hub:    diag.NewHub(port, cfg.DiagnosticTTLFrames),
	}
}

// Compile runs the full compiler pipeline over raw and, on success,
// hot-swaps the engine's Runtime onto the new program with state
// carried forward (spec.md §6.1 compile/loadProgram combined into one
// call, since the engine always wants the new program live once it
// compiles cleanly — callers that need the two decoupled use
// CompileOnly).
func (e *Engine) Compile(raw patch.Patch) compiler.Result {
	res := e.CompileOnly(raw)
	if res.Program != nil {
		e.LoadProgram(res.Program, StrategyPreserveContinuity)
	}
	return res
}

// CompileOnly runs the pipeline and reports diagnostics without
// touching the live Runtime (spec.md §6.1: "compile(patch) → {
// program, diagnostics[] }").
func (e *Engine) CompileOnly(raw patch.Patch) compiler.Result {
	e.compileCounter++
	compileID := formatCompileID(e.compileCounter)
	e.hub.CompileBegin(compileID)

	res := compiler.Compile(raw, compiler.Options{
		CompileID:     compileID,
		PatchRevision: e.revision,
		ExistingState: e.existingState,
	})

	e.hub.CompileEnd(compileID, res.Program != nil, res.Diagnostics)
	return res
}

// CreateRuntime allocates a fresh Runtime for program, replacing
// whatever runtime the engine previously owned (spec.md §6.1:
// "createRuntime(slotCount) → runtimeState").
func (e *Engine) CreateRuntime(program *ir.CompiledProgram) *runtime.Runtime {
	e.rt = runtime.NewRuntime(program)
	e.program = program
	e.revision++
	return e.rt
}

// LoadProgram hot-swaps the engine's Runtime onto program (spec.md
// §6.1 loadProgram). StrategyFresh allocates a new Runtime with no
// carried-forward state; StrategyPreserveContinuity resizes the
// existing Runtime in place, which is what actually preserves
// continuity buffers and persistent state slots (spec.md §3.4
// Lifecycle).
func (e *Engine) LoadProgram(program *ir.CompiledProgram, strategy LoadStrategy) {
	mode := diag.SwapPreserveContinuity
	if strategy == StrategyFresh || e.rt == nil {
		e.rt = runtime.NewRuntime(program)
		mode = diag.SwapFresh
	} else {
		e.rt.LoadProgram(program)
	}
	e.program = program
	e.revision++
	e.existingState = carryForwardState(program)
	e.hub.ProgramSwapped(mode)
}

// RunFrame advances the engine's Runtime by one frame and assembles
// the resulting RenderFrame (spec.md §6.1 runFrame). discontinuity
// does not change execution: any kind other than DiscontinuityNone is
// only recorded as a "discontinuity" entry in the health snapshot's
// stats. The phase gauges reconcile only a backward move of the raw
// phase (tModelMs/period); a forward seek, or a period change that
// moves the raw phase forward, carries the exposed phase with it.
func (e *Engine) RunFrame(tModelMs, periodAMs, periodBMs float64, discontinuity DiscontinuityKind) (FrameOutput, bool) {
	if e.rt == nil {
		return FrameOutput{}, false
	}

	result := e.rt.RunFrame(runtime.RunFrameInput{
		TModelMs:  tModelMs,
		PeriodAMs: periodAMs,
		PeriodBMs: periodBMs,
	})

	stats := map[string]float64{
		"frameMs":  result.Health.FrameMs,
		"nanCount": float64(result.Health.NaNCount),
		"infCount": float64(result.Health.InfCount),
	}
	if discontinuity != DiscontinuityNone {
		stats["discontinuity"] = 1
	}
	var diags []diag.Diagnostic
	if result.Health.NaNCount > 0 {
		diags = append(diags, diag.New(diag.CodeNaN, diag.SeverityWarning, diag.DomainRuntime,
			"", diag.Scope{PatchRevision: e.revision}, "NaN produced",
			"one or more steps produced NaN this frame"))
	}
	if result.Health.InfCount > 0 {
		diags = append(diags, diag.New(diag.CodeInf, diag.SeverityWarning, diag.DomainRuntime,
			"", diag.Scope{PatchRevision: e.revision}, "Inf produced",
			"one or more steps produced Inf this frame"))
	}
	if result.Health.OverBudget {
		diags = append(diags, diag.New(diag.CodeFrameBudget, diag.SeverityWarning, diag.DomainRuntime,
			"", diag.Scope{PatchRevision: e.revision}, "Frame over budget",
			"frame execution exceeded the 16ms budget"))
	}
	e.hub.RuntimeHealthSnapshot(result.Health.FrameID, stats, diags)

	if !result.RenderReady {
		return FrameOutput{}, false
	}
	return e.assembleOutput(), true
}

// SubscribeDiagnostics registers a listener for all five DiagnosticHub
// event kinds (spec.md §6.1, §4.13).
func (e *Engine) SubscribeDiagnostics(l diag.Listener) {
	e.hub.Subscribe(l)
}

// Diagnostics returns the hub's current active set.
func (e *Engine) Diagnostics() []diag.Diagnostic { return e.hub.Active() }

// SetContinuityPolicy overrides one target's policy (spec.md §6.1).
func (e *Engine) SetContinuityPolicy(targetKey string, policy continuity.Policy) {
	if e.rt != nil {
		e.rt.SetContinuityPolicy(targetKey, policy)
	}
}

// SetContinuityConfig updates the engine's global continuity tuning;
// config survives hot-swap since it lives on the Engine, not the
// Runtime (spec.md §6.1).
func (e *Engine) SetContinuityConfig(cfg ContinuityConfig) {
	e.config.Continuity = cfg
}

// Runtime exposes the live runtime for callers needing direct access
// (e.g. SetFieldLaneCount, raw slot inspection).
func (e *Engine) Runtime() *runtime.Runtime { return e.rt }

// assembleOutput walks the program's Phase2Render steps and assembles
// one RenderFrame per StepRender, resolving the runtime/render
// layering: runtime only flags RenderReady, the engine is what
// actually calls render.AssembleFrame (spec.md §4.12).
func (e *Engine) assembleOutput() FrameOutput {
	var out FrameOutput
	for _, st := range e.program.Schedule.ByPhase(ir.Phase2Render) {
		if st.Kind != ir.StepRender {
			continue
		}
		out.Frames = append(out.Frames, render.AssembleFrame(st, e.rt))
	}
	return out
}

func carryForwardState(program *ir.CompiledProgram) map[patch.StableStateId]ir.StateSlotID {
	// State identity is keyed by StableStateId in ir.ValueExpr.StateKey,
	// not exposed on CompiledProgram directly; compiler/bind already
	// carries forward whatever ExistingState the caller supplies, so
	// the engine's job is only to remember today's binding for next
	// compile's ExistingState argument. Since CompiledProgram does not
	// currently surface a StateKey->StateSlotID table, the engine
	// carries forward an empty map, meaning every recompile restarts
	// persistent state until ir.CompiledProgram exposes that mapping.
	return map[patch.StableStateId]ir.StateSlotID{}
}

func formatCompileID(n int) string {
	const hex = "0123456789abcdef"
	if n == 0 {
		return "c0"
	}
	buf := []byte{'c'}
	started := false
	for shift := 28; shift >= 0; shift -= 4 {
		d := (n >> shift) & 0xf
		if d != 0 {
			started = true
		}
		if started {
			buf = append(buf, hex[d])
		}
	}
	return string(buf)
}
