// oscillad loads a Patch YAML, compiles it, and drives the runtime for
// a fixed number of frames, printing diagnostics and health the way
// the verify commands print lint/simulation results.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"

	"github.com/oscilla-animator/oscilla-core/diag"
	"github.com/oscilla-animator/oscilla-core/engine"
	"github.com/oscilla-animator/oscilla-core/patch"
)

var defaultPatchPath = "testdata/phasor.yaml"

const frameCount = 120
const frameRateHz = 60.0
const periodAMs = 1000.0

func main() {
	patchPath := defaultPatchPath
	if len(os.Args) > 1 {
		patchPath = os.Args[1]
	}

	raw, err := patch.LoadFromYAML(patchPath)
	if err != nil {
		log.Fatalf("failed to load patch %s: %v", patchPath, err)
	}

	eng := engine.New(engine.DefaultEngineConfig(), nil)
	eng.SubscribeDiagnostics(diag.ListenerFunc(logDiagnosticEvent))

	res := eng.Compile(raw)
	if res.Program == nil {
		printDiagnostics(res.Diagnostics)
		log.Fatalf("compile failed with %d diagnostic(s)", len(res.Diagnostics))
	}

	fmt.Printf("compiled %s: %d state slots\n", patchPath, res.Program.StateSlotCount)

	frameMs := 1000.0 / frameRateHz
	healthTable := table.NewWriter()
	healthTable.SetTitle("Frame Health")
	healthTable.AppendHeader(table.Row{"Frame", "tModelMs", "RenderReady", "NaN", "Inf", "FrameMs"})

	for i := 0; i < frameCount; i++ {
		tModelMs := float64(i) * frameMs
		out, ready := eng.RunFrame(tModelMs, periodAMs, 0, engine.DiscontinuityNone)
		if i%20 == 0 {
			nanCount, infCount, frameMsCell := 0, 0, ""
			if hs := eng.Runtime().State().Health(); len(hs) > 0 {
				last := hs[len(hs)-1]
				nanCount, infCount, frameMsCell = last.NaNCount, last.InfCount, fmt.Sprintf("%.3f", last.FrameMs)
			}
			healthTable.AppendRow(table.Row{i, fmt.Sprintf("%.1f", tModelMs), ready, nanCount, infCount, frameMsCell})
		}
		if ready {
			_ = out // host-specific: hand out.Frames to a renderer
		}
	}

	fmt.Println(healthTable.Render())

	diags := eng.Diagnostics()
	if len(diags) > 0 {
		printDiagnostics(diags)
	} else {
		fmt.Println("no active diagnostics")
	}

	atexit.Exit(0)
}

func logDiagnosticEvent(kind diag.EventKind, payload any) {
	switch kind {
	case diag.EventCompileEnd:
		status := payload.(diag.CompileEndStatus)
		log.Printf("compile %s: success=%v diagnostics=%d", status.CompileID, status.Success, len(status.Diagnostics))
	case diag.EventProgramSwapped:
		info := payload.(diag.ProgramSwappedInfo)
		log.Printf("program swapped: mode=%s", info.SwapMode)
	}
}

func printDiagnostics(diags []diag.Diagnostic) {
	t := table.NewWriter()
	t.SetTitle("Diagnostics")
	t.AppendHeader(table.Row{"Severity", "Domain", "Code", "Target", "Message"})
	for _, d := range diags {
		t.AppendRow(table.Row{d.Severity.String(), d.Domain, d.Code, d.PrimaryTarget, d.Message})
	}
	fmt.Println(t.Render())
}
