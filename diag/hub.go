package diag

import (
	"sync"

	"github.com/sarchlab/akita/v4/sim"
)

// EventKind discriminates the five DiagnosticHub event kinds
// (spec.md §4.13).
type EventKind int

const (
	EventCompileBegin EventKind = iota
	EventCompileEnd
	EventGraphCommitted
	EventRuntimeHealthSnapshot
	EventProgramSwapped
)

// eventMsg wraps a hub event as an akita sim.Msg so the hub can route
// it over a sim.Port exactly the way the teacher routes MoveMsg over
// tile ports (cgra/msg.go) — Meta() plus a typed payload.
type eventMsg struct {
	sim.MsgMeta

	Kind    EventKind
	Payload any
}

func (m *eventMsg) Meta() *sim.MsgMeta { return &m.MsgMeta }

// CompileEndStatus is the payload for a CompileEnd event.
type CompileEndStatus struct {
	CompileID   string
	Success     bool
	Diagnostics []Diagnostic
}

// GraphCommittedInfo is the payload for a GraphCommitted event.
type GraphCommittedInfo struct {
	Reason      string
	DiffSummary string
}

// RuntimeHealthStats is the payload for a RuntimeHealthSnapshot event.
type RuntimeHealthStats struct {
	FrameID int64
	Stats   map[string]float64
}

// ProgramSwapMode distinguishes a fresh load from a continuity-
// preserving hot-swap (mirrors engine.LoadStrategy; duplicated here so
// diag has no dependency on the engine package).
type ProgramSwapMode string

const (
	SwapFresh             ProgramSwapMode = "fresh"
	SwapPreserveContinuity ProgramSwapMode = "preserve-continuity"
)

// ProgramSwappedInfo is the payload for a ProgramSwapped event.
type ProgramSwappedInfo struct {
	SwapMode ProgramSwapMode
}

// Listener receives hub events. Implementations must not block; the
// hub delivers synchronously from whichever goroutine published the
// event (the engine is single-threaded per spec.md §5).
type Listener interface {
	OnEvent(kind EventKind, payload any)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(kind EventKind, payload any)

func (f ListenerFunc) OnEvent(kind EventKind, payload any) { f(kind, payload) }

// ttlEntry tracks a runtime diagnostic's expiry frame for the TTL
// window described in spec.md §4.13.
type ttlEntry struct {
	diag      Diagnostic
	expiresAt int64
}

// Hub is the DiagnosticHub: compile snapshots replace authoring
// diagnostics wholesale, runtime diagnostics are added/updated keyed
// by code and expire after a TTL, and every event is delivered to
// subscribed listeners by direct call; when the hub has a non-nil akita
// sim.Port, the event is also sent over it the same way the teacher
// routes inter-tile messages (spec.md §4.13, grounded on cgra/msg.go and
// core/core.go's MemPort usage).
type Hub struct {
	mu sync.Mutex

	port sim.Port

	authoring map[string]Diagnostic // keyed by Diagnostic.ID, replaced wholesale per compile
	runtime   map[Code]*ttlEntry    // keyed by Code, TTL-expired

	runtimeTTLFrames int64
	currentFrame     int64

	listeners []Listener
}

// NewHub constructs a Hub. port may be nil if the host does not need
// the akita transport (e.g. unit tests exercising only the Listener
// fan-out); when non-nil, every event is also sent as an eventMsg so
// a host wired into the same akita simulation can observe diagnostics
// the same way it observes any other simulated component's traffic.
func NewHub(port sim.Port, ttlFrames int64) *Hub {
	if ttlFrames <= 0 {
		ttlFrames = 120 // ~2s at 60fps, matches spec.md's "expire after a TTL window"
	}
	return &Hub{
		port:             port,
		authoring:        map[string]Diagnostic{},
		runtime:          map[Code]*ttlEntry{},
		runtimeTTLFrames: ttlFrames,
	}
}

// Subscribe registers a listener for all hub events.
func (h *Hub) Subscribe(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

// CompileBegin clears nothing by itself; it is purely a notification
// that a compile has started (spec.md §4.13).
func (h *Hub) CompileBegin(compileID string) {
	h.publish(EventCompileBegin, compileID)
}

// CompileEnd replaces (not merges) the authoring diagnostic set with
// the compile's final diagnostics (spec.md §4.13: "compile snapshot
// replaces authoring diagnostics (not merge)").
func (h *Hub) CompileEnd(compileID string, success bool, diags []Diagnostic) {
	h.mu.Lock()
	h.authoring = make(map[string]Diagnostic, len(diags))
	for _, d := range diags {
		h.authoring[d.ID] = d
	}
	h.mu.Unlock()
	h.publish(EventCompileEnd, CompileEndStatus{CompileID: compileID, Success: success, Diagnostics: diags})
}

// GraphCommitted triggers re-validation of authoring diagnostics by
// the caller (the hub itself holds no graph; it just rebroadcasts).
func (h *Hub) GraphCommitted(reason, diffSummary string) {
	h.publish(EventGraphCommitted, GraphCommittedInfo{Reason: reason, DiffSummary: diffSummary})
}

// RuntimeHealthSnapshot adds or updates a runtime diagnostic keyed by
// code and refreshes its TTL (spec.md §4.13).
func (h *Hub) RuntimeHealthSnapshot(frameID int64, stats map[string]float64, diags []Diagnostic) {
	h.mu.Lock()
	h.currentFrame = frameID
	for _, d := range diags {
		h.runtime[d.Code] = &ttlEntry{diag: d, expiresAt: frameID + h.runtimeTTLFrames}
	}
	h.expireLocked(frameID)
	h.mu.Unlock()
	h.publish(EventRuntimeHealthSnapshot, RuntimeHealthStats{FrameID: frameID, Stats: stats})
}

func (h *Hub) expireLocked(frameID int64) {
	for code, e := range h.runtime {
		if e.expiresAt <= frameID {
			delete(h.runtime, code)
		}
	}
}

// ProgramSwapped is a pure notification: it changes none of the hub's
// state. Authoring diagnostics are keyed by diagnostic id (which
// encodes the revision) and runtime diagnostics by code alone, so
// neither set is rebound or cleared by a swap; callers that want stale
// authoring diagnostics dropped should follow up with CompileEnd for
// the new revision.
func (h *Hub) ProgramSwapped(mode ProgramSwapMode) {
	h.publish(EventProgramSwapped, ProgramSwappedInfo{SwapMode: mode})
}

// Active returns the union of current authoring and non-expired
// runtime diagnostics, sorted for deterministic display.
func (h *Hub) Active() []Diagnostic {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expireLocked(h.currentFrame)

	out := make([]Diagnostic, 0, len(h.authoring)+len(h.runtime))
	for _, d := range h.authoring {
		out = append(out, d)
	}
	for _, e := range h.runtime {
		out = append(out, e.diag)
	}
	return out
}

func (h *Hub) publish(kind EventKind, payload any) {
	h.mu.Lock()
	listeners := append([]Listener(nil), h.listeners...)
	port := h.port
	h.mu.Unlock()

	for _, l := range listeners {
		l.OnEvent(kind, payload)
	}

	if port == nil {
		return
	}
	msg := &eventMsg{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: port,
			Dst: port,
		},
		Kind:    kind,
		Payload: payload,
	}
	_ = port.Send(msg) // best-effort: a full diagnostic port never blocks compilation
}
