// Package runtime executes a CompiledProgram frame by frame: it owns
// the banked value buffers, persistent state slots, and the time/
// continuity bookkeeping that survives across frames and across
// program hot-swaps (spec.md §3.4, §5). Grounded on core/core.go's
// coreState — the same "flat struct of typed slices addressed by
// index" shape, generalized from per-tile register/port buffers to
// per-bank value slots.
package runtime

import (
	"github.com/oscilla-animator/oscilla-core/continuity"
	"github.com/oscilla-animator/oscilla-core/ir"
)

// valueBanks holds one contiguous slice per storage bank, addressed by
// the offset compiler/bind assigned each slot (spec.md §4.8 step 3).
type valueBanks struct {
	f64 []float64
	f32 []float32
	i32 []int32
	u32 []uint32
	obj []any
}

func newValueBanks(counts map[ir.StorageBank]int) valueBanks {
	return valueBanks{
		f64: make([]float64, counts[ir.StorageF64]),
		f32: make([]float32, counts[ir.StorageF32]),
		i32: make([]int32, counts[ir.StorageI32]),
		u32: make([]uint32, counts[ir.StorageU32]),
		obj: make([]any, counts[ir.StorageObject]),
	}
}

// grow resizes a bank in place to at least n elements, used when a
// freshly hot-swapped program needs more slots than the runtime
// currently has allocated (spec.md §3.4 Lifecycle: "resize on
// demand").
func (b *valueBanks) grow(bank ir.StorageBank, n int) {
	switch bank {
	case ir.StorageF64:
		if len(b.f64) < n {
			b.f64 = append(b.f64, make([]float64, n-len(b.f64))...)
		}
	case ir.StorageF32:
		if len(b.f32) < n {
			b.f32 = append(b.f32, make([]float32, n-len(b.f32))...)
		}
	case ir.StorageI32:
		if len(b.i32) < n {
			b.i32 = append(b.i32, make([]int32, n-len(b.i32))...)
		}
	case ir.StorageU32:
		if len(b.u32) < n {
			b.u32 = append(b.u32, make([]uint32, n-len(b.u32))...)
		}
	case ir.StorageObject:
		if len(b.obj) < n {
			b.obj = append(b.obj, make([]any, n-len(b.obj))...)
		}
	}
}

// timeState tracks the canonical time rails' running values across
// frames (spec.md §4.5, §4.11.1 phase gauge). PhaseA/PhaseB delegate
// their continuity bookkeeping to continuity.PhaseGauge so the
// reconciliation law lives in exactly one place.
type timeState struct {
	tModelMs     float64
	prevTModelMs float64
	dt           float64

	gaugeA continuity.PhaseGauge
	gaugeB continuity.PhaseGauge

	wrapEvent  bool
	progress01 float64
}

// healthSample is one frame's runtime health snapshot, kept in a small
// ring buffer for the diagnostics hub to read (spec.md §4.13).
type healthSample struct {
	FrameID    int64
	FrameMs    float64
	NaNCount   int
	InfCount   int
	OverBudget bool
}

// State is everything that persists across frames for one running
// program: value slots, state slots, event queues, the time rails and
// a rolling health window. Continuity's own cross-frame memory is not
// part of State: it lives in Runtime's continuityState, keyed by
// target rather than by slot (spec.md §4.11: continuity state must
// survive a program hot-swap even when value/state slot layouts change).
type State struct {
	values valueBanks
	state  []any // indexed by ir.StateSlotID

	events []bool // discrete/event slots latched true for exactly one frame

	time timeState

	frameID int64
	health  []healthSample
	healthCap int
}

// NewState allocates a runtime state sized for the given slot counts.
func NewState(slotCounts map[ir.StorageBank]int, stateSlotCount int) *State {
	return &State{
		values:    newValueBanks(slotCounts),
		state:     make([]any, stateSlotCount),
		events:    make([]bool, stateSlotCount),
		healthCap: 120,
	}
}

// Resize grows the runtime's buffers to match a newly loaded
// program's slot requirements without discarding existing contents —
// state and continuity survive in place (spec.md §3.4, §4.8 step 1
// "idempotent" carry-forward).
func (s *State) Resize(slotCounts map[ir.StorageBank]int, stateSlotCount int) {
	for bank, n := range slotCounts {
		s.values.grow(bank, n)
	}
	if stateSlotCount > len(s.state) {
		s.state = append(s.state, make([]any, stateSlotCount-len(s.state))...)
		s.events = append(s.events, make([]bool, stateSlotCount-len(s.events))...)
	}
}

// ReadSlot copies a value slot's contents out as float64, regardless
// of its native storage bank, for consumers (continuity, diagnostics)
// that work in a bank-agnostic representation.
func (s *State) ReadSlot(m ir.SlotMeta) []float64 {
	n := m.Type.Extent.Payload.Value.Stride()
	if n <= 0 {
		n = 1
	}
	out := make([]float64, n)
	switch m.Storage {
	case ir.StorageF64:
		copy(out, s.values.f64[m.Offset:m.Offset+n])
	case ir.StorageF32:
		for i := 0; i < n; i++ {
			out[i] = float64(s.values.f32[m.Offset+i])
		}
	case ir.StorageI32:
		for i := 0; i < n; i++ {
			out[i] = float64(s.values.i32[m.Offset+i])
		}
	case ir.StorageU32:
		for i := 0; i < n; i++ {
			out[i] = float64(s.values.u32[m.Offset+i])
		}
	}
	return out
}

// ReadObjectSlot returns a StorageObject slot's raw contents — used
// for structured payloads (shape buffers, camera projections) that
// don't fit the float64 component model ReadSlot assumes.
func (s *State) ReadObjectSlot(m ir.SlotMeta) any {
	if m.Offset < 0 || m.Offset >= len(s.values.obj) {
		return nil
	}
	return s.values.obj[m.Offset]
}

// WriteSlot writes vals back into a value slot's native storage bank.
func (s *State) WriteSlot(m ir.SlotMeta, vals []float64) {
	switch m.Storage {
	case ir.StorageF64:
		copy(s.values.f64[m.Offset:], vals)
	case ir.StorageF32:
		for i, v := range vals {
			s.values.f32[m.Offset+i] = float32(v)
		}
	case ir.StorageI32:
		for i, v := range vals {
			s.values.i32[m.Offset+i] = int32(v)
		}
	case ir.StorageU32:
		for i, v := range vals {
			s.values.u32[m.Offset+i] = uint32(v)
		}
	}
}

func (s *State) recordHealth(h healthSample) {
	s.health = append(s.health, h)
	if len(s.health) > s.healthCap {
		s.health = s.health[len(s.health)-s.healthCap:]
	}
}

// Health returns the recent frame-health window, oldest first.
func (s *State) Health() []healthSample { return s.health }
