package ir

import "github.com/oscilla-animator/oscilla-core/canontype"

// StorageBank names which banked buffer a slot lives in (spec.md
// §3.4: "values: banked buffers keyed by storage").
type StorageBank int

const (
	StorageF64 StorageBank = iota
	StorageF32
	StorageI32
	StorageU32
	StorageObject
)

func (s StorageBank) String() string {
	switch s {
	case StorageF64:
		return "f64"
	case StorageF32:
		return "f32"
	case StorageI32:
		return "i32"
	case StorageU32:
		return "u32"
	case StorageObject:
		return "object"
	default:
		return "storage?"
	}
}

// BankFor picks the canonical storage bank for a payload. Scalars
// favor f32 (spec.md §4.11.4's canonical buffer layout); ints/bools
// use i32/u32; structured payloads (shape buffers, camera
// projections, render frames, field element-id arrays) live in the
// object bank.
func BankFor(p canontype.Payload) StorageBank {
	switch p {
	case canontype.PayloadFloat, canontype.PayloadVec2, canontype.PayloadVec3, canontype.PayloadColor:
		return StorageF32
	case canontype.PayloadInt:
		return StorageI32
	case canontype.PayloadBool:
		return StorageU32
	default:
		return StorageObject
	}
}

// SlotMeta is the per-slot record the runtime uses to locate and
// interpret a value without ever recomputing offsets (spec.md §3.3:
// "Offsets are required; runtime never recomputes them").
type SlotMeta struct {
	Slot      ValueSlotID
	Storage   StorageBank
	Offset    int
	Type      canontype.CanonicalType
	DebugName string
}
