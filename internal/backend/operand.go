package backend

import "math"

// Imm is a signed integer literal operand.
type Imm struct{ V int64 }

// InLimit reports whether the immediate fits in `bits` signed bits — the
// `in_limit(bits)` predicate spec.md §4.F names, used by the physicalizer's
// illegal-immediate pass and by offset-overflow handling (12-bit memory
// offsets, wider Li ranges).
func (i Imm) InLimit(bits uint) bool {
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << (bits - 1)) - 1
	return i.V >= lo && i.V <= hi
}

// Fmm is a 64-bit float immediate, hashable by bit pattern so it can key
// the rodata literal pool (spec.md §4.F: "hashable by bit pattern").
type Fmm struct{ Bits uint64 }

func FmmFromFloat64(f float64) Fmm { return Fmm{Bits: math.Float64bits(f)} }
func (f Fmm) Float64() float64     { return math.Float64frombits(f.Bits) }

// StackSlot is a (offset-from-frame, size) pair allocated by a per-function
// bump allocator (spec.md §4.F). Offset is relative to the frame base
// before the physicalizer's stack/frame pass (§4.H step 6) resolves it to
// an sp-relative displacement.
type StackSlot struct {
	Offset int
	Size   int
}

// Label names a global or a basic block. Basic-block labels are mangled
// `.LBB<addr>` by the selector (spec.md §4.F); global labels use the
// symbol's own name.
type Label struct{ Name string }
