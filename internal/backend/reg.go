// Package backend models the lower-level RV64GC instruction set duskc
// lowers the middle IR into (spec.md §4.F): registers, immediates, stack
// slots, labels, and the backend instruction variants, each carrying
// uses()/defs() and replacement helpers for the physicalizer to rewrite in
// place.
package backend

import "fmt"

// RegKind distinguishes the integer and float register files.
type RegKind int

const (
	RegUsual RegKind = iota
	RegFloat
)

// Reg is either a physical ABI-named register or a virtual id, tagged by
// kind (spec.md §4.F). A zero-value Reg (Phys == "" && Virtual == 0) is
// never a live register in practice because virtual id 0 is reserved
// unused by the generator (see internal/selector's vregGen), so callers can use a
// zero Reg as a "no register" sentinel without a separate bool.
type Reg struct {
	Kind    RegKind
	Phys    string // physical ABI name, e.g. "a0"; empty for a virtual reg
	Virtual int    // valid only when Phys == ""
}

func (r Reg) IsVirtual() bool { return r.Phys == "" }

func (r Reg) String() string {
	if !r.IsVirtual() {
		return r.Phys
	}
	if r.Kind == RegFloat {
		return fmt.Sprintf("%%vf%d", r.Virtual)
	}
	return fmt.Sprintf("%%v%d", r.Virtual)
}

func PhysReg(kind RegKind, name string) Reg { return Reg{Kind: kind, Phys: name} }
func VirtualReg(kind RegKind, id int) Reg   { return Reg{Kind: kind, Virtual: id} }

// Physical integer ABI names (spec.md §4.F).
const (
	Zero = "zero"
	Ra   = "ra"
	Sp   = "sp"
)

var (
	SRegs = [...]string{"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11"}
	TRegs = [...]string{"t0", "t1", "t2", "t3", "t4", "t5", "t6"}
	ARegs = [...]string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}

	FTRegs = [...]string{"ft0", "ft1", "ft2", "ft3", "ft4", "ft5", "ft6", "ft7", "ft8", "ft9", "ft10", "ft11"}
	FARegs = [...]string{"fa0", "fa1", "fa2", "fa3", "fa4", "fa5", "fa6", "fa7"}
	FSRegs = [...]string{"fs0", "fs1", "fs2", "fs3", "fs4", "fs5", "fs6", "fs7", "fs8", "fs9", "fs10", "fs11"}
)

// S1 is reserved by the physicalizer for offset-overflow address arithmetic
// (spec.md §4.H step 8) and is never allocated to carry a value across a
// callee-save boundary the way s0, s2-s11 are.
const S1 = "s1"

// UsualScratch and FloatScratch are the physicalizer's reload/spill
// scratch registers (spec.md §4.H step 2): t0-t2 and ft0-ft2.
var (
	UsualScratch = [...]string{"t0", "t1", "t2"}
	FloatScratch = [...]string{"ft0", "ft1", "ft2"}
)

// IsCalleeSaved reports whether a physical register name must be preserved
// across a call (spec.md §4.H step 3's callee-save set, plus s1).
func IsCalleeSaved(name string) bool {
	for _, s := range SRegs {
		if s == name {
			return true
		}
	}
	for _, s := range FSRegs {
		if s == name {
			return true
		}
	}
	return false
}

// IsCallerSaved reports whether a physical register name must be saved by
// the caller around a Call (spec.md §4.H step 4), i.e. it's live across
// calls only if the caller explicitly preserves it.
func IsCallerSaved(name string) bool {
	for _, s := range TRegs {
		if s == name {
			return true
		}
	}
	for _, s := range ARegs {
		if s == name {
			return true
		}
	}
	for _, s := range FTRegs {
		if s == name {
			return true
		}
	}
	for _, s := range FARegs {
		if s == name {
			return true
		}
	}
	return false
}
