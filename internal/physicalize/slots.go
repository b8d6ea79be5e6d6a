package physicalize

import (
	"github.com/CNCSMonster/duskphantom/internal/backend"
	"github.com/CNCSMonster/duskphantom/internal/errors"
)

// slotAlloc is a per-function bump allocator continuing from wherever the
// selector's own alloca allocator left off (spec.md §4.H step 2: "every
// virtual register is assigned an 8-byte stack slot"; steps 3-5 reuse it for
// callee-save, caller-save, and ra slots so every pseudo Load/Store/LocalAddr
// in the function — alloca-backed or physicalizer-inserted — is resolved by
// the same memory-lowering pass in step 7).
type slotAlloc struct {
	next int
}

func newSlotAlloc(f *backend.Function) *slotAlloc {
	max := 0
	for _, bb := range f.Blocks {
		for _, inst := range bb.Insts {
			if inst.Slot != nil {
				end := inst.Slot.Offset + inst.Slot.Size
				if end > max {
					max = end
				}
			}
		}
	}
	return &slotAlloc{next: max}
}

func (a *slotAlloc) take(size int) *backend.StackSlot {
	if size%8 != 0 {
		size += 8 - size%8
	}
	s := &backend.StackSlot{Offset: a.next, Size: size}
	a.next += size
	return s
}

// handleIllegalImmediates is spec.md §4.H step 1. The instruction set this
// backend's selector produces never attaches an Imm to Sltu/Sgtu/Mul/Div —
// every arithmetic operand is already register-resident by the time
// internal/selector emits it (constants are materialized via Li first) — so
// this pass is a structural no-op today. It stays as an explicit, named step
// rather than being omitted: if a future selector change ever did emit an
// immediate-carrying arithmetic op, this is where it gets caught and
// corrected, and the physicalizer's step numbering stays aligned with
// spec.md §4.H.
func handleIllegalImmediates(f *backend.Function) error {
	for _, bb := range f.Blocks {
		for _, inst := range bb.Insts {
			switch inst.Op {
			case backend.OpSltu, backend.OpSgtu, backend.OpMul, backend.OpDiv:
				if inst.Imm != nil {
					return errors.New(errors.InternalError, "physicalize",
						"unexpected immediate operand on "+inst.Op.String()+"; selector must materialize constants via Li before reaching physicalize")
				}
			}
		}
	}
	return nil
}

// isFloatRegName reports whether a physical register name belongs to the
// float file (fa*/ft*/fs*), used when rebuilding a Reg from a bare name for
// save/restore sequences where only the name survived (e.g. a set collected
// into a sorted slice).
func isFloatRegName(name string) bool {
	return len(name) > 0 && name[0] == 'f'
}

func physRegFor(name string) backend.Reg {
	if isFloatRegName(name) {
		return backend.PhysReg(backend.RegFloat, name)
	}
	return backend.PhysReg(backend.RegUsual, name)
}
