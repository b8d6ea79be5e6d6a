package physicalize

import (
	"github.com/CNCSMonster/duskphantom/internal/backend"
	"github.com/CNCSMonster/duskphantom/internal/errors"
)

const immBits = 12

// roundUp16 rounds n up to the next multiple of 16 (spec.md §4.H step 6:
// "compute final frame size rounded up to 16 bytes").
func roundUp16(n int) int {
	if n%16 != 0 {
		n += 16 - n%16
	}
	return n
}

// buildFrame is spec.md §4.H step 6: reserve a slot for the caller's s0,
// compute the final frame size, and install the prologue/epilogue that
// establishes and tears down this function's frame:
//
//	addi sp, sp, -frame   ; sd s0, off(sp)   ; mv s0, sp      (entry)
//	addi sp, sp,  frame   ; ld s0, off'(sp)                   (each Ret)
//
// Every other stack access in the function (virtuals, allocas, callee/
// caller-save slots, ra) addresses purely through sp in its "new frame"
// state, which holds for the whole function body between these two
// sequences — so s0 never needs to serve as an alternate addressing base
// here; it is saved and restored purely because it's a callee-saved
// register the prologue happens to repurpose as the frame's base value
// (matching spec.md's literal "mv s0, sp"), not because step 7's
// memory-lowering pass ever reads through it.
func buildFrame(f *backend.Function, alloc *slotAlloc) (uint32, error) {
	s0Slot := alloc.take(8)
	frame := roundUp16(alloc.next)
	if frame < 0 || frame > maxUint32 {
		return 0, errors.New(errors.ResourceError, "physicalize", "frame size exceeds u32")
	}
	frameSize := uint32(frame)
	f.FrameSize = frameSize

	sp := backend.PhysReg(backend.RegUsual, backend.Sp)
	s0 := backend.PhysReg(backend.RegUsual, "s0")
	t0 := backend.PhysReg(backend.RegUsual, backend.UsualScratch[0])

	entryOff := int64(s0Slot.Offset) - int64(frame)
	exitOff := int64(s0Slot.Offset) - 2*int64(frame)

	if len(f.Blocks) > 0 {
		entry := f.Blocks[0]
		prologue := adjustSP(-frame, t0, sp)
		prologue = append(prologue, backend.Sd(s0, sp, entryOff), backend.Mv(s0, sp))
		entry.Insts = append(prologue, entry.Insts...)
	}

	insertBeforeEachRet(f, func() []*backend.Inst {
		epilogue := adjustSP(frame, t0, sp)
		epilogue = append(epilogue, backend.Ld(s0, sp, exitOff))
		return epilogue
	})

	return frameSize, nil
}

// adjustSP returns the instructions that add delta bytes to sp, staging the
// constant through t0 when it doesn't fit a 12-bit signed addi immediate
// (spec.md §4.H step 6).
func adjustSP(delta int, t0, sp backend.Reg) []*backend.Inst {
	d := int64(delta)
	if (&backend.Imm{V: d}).InLimit(immBits) {
		return []*backend.Inst{backend.AddImm(sp, sp, d)}
	}
	return []*backend.Inst{
		backend.Li(t0, d),
		backend.Add(sp, sp, t0),
	}
}
