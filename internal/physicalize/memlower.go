package physicalize

import "github.com/CNCSMonster/duskphantom/internal/backend"

// lowerMemoryPseudos is spec.md §4.H step 7: every pseudo Load/Store/
// LocalAddr left over from selection (allocas) or from physicalize-reg
// (virtual spills, callee/caller-save slots, ra) resolves to a real
// sp-relative instruction now that FrameSize is final. Spill/save slots are
// always accessed as a full 8-byte quantity regardless of the underlying
// SSA value's declared width (backend.Load/Store carry the register's Kind,
// not its bit width) — this backend treats every usual register as a full
// 64-bit quantity, so round-tripping through ld/sd uniformly is exact.
func lowerMemoryPseudos(f *backend.Function, frameSize uint32) {
	sp := backend.PhysReg(backend.RegUsual, backend.Sp)
	for _, bb := range f.Blocks {
		for i, inst := range bb.Insts {
			switch inst.Op {
			case backend.OpLoad:
				off := int64(inst.Slot.Offset) - int64(frameSize)
				bb.Insts[i] = realLoadFor(inst.Out, sp, off)
			case backend.OpStore:
				off := int64(inst.Slot.Offset) - int64(frameSize)
				bb.Insts[i] = realStoreFor(inst.In[0], sp, off)
			case backend.OpLocalAddr:
				off := int64(inst.Slot.Offset) - int64(frameSize)
				bb.Insts[i] = backend.AddImm(inst.Out, sp, off)
			}
		}
	}
}

func realLoadFor(dst, base backend.Reg, off int64) *backend.Inst {
	if dst.Kind == backend.RegFloat {
		return backend.Fld(dst, base, off)
	}
	return backend.Ld(dst, base, off)
}

func realStoreFor(val, base backend.Reg, off int64) *backend.Inst {
	if val.Kind == backend.RegFloat {
		return backend.Fsd(val, base, off)
	}
	return backend.Sd(val, base, off)
}
