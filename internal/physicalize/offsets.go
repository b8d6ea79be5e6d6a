package physicalize

import "github.com/CNCSMonster/duskphantom/internal/backend"

// fixOffsetOverflow is spec.md §4.H step 8: any memory instruction (or
// addi) whose final immediate doesn't fit a 12-bit signed field is rewritten
// to stage the address through s1 — `li s1, off; add s1, s1, base; ld/sd
// ..., 0(s1)` — and likewise for an out-of-range addi. s1 is exactly the
// register calleeSave (step 3) always reserves a slot for, whether or not
// this particular function needed it before this pass ran.
func fixOffsetOverflow(f *backend.Function) {
	s1 := backend.PhysReg(backend.RegUsual, backend.S1)
	for _, bb := range f.Blocks {
		var out []*backend.Inst
		for _, inst := range bb.Insts {
			out = append(out, fixOneInst(inst, s1)...)
		}
		bb.Insts = out
	}
}

func fixOneInst(inst *backend.Inst, s1 backend.Reg) []*backend.Inst {
	if inst.Imm == nil || (&backend.Imm{V: inst.Imm.V}).InLimit(immBits) {
		return []*backend.Inst{inst}
	}

	off := inst.Imm.V
	switch inst.Op {
	case backend.OpAddImm:
		base := inst.In[0]
		return []*backend.Inst{
			backend.Li(s1, off),
			backend.Add(inst.Out, base, s1),
		}
	case backend.OpLd, backend.OpLw, backend.OpLh, backend.OpLb, backend.OpFlw, backend.OpFld:
		base := inst.In[0]
		return []*backend.Inst{
			backend.Li(s1, off),
			backend.Add(s1, s1, base),
			sameLoad(inst.Op, inst.Out, s1, 0),
		}
	case backend.OpSd, backend.OpSw, backend.OpSh, backend.OpSb, backend.OpFsw, backend.OpFsd:
		val, base := inst.In[0], inst.In[1]
		return []*backend.Inst{
			backend.Li(s1, off),
			backend.Add(s1, s1, base),
			sameStore(inst.Op, val, s1, 0),
		}
	}
	return []*backend.Inst{inst}
}

// sameLoad/sameStore rebuild a load/store of the same width and kind as op
// against a new base/offset, preserving the narrower Lw/Lh/Lb/Flw forms that
// a kind-only dispatch (as memlower.go uses for always-8-byte spill slots)
// would incorrectly widen to Ld/Fld.
func sameLoad(op backend.Op, dst, base backend.Reg, off int64) *backend.Inst {
	switch op {
	case backend.OpLd:
		return backend.Ld(dst, base, off)
	case backend.OpLw:
		return backend.Lw(dst, base, off)
	case backend.OpLh:
		return backend.Lh(dst, base, off)
	case backend.OpLb:
		return backend.Lb(dst, base, off)
	case backend.OpFlw:
		return backend.Flw(dst, base, off)
	default:
		return backend.Fld(dst, base, off)
	}
}

func sameStore(op backend.Op, val, base backend.Reg, off int64) *backend.Inst {
	switch op {
	case backend.OpSd:
		return backend.Sd(val, base, off)
	case backend.OpSw:
		return backend.Sw(val, base, off)
	case backend.OpSh:
		return backend.Sh(val, base, off)
	case backend.OpSb:
		return backend.Sb(val, base, off)
	case backend.OpFsw:
		return backend.Fsw(val, base, off)
	default:
		return backend.Fsd(val, base, off)
	}
}
