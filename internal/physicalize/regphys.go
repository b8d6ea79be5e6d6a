package physicalize

import "github.com/CNCSMonster/duskphantom/internal/backend"

// physicalizeRegs is spec.md §4.H step 2: every virtual register gets an
// 8-byte spill slot; each instruction's distinct virtual uses are reloaded
// into scratch registers (t0-t2 / ft0-ft2) in first-occurrence order, its
// virtual def (if any) is recomputed into a scratch and stored back. All
// virtuals are gone after this pass — reusing the same physical scratch
// register as both a use and the def of one instruction is not a hazard
// here: the instruction reads its operands and computes its result as one
// atomic step, same as real hardware's "add t0, t0, t1".
func physicalizeRegs(f *backend.Function, alloc *slotAlloc) {
	slots := make(map[backend.Reg]*backend.StackSlot)
	slotFor := func(r backend.Reg) *backend.StackSlot {
		if s, ok := slots[r]; ok {
			return s
		}
		s := alloc.take(8)
		slots[r] = s
		return s
	}

	for _, bb := range f.Blocks {
		var out []*backend.Inst
		for _, inst := range bb.Insts {
			out = append(out, physicalizeOneInst(inst, slotFor)...)
		}
		bb.Insts = out
	}
}

func physicalizeOneInst(inst *backend.Inst, slotFor func(backend.Reg) *backend.StackSlot) []*backend.Inst {
	var pre []*backend.Inst

	usualIdx, floatIdx := 0, 0
	nextScratch := func(kind backend.RegKind) backend.Reg {
		if kind == backend.RegFloat {
			r := backend.PhysReg(backend.RegFloat, backend.FloatScratch[floatIdx%len(backend.FloatScratch)])
			floatIdx++
			return r
		}
		r := backend.PhysReg(backend.RegUsual, backend.UsualScratch[usualIdx%len(backend.UsualScratch)])
		usualIdx++
		return r
	}

	seen := make(map[backend.Reg]bool)
	for _, r := range inst.Uses() {
		if !r.IsVirtual() || seen[r] {
			continue
		}
		seen[r] = true
		scratch := nextScratch(r.Kind)
		pre = append(pre, backend.Load(scratch, slotFor(r)))
		inst.ReplaceUse(r, scratch)
	}

	var post []*backend.Inst
	if defs := inst.Defs(); len(defs) == 1 && defs[0].IsVirtual() {
		orig := defs[0]
		scratch := nextScratch(orig.Kind)
		inst.ReplaceDef(scratch)
		post = append(post, backend.Store(scratch, slotFor(orig)))
	}

	out := make([]*backend.Inst, 0, len(pre)+1+len(post))
	out = append(out, pre...)
	out = append(out, inst)
	out = append(out, post...)
	return out
}
