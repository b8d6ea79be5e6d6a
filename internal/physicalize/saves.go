package physicalize

import (
	"sort"

	"github.com/CNCSMonster/duskphantom/internal/backend"
)

// insertBeforeEachRet rebuilds every block's instruction list, splicing
// mk()'s instructions in immediately before each Ret — the shared shape
// behind callee-save restore, ra restore, and the stack-frame epilogue
// (spec.md §4.H steps 3, 5, 6 each prepend/append around the same anchor).
func insertBeforeEachRet(f *backend.Function, mk func() []*backend.Inst) {
	for _, bb := range f.Blocks {
		needsSplice := false
		for _, inst := range bb.Insts {
			if inst.Op == backend.OpRet {
				needsSplice = true
				break
			}
		}
		if !needsSplice {
			continue
		}
		out := make([]*backend.Inst, 0, len(bb.Insts)+2)
		for _, inst := range bb.Insts {
			if inst.Op == backend.OpRet {
				out = append(out, mk()...)
			}
			out = append(out, inst)
		}
		bb.Insts = out
	}
}

// calleeSave is spec.md §4.H step 3: scan every def/use for a physical
// register in the callee-save set, plus s1 unconditionally (reserved for
// step 8's offset-overflow staging, which may introduce a use of it after
// this step has already run — spec.md §4.H's "plus s1 (reserved for address
// arithmetic)" bundles it in regardless of whether this function happens to
// use it yet). Each gets one slot, saved at function entry and restored
// before every Ret.
func calleeSave(f *backend.Function, alloc *slotAlloc) ([]string, map[string]*backend.StackSlot) {
	used := map[string]bool{"s1": true}
	for _, bb := range f.Blocks {
		for _, inst := range bb.Insts {
			for _, r := range inst.Defs() {
				if !r.IsVirtual() && backend.IsCalleeSaved(r.Phys) {
					used[r.Phys] = true
				}
			}
			for _, r := range inst.Uses() {
				if !r.IsVirtual() && backend.IsCalleeSaved(r.Phys) {
					used[r.Phys] = true
				}
			}
		}
	}
	names := make([]string, 0, len(used))
	for n := range used {
		names = append(names, n)
	}
	sort.Strings(names)

	slots := make(map[string]*backend.StackSlot, len(names))
	for _, n := range names {
		slots[n] = alloc.take(8)
	}

	if len(f.Blocks) > 0 {
		entry := f.Blocks[0]
		prologue := make([]*backend.Inst, 0, len(names))
		for _, n := range names {
			prologue = append(prologue, backend.Store(physRegFor(n), slots[n]))
		}
		entry.Insts = append(prologue, entry.Insts...)
	}

	insertBeforeEachRet(f, func() []*backend.Inst {
		restore := make([]*backend.Inst, 0, len(names))
		for _, n := range names {
			restore = append(restore, backend.Load(physRegFor(n), slots[n]))
		}
		return restore
	})

	return names, slots
}

// callerSave is spec.md §4.H step 4: bracket every Call with stores/loads of
// the caller-save registers that aren't scratch registers and aren't the
// call's own result register. internal/selector only ever has a Call's ABI
// argument registers live immediately before the Call itself (it moves each
// argument into place right before emitting Call, with nothing else
// scheduled between them), so in today's generated code this bracket saves
// registers that are about to be overwritten anyway — still inserted
// unconditionally because the physicalizer must hold for any backend.Module
// it's handed, not just the shapes this selector happens to produce.
func callerSave(f *backend.Function, alloc *slotAlloc) {
	names := make([]string, 0, len(backend.ARegs)+len(backend.FARegs))
	names = append(names, backend.ARegs[:]...)
	names = append(names, backend.FARegs[:]...)

	slots := make(map[string]*backend.StackSlot, len(names))
	for _, n := range names {
		slots[n] = alloc.take(8)
	}

	for _, bb := range f.Blocks {
		var out []*backend.Inst
		for _, inst := range bb.Insts {
			if inst.Op != backend.OpCall {
				out = append(out, inst)
				continue
			}
			resultReg := ""
			if len(inst.Defs()) == 1 {
				resultReg = inst.Defs()[0].Phys
			}
			var saves, restores []*backend.Inst
			for _, n := range names {
				if n == resultReg {
					continue
				}
				saves = append(saves, backend.Store(physRegFor(n), slots[n]))
				restores = append(restores, backend.Load(physRegFor(n), slots[n]))
			}
			out = append(out, saves...)
			out = append(out, inst)
			out = append(out, restores...)
		}
		bb.Insts = out
	}
}

// raHandling is spec.md §4.H step 5: if the function performs any call, save
// ra at entry and restore before every Ret.
func raHandling(f *backend.Function, alloc *slotAlloc) bool {
	callsOut := false
	for _, bb := range f.Blocks {
		for _, inst := range bb.Insts {
			if inst.Op == backend.OpCall {
				callsOut = true
			}
		}
	}
	if !callsOut {
		return false
	}

	slot := alloc.take(8)
	raReg := backend.PhysReg(backend.RegUsual, backend.Ra)

	if len(f.Blocks) > 0 {
		entry := f.Blocks[0]
		entry.Insts = append([]*backend.Inst{backend.Store(raReg, slot)}, entry.Insts...)
	}
	insertBeforeEachRet(f, func() []*backend.Inst {
		return []*backend.Inst{backend.Load(raReg, slot)}
	})
	return true
}
