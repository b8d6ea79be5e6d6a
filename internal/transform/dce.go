package transform

import (
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

// DCE iteratively removes instructions with no users and no side effect —
// not a terminator, not a store, not a call (spec.md §4.E: a call might be
// impure and nothing here proves otherwise). Runs to a local fixed point
// since removing one dead instruction can make its operands dead too.
func DCE(b *irbuilder.Builder, f *ir.Function) bool {
	changed := false
	for {
		pass := false
		for _, bb := range f.Blocks() {
			var next *ir.Instruction
			for inst := bb.First(); inst != nil; inst = next {
				next = inst.Next()
				if isDeadCandidate(inst) {
					b.Remove(inst)
					pass = true
				}
			}
		}
		if !pass {
			break
		}
		changed = true
	}
	return changed
}

func isDeadCandidate(inst *ir.Instruction) bool {
	if inst.HasUsers() {
		return false
	}
	if inst.IsTerminator() {
		return false
	}
	if inst.Op == ir.OpStore || inst.Op == ir.OpCall {
		return false
	}
	return true
}
