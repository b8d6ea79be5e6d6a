package transform

import (
	"github.com/CNCSMonster/duskphantom/internal/analysis"
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

// Mem2Reg promotes every alloca in f whose uses are exclusively direct
// Load/Store of the whole value into SSA form: phis go in at the iterated
// dominance frontier of the alloca's defining blocks, and uses are renamed
// via a per-path value stack walked over the dominator tree (spec.md
// §4.E, Cytron et al.). Arrays, and any alloca whose address escapes
// through something other than a Load/Store, are left in memory.
func Mem2Reg(b *irbuilder.Builder, f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	allocas := promotableAllocas(f)
	if len(allocas) == 0 {
		return false
	}
	dom := analysis.BuildDomTree(f)
	df := dom.Frontier()
	children := domChildren(f, dom)

	for _, al := range allocas {
		promoteOne(b, f, al, df, children)
	}
	return true
}

func promotableAllocas(f *ir.Function) []*ir.Instruction {
	var out []*ir.Instruction
	for _, bb := range f.Blocks() {
		bb.Walk(func(inst *ir.Instruction) bool {
			if inst.Op == ir.OpAlloca && isPromotable(inst) {
				out = append(out, inst)
			}
			return true
		})
	}
	return out
}

func isPromotable(al *ir.Instruction) bool {
	if al.Payload.(*ir.AllocaPayload).Count != 1 {
		return false // arrays stay in memory; GEP intervenes before any load/store
	}
	for _, u := range al.Users() {
		switch u.Op {
		case ir.OpLoad:
			if u.Operand(0).Kind != ir.OperandInstruction || u.Operand(0).Inst != al {
				return false
			}
		case ir.OpStore:
			if u.Operand(1).Kind != ir.OperandInstruction || u.Operand(1).Inst != al {
				return false
			}
			if u.Operand(0).Kind == ir.OperandInstruction && u.Operand(0).Inst == al {
				return false // storing the pointer itself: address taken
			}
		default:
			return false
		}
	}
	return true
}

func domChildren(f *ir.Function, dom *analysis.DomTree) map[*ir.BasicBlock][]*ir.BasicBlock {
	kids := make(map[*ir.BasicBlock][]*ir.BasicBlock)
	for _, bb := range analysis.RPO(f) {
		if idom := dom.IDom(bb); idom != nil {
			kids[idom] = append(kids[idom], bb)
		}
	}
	return kids
}

func promoteOne(b *irbuilder.Builder, f *ir.Function, al *ir.Instruction, df map[*ir.BasicBlock][]*ir.BasicBlock, children map[*ir.BasicBlock][]*ir.BasicBlock) {
	ty := al.Payload.(*ir.AllocaPayload).ElemType

	defBlocks := map[*ir.BasicBlock]bool{}
	for _, u := range al.Users() {
		if u.Op == ir.OpStore {
			defBlocks[u.Parent] = true
		}
	}

	phiBlocks := map[*ir.BasicBlock]bool{}
	worklist := make([]*ir.BasicBlock, 0, len(defBlocks))
	for bb := range defBlocks {
		worklist = append(worklist, bb)
	}
	for len(worklist) > 0 {
		bb := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, fb := range df[bb] {
			if !phiBlocks[fb] {
				phiBlocks[fb] = true
				worklist = append(worklist, fb)
			}
		}
	}

	zero := ir.ConstOperand(ir.ZeroConst(ty))
	phis := make(map[*ir.BasicBlock]*ir.Instruction, len(phiBlocks))
	for bb := range phiBlocks {
		incoming := make([]ir.PhiEdge, len(bb.Preds))
		for i, p := range bb.Preds {
			incoming[i] = ir.PhiEdge{Value: zero, Pred: p}
		}
		phi := b.Phi(ty, incoming)
		b.InsertAtEnd(bb, phi)
		phis[bb] = phi
	}

	renameAlloca(b, f.Entry, al, phis, children, []ir.Operand{zero})

	for _, u := range append([]*ir.Instruction(nil), al.Users()...) {
		if u.Op == ir.OpStore {
			b.Remove(u)
		}
	}
	if !al.HasUsers() {
		b.Remove(al)
	}
}

func renameAlloca(b *irbuilder.Builder, bb *ir.BasicBlock, al *ir.Instruction, phis map[*ir.BasicBlock]*ir.Instruction, children map[*ir.BasicBlock][]*ir.BasicBlock, stack []ir.Operand) {
	cur := stack[len(stack)-1]
	if phi, ok := phis[bb]; ok {
		cur = ir.InstOperand(phi)
		stack = append(stack, cur)
	}

	var next *ir.Instruction
	for inst := bb.First(); inst != nil; inst = next {
		next = inst.Next()
		switch {
		case inst.Op == ir.OpStore && inst.Operand(1).Kind == ir.OperandInstruction && inst.Operand(1).Inst == al:
			cur = inst.Operand(0)
			stack = append(stack, cur)
		case inst.Op == ir.OpLoad && inst.Operand(0).Kind == ir.OperandInstruction && inst.Operand(0).Inst == al:
			b.ReplaceSelf(inst, cur)
		}
	}

	for _, succ := range bb.Succs {
		phi, ok := phis[succ]
		if !ok {
			continue
		}
		pp := phi.Payload.(*ir.PhiPayload)
		for i, e := range pp.Incoming {
			if e.Pred == bb {
				phi.SetOperand(i, cur)
				pp.Incoming[i].Value = cur
			}
		}
	}

	for _, kid := range children[bb] {
		renameAlloca(b, kid, al, phis, children, stack)
	}
}
