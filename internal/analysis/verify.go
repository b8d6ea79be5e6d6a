package analysis

import (
	"fmt"

	"github.com/CNCSMonster/duskphantom/internal/ir"
)

// Verify checks a function against the SSA invariants every transform must
// preserve (spec.md §3, invariants 3-6; 1-2 are structurally guaranteed by
// irbuilder's use-def manager and so aren't re-checked here). The selector
// runs it on every function before lowering; compile.Module also runs it
// once after optimization when Options.Verify is set.
func Verify(f *ir.Function) error {
	if f.IsLib || f.Entry == nil {
		return nil
	}
	dom := BuildDomTree(f)
	for _, bb := range RPO(f) {
		if err := verifyTerminator(bb); err != nil {
			return fmt.Errorf("function %s: %w", f.Name, err)
		}
		if err := verifyPhiOrdering(bb); err != nil {
			return fmt.Errorf("function %s: %w", f.Name, err)
		}
		if err := verifyPhiCompleteness(bb); err != nil {
			return fmt.Errorf("function %s: %w", f.Name, err)
		}
		if err := verifyDominance(bb, dom); err != nil {
			return fmt.Errorf("function %s: %w", f.Name, err)
		}
	}
	return nil
}

func verifyTerminator(bb *ir.BasicBlock) error {
	count := 0
	var last *ir.Instruction
	bb.Walk(func(inst *ir.Instruction) bool {
		if inst.IsTerminator() {
			count++
		}
		last = inst
		return true
	})
	if count != 1 {
		return fmt.Errorf("block %s: expected exactly one terminator, found %d", bb.Name, count)
	}
	if last == nil || !last.IsTerminator() {
		return fmt.Errorf("block %s: terminator is not the last instruction", bb.Name)
	}
	return nil
}

func verifyPhiOrdering(bb *ir.BasicBlock) error {
	seenNonPhi := false
	var err error
	bb.Walk(func(inst *ir.Instruction) bool {
		if inst.IsPhi() {
			if seenNonPhi {
				err = fmt.Errorf("block %s: phi %%%d follows a non-phi instruction", bb.Name, inst.ID())
				return false
			}
		} else {
			seenNonPhi = true
		}
		return true
	})
	return err
}

func verifyPhiCompleteness(bb *ir.BasicBlock) error {
	var err error
	bb.Walk(func(inst *ir.Instruction) bool {
		if !inst.IsPhi() {
			return true
		}
		pp := inst.Payload.(*ir.PhiPayload)
		if len(pp.Incoming) != len(bb.Preds) {
			err = fmt.Errorf("block %s: phi %%%d has %d incoming edges, block has %d predecessors",
				bb.Name, inst.ID(), len(pp.Incoming), len(bb.Preds))
			return false
		}
		for _, p := range bb.Preds {
			found := false
			for _, e := range pp.Incoming {
				if e.Pred == p {
					found = true
					break
				}
			}
			if !found {
				err = fmt.Errorf("block %s: phi %%%d has no incoming edge for predecessor %s", bb.Name, inst.ID(), p.Name)
				return false
			}
		}
		return true
	})
	return err
}

func verifyDominance(bb *ir.BasicBlock, dom *DomTree) error {
	var err error
	bb.Walk(func(inst *ir.Instruction) bool {
		if inst.IsPhi() {
			pp := inst.Payload.(*ir.PhiPayload)
			for k, op := range inst.Operands() {
				if op.Kind != ir.OperandInstruction {
					continue
				}
				pred := pp.Incoming[k].Pred
				predTerm := pred.Terminator()
				if predTerm == nil || !dom.DominatesInst(op.Inst, predTerm) {
					err = fmt.Errorf("phi %%%d: operand %%%d does not dominate predecessor %s", inst.ID(), op.Inst.ID(), pred.Name)
					return false
				}
			}
			return true
		}
		for _, op := range inst.Operands() {
			if op.Kind != ir.OperandInstruction {
				continue
			}
			if !dom.DominatesInst(op.Inst, inst) {
				err = fmt.Errorf("instruction %%%d: operand %%%d does not dominate its use", inst.ID(), op.Inst.ID())
				return false
			}
		}
		return true
	})
	return err
}
