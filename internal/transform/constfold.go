// Package transform implements duskc's optimization pipeline (spec.md
// §4.E): mem2reg, constant folding, load/store elimination, DCE, inlining,
// block fuse and loop optimization, all driven by an outer fixed-point
// loop capped by optimization level.
package transform

import (
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

// ConstantFold evaluates every instruction whose operands are all literal
// constants, replacing it with the folded value. Division/modulo by a
// literal zero is left untouched so it still traps at runtime (spec.md
// §4.E). Returns whether anything changed.
func ConstantFold(b *irbuilder.Builder, f *ir.Function) bool {
	changed := false
	for _, bb := range f.Blocks() {
		var next *ir.Instruction
		for inst := bb.First(); inst != nil; inst = next {
			next = inst.Next()
			if foldOne(b, inst) {
				changed = true
			}
		}
	}
	return changed
}

func foldOne(b *irbuilder.Builder, inst *ir.Instruction) bool {
	switch inst.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpRem,
		ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv,
		ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpLShr, ir.OpAShr:
		l, lok := constOperand(inst.Operand(0))
		r, rok := constOperand(inst.Operand(1))
		if !lok || !rok {
			return false
		}
		v, ok := ir.Arith(inst.Op, l, r)
		if !ok {
			return false
		}
		b.ReplaceSelf(inst, ir.ConstOperand(v))
		return true
	case ir.OpICmp:
		l, lok := constOperand(inst.Operand(0))
		r, rok := constOperand(inst.Operand(1))
		if !lok || !rok {
			return false
		}
		p := inst.Payload.(*ir.ICmpPayload)
		v, ok := ir.ICmpEval(p.Pred, l, r)
		if !ok {
			return false
		}
		b.ReplaceSelf(inst, ir.ConstOperand(v))
		return true
	case ir.OpFCmp:
		l, lok := constOperand(inst.Operand(0))
		r, rok := constOperand(inst.Operand(1))
		if !lok || !rok {
			return false
		}
		p := inst.Payload.(*ir.FCmpPayload)
		v, ok := ir.FCmpEval(p.Pred, l, r)
		if !ok {
			return false
		}
		b.ReplaceSelf(inst, ir.ConstOperand(v))
		return true
	}
	return false
}

func constOperand(op ir.Operand) (ir.Constant, bool) {
	if op.Kind != ir.OperandConstant {
		return ir.Constant{}, false
	}
	return op.Const, true
}
