package transform

import (
	"fmt"

	"github.com/CNCSMonster/duskphantom/internal/analysis"
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

// Redundancy eliminates recomputation of a value already available on
// every path reaching it (spec.md §4.E: "global value numbering using
// operand-hash keys plus a simple symbolic interpreter for integer
// arithmetic identities"). Availability is scoped by the dominator tree
// rather than one flat module-wide table: a value computed in a block is
// only a valid replacement for an identical computation in a block that
// block dominates, so the value table is pushed on entry to a dominator
// subtree and popped on exit, the same scheme EarlyCSE-style passes use.
//
// A small symbolic layer runs first and catches algebraic identities
// ConstantFold can't, because one operand there isn't a literal constant:
// x+0, x*1, x*0, x-x, x^x, x&x|x and the like, recognized structurally
// rather than by evaluating both operands.
func Redundancy(b *irbuilder.Builder, f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	dom := analysis.BuildDomTree(f)
	children := domChildren(f, dom)
	table := map[string]*ir.Instruction{}
	changed := false

	var walk func(bb *ir.BasicBlock)
	walk = func(bb *ir.BasicBlock) {
		var inserted []string
		var next *ir.Instruction
		for inst := bb.First(); inst != nil; inst = next {
			next = inst.Next()
			if simplifyIdentity(b, inst) {
				changed = true
				continue
			}
			key, ok := valueKey(inst)
			if !ok {
				continue
			}
			if existing, found := table[key]; found {
				b.ReplaceSelf(inst, ir.InstOperand(existing))
				changed = true
				continue
			}
			table[key] = inst
			inserted = append(inserted, key)
		}
		for _, c := range children[bb] {
			walk(c)
		}
		for _, k := range inserted {
			delete(table, k)
		}
	}
	walk(f.Entry)
	return changed
}

// valueKey returns a hash key for a pure, value-numberable instruction,
// canonicalizing commutative operand order so `a+b` and `b+a` collide.
// Memory ops, calls, phis and terminators never participate: their
// "availability" depends on more than operand identity.
func valueKey(inst *ir.Instruction) (string, bool) {
	switch inst.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpRem,
		ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv,
		ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpLShr, ir.OpAShr,
		ir.OpICmp, ir.OpFCmp, ir.OpGetElementPtr,
		ir.OpSext, ir.OpZext, ir.OpTrunc, ir.OpBitcast:
	default:
		return "", false
	}
	// Div/Rem can trap (division by zero); only numbering them would be
	// unsound if CSE moved the trap to a path that wouldn't otherwise take
	// it. Dominance-scoped availability keeps the replacement on a path
	// that already executed the same op, so this is sound; it's excluded
	// from simplifyIdentity's speculative rewrites below, not from here.
	ops := append([]ir.Operand(nil), inst.Operands()...)
	if inst.IsCommutative() && len(ops) == 2 && operandKey(ops[0]) > operandKey(ops[1]) {
		ops[0], ops[1] = ops[1], ops[0]
	}
	key := inst.Op.String() + "|" + inst.Type.String()
	switch p := inst.Payload.(type) {
	case *ir.ICmpPayload:
		key += "|" + p.Pred.String()
	case *ir.FCmpPayload:
		key += "|" + p.Pred.String()
	case *ir.GEPPayload:
		key += "|" + p.PointeeType.String()
	}
	for _, o := range ops {
		key += "|" + operandKey(o)
	}
	return key, true
}

// operandKey gives a value-identity string for an operand: two operands
// denoting the same constant shape or the same Global/Parameter/
// Instruction produce the same key.
func operandKey(o ir.Operand) string {
	switch o.Kind {
	case ir.OperandConstant:
		c := o.Const
		return fmt.Sprintf("c:%d:%d:%g:%v:%d", c.Kind, c.I, c.F, c.B, c.C)
	case ir.OperandGlobal:
		return fmt.Sprintf("g:%p", o.Glob)
	case ir.OperandParameter:
		return fmt.Sprintf("p:%p", o.Param)
	case ir.OperandInstruction:
		return fmt.Sprintf("i:%p", o.Inst)
	default:
		return "?"
	}
}

// simplifyIdentity folds an arithmetic identity recognizable from operand
// shape alone (one side a known-zero/one constant, or both sides the same
// value), the "symbolic interpreter" spec.md §4.E asks for alongside GVN
// proper. Div/Rem are left out: `x/x` still traps when x is zero at
// runtime, so it can't be folded to 1 without changing behavior.
func simplifyIdentity(b *irbuilder.Builder, inst *ir.Instruction) bool {
	switch inst.Op {
	case ir.OpAdd:
		if isZeroOperand(inst.Operand(1)) {
			b.ReplaceSelf(inst, inst.Operand(0))
			return true
		}
		if isZeroOperand(inst.Operand(0)) {
			b.ReplaceSelf(inst, inst.Operand(1))
			return true
		}
	case ir.OpSub:
		if isZeroOperand(inst.Operand(1)) {
			b.ReplaceSelf(inst, inst.Operand(0))
			return true
		}
		if inst.Operand(0).Same(inst.Operand(1)) {
			b.ReplaceSelf(inst, ir.ConstOperand(ir.IntConst(0)))
			return true
		}
	case ir.OpMul:
		if isOneOperand(inst.Operand(1)) {
			b.ReplaceSelf(inst, inst.Operand(0))
			return true
		}
		if isOneOperand(inst.Operand(0)) {
			b.ReplaceSelf(inst, inst.Operand(1))
			return true
		}
		if isZeroOperand(inst.Operand(0)) || isZeroOperand(inst.Operand(1)) {
			b.ReplaceSelf(inst, ir.ConstOperand(ir.IntConst(0)))
			return true
		}
	case ir.OpAnd:
		if inst.Operand(0).Same(inst.Operand(1)) {
			b.ReplaceSelf(inst, inst.Operand(0))
			return true
		}
		if isZeroOperand(inst.Operand(0)) || isZeroOperand(inst.Operand(1)) {
			b.ReplaceSelf(inst, ir.ConstOperand(ir.IntConst(0)))
			return true
		}
	case ir.OpOr:
		if inst.Operand(0).Same(inst.Operand(1)) {
			b.ReplaceSelf(inst, inst.Operand(0))
			return true
		}
		if isZeroOperand(inst.Operand(1)) {
			b.ReplaceSelf(inst, inst.Operand(0))
			return true
		}
		if isZeroOperand(inst.Operand(0)) {
			b.ReplaceSelf(inst, inst.Operand(1))
			return true
		}
	case ir.OpXor:
		if inst.Operand(0).Same(inst.Operand(1)) {
			b.ReplaceSelf(inst, ir.ConstOperand(ir.IntConst(0)))
			return true
		}
		if isZeroOperand(inst.Operand(1)) {
			b.ReplaceSelf(inst, inst.Operand(0))
			return true
		}
		if isZeroOperand(inst.Operand(0)) {
			b.ReplaceSelf(inst, inst.Operand(1))
			return true
		}
	}
	return false
}

func isZeroOperand(o ir.Operand) bool {
	return o.Kind == ir.OperandConstant && o.Const.IsZero()
}

func isOneOperand(o ir.Operand) bool {
	return o.Kind == ir.OperandConstant && (o.Const.Kind == ir.ConstInt && o.Const.I == 1 ||
		o.Const.Kind == ir.ConstFloat && o.Const.F == 1)
}

