package transform

import (
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

// maxInlineBody caps how many instructions a callee's body may hold and
// still count as "small" (spec.md §4.E: "inlines small non-recursive
// callees").
const maxInlineBody = 24

// Inline inlines call sites of small, non-recursive, single-block
// callees across the whole module. Restricting to a single block sidesteps
// splicing the caller's CFG around the call site: a callee with exactly
// one block has no internal control flow, so its body (everything but the
// trailing Ret) can be cloned straight into the caller at the call site
// and the call replaced by the cloned Ret's value. A multi-block callee
// is left un-inlined rather than attempting a riskier CFG splice.
func Inline(b *irbuilder.Builder) bool {
	changed := false
	for _, caller := range b.Module.Funcs {
		if caller.IsLib {
			continue
		}
		for {
			site := findInlinableCall(caller)
			if site == nil {
				break
			}
			inlineCallSite(b, site)
			changed = true
		}
	}
	return changed
}

func findInlinableCall(caller *ir.Function) *ir.Instruction {
	for _, bb := range caller.Blocks() {
		var next *ir.Instruction
		for inst := bb.First(); inst != nil; inst = next {
			next = inst.Next()
			if inst.Op != ir.OpCall {
				continue
			}
			callee := inst.Payload.(*ir.CallPayload).Callee
			if shouldInline(callee, caller) {
				return inst
			}
		}
	}
	return nil
}

func shouldInline(callee, caller *ir.Function) bool {
	if callee.IsLib || callee == caller {
		return false // never inline a library stub or a directly self-recursive call
	}
	if len(callee.Blocks()) != 1 {
		return false
	}
	return callee.Entry.Len() <= maxInlineBody
}

func inlineCallSite(b *irbuilder.Builder, call *ir.Instruction) {
	callee := call.Payload.(*ir.CallPayload).Callee
	args := append([]ir.Operand(nil), call.Operands()...)
	body := callee.Entry

	bareClones := make(map[*ir.Instruction]*ir.Instruction)
	body.Walk(func(inst *ir.Instruction) bool {
		if inst.Op != ir.OpRet {
			bareClones[inst] = b.CloneBare(inst)
		}
		return true
	})

	remap := func(op ir.Operand) ir.Operand {
		switch op.Kind {
		case ir.OperandParameter:
			for i, p := range callee.Params {
				if p == op.Param {
					return args[i]
				}
			}
		case ir.OperandInstruction:
			if c, ok := bareClones[op.Inst]; ok {
				return ir.InstOperand(c)
			}
		}
		return op
	}

	var retVal ir.Operand
	haveRet := false
	body.Walk(func(inst *ir.Instruction) bool {
		if inst.Op == ir.OpRet {
			if inst.NumOperands() == 1 {
				retVal = remap(inst.Operand(0))
				haveRet = true
			}
			return true
		}
		clone := bareClones[inst]
		ops := make([]ir.Operand, inst.NumOperands())
		for i, op := range inst.Operands() {
			ops[i] = remap(op)
		}
		b.FinishClone(clone, inst.Op, inst.Type, clone.Payload, ops)
		b.InsertBefore(call, clone)
		return true
	})

	if !call.IsVoid() && haveRet {
		b.ReplaceSelf(call, retVal)
	} else {
		b.Remove(call)
	}
}
