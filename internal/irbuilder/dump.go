package irbuilder

import (
	"fmt"
	"strings"

	"github.com/CNCSMonster/duskphantom/internal/ir"
)

// Dump renders a module to duskc's textual IR form. It exists for
// debugging and for the roundtrip test property (spec.md §8): a dump/parse
// cycle must reproduce a structurally identical graph, not byte-identical
// text, so the format favors being easy to re-parse over being pretty.
func Dump(m *ir.Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %q\n", m.Name)
	for _, g := range m.Globals {
		kw := "global"
		if g.Const {
			kw = "constant"
		}
		fmt.Fprintf(&sb, "@%s = %s %s %s\n", g.Name, kw, g.Type, g.Initializer)
	}
	for _, f := range m.Funcs {
		dumpFunc(&sb, f)
	}
	return sb.String()
}

func dumpFunc(sb *strings.Builder, f *ir.Function) {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %%%s", p.Type, p.Name)
	}
	if f.IsLib {
		fmt.Fprintf(sb, "declare %s @%s(%s)\n", f.RetType, f.Name, strings.Join(params, ", "))
		return
	}
	fmt.Fprintf(sb, "define %s @%s(%s) {\n", f.RetType, f.Name, strings.Join(params, ", "))
	for _, bb := range f.Blocks() {
		dumpBlock(sb, bb)
	}
	fmt.Fprintf(sb, "}\n")
}

func dumpBlock(sb *strings.Builder, bb *ir.BasicBlock) {
	fmt.Fprintf(sb, "%s:\n", bb.Name)
	bb.Walk(func(inst *ir.Instruction) bool {
		dumpInst(sb, inst)
		return true
	})
}

func dumpInst(sb *strings.Builder, inst *ir.Instruction) {
	lhs := ""
	if !inst.IsVoid() {
		lhs = fmt.Sprintf("%%%d = ", inst.ID())
	}
	switch inst.Op {
	case ir.OpPhi:
		pp := inst.Payload.(*ir.PhiPayload)
		parts := make([]string, len(pp.Incoming))
		for i, e := range pp.Incoming {
			parts[i] = fmt.Sprintf("[ %s, %%%s ]", dumpOperand(inst.Operand(i)), e.Pred.Name)
		}
		fmt.Fprintf(sb, "  %sphi %s %s\n", lhs, inst.Type, strings.Join(parts, ", "))
	case ir.OpBr:
		if inst.NumOperands() == 0 {
			fmt.Fprintf(sb, "  br label %%%s\n", inst.Parent.Succs[0].Name)
		} else {
			fmt.Fprintf(sb, "  br i1 %s, label %%%s, label %%%s\n",
				dumpOperand(inst.Operand(0)), inst.Parent.Succs[0].Name, inst.Parent.Succs[1].Name)
		}
	case ir.OpRet:
		if inst.NumOperands() == 0 {
			fmt.Fprintf(sb, "  ret void\n")
		} else {
			fmt.Fprintf(sb, "  ret %s %s\n", inst.Type, dumpOperand(inst.Operand(0)))
		}
	case ir.OpCall:
		cp := inst.Payload.(*ir.CallPayload)
		args := make([]string, inst.NumOperands())
		for i, o := range inst.Operands() {
			args[i] = dumpOperand(o)
		}
		fmt.Fprintf(sb, "  %scall %s @%s(%s)\n", lhs, inst.Type, cp.Callee.Name, strings.Join(args, ", "))
	case ir.OpICmp:
		p := inst.Payload.(*ir.ICmpPayload)
		fmt.Fprintf(sb, "  %sicmp %s %s %s, %s\n", lhs, p.Pred, p.CompType, dumpOperand(inst.Operand(0)), dumpOperand(inst.Operand(1)))
	case ir.OpFCmp:
		p := inst.Payload.(*ir.FCmpPayload)
		fmt.Fprintf(sb, "  %sfcmp %s %s %s, %s\n", lhs, p.Pred, p.CompType, dumpOperand(inst.Operand(0)), dumpOperand(inst.Operand(1)))
	case ir.OpAlloca:
		p := inst.Payload.(*ir.AllocaPayload)
		fmt.Fprintf(sb, "  %salloca %s, %d\n", lhs, p.ElemType, p.Count)
	case ir.OpLoad:
		fmt.Fprintf(sb, "  %sload %s, %s\n", lhs, inst.Type, dumpOperand(inst.Operand(0)))
	case ir.OpStore:
		fmt.Fprintf(sb, "  store %s, %s\n", dumpOperand(inst.Operand(0)), dumpOperand(inst.Operand(1)))
	case ir.OpGetElementPtr:
		idx := make([]string, inst.NumOperands()-1)
		for i := 1; i < inst.NumOperands(); i++ {
			idx[i-1] = dumpOperand(inst.Operand(i))
		}
		fmt.Fprintf(sb, "  %sgetelementptr %s, %s, %s\n", lhs, inst.Payload.(*ir.GEPPayload).PointeeType, dumpOperand(inst.Operand(0)), strings.Join(idx, ", "))
	default:
		ops := make([]string, inst.NumOperands())
		for i, o := range inst.Operands() {
			ops[i] = dumpOperand(o)
		}
		fmt.Fprintf(sb, "  %s%s %s %s\n", lhs, inst.Op, inst.Type, strings.Join(ops, ", "))
	}
}

func dumpOperand(o ir.Operand) string {
	switch o.Kind {
	case ir.OperandConstant:
		return o.Const.String()
	case ir.OperandGlobal:
		return "@" + o.Glob.Name
	case ir.OperandParameter:
		return "%" + o.Param.Name
	case ir.OperandInstruction:
		return fmt.Sprintf("%%%d", o.Inst.ID())
	default:
		return "?"
	}
}
