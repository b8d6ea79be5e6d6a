package emit

import (
	"fmt"
	"strings"

	"github.com/CNCSMonster/duskphantom/internal/backend"
)

// Func serializes one physicalized backend.Function to assembly text:
// `.text`/`.align 3`/`.globl`/`.type @function`, the label, each block's
// label and instructions, and a closing `.size` (spec.md §4.I).
func Func(f *backend.Function) (string, error) {
	var b strings.Builder
	b.WriteString("\t.text\n")
	b.WriteString("\t.align\t3\n")
	fmt.Fprintf(&b, "\t.globl\t%s\n", f.Name)
	fmt.Fprintf(&b, "\t.type\t%s, @function\n", f.Name)
	b.WriteString(f.Name + ":\n")

	for _, blk := range f.Blocks {
		if blk.Label != nil && blk.Label.Name != "" {
			fmt.Fprintf(&b, "%s:\n", blk.Label.Name)
		}
		for _, inst := range blk.Insts {
			line, err := instLine(inst)
			if err != nil {
				return "", err
			}
			b.WriteString(line)
		}
	}

	fmt.Fprintf(&b, "\t.size\t%s, .-%s\n", f.Name, f.Name)
	return b.String(), nil
}

// instLine renders one instruction as its operand-order mnemonic line: dst
// operands first, then sources, matching the GNU-as RISC-V convention the
// physicalizer's every surviving op already targets.
func instLine(inst *backend.Inst) (string, error) {
	op := inst.Op
	mnem := op.String()

	switch op {
	case backend.OpLi:
		return asmLine(mnem, inst.Out.String(), imm(inst.Imm)), nil
	case backend.OpLla:
		return asmLine(mnem, inst.Out.String(), targetName(inst.Target)), nil
	case backend.OpMv, backend.OpSeqz, backend.OpSnez, backend.OpFcvtWS, backend.OpFcvtSW:
		return asmLine(mnem, inst.Out.String(), reg(inst.In, 0)), nil
	case backend.OpAddImm:
		return asmLine(mnem, inst.Out.String(), reg(inst.In, 0), imm(inst.Imm)), nil
	case backend.OpAdd, backend.OpSub, backend.OpMul, backend.OpDiv, backend.OpRem,
		backend.OpSll, backend.OpSrl, backend.OpSra, backend.OpAnd, backend.OpOr, backend.OpXor,
		backend.OpSlt, backend.OpSltu, backend.OpSgtu,
		backend.OpFAdd, backend.OpFSub, backend.OpFMul, backend.OpFDiv,
		backend.OpFeq, backend.OpFlt, backend.OpFle:
		return asmLine(mnem, inst.Out.String(), reg(inst.In, 0), reg(inst.In, 1)), nil

	case backend.OpLd, backend.OpLw, backend.OpLh, backend.OpLb, backend.OpFlw, backend.OpFld:
		return asmLine(mnem, inst.Out.String(), memOperand(reg(inst.In, 0), inst.Imm)), nil
	case backend.OpSd, backend.OpSw, backend.OpSh, backend.OpSb, backend.OpFsw, backend.OpFsd:
		return asmLine(mnem, reg(inst.In, 0), memOperand(reg(inst.In, 1), inst.Imm)), nil

	case backend.OpLoad, backend.OpStore, backend.OpLocalAddr:
		return "", fmt.Errorf("emit: unresolved pseudo-op %s reached emission; physicalize step 7 must lower it first", mnem)

	case backend.OpBeq, backend.OpBne, backend.OpBlt, backend.OpBge, backend.OpBltu, backend.OpBgeu:
		return asmLine(mnem, reg(inst.In, 0), reg(inst.In, 1), targetName(inst.Target)), nil
	case backend.OpJ:
		return asmLine(mnem, targetName(inst.Target)), nil
	case backend.OpCall:
		return asmLine(mnem, targetName(inst.Target)), nil
	case backend.OpRet:
		return "\tret\n", nil
	default:
		return "", fmt.Errorf("emit: unhandled op %s", mnem)
	}
}

func reg(in []backend.Reg, i int) string {
	if i >= len(in) {
		return ""
	}
	return in[i].String()
}

func imm(i *backend.Imm) string {
	if i == nil {
		return "0"
	}
	return fmt.Sprintf("%d", i.V)
}

func targetName(l *backend.Label) string {
	if l == nil {
		return ""
	}
	return l.Name
}

func memOperand(base string, off *backend.Imm) string {
	return fmt.Sprintf("%s(%s)", imm(off), base)
}

func asmLine(mnem string, operands ...string) string {
	return "\t" + mnem + "\t" + strings.Join(operands, ", ") + "\n"
}
