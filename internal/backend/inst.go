package backend

// Op tags the variant of a backend Inst (spec.md §4.F).
type Op int

const (
	OpLi Op = iota
	OpLla
	OpMv
	// OpAddImm is register+immediate add ("addi"): not named in spec.md
	// §4.F's instruction list directly, but required by its own prose for
	// §4.H step 6 ("addi sp, sp, -frame") and step 8's offset staging —
	// the selector never needs it (every arithmetic operand it produces is
	// already a register), so only the physicalizer emits this op.
	OpAddImm
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpSll
	OpSrl
	OpSra
	OpAnd
	OpOr
	OpXor
	OpSlt
	OpSltu
	OpSgtu
	OpSeqz
	OpSnez
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFeq
	OpFlt
	OpFle

	// OpFcvtWS/OpFcvtSW cross the GPR/FPR bank boundary (spec.md §4.F's
	// FpToSi/SiToFp): unlike every other op here, Out and In[0] carry
	// different Reg.Kind values, not the same one.
	OpFcvtWS
	OpFcvtSW

	OpLd
	OpSd
	OpLw
	OpSw
	OpLh
	OpSh
	OpLb
	OpSb
	OpFlw
	OpFsw
	OpFld
	OpFsd

	// Pseudo forms referencing a StackSlot directly; the physicalizer's
	// memory-lowering pass (spec.md §4.H step 7) rewrites these to the real
	// sp-relative forms above.
	OpLoad
	OpStore
	OpLocalAddr

	OpBeq
	OpBne
	OpBlt
	OpBge
	OpBltu
	OpBgeu

	OpJ
	OpCall
	OpRet
)

func (op Op) String() string {
	switch op {
	case OpLi:
		return "li"
	case OpLla:
		return "lla"
	case OpMv:
		return "mv"
	case OpAddImm:
		return "addi"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpRem:
		return "rem"
	case OpSll:
		return "sll"
	case OpSrl:
		return "srl"
	case OpSra:
		return "sra"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpSlt:
		return "slt"
	case OpSltu:
		return "sltu"
	case OpSgtu:
		return "sgtu"
	case OpSeqz:
		return "seqz"
	case OpSnez:
		return "snez"
	case OpFAdd:
		return "fadd.d"
	case OpFSub:
		return "fsub.d"
	case OpFMul:
		return "fmul.d"
	case OpFDiv:
		return "fdiv.d"
	case OpFeq:
		return "feq.d"
	case OpFlt:
		return "flt.d"
	case OpFle:
		return "fle.d"
	case OpFcvtWS:
		return "fcvt.w.s"
	case OpFcvtSW:
		return "fcvt.s.w"
	case OpLd:
		return "ld"
	case OpSd:
		return "sd"
	case OpLw:
		return "lw"
	case OpSw:
		return "sw"
	case OpLh:
		return "lh"
	case OpSh:
		return "sh"
	case OpLb:
		return "lb"
	case OpSb:
		return "sb"
	case OpFlw:
		return "flw"
	case OpFsw:
		return "fsw"
	case OpFld:
		return "fld"
	case OpFsd:
		return "fsd"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpLocalAddr:
		return "localaddr"
	case OpBeq:
		return "beq"
	case OpBne:
		return "bne"
	case OpBlt:
		return "blt"
	case OpBge:
		return "bge"
	case OpBltu:
		return "bltu"
	case OpBgeu:
		return "bgeu"
	case OpJ:
		return "j"
	case OpCall:
		return "call"
	case OpRet:
		return "ret"
	default:
		return "?"
	}
}

// HasDef reports whether this op's Inst carries a register result in Out.
// Branches, unconditional jumps, Ret, and the store forms never do; Call
// does only when its result is consumed (Out left zero otherwise).
func (op Op) HasDef() bool {
	switch op {
	case OpSd, OpSw, OpSh, OpSb, OpFsw, OpFsd, OpStore,
		OpBeq, OpBne, OpBlt, OpBge, OpBltu, OpBgeu, OpJ, OpRet:
		return false
	default:
		return true
	}
}

// IsBranch reports whether this op is a conditional branch (spec.md §4.G's
// "compare + conditional branch + unconditional branch" lowering).
func (op Op) IsBranch() bool {
	switch op {
	case OpBeq, OpBne, OpBlt, OpBge, OpBltu, OpBgeu:
		return true
	default:
		return false
	}
}

func (op Op) IsTerminator() bool {
	return op.IsBranch() || op == OpJ || op == OpRet
}

// Inst is one backend instruction. Only the fields relevant to Op are
// meaningful; see the constructors in builders.go for which apply to each.
type Inst struct {
	Op Op

	Out Reg   // register def, when Op.HasDef()
	In  []Reg // register uses, in operand order

	Imm *Imm // Li's literal; real load/store forms' byte offset
	Fmm *Fmm // literal-pool key for an Lla+Flw/Fld pair addressing a float constant

	Slot *StackSlot // pseudo Load/Store/LocalAddr's target, before physicalization

	Target *Label // Lla's symbol; branch/J's block label; Call's callee symbol

	Clobbers []string // Call: physical regs the callee may define, for caller-save insertion
}

// Defs returns the registers this instruction defines (spec.md §4.F: each
// inst "exposes uses(), defs()").
func (i *Inst) Defs() []Reg {
	if !i.Op.HasDef() || i.Out == (Reg{}) {
		return nil
	}
	return []Reg{i.Out}
}

// Uses returns the registers this instruction reads.
func (i *Inst) Uses() []Reg { return i.In }

// ReplaceUse rewrites every occurrence of old among this instruction's uses
// to new — one of the physicalizer's "replacement helpers".
func (i *Inst) ReplaceUse(old, new Reg) {
	for idx, r := range i.In {
		if r == old {
			i.In[idx] = new
		}
	}
}

// ReplaceDef rewrites this instruction's def register.
func (i *Inst) ReplaceDef(new Reg) {
	if i.Op.HasDef() {
		i.Out = new
	}
}
