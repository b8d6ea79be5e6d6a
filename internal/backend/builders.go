package backend

// Constructors below mirror internal/irbuilder's style: one small function
// per instruction shape rather than callers hand-assembling Inst literals,
// so a later field addition (e.g. a debug-info slot) touches one place.

func Li(dst Reg, v int64) *Inst    { return &Inst{Op: OpLi, Out: dst, Imm: &Imm{V: v}} }
func Lla(dst Reg, sym *Label) *Inst { return &Inst{Op: OpLla, Out: dst, Target: sym} }
func Mv(dst, src Reg) *Inst        { return &Inst{Op: OpMv, Out: dst, In: []Reg{src}} }

// AddImm is "addi dst, src, imm" — the physicalizer's frame-pointer and
// stack-offset arithmetic (spec.md §4.H steps 6 and 8).
func AddImm(dst, src Reg, imm int64) *Inst {
	return &Inst{Op: OpAddImm, Out: dst, In: []Reg{src}, Imm: &Imm{V: imm}}
}

func binOp(op Op, dst, a, b Reg) *Inst { return &Inst{Op: op, Out: dst, In: []Reg{a, b}} }

func Add(dst, a, b Reg) *Inst  { return binOp(OpAdd, dst, a, b) }
func Sub(dst, a, b Reg) *Inst  { return binOp(OpSub, dst, a, b) }
func Mul(dst, a, b Reg) *Inst  { return binOp(OpMul, dst, a, b) }
func Div(dst, a, b Reg) *Inst  { return binOp(OpDiv, dst, a, b) }
func Rem(dst, a, b Reg) *Inst  { return binOp(OpRem, dst, a, b) }
func Sll(dst, a, b Reg) *Inst  { return binOp(OpSll, dst, a, b) }
func Srl(dst, a, b Reg) *Inst  { return binOp(OpSrl, dst, a, b) }
func Sra(dst, a, b Reg) *Inst  { return binOp(OpSra, dst, a, b) }
func And(dst, a, b Reg) *Inst  { return binOp(OpAnd, dst, a, b) }
func Or(dst, a, b Reg) *Inst   { return binOp(OpOr, dst, a, b) }
func Xor(dst, a, b Reg) *Inst  { return binOp(OpXor, dst, a, b) }
func Slt(dst, a, b Reg) *Inst  { return binOp(OpSlt, dst, a, b) }
func Sltu(dst, a, b Reg) *Inst { return binOp(OpSltu, dst, a, b) }
func Sgtu(dst, a, b Reg) *Inst { return binOp(OpSgtu, dst, a, b) }
func FAdd(dst, a, b Reg) *Inst { return binOp(OpFAdd, dst, a, b) }
func FSub(dst, a, b Reg) *Inst { return binOp(OpFSub, dst, a, b) }
func FMul(dst, a, b Reg) *Inst { return binOp(OpFMul, dst, a, b) }
func FDiv(dst, a, b Reg) *Inst { return binOp(OpFDiv, dst, a, b) }

// Feq/Flt/Fle produce an integer 0/1 result (dst is a usual register) from
// two float operands — RV64GC's FCmp-equivalent predicates.
func Feq(dst, a, b Reg) *Inst { return binOp(OpFeq, dst, a, b) }
func Flt(dst, a, b Reg) *Inst { return binOp(OpFlt, dst, a, b) }
func Fle(dst, a, b Reg) *Inst { return binOp(OpFle, dst, a, b) }

func Seqz(dst, a Reg) *Inst { return &Inst{Op: OpSeqz, Out: dst, In: []Reg{a}} }
func Snez(dst, a Reg) *Inst { return &Inst{Op: OpSnez, Out: dst, In: []Reg{a}} }

// FcvtWS converts a float register to a truncated-toward-zero signed int
// register ("fcvt.w.s", RV64GC's FpToSi). FcvtSW converts the other way
// ("fcvt.s.w", SiToFp). dst and src straddle the GPR/FPR bank split, unlike
// every other arithmetic builder above — Mv cannot stand in for either.
func FcvtWS(dst, src Reg) *Inst { return &Inst{Op: OpFcvtWS, Out: dst, In: []Reg{src}} }
func FcvtSW(dst, src Reg) *Inst { return &Inst{Op: OpFcvtSW, Out: dst, In: []Reg{src}} }

func memReg(op Op, reg, base Reg, off int64) *Inst {
	return &Inst{Op: op, Out: reg, In: []Reg{base}, Imm: &Imm{V: off}}
}
func memStore(op Op, val, base Reg, off int64) *Inst {
	return &Inst{Op: op, In: []Reg{val, base}, Imm: &Imm{V: off}}
}

func Ld(dst, base Reg, off int64) *Inst  { return memReg(OpLd, dst, base, off) }
func Lw(dst, base Reg, off int64) *Inst  { return memReg(OpLw, dst, base, off) }
func Lh(dst, base Reg, off int64) *Inst  { return memReg(OpLh, dst, base, off) }
func Lb(dst, base Reg, off int64) *Inst  { return memReg(OpLb, dst, base, off) }
func Flw(dst, base Reg, off int64) *Inst { return memReg(OpFlw, dst, base, off) }
func Fld(dst, base Reg, off int64) *Inst { return memReg(OpFld, dst, base, off) }

func Sd(val, base Reg, off int64) *Inst  { return memStore(OpSd, val, base, off) }
func Sw(val, base Reg, off int64) *Inst  { return memStore(OpSw, val, base, off) }
func Sh(val, base Reg, off int64) *Inst  { return memStore(OpSh, val, base, off) }
func Sb(val, base Reg, off int64) *Inst  { return memStore(OpSb, val, base, off) }
func Fsw(val, base Reg, off int64) *Inst { return memStore(OpFsw, val, base, off) }
func Fsd(val, base Reg, off int64) *Inst { return memStore(OpFsd, val, base, off) }

// Load, Store and LocalAddr are the pseudo, slot-addressed forms the
// selector emits directly; the physicalizer's memory-lowering pass
// (spec.md §4.H step 7) rewrites them to the real forms above once every
// slot has a final frame offset.
func Load(dst Reg, slot *StackSlot) *Inst         { return &Inst{Op: OpLoad, Out: dst, Slot: slot} }
func Store(val Reg, slot *StackSlot) *Inst        { return &Inst{Op: OpStore, In: []Reg{val}, Slot: slot} }
func LocalAddr(dst Reg, slot *StackSlot) *Inst     { return &Inst{Op: OpLocalAddr, Out: dst, Slot: slot} }

func branch(op Op, a, b Reg, target *Label) *Inst {
	return &Inst{Op: op, In: []Reg{a, b}, Target: target}
}

func Beq(a, b Reg, target *Label) *Inst  { return branch(OpBeq, a, b, target) }
func Bne(a, b Reg, target *Label) *Inst  { return branch(OpBne, a, b, target) }
func Blt(a, b Reg, target *Label) *Inst  { return branch(OpBlt, a, b, target) }
func Bge(a, b Reg, target *Label) *Inst  { return branch(OpBge, a, b, target) }
func Bltu(a, b Reg, target *Label) *Inst { return branch(OpBltu, a, b, target) }
func Bgeu(a, b Reg, target *Label) *Inst { return branch(OpBgeu, a, b, target) }

func J(target *Label) *Inst { return &Inst{Op: OpJ, Target: target} }

// Call emits a call to callee. Argument moves are not part of it: the
// selector arranges those as separate Mv/Load insts before the Call. out is
// the physical result register the call defines (a0 or fa0), or the zero
// Reg for a void call; the selector copies it into a virtual with a Mv.
func Call(callee *Label, out Reg, clobbers []string) *Inst {
	return &Inst{Op: OpCall, Out: out, Target: callee, Clobbers: clobbers}
}

func Ret() *Inst { return &Inst{Op: OpRet} }
