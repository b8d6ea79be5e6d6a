// Package irbuilder is duskc's IR Builder (spec.md §4.C): the only
// supported way to construct and mutate the IR graph. Every exported
// constructor allocates through the module's arena, wires operands through
// the use-def bookkeeping on ir.Instruction, and leaves the new node
// detached until an Insert* helper places it in a block.
package irbuilder

import "github.com/CNCSMonster/duskphantom/internal/ir"

// Builder owns one in-progress module.
type Builder struct {
	Module  *ir.Module
	nextID  int
}

func New(name string) *Builder {
	return &Builder{Module: ir.NewModule(name)}
}

func (b *Builder) nextInstID() int {
	id := b.nextID
	b.nextID++
	return id
}

// --- module-level declarations ---

func (b *Builder) NewGlobal(name string, t ir.ValueType, isConst bool, init ir.Constant) *ir.GlobalVariable {
	g := b.Module.Arena.Globals.Alloc()
	g.Name, g.Type, g.Const, g.Initializer = name, t, isConst, init
	b.Module.AddGlobal(g)
	return g
}

// NewFunction declares a function with the given signature. Body blocks
// are added with NewBlock; a lib/extern function (no body) is created by
// never calling NewBlock and setting IsLib.
func (b *Builder) NewFunction(name string, ret ir.ValueType, paramNames []string, paramTypes []ir.ValueType) *ir.Function {
	f := b.Module.Arena.Funcs.Alloc()
	f.Name, f.RetType = name, ret
	for idx, t := range paramTypes {
		p := b.Module.Arena.Params.Alloc()
		p.Name, p.Type, p.Func = paramNames[idx], t, f
		f.Params = append(f.Params, p)
	}
	b.Module.AddFunc(f)
	return f
}

func (b *Builder) NewBlock(f *ir.Function, name string) *ir.BasicBlock {
	bb := b.Module.Arena.Blocks.Alloc()
	bb.Name = name
	f.AddBlock(bb)
	return bb
}

// --- instruction constructors ---

func (b *Builder) newInst(op ir.Opcode, typ ir.ValueType, payload ir.Payload, operands ...ir.Operand) *ir.Instruction {
	inst := b.Module.Arena.Insts.Alloc()
	ops := make([]ir.Operand, len(operands))
	copy(ops, operands)
	inst.Init(b.nextInstID(), op, typ, payload, ops)
	return inst
}

func (b *Builder) arith(op ir.Opcode, typ ir.ValueType, l, r ir.Operand) *ir.Instruction {
	return b.newInst(op, typ, simplePayloadV, l, r)
}

var simplePayloadV = ir.SimplePayload()

func (b *Builder) Add(t ir.ValueType, l, r ir.Operand) *ir.Instruction  { return b.arith(ir.OpAdd, t, l, r) }
func (b *Builder) Sub(t ir.ValueType, l, r ir.Operand) *ir.Instruction  { return b.arith(ir.OpSub, t, l, r) }
func (b *Builder) Mul(t ir.ValueType, l, r ir.Operand) *ir.Instruction  { return b.arith(ir.OpMul, t, l, r) }
func (b *Builder) Div(t ir.ValueType, l, r ir.Operand) *ir.Instruction  { return b.arith(ir.OpDiv, t, l, r) }
func (b *Builder) Rem(t ir.ValueType, l, r ir.Operand) *ir.Instruction  { return b.arith(ir.OpRem, t, l, r) }
func (b *Builder) FAdd(t ir.ValueType, l, r ir.Operand) *ir.Instruction { return b.arith(ir.OpFAdd, t, l, r) }
func (b *Builder) FSub(t ir.ValueType, l, r ir.Operand) *ir.Instruction { return b.arith(ir.OpFSub, t, l, r) }
func (b *Builder) FMul(t ir.ValueType, l, r ir.Operand) *ir.Instruction { return b.arith(ir.OpFMul, t, l, r) }
func (b *Builder) FDiv(t ir.ValueType, l, r ir.Operand) *ir.Instruction { return b.arith(ir.OpFDiv, t, l, r) }
func (b *Builder) And(t ir.ValueType, l, r ir.Operand) *ir.Instruction  { return b.arith(ir.OpAnd, t, l, r) }
func (b *Builder) Or(t ir.ValueType, l, r ir.Operand) *ir.Instruction   { return b.arith(ir.OpOr, t, l, r) }
func (b *Builder) Xor(t ir.ValueType, l, r ir.Operand) *ir.Instruction  { return b.arith(ir.OpXor, t, l, r) }
func (b *Builder) Shl(t ir.ValueType, l, r ir.Operand) *ir.Instruction  { return b.arith(ir.OpShl, t, l, r) }
func (b *Builder) LShr(t ir.ValueType, l, r ir.Operand) *ir.Instruction { return b.arith(ir.OpLShr, t, l, r) }
func (b *Builder) AShr(t ir.ValueType, l, r ir.Operand) *ir.Instruction { return b.arith(ir.OpAShr, t, l, r) }

func (b *Builder) Alloca(elemType ir.ValueType, count int) *ir.Instruction {
	return b.newInst(ir.OpAlloca, ir.Pointer(elemType), &ir.AllocaPayload{ElemType: elemType, Count: count})
}

func (b *Builder) Load(ptr ir.Operand, resultType ir.ValueType) *ir.Instruction {
	return b.newInst(ir.OpLoad, resultType, simplePayloadV, ptr)
}

func (b *Builder) Store(val, ptr ir.Operand) *ir.Instruction {
	return b.newInst(ir.OpStore, ir.Void(), simplePayloadV, val, ptr)
}

// GEP computes base + indices into pointeeType's layout. resultType is the
// pointer-to-element type of the final indexed position.
func (b *Builder) GEP(ptr ir.Operand, pointeeType ir.ValueType, indices []ir.Operand, resultType ir.ValueType) *ir.Instruction {
	ops := append([]ir.Operand{ptr}, indices...)
	return b.newInst(ir.OpGetElementPtr, resultType, &ir.GEPPayload{PointeeType: pointeeType}, ops...)
}

func (b *Builder) ICmp(op ir.ICmpOp, compType ir.ValueType, l, r ir.Operand) *ir.Instruction {
	return b.newInst(ir.OpICmp, ir.Bool(), &ir.ICmpPayload{Pred: op, CompType: compType}, l, r)
}

func (b *Builder) FCmp(op ir.FCmpOp, compType ir.ValueType, l, r ir.Operand) *ir.Instruction {
	return b.newInst(ir.OpFCmp, ir.Bool(), &ir.FCmpPayload{Pred: op, CompType: compType}, l, r)
}

// BrCond builds a conditional branch on cond; BrUncond builds the
// operand-less unconditional form. Successors are recorded separately on
// the parent block with AddSucc (true edge first).
func (b *Builder) BrCond(cond ir.Operand) *ir.Instruction {
	return b.newInst(ir.OpBr, ir.Void(), simplePayloadV, cond)
}

func (b *Builder) BrUncond() *ir.Instruction {
	return b.newInst(ir.OpBr, ir.Void(), simplePayloadV)
}

func (b *Builder) Ret(val *ir.Operand) *ir.Instruction {
	if val == nil {
		return b.newInst(ir.OpRet, ir.Void(), simplePayloadV)
	}
	return b.newInst(ir.OpRet, val.Type(), simplePayloadV, *val)
}

// Phi creates a phi with the given incoming (value, predecessor) pairs;
// callers must ensure the predecessor set matches the CFG exactly
// (invariant 5).
func (b *Builder) Phi(t ir.ValueType, incoming []ir.PhiEdge) *ir.Instruction {
	ops := make([]ir.Operand, len(incoming))
	for i, e := range incoming {
		ops[i] = e.Value
	}
	payload := &ir.PhiPayload{Incoming: append([]ir.PhiEdge(nil), incoming...)}
	return b.newInst(ir.OpPhi, t, payload, ops...)
}

// AddPhiIncoming appends one more incoming edge to an existing, still
// under-construction Phi (used while sealing blocks during mem2reg).
func (b *Builder) AddPhiIncoming(phi *ir.Instruction, val ir.Operand, pred *ir.BasicBlock) {
	phi.Payload.(*ir.PhiPayload).Incoming = append(phi.Payload.(*ir.PhiPayload).Incoming, ir.PhiEdge{Value: val, Pred: pred})
	phi.AddOperand(val)
}

// RemovePhiIncoming drops phi's edge from pred, a CFG transform's
// counterpart to AddPhiIncoming (e.g. loop-unswitching dropping the
// now-unreachable copy's join edge once the guard test is specialized
// away). A no-op if pred has no incoming edge on phi.
func (b *Builder) RemovePhiIncoming(phi *ir.Instruction, pred *ir.BasicBlock) {
	pp := phi.Payload.(*ir.PhiPayload)
	for k, e := range pp.Incoming {
		if e.Pred == pred {
			pp.Incoming = append(pp.Incoming[:k], pp.Incoming[k+1:]...)
			phi.RemoveOperandAt(k)
			return
		}
	}
}

func (b *Builder) Call(callee *ir.Function, args []ir.Operand) *ir.Instruction {
	return b.newInst(ir.OpCall, callee.RetType, &ir.CallPayload{Callee: callee}, args...)
}

func (b *Builder) cast(op ir.Opcode, dst ir.ValueType, src ir.Operand) *ir.Instruction {
	return b.newInst(op, dst, &ir.CastPayload{SrcType: src.Type()}, src)
}

func (b *Builder) Sext(dst ir.ValueType, src ir.Operand) *ir.Instruction   { return b.cast(ir.OpSext, dst, src) }
func (b *Builder) Zext(dst ir.ValueType, src ir.Operand) *ir.Instruction   { return b.cast(ir.OpZext, dst, src) }
func (b *Builder) Trunc(dst ir.ValueType, src ir.Operand) *ir.Instruction  { return b.cast(ir.OpTrunc, dst, src) }
func (b *Builder) FpToSi(dst ir.ValueType, src ir.Operand) *ir.Instruction { return b.cast(ir.OpFpToSi, dst, src) }
func (b *Builder) SiToFp(dst ir.ValueType, src ir.Operand) *ir.Instruction { return b.cast(ir.OpSiToFp, dst, src) }
func (b *Builder) Bitcast(dst ir.ValueType, src ir.Operand) *ir.Instruction {
	return b.cast(ir.OpBitcast, dst, src)
}

// --- insertion, removal, rewrite ---

func (b *Builder) InsertAtEnd(bb *ir.BasicBlock, inst *ir.Instruction) {
	if inst.Op == ir.OpPhi {
		bb.PushPhi(inst)
		return
	}
	bb.PushBack(inst)
}

func (b *Builder) InsertBefore(cursor, inst *ir.Instruction) {
	cursor.Parent.InsertBefore(cursor, inst)
}

func (b *Builder) InsertAfter(cursor, inst *ir.Instruction) {
	cursor.Parent.InsertAfter(cursor, inst)
}

// Remove drops every operand->user edge inst holds, then unlinks it from
// its parent block. It does not check for remaining users — callers that
// need that guarantee should go through ReplaceSelf or the DCE pass.
func (b *Builder) Remove(inst *ir.Instruction) {
	for k := range inst.Operands() {
		inst.SetOperand(k, ir.Operand{}) // drop each use-def edge; zero Operand carries no user registration
	}
	if inst.Parent != nil {
		inst.Parent.Unlink(inst)
	}
}

// ReplaceSelf is the single sanctioned rewrite primitive (spec.md §4.C):
// it rewrites every user's operand slot that referenced inst to newVal,
// then removes inst. Most optimization passes reduce to one call of this.
func (b *Builder) ReplaceSelf(inst *ir.Instruction, newVal ir.Operand) {
	users := append([]*ir.Instruction(nil), inst.Users()...)
	for _, user := range users {
		for k, op := range user.Operands() {
			if op.Kind == ir.OperandInstruction && op.Inst == inst {
				user.SetOperand(k, newVal)
			}
		}
	}
	b.Remove(inst)
}

// Detach unlinks inst from its block without touching operand edges,
// leaving it reusable (e.g. for a pass that moves an instruction to
// another block rather than deleting it).
func (b *Builder) Detach(inst *ir.Instruction) {
	if inst.Parent != nil {
		inst.Parent.Unlink(inst)
	}
}

// Clone deep-copies inst into a fresh, detached instruction sharing
// operands with the original (callers doing cross-function cloning, e.g.
// inlining, must remap operands afterward via SetOperand).
func (b *Builder) Clone(inst *ir.Instruction) *ir.Instruction {
	c := inst.Clone()
	ops := make([]ir.Operand, inst.NumOperands())
	copy(ops, inst.Operands())
	c.Init(b.nextInstID(), inst.Op, inst.Type, c.Payload, ops)
	return c
}

// CloneBare returns a detached copy of inst with no id or operands wired
// yet. Cloning a whole function body (inlining) needs every instruction's
// clone to exist before any operand can be remapped to point at the right
// clone instead of the original, so that step is split from FinishClone.
func (b *Builder) CloneBare(inst *ir.Instruction) *ir.Instruction {
	return inst.Clone()
}

// FinishClone wires a bare clone's remapped operands through the use-def
// manager, the second half of the CloneBare split.
func (b *Builder) FinishClone(c *ir.Instruction, op ir.Opcode, typ ir.ValueType, payload ir.Payload, operands []ir.Operand) {
	c.Init(b.nextInstID(), op, typ, payload, operands)
}
