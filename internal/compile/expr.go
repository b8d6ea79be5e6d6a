package compile

import (
	"github.com/CNCSMonster/duskphantom/internal/ast"
	"github.com/CNCSMonster/duskphantom/internal/errors"
	"github.com/CNCSMonster/duskphantom/internal/ir"
)

func arithOpcode(op ast.BinaryOp) (ir.Opcode, bool) {
	switch op {
	case ast.BinAdd:
		return ir.OpAdd, true
	case ast.BinSub:
		return ir.OpSub, true
	case ast.BinMul:
		return ir.OpMul, true
	case ast.BinDiv:
		return ir.OpDiv, true
	case ast.BinRem:
		return ir.OpRem, true
	case ast.BinAnd:
		return ir.OpAnd, true
	case ast.BinOr:
		return ir.OpOr, true
	case ast.BinXor:
		return ir.OpXor, true
	case ast.BinShl:
		return ir.OpShl, true
	case ast.BinShr:
		return ir.OpAShr, true
	default:
		return 0, false
	}
}

func floatArithOpcode(op ast.BinaryOp) (ir.Opcode, bool) {
	switch op {
	case ast.BinAdd:
		return ir.OpFAdd, true
	case ast.BinSub:
		return ir.OpFSub, true
	case ast.BinMul:
		return ir.OpFMul, true
	case ast.BinDiv:
		return ir.OpFDiv, true
	default:
		return 0, false
	}
}

func icmpOp(op ast.BinaryOp) (ir.ICmpOp, bool) {
	switch op {
	case ast.BinEq:
		return ir.ICmpEQ, true
	case ast.BinNe:
		return ir.ICmpNE, true
	case ast.BinLt:
		return ir.ICmpSLT, true
	case ast.BinLe:
		return ir.ICmpSLE, true
	case ast.BinGt:
		return ir.ICmpSGT, true
	case ast.BinGe:
		return ir.ICmpSGE, true
	default:
		return 0, false
	}
}

func fcmpOp(op ast.BinaryOp) (ir.FCmpOp, bool) {
	switch op {
	case ast.BinEq:
		return ir.FCmpOEQ, true
	case ast.BinNe:
		return ir.FCmpONE, true
	case ast.BinLt:
		return ir.FCmpOLT, true
	case ast.BinLe:
		return ir.FCmpOLE, true
	case ast.BinGt:
		return ir.FCmpOGT, true
	case ast.BinGe:
		return ir.FCmpOGE, true
	default:
		return 0, false
	}
}

// lowerExpr lowers e to a value-producing operand in the function's
// current block (fc.cur), emitting whatever instructions are needed.
func (fc *funcCtx) lowerExpr(e ast.Expr) (ir.Operand, error) {
	switch n := e.(type) {
	case ast.IntLit:
		return ir.ConstOperand(ir.IntConst(n.Value)), nil
	case ast.FloatLit:
		return ir.ConstOperand(ir.FloatConst(n.Value)), nil
	case ast.BoolLit:
		return ir.ConstOperand(ir.BoolConst(n.Value)), nil
	case ast.CharLit:
		return ir.ConstOperand(ir.CharConst(n.Value)), nil

	case ast.Ident:
		return fc.lowerLoad(n)

	case ast.Unary:
		return fc.lowerUnary(n)

	case ast.Binary:
		return fc.lowerBinary(n)

	case ast.Index:
		addr, elemType, err := fc.lowerAddr(n)
		if err != nil {
			return ir.Operand{}, err
		}
		ld := fc.b.Load(ir.InstOperand(addr), elemType)
		fc.b.InsertAtEnd(fc.cur, ld)
		return ir.InstOperand(ld), nil

	case ast.Call:
		return fc.lowerCall(n)

	case ast.Cast:
		return fc.lowerCast(n)

	default:
		return ir.Operand{}, errors.New(errors.InputError, "compile", "unsupported expression node")
	}
}

func (fc *funcCtx) lowerLoad(id ast.Ident) (ir.Operand, error) {
	if lv, ok := fc.locals[id.Name]; ok {
		ld := fc.b.Load(ir.InstOperand(lv.addr), lv.typ)
		fc.b.InsertAtEnd(fc.cur, ld)
		return ir.InstOperand(ld), nil
	}
	if g, ok := fc.globals[id.Name]; ok {
		ld := fc.b.Load(ir.GlobalOperand(g), g.Type)
		fc.b.InsertAtEnd(fc.cur, ld)
		return ir.InstOperand(ld), nil
	}
	return ir.Operand{}, errors.NewAt(errors.InputError, "compile", "undefined name "+id.Name, astSpan(id.Span))
}

// lowerAddr resolves an Index/Ident lvalue to a pointer instruction and the
// pointee's element type, for Assign and array-element Load.
func (fc *funcCtx) lowerAddr(e ast.Expr) (*ir.Instruction, ir.ValueType, error) {
	switch n := e.(type) {
	case ast.Ident:
		if lv, ok := fc.locals[n.Name]; ok {
			return lv.addr, lv.typ, nil
		}
		return nil, ir.ValueType{}, errors.NewAt(errors.InputError, "compile", "undefined name "+n.Name, astSpan(n.Span))
	case ast.Index:
		baseAddr, baseType, err := fc.lowerAddr(n.Base)
		if err != nil {
			return nil, ir.ValueType{}, err
		}
		if baseType.Kind != ir.KindArray {
			return nil, ir.ValueType{}, errors.NewAt(errors.TypeError, "compile", "index of non-array", astSpan(n.Span))
		}
		idx, err := fc.lowerExpr(n.Idx)
		if err != nil {
			return nil, ir.ValueType{}, err
		}
		elemType := *baseType.Elem
		gep := fc.b.GEP(ir.InstOperand(baseAddr), baseType, []ir.Operand{idx}, ir.Pointer(elemType))
		fc.b.InsertAtEnd(fc.cur, gep)
		return gep, elemType, nil
	default:
		return nil, ir.ValueType{}, errors.New(errors.InputError, "compile", "not an lvalue")
	}
}

func (fc *funcCtx) lowerUnary(n ast.Unary) (ir.Operand, error) {
	x, err := fc.lowerExpr(n.X)
	if err != nil {
		return ir.Operand{}, err
	}
	switch n.Op {
	case ast.UnaryNeg:
		var inst *ir.Instruction
		if x.Type().Kind == ir.KindFloat {
			inst = fc.b.FSub(ir.Float(), ir.ConstOperand(ir.FloatConst(0)), x)
		} else {
			inst = fc.b.Sub(ir.Int(), ir.ConstOperand(ir.IntConst(0)), x)
		}
		fc.b.InsertAtEnd(fc.cur, inst)
		return ir.InstOperand(inst), nil
	case ast.UnaryNot:
		inst := fc.b.ICmp(ir.ICmpEQ, x.Type(), x, ir.ConstOperand(ir.BoolConst(false)))
		fc.b.InsertAtEnd(fc.cur, inst)
		return ir.InstOperand(inst), nil
	default:
		return ir.Operand{}, errors.New(errors.InputError, "compile", "unsupported unary operator")
	}
}

func (fc *funcCtx) lowerBinary(n ast.Binary) (ir.Operand, error) {
	if n.Op == ast.BinLAnd || n.Op == ast.BinLOr {
		return fc.lowerShortCircuit(n)
	}
	l, err := fc.lowerExpr(n.L)
	if err != nil {
		return ir.Operand{}, err
	}
	r, err := fc.lowerExpr(n.R)
	if err != nil {
		return ir.Operand{}, err
	}
	isFloat := l.Type().Kind == ir.KindFloat || r.Type().Kind == ir.KindFloat

	if isFloat {
		if op, ok := floatArithOpcode(n.Op); ok {
			inst := fc.emitArith(op, ir.Float(), l, r)
			return ir.InstOperand(inst), nil
		}
		if op, ok := fcmpOp(n.Op); ok {
			inst := fc.b.FCmp(op, ir.Float(), l, r)
			fc.b.InsertAtEnd(fc.cur, inst)
			return ir.InstOperand(inst), nil
		}
		return ir.Operand{}, errors.NewAt(errors.UnsupportedError, "compile", "unsupported float operator", astSpan(n.Span))
	}

	if op, ok := arithOpcode(n.Op); ok {
		inst := fc.emitArith(op, l.Type(), l, r)
		return ir.InstOperand(inst), nil
	}
	if op, ok := icmpOp(n.Op); ok {
		inst := fc.b.ICmp(op, l.Type(), l, r)
		fc.b.InsertAtEnd(fc.cur, inst)
		return ir.InstOperand(inst), nil
	}
	return ir.Operand{}, errors.NewAt(errors.UnsupportedError, "compile", "unsupported binary operator", astSpan(n.Span))
}

func (fc *funcCtx) emitArith(op ir.Opcode, t ir.ValueType, l, r ir.Operand) *ir.Instruction {
	var inst *ir.Instruction
	switch op {
	case ir.OpAdd:
		inst = fc.b.Add(t, l, r)
	case ir.OpSub:
		inst = fc.b.Sub(t, l, r)
	case ir.OpMul:
		inst = fc.b.Mul(t, l, r)
	case ir.OpDiv:
		inst = fc.b.Div(t, l, r)
	case ir.OpRem:
		inst = fc.b.Rem(t, l, r)
	case ir.OpAnd:
		inst = fc.b.And(t, l, r)
	case ir.OpOr:
		inst = fc.b.Or(t, l, r)
	case ir.OpXor:
		inst = fc.b.Xor(t, l, r)
	case ir.OpShl:
		inst = fc.b.Shl(t, l, r)
	case ir.OpAShr:
		inst = fc.b.AShr(t, l, r)
	case ir.OpFAdd:
		inst = fc.b.FAdd(t, l, r)
	case ir.OpFSub:
		inst = fc.b.FSub(t, l, r)
	case ir.OpFMul:
		inst = fc.b.FMul(t, l, r)
	case ir.OpFDiv:
		inst = fc.b.FDiv(t, l, r)
	}
	fc.b.InsertAtEnd(fc.cur, inst)
	return inst
}

// lowerShortCircuit lowers && / || by branching, matching the source
// language's short-circuit semantics: the right operand's side effects
// never run unless the left operand left the outcome undecided. The
// result is a bool local, mem2reg-promoted like any other variable.
func (fc *funcCtx) lowerShortCircuit(n ast.Binary) (ir.Operand, error) {
	resultAddr := fc.b.Alloca(ir.Bool(), 1)
	fc.b.InsertAtEnd(fc.cur, resultAddr)

	l, err := fc.lowerExpr(n.L)
	if err != nil {
		return ir.Operand{}, err
	}
	rhsBlk := fc.b.NewBlock(fc.fn, "sc.rhs")
	doneBlk := fc.b.NewBlock(fc.fn, "sc.done")

	shortVal := ir.ConstOperand(ir.BoolConst(n.Op == ast.BinLOr))
	fc.b.InsertAtEnd(fc.cur, fc.b.Store(shortVal, ir.InstOperand(resultAddr)))

	cond := fc.b.BrCond(l)
	fc.b.InsertAtEnd(fc.cur, cond)
	if n.Op == ast.BinLAnd {
		fc.cur.AddSucc(rhsBlk)
		fc.cur.AddSucc(doneBlk)
	} else {
		fc.cur.AddSucc(doneBlk)
		fc.cur.AddSucc(rhsBlk)
	}

	fc.cur = rhsBlk
	r, err := fc.lowerExpr(n.R)
	if err != nil {
		return ir.Operand{}, err
	}
	fc.b.InsertAtEnd(fc.cur, fc.b.Store(r, ir.InstOperand(resultAddr)))
	fc.b.InsertAtEnd(fc.cur, fc.b.BrUncond())
	fc.cur.AddSucc(doneBlk)

	fc.cur = doneBlk
	ld := fc.b.Load(ir.InstOperand(resultAddr), ir.Bool())
	fc.b.InsertAtEnd(fc.cur, ld)
	return ir.InstOperand(ld), nil
}

func (fc *funcCtx) lowerCall(n ast.Call) (ir.Operand, error) {
	callee, ok := fc.funcs[n.Callee]
	if !ok {
		return ir.Operand{}, errors.NewAt(errors.InputError, "compile", "call to undefined function "+n.Callee, astSpan(n.Span))
	}
	args := make([]ir.Operand, len(n.Args))
	for i, a := range n.Args {
		v, err := fc.lowerExpr(a)
		if err != nil {
			return ir.Operand{}, err
		}
		args[i] = v
	}
	inst := fc.b.Call(callee, args)
	fc.b.InsertAtEnd(fc.cur, inst)
	return ir.InstOperand(inst), nil
}

func (fc *funcCtx) lowerCast(n ast.Cast) (ir.Operand, error) {
	x, err := fc.lowerExpr(n.X)
	if err != nil {
		return ir.Operand{}, err
	}
	dst := typeOf(n.Type)
	src := x.Type()
	var inst *ir.Instruction
	switch {
	case src.Kind == ir.KindFloat && dst.Kind != ir.KindFloat:
		inst = fc.b.FpToSi(dst, x)
	case src.Kind != ir.KindFloat && dst.Kind == ir.KindFloat:
		inst = fc.b.SiToFp(dst, x)
	case src.Size() < dst.Size():
		inst = fc.b.Sext(dst, x)
	case src.Size() > dst.Size():
		inst = fc.b.Trunc(dst, x)
	default:
		inst = fc.b.Bitcast(dst, x)
	}
	fc.b.InsertAtEnd(fc.cur, inst)
	return ir.InstOperand(inst), nil
}
