package compile

import (
	"github.com/CNCSMonster/duskphantom/internal/ast"
	"github.com/CNCSMonster/duskphantom/internal/errors"
	"github.com/CNCSMonster/duskphantom/internal/ir"
)

func (fc *funcCtx) lowerStmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if fc.terminated() {
			return nil // dead code after return/break/continue; nothing more to lower
		}
		if err := fc.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (fc *funcCtx) lowerStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case ast.VarDecl:
		return fc.lowerVarDecl(n)
	case ast.Assign:
		return fc.lowerAssign(n)
	case ast.ExprStmt:
		_, err := fc.lowerExpr(n.X)
		return err
	case ast.If:
		return fc.lowerIf(n)
	case ast.While:
		return fc.lowerWhile(n)
	case ast.Return:
		return fc.lowerReturn(n)
	case ast.Break:
		return fc.lowerBreak(n)
	case ast.Continue:
		return fc.lowerContinue(n)
	case ast.Block:
		return fc.lowerStmts(n.Stmts)
	default:
		return errors.New(errors.InputError, "compile", "unsupported statement node")
	}
}

func (fc *funcCtx) lowerVarDecl(n ast.VarDecl) error {
	t := typeOf(n.Type)
	addr := fc.b.Alloca(t, 1)
	fc.b.InsertAtEnd(fc.cur, addr)
	fc.locals[n.Name] = local{addr: addr, typ: t}
	if n.Init == nil {
		return nil
	}
	if lit, ok := n.Init.(ast.ArrayLit); ok {
		return fc.storeArrayLit(addr, t, lit)
	}
	v, err := fc.lowerExpr(n.Init)
	if err != nil {
		return err
	}
	fc.b.InsertAtEnd(fc.cur, fc.b.Store(v, ir.InstOperand(addr)))
	return nil
}

// storeArrayLit lowers a brace-initializer element by element through a
// GEP per index; elements beyond lit.Elems get an explicit zero store
// (nested arrays recursively), so every element of the array is written.
func (fc *funcCtx) storeArrayLit(addr *ir.Instruction, t ir.ValueType, lit ast.ArrayLit) error {
	if t.Kind != ir.KindArray {
		return errors.NewAt(errors.TypeError, "compile", "brace initializer on non-array type", astSpan(lit.Span))
	}
	elemType := *t.Elem
	for i, el := range lit.Elems {
		gep := fc.b.GEP(ir.InstOperand(addr), t, []ir.Operand{ir.ConstOperand(ir.IntConst(int32(i)))}, ir.Pointer(elemType))
		fc.b.InsertAtEnd(fc.cur, gep)
		if nested, ok := el.(ast.ArrayLit); ok {
			if err := fc.storeArrayLit(gep, elemType, nested); err != nil {
				return err
			}
			continue
		}
		v, err := fc.lowerExpr(el)
		if err != nil {
			return err
		}
		fc.b.InsertAtEnd(fc.cur, fc.b.Store(v, ir.InstOperand(gep)))
	}
	for i := len(lit.Elems); i < t.Len; i++ {
		gep := fc.b.GEP(ir.InstOperand(addr), t, []ir.Operand{ir.ConstOperand(ir.IntConst(int32(i)))}, ir.Pointer(elemType))
		fc.b.InsertAtEnd(fc.cur, gep)
		if elemType.Kind == ir.KindArray {
			if err := fc.storeArrayLit(gep, elemType, ast.ArrayLit{}); err != nil {
				return err
			}
			continue
		}
		fc.b.InsertAtEnd(fc.cur, fc.b.Store(ir.ConstOperand(ir.ZeroConst(elemType)), ir.InstOperand(gep)))
	}
	return nil
}

func (fc *funcCtx) lowerAssign(n ast.Assign) error {
	v, err := fc.lowerExpr(n.Rhs)
	if err != nil {
		return err
	}
	addr, _, err := fc.lowerAddr(n.Lhs)
	if err != nil {
		return err
	}
	fc.b.InsertAtEnd(fc.cur, fc.b.Store(v, ir.InstOperand(addr)))
	return nil
}

func (fc *funcCtx) lowerIf(n ast.If) error {
	cond, err := fc.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	thenBlk := fc.b.NewBlock(fc.fn, "if.then")
	afterBlk := fc.b.NewBlock(fc.fn, "if.after")
	elseBlk := afterBlk
	if n.Else != nil {
		elseBlk = fc.b.NewBlock(fc.fn, "if.else")
	}

	fc.b.InsertAtEnd(fc.cur, fc.b.BrCond(cond))
	fc.cur.AddSucc(thenBlk)
	fc.cur.AddSucc(elseBlk)

	fc.cur = thenBlk
	if err := fc.lowerStmts(n.Then); err != nil {
		return err
	}
	if !fc.terminated() {
		fc.b.InsertAtEnd(fc.cur, fc.b.BrUncond())
		fc.cur.AddSucc(afterBlk)
	}

	if n.Else != nil {
		fc.cur = elseBlk
		if err := fc.lowerStmts(n.Else); err != nil {
			return err
		}
		if !fc.terminated() {
			fc.b.InsertAtEnd(fc.cur, fc.b.BrUncond())
			fc.cur.AddSucc(afterBlk)
		}
	}

	fc.cur = afterBlk
	return nil
}

func (fc *funcCtx) lowerWhile(n ast.While) error {
	headBlk := fc.b.NewBlock(fc.fn, "while.head")
	bodyBlk := fc.b.NewBlock(fc.fn, "while.body")
	afterBlk := fc.b.NewBlock(fc.fn, "while.after")

	fc.b.InsertAtEnd(fc.cur, fc.b.BrUncond())
	fc.cur.AddSucc(headBlk)

	fc.cur = headBlk
	cond, err := fc.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	fc.b.InsertAtEnd(fc.cur, fc.b.BrCond(cond))
	fc.cur.AddSucc(bodyBlk)
	fc.cur.AddSucc(afterBlk)

	fc.cur = bodyBlk
	fc.loops = append(fc.loops, loopCtx{head: headBlk, after: afterBlk})
	if err := fc.lowerStmts(n.Body); err != nil {
		fc.loops = fc.loops[:len(fc.loops)-1]
		return err
	}
	fc.loops = fc.loops[:len(fc.loops)-1]
	if !fc.terminated() {
		fc.b.InsertAtEnd(fc.cur, fc.b.BrUncond())
		fc.cur.AddSucc(headBlk)
	}

	fc.cur = afterBlk
	return nil
}

func (fc *funcCtx) lowerReturn(n ast.Return) error {
	if n.Value == nil {
		fc.b.InsertAtEnd(fc.cur, fc.b.Ret(nil))
		return nil
	}
	v, err := fc.lowerExpr(n.Value)
	if err != nil {
		return err
	}
	fc.b.InsertAtEnd(fc.cur, fc.b.Ret(&v))
	return nil
}

func (fc *funcCtx) lowerBreak(n ast.Break) error {
	if len(fc.loops) == 0 {
		return errors.NewAt(errors.InputError, "compile", "break outside a loop", astSpan(n.Span))
	}
	target := fc.loops[len(fc.loops)-1].after
	fc.b.InsertAtEnd(fc.cur, fc.b.BrUncond())
	fc.cur.AddSucc(target)
	return nil
}

func (fc *funcCtx) lowerContinue(n ast.Continue) error {
	if len(fc.loops) == 0 {
		return errors.NewAt(errors.InputError, "compile", "continue outside a loop", astSpan(n.Span))
	}
	target := fc.loops[len(fc.loops)-1].head
	fc.b.InsertAtEnd(fc.cur, fc.b.BrUncond())
	fc.cur.AddSucc(target)
	return nil
}
