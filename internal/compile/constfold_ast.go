package compile

import "github.com/CNCSMonster/duskphantom/internal/ast"
import "github.com/CNCSMonster/duskphantom/internal/ir"

// constEval folds an AST expression to an ir.Constant without touching the
// IR graph at all — used only for global initializers, which spec.md §1
// excludes from this module's scope ("constant expression evaluation on
// AST nodes" is an external collaborator's job) except for the one case
// this compiler cannot avoid owning: turning a frontend-supplied constant
// initializer into the ir.Constant a GlobalVariable's Initializer field
// requires. Non-constant initializers are rejected by the caller.
func constEval(e ast.Expr) (ir.Constant, bool) {
	switch n := e.(type) {
	case ast.IntLit:
		return ir.IntConst(n.Value), true
	case ast.FloatLit:
		return ir.FloatConst(n.Value), true
	case ast.BoolLit:
		return ir.BoolConst(n.Value), true
	case ast.CharLit:
		return ir.CharConst(n.Value), true
	case ast.ArrayLit:
		elems := make([]ir.Constant, len(n.Elems))
		for i, el := range n.Elems {
			c, ok := constEval(el)
			if !ok {
				return ir.Constant{}, false
			}
			elems[i] = c
		}
		return ir.ArrayConst(elems), true
	case ast.Unary:
		x, ok := constEval(n.X)
		if !ok {
			return ir.Constant{}, false
		}
		switch n.Op {
		case ast.UnaryNeg:
			return x.Negate()
		case ast.UnaryNot:
			return x.Not()
		}
		return ir.Constant{}, false
	case ast.Binary:
		l, ok := constEval(n.L)
		if !ok {
			return ir.Constant{}, false
		}
		r, ok := constEval(n.R)
		if !ok {
			return ir.Constant{}, false
		}
		return constBinary(n.Op, l, r)
	default:
		return ir.Constant{}, false
	}
}

func constBinary(op ast.BinaryOp, l, r ir.Constant) (ir.Constant, bool) {
	if iop, ok := arithOpcode(op); ok {
		return ir.Arith(iop, l, r)
	}
	if cop, ok := icmpOp(op); ok {
		return ir.ICmpEval(cop, l, r)
	}
	return ir.Constant{}, false
}
