package compile

import (
	"encoding/json"
	"fmt"

	"github.com/CNCSMonster/duskphantom/internal/ast"
)

// WireModule is the JSON-serializable shape of ast.Module. internal/ast's
// Expr/Stmt are Go interfaces (spec.md §6's frontend contract is a typed
// AST, not a wire format), so this package — the one place a serialized
// AST actually needs to cross a process boundary, e.g. from `duskc build`'s
// input file — defines a flat, tagged-union JSON encoding and converts it
// to the real ast types in one pass. Every external frontend is free to
// emit this shape directly instead of linking internal/ast at all.
type WireModule struct {
	Globals []WireGlobal `json:"globals"`
	Funcs   []WireFunc   `json:"funcs"`
}

type WireGlobal struct {
	Name  string    `json:"name"`
	Type  WireType  `json:"type"`
	Const bool      `json:"const"`
	Init  *WireNode `json:"init,omitempty"`
}

type WireFunc struct {
	Name       string     `json:"name"`
	RetType    WireType   `json:"ret_type"`
	ParamNames []string   `json:"param_names"`
	ParamTypes []WireType `json:"param_types"`
	Body       []WireNode `json:"body,omitempty"`
}

type WireType struct {
	Kind string    `json:"kind"` // void, bool, int, float, char, pointer, array
	Elem *WireType `json:"elem,omitempty"`
	Len  int       `json:"len,omitempty"`
}

// WireNode is both an expression and a statement node, tagged by Kind;
// unused fields for a given Kind are simply omitted.
type WireNode struct {
	Kind string `json:"kind"`

	// literals
	Int   int32   `json:"int,omitempty"`
	Float float32 `json:"float,omitempty"`
	Bool  bool    `json:"bool,omitempty"`
	Char  int8    `json:"char,omitempty"`

	Name string `json:"name,omitempty"` // Ident, Call.Callee, VarDecl/GlobalDecl.Name

	Op string `json:"op,omitempty"` // Unary/Binary operator name

	Elems []WireNode `json:"elems,omitempty"` // ArrayLit, Call.Args

	Type WireType `json:"type,omitempty"` // Cast.Type, VarDecl.Type

	Then []WireNode `json:"then,omitempty"`
	Else []WireNode `json:"else,omitempty"`
	Body []WireNode `json:"body,omitempty"`
	Init *WireNode  `json:"init,omitempty"`

	XNode    *WireNode `json:"x,omitempty"`
	LNode    *WireNode `json:"l,omitempty"`
	RNode    *WireNode `json:"r,omitempty"`
	BaseNode *WireNode `json:"base,omitempty"`
	IdxNode  *WireNode `json:"idx,omitempty"`
	CondNode *WireNode `json:"cond,omitempty"`
	RhsNode  *WireNode `json:"rhs,omitempty"`
	LhsNode  *WireNode `json:"lhs,omitempty"`
}

func wireTypeToAST(t WireType) ast.TypeRef {
	var out ast.TypeRef
	switch t.Kind {
	case "void":
		out.Kind = ast.TypeVoid
	case "bool":
		out.Kind = ast.TypeBool
	case "int":
		out.Kind = ast.TypeInt
	case "float":
		out.Kind = ast.TypeFloat
	case "char":
		out.Kind = ast.TypeChar
	case "pointer":
		out.Kind = ast.TypePointer
		e := wireTypeToAST(*t.Elem)
		out.Elem = &e
	case "array":
		out.Kind = ast.TypeArray
		e := wireTypeToAST(*t.Elem)
		out.Elem = &e
		out.Len = t.Len
	}
	return out
}

var unaryOps = map[string]ast.UnaryOp{"neg": ast.UnaryNeg, "not": ast.UnaryNot}

var binaryOps = map[string]ast.BinaryOp{
	"add": ast.BinAdd, "sub": ast.BinSub, "mul": ast.BinMul, "div": ast.BinDiv, "rem": ast.BinRem,
	"and": ast.BinAnd, "or": ast.BinOr, "xor": ast.BinXor, "shl": ast.BinShl, "shr": ast.BinShr,
	"eq": ast.BinEq, "ne": ast.BinNe, "lt": ast.BinLt, "le": ast.BinLe, "gt": ast.BinGt, "ge": ast.BinGe,
	"land": ast.BinLAnd, "lor": ast.BinLOr,
}

func wireExprToAST(n *WireNode) (ast.Expr, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case "int":
		return ast.IntLit{Value: n.Int}, nil
	case "float":
		return ast.FloatLit{Value: n.Float}, nil
	case "bool":
		return ast.BoolLit{Value: n.Bool}, nil
	case "char":
		return ast.CharLit{Value: n.Char}, nil
	case "array":
		elems := make([]ast.Expr, len(n.Elems))
		for i := range n.Elems {
			e, err := wireExprToAST(&n.Elems[i])
			if err != nil {
				return nil, err
			}
			elems[i] = e
		}
		return ast.ArrayLit{Elems: elems}, nil
	case "ident":
		return ast.Ident{Name: n.Name}, nil
	case "unary":
		x, err := wireExprToAST(n.XNode)
		if err != nil {
			return nil, err
		}
		op, ok := unaryOps[n.Op]
		if !ok {
			return nil, fmt.Errorf("unknown unary operator %q", n.Op)
		}
		return ast.Unary{Op: op, X: x}, nil
	case "binary":
		l, err := wireExprToAST(n.LNode)
		if err != nil {
			return nil, err
		}
		r, err := wireExprToAST(n.RNode)
		if err != nil {
			return nil, err
		}
		op, ok := binaryOps[n.Op]
		if !ok {
			return nil, fmt.Errorf("unknown binary operator %q", n.Op)
		}
		return ast.Binary{Op: op, L: l, R: r}, nil
	case "index":
		base, err := wireExprToAST(n.BaseNode)
		if err != nil {
			return nil, err
		}
		idx, err := wireExprToAST(n.IdxNode)
		if err != nil {
			return nil, err
		}
		return ast.Index{Base: base, Idx: idx}, nil
	case "call":
		args := make([]ast.Expr, len(n.Elems))
		for i := range n.Elems {
			a, err := wireExprToAST(&n.Elems[i])
			if err != nil {
				return nil, err
			}
			args[i] = a
		}
		return ast.Call{Callee: n.Name, Args: args}, nil
	case "cast":
		x, err := wireExprToAST(n.XNode)
		if err != nil {
			return nil, err
		}
		return ast.Cast{Type: wireTypeToAST(n.Type), X: x}, nil
	default:
		return nil, fmt.Errorf("unknown expression kind %q", n.Kind)
	}
}

func wireStmtToAST(n WireNode) (ast.Stmt, error) {
	switch n.Kind {
	case "vardecl":
		init, err := wireExprToAST(n.Init)
		if err != nil {
			return nil, err
		}
		return ast.VarDecl{Name: n.Name, Type: wireTypeToAST(n.Type), Init: init}, nil
	case "assign":
		lhs, err := wireExprToAST(n.LhsNode)
		if err != nil {
			return nil, err
		}
		rhs, err := wireExprToAST(n.RhsNode)
		if err != nil {
			return nil, err
		}
		return ast.Assign{Lhs: lhs, Rhs: rhs}, nil
	case "exprstmt":
		x, err := wireExprToAST(n.XNode)
		if err != nil {
			return nil, err
		}
		return ast.ExprStmt{X: x}, nil
	case "if":
		cond, err := wireExprToAST(n.CondNode)
		if err != nil {
			return nil, err
		}
		then, err := wireStmtsToAST(n.Then)
		if err != nil {
			return nil, err
		}
		var els []ast.Stmt
		if n.Else != nil {
			els, err = wireStmtsToAST(n.Else)
			if err != nil {
				return nil, err
			}
		}
		return ast.If{Cond: cond, Then: then, Else: els}, nil
	case "while":
		cond, err := wireExprToAST(n.CondNode)
		if err != nil {
			return nil, err
		}
		body, err := wireStmtsToAST(n.Body)
		if err != nil {
			return nil, err
		}
		return ast.While{Cond: cond, Body: body}, nil
	case "return":
		val, err := wireExprToAST(n.XNode)
		if err != nil {
			return nil, err
		}
		return ast.Return{Value: val}, nil
	case "break":
		return ast.Break{}, nil
	case "continue":
		return ast.Continue{}, nil
	case "block":
		stmts, err := wireStmtsToAST(n.Body)
		if err != nil {
			return nil, err
		}
		return ast.Block{Stmts: stmts}, nil
	default:
		return nil, fmt.Errorf("unknown statement kind %q", n.Kind)
	}
}

func wireStmtsToAST(ns []WireNode) ([]ast.Stmt, error) {
	out := make([]ast.Stmt, len(ns))
	for i, n := range ns {
		s, err := wireStmtToAST(n)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// ParseWireModule decodes a JSON-encoded WireModule and converts it to an
// *ast.Module ready for Module().
func ParseWireModule(data []byte) (*ast.Module, error) {
	var w WireModule
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode AST json: %w", err)
	}
	mod := &ast.Module{}
	for _, g := range w.Globals {
		init, err := wireExprToAST(g.Init)
		if err != nil {
			return nil, err
		}
		mod.Globals = append(mod.Globals, &ast.GlobalDecl{Name: g.Name, Type: wireTypeToAST(g.Type), Const: g.Const, Init: init})
	}
	for _, f := range w.Funcs {
		paramTypes := make([]ast.TypeRef, len(f.ParamTypes))
		for i, pt := range f.ParamTypes {
			paramTypes[i] = wireTypeToAST(pt)
		}
		var body []ast.Stmt
		if f.Body != nil {
			var err error
			body, err = wireStmtsToAST(f.Body)
			if err != nil {
				return nil, err
			}
		}
		mod.Funcs = append(mod.Funcs, &ast.FuncDecl{
			Name: f.Name, RetType: wireTypeToAST(f.RetType),
			ParamNames: f.ParamNames, ParamTypes: paramTypes, Body: body,
		})
	}
	return mod, nil
}
