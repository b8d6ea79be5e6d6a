// Package compile is the pipeline driver (spec.md §2): A→B→C→D→E, then
// E→G→F→H→I, wired end to end. It is the one package that imports
// internal/ast and turns a parsed translation unit into RV64GC assembly
// text, returning an *errors.CompileError on any user-visible failure.
package compile

import (
	"github.com/CNCSMonster/duskphantom/internal/ast"
	"github.com/CNCSMonster/duskphantom/internal/backend"
	"github.com/CNCSMonster/duskphantom/internal/errors"
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

func typeOf(t ast.TypeRef) ir.ValueType {
	switch t.Kind {
	case ast.TypeVoid:
		return ir.Void()
	case ast.TypeBool:
		return ir.Bool()
	case ast.TypeInt:
		return ir.Int()
	case ast.TypeFloat:
		return ir.Float()
	case ast.TypeChar:
		return ir.SignedChar()
	case ast.TypePointer:
		return ir.Pointer(typeOf(*t.Elem))
	case ast.TypeArray:
		return ir.Array(typeOf(*t.Elem), t.Len)
	default:
		return ir.Void()
	}
}

// local is one in-scope name: the alloca that holds it and its element
// type, so Ident/Assign/Index know what Load/Store/GEP to emit.
type local struct {
	addr *ir.Instruction
	typ  ir.ValueType
}

// loopCtx records the two blocks Break/Continue need: where Continue jumps
// (the loop's header, re-evaluating Cond) and where Break jumps (the
// block lexically after the loop).
type loopCtx struct {
	head, after *ir.BasicBlock
}

type funcCtx struct {
	b       *irbuilder.Builder
	fn      *ir.Function
	cur     *ir.BasicBlock
	locals  map[string]local
	globals map[string]*ir.GlobalVariable
	funcs   map[string]*ir.Function
	loops   []loopCtx
}

// buildModule lowers every declaration in mod into b's IR, in source
// order (globals first, matching spec.md §3's "Data flows A→B→C" — every
// global must exist before a function body can reference it).
func buildModule(mod *ast.Module, b *irbuilder.Builder) (map[string]*ir.GlobalVariable, map[string]*ir.Function, error) {
	globals := map[string]*ir.GlobalVariable{}
	for _, g := range mod.Globals {
		init := ir.ZeroConst(typeOf(g.Type))
		if g.Init != nil {
			c, ok := constEval(g.Init)
			if !ok {
				return nil, nil, errors.NewAt(errors.InputError, "compile",
					"global initializer for "+g.Name+" is not a compile-time constant", astSpan(g.Span))
			}
			init = c
		}
		globals[g.Name] = b.NewGlobal(g.Name, typeOf(g.Type), g.Const, init)
	}

	funcs := map[string]*ir.Function{}
	for _, fd := range mod.Funcs {
		paramTypes := make([]ir.ValueType, len(fd.ParamTypes))
		for i, pt := range fd.ParamTypes {
			paramTypes[i] = typeOf(pt)
		}
		f := b.NewFunction(fd.Name, typeOf(fd.RetType), fd.ParamNames, paramTypes)
		if fd.Body == nil {
			f.IsLib = true
		}
		funcs[fd.Name] = f
	}

	for _, fd := range mod.Funcs {
		if fd.Body == nil {
			continue
		}
		if err := lowerFuncBody(b, funcs[fd.Name], fd, globals, funcs); err != nil {
			return nil, nil, err
		}
	}
	return globals, funcs, nil
}

func lowerFuncBody(b *irbuilder.Builder, f *ir.Function, fd *ast.FuncDecl, globals map[string]*ir.GlobalVariable, funcs map[string]*ir.Function) error {
	entry := b.NewBlock(f, "entry")
	f.Entry = entry
	fc := &funcCtx{b: b, fn: f, cur: entry, locals: map[string]local{}, globals: globals, funcs: funcs}

	for i, p := range f.Params {
		addr := b.Alloca(p.Type, 1)
		b.InsertAtEnd(fc.cur, addr)
		b.InsertAtEnd(fc.cur, b.Store(ir.ParamOperand(p), ir.InstOperand(addr)))
		fc.locals[fd.ParamNames[i]] = local{addr: addr, typ: p.Type}
	}

	if err := fc.lowerStmts(fd.Body); err != nil {
		return err
	}
	if !fc.terminated() {
		if f.RetType.Kind == ir.KindVoid {
			b.InsertAtEnd(fc.cur, b.Ret(nil))
		} else {
			zero := ir.ConstOperand(ir.ZeroConst(f.RetType))
			b.InsertAtEnd(fc.cur, b.Ret(&zero))
		}
	}
	return nil
}

func (fc *funcCtx) terminated() bool {
	last := fc.cur.Last()
	return last != nil && (last.Op == ir.OpRet || last.Op == ir.OpBr)
}

func astSpan(s ast.Span) errors.Span {
	return errors.Span{File: s.File, Line: s.Line, Column: s.Column}
}
