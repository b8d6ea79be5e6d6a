// Package ast is the external frontend contract spec.md §1/§6 describes:
// "the lexer/parser that produces the surface AST... are external
// collaborators" and "deliberately out of scope." This package carries no
// parsing logic at all — only the plain data shapes a frontend is expected
// to hand the compiler: "every declaration carries a name; function types
// carry return type and parameter list; expressions carry source-language
// types for numeric constants" (spec.md §6). internal/compile consumes
// values of these types; nothing in this module constructs them from
// source text.
package ast

// Span locates a node in the original source, mirrored into
// internal/errors.Span when a diagnostic needs to point at it.
type Span struct {
	File   string
	Line   int
	Column int
}

// TypeRef names a surface type: a scalar keyword, or a Pointer/Array
// wrapping another TypeRef, matching spec.md §3's ValueType variants
// one-for-one so internal/compile's lowering is a direct structural map.
type TypeRef struct {
	Kind  TypeKind
	Elem  *TypeRef // Pointer, Array
	Len   int      // Array
	Span  Span
}

type TypeKind int

const (
	TypeVoid TypeKind = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeChar
	TypePointer
	TypeArray
)

// Module is one translation unit: its globals and functions in source
// order.
type Module struct {
	Globals []*GlobalDecl
	Funcs   []*FuncDecl
}

// GlobalDecl is a module-level variable declaration.
type GlobalDecl struct {
	Name string
	Type TypeRef
	// Const marks a read-only global (placed in .rodata by the backend).
	Const bool
	// Init is nil for a tentative (zero-initialized) definition.
	Init Expr
	Span Span
}

// FuncDecl is a function declaration; Body is nil for an extern/library
// declaration (no definition in this translation unit).
type FuncDecl struct {
	Name       string
	RetType    TypeRef
	ParamNames []string
	ParamTypes []TypeRef
	Body       []Stmt
	Span       Span
}

// Expr is any surface expression node. Each concrete type below implements
// it as a marker; internal/compile type-switches over the concrete type.
type Expr interface{ exprNode() }

// Stmt is any surface statement node.
type Stmt interface{ stmtNode() }

// IntLit, FloatLit, BoolLit, CharLit carry the literal's source-language
// type alongside its value, per spec.md §6's "expressions carry
// source-language types for numeric constants" — the frontend, not this
// compiler, resolves a bare numeric token to one of these.
type IntLit struct {
	Value int32
	Span  Span
}

type FloatLit struct {
	Value float32
	Span  Span
}

type BoolLit struct {
	Value bool
	Span  Span
}

type CharLit struct {
	Value int8
	Span  Span
}

// ArrayLit is a brace-initializer list; elements may themselves be
// ArrayLit for nested arrays.
type ArrayLit struct {
	Elems []Expr
	Span  Span
}

// Ident references a local variable, parameter, or global by name; the
// compile-time symbol table (not this package) resolves which.
type Ident struct {
	Name string
	Span Span
}

// Unary is a prefix operator: Neg, Not.
type Unary struct {
	Op   UnaryOp
	X    Expr
	Span Span
}

type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

// Binary is an infix operator: arithmetic, comparison, or logical.
type Binary struct {
	Op   BinaryOp
	L, R Expr
	Span Span
}

type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinAnd
	BinOr
	BinXor
	BinShl
	BinShr
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinLAnd
	BinLOr
)

// Index is array-element access: Base[Idx].
type Index struct {
	Base Expr
	Idx  Expr
	Span Span
}

// Call is a function call by callee name.
type Call struct {
	Callee string
	Args   []Expr
	Span   Span
}

// Cast is an explicit source-level conversion to Type.
type Cast struct {
	Type TypeRef
	X    Expr
	Span Span
}

func (IntLit) exprNode()   {}
func (FloatLit) exprNode() {}
func (BoolLit) exprNode()  {}
func (CharLit) exprNode()  {}
func (ArrayLit) exprNode() {}
func (Ident) exprNode()    {}
func (Unary) exprNode()    {}
func (Binary) exprNode()   {}
func (Index) exprNode()    {}
func (Call) exprNode()     {}
func (Cast) exprNode()     {}

// VarDecl declares a local with an optional initializer.
type VarDecl struct {
	Name string
	Type TypeRef
	Init Expr // nil if uninitialized
	Span Span
}

// Assign is `Lhs = Rhs` where Lhs is an Ident or Index.
type Assign struct {
	Lhs  Expr
	Rhs  Expr
	Span Span
}

// ExprStmt is an expression evaluated for its side effect (a bare Call).
type ExprStmt struct {
	X    Expr
	Span Span
}

// If is `if (Cond) Then else Else`; Else is nil when absent.
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
	Span Span
}

// While is a pretest loop.
type While struct {
	Cond Expr
	Body []Stmt
	Span Span
}

// Return is `return Value;`; Value is nil for a void return.
type Return struct {
	Value Expr
	Span  Span
}

// Break and Continue target the nearest enclosing While.
type Break struct{ Span Span }
type Continue struct{ Span Span }

// Block is a nested `{ ... }` statement group.
type Block struct {
	Stmts []Stmt
	Span  Span
}

func (VarDecl) stmtNode()  {}
func (Assign) stmtNode()   {}
func (ExprStmt) stmtNode() {}
func (If) stmtNode()       {}
func (While) stmtNode()    {}
func (Return) stmtNode()   {}
func (Break) stmtNode()    {}
func (Continue) stmtNode() {}
func (Block) stmtNode()    {}
