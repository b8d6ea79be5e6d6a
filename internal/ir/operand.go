package ir

// OperandKind tags which of the four Operand variants (spec.md §3) is held.
type OperandKind int

const (
	OperandConstant OperandKind = iota
	OperandGlobal
	OperandParameter
	OperandInstruction
)

// Operand is a cheap, copyable reference to a value used by an
// Instruction: a Constant, or a handle to a GlobalVariable, Parameter, or
// another Instruction.
type Operand struct {
	Kind  OperandKind
	Const Constant
	Glob  *GlobalVariable
	Param *Parameter
	Inst  *Instruction
}

func ConstOperand(c Constant) Operand         { return Operand{Kind: OperandConstant, Const: c} }
func GlobalOperand(g *GlobalVariable) Operand { return Operand{Kind: OperandGlobal, Glob: g} }
func ParamOperand(p *Parameter) Operand       { return Operand{Kind: OperandParameter, Param: p} }
func InstOperand(i *Instruction) Operand      { return Operand{Kind: OperandInstruction, Inst: i} }

// Type returns the ValueType this operand's value carries.
func (o Operand) Type() ValueType {
	switch o.Kind {
	case OperandConstant:
		return o.Const.Type()
	case OperandGlobal:
		return Pointer(o.Glob.Type)
	case OperandParameter:
		return o.Param.Type
	case OperandInstruction:
		return o.Inst.Type
	default:
		return Void()
	}
}

// Same reports whether two operands denote the identical value (same
// constant shape, or the same Global/Parameter/Instruction identity).
func (o Operand) Same(other Operand) bool {
	if o.Kind != other.Kind {
		return false
	}
	switch o.Kind {
	case OperandConstant:
		return sameConst(o.Const, other.Const)
	case OperandGlobal:
		return o.Glob == other.Glob
	case OperandParameter:
		return o.Param == other.Param
	case OperandInstruction:
		return o.Inst == other.Inst
	default:
		return false
	}
}

func sameConst(a, b Constant) bool {
	if a.Kind != b.Kind || len(a.Elems) != len(b.Elems) {
		return false
	}
	for i := range a.Elems {
		if !sameConst(a.Elems[i], b.Elems[i]) {
			return false
		}
	}
	return a.I == b.I && a.F == b.F && a.B == b.B && a.C == b.C && a.Zero.Equal(b.Zero)
}

// addUser / removeUser maintain the reverse use-def edge on whichever kind
// of value-producing entity this operand denotes. Only the use-def manager
// in irbuilder calls these, preserving invariant 2 (spec.md §3).
func (o Operand) addUser(user *Instruction) {
	switch o.Kind {
	case OperandGlobal:
		o.Glob.users = append(o.Glob.users, user)
	case OperandParameter:
		o.Param.users = append(o.Param.users, user)
	case OperandInstruction:
		o.Inst.users = append(o.Inst.users, user)
	}
}

func (o Operand) removeUser(user *Instruction) {
	switch o.Kind {
	case OperandGlobal:
		o.Glob.users = removeOne(o.Glob.users, user)
	case OperandParameter:
		o.Param.users = removeOne(o.Param.users, user)
	case OperandInstruction:
		o.Inst.users = removeOne(o.Inst.users, user)
	}
}

func removeOne(list []*Instruction, target *Instruction) []*Instruction {
	for i, u := range list {
		if u == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// GlobalVariable is a module-level storage location with a constant
// initializer (spec.md §3).
type GlobalVariable struct {
	Name        string
	Type        ValueType
	Const       bool
	Initializer Constant
	users       []*Instruction
}

func (g *GlobalVariable) Users() []*Instruction { return g.users }

// Parameter is one formal argument of a Function.
type Parameter struct {
	Name  string
	Type  ValueType
	Func  *Function
	users []*Instruction
}

func (p *Parameter) Users() []*Instruction { return p.users }
