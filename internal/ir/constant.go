package ir

import (
	"fmt"
	"strconv"
)

// ConstKind tags the variant of a Constant.
type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstBool
	ConstSignedChar
	ConstArray
	ConstZero
)

// Constant is a compile-time known value: spec.md §3's Int/Float/Bool/
// SignedChar/Array/Zero variant. Zero(t) represents a zero-initializer of
// type t without materializing every element (used for mem2reg'd allocas
// and bss globals).
type Constant struct {
	Kind  ConstKind
	I     int32
	F     float32
	B     bool
	C     int8
	Elems []Constant
	Zero  ValueType
}

func IntConst(v int32) Constant        { return Constant{Kind: ConstInt, I: v} }
func FloatConst(v float32) Constant    { return Constant{Kind: ConstFloat, F: v} }
func BoolConst(v bool) Constant        { return Constant{Kind: ConstBool, B: v} }
func CharConst(v int8) Constant        { return Constant{Kind: ConstSignedChar, C: v} }
func ArrayConst(elems []Constant) Constant {
	return Constant{Kind: ConstArray, Elems: elems}
}
func ZeroConst(t ValueType) Constant { return Constant{Kind: ConstZero, Zero: t} }

// Type returns the ValueType a constant of this shape would carry.
func (c Constant) Type() ValueType {
	switch c.Kind {
	case ConstInt:
		return Int()
	case ConstFloat:
		return Float()
	case ConstBool:
		return Bool()
	case ConstSignedChar:
		return SignedChar()
	case ConstZero:
		return c.Zero
	case ConstArray:
		if len(c.Elems) == 0 {
			return Array(Void(), 0)
		}
		return Array(c.Elems[0].Type(), len(c.Elems))
	default:
		return Void()
	}
}

// IsZero reports whether this constant is definitely the zero value of its
// type, without requiring it to be the ConstZero variant specifically
// (e.g. IntConst(0) is also zero). Used by global lowering to pick .bss
// and by the Redundancy pass's identity rules (x+0, x*0, ...).
func (c Constant) IsZero() bool {
	switch c.Kind {
	case ConstInt:
		return c.I == 0
	case ConstFloat:
		return c.F == 0
	case ConstBool:
		return !c.B
	case ConstSignedChar:
		return c.C == 0
	case ConstZero:
		return true
	default:
		return false
	}
}

func (c Constant) asInt() (int32, bool) {
	switch c.Kind {
	case ConstInt:
		return c.I, true
	case ConstSignedChar:
		return int32(c.C), true
	case ConstBool:
		if c.B {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (c Constant) asFloat() (float32, bool) {
	if c.Kind == ConstFloat {
		return c.F, true
	}
	return 0, false
}

// Arith evaluates a binary integer/float opcode on two constants; ok is
// false if either operand isn't a scalar number of the matching kind.
// Division and modulo by a literal zero are intentionally left unevaluated
// (spec.md §4.E: "left intact, runtime trap").
func Arith(op Opcode, l, r Constant) (Constant, bool) {
	if li, lok := l.asInt(); lok {
		if ri, rok := r.asInt(); rok {
			switch op {
			case OpAdd:
				return IntConst(li + ri), true
			case OpSub:
				return IntConst(li - ri), true
			case OpMul:
				return IntConst(li * ri), true
			case OpDiv:
				if ri == 0 {
					return Constant{}, false
				}
				return IntConst(li / ri), true
			case OpRem:
				if ri == 0 {
					return Constant{}, false
				}
				return IntConst(li % ri), true
			case OpAnd:
				return IntConst(li & ri), true
			case OpOr:
				return IntConst(li | ri), true
			case OpXor:
				return IntConst(li ^ ri), true
			case OpShl:
				return IntConst(li << uint32(ri)), true
			case OpLShr:
				return IntConst(int32(uint32(li) >> uint32(ri))), true
			case OpAShr:
				return IntConst(li >> uint32(ri)), true
			}
		}
		return Constant{}, false
	}
	if lf, lok := l.asFloat(); lok {
		if rf, rok := r.asFloat(); rok {
			switch op {
			case OpFAdd:
				return FloatConst(lf + rf), true
			case OpFSub:
				return FloatConst(lf - rf), true
			case OpFMul:
				return FloatConst(lf * rf), true
			case OpFDiv:
				return FloatConst(lf / rf), true
			}
		}
	}
	return Constant{}, false
}

// ICmpEval evaluates an integer comparison on two constants.
func ICmpEval(op ICmpOp, l, r Constant) (Constant, bool) {
	li, lok := l.asInt()
	ri, rok := r.asInt()
	if !lok || !rok {
		return Constant{}, false
	}
	lu, ru := uint32(li), uint32(ri)
	var v bool
	switch op {
	case ICmpEQ:
		v = li == ri
	case ICmpNE:
		v = li != ri
	case ICmpSLT:
		v = li < ri
	case ICmpSLE:
		v = li <= ri
	case ICmpSGT:
		v = li > ri
	case ICmpSGE:
		v = li >= ri
	case ICmpULT:
		v = lu < ru
	case ICmpULE:
		v = lu <= ru
	case ICmpUGT:
		v = lu > ru
	case ICmpUGE:
		v = lu >= ru
	default:
		return Constant{}, false
	}
	return BoolConst(v), true
}

// FCmpEval evaluates the subset of IEEE-754 float comparisons that don't
// require NaN-awareness beyond what Go's float32 already gives us.
func FCmpEval(op FCmpOp, l, r Constant) (Constant, bool) {
	lf, lok := l.asFloat()
	rf, rok := r.asFloat()
	if !lok || !rok {
		return Constant{}, false
	}
	if lf != lf || rf != rf {
		return Constant{}, false // a NaN operand: ordered and unordered predicates disagree
	}
	switch op {
	case FCmpFalse:
		return BoolConst(false), true
	case FCmpTrue:
		return BoolConst(true), true
	case FCmpOEQ, FCmpUEQ:
		return BoolConst(lf == rf), true
	case FCmpONE, FCmpUNE:
		return BoolConst(lf != rf), true
	case FCmpOGT, FCmpUGT:
		return BoolConst(lf > rf), true
	case FCmpOGE, FCmpUGE:
		return BoolConst(lf >= rf), true
	case FCmpOLT, FCmpULT:
		return BoolConst(lf < rf), true
	case FCmpOLE, FCmpULE:
		return BoolConst(lf <= rf), true
	default:
		return Constant{}, false
	}
}

// Negate implements unary minus.
func (c Constant) Negate() (Constant, bool) {
	if i, ok := c.asInt(); ok {
		return IntConst(-i), true
	}
	if f, ok := c.asFloat(); ok {
		return FloatConst(-f), true
	}
	return Constant{}, false
}

// Not implements logical negation of an i1 constant.
func (c Constant) Not() (Constant, bool) {
	if c.Kind == ConstBool {
		return BoolConst(!c.B), true
	}
	return Constant{}, false
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(int64(c.I), 10)
	case ConstFloat:
		return strconv.FormatFloat(float64(c.F), 'g', -1, 32)
	case ConstBool:
		return strconv.FormatBool(c.B)
	case ConstSignedChar:
		return strconv.FormatInt(int64(c.C), 10)
	case ConstZero:
		return fmt.Sprintf("zeroinitializer(%s)", c.Zero)
	case ConstArray:
		s := "["
		for i, e := range c.Elems {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + "]"
	default:
		return "?"
	}
}
