package ir

import "fmt"

// Kind tags the variant of a ValueType.
type Kind int

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindSignedChar
	KindPointer
	KindArray
)

// ValueType is a tagged variant over duskc's small scalar/pointer/array type
// system. Arrays nest to express multidimensional layout: Array(Int,5)
// inside Array(_,6) is a 6x5 row-major layout, matching spec.md §3.
type ValueType struct {
	Kind Kind
	Elem *ValueType // Pointer, Array
	Len  int        // Array
}

func Void() ValueType       { return ValueType{Kind: KindVoid} }
func Bool() ValueType        { return ValueType{Kind: KindBool} }
func Int() ValueType         { return ValueType{Kind: KindInt} }
func Float() ValueType       { return ValueType{Kind: KindFloat} }
func SignedChar() ValueType  { return ValueType{Kind: KindSignedChar} }

func Pointer(elem ValueType) ValueType {
	e := elem
	return ValueType{Kind: KindPointer, Elem: &e}
}

func Array(elem ValueType, n int) ValueType {
	e := elem
	return ValueType{Kind: KindArray, Elem: &e, Len: n}
}

// Equal reports structural (not pointer) equality.
func (t ValueType) Equal(o ValueType) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindPointer:
		return t.Elem.Equal(*o.Elem)
	case KindArray:
		return t.Len == o.Len && t.Elem.Equal(*o.Elem)
	default:
		return true
	}
}

func (t ValueType) IsScalar() bool {
	switch t.Kind {
	case KindBool, KindInt, KindFloat, KindSignedChar, KindPointer:
		return true
	default:
		return false
	}
}

// Size returns the in-memory size, in bytes, of a value of this type.
// Used by GEP stride computation and global data emission.
func (t ValueType) Size() int {
	switch t.Kind {
	case KindVoid:
		return 0
	case KindBool, KindSignedChar:
		return 1
	case KindInt, KindFloat:
		return 4
	case KindPointer:
		return 8
	case KindArray:
		return t.Len * t.Elem.Size()
	default:
		return 0
	}
}

// Capacities returns the per-dimension element counts of a (possibly
// nested) array type, outermost first. Used by the selector to compute GEP
// strides (spec.md §4.G).
func (t ValueType) Capacities() []int {
	var caps []int
	cur := t
	for cur.Kind == KindArray {
		caps = append(caps, cur.Len)
		cur = *cur.Elem
	}
	return caps
}

// ElemAt returns the innermost scalar element type of a (possibly nested)
// array type, or t itself if t is not an array.
func (t ValueType) ElemAt() ValueType {
	cur := t
	for cur.Kind == KindArray {
		cur = *cur.Elem
	}
	return cur
}

func (t ValueType) String() string {
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindBool:
		return "i1"
	case KindInt:
		return "i32"
	case KindFloat:
		return "f32"
	case KindSignedChar:
		return "i8"
	case KindPointer:
		return fmt.Sprintf("%s*", t.Elem.String())
	case KindArray:
		return fmt.Sprintf("[%d x %s]", t.Len, t.Elem.String())
	default:
		return "?"
	}
}
