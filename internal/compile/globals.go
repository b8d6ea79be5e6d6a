package compile

import (
	"encoding/binary"
	"math"

	"github.com/CNCSMonster/duskphantom/internal/backend"
	"github.com/CNCSMonster/duskphantom/internal/ir"
)

// lowerGlobal turns one ir.GlobalVariable into the backend.GlobalData
// internal/emit serializes (spec.md §4.I). A Zero-kind initializer (the
// common case: mem2reg never touches globals, but an uninitialized
// declaration still folds to Zero at buildModule time) goes straight to
// AllZero/.bss; anything else is flattened to an explicit byte layout.
func lowerGlobal(g *ir.GlobalVariable) *backend.GlobalData {
	size := g.Type.Size()
	if g.Initializer.IsZero() {
		return &backend.GlobalData{Name: g.Name, Size: size, AllZero: true, ReadOnly: g.Const}
	}
	var chunks []backend.InitChunk
	flattenConstant(g.Initializer, g.Type, 0, &chunks)
	return &backend.GlobalData{Name: g.Name, Size: size, Bytes: chunks, ReadOnly: g.Const}
}

// flattenConstant appends one InitChunk per scalar leaf of c (a scalar
// whose value is 0 included; only ConstZero leaves are skipped) at its
// byte offset within the parent global, so internal/emit only ever
// has to interleave `.zero` gaps around explicit spans (spec.md §4.I/§8).
func flattenConstant(c ir.Constant, t ir.ValueType, offset int, out *[]backend.InitChunk) {
	switch c.Kind {
	case ir.ConstZero:
		return
	case ir.ConstArray:
		elemType := *t.Elem
		stride := elemType.Size()
		for i, elem := range c.Elems {
			flattenConstant(elem, elemType, offset+i*stride, out)
		}
	default:
		data := scalarBytes(c, t)
		if data != nil {
			*out = append(*out, backend.InitChunk{Offset: offset, Data: data, Width: len(data), Float: c.Kind == ir.ConstFloat})
		}
	}
}

func scalarBytes(c ir.Constant, t ir.ValueType) []byte {
	switch c.Kind {
	case ir.ConstInt:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(c.I))
		return b
	case ir.ConstFloat:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(c.F))
		return b
	case ir.ConstBool:
		if c.B {
			return []byte{1}
		}
		return []byte{0}
	case ir.ConstSignedChar:
		return []byte{byte(c.C)}
	default:
		return nil
	}
}
