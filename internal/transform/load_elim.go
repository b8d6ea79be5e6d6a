package transform

import (
	"github.com/CNCSMonster/duskphantom/internal/analysis"
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

// LoadElim eliminates loads whose value is provably equal to a prior
// store, a global initializer, or a zeroing memset, walking Memory-SSA in
// reverse postorder (spec.md §4.E, "Load elimination contract"). Ties
// between applicable rewrites favor the most specific: store-forward over
// memset-forward over initializer-deref. Memory-SSA is rebuilt each sweep
// since an earlier elimination changes reaching defs for later loads.
func LoadElim(b *irbuilder.Builder, f *ir.Function) bool {
	changed := false
	for {
		mssa := analysis.Build(f)
		progressed := false
		for _, bb := range analysis.RPO(f) {
			var next *ir.Instruction
			for inst := bb.First(); inst != nil; inst = next {
				next = inst.Next()
				if inst.Op != ir.OpLoad {
					continue
				}
				node, ok := mssa.NodeFor(inst)
				if !ok || !node.Predictable {
					continue
				}
				if tryEliminateLoad(b, f, inst, node) {
					progressed = true
				}
			}
		}
		if !progressed {
			break
		}
		changed = true
	}
	return changed
}

func tryEliminateLoad(b *irbuilder.Builder, f *ir.Function, load *ir.Instruction, node *analysis.MemNode) bool {
	def := node.Used
	if def == nil {
		return false
	}
	if def.Kind == analysis.MemEntry {
		if !f.IsMain() {
			return false
		}
		v, ok := initializerDeref(load.Operand(0))
		if !ok {
			return false
		}
		analysis.RemoveUse(node)
		b.ReplaceSelf(load, ir.ConstOperand(v))
		return true
	}
	if def.Kind != analysis.MemNormal {
		return false
	}
	owner := def.OwnerInst
	switch owner.Op {
	case ir.OpStore:
		if !owner.Operand(0).Type().Equal(load.Type) {
			return false
		}
		analysis.RemoveUse(node)
		b.ReplaceSelf(load, owner.Operand(0))
		return true
	case ir.OpCall:
		cp := owner.Payload.(*ir.CallPayload)
		if cp.Callee.IsMemset && load.Type.IsScalar() {
			analysis.RemoveUse(node)
			b.ReplaceSelf(load, ir.ConstOperand(ir.ZeroConst(load.Type)))
			return true
		}
	}
	return false
}

// initializerDeref walks ptr's chain of constant-index GEPs back to a
// global and indexes into its initializer.
func initializerDeref(ptr ir.Operand) (ir.Constant, bool) {
	indices, base, ok := gepChain(ptr)
	if !ok || base.Kind != ir.OperandGlobal {
		return ir.Constant{}, false
	}
	return indexInto(base.Glob.Initializer, indices)
}

// gepChain unwinds ptr back through constant-index GEPs to its ultimate
// base, returning the indices in application order (outermost dimension
// first) and ok=false if any index along the way is non-constant.
func gepChain(ptr ir.Operand) (indices []int32, base ir.Operand, ok bool) {
	cur := ptr
	for cur.Kind == ir.OperandInstruction && cur.Inst.Op == ir.OpGetElementPtr {
		inst := cur.Inst
		var idxs []int32
		for i := 1; i < inst.NumOperands(); i++ {
			op := inst.Operand(i)
			if op.Kind != ir.OperandConstant {
				return nil, ir.Operand{}, false
			}
			idxs = append(idxs, op.Const.I)
		}
		indices = append(idxs, indices...)
		cur = inst.Operand(0)
	}
	return indices, cur, true
}

func indexInto(c ir.Constant, indices []int32) (ir.Constant, bool) {
	if len(indices) == 0 {
		return c, true
	}
	idx := indices[0]
	switch c.Kind {
	case ir.ConstArray:
		if idx < 0 || int(idx) >= len(c.Elems) {
			return ir.Constant{}, false
		}
		return indexInto(c.Elems[idx], indices[1:])
	case ir.ConstZero:
		if c.Zero.Kind != ir.KindArray {
			return ir.Constant{}, false
		}
		return indexInto(ir.ZeroConst(*c.Zero.Elem), indices[1:])
	default:
		return ir.Constant{}, false
	}
}
