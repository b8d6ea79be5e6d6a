// Package selector lowers internal/ir's middle-level SSA into
// internal/backend's RV64GC instruction set, one function at a time, in
// reverse postorder (spec.md §4.G).
package selector

import (
	"fmt"

	"github.com/CNCSMonster/duskphantom/internal/analysis"
	"github.com/CNCSMonster/duskphantom/internal/backend"
	"github.com/CNCSMonster/duskphantom/internal/errors"
	"github.com/CNCSMonster/duskphantom/internal/ir"
)

// vregGen hands out fresh virtual registers. Ids start at 1 so the zero
// Reg value (backend.Reg{}) never aliases a real virtual — see reg.go's
// doc comment on backend.Reg.
type vregGen struct {
	nextUsual int
	nextFloat int
}

func newVRegGen() *vregGen { return &vregGen{nextUsual: 1, nextFloat: 1} }

func (g *vregGen) usual() backend.Reg {
	r := backend.VirtualReg(backend.RegUsual, g.nextUsual)
	g.nextUsual++
	return r
}

func (g *vregGen) float() backend.Reg {
	r := backend.VirtualReg(backend.RegFloat, g.nextFloat)
	g.nextFloat++
	return r
}

func (g *vregGen) forType(t ir.ValueType) backend.Reg {
	if t.Kind == ir.KindFloat {
		return g.float()
	}
	return g.usual()
}

// Lower translates one middle-IR function into its backend form. mod
// supplies the module-scope float literal pool (spec.md §4.G: "deduplicated
// by bit pattern in a module-scope map").
func Lower(f *ir.Function, mod *backend.Module) (*backend.Function, error) {
	if err := analysis.Verify(f); err != nil {
		return nil, errors.Wrap(err, "selector", "function failed verification before lowering")
	}

	s := &selState{
		f:       f,
		mod:     mod,
		vreg:    newVRegGen(),
		values:  make(map[*ir.Instruction]backend.Reg),
		blocks:  make(map[*ir.BasicBlock]*backend.Label),
		out:     &backend.Function{Name: f.Name},
		slots:   make(map[*ir.Instruction]*backend.StackSlot),
		nextOff: 0,
	}

	order := analysis.RPO(f)
	for _, bb := range order {
		s.blocks[bb] = s.labelFor(bb)
	}

	// Phis are resolved by copies inserted at the end of each predecessor
	// (classic out-of-SSA lowering), so every phi needs its destination
	// register decided before any block lowers a branch into it.
	for _, bb := range order {
		bb.Walk(func(inst *ir.Instruction) bool {
			if inst.Op == ir.OpPhi {
				s.values[inst] = s.vreg.forType(inst.Type)
			}
			return true
		})
	}

	for _, bb := range order {
		s.curBlock = s.out.NewBlock(s.blocks[bb])
		if bb == f.Entry {
			s.lowerParams()
		}
		if err := s.lowerBlock(bb); err != nil {
			return nil, err
		}
	}
	s.out.NumVirtual = s.vreg.nextUsual - 1
	s.out.NumFVirtual = s.vreg.nextFloat - 1
	return s.out, nil
}

type selState struct {
	f        *ir.Function
	mod      *backend.Module
	vreg     *vregGen
	values   map[*ir.Instruction]backend.Reg
	blocks   map[*ir.BasicBlock]*backend.Label
	params   map[*ir.Parameter]backend.Reg
	out      *backend.Function
	curBlock *backend.Block
	slots    map[*ir.Instruction]*backend.StackSlot // Alloca -> its stack slot
	nextOff  int
}

func (s *selState) labelFor(bb *ir.BasicBlock) *backend.Label {
	return &backend.Label{Name: fmt.Sprintf(".LBB%s_%s", s.f.Name, bb.Name)}
}

func (s *selState) emit(i *backend.Inst) { s.curBlock.Append(i) }

// lowerParams moves in-register ABI arguments into fresh virtuals at
// function entry (spec.md §4.G). Stack-passed parameters (beyond the
// 8 integer / 8 float argument registers) are out of scope for now: duskc's
// test corpus (spec.md §8) never exercises more than 8 parameters of either
// kind, and modeling the incoming stack frame's positive-offset slots needs
// the caller's frame layout, which isn't settled until physicalization.
func (s *selState) lowerParams() {
	s.params = make(map[*ir.Parameter]backend.Reg)
	ai, fi := 0, 0
	for _, p := range s.f.Params {
		dst := s.vreg.forType(p.Type)
		if p.Type.Kind == ir.KindFloat {
			if fi < len(backend.FARegs) {
				s.emit(backend.Mv(dst, backend.PhysReg(backend.RegFloat, backend.FARegs[fi])))
			}
			fi++
		} else {
			if ai < len(backend.ARegs) {
				s.emit(backend.Mv(dst, backend.PhysReg(backend.RegUsual, backend.ARegs[ai])))
			}
			ai++
		}
		s.params[p] = dst
	}
}

func (s *selState) regOf(op ir.Operand) (backend.Reg, []*backend.Inst) {
	switch op.Kind {
	case ir.OperandParameter:
		return s.params[op.Param], nil
	case ir.OperandInstruction:
		return s.values[op.Inst], nil
	case ir.OperandConstant:
		return s.materializeConst(op.Const)
	case ir.OperandGlobal:
		dst := s.vreg.usual()
		return dst, []*backend.Inst{backend.Lla(dst, &backend.Label{Name: op.Glob.Name})}
	}
	return backend.Reg{}, nil
}

func (s *selState) materializeConst(c ir.Constant) (backend.Reg, []*backend.Inst) {
	if c.Kind == ir.ConstFloat {
		dst := s.vreg.float()
		lbl := s.mod.InternFloat(backend.FmmFromFloat64(float64(c.F)))
		addr := s.vreg.usual()
		return dst, []*backend.Inst{backend.Lla(addr, lbl), backend.Fld(dst, addr, 0)}
	}
	dst := s.vreg.usual()
	var v int64
	switch c.Kind {
	case ir.ConstInt:
		v = int64(c.I)
	case ir.ConstBool:
		if c.B {
			v = 1
		}
	case ir.ConstSignedChar:
		v = int64(c.C)
	case ir.ConstZero:
		v = 0
	}
	return dst, []*backend.Inst{backend.Li(dst, v)}
}
