package transform

import (
	"github.com/CNCSMonster/duskphantom/internal/analysis"
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

// BlockFuse merges a block into its single successor when that successor
// has exactly one predecessor: the branch is dropped and the two
// instruction lists concatenate (spec.md §4.E). Runs to a fixed point
// since fusing can expose a new fusable pair.
func BlockFuse(b *irbuilder.Builder, f *ir.Function) bool {
	changed := false
	for {
		progressed := false
		for _, bb := range analysis.RPO(f) {
			if fuseOne(b, f, bb) {
				progressed = true
				break // block list mutated; restart from a fresh RPO
			}
		}
		if !progressed {
			break
		}
		changed = true
	}
	return changed
}

func fuseOne(b *irbuilder.Builder, f *ir.Function, bb *ir.BasicBlock) bool {
	if len(bb.Succs) != 1 {
		return false
	}
	succ := bb.Succs[0]
	if succ == bb || len(succ.Preds) != 1 {
		return false
	}
	if succ == f.Exit {
		return false
	}

	term := bb.Terminator()
	b.Remove(term)

	for inst := succ.First(); inst != nil; {
		next := inst.Next()
		b.Detach(inst)
		bb.PushBack(inst)
		inst = next
	}

	bb.ClearSuccs()
	for _, s := range succ.Succs {
		bb.AddSucc(s)
	}
	succ.ClearSuccs()

	for _, s := range bb.Succs {
		retargetPhiPreds(s, succ, bb)
	}

	f.RemoveBlock(succ)
	return true
}

// retargetPhiPreds rewrites every phi in s that named old as a predecessor
// to name replacement instead, after a fuse makes replacement the block
// that now actually flows into s.
func retargetPhiPreds(s *ir.BasicBlock, old, replacement *ir.BasicBlock) {
	s.Walk(func(inst *ir.Instruction) bool {
		if !inst.IsPhi() {
			return false
		}
		pp := inst.Payload.(*ir.PhiPayload)
		for i := range pp.Incoming {
			if pp.Incoming[i].Pred == old {
				pp.Incoming[i].Pred = replacement
			}
		}
		return true
	})
}
