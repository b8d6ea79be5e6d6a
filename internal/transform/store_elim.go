package transform

import (
	"github.com/CNCSMonster/duskphantom/internal/analysis"
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

// StoreElim removes a store whose Memory-SSA def has exactly one successor
// in its alias root's version stream and that successor is itself another
// def (a store or call) rather than a load: nothing ever reads the value
// this store wrote before it's overwritten (spec.md §4.E). Memory-SSA is
// rebuilt every sweep, same as LoadElim, so an eliminated store can make
// an earlier store to the same root dead in turn.
func StoreElim(b *irbuilder.Builder, f *ir.Function) bool {
	changed := false
	for {
		mssa := analysis.Build(f)
		progressed := false
		for _, bb := range analysis.RPO(f) {
			var next *ir.Instruction
			for inst := bb.First(); inst != nil; inst = next {
				next = inst.Next()
				if inst.Op != ir.OpStore {
					continue
				}
				node, ok := mssa.NodeFor(inst)
				if !ok || !storeIsDead(node) {
					continue
				}
				analysis.RemoveUse(node)
				b.Remove(inst)
				progressed = true
			}
		}
		if !progressed {
			break
		}
		changed = true
	}
	return changed
}

func storeIsDead(n *analysis.MemNode) bool {
	users := n.Users()
	if len(users) != 1 {
		return false
	}
	// Only a single Normal (store/call) successor proves nothing reads this
	// value first; a Phi successor may still feed a load on some path, so
	// it is left alone.
	u := users[0]
	return u.Kind == analysis.MemNormal && u.OwnerInst.Op != ir.OpLoad
}
