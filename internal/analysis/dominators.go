package analysis

import "github.com/CNCSMonster/duskphantom/internal/ir"

// DomTree is the immediate-dominator table for one function, built with the
// Cooper/Harvey/Kennedy iterative algorithm (no need for Lengauer-Tarjan at
// duskc's function sizes).
type DomTree struct {
	rpo      []*ir.BasicBlock
	index    map[*ir.BasicBlock]int
	idom     []int // idom[i] is the rpo-index of block rpo[i]'s immediate dominator; entry's idom is itself
}

// BuildDomTree computes the dominator tree of f. Unreachable blocks are
// excluded; queries against them report false.
func BuildDomTree(f *ir.Function) *DomTree {
	order := RPO(f)
	idx := make(map[*ir.BasicBlock]int, len(order))
	for i, b := range order {
		idx[b] = i
	}
	d := &DomTree{rpo: order, index: idx, idom: make([]int, len(order))}
	if len(order) == 0 {
		return d
	}
	for i := range d.idom {
		d.idom[i] = -1
	}
	entry := 0
	d.idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for i := 1; i < len(order); i++ {
			b := order[i]
			newIdom := -1
			for _, p := range b.Preds {
				pi, ok := idx[p]
				if !ok || d.idom[pi] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = pi
					continue
				}
				newIdom = d.intersect(newIdom, pi)
			}
			if newIdom != -1 && d.idom[i] != newIdom {
				d.idom[i] = newIdom
				changed = true
			}
		}
	}
	return d
}

func (d *DomTree) intersect(a, b int) int {
	for a != b {
		for a > b {
			a = d.idom[a]
		}
		for b > a {
			b = d.idom[b]
		}
	}
	return a
}

// IDom returns b's immediate dominator, or nil for the entry block or an
// unreachable block.
func (d *DomTree) IDom(b *ir.BasicBlock) *ir.BasicBlock {
	i, ok := d.index[b]
	if !ok || d.idom[i] == -1 || d.idom[i] == i {
		return nil
	}
	return d.rpo[d.idom[i]]
}

// Dominates reports whether a dominates b (reflexive: a dominates a).
func (d *DomTree) Dominates(a, b *ir.BasicBlock) bool {
	ai, aok := d.index[a]
	bi, bok := d.index[b]
	if !aok || !bok {
		return false
	}
	for bi != ai {
		if d.idom[bi] == -1 {
			return false
		}
		if d.idom[bi] == bi {
			return ai == bi
		}
		bi = d.idom[bi]
	}
	return true
}

// DominatesStrict reports whether a strictly dominates b (a != b).
func (d *DomTree) DominatesStrict(a, b *ir.BasicBlock) bool {
	return a != b && d.Dominates(a, b)
}

// DominatesInst reports whether the definition def dominates the use at use,
// the per-instruction refinement of invariant 6 (spec.md §3): same-block
// defs must precede the use in list order, cross-block defs reduce to block
// dominance since every instruction in a dominating block runs to
// completion before any instruction in the dominated block.
func (d *DomTree) DominatesInst(def, use *ir.Instruction) bool {
	if def.Parent == use.Parent {
		for cur := def.Parent.First(); cur != nil; cur = cur.Next() {
			if cur == def {
				return true
			}
			if cur == use {
				return false
			}
		}
		return false
	}
	return d.DominatesStrict(def.Parent, use.Parent)
}

// Frontier computes the dominance frontier of every reachable block: the
// set of blocks where b's dominance ends but a successor edge still
// reaches, i.e. exactly the blocks mem2reg must insert a phi into when
// promoting an alloca written in b (Cytron et al.).
func (d *DomTree) Frontier() map[*ir.BasicBlock][]*ir.BasicBlock {
	df := make(map[*ir.BasicBlock][]*ir.BasicBlock)
	for _, b := range d.rpo {
		if len(b.Preds) < 2 {
			continue
		}
		for _, p := range b.Preds {
			runner := p
			for runner != nil && !(d.IDom(b) == runner) {
				df[runner] = appendOnce(df[runner], b)
				runner = d.IDom(runner)
			}
		}
	}
	return df
}

func appendOnce(s []*ir.BasicBlock, b *ir.BasicBlock) []*ir.BasicBlock {
	for _, x := range s {
		if x == b {
			return s
		}
	}
	return append(s, b)
}
