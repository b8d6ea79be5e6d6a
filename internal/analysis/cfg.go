// Package analysis implements duskc's Analyses component (spec.md §4.D):
// CFG reverse postorder, dominance, and the Memory-SSA overlay used by the
// load/store elimination transforms, plus the invariant verifier.
package analysis

import "github.com/CNCSMonster/duskphantom/internal/ir"

// RPO returns every block reachable from f's entry, in reverse postorder.
// Unreachable blocks (dead after a prior transform) are silently dropped.
func RPO(f *ir.Function) []*ir.BasicBlock {
	if f.Entry == nil {
		return nil
	}
	visited := make(map[*ir.BasicBlock]bool)
	var post []*ir.BasicBlock
	var visit func(b *ir.BasicBlock)
	visit = func(b *ir.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		post = append(post, b)
	}
	visit(f.Entry)
	// Reverse the postorder in place.
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// Preorder returns reachable blocks in preorder (useful for top-down
// worklists like loop-invariant code motion).
func Preorder(f *ir.Function) []*ir.BasicBlock {
	if f.Entry == nil {
		return nil
	}
	visited := make(map[*ir.BasicBlock]bool)
	var order []*ir.BasicBlock
	var visit func(b *ir.BasicBlock)
	visit = func(b *ir.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		order = append(order, b)
		for _, s := range b.Succs {
			visit(s)
		}
	}
	visit(f.Entry)
	return order
}

// Reachable reports whether b can be reached from f's entry.
func Reachable(f *ir.Function, b *ir.BasicBlock) bool {
	for _, x := range Preorder(f) {
		if x == b {
			return true
		}
	}
	return false
}
