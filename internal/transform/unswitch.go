package transform

import (
	"github.com/CNCSMonster/duskphantom/internal/analysis"
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

// LoopUnswitch hoists a loop-invariant `if (cond) { ... }` (no else) found
// inside a natural loop's body out in front of the loop (spec.md §4.E:
// "loop-unswitching for boolean invariants"). Rather than re-testing the
// same invariant condition on every iteration, the whole loop is
// specialized into two copies — one that always takes the guarded block,
// one that always skips it — and cond is tested once, in the preheader,
// to choose between them.
//
// Only the simplest shape is recognized: a single-latch loop (so there is
// exactly one natural-loop entry for this header to reason about) with
// exactly one exit edge, originating at the header. Anything with an
// internal break, multiple continues, or a guard that reads a
// loop-carried value is left alone.
func LoopUnswitch(b *irbuilder.Builder, f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	dom := analysis.BuildDomTree(f)
	for _, loop := range naturalLoops(f, dom) {
		if unswitchOne(b, f, dom, loop) {
			return true
		}
	}
	return false
}

// unswitchGuard is an if-without-else found entirely inside a loop body:
// block ends in a BrCond on a loop-invariant cond, then is executed only
// when cond holds, and after is where both arms rejoin.
type unswitchGuard struct {
	block, then, after *ir.BasicBlock
	cond               ir.Operand
}

func unswitchOne(b *irbuilder.Builder, f *ir.Function, dom *analysis.DomTree, loop natLoop) bool {
	if len(loop.Header.Preds) != 2 {
		return false // more than one latch: naturalLoops would give a partial body per back-edge
	}
	preheader := dom.IDom(loop.Header)
	if preheader == nil || loop.Body[preheader] || len(preheader.Succs) != 1 || preheader.Succs[0] != loop.Header {
		return false
	}
	guard, ok := findUnswitchGuard(loop)
	if !ok {
		return false
	}
	exit := findLoopExit(loop)
	if exit == nil {
		return false
	}

	trueBlocks, trueInsts := cloneLoopBody(b, f, loop, "unswitch.t")
	falseBlocks, falseInsts := cloneLoopBody(b, f, loop, "unswitch.f")

	specializeGuard(b, trueBlocks[guard.block], trueBlocks[guard.then], trueBlocks[guard.after], true)
	specializeGuard(b, falseBlocks[guard.block], falseBlocks[guard.then], falseBlocks[guard.after], false)

	retargetUnswitchExit(b, exit, loop.Header, trueBlocks[loop.Header], falseBlocks[loop.Header], trueInsts, falseInsts)

	for bb := range loop.Body {
		bb.ClearSuccs()
	}
	for bb := range loop.Body {
		f.RemoveBlock(bb)
	}

	if term := preheader.Terminator(); term != nil {
		b.Remove(term)
	}
	preheader.ClearSuccs()
	b.InsertAtEnd(preheader, b.BrCond(guard.cond))
	preheader.AddSucc(trueBlocks[loop.Header])
	preheader.AddSucc(falseBlocks[loop.Header])
	return true
}

// findUnswitchGuard looks for a block inside loop, other than the header,
// whose terminator is a two-way BrCond on a loop-invariant condition where
// one successor (then) rejoins the other (after) directly and has no
// other predecessor — the CFG shape lowerIf produces for an `if` with no
// `else` (internal/compile/stmt.go's lowerIf: cur.AddSucc(thenBlk);
// cur.AddSucc(afterBlk) when n.Else == nil).
func findUnswitchGuard(loop natLoop) (unswitchGuard, bool) {
	for bb := range loop.Body {
		if bb == loop.Header {
			continue
		}
		term := bb.Terminator()
		if term == nil || term.Op != ir.OpBr || term.NumOperands() != 1 || len(bb.Succs) != 2 {
			continue
		}
		cond := term.Operand(0)
		if !isLoopInvariantOperand(cond, loop.Body) {
			continue
		}
		then, after := bb.Succs[0], bb.Succs[1]
		if !loop.Body[then] || !loop.Body[after] {
			continue
		}
		if then == loop.Header || hasPhi(then) {
			continue
		}
		if len(then.Preds) != 1 || len(then.Succs) != 1 || then.Succs[0] != after {
			continue
		}
		return unswitchGuard{block: bb, then: then, after: after, cond: cond}, true
	}
	return unswitchGuard{}, false
}

func isLoopInvariantOperand(o ir.Operand, body map[*ir.BasicBlock]bool) bool {
	return o.Kind != ir.OperandInstruction || !body[o.Inst.Parent]
}

// findLoopExit requires the loop to have exactly one edge leaving its
// body, and requires that edge to originate at the header — the shape
// every plain `for`/`while` without an internal `break` has, and the only
// shape simple enough for the preheader to choose one of two whole-loop
// clones up front.
func findLoopExit(loop natLoop) *ir.BasicBlock {
	var exit *ir.BasicBlock
	count := 0
	for bb := range loop.Body {
		for _, s := range bb.Succs {
			if loop.Body[s] {
				continue
			}
			if bb != loop.Header {
				return nil
			}
			count++
			exit = s
		}
	}
	if count != 1 {
		return nil
	}
	return exit
}

// cloneLoopBody duplicates every block and instruction in loop.Body,
// remapping internal operand references, successor edges and phi
// incoming-predecessors to point at the new copies. A two-phase
// bare-clone-then-finish split (the same pattern Inline uses for callee
// bodies) so every instruction's clone exists before any operand gets
// remapped to it. References to anything outside the loop (the preheader
// edge on a header phi, a loop-invariant value) are left pointing at the
// original, since only one instance of those exists.
func cloneLoopBody(b *irbuilder.Builder, f *ir.Function, loop natLoop, suffix string) (map[*ir.BasicBlock]*ir.BasicBlock, map[*ir.Instruction]*ir.Instruction) {
	blockMap := make(map[*ir.BasicBlock]*ir.BasicBlock, len(loop.Body))
	instMap := make(map[*ir.Instruction]*ir.Instruction)
	for bb := range loop.Body {
		blockMap[bb] = b.NewBlock(f, bb.Name+"."+suffix)
		for inst := bb.First(); inst != nil; inst = inst.Next() {
			instMap[inst] = b.CloneBare(inst)
		}
	}
	for bb := range loop.Body {
		nb := blockMap[bb]
		for inst := bb.First(); inst != nil; inst = inst.Next() {
			clone := instMap[inst]
			ops := make([]ir.Operand, inst.NumOperands())
			for i, o := range inst.Operands() {
				ops[i] = remapOperand(o, instMap)
			}
			if pp, ok := clone.Payload.(*ir.PhiPayload); ok {
				for i := range pp.Incoming {
					if np, ok := blockMap[pp.Incoming[i].Pred]; ok {
						pp.Incoming[i].Pred = np
					}
					pp.Incoming[i].Value = ops[i]
				}
			}
			b.FinishClone(clone, inst.Op, inst.Type, clone.Payload, ops)
			b.InsertAtEnd(nb, clone)
		}
		for _, s := range bb.Succs {
			if ns, ok := blockMap[s]; ok {
				nb.AddSucc(ns)
			} else {
				nb.AddSucc(s) // the loop's single exit edge, shared by both clones
			}
		}
	}
	return blockMap, instMap
}

func remapOperand(o ir.Operand, instMap map[*ir.Instruction]*ir.Instruction) ir.Operand {
	if o.Kind != ir.OperandInstruction {
		return o
	}
	if m, ok := instMap[o.Inst]; ok {
		return ir.InstOperand(m)
	}
	return o
}

// specializeGuard collapses guard's two-way branch into an unconditional
// one, fixing the join block's phis to match: taking the then arm drops
// the direct guard-to-after "skip" edge that this specialization removes
// from the CFG, so any phi in after keyed on that edge must lose it too.
func specializeGuard(b *irbuilder.Builder, guard, then, after *ir.BasicBlock, takeThen bool) {
	if term := guard.Terminator(); term != nil {
		b.Remove(term)
	}
	guard.ClearSuccs()
	b.InsertAtEnd(guard, b.BrUncond())
	if takeThen {
		guard.AddSucc(then)
		dropJoinEdge(b, after, guard)
	} else {
		guard.AddSucc(after)
	}
}

func dropJoinEdge(b *irbuilder.Builder, join, pred *ir.BasicBlock) {
	join.Walk(func(inst *ir.Instruction) bool {
		if !inst.IsPhi() {
			return false
		}
		b.RemovePhiIncoming(inst, pred)
		return true
	})
}

// retargetUnswitchExit replaces the exit block's single incoming edge
// from the (now-deleted) original header with two edges, one from each
// specialized clone's header, resolving the carried value through the
// matching clone's instruction map.
func retargetUnswitchExit(b *irbuilder.Builder, exit, header, trueHeader, falseHeader *ir.BasicBlock, trueInsts, falseInsts map[*ir.Instruction]*ir.Instruction) {
	exit.Walk(func(inst *ir.Instruction) bool {
		if !inst.IsPhi() {
			return false
		}
		val, ok := inst.IncomingFor(header)
		if !ok {
			return true
		}
		b.RemovePhiIncoming(inst, header)
		b.AddPhiIncoming(inst, remapOperand(val, trueInsts), trueHeader)
		b.AddPhiIncoming(inst, remapOperand(val, falseInsts), falseHeader)
		return true
	})
}
