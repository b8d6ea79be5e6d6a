package transform

import (
	"fmt"

	"github.com/CNCSMonster/duskphantom/internal/analysis"
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

// natLoop is one natural loop: a header that dominates every block
// reachable from a back edge into it (spec.md §4.E's "induction-variable
// identification, loop-invariant code motion, trivial unrolling... and
// loop-unswitching" all operate on this shape).
type natLoop struct {
	Header *ir.BasicBlock
	Body   map[*ir.BasicBlock]bool
}

func naturalLoops(f *ir.Function, dom *analysis.DomTree) []natLoop {
	var loops []natLoop
	for _, bb := range analysis.RPO(f) {
		for _, succ := range bb.Succs {
			if dom.Dominates(succ, bb) {
				loops = append(loops, buildLoop(succ, bb))
			}
		}
	}
	return loops
}

func buildLoop(header, latch *ir.BasicBlock) natLoop {
	body := map[*ir.BasicBlock]bool{header: true, latch: true}
	stack := []*ir.BasicBlock{latch}
	for len(stack) > 0 {
		bb := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range bb.Preds {
			if !body[p] {
				body[p] = true
				stack = append(stack, p)
			}
		}
	}
	return natLoop{Header: header, Body: body}
}

// LoopInvariantCodeMotion hoists side-effect-free, non-trapping
// instructions from a loop's header into the header's immediate
// dominator — guaranteed outside the loop body, since a natural loop's
// header dominates every other block in it (spec.md §4.E). Hoisting is
// restricted to the header itself, not the whole body: the header runs on
// every iteration including the first, so moving its instructions earlier
// can't change how many times a trapping op (Div, Rem) executes; hoisting
// from a conditionally-reached block could.
func LoopInvariantCodeMotion(b *irbuilder.Builder, f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	dom := analysis.BuildDomTree(f)
	changed := false
	for _, loop := range naturalLoops(f, dom) {
		preheader := dom.IDom(loop.Header)
		if preheader == nil || loop.Body[preheader] {
			continue
		}
		cursor := preheader.Terminator()
		if cursor == nil {
			continue
		}
		var next *ir.Instruction
		for inst := loop.Header.First(); inst != nil; inst = next {
			next = inst.Next()
			if !isLoopInvariant(inst, loop.Body) {
				continue
			}
			b.Detach(inst)
			b.InsertBefore(cursor, inst)
			changed = true
		}
	}
	return changed
}

func isLoopInvariant(inst *ir.Instruction, body map[*ir.BasicBlock]bool) bool {
	if inst.IsTerminator() || inst.IsPhi() {
		return false
	}
	switch inst.Op {
	case ir.OpLoad, ir.OpStore, ir.OpCall, ir.OpAlloca, ir.OpDiv, ir.OpRem:
		return false
	}
	for _, op := range inst.Operands() {
		if op.Kind == ir.OperandInstruction && body[op.Inst.Parent] {
			return false
		}
	}
	return true
}

// maxTrivialUnrollTrip caps how many iterations TrivialUnroll will clone
// inline; above this a loop isn't "small" in spec.md §4.E's sense and is
// left to run as a loop.
const maxTrivialUnrollTrip = 8

// TrivialUnroll fully unrolls a natural loop of the simple two-block shape
// mem2reg produces for a C-style `for`/`while` (a header holding the
// induction phi and exit test, a single latch block that does the body's
// work and branches straight back) when the induction variable's trip
// count is a compile-time-known small constant (spec.md §4.E: "trivial
// unrolling by small constant counts"). Anything shaped differently
// (multiple exits, break/continue splitting the body into more blocks, a
// non-constant bound) is left alone — this pass only ever fires on loops
// it can prove terminate after a handful of iterations.
func TrivialUnroll(b *irbuilder.Builder, f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	dom := analysis.BuildDomTree(f)
	for _, loop := range naturalLoops(f, dom) {
		if unrollOne(b, f, dom, loop) {
			return true // block set changed; pipeline's fixed-point loop re-evaluates
		}
	}
	return false
}

func unrollOne(b *irbuilder.Builder, f *ir.Function, dom *analysis.DomTree, loop natLoop) bool {
	if len(loop.Body) != 2 {
		return false
	}
	header := loop.Header
	var body *ir.BasicBlock
	for bb := range loop.Body {
		if bb != header {
			body = bb
		}
	}
	preheader := dom.IDom(header)
	if preheader == nil || loop.Body[preheader] || len(preheader.Succs) != 1 || preheader.Succs[0] != header {
		return false
	}
	if len(body.Succs) != 1 || body.Succs[0] != header {
		return false
	}
	if hasPhi(body) {
		return false
	}
	if len(header.Preds) != 2 {
		return false
	}
	if !bodySafeToUnroll(body, header) {
		return false
	}

	phi, init, step, ok := findBasicIV(header, preheader, body)
	if !ok {
		return false
	}
	term := header.Terminator()
	if term == nil || term.Op != ir.OpBr || term.NumOperands() != 1 {
		return false
	}
	cond := term.Operand(0)
	if cond.Kind != ir.OperandInstruction || cond.Inst.Op != ir.OpICmp || cond.Inst.Parent != header {
		return false
	}
	bound, pred, ok := normalizeIVCompare(cond.Inst, phi)
	if !ok || len(header.Succs) != 2 {
		return false
	}
	bodyIdx := -1
	for i, s := range header.Succs {
		if s == body {
			bodyIdx = i
		}
	}
	exitIdx := 1 - bodyIdx
	if bodyIdx == -1 || loop.Body[header.Succs[exitIdx]] {
		return false
	}
	exit := header.Succs[exitIdx]

	tripCount, ok := simulateTripCount(pred, init, step, bound, bodyIdx)
	if !ok {
		return false
	}
	performUnroll(b, f, header, body, preheader, exit, tripCount)
	return true
}

// findBasicIV looks for a header phi whose preheader-incoming value is an
// int constant and whose body-incoming value is that same phi plus a
// constant step (spec.md §4.E's "induction-variable identification"):
// exactly the shape mem2reg produces for `for(i = <const>; ...; i += <const>)`.
func findBasicIV(header, preheader, body *ir.BasicBlock) (phi *ir.Instruction, init, step int32, ok bool) {
	for inst := header.First(); inst != nil && inst.IsPhi(); inst = inst.Next() {
		initOp, hasInit := inst.IncomingFor(preheader)
		stepOp, hasStep := inst.IncomingFor(body)
		if !hasInit || !hasStep {
			continue
		}
		initVal, okInit := intOperand(initOp)
		if !okInit {
			continue
		}
		if stepOp.Kind != ir.OperandInstruction || stepOp.Inst.Op != ir.OpAdd || stepOp.Inst.Parent != body {
			continue
		}
		a, c := stepOp.Inst.Operand(0), stepOp.Inst.Operand(1)
		var stepOperand ir.Operand
		switch {
		case a.Kind == ir.OperandInstruction && a.Inst == inst:
			stepOperand = c
		case c.Kind == ir.OperandInstruction && c.Inst == inst:
			stepOperand = a
		default:
			continue
		}
		stepVal, okStep := intOperand(stepOperand)
		if !okStep {
			continue
		}
		return inst, initVal, stepVal, true
	}
	return nil, 0, 0, false
}

func intOperand(o ir.Operand) (int32, bool) {
	if o.Kind != ir.OperandConstant || o.Const.Kind != ir.ConstInt {
		return 0, false
	}
	return o.Const.I, true
}

// normalizeIVCompare reorders an ICmp so its result reads "phi <pred> bound",
// swapping the predicate when the phi appears on the right.
func normalizeIVCompare(icmp, phi *ir.Instruction) (bound int32, pred ir.ICmpOp, ok bool) {
	p := icmp.Payload.(*ir.ICmpPayload)
	l, r := icmp.Operand(0), icmp.Operand(1)
	if l.Kind == ir.OperandInstruction && l.Inst == phi {
		if bound, ok := intOperand(r); ok {
			return bound, p.Pred, true
		}
		return 0, 0, false
	}
	if r.Kind == ir.OperandInstruction && r.Inst == phi {
		if bound, ok := intOperand(l); ok {
			return bound, p.Pred.Swapped(), true
		}
	}
	return 0, 0, false
}

// simulateTripCount evaluates the exit test iteration by iteration, the
// "small constant count" proof TrivialUnroll requires before it will
// touch a loop: it gives up (ok=false) once the count exceeds
// maxTrivialUnrollTrip rather than unroll something that isn't small.
func simulateTripCount(pred ir.ICmpOp, init, step, bound int32, bodyIdx int) (int, bool) {
	iv := init
	for count := 0; count <= maxTrivialUnrollTrip; count++ {
		res, ok := ir.ICmpEval(pred, ir.IntConst(iv), ir.IntConst(bound))
		if !ok {
			return 0, false
		}
		takeBody := res.B == (bodyIdx == 0)
		if !takeBody {
			return count, true
		}
		if count == maxTrivialUnrollTrip {
			break
		}
		iv += step
	}
	return 0, false
}

func hasPhi(bb *ir.BasicBlock) bool {
	return bb.First() != nil && bb.First().IsPhi()
}

// bodySafeToUnroll rejects a loop body that reaches into the header for
// anything but a phi value (the header's ICmp/Br results are never valid
// operands outside the header itself, so seeing one would mean this isn't
// the simple shape TrivialUnroll was grounded on).
func bodySafeToUnroll(body, header *ir.BasicBlock) bool {
	safe := true
	body.Walk(func(inst *ir.Instruction) bool {
		for _, op := range inst.Operands() {
			if op.Kind == ir.OperandInstruction && op.Inst.Parent == header && !op.Inst.IsPhi() {
				safe = false
				return false
			}
		}
		return true
	})
	return safe
}

// performUnroll clones body tripCount times, threading every header phi
// (the induction variable and any other loop-carried scalar) through each
// copy via direct operand substitution rather than re-deriving fresh phis,
// since the trip count is already known at transform time. tripCount == 0
// collapses the loop away entirely, the degenerate case this pass has
// always handled.
func performUnroll(b *irbuilder.Builder, f *ir.Function, header, body, preheader, exit *ir.BasicBlock, tripCount int) {
	phis := headerPhis(header)
	current := make(map[*ir.Instruction]ir.Operand, len(phis))
	for _, phi := range phis {
		v, _ := phi.IncomingFor(preheader)
		current[phi] = v
	}

	var iterBlocks []*ir.BasicBlock
	for k := 0; k < tripCount; k++ {
		instMap := make(map[*ir.Instruction]*ir.Instruction)
		blk := b.NewBlock(f, fmt.Sprintf("%s.unroll%d", header.Name, k))
		for inst := body.First(); inst != nil; inst = inst.Next() {
			ops := make([]ir.Operand, inst.NumOperands())
			for i, o := range inst.Operands() {
				ops[i] = substituteIVOperand(o, current, instMap)
			}
			bare := b.CloneBare(inst)
			b.FinishClone(bare, inst.Op, inst.Type, bare.Payload, ops)
			b.InsertAtEnd(blk, bare)
			instMap[inst] = bare
		}
		next := make(map[*ir.Instruction]ir.Operand, len(phis))
		for _, phi := range phis {
			bodyVal, _ := phi.IncomingFor(body)
			next[phi] = substituteIVOperand(bodyVal, current, instMap)
		}
		current = next
		iterBlocks = append(iterBlocks, blk)
	}

	for i, blk := range iterBlocks {
		term := b.BrUncond()
		b.InsertAtEnd(blk, term)
		if i+1 < len(iterBlocks) {
			blk.AddSucc(iterBlocks[i+1])
		} else {
			blk.AddSucc(exit)
		}
	}

	header.ClearSuccs()
	body.ClearSuccs()
	preheader.ClearSuccs()
	f.RemoveBlock(header)
	f.RemoveBlock(body)

	if len(iterBlocks) == 0 {
		preheader.AddSucc(exit)
		retargetExitPhis(exit, header, preheader, current)
		return
	}
	preheader.AddSucc(iterBlocks[0])
	retargetExitPhis(exit, header, iterBlocks[len(iterBlocks)-1], current)
}

// retargetExitPhis repoints an exit block's incoming edge from the
// (now-deleted) header to its replacement, and — since a header phi
// itself is about to stop existing — resolves any exit phi value that
// read a loop-carried phi directly into that phi's final per-iteration
// value rather than leaving a dangling reference. final holds each
// header phi's value as of the last cloned iteration (or, for a
// zero-trip loop, its initial value).
func retargetExitPhis(exit, header, newPred *ir.BasicBlock, final map[*ir.Instruction]ir.Operand) {
	exit.Walk(func(inst *ir.Instruction) bool {
		if !inst.IsPhi() {
			return false
		}
		pp := inst.Payload.(*ir.PhiPayload)
		for i := range pp.Incoming {
			if pp.Incoming[i].Pred != header {
				continue
			}
			pp.Incoming[i].Pred = newPred
			op := inst.Operand(i)
			if op.Kind == ir.OperandInstruction {
				if val, ok := final[op.Inst]; ok {
					inst.SetOperand(i, val)
				}
			}
		}
		return true
	})
}

func headerPhis(header *ir.BasicBlock) []*ir.Instruction {
	var phis []*ir.Instruction
	for inst := header.First(); inst != nil && inst.IsPhi(); inst = inst.Next() {
		phis = append(phis, inst)
	}
	return phis
}

// substituteIVOperand resolves an operand as seen from inside the
// iteration currently being cloned: a reference to a header phi becomes
// that phi's current per-iteration value, a reference to an
// already-cloned body instruction becomes its clone, anything else
// (params, globals, constants, values from outside the loop) passes
// through unchanged.
func substituteIVOperand(o ir.Operand, current map[*ir.Instruction]ir.Operand, instMap map[*ir.Instruction]*ir.Instruction) ir.Operand {
	if o.Kind != ir.OperandInstruction {
		return o
	}
	if v, ok := current[o.Inst]; ok {
		return v
	}
	if m, ok := instMap[o.Inst]; ok {
		return ir.InstOperand(m)
	}
	return o
}
