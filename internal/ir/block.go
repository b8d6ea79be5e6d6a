package ir

// BasicBlock is an ordered, intrusively-linked instruction list with a
// name (used as its assembly label) and CFG edges. Successors are
// positional: for a conditional Br, index 0 is the taken/true edge and
// index 1 is the not-taken/false edge (spec.md §3).
type BasicBlock struct {
	Name  string
	Func  *Function
	first *Instruction
	last  *Instruction
	count int
	Preds []*BasicBlock
	Succs []*BasicBlock
}

// Instructions returns the block's instructions in order. O(n); prefer
// Walk for hot loops.
func (b *BasicBlock) Instructions() []*Instruction {
	out := make([]*Instruction, 0, b.count)
	for i := b.first; i != nil; i = i.next {
		out = append(out, i)
	}
	return out
}

// Walk calls f for every instruction in order, stopping early if f returns
// false.
func (b *BasicBlock) Walk(f func(*Instruction) bool) {
	for i := b.first; i != nil; i = i.next {
		if !f(i) {
			return
		}
	}
}

func (b *BasicBlock) First() *Instruction { return b.first }
func (b *BasicBlock) Last() *Instruction  { return b.last }
func (b *BasicBlock) Len() int            { return b.count }
func (b *BasicBlock) Empty() bool         { return b.count == 0 }

// Terminator returns the block's terminator instruction (invariant 3: every
// reachable block has exactly one, at the end), or nil if the block hasn't
// been terminated yet (under construction).
func (b *BasicBlock) Terminator() *Instruction {
	if b.last != nil && b.last.IsTerminator() {
		return b.last
	}
	return nil
}

// PushBack appends inst at the end of the block's instruction list,
// updating intrusive links. Callers needing phi-before-non-phi ordering
// (invariant 4) should use PushPhi / InsertBefore instead.
func (b *BasicBlock) PushBack(inst *Instruction) {
	inst.Parent = b
	inst.prev = b.last
	inst.next = nil
	if b.last != nil {
		b.last.next = inst
	} else {
		b.first = inst
	}
	b.last = inst
	b.count++
}

// PushPhi inserts inst immediately after the last existing Phi (or at the
// very front if there are none), preserving invariant 4.
func (b *BasicBlock) PushPhi(inst *Instruction) {
	inst.Parent = b
	var afterLastPhi *Instruction
	for cur := b.first; cur != nil && cur.IsPhi(); cur = cur.next {
		afterLastPhi = cur
	}
	b.insertAfter(afterLastPhi, inst)
}

// InsertBefore splices inst immediately before cursor. cursor must already
// belong to this block.
func (b *BasicBlock) InsertBefore(cursor, inst *Instruction) {
	inst.Parent = b
	prev := cursor.prev
	inst.prev = prev
	inst.next = cursor
	cursor.prev = inst
	if prev != nil {
		prev.next = inst
	} else {
		b.first = inst
	}
	b.count++
}

// InsertAfter splices inst immediately after cursor (or at the front if
// cursor is nil). cursor must already belong to this block.
func (b *BasicBlock) InsertAfter(cursor, inst *Instruction) { b.insertAfter(cursor, inst) }

func (b *BasicBlock) insertAfter(cursor, inst *Instruction) {
	inst.Parent = b
	if cursor == nil {
		inst.next = b.first
		inst.prev = nil
		if b.first != nil {
			b.first.prev = inst
		} else {
			b.last = inst
		}
		b.first = inst
		b.count++
		return
	}
	next := cursor.next
	inst.prev = cursor
	inst.next = next
	cursor.next = inst
	if next != nil {
		next.prev = inst
	} else {
		b.last = inst
	}
	b.count++
}

// Unlink detaches inst from this block's list without touching its
// operands/users; irbuilder.Remove does that bookkeeping before calling
// this.
func (b *BasicBlock) Unlink(inst *Instruction) {
	if inst.prev != nil {
		inst.prev.next = inst.next
	} else {
		b.first = inst.next
	}
	if inst.next != nil {
		inst.next.prev = inst.prev
	} else {
		b.last = inst.prev
	}
	inst.prev, inst.next, inst.Parent = nil, nil, nil
	b.count--
}

// AddSucc appends a positional successor edge and the matching
// predecessor edge on the other end.
func (b *BasicBlock) AddSucc(succ *BasicBlock) {
	b.Succs = append(b.Succs, succ)
	succ.Preds = append(succ.Preds, b)
}

// ClearSuccs drops all outgoing edges and the matching incoming edges on
// each successor's predecessor list; used when rewriting a terminator.
func (b *BasicBlock) ClearSuccs() {
	for _, s := range b.Succs {
		s.Preds = removeBlock(s.Preds, b)
	}
	b.Succs = nil
}

func removeBlock(list []*BasicBlock, target *BasicBlock) []*BasicBlock {
	out := list[:0]
	for _, bb := range list {
		if bb != target {
			out = append(out, bb)
		}
	}
	return out
}
