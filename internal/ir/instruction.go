package ir

// Instruction is a single SSA value/operation node. Every variant shares
// this shape (id, result type, operand list, parent block, prev/next
// intrusive links, reverse user edges); opcode-specific data — ICmp's
// predicate, Phi's incoming edges, a Call's callee, a cast's target type —
// lives in the small Payload interface instead of a struct-per-opcode, so
// the arena only ever pools one concrete type (spec.md §9, "a tagged
// variant per opcode group plus a small capability protocol").
type Instruction struct {
	id       int
	Op       Opcode
	Type     ValueType
	operands []Operand
	users    []*Instruction
	Parent   *BasicBlock
	prev     *Instruction
	next     *Instruction
	Payload  Payload
}

// Payload carries the fields specific to one opcode (or group of opcodes)
// and the bits of the capability protocol that can't be expressed
// generically from Op/Type/operands alone.
type Payload interface {
	Format(i *Instruction) string
	Clone() Payload
}

func (i *Instruction) ID() int { return i.id }

// Operands returns the instruction's operand list. Index is order
// significant and meaningful per-opcode (e.g. GEP's operand 0 is the base
// pointer, operands[1:] are indices).
func (i *Instruction) Operands() []Operand { return i.operands }

func (i *Instruction) Operand(k int) Operand { return i.operands[k] }

func (i *Instruction) NumOperands() int { return len(i.operands) }

// Users returns the reverse use-def edges: every instruction that has this
// instruction as one of its operands, once per occurrence (invariant 2).
func (i *Instruction) Users() []*Instruction { return i.users }

func (i *Instruction) HasUsers() bool { return len(i.users) > 0 }

func (i *Instruction) Prev() *Instruction { return i.prev }
func (i *Instruction) Next() *Instruction { return i.next }

func (i *Instruction) IsTerminator() bool    { return i.Op.IsTerminator() }
func (i *Instruction) IsMemoryOp() bool      { return i.Op.IsMemoryOp() }
func (i *Instruction) IsCommutative() bool   { return i.Op.IsCommutative() }
func (i *Instruction) HasSideEffect() bool   { return i.Op.HasSideEffect() }
func (i *Instruction) IsPhi() bool           { return i.Op == OpPhi }
func (i *Instruction) IsVoid() bool          { return i.Type.Kind == KindVoid }

// setOperandsRaw installs the operand list without touching use-def edges;
// only the builder (which owns addUser/removeUser bookkeeping) may call
// this, right after allocating a fresh instruction with no prior operands.
func (i *Instruction) setOperandsRaw(ops []Operand) { i.operands = ops }

// Init is the use-def manager's entry point for filling in a freshly
// allocated instruction: it records the opcode, type and payload, then
// registers a reverse user edge on every operand in order (spec.md §4.C).
// irbuilder's constructors are the only callers.
func (i *Instruction) Init(id int, op Opcode, typ ValueType, payload Payload, operands []Operand) {
	i.id = id
	i.Op = op
	i.Type = typ
	i.Payload = payload
	i.setOperandsRaw(operands)
	for _, o := range operands {
		o.addUser(i)
	}
}

// AddOperand appends a new operand (used by variadic constructors like
// Phi and Call), registering its use-def edge.
func (i *Instruction) AddOperand(op Operand) {
	i.operands = append(i.operands, op)
	op.addUser(i)
}

// Clone returns a fresh, detached instruction with no operands/users/
// parent — irbuilder.Clone fills in operands via Init/AddOperand so the
// use-def manager sees the copy.
func (i *Instruction) Clone() *Instruction { return i.cloneBare() }

// SetOperand overwrites operand k, dropping the reverse edge to the old
// value and adding one to the new value — this is the only sanctioned way
// to mutate an operand in place (spec.md §4.C); hand-rolled patching of the
// operands slice is forbidden because it desyncs the user lists.
func (i *Instruction) SetOperand(k int, op Operand) {
	old := i.operands[k]
	old.removeUser(i)
	i.operands[k] = op
	op.addUser(i)
}

// RemoveOperandAt drops operand k entirely, dropping its reverse use-def
// edge and shifting every later operand down one index. A Phi's
// PhiPayload.Incoming slice is kept index-aligned with operands by
// convention (spec.md §4.C); callers removing an incoming edge (e.g.
// dropping a predecessor a CFG transform eliminated) must remove the
// matching Incoming entry themselves at the same index.
func (i *Instruction) RemoveOperandAt(k int) {
	i.operands[k].removeUser(i)
	i.operands = append(i.operands[:k], i.operands[k+1:]...)
}

func (i *Instruction) Format() string {
	if i.Payload != nil {
		return i.Payload.Format(i)
	}
	return i.Op.String()
}

// Clone produces a fresh, detached instruction with the same opcode, type
// and payload, but empty operands and no users/parent — the caller
// (irbuilder.Clone) is responsible for filling in operands via the use-def
// manager and inserting it into a block.
func (i *Instruction) cloneBare() *Instruction {
	c := &Instruction{Op: i.Op, Type: i.Type}
	if i.Payload != nil {
		c.Payload = i.Payload.Clone()
	}
	return c
}

// --- opcode-specific payloads ---

// ICmpPayload carries an ICmp's predicate and comparison type.
type ICmpPayload struct {
	Pred     ICmpOp
	CompType ValueType
}

func (p *ICmpPayload) Format(i *Instruction) string { return "icmp." + p.Pred.String() }
func (p *ICmpPayload) Clone() Payload               { c := *p; return &c }

// FCmpPayload carries an FCmp's predicate and comparison type.
type FCmpPayload struct {
	Pred     FCmpOp
	CompType ValueType
}

func (p *FCmpPayload) Format(i *Instruction) string { return "fcmp." + p.Pred.String() }
func (p *FCmpPayload) Clone() Payload               { c := *p; return &c }

// PhiEdge is one (value, predecessor) incoming pair of a Phi.
type PhiEdge struct {
	Value Operand
	Pred  *BasicBlock
}

// PhiPayload carries a Phi's incoming edges. Operand order tracks edge
// order 1:1 so use-def stays driven by the shared operands slice: operand k
// is Incoming[k].Value, Incoming[k].Pred is metadata alongside it.
type PhiPayload struct {
	Incoming []PhiEdge
}

func (p *PhiPayload) Format(i *Instruction) string { return "phi" }
func (p *PhiPayload) Clone() Payload {
	c := &PhiPayload{Incoming: make([]PhiEdge, len(p.Incoming))}
	copy(c.Incoming, p.Incoming)
	return c
}

// IncomingFor returns the value a Phi takes from predecessor pred, and
// whether such an edge exists.
func (i *Instruction) IncomingFor(pred *BasicBlock) (Operand, bool) {
	pp := i.Payload.(*PhiPayload)
	for k, e := range pp.Incoming {
		if e.Pred == pred {
			return i.operands[k], true
		}
	}
	return Operand{}, false
}

// AllocaPayload carries an Alloca's element type and element count (>1 for
// an array-of-count allocation, matching spec.md's Alloca(type, count)).
type AllocaPayload struct {
	ElemType ValueType
	Count    int
}

func (p *AllocaPayload) Format(i *Instruction) string { return "alloca " + p.ElemType.String() }
func (p *AllocaPayload) Clone() Payload               { c := *p; return &c }

// CallPayload carries a Call's callee function.
type CallPayload struct {
	Callee *Function
}

func (p *CallPayload) Format(i *Instruction) string { return "call @" + p.Callee.Name }
func (p *CallPayload) Clone() Payload                { c := *p; return &c }

// CastPayload carries a cast's source and destination type (Type already
// holds the destination; SrcType is kept for verification).
type CastPayload struct {
	SrcType ValueType
}

func (p *CastPayload) Format(i *Instruction) string { return i.Op.String() }
func (p *CastPayload) Clone() Payload                { c := *p; return &c }

// GEPPayload marks that operands[1:] are indices (constant or dynamic) into
// the pointee type of operands[0].
type GEPPayload struct {
	PointeeType ValueType
}

func (p *GEPPayload) Format(i *Instruction) string { return "getelementptr " + p.PointeeType.String() }
func (p *GEPPayload) Clone() Payload                { c := *p; return &c }

// simplePayload covers opcodes with no extra fields (arithmetic, Br, Ret,
// Load, Store): Format just names the opcode.
type simplePayload struct{}

func (simplePayload) Format(i *Instruction) string { return i.Op.String() }
func (simplePayload) Clone() Payload               { return simplePayload{} }

// SimplePayload is the shared Payload for opcodes with no extra fields.
func SimplePayload() Payload { return simplePayload{} }
