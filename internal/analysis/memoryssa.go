package analysis

import (
	"fmt"

	"github.com/CNCSMonster/duskphantom/internal/ir"
)

// MemNodeKind distinguishes the three node shapes of the Memory-SSA overlay
// (spec.md §4.D): the function's initial heap state, a merge point, or one
// load/store/escaping-call site.
type MemNodeKind int

const (
	MemEntry MemNodeKind = iota
	MemPhi
	MemNormal
)

// MemNode is one node of the Memory-SSA graph overlaid on an IR function.
// Load's node is a use only (Used points at the version it reads; the node
// itself is never cited as anyone else's Used). Store's and Call's node is
// both a use of the prior version and a def of a new one.
type MemNode struct {
	Kind        MemNodeKind
	Block       *ir.BasicBlock  // Entry, Phi
	Incoming    []*MemNode      // Phi: one slot per Block.Preds, same order
	Used        *MemNode        // Normal: the reaching def this node reads/overwrites
	OwnerInst   *ir.Instruction // Normal: the Load/Store/Call
	Predictable bool            // Normal: address is a constant-index GEP/alloca/global chain
	users       []*MemNode      // reverse edges: nodes whose Used/Incoming cites this node
}

// MemorySSA is the built overlay for one function. It is partitioned by
// alias root (spec.md §4.D: "distinct allocations and distinct globals do
// not alias; constant-index GEPs into disjoint subtrees do not alias"):
// each distinct (base, constant-index-path) gets its own independent
// version stream, and any store or call through an address that doesn't
// resolve to one of those — a dynamic index, a pointer of unknown origin —
// conservatively clobbers every stream at once.
type MemorySSA struct {
	ByInst map[*ir.Instruction]*MemNode
}

// NodeFor returns the memory node for a Load/Store/Call instruction.
func (m *MemorySSA) NodeFor(inst *ir.Instruction) (*MemNode, bool) {
	n, ok := m.ByInst[inst]
	return n, ok
}

// Users returns every node whose Used (or, for a Phi, Incoming) field
// cites n — the reverse edges of the overlay graph.
func (n *MemNode) Users() []*MemNode { return n.users }

// IsDef reports whether n produces a new memory version (Entry/Phi always
// do; a Normal node does iff its owner is a Store or Call — a Load's node
// is a pure use).
func (n *MemNode) IsDef() bool {
	if n.Kind != MemNormal {
		return true
	}
	return n.OwnerInst.Op == ir.OpStore || n.OwnerInst.Op == ir.OpCall
}

// unknownRoot is the conservative bucket every unpredictable address and
// every call reads from and writes into, alongside whatever specific root
// it also touches. No legitimate root key collides with it: a real key
// always starts with 'a' (alloca) or 'g' (global).
const unknownRoot = "*"

type phiKey struct {
	block *ir.BasicBlock
	root  string
}

// Build constructs the Memory-SSA overlay for f. Construction is two pass:
// every block with more than one predecessor gets an (initially empty) phi
// per known alias root up front, so loop back-edges have somewhere to
// point; a single RPO walk then threads each root's current version
// through the instructions that touch it, and finally every phi's
// Incoming slots are backfilled from each predecessor's recorded exit
// state. No phi is pruned — cheap to build, conservative to consume.
func Build(f *ir.Function) *MemorySSA {
	order := RPO(f)
	m := &MemorySSA{ByInst: make(map[*ir.Instruction]*MemNode)}
	if len(order) == 0 {
		return m
	}

	roots := map[string]bool{}
	for _, bb := range order {
		bb.Walk(func(inst *ir.Instruction) bool {
			switch inst.Op {
			case ir.OpLoad:
				if r, ok := resolveRoot(inst.Operand(0)); ok {
					roots[r] = true
				}
			case ir.OpStore:
				if r, ok := resolveRoot(inst.Operand(1)); ok {
					roots[r] = true
				}
			}
			return true
		})
	}

	entry := &MemNode{Kind: MemEntry, Block: f.Entry}

	phis := make(map[phiKey]*MemNode)
	for _, bb := range order {
		if len(bb.Preds) <= 1 {
			continue
		}
		for r := range roots {
			phis[phiKey{bb, r}] = &MemNode{Kind: MemPhi, Block: bb, Incoming: make([]*MemNode, len(bb.Preds))}
		}
		phis[phiKey{bb, unknownRoot}] = &MemNode{Kind: MemPhi, Block: bb, Incoming: make([]*MemNode, len(bb.Preds))}
	}

	exitState := make(map[*ir.BasicBlock]map[string]*MemNode)

	for _, bb := range order {
		cur := make(map[string]*MemNode, len(roots)+1)
		switch {
		case bb == f.Entry:
			for r := range roots {
				cur[r] = entry
			}
			cur[unknownRoot] = entry
		case len(bb.Preds) == 1:
			for r, n := range exitState[bb.Preds[0]] {
				cur[r] = n
			}
		default:
			for r := range roots {
				cur[r] = phis[phiKey{bb, r}]
			}
			cur[unknownRoot] = phis[phiKey{bb, unknownRoot}]
		}

		bb.Walk(func(inst *ir.Instruction) bool {
			switch inst.Op {
			case ir.OpLoad:
				r, ok := resolveRoot(inst.Operand(0))
				used := cur[unknownRoot]
				if ok {
					used = cur[r]
				}
				n := &MemNode{Kind: MemNormal, Used: used, OwnerInst: inst, Predictable: ok}
				used.addUser(n)
				m.ByInst[inst] = n
			case ir.OpStore:
				r, ok := resolveRoot(inst.Operand(1))
				if ok {
					used := cur[r]
					n := &MemNode{Kind: MemNormal, Used: used, OwnerInst: inst, Predictable: true}
					used.addUser(n)
					m.ByInst[inst] = n
					cur[r] = n
				} else {
					used := cur[unknownRoot]
					n := &MemNode{Kind: MemNormal, Used: used, OwnerInst: inst}
					used.addUser(n)
					m.ByInst[inst] = n
					clobberAll(cur, n)
				}
			case ir.OpCall:
				// No callee in this IR is ever marked alias-free, so every
				// call conservatively reads and redefines every root.
				used := cur[unknownRoot]
				n := &MemNode{Kind: MemNormal, Used: used, OwnerInst: inst}
				used.addUser(n)
				m.ByInst[inst] = n
				clobberAll(cur, n)
			}
			return true
		})
		exitState[bb] = cur
	}

	for key, phi := range phis {
		for i, p := range key.block.Preds {
			if v, ok := exitState[p][key.root]; ok {
				phi.Incoming[i] = v
				v.addUser(phi)
			}
		}
	}
	return m
}

func clobberAll(cur map[string]*MemNode, n *MemNode) {
	for r := range cur {
		cur[r] = n
	}
}

func (n *MemNode) addUser(u *MemNode) {
	if n == nil {
		return
	}
	n.users = append(n.users, u)
}

// RemoveUse detaches a Load's (or other pure-use) node from the graph: the
// node stops being counted among its Used def's users. Callers eliminating
// a load after folding it to an earlier value call this before discarding
// the node.
func RemoveUse(n *MemNode) {
	if n.Used == nil {
		return
	}
	kept := n.Used.users[:0]
	for _, u := range n.Used.users {
		if u != n {
			kept = append(kept, u)
		}
	}
	n.Used.users = kept
}

// PredictableAddress reports whether ptr resolves to a statically known
// storage location: an alloca or global base indexed exclusively by
// constant GEP offsets. Anything else (a dynamic index, a loaded pointer,
// a function argument) is conservatively unpredictable, per spec.md §4.D's
// load-elimination precondition.
func PredictableAddress(ptr ir.Operand) bool {
	_, ok := resolveRoot(ptr)
	return ok
}

// resolveRoot walks ptr back through constant-index GEPs to its ultimate
// alloca or global base and returns a key identifying that exact element:
// same base and same index path means the same object, so disjoint index
// paths under the same base — spec.md §4.D's "constant-index GEPs into
// disjoint subtrees do not alias" — naturally get distinct Memory-SSA
// streams instead of being lumped into one per-allocation stream.
func resolveRoot(ptr ir.Operand) (string, bool) {
	switch ptr.Kind {
	case ir.OperandGlobal:
		return fmt.Sprintf("g%p", ptr.Glob), true
	case ir.OperandInstruction:
		inst := ptr.Inst
		switch inst.Op {
		case ir.OpAlloca:
			return fmt.Sprintf("a%p", inst), true
		case ir.OpGetElementPtr:
			base, ok := resolveRoot(inst.Operand(0))
			if !ok {
				return "", false
			}
			for i := 1; i < inst.NumOperands(); i++ {
				op := inst.Operand(i)
				if op.Kind != ir.OperandConstant {
					return "", false
				}
				base += fmt.Sprintf(",%d", op.Const.I)
			}
			return base, true
		}
	}
	return "", false
}
