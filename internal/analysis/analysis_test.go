package analysis

import (
	"testing"

	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

// diamond builds entry -> {left, right} -> join, with a conditional branch
// in entry and unconditional branches into join; returns the function and
// its blocks in source order.
func diamond(b *irbuilder.Builder) (f *ir.Function, entry, left, right, join *ir.BasicBlock) {
	f = b.NewFunction("diamond", ir.Int(), []string{"cond"}, []ir.ValueType{ir.Bool()})
	entry = b.NewBlock(f, "entry")
	left = b.NewBlock(f, "left")
	right = b.NewBlock(f, "right")
	join = b.NewBlock(f, "join")
	f.Entry = entry

	cond := ir.ParamOperand(f.Params[0])
	br := b.BrCond(cond)
	b.InsertAtEnd(entry, br)
	entry.AddSucc(left)
	entry.AddSucc(right)

	bl := b.BrUncond()
	b.InsertAtEnd(left, bl)
	left.AddSucc(join)

	brr := b.BrUncond()
	b.InsertAtEnd(right, brr)
	right.AddSucc(join)

	ret := b.Ret(nil)
	b.InsertAtEnd(join, ret)
	return
}

func TestRPOVisitsEveryBlockOnce(t *testing.T) {
	b := irbuilder.New("m")
	f, entry, left, right, join := diamond(b)
	order := RPO(f)
	if len(order) != 4 {
		t.Fatalf("expected 4 blocks in RPO, got %d: %v", len(order), names(order))
	}
	if order[0] != entry {
		t.Fatalf("expected entry first, got %s", order[0].Name)
	}
	if order[len(order)-1] != join {
		t.Fatalf("expected join last, got %s", order[len(order)-1].Name)
	}
	seen := map[*ir.BasicBlock]bool{}
	for _, bb := range order {
		if seen[bb] {
			t.Fatalf("block %s visited twice", bb.Name)
		}
		seen[bb] = true
	}
	_ = left
	_ = right
}

func names(bs []*ir.BasicBlock) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Name
	}
	return out
}

func TestDomTreeDiamond(t *testing.T) {
	b := irbuilder.New("m")
	f, entry, left, right, join := diamond(b)
	dom := BuildDomTree(f)

	if !dom.Dominates(entry, left) || !dom.Dominates(entry, right) || !dom.Dominates(entry, join) {
		t.Fatalf("entry must dominate every block in the diamond")
	}
	if dom.DominatesStrict(left, join) {
		t.Fatalf("left must not dominate join (right is an alternate path)")
	}
	if dom.DominatesStrict(right, join) {
		t.Fatalf("right must not dominate join (left is an alternate path)")
	}
	if got := dom.IDom(join); got != entry {
		t.Fatalf("join's immediate dominator should be entry, got %v", got)
	}
}

func TestDominanceFrontierOfDiamond(t *testing.T) {
	b := irbuilder.New("m")
	f, _, left, right, join := diamond(b)
	dom := BuildDomTree(f)
	df := dom.Frontier()

	if !containsBlock(df[left], join) {
		t.Fatalf("left's dominance frontier should contain join")
	}
	if !containsBlock(df[right], join) {
		t.Fatalf("right's dominance frontier should contain join")
	}
}

func containsBlock(s []*ir.BasicBlock, b *ir.BasicBlock) bool {
	for _, x := range s {
		if x == b {
			return true
		}
	}
	return false
}

func TestVerifyAcceptsWellFormedDiamond(t *testing.T) {
	b := irbuilder.New("m")
	f, entry, left, right, join := diamond(b)

	// A phi in join merging a value defined in each arm exercises the
	// dominance + phi-completeness checks together.
	lv := b.Add(ir.Int(), ir.ConstOperand(ir.IntConst(1)), ir.ConstOperand(ir.IntConst(1)))
	b.InsertBefore(left.Terminator(), lv)
	rv := b.Add(ir.Int(), ir.ConstOperand(ir.IntConst(2)), ir.ConstOperand(ir.IntConst(2)))
	b.InsertBefore(right.Terminator(), rv)
	phi := b.Phi(ir.Int(), []ir.PhiEdge{
		{Value: ir.InstOperand(lv), Pred: left},
		{Value: ir.InstOperand(rv), Pred: right},
	})
	b.InsertAtEnd(join, phi)
	// re-InsertAtEnd would put phi after the ret; use InsertBefore instead.
	b.Detach(phi)
	b.InsertBefore(join.Terminator(), phi)

	if err := Verify(f); err != nil {
		t.Fatalf("expected a well-formed function to verify cleanly, got %v", err)
	}
	_ = entry
}

func TestVerifyRejectsIncompletePhi(t *testing.T) {
	b := irbuilder.New("m")
	f, _, left, _, join := diamond(b)

	lv := b.Add(ir.Int(), ir.ConstOperand(ir.IntConst(1)), ir.ConstOperand(ir.IntConst(1)))
	b.InsertBefore(left.Terminator(), lv)
	// Only one incoming edge for a block with two predecessors.
	phi := b.Phi(ir.Int(), []ir.PhiEdge{{Value: ir.InstOperand(lv), Pred: left}})
	b.InsertBefore(join.Terminator(), phi)

	if err := Verify(f); err == nil {
		t.Fatalf("expected Verify to reject a phi missing an incoming edge")
	}
}

func TestMemorySSAThreadsStoresThroughLoop(t *testing.T) {
	b := irbuilder.New("m")
	f := b.NewFunction("loop", ir.Void(), nil, nil)
	entry := b.NewBlock(f, "entry")
	header := b.NewBlock(f, "header")
	exit := b.NewBlock(f, "exit")
	f.Entry = entry

	alloca := b.Alloca(ir.Int(), 1)
	b.InsertAtEnd(entry, alloca)
	store0 := b.Store(ir.ConstOperand(ir.IntConst(0)), ir.InstOperand(alloca))
	b.InsertAtEnd(entry, store0)
	b.InsertAtEnd(entry, b.BrUncond())
	entry.AddSucc(header)

	load := b.Load(ir.InstOperand(alloca), ir.Int())
	b.InsertAtEnd(header, load)
	storeN := b.Store(ir.InstOperand(load), ir.InstOperand(alloca))
	b.InsertAtEnd(header, storeN)
	cond := ir.ConstOperand(ir.BoolConst(false))
	b.InsertAtEnd(header, b.BrCond(cond))
	header.AddSucc(header)
	header.AddSucc(exit)

	b.InsertAtEnd(exit, b.Ret(nil))

	mssa := Build(f)
	loadNode, ok := mssa.NodeFor(load)
	if !ok {
		t.Fatalf("expected a memory node for the loop's load")
	}
	if loadNode.Used == nil || loadNode.Used.Kind != MemPhi {
		t.Fatalf("load at a loop header with two predecessors should read a phi node, got %+v", loadNode.Used)
	}
	if !loadNode.Predictable {
		t.Fatalf("loading through an alloca should be predictable")
	}
	phi := loadNode.Used
	if len(phi.Incoming) != 2 {
		t.Fatalf("header's memory phi should have 2 incoming edges, got %d", len(phi.Incoming))
	}
}

func TestPredictableAddressRejectsDynamicIndex(t *testing.T) {
	b := irbuilder.New("m")
	f := b.NewFunction("f", ir.Void(), []string{"i"}, []ir.ValueType{ir.Int()})
	entry := b.NewBlock(f, "entry")
	f.Entry = entry

	arr := b.Alloca(ir.Int(), 4)
	b.InsertAtEnd(entry, arr)

	constIdx := b.GEP(ir.InstOperand(arr), ir.Int(), []ir.Operand{ir.ConstOperand(ir.IntConst(2))}, ir.Pointer(ir.Int()))
	b.InsertAtEnd(entry, constIdx)
	if !PredictableAddress(ir.InstOperand(constIdx)) {
		t.Fatalf("constant-index GEP off an alloca should be predictable")
	}

	dynIdx := b.GEP(ir.InstOperand(arr), ir.Int(), []ir.Operand{ir.ParamOperand(f.Params[0])}, ir.Pointer(ir.Int()))
	b.InsertAtEnd(entry, dynIdx)
	if PredictableAddress(ir.InstOperand(dynIdx)) {
		t.Fatalf("dynamic-index GEP should not be predictable")
	}
	b.InsertAtEnd(entry, b.Ret(nil))
}
