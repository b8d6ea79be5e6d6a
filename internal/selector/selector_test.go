package selector

import (
	"testing"

	"github.com/CNCSMonster/duskphantom/internal/backend"
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

func TestLowerStraightLineFunction(t *testing.T) {
	b := irbuilder.New("m")
	f := b.NewFunction("addone", ir.Int(), []string{"x"}, []ir.ValueType{ir.Int()})
	entry := b.NewBlock(f, "entry")
	f.Entry = entry

	sum := b.Add(ir.Int(), ir.ParamOperand(f.Params[0]), ir.ConstOperand(ir.IntConst(1)))
	b.InsertAtEnd(entry, sum)
	sumOp := ir.InstOperand(sum)
	b.InsertAtEnd(entry, b.Ret(&sumOp))

	mod := backend.NewModule()
	out, err := Lower(f, mod)
	if err != nil {
		t.Fatalf("unexpected lowering error: %v", err)
	}
	if len(out.Blocks) != 1 {
		t.Fatalf("expected a single backend block, got %d", len(out.Blocks))
	}
	bb := out.Blocks[0]
	foundAdd, foundRet := false, false
	for _, i := range bb.Insts {
		if i.Op == backend.OpAdd {
			foundAdd = true
		}
		if i.Op == backend.OpRet {
			foundRet = true
		}
	}
	if !foundAdd || !foundRet {
		t.Fatalf("expected lowering to produce an add and a ret, got %+v", bb.Insts)
	}
}

func TestLowerDiamondResolvesPhiWithCopies(t *testing.T) {
	b := irbuilder.New("m")
	f := b.NewFunction("pick", ir.Int(), []string{"cond"}, []ir.ValueType{ir.Bool()})
	entry := b.NewBlock(f, "entry")
	left := b.NewBlock(f, "left")
	right := b.NewBlock(f, "right")
	join := b.NewBlock(f, "join")
	f.Entry = entry

	cond := ir.ParamOperand(f.Params[0])
	b.InsertAtEnd(entry, b.BrCond(cond))
	entry.AddSucc(left)
	entry.AddSucc(right)

	b.InsertAtEnd(left, b.BrUncond())
	left.AddSucc(join)
	b.InsertAtEnd(right, b.BrUncond())
	right.AddSucc(join)

	phi := b.Phi(ir.Int(), []ir.PhiEdge{
		{Value: ir.ConstOperand(ir.IntConst(1)), Pred: left},
		{Value: ir.ConstOperand(ir.IntConst(2)), Pred: right},
	})
	b.InsertAtEnd(join, phi)
	phiOp := ir.InstOperand(phi)
	b.InsertAtEnd(join, b.Ret(&phiOp))

	mod := backend.NewModule()
	out, err := Lower(f, mod)
	if err != nil {
		t.Fatalf("unexpected lowering error: %v", err)
	}
	if len(out.Blocks) != 4 {
		t.Fatalf("expected 4 backend blocks, got %d", len(out.Blocks))
	}
}
