package physicalize

import (
	"testing"

	"github.com/CNCSMonster/duskphantom/internal/backend"
)

func TestRunEliminatesVirtualsAndSetsFrame(t *testing.T) {
	f := &backend.Function{Name: "addone", NumVirtual: 2}
	entry := f.NewBlock(&backend.Label{Name: ".LBB0"})
	v1 := backend.VirtualReg(backend.RegUsual, 1)
	v2 := backend.VirtualReg(backend.RegUsual, 2)
	a0 := backend.PhysReg(backend.RegUsual, "a0")

	entry.Append(backend.Mv(v1, a0))
	entry.Append(backend.Li(v2, 1))
	sum := backend.VirtualReg(backend.RegUsual, 3)
	entry.Append(backend.Add(sum, v1, v2))
	entry.Append(backend.Mv(a0, sum))
	entry.Append(backend.Ret())

	if err := Run(f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.FrameSize == 0 || f.FrameSize%16 != 0 {
		t.Fatalf("expected a non-zero, 16-byte-aligned frame size, got %d", f.FrameSize)
	}
	for _, bb := range f.Blocks {
		for _, inst := range bb.Insts {
			for _, r := range inst.Defs() {
				if r.IsVirtual() {
					t.Fatalf("found virtual def after physicalization: %+v in %+v", r, inst)
				}
			}
			for _, r := range inst.Uses() {
				if r.IsVirtual() {
					t.Fatalf("found virtual use after physicalization: %+v in %+v", r, inst)
				}
			}
			if inst.Imm != nil {
				if !inst.Imm.InLimit(12) {
					t.Fatalf("found an out-of-range immediate that step 8 should have fixed: %+v", inst)
				}
			}
		}
	}
}

func TestRunInsertsRaSaveWhenFunctionCalls(t *testing.T) {
	f := &backend.Function{Name: "caller"}
	entry := f.NewBlock(&backend.Label{Name: ".LBB0"})
	entry.Append(backend.Call(&backend.Label{Name: "callee"}, backend.Reg{}, nil))
	entry.Append(backend.Ret())

	if err := Run(f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	foundRaStore := false
	for _, inst := range f.Blocks[0].Insts {
		if (inst.Op == backend.OpSd) && len(inst.In) == 2 && inst.In[0] == backend.PhysReg(backend.RegUsual, backend.Ra) {
			foundRaStore = true
		}
	}
	if !foundRaStore {
		t.Fatalf("expected ra to be saved since the function performs a call, got %+v", f.Blocks[0].Insts)
	}
}

func TestRunOmitsRaSaveWhenLeafFunction(t *testing.T) {
	f := &backend.Function{Name: "leaf"}
	entry := f.NewBlock(&backend.Label{Name: ".LBB0"})
	entry.Append(backend.Ret())

	if err := Run(f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, inst := range f.Blocks[0].Insts {
		if inst.Op == backend.OpSd && len(inst.In) == 2 && inst.In[0] == backend.PhysReg(backend.RegUsual, backend.Ra) {
			t.Fatalf("leaf function should not save ra, got %+v", f.Blocks[0].Insts)
		}
	}
}
