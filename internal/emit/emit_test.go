package emit

import (
	"strings"
	"testing"

	"github.com/CNCSMonster/duskphantom/internal/backend"
)

func TestGenConstStringMatchesSeedVector(t *testing.T) {
	got := GenConstString("hello", "world")
	want := "\t.globl\thello\n\t.section\t.rodata\n\t.align\t3\nhello:\n\t.string \"world\"\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestGenWordMatchesSeedVector(t *testing.T) {
	got := GenWord("hello", 0x12345678)
	if !strings.Contains(got, "\t.word\t0x12345678\n") {
		t.Fatalf("missing word directive: %q", got)
	}
	if !strings.Contains(got, "\t.size\thello, 4\n") {
		t.Fatalf("missing size directive: %q", got)
	}
	if !strings.HasPrefix(got, "\t.data\n") {
		t.Fatalf("expected .data section, got %q", got)
	}
}

func TestGenArrayU32LeadingAndBareTrailingZero(t *testing.T) {
	got := GenArrayU32("arr", 4, []ArrayInit{{Index: 2, Value: 1}, {Index: 3, Value: 0}})
	want := "\t.data\n\t.align\t3\n\t.globl\tarr\n\t.type\tarr, @object\n\t.size\tarr, 16\narr:\n" +
		"\t.zero\t8\n\t.word\t0x1\n\t.word\t0x0\n\t.zero\n"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenArrayU32ThreeWordsTrailingGap(t *testing.T) {
	got := GenArrayU32("hello", 10, []ArrayInit{{0, 1}, {1, 2}, {2, 3}})
	if !strings.Contains(got, "\t.zero\t28\n") {
		t.Fatalf("expected trailing zero 28: %q", got)
	}
	if strings.Count(got, ".word") != 3 {
		t.Fatalf("expected 3 word directives: %q", got)
	}
}

func TestGenArrayU32AllZeroGoesToBss(t *testing.T) {
	got := GenArrayU32("arr", 2, nil)
	want := "\t.bss\n\t.align\t3\n\t.globl\tarr\n\t.type\tarr, @object\n\t.size\tarr, 8\narr:\n\t.zero\t8\n"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestGlobalAllZeroUsesBss(t *testing.T) {
	got, err := Global(&backend.GlobalData{Name: "buf", Size: 16, AllZero: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "\t.bss\n") {
		t.Fatalf("expected .bss, got %q", got)
	}
}

func TestFuncRendersTrivialReturn(t *testing.T) {
	f := &backend.Function{Name: "answer"}
	blk := f.NewBlock(&backend.Label{Name: ".LBB0"})
	a0 := backend.PhysReg(backend.RegUsual, "a0")
	blk.Append(backend.Li(a0, 0))
	blk.Append(&backend.Inst{Op: backend.OpRet})

	got, err := Func(f)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "\tli\ta0, 0\n") {
		t.Fatalf("missing li: %q", got)
	}
	if !strings.Contains(got, "\tret\n") {
		t.Fatalf("missing ret: %q", got)
	}
	if !strings.Contains(got, "\t.size\tanswer, .-answer\n") {
		t.Fatalf("missing size: %q", got)
	}
}

func buildSampleModule() *backend.Module {
	mod := backend.NewModule()
	mod.Globals = append(mod.Globals,
		&backend.GlobalData{Name: "g1", Size: 8, AllZero: true},
		&backend.GlobalData{Name: "g2", Size: 4, Bytes: []backend.InitChunk{{Offset: 0, Data: []byte{1, 0, 0, 0}, Width: 4}}},
	)
	for _, name := range []string{"cFunc", "aFunc", "bFunc"} {
		f := &backend.Function{Name: name}
		blk := f.NewBlock(&backend.Label{Name: ".LBB0"})
		blk.Append(backend.Li(backend.PhysReg(backend.RegUsual, "a0"), 1))
		blk.Append(&backend.Inst{Op: backend.OpRet})
		mod.Functions = append(mod.Functions, f)
	}
	return mod
}

func TestModuleEmissionIsDeterministicAcrossWorkerCounts(t *testing.T) {
	mod := buildSampleModule()
	seq, err := Module(mod, Options{Version: "test", GlobalWorkers: 1, FuncWorkers: 1})
	if err != nil {
		t.Fatal(err)
	}
	par, err := Module(mod, Options{Version: "test", GlobalWorkers: 8, FuncWorkers: 8})
	if err != nil {
		t.Fatal(err)
	}
	if seq != par {
		t.Fatalf("sequential and parallel emission diverged:\n--- sequential ---\n%s\n--- parallel ---\n%s", seq, par)
	}
	if !strings.Contains(seq, "aFunc:\n") || !strings.Contains(seq, "bFunc:\n") || !strings.Contains(seq, "cFunc:\n") {
		t.Fatalf("missing function labels: %q", seq)
	}
	aIdx := strings.Index(seq, "aFunc:")
	bIdx := strings.Index(seq, "bFunc:")
	cIdx := strings.Index(seq, "cFunc:")
	if !(aIdx < bIdx && bIdx < cIdx) {
		t.Fatalf("functions not emitted in sorted-name order: a=%d b=%d c=%d", aIdx, bIdx, cIdx)
	}
}
