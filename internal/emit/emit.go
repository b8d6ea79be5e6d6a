// Package emit serializes a physicalized backend.Module into RV64GC
// assembly text (spec.md §4.I). Formatting itself is pure and
// single-threaded per global/function; Module fans that work out across a
// configurable worker count using golang.org/x/sync/errgroup, matching
// spec.md §5's "a worker pool formats globals in parallel and,
// independently, formats functions in parallel... strings are then joined
// in a deterministic order."
package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/CNCSMonster/duskphantom/internal/backend"
	"golang.org/x/sync/errgroup"
)

// Options configures emission (spec.md §6: CLI flags for emission
// parallelism; §5: "a value ≤ 1 forces the sequential path with identical
// output").
type Options struct {
	Version       string
	GlobalWorkers int
	FuncWorkers   int
}

// Module serializes mod to a single assembly text document.
func Module(mod *backend.Module, opts Options) (string, error) {
	var b strings.Builder
	b.WriteString(fileHeader())

	globalTexts, err := renderAll(mod.Globals, opts.GlobalWorkers, Global)
	if err != nil {
		return "", err
	}
	for _, t := range globalTexts {
		b.WriteString(t)
	}

	funcs := make([]*backend.Function, len(mod.Functions))
	copy(funcs, mod.Functions)
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Name < funcs[j].Name })

	funcTexts, err := renderAll(funcs, opts.FuncWorkers, Func)
	if err != nil {
		return "", err
	}
	for _, t := range funcTexts {
		b.WriteString(t)
	}

	if len(mod.Literals) > 0 {
		lits := make([]backend.Fmm, 0, len(mod.Literals))
		for v := range mod.Literals {
			lits = append(lits, v)
		}
		sort.Slice(lits, func(i, j int) bool { return mod.Literals[lits[i]].Name < mod.Literals[lits[j]].Name })
		b.WriteString("\t.section\t.rodata\n\t.align\t3\n")
		for _, v := range lits {
			fmt.Fprintf(&b, "%s:\n\t.dword\t0x%x\n", mod.Literals[v].Name, v.Bits)
		}
	}

	b.WriteString(fileFooter(opts.Version))
	return b.String(), nil
}

// renderAll formats each item with render, in index order regardless of
// which worker finishes first — join order stays deterministic no matter
// the worker count (spec.md §8: "Emitter determinism").
func renderAll[T any](items []T, workers int, render func(T) (string, error)) ([]string, error) {
	out := make([]string, len(items))
	if workers <= 1 || len(items) <= 1 {
		for i, it := range items {
			s, err := render(it)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			s, err := render(it)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
