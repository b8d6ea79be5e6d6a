package compile

import (
	"github.com/CNCSMonster/duskphantom/internal/analysis"
	"github.com/CNCSMonster/duskphantom/internal/ast"
	"github.com/CNCSMonster/duskphantom/internal/backend"
	"github.com/CNCSMonster/duskphantom/internal/emit"
	"github.com/CNCSMonster/duskphantom/internal/errors"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
	"github.com/CNCSMonster/duskphantom/internal/physicalize"
	"github.com/CNCSMonster/duskphantom/internal/selector"
	"github.com/CNCSMonster/duskphantom/internal/transform"
)

// Options configures one compilation (spec.md §6: "optimization level
// (0-3), output path, and flags for emission parallelism" — output path
// itself is the driver's concern, not this package's; Options carries only
// what shapes the assembly text).
type Options struct {
	Level         transform.Level
	Version       string
	GlobalWorkers int
	FuncWorkers   int
	// Verify runs analysis.Verify on every function once, after
	// transform.Run returns (spec.md §8's SSA invariants); off by default
	// since it's a debug aid, not part of the compile contract itself.
	Verify bool
}

// Module compiles one translation unit end to end: A→B→C (buildModule),
// D→E (transform.Run, using internal/analysis under the hood), E→G→F
// (selector.Lower per function, plus global lowering), F→H (physicalize.Run
// per function), H→I (emit.Module). Returns RV64GC assembly text or the
// first *errors.CompileError any stage raised.
func Module(mod *ast.Module, opts Options) (string, error) {
	b := irbuilder.New("m")
	globals, funcs, err := buildModule(mod, b)
	if err != nil {
		return "", err
	}

	transform.Run(b, opts.Level)

	if opts.Verify {
		for _, f := range b.Module.Funcs {
			if err := analysis.Verify(f); err != nil {
				return "", errors.Wrap(err, "verify", "SSA invariant violated after optimization")
			}
		}
	}

	bmod := backend.NewModule()
	for _, name := range sortedKeys(globals) {
		bmod.Globals = append(bmod.Globals, lowerGlobal(globals[name]))
	}

	for _, name := range sortedKeys(funcs) {
		f := funcs[name]
		if f.IsLib {
			continue
		}
		bf, err := selector.Lower(f, bmod)
		if err != nil {
			return "", errors.Wrap(err, "selector", "failed to lower function "+f.Name)
		}
		if err := physicalize.Run(bf); err != nil {
			return "", errors.Wrap(err, "physicalize", "failed to physicalize function "+f.Name)
		}
		bmod.Functions = append(bmod.Functions, bf)
	}

	text, err := emit.Module(bmod, emit.Options{
		Version:       opts.Version,
		GlobalWorkers: opts.GlobalWorkers,
		FuncWorkers:   opts.FuncWorkers,
	})
	if err != nil {
		return "", errors.Wrap(err, "emit", "failed to serialize module")
	}
	return text, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
