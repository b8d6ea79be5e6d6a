package transform

import (
	"github.com/CNCSMonster/duskphantom/internal/ir"
	"github.com/CNCSMonster/duskphantom/internal/irbuilder"
)

// Level is an optimization level (spec.md §6's CLI `-O0`..`-O3`).
type Level int

const (
	LevelNone Level = iota
	LevelBasic
	LevelStandard
	LevelAggressive
)

// Run drives every pass enabled at level to a fixed point (spec.md §4.E:
// "an outer fixed-point loop up to a level-dependent cap; level 0 disables
// optimization entirely"). Per-function passes run to their own fixed
// point first; inlining then runs module-wide, and if it made progress the
// whole round repeats, since a freshly-inlined body is new material for
// constant folding, DCE and load elimination to work on.
func Run(b *irbuilder.Builder, level Level) {
	if level == LevelNone {
		return
	}
	for {
		changed := false
		for _, f := range b.Module.Funcs {
			if f.IsLib {
				continue
			}
			changed = runFunction(b, f, level) || changed
		}
		if level >= LevelAggressive {
			changed = Inline(b) || changed
		}
		if !changed {
			return
		}
	}
}

func runFunction(b *irbuilder.Builder, f *ir.Function, level Level) bool {
	any := false
	for {
		changed := false

		if level >= LevelBasic {
			changed = Mem2Reg(b, f) || changed
			changed = ConstantFold(b, f) || changed
			changed = DCE(b, f) || changed
		}

		if level >= LevelStandard {
			changed = LoadElim(b, f) || changed
			changed = StoreElim(b, f) || changed
			changed = Redundancy(b, f) || changed
			changed = BlockFuse(b, f) || changed
			changed = DCE(b, f) || changed
		}

		if level >= LevelAggressive {
			changed = LoopInvariantCodeMotion(b, f) || changed
			changed = LoopUnswitch(b, f) || changed
			changed = TrivialUnroll(b, f) || changed
			changed = DCE(b, f) || changed
		}

		if !changed {
			return any
		}
		any = true
	}
}
