// Package physicalize runs the deterministic rewrite pipeline that turns a
// selector.Lower result (backend insts still over virtual registers) into a
// function ready for internal/emit: every register physical, every memory
// reference a concrete sp-relative offset (spec.md §4.H).
//
// The eight steps run in the fixed order spec.md lists them, each over the
// whole function — mirroring internal/transform's style of small,
// single-purpose passes driven by one outer Run rather than one monolithic
// rewrite. The state machine spec.md names (Virtual → IllegalityFixed →
// RegPhysicalized → SavesInserted → StackLowered → OffsetLegal) is this
// function's call order, not a field tracked on each Inst: every pass's
// precondition is simply "every earlier step in Run has completed".
package physicalize

import (
	"github.com/CNCSMonster/duskphantom/internal/backend"
)

// maxUint32 bounds a function's frame size (spec.md §7: ResourceError
// "frame size exceeds u32").
const maxUint32 = int(^uint32(0))

// Run physicalizes f in place: every virtual register is spilled, callee/
// caller-save and ra bracketing is inserted, the stack frame is built, and
// every memory reference is resolved to a concrete sp-relative offset.
func Run(f *backend.Function) error {
	alloc := newSlotAlloc(f)

	if err := handleIllegalImmediates(f); err != nil {
		return err
	}
	physicalizeRegs(f, alloc)
	calleeSave(f, alloc)
	callerSave(f, alloc)
	raHandling(f, alloc)
	frameSize, err := buildFrame(f, alloc)
	if err != nil {
		return err
	}
	lowerMemoryPseudos(f, frameSize)
	fixOffsetOverflow(f)
	return nil
}
