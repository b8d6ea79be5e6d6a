package ir

import "github.com/CNCSMonster/duskphantom/internal/arena"

// Arena is the five-pool allocator backing one Module's worth of IR nodes
// (spec.md §4.A): one Pool per entity kind, cleared together at teardown.
type Arena struct {
	Insts   arena.Pool[Instruction]
	Blocks  arena.Pool[BasicBlock]
	Funcs   arena.Pool[Function]
	Globals arena.Pool[GlobalVariable]
	Params  arena.Pool[Parameter]
}

func NewArena() *Arena { return &Arena{} }

// Clear releases every node the arena has ever handed out. No handle
// obtained from this arena remains valid afterward (spec.md §4.A).
func (a *Arena) Clear() {
	a.Insts.Clear()
	a.Blocks.Clear()
	a.Funcs.Clear()
	a.Globals.Clear()
	a.Params.Clear()
}

// Module is a whole translation unit: an ordered list of globals and
// functions (index 0 is the entry/main function) plus the arena that owns
// every node reachable from them (spec.md §3).
type Module struct {
	Name    string
	Globals []*GlobalVariable
	Funcs   []*Function
	Arena   *Arena
}

func NewModule(name string) *Module {
	return &Module{Name: name, Arena: NewArena()}
}

func (m *Module) AddGlobal(g *GlobalVariable) { m.Globals = append(m.Globals, g) }
func (m *Module) AddFunc(f *Function)         { m.Funcs = append(m.Funcs, f) }

// FuncByName looks up a function by name, returning (nil, false) on miss —
// used by call-site resolution and the memset-intrinsic check.
func (m *Module) FuncByName(name string) (*Function, bool) {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Main returns the module's main function if present.
func (m *Module) Main() (*Function, bool) { return m.FuncByName("main") }
