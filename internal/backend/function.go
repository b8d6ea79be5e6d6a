package backend

// Block is a basic block of backend instructions, named with a mangled
// `.LBB<addr>` label per spec.md §4.F (the selector assigns Label; blocks
// are emitted in the order they appear here, concatenated with their
// labels per spec.md §4.I).
type Block struct {
	Label *Label
	Insts []*Inst
}

func (b *Block) Append(i *Inst) { b.Insts = append(b.Insts, i) }

// Function is one compiled function's backend form: its blocks in layout
// order, its virtual-register count (for the physicalizer's slot
// allocator), and its final frame size once step 6 of physicalization has
// run (0 until then).
type Function struct {
	Name       string
	Blocks     []*Block
	NumVirtual int // usual virtuals; the generator numbers usual and float virtuals with separate counters
	NumFVirtual int
	FrameSize  uint32 // set by the physicalizer's stack/frame pass; 0 beforehand
}

func (f *Function) NewBlock(label *Label) *Block {
	b := &Block{Label: label}
	f.Blocks = append(f.Blocks, b)
	return b
}

// GlobalData is one module-level datum (spec.md §4.I): either fully zero
// (placed in .bss) or carrying an explicit byte layout (placed in .data),
// with sparse initializers recorded as (offset, bytes) pairs so the emitter
// can interleave `.zero` gaps around them.
type GlobalData struct {
	Name     string
	Size     int
	AllZero  bool
	Bytes    []InitChunk // explicit values at specific offsets; gaps are implicit zero
	ReadOnly bool
}

// InitChunk is one explicitly-initialized span within a GlobalData's byte
// layout: Data holds the raw little-endian bytes for that span, grouped
// into Width-byte elements (1/2/4/8) for internal/emit's directive choice
// (spec.md §4.I: "typed directives .byte/.short/.word/.dword/.float/
// .double/.zero"). Float indicates the elements are IEEE 754 bit patterns
// to print as `.float`/`.double` rather than integer `.word`/`.dword`.
type InitChunk struct {
	Offset int
	Data   []byte
	Width  int
	Float  bool
}

// Module is the whole compiled program in backend form, ready for
// physicalization and emission.
type Module struct {
	Functions []*Function
	Globals   []*GlobalData
	// Literals is the module-scope float literal pool, deduplicated by bit
	// pattern (spec.md §4.G: "Float literals are deduplicated by bit
	// pattern in a module-scope map").
	Literals map[Fmm]*Label
}

func NewModule() *Module {
	return &Module{Literals: make(map[Fmm]*Label)}
}

// InternFloat returns the rodata label for v, creating one if this exact
// bit pattern hasn't been seen yet in this module.
func (m *Module) InternFloat(v Fmm) *Label {
	if lbl, ok := m.Literals[v]; ok {
		return lbl
	}
	lbl := &Label{Name: literalName(len(m.Literals))}
	m.Literals[v] = lbl
	return lbl
}

func literalName(n int) string {
	const digits = "0123456789"
	if n == 0 {
		return ".LC0"
	}
	s := ""
	for n > 0 {
		s = string(digits[n%10]) + s
		n /= 10
	}
	return ".LC" + s
}
