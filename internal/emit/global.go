package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/CNCSMonster/duskphantom/internal/backend"
)

// Global serializes one GlobalData (spec.md §4.I): section choice by
// AllZero/ReadOnly, alignment/globl/type/size header, label, then typed
// value directives interleaved with `.zero` gaps. Each initialized span
// is followed by a final gap directive once the last explicit span is
// placed — with a numeric byte count if bytes remain, or bare `.zero`
// (no operand) if the array's explicit initializers already cover every
// byte, matching spec.md §8 vector 4's "trailing zero bytes collapse to
// bare `.zero`" rather than omitting the directive outright.
func Global(g *backend.GlobalData) (string, error) {
	var b strings.Builder

	if g.AllZero {
		b.WriteString("\t.bss\n")
		b.WriteString("\t.align\t3\n")
		fmt.Fprintf(&b, "\t.globl\t%s\n", g.Name)
		fmt.Fprintf(&b, "\t.type\t%s, @object\n", g.Name)
		fmt.Fprintf(&b, "\t.size\t%s, %d\n", g.Name, g.Size)
		b.WriteString(g.Name + ":\n")
		b.WriteString(zeroLine(g.Size))
		return b.String(), nil
	}

	if g.ReadOnly {
		b.WriteString("\t.section\t.rodata\n")
	} else {
		b.WriteString("\t.data\n")
	}
	b.WriteString("\t.align\t3\n")
	fmt.Fprintf(&b, "\t.globl\t%s\n", g.Name)
	fmt.Fprintf(&b, "\t.type\t%s, @object\n", g.Name)
	fmt.Fprintf(&b, "\t.size\t%s, %d\n", g.Name, g.Size)
	b.WriteString(g.Name + ":\n")

	sorted := append([]backend.InitChunk(nil), g.Bytes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	cursor := 0
	for _, ch := range sorted {
		if gap := ch.Offset - cursor; gap > 0 {
			b.WriteString(zeroLine(gap))
		}
		b.WriteString(chunkDirectives(ch))
		cursor = ch.Offset + len(ch.Data)
	}
	b.WriteString(zeroLine(g.Size - cursor))
	return b.String(), nil
}

// zeroLine renders a `.zero` gap directive; a zero byte count elides the
// operand rather than omitting the line (spec.md §4.I, §8 vector 4).
func zeroLine(n int) string {
	if n <= 0 {
		return "\t.zero\n"
	}
	return fmt.Sprintf("\t.zero\t%d\n", n)
}

// chunkDirectives renders one InitChunk as one or more typed value
// directives, Width bytes per line (spec.md §4.I: `.byte/.short/.word/
// .dword/.float/.double`).
func chunkDirectives(ch backend.InitChunk) string {
	width := ch.Width
	if width == 0 {
		width = len(ch.Data)
	}
	var b strings.Builder
	for off := 0; off+width <= len(ch.Data); off += width {
		elem := ch.Data[off : off+width]
		b.WriteString(directiveLine(elem, width, ch.Float))
	}
	return b.String()
}

func directiveLine(bytesLE []byte, width int, float bool) string {
	v := leToUint64(bytesLE)
	if float {
		if width == 4 {
			return fmt.Sprintf("\t.float\t%s\n", floatDirectiveValue(v, 4))
		}
		return fmt.Sprintf("\t.double\t%s\n", floatDirectiveValue(v, 8))
	}
	switch width {
	case 1:
		return fmt.Sprintf("\t.byte\t0x%x\n", v)
	case 2:
		return fmt.Sprintf("\t.short\t0x%x\n", v)
	case 8:
		return fmt.Sprintf("\t.dword\t0x%x\n", v)
	default:
		return fmt.Sprintf("\t.word\t0x%x\n", v)
	}
}

func leToUint64(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
