package emit

import "fmt"

// GenConstString and the other Gen* functions in this file are the small,
// directly-contracted assembly-generation utilities spec.md §8 seeds as
// literal expected outputs (vectors 1-5). They intentionally bypass the
// general GlobalData-driven Global(): a string literal carries no
// InitChunk layout at all, and a scalar word has no gap logic to run.
// Module's own globals still serialize through Global; these exist so the
// seeded contract stays checkable against exact text independent of how a
// real frontend happens to populate GlobalData.

// GenConstString renders spec.md §8 vector 1: a read-only string constant.
func GenConstString(name, value string) string {
	return fmt.Sprintf("\t.globl\t%s\n\t.section\t.rodata\n\t.align\t3\n%s:\n\t.string \"%s\"\n",
		name, name, value)
}

// GenWord renders spec.md §8 vector 2: a single 4-byte initialized word.
func GenWord(name string, v uint32) string {
	return fmt.Sprintf("\t.data\n\t.align\t3\n\t.globl\t%s\n\t.type\t%s, @object\n\t.size\t%s, 4\n%s:\n\t.word\t0x%x\n",
		name, name, name, name, v)
}

// ArrayInit is one explicit (index, value) pair in a GenArrayU32 call.
type ArrayInit struct {
	Index int
	Value uint32
}

// GenArrayU32 renders spec.md §8 vectors 3-5: a count-element u32 array,
// explicit entries in inits (sorted by Index), gaps filled by `.zero`. An
// array with no explicit entries at all is fully zero and goes to `.bss`
// (vector 5); otherwise it goes to `.data` with interleaved `.zero` gaps,
// and the run following the last explicit entry is always terminated by
// one final `.zero` — with a byte count if bytes remain, bare otherwise
// (vector 4).
func GenArrayU32(name string, count int, inits []ArrayInit) string {
	size := count * 4
	if len(inits) == 0 {
		return fmt.Sprintf("\t.bss\n\t.align\t3\n\t.globl\t%s\n\t.type\t%s, @object\n\t.size\t%s, %d\n%s:\n%s",
			name, name, name, size, name, zeroLine(size))
	}

	sorted := append([]ArrayInit(nil), inits...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Index > sorted[j].Index; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	var body string
	cursor := 0
	for _, in := range sorted {
		off := in.Index * 4
		if gap := off - cursor; gap > 0 {
			body += zeroLine(gap)
		}
		body += fmt.Sprintf("\t.word\t0x%x\n", in.Value)
		cursor = off + 4
	}
	body += zeroLine(size - cursor)

	return fmt.Sprintf("\t.data\n\t.align\t3\n\t.globl\t%s\n\t.type\t%s, @object\n\t.size\t%s, %d\n%s:\n%s",
		name, name, name, size, name, body)
}
