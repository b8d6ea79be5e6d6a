package emit

import (
	"math"
	"strconv"
)

// floatDirectiveValue renders the IEEE 754 bit pattern v (width bytes, 4
// or 8) as the decimal float literal GNU as expects after `.float`/
// `.double` (spec.md §4.I).
func floatDirectiveValue(v uint64, width int) string {
	if width == 4 {
		f := math.Float32frombits(uint32(v))
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return strconv.FormatFloat(math.Float64frombits(v), 'g', -1, 64)
}
