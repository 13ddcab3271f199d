package engine

import (
	"math"
	"sort"
)

// quantile returns the q-th quantile of values by linear interpolation
// between order statistics at position (n-1)*q. NaN entries are excluded from
// the sample; an empty sample yields NaN, and a NaN threshold keeps no
// candidates. The interpolation convention is load-bearing; do not swap in a
// nearest-rank or midpoint variant.
func quantile(values []float64, q float64) float64 {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return math.NaN()
	}
	sort.Float64s(valid)

	pos := float64(len(valid)-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return valid[lo]
	}
	frac := pos - float64(lo)
	return valid[lo] + frac*(valid[hi]-valid[lo])
}
