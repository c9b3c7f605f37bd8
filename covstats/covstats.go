// Package covstats computes summary statistics over a depth histogram.
// A Hist maps read depth to the number of bases observed at that depth; all
// functions treat it as a multiset of per-base depth observations.
// Statistics that are undefined for the given histogram (no data, or a trim
// window that collapses to zero width) return NaN rather than 0 so callers
// can tell "no value" from a real zero.
package covstats

import (
	"math"
	"sort"
)

// Hist maps depth to the count of bases at that depth.
type Hist map[int]int

// Size is the total number of bases in the histogram.
func Size(h Hist) int {
	size := 0
	for _, n := range h {
		size += n
	}
	return size
}

// depths returns the histogram keys in ascending depth order.
func depths(h Hist) []int {
	ds := make([]int, 0, len(h))
	for d := range h {
		ds = append(ds, d)
	}
	sort.Ints(ds)
	return ds
}

// Mean is the average depth over all bases.
func Mean(h Hist) float64 {
	var total uint64
	size := 0
	for d, n := range h {
		total += uint64(d) * uint64(n)
		size += n
	}
	if size == 0 {
		return math.NaN()
	}
	return float64(total) / float64(size)
}

// CoverageFraction is the fraction of bases with non-zero depth. A histogram
// with no depth-0 bin is fully covered.
func CoverageFraction(h Hist) float64 {
	z, ok := h[0]
	if !ok {
		return 1.0
	}
	size := Size(h)
	return float64(size-z) / float64(size)
}

// Percentile returns the pct'th percentile depth using the (size+1) plotting
// position with linear interpolation between adjacent bins.
func Percentile(h Hist, pct int) float64 {
	size := Size(h)
	if size == 0 {
		return math.NaN()
	}
	frac := float64(size+1) * float64(pct) / 100
	idx := int(frac)
	frac -= float64(idx)

	ds := depths(h)
	count := 0
	for i, d := range ds {
		count += h[d]
		if count < idx {
			continue
		}
		if count > idx || frac == 0 {
			return float64(d)
		}
		// interpolate into the next occupied bin.
		if i+1 == len(ds) {
			return float64(d)
		}
		return float64(d)*(1-frac) + float64(ds[i+1])*frac
	}
	return math.NaN()
}

// TrimmedMean is the mean depth after discarding (100-centerPercent)/2 percent
// of the bases from each tail. TrimmedMean(h, 100) equals Mean(h).
func TrimmedMean(h Hist, centerPercent int) float64 {
	size := Size(h)
	skip := int(float64(size) * (100 - float64(centerPercent)) / 200)
	if size-2*skip == 0 {
		return math.NaN()
	}

	var total uint64
	count := 0
	for _, d := range depths(h) {
		n := h[d]
		if count+n > size-skip {
			// this bin straddles the upper trim boundary.
			if count > skip {
				total += uint64(d) * uint64(size-skip-count)
			} else {
				// never left the lower trim section: every retained base
				// has this depth.
				return float64(d)
			}
			break
		}
		if count > skip {
			total += uint64(d) * uint64(n)
		} else if count+n > skip {
			// this bin straddles the lower trim boundary.
			total += uint64(d) * uint64(count+n-skip)
		}
		count += n
	}
	return float64(total) / float64(size-2*skip)
}
