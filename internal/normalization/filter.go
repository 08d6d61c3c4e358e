package normalization

import (
	"math"
	"sort"

	"rnaseqcli/internal/tables"
)

// filterByExpression computes the boolean keep mask over entities. An entity
// is kept when at least minSamples samples reach the CPM equivalent of
// MinCount in the median library, and its total count reaches MinTotalCount.
// minSamples is the smallest group size, so an entity expressed in only one
// group of interest is not discarded; for very large groups the threshold
// grows sub-linearly.
func filterByExpression(counts *tables.Matrix, groupLabels []string, libSizes []float64, opts Options) []bool {
	minSamples := smallestGroupSize(groupLabels)
	if minSamples > float64(opts.LargeSampleCount) {
		minSamples = float64(opts.LargeSampleCount) +
			(minSamples-float64(opts.LargeSampleCount))*opts.MinProportion
	}

	medianLib := median(libSizes)
	cpmCutoff := 0.0
	if medianLib > 0 {
		cpmCutoff = opts.MinCount / medianLib * 1e6
	}
	// Tolerance mirrors the usual practice of comparing against a slightly
	// relaxed sample threshold to absorb CPM rounding at small libraries.
	sampleThreshold := minSamples - 1e-14

	mask := make([]bool, counts.NEntities())
	for i := range mask {
		var passing int
		var total float64
		for j := 0; j < counts.NSamples(); j++ {
			v := counts.Value(i, j)
			total += v
			if libSizes[j] > 0 && v/libSizes[j]*1e6 >= cpmCutoff {
				passing++
			}
		}
		mask[i] = float64(passing) >= sampleThreshold && total >= opts.MinTotalCount-1e-14
	}
	return mask
}

// smallestGroupSize returns the size of the smallest non-empty group.
func smallestGroupSize(groupLabels []string) float64 {
	sizes := make(map[string]int)
	for _, g := range groupLabels {
		sizes[g]++
	}
	min := math.MaxInt
	for _, n := range sizes {
		if n < min {
			min = n
		}
	}
	if min == math.MaxInt {
		return 0
	}
	return float64(min)
}

// median returns the median of v without mutating it.
func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := make([]float64, len(v))
	copy(s, v)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
