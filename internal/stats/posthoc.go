package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// pairwiseTests runs two-sample pooled-SD t tests for every requested level
// pair (or all represented pairs when none are given), then applies the Holm
// family-wise adjustment across the family of comparisons for this entity.
// The reported difference is mean(GroupB) - mean(GroupA), with B the later
// ordinal level of the pair.
func pairwiseTests(data *entityData, levels []string, present []int, pairs [][2]string) []PairwiseRow {
	levelIndex := make(map[string]int, len(levels))
	for i, l := range levels {
		levelIndex[l] = i
	}

	type pair struct{ a, b int }
	var requested []pair
	if len(pairs) == 0 {
		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				requested = append(requested, pair{present[i], present[j]})
			}
		}
	} else {
		for _, p := range pairs {
			a, b := levelIndex[p[0]], levelIndex[p[1]]
			if a > b {
				a, b = b, a
			}
			if len(data.byGroup[a]) == 0 || len(data.byGroup[b]) == 0 {
				continue
			}
			requested = append(requested, pair{a, b})
		}
	}

	rows := make([]PairwiseRow, 0, len(requested))
	for _, p := range requested {
		ga, gb := data.byGroup[p.a], data.byGroup[p.b]
		t, pval := pooledTTest(ga, gb)
		rows = append(rows, PairwiseRow{
			GroupA:   levels[p.a],
			GroupB:   levels[p.b],
			MeanDiff: mean(gb) - mean(ga),
			T:        t,
			PValue:   pval,
		})
	}

	holmAdjust(rows)
	return rows
}

// pooledTTest returns the t statistic and two-sided p-value of a two-sample
// test with pooled standard deviation.
func pooledTTest(a, b []float64) (t, p float64) {
	na, nb := float64(len(a)), float64(len(b))
	df := na + nb - 2
	if df <= 0 {
		return math.NaN(), math.NaN()
	}
	pooled := ((na-1)*variance(a) + (nb-1)*variance(b)) / df
	se := math.Sqrt(pooled * (1/na + 1/nb))
	diff := mean(b) - mean(a)
	if se == 0 {
		if diff == 0 {
			return 0, 1
		}
		return math.Inf(sign(diff)), 0
	}
	t = diff / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return t, 2 * dist.CDF(-math.Abs(t))
}

// holmAdjust writes the Holm step-down family-wise adjusted p-values.
func holmAdjust(rows []PairwiseRow) {
	m := len(rows)
	if m == 0 {
		return
	}
	idx := make([]int, m)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return rows[idx[a]].PValue < rows[idx[b]].PValue })

	running := 0.0
	for rank, i := range idx {
		adj := float64(m-rank) * rows[i].PValue
		if adj > 1 {
			adj = 1
		}
		if adj < running {
			adj = running
		}
		running = adj
		rows[i].PAdjusted = adj
	}
}

func sign(x float64) int {
	if x < 0 {
		return -1
	}
	return 1
}
