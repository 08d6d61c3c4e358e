package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// spearman computes the rank correlation between value and the numeric
// ordinal encoding of the group, with ties ranked as the mean of coequals.
// The p-value uses the t approximation on n-2 degrees of freedom.
func spearman(data *entityData, present []int) CorrelationRow {
	var xs, ys []float64
	for _, li := range present {
		for _, v := range data.byGroup[li] {
			xs = append(xs, float64(li))
			ys = append(ys, v)
		}
	}

	row := CorrelationRow{N: len(xs)}
	if len(xs) < 3 {
		row.Rho = math.NaN()
		row.PValue = math.NaN()
		return row
	}

	rho := stat.Correlation(tieAveragedRanks(xs), tieAveragedRanks(ys), nil)
	if rho > 1 {
		rho = 1
	} else if rho < -1 {
		rho = -1
	}
	row.Rho = rho

	n := float64(len(xs))
	if math.Abs(rho) >= 1 {
		row.PValue = 0
		return row
	}
	if math.IsNaN(rho) {
		row.PValue = math.NaN()
		return row
	}
	t := rho * math.Sqrt((n-2)/(1-rho*rho))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 2}
	row.PValue = 2 * dist.CDF(-math.Abs(t))
	return row
}

// tieAveragedRanks returns one-based sample ranks, averaging ties.
func tieAveragedRanks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	ranks := make([]float64, len(v))
	i := 0
	for i < len(idx) {
		j := i
		for j < len(idx) && v[idx[j]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}
	return ranks
}
