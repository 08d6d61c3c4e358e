package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// linearTrend fits value as a linear function of the group's ordinal level
// index and reports the slope coefficient; the intercept is excluded from
// the reported output.
func linearTrend(data *entityData, present []int) CoefficientRow {
	var xs, ys []float64
	for _, li := range present {
		for _, v := range data.byGroup[li] {
			xs = append(xs, float64(li))
			ys = append(ys, v)
		}
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	row := CoefficientRow{Term: "group_index", Estimate: beta}

	n := float64(len(xs))
	df := n - 2
	if df <= 0 {
		row.StdErr = math.NaN()
		row.T = math.NaN()
		row.PValue = math.NaN()
		return row
	}

	xMean := mean(xs)
	var rss, sxx float64
	for i := range xs {
		fit := alpha + beta*xs[i]
		rss += (ys[i] - fit) * (ys[i] - fit)
		sxx += (xs[i] - xMean) * (xs[i] - xMean)
	}
	if sxx == 0 {
		row.StdErr = math.NaN()
		row.T = math.NaN()
		row.PValue = math.NaN()
		return row
	}

	se := math.Sqrt(rss / df / sxx)
	row.StdErr = se
	if se == 0 {
		if beta == 0 {
			row.T = 0
			row.PValue = 1
			return row
		}
		row.T = math.Inf(sign(beta))
		row.PValue = 0
		return row
	}

	row.T = beta / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	row.PValue = 2 * dist.CDF(-math.Abs(row.T))
	return row
}
