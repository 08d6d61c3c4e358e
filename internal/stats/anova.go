package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// oneWayANOVA computes the omnibus F test across the given groups, treating
// group as a nominal factor.
func oneWayANOVA(groups [][]float64) ANOVARow {
	k := len(groups)
	n := 0
	var grand float64
	for _, g := range groups {
		n += len(g)
		for _, v := range g {
			grand += v
		}
	}
	grand /= float64(n)

	var ssBetween, ssWithin float64
	for _, g := range groups {
		m := mean(g)
		ssBetween += float64(len(g)) * (m - grand) * (m - grand)
		for _, v := range g {
			ssWithin += (v - m) * (v - m)
		}
	}

	dfB := k - 1
	dfW := n - k
	row := ANOVARow{DFBetween: dfB, DFWithin: dfW}

	if dfW <= 0 {
		row.F = math.NaN()
		row.PValue = math.NaN()
		return row
	}
	msB := ssBetween / float64(dfB)
	msW := ssWithin / float64(dfW)

	if msW == 0 {
		if msB == 0 {
			row.F = 0
			row.PValue = 1
			return row
		}
		// Zero within-group variance with separated means: the omnibus
		// test is as significant as it gets.
		row.F = math.Inf(1)
		row.PValue = 0
		return row
	}

	row.F = msB / msW
	dist := distuv.F{D1: float64(dfB), D2: float64(dfW)}
	row.PValue = 1 - dist.CDF(row.F)
	return row
}

func mean(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func variance(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	var s float64
	for _, x := range v {
		s += (x - m) * (x - m)
	}
	return s / float64(len(v)-1)
}
