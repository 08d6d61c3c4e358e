package normalization

import (
	"math"
	"sort"

	"rnaseqcli/internal/tables"
)

// tmmFactors computes a trimmed-mean-of-M-values scale normalization factor
// per sample so that systematic composition differences between samples are
// corrected. libSizes must come from the unfiltered counts. The returned
// factors are rescaled so their logs average zero.
//
// Robinson & Oshlack, "A scaling normalization method for differential
// expression analysis of RNA-seq data", Genome Biology 2010.
func tmmFactors(counts *tables.Matrix, libSizes []float64, opts Options) []float64 {
	n := counts.NSamples()
	factors := make([]float64, n)
	for j := range factors {
		factors[j] = 1
	}
	if n < 2 || counts.NEntities() == 0 {
		return factors
	}

	cols := sampleColumns(counts)
	ref := opts.RefColumn
	if ref < 0 || ref >= n {
		ref = referenceColumn(cols, libSizes)
	}

	for j := 0; j < n; j++ {
		factors[j] = pairFactor(cols[j], cols[ref], libSizes[j], libSizes[ref], opts)
	}
	return rescaleLogMeanZero(factors)
}

// sampleColumns extracts the per-sample count vectors.
func sampleColumns(counts *tables.Matrix) [][]float64 {
	cols := make([][]float64, counts.NSamples())
	for j := range cols {
		col := make([]float64, counts.NEntities())
		for i := range col {
			col[i] = counts.Value(i, j)
		}
		cols[j] = col
	}
	return cols
}

// referenceColumn picks the sample whose upper quartile of size-normalized
// counts is closest to the mean upper quartile.
func referenceColumn(cols [][]float64, libSizes []float64) int {
	q75 := make([]float64, len(cols))
	var mean float64
	for j, col := range cols {
		scaled := make([]float64, 0, len(col))
		for _, v := range col {
			if libSizes[j] > 0 {
				scaled = append(scaled, v/libSizes[j])
			}
		}
		q75[j] = quantileR7(scaled, 0.75)
		mean += q75[j]
	}
	mean /= float64(len(q75))

	ref := 0
	best := math.Abs(q75[0] - mean)
	for j := 1; j < len(q75); j++ {
		if d := math.Abs(q75[j] - mean); d < best {
			best = d
			ref = j
		}
	}
	return ref
}

// pairFactor computes the TMM factor of one sample against the reference.
func pairFactor(obs, ref []float64, obsLib, refLib float64, opts Options) float64 {
	if obsLib <= 0 || refLib <= 0 {
		return 1
	}
	identical := true
	for i := range obs {
		if obs[i] != ref[i] {
			identical = false
			break
		}
	}
	if identical {
		return 1
	}

	var logRatios, absIntensities, variances []float64
	for i := range obs {
		po := obs[i] / obsLib
		pr := ref[i] / refLib
		m := math.Log2(po / pr)
		a := math.Log2(po*pr) / 2
		if a < opts.ACutoff || math.IsInf(m, 0) || math.IsNaN(m) || math.IsInf(a, 0) || math.IsNaN(a) {
			continue
		}
		logRatios = append(logRatios, m)
		absIntensities = append(absIntensities, a)
		if opts.Weighted {
			variances = append(variances,
				(obsLib-obs[i])/(obsLib*obs[i])+(refLib-ref[i])/(refLib*ref[i]))
		}
	}
	if len(logRatios) == 0 {
		return 1
	}

	n := float64(len(logRatios))
	loM := math.Floor(n * opts.LogRatioTrim)
	hiM := n - loM - 1
	loA := math.Floor(n * opts.SumTrim)
	hiA := n - loA - 1

	rankM := tieRanks(logRatios)
	rankA := tieRanks(absIntensities)

	var num, den float64
	for i := range logRatios {
		if rankM[i] < loM || rankM[i] > hiM || rankA[i] < loA || rankA[i] > hiA {
			continue
		}
		if opts.Weighted {
			num += logRatios[i] / variances[i]
			den += 1 / variances[i]
		} else {
			num += logRatios[i]
			den++
		}
	}
	if den == 0 {
		return 1
	}
	f := math.Pow(2, num/den)
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 1
	}
	return f
}

// rescaleLogMeanZero divides the factors by the exponential of their mean
// log so the factors multiply to one.
func rescaleLogMeanZero(factors []float64) []float64 {
	var sumLog float64
	for _, f := range factors {
		sumLog += math.Log(f)
	}
	scale := math.Exp(sumLog / float64(len(factors)))
	out := make([]float64, len(factors))
	for i, f := range factors {
		out[i] = f / scale
	}
	return out
}

// tieRanks returns zero-based sample ranks, averaging ties.
func tieRanks(v []float64) []float64 {
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
		avg := float64(i+j-1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}
	return ranks
}

// quantileR7 returns the pth quantile under the R-7 estimator.
func quantileR7(v []float64, p float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := make([]float64, len(v))
	copy(s, v)
	sort.Float64s(s)
	if p >= 1 {
		return s[len(s)-1]
	}
	h := float64(len(s)-1) * p
	i := int(h)
	return s[i] + (h-math.Floor(h))*(s[i+1]-s[i])
}
