package activity

import (
	"fmt"
	"math"

	"rnaseqcli/internal/tables"
)

// WeightedMeanScorer is the built-in scorer: the weight-signed mean of
// (optionally row-standardized) target expression per sample. External
// algorithms plug in through the Scorer interface instead.
type WeightedMeanScorer struct{}

// Score implements Scorer.
func (WeightedMeanScorer) Score(regulator string, targets []Target, expr *tables.Matrix, opts Options) ([]float64, error) {
	scores := make([]float64, expr.NSamples())
	var norm float64
	for _, t := range targets {
		i := expr.EntityIndex(t.Entity)
		if i < 0 {
			continue
		}
		row := expr.Row(i)
		if opts.NormalizedScores {
			row = standardize(row)
		}
		for j, v := range row {
			scores[j] += t.Weight * v
		}
		norm += math.Abs(t.Weight)
	}
	if norm == 0 {
		return nil, fmt.Errorf("regulon of %s has zero total weight", regulator)
	}
	for j := range scores {
		scores[j] /= norm
	}
	return scores, nil
}

// standardize centers and scales to unit variance; a constant row maps to
// all zeros.
func standardize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))

	var ss float64
	for _, x := range v {
		d := x - mean
		ss += d * d
	}
	out := make([]float64, len(v))
	if ss == 0 {
		return out
	}
	sd := math.Sqrt(ss / float64(len(v)-1))
	for i, x := range v {
		out[i] = (x - mean) / sd
	}
	return out
}
