package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightedMeanScorerRawValues(t *testing.T) {
	expr := exprMatrix(t)
	targets := []Target{{Entity: "T1", Weight: 1}, {Entity: "T3", Weight: 1}}

	scores, err := WeightedMeanScorer{}.Score("R1", targets, expr, Options{})
	require.NoError(t, err)
	// Plain mean of rows T1 and T3.
	assert.InDelta(t, 3.0, scores[0], 1e-12)
	assert.InDelta(t, 4.0, scores[1], 1e-12)
}

func TestWeightedMeanScorerRepressionFlipsSign(t *testing.T) {
	expr := exprMatrix(t)
	up := []Target{{Entity: "T1", Weight: 1}}
	down := []Target{{Entity: "T1", Weight: -1}}

	opts := Options{NormalizedScores: true}
	upScores, err := WeightedMeanScorer{}.Score("R1", up, expr, opts)
	require.NoError(t, err)
	downScores, err := WeightedMeanScorer{}.Score("R2", down, expr, opts)
	require.NoError(t, err)
	for j := range upScores {
		assert.InDelta(t, -upScores[j], downScores[j], 1e-12)
	}
}

func TestWeightedMeanScorerZeroWeightRegulon(t *testing.T) {
	expr := exprMatrix(t)
	_, err := WeightedMeanScorer{}.Score("R1", []Target{{Entity: "T1", Weight: 0}}, expr, Options{})
	require.Error(t, err)
}

func TestStandardizeConstantRow(t *testing.T) {
	assert.Equal(t, []float64{0, 0, 0}, standardize([]float64{5, 5, 5}))
}
