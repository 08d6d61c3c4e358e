package stats

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rnaseqcli/internal/errors"
	"rnaseqcli/internal/tables"
)

func tidyTable(t *testing.T, entities, groups []string, values []float64) *tables.Table {
	t.Helper()
	tbl, err := tables.NewTable(
		tables.NewStringColumn("entity", entities),
		tables.NewStringColumn("severity", groups),
		tables.NewFloatColumn("value", values),
	)
	require.NoError(t, err)
	return tbl
}

func TestCompareGroupsToyTwoGroupBattery(t *testing.T) {
	tidy := tidyTable(t,
		[]string{"G1", "G1", "G1", "G1", "G1", "G1"},
		[]string{"none", "none", "none", "severe", "severe", "severe"},
		[]float64{1, 1, 1, 5, 5, 5},
	)

	res, err := CompareGroups(context.Background(), tidy, "entity", "value", "severity",
		[]string{"none", "severe"}, nil, DefaultOptions(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, res.Warnings.Len())

	require.Len(t, res.ANOVA, 1)
	assert.Less(t, res.ANOVA[0].PValue, 0.01)

	require.Len(t, res.Pairwise, 1)
	assert.Equal(t, "none", res.Pairwise[0].GroupA)
	assert.Equal(t, "severe", res.Pairwise[0].GroupB)
	assert.Equal(t, 4.0, res.Pairwise[0].MeanDiff)

	// Slope equals the between-group mean difference divided by the
	// group-index gap (here indices 0 and 1).
	require.Len(t, res.Coefficients, 1)
	assert.InDelta(t, 4.0, res.Coefficients[0].Estimate, 1e-12)
	assert.Equal(t, "group_index", res.Coefficients[0].Term)

	require.Len(t, res.Correlations, 1)
	assert.InDelta(t, 1.0, res.Correlations[0].Rho, 1e-12)
	assert.Less(t, res.Correlations[0].PValue, 1e-6)
}

func TestCompareGroupsSlopeUsesOrdinalGap(t *testing.T) {
	tidy := tidyTable(t,
		[]string{"G1", "G1", "G1", "G1", "G1", "G1"},
		[]string{"none", "none", "none", "severe", "severe", "severe"},
		[]float64{1, 1, 1, 5, 5, 5},
	)

	// With mild unobserved, none and severe sit at ordinal indices 0 and 2.
	res, err := CompareGroups(context.Background(), tidy, "entity", "value", "severity",
		[]string{"none", "mild", "severe"}, nil, DefaultOptions(), nil)
	require.NoError(t, err)
	require.Len(t, res.Coefficients, 1)
	assert.InDelta(t, 2.0, res.Coefficients[0].Estimate, 1e-12)
}

func TestCompareGroupsDecreasingTrendGivesNegativeRho(t *testing.T) {
	tidy := tidyTable(t,
		[]string{"G1", "G1", "G1", "G1", "G1", "G1"},
		[]string{"none", "none", "none", "severe", "severe", "severe"},
		[]float64{9, 8, 9, 2, 1, 2},
	)
	res, err := CompareGroups(context.Background(), tidy, "entity", "value", "severity",
		[]string{"none", "severe"}, nil, DefaultOptions(), nil)
	require.NoError(t, err)
	require.Len(t, res.Correlations, 1)
	assert.Negative(t, res.Correlations[0].Rho)
	assert.Negative(t, res.Coefficients[0].Estimate)
}

func TestCompareGroupsEntityIsolation(t *testing.T) {
	// Entity B has a single observation; A and C must still produce full
	// results with no cross-entity contamination.
	entities := []string{
		"A", "A", "A", "A",
		"B",
		"C", "C", "C", "C",
	}
	groups := []string{
		"none", "none", "severe", "severe",
		"none",
		"none", "none", "severe", "severe",
	}
	values := []float64{1, 2, 5, 6, 3, 10, 11, 2, 3}

	res, err := CompareGroups(context.Background(), tidyTable(t, entities, groups, values),
		"entity", "value", "severity", []string{"none", "severe"}, nil, DefaultOptions(), nil)
	require.NoError(t, err)

	require.Len(t, res.ANOVA, 2)
	assert.Equal(t, "A", res.ANOVA[0].Entity)
	assert.Equal(t, "C", res.ANOVA[1].Entity)
	require.Len(t, res.Pairwise, 2)
	require.Len(t, res.Coefficients, 2)
	require.Len(t, res.Correlations, 2)

	require.Equal(t, 1, res.Warnings.Len())
	var insufficient *apperrors.InsufficientDataError
	require.ErrorAs(t, res.Warnings.All()[0], &insufficient)
	assert.Equal(t, "B", insufficient.Entity)
}

func TestCompareGroupsDeterministicUnderConcurrency(t *testing.T) {
	n := 40
	entities := make([]string, 0, n*4)
	groups := make([]string, 0, n*4)
	values := make([]float64, 0, n*4)
	for i := 0; i < n; i++ {
		name := string(rune('A'+i%26)) + string(rune('a'+i/26))
		for _, g := range []string{"none", "none", "severe", "severe"} {
			entities = append(entities, name)
			groups = append(groups, g)
			values = append(values, float64(i)+float64(len(values)%3))
		}
	}
	tidy := tidyTable(t, entities, groups, values)

	opts := DefaultOptions()
	opts.Workers = 8
	first, err := CompareGroups(context.Background(), tidy, "entity", "value", "severity",
		[]string{"none", "severe"}, nil, opts, nil)
	require.NoError(t, err)
	second, err := CompareGroups(context.Background(), tidy, "entity", "value", "severity",
		[]string{"none", "severe"}, nil, opts, nil)
	require.NoError(t, err)

	// Aggregation is by entity identifier, not arrival order.
	assert.Equal(t, first.ANOVA, second.ANOVA)
	assert.Equal(t, first.Pairwise, second.Pairwise)
	assert.Equal(t, first.Coefficients, second.Coefficients)
	assert.Equal(t, first.Correlations, second.Correlations)
}

func TestCompareGroupsExplicitPairSubset(t *testing.T) {
	entities := make([]string, 0, 9)
	groups := []string{"none", "none", "none", "mild", "mild", "mild", "severe", "severe", "severe"}
	values := []float64{1, 2, 3, 4, 5, 6, 9, 10, 11}
	for range groups {
		entities = append(entities, "G1")
	}
	tidy := tidyTable(t, entities, groups, values)

	res, err := CompareGroups(context.Background(), tidy, "entity", "value", "severity",
		[]string{"none", "mild", "severe"},
		[][2]string{{"none", "severe"}},
		DefaultOptions(), nil)
	require.NoError(t, err)
	require.Len(t, res.Pairwise, 1)
	assert.Equal(t, "none", res.Pairwise[0].GroupA)
	assert.Equal(t, "severe", res.Pairwise[0].GroupB)
	assert.Equal(t, 8.0, res.Pairwise[0].MeanDiff)
}

func TestCompareGroupsAllPairsWithHolm(t *testing.T) {
	groups := []string{"none", "none", "none", "mild", "mild", "mild", "severe", "severe", "severe"}
	values := []float64{1.0, 1.1, 0.9, 1.2, 1.0, 1.1, 8.0, 8.2, 7.9}
	entities := make([]string, len(groups))
	for i := range entities {
		entities[i] = "G1"
	}
	tidy := tidyTable(t, entities, groups, values)

	res, err := CompareGroups(context.Background(), tidy, "entity", "value", "severity",
		[]string{"none", "mild", "severe"}, nil, DefaultOptions(), nil)
	require.NoError(t, err)
	require.Len(t, res.Pairwise, 3)

	for _, row := range res.Pairwise {
		assert.GreaterOrEqual(t, row.PAdjusted, row.PValue,
			"Holm adjustment never shrinks a p-value")
		assert.LessOrEqual(t, row.PAdjusted, 1.0)
	}
}

func TestCompareGroupsRejectsUnknownLevel(t *testing.T) {
	tidy := tidyTable(t, []string{"G1"}, []string{"critical"}, []float64{1})
	_, err := CompareGroups(context.Background(), tidy, "entity", "value", "severity",
		[]string{"none", "severe"}, nil, DefaultOptions(), nil)
	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"none", "severe"}, cfgErr.Valid)
}

func TestCompareGroupsRejectsUnknownPairLevel(t *testing.T) {
	tidy := tidyTable(t, []string{"G1"}, []string{"none"}, []float64{1})
	_, err := CompareGroups(context.Background(), tidy, "entity", "value", "severity",
		[]string{"none", "severe"}, [][2]string{{"none", "critical"}}, DefaultOptions(), nil)
	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "pairwise_comparisons", cfgErr.Parameter)
}

func TestOneWayANOVAEqualMeans(t *testing.T) {
	row := oneWayANOVA([][]float64{{2, 2, 2}, {2, 2, 2}})
	assert.Equal(t, 0.0, row.F)
	assert.Equal(t, 1.0, row.PValue)
}

func TestOneWayANOVAWithVariance(t *testing.T) {
	row := oneWayANOVA([][]float64{{1, 2, 3}, {4, 5, 6}})
	assert.Equal(t, 1, row.DFBetween)
	assert.Equal(t, 4, row.DFWithin)
	// F = MSB/MSW = 13.5/1 = 13.5 for these values.
	assert.InDelta(t, 13.5, row.F, 1e-12)
	assert.Greater(t, row.PValue, 0.0)
	assert.Less(t, row.PValue, 0.05)
}

func TestPooledTTestMatchesKnownValue(t *testing.T) {
	tStat, p := pooledTTest([]float64{1, 2, 3}, []float64{4, 5, 6})
	// diff = 3, pooled sd = 1, se = sqrt(2/3).
	assert.InDelta(t, 3/math.Sqrt(2.0/3.0), tStat, 1e-12)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 0.05)
}

func TestTieAveragedRanks(t *testing.T) {
	ranks := tieAveragedRanks([]float64{10, 20, 20, 30})
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, ranks)
}
