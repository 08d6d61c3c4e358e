package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnaseqcli/internal/activity"
	"rnaseqcli/internal/config"
	apperrors "rnaseqcli/internal/errors"
	"rnaseqcli/internal/tables"
)

func cohortState(t *testing.T) *State {
	t.Helper()
	counts, err := tables.NewMatrix(
		[]string{"G1", "G2", "G3"},
		[]string{"S1", "S2", "S3", "S4", "S5", "S6"},
		[][]float64{
			{100, 110, 200, 210, 400, 390}, // rises with severity
			{500, 480, 500, 520, 510, 490}, // stable housekeeping-like
			{1, 0, 1, 0, 1, 0},             // below the expression filter
		},
	)
	require.NoError(t, err)

	metadata, err := tables.NewTable(
		tables.NewStringColumn("sample", []string{"S1", "S2", "S3", "S4", "S5", "S6"}),
		tables.NewStringColumn("severity", []string{"none", "none", "mild", "mild", "severe", "severe"}),
	)
	require.NoError(t, err)

	return &State{
		Counts:   counts,
		Metadata: metadata,
		Analysis: config.AnalysisConfig{
			Entity:         "G1",
			EntityColumn:   "entity",
			SampleColumn:   "sample",
			SeverityColumn: "severity",
			SeverityLevels: []string{"none", "mild", "severe"},
			MinRegulonSize: 2,
		},
	}
}

func TestRunnerFullExpressionRun(t *testing.T) {
	state := cohortState(t)
	runner := NewRunner(AnalysisStages(), nil)

	runID, err := runner.Run(context.Background(), state)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	// The low-count gene is filtered; the other two survive normalization.
	require.NotNil(t, state.Normalized)
	assert.Equal(t, 2, state.Normalized.Summary.Kept)
	assert.Equal(t, 1, state.Normalized.Summary.Discarded)

	// Without a network the battery runs on normalized expression.
	assert.Equal(t, "log_cpm", state.ValueColumn)
	require.NotNil(t, state.Battery)
	require.Len(t, state.Battery.ANOVA, 1)
	assert.Equal(t, "G1", state.Battery.ANOVA[0].Entity)
	assert.Len(t, state.Battery.Pairwise, 3)
	require.Len(t, state.Battery.Correlations, 1)
	assert.Positive(t, state.Battery.Correlations[0].Rho)
}

type trendScorer struct{}

func (trendScorer) Score(_ string, _ []activity.Target, expr *tables.Matrix, _ activity.Options) ([]float64, error) {
	scores := make([]float64, expr.NSamples())
	for j := range scores {
		scores[j] = float64(j)
	}
	return scores, nil
}

func TestRunnerActivityRun(t *testing.T) {
	state := cohortState(t)
	state.Analysis.Entity = "R1"
	state.Network = activity.NewNetwork([]activity.Interaction{
		{Regulator: "R1", Target: "G1", Weight: 1},
		{Regulator: "R1", Target: "G2", Weight: 1},
		{Regulator: "R_tiny", Target: "G1", Weight: 1},
	})
	state.Scorer = trendScorer{}

	runner := NewRunner(AnalysisStages(), nil)
	_, err := runner.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, "activity_score", state.ValueColumn)
	require.NotNil(t, state.Activity)
	assert.Equal(t, []string{"R1"}, state.Activity.Scores.Entities())

	// The undersized regulon surfaces as a warning, never an abort.
	require.Equal(t, 1, state.Warnings.Len())
	assert.Contains(t, state.Warnings.All()[0].Error(), "R_tiny")

	require.Len(t, state.Battery.ANOVA, 1)
	assert.Equal(t, "R1", state.Battery.ANOVA[0].Entity)
}

func TestRunnerAbortsOnMissingMetadataRow(t *testing.T) {
	state := cohortState(t)
	metadata, err := tables.NewTable(
		tables.NewStringColumn("sample", []string{"S1", "S2", "S3", "S4", "S5"}),
		tables.NewStringColumn("severity", []string{"none", "none", "mild", "mild", "severe"}),
	)
	require.NoError(t, err)
	state.Metadata = metadata

	_, err = NewRunner(AnalysisStages(), nil).Run(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "align_metadata")
}

func TestRunnerAbortsOnUnknownEntity(t *testing.T) {
	state := cohortState(t)
	state.Analysis.Entity = "NOPE"

	_, err := NewRunner(AnalysisStages(), nil).Run(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter_entity")
}

func TestRunnerTranslatesIdentifiers(t *testing.T) {
	state := cohortState(t)
	annot, err := tables.NewTable(
		tables.NewStringColumn("mouse", []string{"G1", "G2"}),
		tables.NewStringColumn("human", []string{"H1", "H2"}),
	)
	require.NoError(t, err)
	state.Annotations = annot
	state.Analysis.FromNamespace = "mouse"
	state.Analysis.ToNamespace = "human"
	state.Analysis.Entity = "H1"

	_, err = NewRunner(AnalysisStages(), nil).Run(context.Background(), state)
	require.NoError(t, err)
	require.Len(t, state.Battery.ANOVA, 1)
	assert.Equal(t, "H1", state.Battery.ANOVA[0].Entity)
}

func TestRunnerRejectsManyToOneTranslation(t *testing.T) {
	state := cohortState(t)
	// Two source genes collapsing onto one target identifier would pool
	// their counts into a single row downstream.
	annot, err := tables.NewTable(
		tables.NewStringColumn("mouse", []string{"G1", "G2"}),
		tables.NewStringColumn("human", []string{"H1", "H1"}),
	)
	require.NoError(t, err)
	state.Annotations = annot
	state.Analysis.FromNamespace = "mouse"
	state.Analysis.ToNamespace = "human"
	state.Analysis.Entity = "H1"

	_, err = NewRunner(AnalysisStages(), nil).Run(context.Background(), state)
	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "translate_identifiers")
	assert.Contains(t, err.Error(), `"G1"`)
	assert.Contains(t, err.Error(), `"G2"`)
}

// refilterState builds a cohort whose entity of interest is expressed only in
// the severe samples: it passes the run-wide expression filter on the strength
// of those two columns, but carries nothing for the none-vs-mild contrast.
func refilterState(t *testing.T) *State {
	t.Helper()
	state := cohortState(t)
	counts, err := tables.NewMatrix(
		[]string{"G_late", "G_stable"},
		[]string{"S1", "S2", "S3", "S4", "S5", "S6"},
		[][]float64{
			{0, 0, 0, 0, 400, 390},
			{500, 480, 500, 520, 510, 490},
		},
	)
	require.NoError(t, err)
	state.Counts = counts
	state.Analysis.Entity = "G_late"
	state.Analysis.Comparisons = []config.Comparison{
		{GroupA: "none", GroupB: "mild"},
		{GroupA: "none", GroupB: "severe"},
	}
	return state
}

func TestRunnerRefiltersPerComparison(t *testing.T) {
	state := refilterState(t)
	state.Analysis.RefilterPerComparison = true

	_, err := NewRunner(AnalysisStages(), nil).Run(context.Background(), state)
	require.NoError(t, err)

	require.Len(t, state.ComparisonMasks, 2)
	require.Contains(t, state.ComparisonMasks, "none|mild")
	assert.Equal(t, []bool{false, true}, state.ComparisonMasks["none|mild"])
	assert.Equal(t, []bool{true, true}, state.ComparisonMasks["none|severe"])

	// The none-vs-mild row is dropped with a warning; none-vs-severe stays.
	require.Len(t, state.Battery.Pairwise, 1)
	assert.Equal(t, "none", state.Battery.Pairwise[0].GroupA)
	assert.Equal(t, "severe", state.Battery.Pairwise[0].GroupB)
	require.Equal(t, 1, state.Warnings.Len())
	assert.Contains(t, state.Warnings.All()[0].Error(), "G_late")
	assert.Contains(t, state.Warnings.All()[0].Error(), "none vs mild")
}

func TestRunnerKeepsAllComparisonsWithoutRefilter(t *testing.T) {
	state := refilterState(t)

	_, err := NewRunner(AnalysisStages(), nil).Run(context.Background(), state)
	require.NoError(t, err)

	assert.Nil(t, state.ComparisonMasks)
	assert.Len(t, state.Battery.Pairwise, 2)
	assert.Equal(t, 0, state.Warnings.Len())
}

func TestRunnerRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(AnalysisStages(), nil).Run(ctx, cohortState(t))
	require.Error(t, err)
}
