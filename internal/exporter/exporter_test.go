package exporter

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnaseqcli/internal/stats"
	"rnaseqcli/internal/tables"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteTable(t *testing.T) {
	w := NewWriter(t.TempDir(), nil)
	tbl, err := tables.NewTable(
		tables.NewStringColumn("entity", []string{"G1", "G2"}),
		tables.NewFloatColumnWithMissing("value", []float64{1.5, 0}, []bool{false, true}),
	)
	require.NoError(t, err)

	path, err := w.WriteTable("tidy", tbl)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"entity", "value"}, rows[0])
	assert.Equal(t, []string{"G1", "1.5"}, rows[1])
	assert.Equal(t, []string{"G2", ""}, rows[2])
}

func TestWriteBattery(t *testing.T) {
	w := NewWriter(t.TempDir(), nil)
	res := &stats.Result{
		ANOVA: []stats.ANOVARow{
			{Entity: "G1", F: 13.5, DFBetween: 1, DFWithin: 4, PValue: 0.021},
		},
		Pairwise: []stats.PairwiseRow{
			{Entity: "G1", GroupA: "none", GroupB: "severe", MeanDiff: 4, T: 3.2, PValue: 0.02, PAdjusted: 0.02},
		},
		Coefficients: []stats.CoefficientRow{
			{Entity: "G1", Term: "group_index", Estimate: 4, StdErr: 1.1, T: 3.6, PValue: 0.02},
		},
		Correlations: []stats.CorrelationRow{
			{Entity: "G1", Rho: 1, PValue: 0, N: 6},
		},
	}

	paths, err := w.WriteBattery(res)
	require.NoError(t, err)
	require.Len(t, paths, 4)

	anova := readCSV(t, paths[0])
	assert.Equal(t, []string{"entity", "f", "df_between", "df_within", "p_value"}, anova[0])
	assert.Equal(t, []string{"G1", "13.5", "1", "4", "0.021"}, anova[1])

	pairwise := readCSV(t, paths[1])
	assert.Equal(t, []string{"G1", "none", "severe", "4", "3.2", "0.02", "0.02"}, pairwise[1])
}

func TestWriteSummary(t *testing.T) {
	w := NewWriter(t.TempDir(), nil)
	summary := RunSummary{
		RunID:       "run-1",
		Entity:      "STAT1",
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Kept:        100,
		Discarded:   40,
		Warnings:    []string{`regulator "R1" excluded: regulon size 2 below minimum 5`},
	}

	path, err := w.WriteSummary(summary)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded RunSummary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, summary.RunID, decoded.RunID)
	assert.Equal(t, summary.Kept, decoded.Kept)
	assert.Equal(t, summary.Warnings, decoded.Warnings)
}
