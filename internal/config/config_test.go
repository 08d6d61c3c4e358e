package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rnaseqcli/internal/errors"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  output: stdout
paths:
  counts_file: data/counts.xlsx
  metadata_file: data/metadata.csv
analysis:
  entity: STAT1
  severity_levels: [none, mild, severe]
  comparisons:
    - {group_a: none, group_b: severe}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format) // envconfig default
	assert.Equal(t, "data/counts.xlsx", cfg.Paths.CountsFile)
	assert.Equal(t, "results", cfg.Paths.OutputDir)
	assert.Equal(t, "STAT1", cfg.Analysis.Entity)
	assert.Equal(t, "severity", cfg.Analysis.SeverityColumn)
	assert.Equal(t, 5, cfg.Analysis.MinRegulonSize)
	assert.Equal(t, [][2]string{{"none", "severe"}}, cfg.Analysis.Pairs())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
analysis:
  entity: STAT1
  severity_levels: [none, severe]
`)
	t.Setenv("RNASEQ_ANALYSIS_ENTITY", "IRF9")
	t.Setenv("RNASEQ_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "IRF9", cfg.Analysis.Entity)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidateRejectsMissingEntity(t *testing.T) {
	path := writeConfigFile(t, `
analysis:
  severity_levels: [none, severe]
`)
	cfg, err := Load(path)
	require.NoError(t, err) // validation is deferred until overrides apply
	err = cfg.Analysis.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Entity")
}

func TestValidateRejectsComparisonOutsideLevels(t *testing.T) {
	a := AnalysisConfig{
		Entity:         "STAT1",
		EntityColumn:   "entity",
		SampleColumn:   "sample",
		SeverityColumn: "severity",
		SeverityLevels: []string{"none", "severe"},
		Comparisons:    []Comparison{{GroupA: "none", GroupB: "critical"}},
		MinRegulonSize: 5,
	}
	err := a.Validate()
	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "critical", cfgErr.Value)
	assert.Equal(t, []string{"none", "severe"}, cfgErr.Valid)
}

func TestValidateRejectsSingleLevel(t *testing.T) {
	a := AnalysisConfig{
		Entity:         "STAT1",
		EntityColumn:   "entity",
		SampleColumn:   "sample",
		SeverityColumn: "severity",
		SeverityLevels: []string{"none"},
		MinRegulonSize: 5,
	}
	require.Error(t, a.Validate())
}
