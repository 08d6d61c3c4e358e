package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "rnaseqcli/internal/errors"
)

var validate = validator.New()

// Comparison names one explicit pairwise contrast. Both sides must be
// configured severity levels.
type Comparison struct {
	GroupA string `yaml:"group_a" validate:"required"`
	GroupB string `yaml:"group_b" validate:"required"`
}

// AnalysisConfig is the per-run analysis request: which entity to test, how
// severity groups are ordered, and the knobs of the normalization and
// activity stages.
type AnalysisConfig struct {
	// Entity is the gene or regulator the battery is run on.
	Entity string `yaml:"entity" envconfig:"ENTITY" validate:"required"`

	// Column names of the tidy table the battery consumes.
	EntityColumn   string `yaml:"entity_column" envconfig:"ENTITY_COLUMN" default:"entity" validate:"required"`
	SampleColumn   string `yaml:"sample_column" envconfig:"SAMPLE_COLUMN" default:"sample" validate:"required"`
	SeverityColumn string `yaml:"severity_column" envconfig:"SEVERITY_COLUMN" default:"severity" validate:"required"`

	// SeverityLevels is the explicit ordinal scale, least to most severe.
	// Order is never inferred from the data.
	SeverityLevels []string `yaml:"severity_levels" envconfig:"SEVERITY_LEVELS" validate:"required,min=2,unique"`

	// Comparisons restricts the post-hoc tests to these pairs; empty means
	// all level pairs.
	Comparisons []Comparison `yaml:"comparisons" ignored:"true" validate:"dive"`

	// Identifier translation. Empty namespaces skip translation.
	FromNamespace string `yaml:"from_namespace" envconfig:"FROM_NAMESPACE"`
	ToNamespace   string `yaml:"to_namespace" envconfig:"TO_NAMESPACE"`
	DropUnmapped  bool   `yaml:"drop_unmapped" envconfig:"DROP_UNMAPPED"`

	// Normalization knobs; zero values take the stage defaults.
	MinCount              float64 `yaml:"min_count" envconfig:"MIN_COUNT" validate:"gte=0"`
	MinTotalCount         float64 `yaml:"min_total_count" envconfig:"MIN_TOTAL_COUNT" validate:"gte=0"`
	RefilterPerComparison bool    `yaml:"refilter_per_comparison" envconfig:"REFILTER_PER_COMPARISON"`

	// Activity inference knobs.
	MinRegulonSize int `yaml:"min_regulon_size" envconfig:"MIN_REGULON_SIZE" default:"5" validate:"gte=1"`

	// Workers bounds the battery pool; zero takes the stage default.
	Workers int `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
}

// Validate checks struct tags plus the cross-field rules the tags cannot
// express: every comparison side must be a configured severity level.
func (a *AnalysisConfig) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("analysis request: %w", err)
	}

	known := make(map[string]bool, len(a.SeverityLevels))
	for _, level := range a.SeverityLevels {
		known[level] = true
	}
	for _, c := range a.Comparisons {
		for _, side := range []string{c.GroupA, c.GroupB} {
			if !known[side] {
				return &apperrors.ConfigurationError{
					Parameter: "comparisons",
					Value:     side,
					Valid:     a.SeverityLevels,
				}
			}
		}
	}
	return nil
}

// Pairs returns the configured comparisons as ordered pairs for the battery.
func (a *AnalysisConfig) Pairs() [][2]string {
	if len(a.Comparisons) == 0 {
		return nil
	}
	pairs := make([][2]string, len(a.Comparisons))
	for i, c := range a.Comparisons {
		pairs[i] = [2]string{c.GroupA, c.GroupB}
	}
	return pairs
}
