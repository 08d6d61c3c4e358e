// Package activity adapts an external regulatory-activity scoring algorithm
// to the pipeline: it marshals the normalized expression matrix and regulon
// target vectors into the scorer's shapes, applies the fixed options policy,
// and reshapes the scores into a tidy activity table.
//
// The scoring algorithm itself is injected and treated as a pure function;
// this package adds no retry semantics.
package activity

import (
	"fmt"
	"log/slog"
	"sort"

	apperrors "rnaseqcli/internal/errors"
	"rnaseqcli/internal/tables"
)

// Options is the fixed scoring policy the adapter applies.
type Options struct {
	// MinRegulonSize excludes regulators whose targets present in the
	// expression matrix number fewer than this.
	MinRegulonSize int
	// NormalizedScores requests normalized-enrichment-score output from
	// the scorer.
	NormalizedScores bool
}

// DefaultOptions returns the standard policy: NES output, minimum regulon
// size 5, no per-sample filtering.
func DefaultOptions() Options {
	return Options{MinRegulonSize: 5, NormalizedScores: true}
}

// Target is one regulon member with its mode-of-action weight.
type Target struct {
	Entity string
	Weight float64
}

// Scorer computes one activity value per expression sample for a regulator's
// regulon. Implementations wrap the external inference algorithm.
type Scorer interface {
	Score(regulator string, targets []Target, expr *tables.Matrix, opts Options) ([]float64, error)
}

// Result is the adapter output: the per-(regulator, sample) score matrix and
// its tidy reshaping.
type Result struct {
	Scores *tables.Matrix
	Tidy   *tables.Table
	// Warnings records every excluded regulator; exclusion is never fatal.
	Warnings *apperrors.WarningList
}

// InferActivity scores every regulator of the network against the normalized
// expression matrix. Regulators are processed in lexicographic order so the
// output is deterministic. A regulon below the minimum size, or a scoring
// failure, excludes only that regulator and is reported as a warning.
func InferActivity(expr *tables.Matrix, network *Network, opts Options, scorer Scorer, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if scorer == nil {
		return nil, fmt.Errorf("infer activity: no scorer provided")
	}
	if opts.MinRegulonSize < 1 {
		opts.MinRegulonSize = 1
	}

	regulators := network.Regulators()
	sort.Strings(regulators)

	warnings := &apperrors.WarningList{}
	var scored []string
	var rows [][]float64

	for _, regulator := range regulators {
		targets := presentTargets(network.Targets(regulator), expr)
		if len(targets) < opts.MinRegulonSize {
			warnings.Add(&apperrors.RegulatorExcludedWarning{
				Regulator: regulator,
				Reason:    fmt.Sprintf("regulon size %d below minimum %d", len(targets), opts.MinRegulonSize),
			})
			continue
		}

		scores, err := scorer.Score(regulator, targets, expr, opts)
		if err != nil {
			warnings.Add(&apperrors.RegulatorExcludedWarning{
				Regulator: regulator,
				Reason:    fmt.Sprintf("scoring failed: %v", err),
			})
			continue
		}
		if len(scores) != expr.NSamples() {
			warnings.Add(&apperrors.RegulatorExcludedWarning{
				Regulator: regulator,
				Reason:    fmt.Sprintf("scorer returned %d values for %d samples", len(scores), expr.NSamples()),
			})
			continue
		}
		scored = append(scored, regulator)
		rows = append(rows, scores)
	}

	logger.Info("activity inference completed",
		slog.Int("regulators_in", len(regulators)),
		slog.Int("scored", len(scored)),
		slog.Int("excluded", warnings.Len()),
	)

	scores, err := tables.NewMatrix(scored, expr.Samples(), rows)
	if err != nil {
		return nil, fmt.Errorf("infer activity: assemble score matrix: %w", err)
	}
	tidy, err := tables.ToTidy(scores, "regulator", "sample", "activity_score", nil)
	if err != nil {
		return nil, fmt.Errorf("infer activity: %w", err)
	}

	return &Result{Scores: scores, Tidy: tidy, Warnings: warnings}, nil
}

// presentTargets keeps only regulon members present in the expression
// matrix, preserving the network's target order.
func presentTargets(targets []Target, expr *tables.Matrix) []Target {
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if expr.EntityIndex(t.Entity) >= 0 {
			out = append(out, t)
		}
	}
	return out
}
