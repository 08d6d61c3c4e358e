// Package pipeline orchestrates the analysis run as a sequence of named
// stages: align metadata, translate identifiers, normalize, infer activity,
// reshape, and run the statistical battery. Stages execute sequentially;
// fatal errors abort the run, non-fatal warnings accumulate on the state and
// are reported alongside the output.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rnaseqcli/internal/activity"
	"rnaseqcli/internal/config"
	apperrors "rnaseqcli/internal/errors"
	"rnaseqcli/internal/infrastructure"
	"rnaseqcli/internal/normalization"
	"rnaseqcli/internal/stats"
	"rnaseqcli/internal/tables"
)

// Stage is one step of the analysis run.
type Stage interface {
	// Name identifies the stage in logs and errors.
	Name() string
	// Run mutates the shared state. A returned error aborts the run.
	Run(ctx context.Context, state *State) error
}

// State is the shared mutable state threaded through the stages.
type State struct {
	// Inputs, set before the run.
	Counts      *tables.Matrix
	Metadata    *tables.Table
	Annotations *tables.Table
	Network     *activity.Network
	Scorer      activity.Scorer
	Analysis    config.AnalysisConfig

	// Produced by stages.
	TidyExpression *tables.Table
	Normalized     *normalization.Result
	Activity       *activity.Result
	BatteryInput   *tables.Table
	ValueColumn    string
	Battery        *stats.Result

	// ComparisonMasks holds per-comparison keep masks over the count
	// entities, re-derived from each comparison's sample subset when
	// RefilterPerComparison is set. Keyed by ordinal-ordered level pair.
	ComparisonMasks map[string][]bool

	// Warnings accumulates every non-fatal error across stages.
	Warnings *apperrors.WarningList
}

// Runner executes stages in order under a per-run UUID.
type Runner struct {
	stages []Stage
	logger *slog.Logger
}

// NewRunner creates a Runner over the given stages.
func NewRunner(stages []Stage, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{stages: stages, logger: logger}
}

// Run executes every stage sequentially. The generated run ID is attached to
// the context so all stage logging carries it.
func (r *Runner) Run(ctx context.Context, state *State) (string, error) {
	runID := uuid.New().String()
	ctx = infrastructure.WithRunID(ctx, runID)
	logger := r.logger.With(slog.String("run_id", runID))

	if state.Warnings == nil {
		state.Warnings = &apperrors.WarningList{}
	}

	start := time.Now()
	logger.InfoContext(ctx, "analysis run started",
		slog.Int("stages", len(r.stages)),
		slog.String("entity", state.Analysis.Entity),
	)

	for _, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			return runID, fmt.Errorf("run cancelled before stage %s: %w", stage.Name(), err)
		}
		stageStart := time.Now()
		if err := stage.Run(ctx, state); err != nil {
			logger.ErrorContext(ctx, "stage failed",
				slog.String("stage", stage.Name()),
				slog.String("error", err.Error()),
			)
			return runID, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		logger.InfoContext(ctx, "stage completed",
			slog.String("stage", stage.Name()),
			slog.Duration("elapsed", time.Since(stageStart)),
		)
	}

	logger.InfoContext(ctx, "analysis run completed",
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("warnings", state.Warnings.Len()),
	)
	return runID, nil
}
