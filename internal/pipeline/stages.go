package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"rnaseqcli/internal/activity"
	"rnaseqcli/internal/annotation"
	"rnaseqcli/internal/config"
	apperrors "rnaseqcli/internal/errors"
	"rnaseqcli/internal/infrastructure"
	"rnaseqcli/internal/ingest"
	"rnaseqcli/internal/normalization"
	"rnaseqcli/internal/stats"
	"rnaseqcli/internal/tables"
)

// AnalysisStages returns the canonical stage sequence of a full run.
func AnalysisStages() []Stage {
	return []Stage{
		&alignStage{},
		&translateStage{},
		&tidyExpressionStage{},
		&normalizeStage{},
		&activityStage{},
		&reshapeStage{},
		&filterEntityStage{},
		&batteryStage{},
	}
}

// alignStage reorders metadata rows to the count matrix column order and
// enforces exact identity, then checks the severity column against the
// configured level list.
type alignStage struct{}

func (s *alignStage) Name() string { return "align_metadata" }

func (s *alignStage) Run(ctx context.Context, state *State) error {
	aligned, err := ingest.AlignMetadata(state.Counts, state.Metadata, state.Analysis.SampleColumn)
	if err != nil {
		return err
	}
	if err := ingest.CheckSeverityLevels(aligned, state.Analysis.SeverityColumn, state.Analysis.SeverityLevels); err != nil {
		return err
	}
	state.Metadata = aligned
	return nil
}

// translateStage maps the count matrix entity identifiers from the source to
// the target namespace. Skipped when no translation is configured.
type translateStage struct{}

func (s *translateStage) Name() string { return "translate_identifiers" }

func (s *translateStage) Run(ctx context.Context, state *State) error {
	a := state.Analysis
	if a.FromNamespace == "" || a.FromNamespace == a.ToNamespace {
		infrastructure.LoggerFromContext(ctx).InfoContext(ctx, "identifier translation skipped")
		return nil
	}
	if state.Annotations == nil {
		return fmt.Errorf("translation from %q to %q requested but no annotation table loaded",
			a.FromNamespace, a.ToNamespace)
	}

	ids, err := tables.NewTable(tables.NewStringColumn(a.EntityColumn, state.Counts.Entities()))
	if err != nil {
		return err
	}
	translated, err := annotation.TranslateIdentifiers(ids, state.Annotations,
		a.FromNamespace, a.ToNamespace, a.EntityColumn, false)
	if err != nil {
		return err
	}

	col, err := translated.MustColumn(a.EntityColumn)
	if err != nil {
		return err
	}
	original := state.Counts.Entities()
	keep := make([]bool, len(original))
	names := make([]string, 0, len(original))
	// sourceOf detects many-to-one translations: two distinct count rows
	// collapsing onto one target identifier would silently pool their
	// observations through every downstream stage.
	sourceOf := make(map[string]string, len(original))
	var unmapped int
	for i := range original {
		name := ""
		if col.IsMissing(i) || col.String(i) == "" {
			unmapped++
			if a.DropUnmapped {
				continue
			}
			// Unmapped rows keep their source-namespace identifier.
			name = original[i]
		} else {
			name = col.String(i)
		}
		if prev, dup := sourceOf[name]; dup {
			return fmt.Errorf("identifiers %q and %q both translate to %q: %w",
				prev, original[i], name,
				apperrors.NewConfigurationError("to_namespace", a.ToNamespace, nil))
		}
		sourceOf[name] = original[i]
		keep[i] = true
		names = append(names, name)
	}

	subset, err := state.Counts.SubsetRows(keep)
	if err != nil {
		return err
	}
	values := make([][]float64, subset.NEntities())
	for i := range values {
		values[i] = subset.Row(i)
	}
	renamed, err := tables.NewMatrix(names, subset.Samples(), values)
	if err != nil {
		return fmt.Errorf("rebuild count matrix: %w", err)
	}

	infrastructure.LoggerFromContext(ctx).InfoContext(ctx, "identifiers translated",
		slog.String("from", a.FromNamespace),
		slog.String("to", a.ToNamespace),
		slog.Int("unmapped", unmapped),
		slog.Bool("drop_unmapped", a.DropUnmapped),
	)
	state.Counts = renamed
	return nil
}

// tidyExpressionStage produces the tidy raw-count table with metadata joined,
// kept for inspection and export.
type tidyExpressionStage struct{}

func (s *tidyExpressionStage) Name() string { return "tidy_expression" }

func (s *tidyExpressionStage) Run(ctx context.Context, state *State) error {
	a := state.Analysis
	tidy, err := tables.ToTidy(state.Counts, a.EntityColumn, a.SampleColumn, "count", state.Metadata)
	if err != nil {
		return err
	}
	state.TidyExpression = tidy
	return nil
}

// normalizeStage filters low-expression entities and computes the TMM logCPM
// expression matrix.
type normalizeStage struct{}

func (s *normalizeStage) Name() string { return "normalize" }

func (s *normalizeStage) Run(ctx context.Context, state *State) error {
	a := state.Analysis
	col, err := state.Metadata.MustColumn(a.SeverityColumn)
	if err != nil {
		return err
	}

	opts := normalization.DefaultOptions()
	if a.MinCount > 0 {
		opts.MinCount = a.MinCount
	}
	if a.MinTotalCount > 0 {
		opts.MinTotalCount = a.MinTotalCount
	}
	opts.RefilterPerComparison = a.RefilterPerComparison

	result, err := normalization.Normalize(state.Counts, col.Strings(), opts, infrastructure.LoggerFromContext(ctx))
	if err != nil {
		return err
	}
	state.Normalized = result

	if a.RefilterPerComparison {
		masks, err := comparisonMasks(state.Counts, col.Strings(), a, opts)
		if err != nil {
			return err
		}
		state.ComparisonMasks = masks
		infrastructure.LoggerFromContext(ctx).InfoContext(ctx, "per-comparison filter masks computed",
			slog.Int("comparisons", len(masks)),
		)
	}
	return nil
}

// comparisonKey names a pairwise comparison with its levels in ordinal order,
// matching the GroupA/GroupB ordering of the battery's pairwise rows.
func comparisonKey(groupA, groupB string) string {
	return groupA + "|" + groupB
}

// comparisonMasks re-derives the low-expression keep mask for every pairwise
// comparison from just that comparison's sample columns. An entity expressed
// only outside the two compared groups passes the run-wide filter yet carries
// no signal for the pair; its mask entry is false here.
func comparisonMasks(counts *tables.Matrix, labels []string, a config.AnalysisConfig, opts normalization.Options) (map[string][]bool, error) {
	ordinal := make(map[string]int, len(a.SeverityLevels))
	for i, l := range a.SeverityLevels {
		ordinal[l] = i
	}

	pairs := a.Pairs()
	if len(pairs) == 0 {
		for i := 0; i < len(a.SeverityLevels); i++ {
			for j := i + 1; j < len(a.SeverityLevels); j++ {
				pairs = append(pairs, [2]string{a.SeverityLevels[i], a.SeverityLevels[j]})
			}
		}
	}

	masks := make(map[string][]bool, len(pairs))
	for _, p := range pairs {
		groupA, groupB := p[0], p[1]
		if ordinal[groupA] > ordinal[groupB] {
			groupA, groupB = groupB, groupA
		}

		colMask := make([]bool, len(labels))
		var subLabels []string
		for j, l := range labels {
			if l == groupA || l == groupB {
				colMask[j] = true
				subLabels = append(subLabels, l)
			}
		}
		sub, err := counts.SubsetColumns(colMask)
		if err != nil {
			return nil, fmt.Errorf("refilter %s vs %s: %w", groupA, groupB, err)
		}
		mask, err := normalization.FilterMask(sub, subLabels, opts)
		if err != nil {
			return nil, fmt.Errorf("refilter %s vs %s: %w", groupA, groupB, err)
		}
		masks[comparisonKey(groupA, groupB)] = mask
	}
	return masks, nil
}

// activityStage runs the activity inference adapter. Skipped when no network
// or scorer is configured; the battery then runs on expression directly.
type activityStage struct{}

func (s *activityStage) Name() string { return "infer_activity" }

func (s *activityStage) Run(ctx context.Context, state *State) error {
	if state.Network == nil || state.Scorer == nil {
		infrastructure.LoggerFromContext(ctx).InfoContext(ctx, "activity inference skipped")
		return nil
	}

	opts := activity.DefaultOptions()
	if state.Analysis.MinRegulonSize > 0 {
		opts.MinRegulonSize = state.Analysis.MinRegulonSize
	}
	result, err := activity.InferActivity(state.Normalized.Expression, state.Network, opts,
		state.Scorer, infrastructure.LoggerFromContext(ctx))
	if err != nil {
		return err
	}
	state.Warnings.Merge(result.Warnings)
	state.Activity = result
	return nil
}

// reshapeStage builds the tidy battery input: activity scores when inference
// ran, normalized expression otherwise, with metadata joined on the sample
// column.
type reshapeStage struct{}

func (s *reshapeStage) Name() string { return "reshape" }

func (s *reshapeStage) Run(ctx context.Context, state *State) error {
	a := state.Analysis

	source := state.Normalized.Expression
	state.ValueColumn = "log_cpm"
	if state.Activity != nil {
		source = state.Activity.Scores
		state.ValueColumn = "activity_score"
	}

	tidy, err := tables.ToTidy(source, a.EntityColumn, a.SampleColumn, state.ValueColumn, state.Metadata)
	if err != nil {
		return err
	}
	state.BatteryInput = tidy
	return nil
}

// filterEntityStage restricts the battery input to the requested entity.
type filterEntityStage struct{}

func (s *filterEntityStage) Name() string { return "filter_entity" }

func (s *filterEntityStage) Run(ctx context.Context, state *State) error {
	a := state.Analysis
	col, err := state.BatteryInput.MustColumn(a.EntityColumn)
	if err != nil {
		return err
	}
	filtered := state.BatteryInput.FilterRows(func(row int) bool {
		return !col.IsMissing(row) && col.String(row) == a.Entity
	})
	if filtered.NRows() == 0 {
		return apperrors.NewConfigurationError("entity", a.Entity, nil)
	}
	state.BatteryInput = filtered
	return nil
}

// batteryStage runs the four-test statistical battery on the filtered tidy
// table.
type batteryStage struct{}

func (s *batteryStage) Name() string { return "battery" }

func (s *batteryStage) Run(ctx context.Context, state *State) error {
	a := state.Analysis
	opts := stats.DefaultOptions()
	if a.Workers > 0 {
		opts.Workers = a.Workers
	}
	result, err := stats.CompareGroups(ctx, state.BatteryInput,
		a.EntityColumn, state.ValueColumn, a.SeverityColumn,
		a.SeverityLevels, a.Pairs(), opts, infrastructure.LoggerFromContext(ctx))
	if err != nil {
		return err
	}
	// The per-comparison masks are defined over count-matrix entities, so
	// they only apply when the battery runs on expression directly.
	if len(state.ComparisonMasks) > 0 && state.Activity == nil {
		result.Pairwise = s.refilterPairwise(result.Pairwise, state)
	}
	state.Warnings.Merge(result.Warnings)
	state.Battery = result
	return nil
}

// refilterPairwise drops pairwise rows whose entity fails the comparison's
// own low-expression filter, warning once per dropped row.
func (s *batteryStage) refilterPairwise(rows []stats.PairwiseRow, state *State) []stats.PairwiseRow {
	kept := rows[:0]
	for _, row := range rows {
		mask, ok := state.ComparisonMasks[comparisonKey(row.GroupA, row.GroupB)]
		if ok {
			if i := state.Counts.EntityIndex(row.Entity); i >= 0 && !mask[i] {
				state.Warnings.Add(fmt.Errorf(
					"entity %q excluded from comparison %s vs %s by the per-comparison expression filter",
					row.Entity, row.GroupA, row.GroupB))
				continue
			}
		}
		kept = append(kept, row)
	}
	return kept
}
