// Package stats runs the standardized statistical battery over a tidy table
// of (entity, group, value) observations: a one-way ANOVA omnibus test,
// pairwise post-hoc tests with family-wise adjustment, a linear trend fit on
// the ordinal group encoding, and a Spearman rank correlation.
//
// Entities are processed independently; a failure is isolated to its entity
// and every other entity still produces full results.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	apperrors "rnaseqcli/internal/errors"
	"rnaseqcli/internal/tables"
)

// Options controls battery execution.
type Options struct {
	// MinPerGroup is the minimum number of non-missing observations every
	// represented group must have for the omnibus and post-hoc tests.
	MinPerGroup int
	// Workers bounds the number of entities tested concurrently. Results
	// are aggregated by entity identifier, never by arrival order, so the
	// output is deterministic regardless of scheduling.
	Workers int
}

// DefaultOptions returns the standard battery policy.
func DefaultOptions() Options {
	return Options{MinPerGroup: 2, Workers: 4}
}

// ANOVARow is the omnibus test result for one entity.
type ANOVARow struct {
	Entity    string  `json:"entity"`
	F         float64 `json:"f"`
	DFBetween int     `json:"df_between"`
	DFWithin  int     `json:"df_within"`
	PValue    float64 `json:"p_value"`
}

// PairwiseRow is one post-hoc comparison between two group levels.
type PairwiseRow struct {
	Entity    string  `json:"entity"`
	GroupA    string  `json:"group_a"`
	GroupB    string  `json:"group_b"`
	MeanDiff  float64 `json:"mean_diff"` // mean(GroupB) - mean(GroupA)
	T         float64 `json:"t"`
	PValue    float64 `json:"p_value"`
	PAdjusted float64 `json:"p_adjusted"` // Holm family-wise adjustment
}

// CoefficientRow is one linear-model coefficient; the intercept is excluded
// from reported output.
type CoefficientRow struct {
	Entity   string  `json:"entity"`
	Term     string  `json:"term"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
	T        float64 `json:"t"`
	PValue   float64 `json:"p_value"`
}

// CorrelationRow is the rank correlation between value and the ordinal group
// encoding for one entity.
type CorrelationRow struct {
	Entity string  `json:"entity"`
	Rho    float64 `json:"rho"`
	PValue float64 `json:"p_value"`
	N      int     `json:"n"`
}

// Result aggregates the battery output across entities. Rows are ordered by
// the entities' first appearance in the input table.
type Result struct {
	ANOVA        []ANOVARow
	Pairwise     []PairwiseRow
	Coefficients []CoefficientRow
	Correlations []CorrelationRow
	// Warnings collects the per-entity InsufficientDataError values; those
	// entities contribute no rows but never abort the batch.
	Warnings *apperrors.WarningList
}

// entityData is one entity's observations grouped by level.
type entityData struct {
	entity string
	// byGroup holds non-missing values keyed by level index.
	byGroup map[int][]float64
}

// entityResult is the battery output for a single entity.
type entityResult struct {
	anova        *ANOVARow
	pairwise     []PairwiseRow
	coefficients []CoefficientRow
	correlation  *CorrelationRow
	err          error
}

// CompareGroups runs the four-test battery per distinct entity in the tidy
// table. levels fixes the ordinal ordering of the group column; pairs, when
// non-empty, restricts the post-hoc comparisons to the given level pairs.
func CompareGroups(ctx context.Context, tidy *tables.Table, entityColumn, valueColumn, groupColumn string, levels []string, pairs [][2]string, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinPerGroup < 2 {
		opts.MinPerGroup = 2
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if len(levels) == 0 {
		return nil, apperrors.NewConfigurationError("levels", "", nil)
	}

	entCol, err := tidy.MustColumn(entityColumn)
	if err != nil {
		return nil, err
	}
	valCol, err := tidy.MustColumn(valueColumn)
	if err != nil {
		return nil, err
	}
	grpCol, err := tidy.MustColumn(groupColumn)
	if err != nil {
		return nil, err
	}

	levelIndex := make(map[string]int, len(levels))
	for i, l := range levels {
		levelIndex[l] = i
	}
	for _, p := range pairs {
		for _, l := range []string{p[0], p[1]} {
			if _, ok := levelIndex[l]; !ok {
				return nil, apperrors.NewConfigurationError("pairwise_comparisons", l, levels)
			}
		}
	}

	// Group observations by entity, preserving first-appearance order.
	var order []string
	byEntity := make(map[string]*entityData)
	for i := 0; i < tidy.NRows(); i++ {
		if entCol.IsMissing(i) || valCol.IsMissing(i) {
			continue
		}
		if grpCol.IsMissing(i) {
			continue
		}
		group := grpCol.String(i)
		li, ok := levelIndex[group]
		if !ok {
			return nil, apperrors.NewConfigurationError("group level", group, levels)
		}
		entity := entCol.String(i)
		data, ok := byEntity[entity]
		if !ok {
			data = &entityData{entity: entity, byGroup: make(map[int][]float64)}
			byEntity[entity] = data
			order = append(order, entity)
		}
		data.byGroup[li] = append(data.byGroup[li], valCol.Float(i))
	}

	logger.Info("running statistical battery",
		slog.Int("entities", len(order)),
		slog.Int("workers", opts.Workers),
	)

	results := make([]*entityResult, len(order))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for idx, entity := range order {
		idx, entity := idx, entity
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := runBattery(byEntity[entity], levels, pairs, opts)
			mu.Lock()
			results[idx] = r
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compare groups: %w", err)
	}

	// Aggregate by entity order, not arrival order.
	out := &Result{Warnings: &apperrors.WarningList{}}
	for _, r := range results {
		if r.err != nil {
			out.Warnings.Add(r.err)
			continue
		}
		out.ANOVA = append(out.ANOVA, *r.anova)
		out.Pairwise = append(out.Pairwise, r.pairwise...)
		out.Coefficients = append(out.Coefficients, r.coefficients...)
		out.Correlations = append(out.Correlations, *r.correlation)
	}

	if out.Warnings.Len() > 0 {
		logger.Warn("battery completed with per-entity failures",
			slog.Int("failed", out.Warnings.Len()),
			slog.Int("succeeded", len(out.ANOVA)),
		)
	}
	return out, nil
}

// runBattery executes the four tests for one entity.
func runBattery(data *entityData, levels []string, pairs [][2]string, opts Options) *entityResult {
	// Levels actually represented for this entity, in ordinal order.
	var present []int
	total := 0
	for li := range levels {
		obs := data.byGroup[li]
		if len(obs) == 0 {
			continue
		}
		present = append(present, li)
		total += len(obs)
	}

	if len(present) < 2 {
		return &entityResult{err: &apperrors.InsufficientDataError{
			Entity: data.entity, Need: 2, Have: len(present),
		}}
	}
	for _, li := range present {
		if len(data.byGroup[li]) < opts.MinPerGroup {
			return &entityResult{err: &apperrors.InsufficientDataError{
				Entity: data.entity,
				Group:  levels[li],
				Need:   opts.MinPerGroup,
				Have:   len(data.byGroup[li]),
			}}
		}
	}

	groups := make([][]float64, len(present))
	for i, li := range present {
		groups[i] = data.byGroup[li]
	}

	anova := oneWayANOVA(groups)
	anova.Entity = data.entity

	pw := pairwiseTests(data, levels, present, pairs)
	for i := range pw {
		pw[i].Entity = data.entity
	}

	coef := linearTrend(data, present)
	coef.Entity = data.entity

	corr := spearman(data, present)
	corr.Entity = data.entity

	return &entityResult{
		anova:        &anova,
		pairwise:     pw,
		coefficients: []CoefficientRow{coef},
		correlation:  &corr,
	}
}
