// Package normalization converts raw count matrices into comparable
// continuous expression values: a group-aware low-expression filter, between
// sample trimmed-mean-of-M-values scale normalization, and a log2
// counts-per-million transform.
package normalization

import (
	"fmt"
	"log/slog"
	"math"

	apperrors "rnaseqcli/internal/errors"
	"rnaseqcli/internal/tables"
)

// Options controls the filter-normalize-transform chain.
type Options struct {
	// Low-expression filter policy.
	MinCount         float64 // per-sample count an entity must reach, CPM-scaled against the median library
	MinTotalCount    float64 // minimum total count across all samples
	LargeSampleCount int     // group size beyond which the sample threshold grows sub-linearly
	MinProportion    float64 // proportion applied past LargeSampleCount

	// TMM parameters.
	LogRatioTrim float64 // two-sided trim fraction on log fold-changes
	SumTrim      float64 // two-sided trim fraction on absolute intensities
	Weighted     bool    // weight by asymptotic variance
	ACutoff      float64 // reject intensities below this
	RefColumn    int     // reference sample index; negative selects automatically

	// Log-CPM transform.
	PriorCount float64

	// RefilterPerComparison re-derives the keep mask per downstream
	// comparison instead of fixing it once per normalization run. Off by
	// default: the filter is computed once from the labels supplied here.
	RefilterPerComparison bool
}

// DefaultOptions returns the standard filtering and normalization policy.
func DefaultOptions() Options {
	return Options{
		MinCount:         10,
		MinTotalCount:    15,
		LargeSampleCount: 10,
		MinProportion:    0.7,
		LogRatioTrim:     0.3,
		SumTrim:          0.05,
		Weighted:         true,
		ACutoff:          -1e10,
		RefColumn:        -1,
		PriorCount:       2,
	}
}

// FilterSummary reports the observable outcome of the low-expression filter.
type FilterSummary struct {
	Kept      int `json:"kept"`
	Discarded int `json:"discarded"`
}

// String renders the human-readable kept/discarded summary.
func (s FilterSummary) String() string {
	return fmt.Sprintf("kept %d entities, discarded %d low-expression entities", s.Kept, s.Discarded)
}

// Result is the output of the normalization stage.
type Result struct {
	// Expression holds log2 counts-per-million for the kept entities, with
	// the same sample columns as the input.
	Expression *tables.Matrix
	// Factors holds the per-sample TMM scale normalization factors.
	Factors []float64
	// KeepMask marks which input entities survived the filter.
	KeepMask []bool
	// Summary counts kept vs discarded entities.
	Summary FilterSummary
}

// Normalize runs the filter-normalize-transform chain over a raw count
// matrix. groupLabels assigns each sample column to a group of interest so
// the filter does not discard entities expressed in only one group. Library
// sizes are computed from the unfiltered counts; the normalization factors
// are deliberately not recomputed after filtering.
func Normalize(counts *tables.Matrix, groupLabels []string, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(groupLabels) != counts.NSamples() {
		return nil, apperrors.NewShapeMismatchError("group labels vs samples", counts.NSamples(), len(groupLabels))
	}

	libSizes := counts.LibrarySizes()

	mask := filterByExpression(counts, groupLabels, libSizes, opts)
	kept := 0
	for _, k := range mask {
		if k {
			kept++
		}
	}
	summary := FilterSummary{Kept: kept, Discarded: len(mask) - kept}
	logger.Info("low-expression filter applied",
		slog.Int("entities_in", counts.NEntities()),
		slog.Int("kept", summary.Kept),
		slog.Int("discarded", summary.Discarded),
	)

	filtered, err := counts.SubsetRows(mask)
	if err != nil {
		return nil, fmt.Errorf("normalize: subset entities: %w", err)
	}

	factors := tmmFactors(filtered, libSizes, opts)
	logger.Debug("TMM normalization factors computed", slog.Int("samples", len(factors)))

	expression := logCPM(filtered, libSizes, factors, opts.PriorCount)

	return &Result{
		Expression: expression,
		Factors:    factors,
		KeepMask:   mask,
		Summary:    summary,
	}, nil
}

// FilterMask computes the low-expression keep mask alone, without
// normalizing. Callers re-deriving the filter per comparison run it over
// column subsets of the original counts.
func FilterMask(counts *tables.Matrix, groupLabels []string, opts Options) ([]bool, error) {
	if len(groupLabels) != counts.NSamples() {
		return nil, apperrors.NewShapeMismatchError("group labels vs samples", counts.NSamples(), len(groupLabels))
	}
	return filterByExpression(counts, groupLabels, counts.LibrarySizes(), opts), nil
}

// logCPM transforms counts into log2 counts-per-million using effective
// library sizes (library size times normalization factor) and a prior count
// scaled to each sample's effective library size.
func logCPM(counts *tables.Matrix, libSizes, factors []float64, prior float64) *tables.Matrix {
	n := counts.NSamples()
	eff := make([]float64, n)
	var meanEff float64
	for j := 0; j < n; j++ {
		eff[j] = libSizes[j] * factors[j]
		meanEff += eff[j]
	}
	meanEff /= float64(n)

	scaledPrior := make([]float64, n)
	for j := 0; j < n; j++ {
		if meanEff > 0 {
			scaledPrior[j] = prior * eff[j] / meanEff
		} else {
			scaledPrior[j] = prior
		}
	}

	return counts.Map(func(_, j int, v float64) float64 {
		return math.Log2((v + scaledPrior[j]) / (eff[j] + 2*scaledPrior[j]) * 1e6)
	})
}
