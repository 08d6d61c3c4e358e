// Package exporter persists pipeline outputs: tidy and result tables as CSV
// files, and a JSON run summary with run metadata and collected warnings.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"rnaseqcli/internal/stats"
	"rnaseqcli/internal/tables"
)

// Writer writes result artifacts under a single output directory.
type Writer struct {
	outputDir string
	logger    *slog.Logger
}

// NewWriter creates a Writer rooted at outputDir.
func NewWriter(outputDir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{outputDir: outputDir, logger: logger}
}

// WriteTable writes a table as <name>.csv with one header row. Missing float
// cells become empty fields.
func (w *Writer) WriteTable(name string, t *tables.Table) (string, error) {
	names := t.ColumnNames()
	records := make([][]string, 0, t.NRows())
	cols := make([]*tables.Column, len(names))
	for i, cn := range names {
		col, _ := t.Column(cn)
		cols[i] = col
	}
	for row := 0; row < t.NRows(); row++ {
		record := make([]string, len(cols))
		for i, col := range cols {
			if col.IsMissing(row) {
				continue
			}
			if col.Kind() == tables.KindString {
				record[i] = col.String(row)
			} else {
				record[i] = formatFloat(col.Float(row))
			}
		}
		records = append(records, record)
	}
	return w.writeCSV(name, names, records)
}

// WriteBattery writes the four battery result tables: anova, pairwise,
// coefficients, correlations.
func (w *Writer) WriteBattery(res *stats.Result) ([]string, error) {
	var paths []string

	records := make([][]string, len(res.ANOVA))
	for i, r := range res.ANOVA {
		records[i] = []string{r.Entity, formatFloat(r.F), strconv.Itoa(r.DFBetween), strconv.Itoa(r.DFWithin), formatFloat(r.PValue)}
	}
	path, err := w.writeCSV("anova", []string{"entity", "f", "df_between", "df_within", "p_value"}, records)
	if err != nil {
		return nil, err
	}
	paths = append(paths, path)

	records = make([][]string, len(res.Pairwise))
	for i, r := range res.Pairwise {
		records[i] = []string{r.Entity, r.GroupA, r.GroupB, formatFloat(r.MeanDiff), formatFloat(r.T), formatFloat(r.PValue), formatFloat(r.PAdjusted)}
	}
	path, err = w.writeCSV("pairwise", []string{"entity", "group_a", "group_b", "mean_diff", "t", "p_value", "p_adjusted"}, records)
	if err != nil {
		return nil, err
	}
	paths = append(paths, path)

	records = make([][]string, len(res.Coefficients))
	for i, r := range res.Coefficients {
		records[i] = []string{r.Entity, r.Term, formatFloat(r.Estimate), formatFloat(r.StdErr), formatFloat(r.T), formatFloat(r.PValue)}
	}
	path, err = w.writeCSV("coefficients", []string{"entity", "term", "estimate", "std_err", "t", "p_value"}, records)
	if err != nil {
		return nil, err
	}
	paths = append(paths, path)

	records = make([][]string, len(res.Correlations))
	for i, r := range res.Correlations {
		records[i] = []string{r.Entity, formatFloat(r.Rho), formatFloat(r.PValue), strconv.Itoa(r.N)}
	}
	path, err = w.writeCSV("correlations", []string{"entity", "rho", "p_value", "n"}, records)
	if err != nil {
		return nil, err
	}
	paths = append(paths, path)

	return paths, nil
}

func (w *Writer) writeCSV(name string, header []string, records [][]string) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	fullPath := filepath.Join(w.outputDir, name+".csv")

	w.logger.Info("writing CSV file",
		slog.String("path", fullPath),
		slog.Int("record_count", len(records)))

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", fullPath, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush %s: %w", fullPath, err)
	}
	return fullPath, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
