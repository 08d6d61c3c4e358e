package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "rnaseqcli/internal/errors"
	"rnaseqcli/internal/tables"
)

// ReadMetadataWorkbook reads the sample metadata sheet: one header row, one
// row per sample. Every column is loaded as a string column.
func ReadMetadataWorkbook(filePath, sheetName string) (*tables.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", filePath)
		}
		sheetName = list[0]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}
	table, err := metadataFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", sheetName, err)
	}
	return table, nil
}

// ReadMetadataCSV reads the same layout from a delimited stream.
func ReadMetadataCSV(r io.Reader, comma rune) (*tables.Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	return metadataFromRows(rows)
}

func metadataFromRows(rows [][]string) (*tables.Table, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("metadata needs a header row and at least one sample row, got %d rows", len(rows))
	}

	header := rows[0]
	cols := make([][]string, len(header))
	for i := range cols {
		cols[i] = make([]string, 0, len(rows)-1)
	}
	for rowIdx, row := range rows[1:] {
		if len(row) > len(header) {
			return nil, fmt.Errorf("row %d: %d cells for %d header columns", rowIdx+2, len(row), len(header))
		}
		for i := range header {
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			cols[i] = append(cols[i], cell)
		}
	}

	columns := make([]*tables.Column, len(header))
	for i, name := range header {
		columns[i] = tables.NewStringColumn(strings.TrimSpace(name), cols[i])
	}
	return tables.NewTable(columns...)
}

// CheckSeverityLevels verifies that every value of the severity column is one
// of the configured ordinal levels.
func CheckSeverityLevels(metadata *tables.Table, severityColumn string, levels []string) error {
	col, err := metadata.MustColumn(severityColumn)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(levels))
	for _, l := range levels {
		known[l] = true
	}
	for i := 0; i < col.Len(); i++ {
		if !known[col.String(i)] {
			return &apperrors.ConfigurationError{
				Parameter: severityColumn,
				Value:     col.String(i),
				Valid:     levels,
			}
		}
	}
	return nil
}

// AlignMetadata reorders metadata rows to the matrix sample order, then
// enforces exact identity. Samples missing from the metadata, or metadata
// rows without a matrix column, are fatal.
func AlignMetadata(m *tables.Matrix, metadata *tables.Table, sampleColumn string) (*tables.Table, error) {
	col, err := metadata.MustColumn(sampleColumn)
	if err != nil {
		return nil, err
	}
	rowOf := make(map[string]int, col.Len())
	for i := 0; i < col.Len(); i++ {
		if _, dup := rowOf[col.String(i)]; dup {
			return nil, fmt.Errorf("metadata sample %q appears more than once", col.String(i))
		}
		rowOf[col.String(i)] = i
	}

	// Equality must hold in both directions: a metadata row without a matrix
	// column is as fatal as a matrix column without a metadata row.
	if col.Len() != m.NSamples() {
		return nil, apperrors.NewShapeMismatchError("metadata rows vs matrix samples", m.NSamples(), col.Len())
	}

	samples := m.Samples()
	order := make([]int, 0, len(samples))
	for _, s := range samples {
		i, ok := rowOf[s]
		if !ok {
			return nil, apperrors.NewIdentityMismatchError("matrix samples vs metadata",
				fmt.Sprintf("sample %q has no metadata row", s), len(samples))
		}
		order = append(order, i)
	}

	aligned, err := reorderRows(metadata, order)
	if err != nil {
		return nil, err
	}

	if err := m.ValidateAlignment(aligned, sampleColumn); err != nil {
		return nil, err
	}
	return aligned, nil
}

// reorderRows builds a new table whose rows follow idx.
func reorderRows(t *tables.Table, idx []int) (*tables.Table, error) {
	names := t.ColumnNames()
	columns := make([]*tables.Column, 0, len(names))
	for _, name := range names {
		col, _ := t.Column(name)
		switch col.Kind() {
		case tables.KindString:
			vals := make([]string, len(idx))
			for out, in := range idx {
				vals[out] = col.String(in)
			}
			columns = append(columns, tables.NewStringColumn(name, vals))
		default:
			vals := make([]float64, len(idx))
			missing := make([]bool, len(idx))
			for out, in := range idx {
				vals[out] = col.Float(in)
				missing[out] = col.IsMissing(in)
			}
			columns = append(columns, tables.NewFloatColumnWithMissing(name, vals, missing))
		}
	}
	return tables.NewTable(columns...)
}
