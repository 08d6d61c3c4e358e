// Package ingest reads the pipeline input artifacts: count workbooks or
// delimited files, sample metadata, and the regulator-target network. The
// core stages only see aligned in-memory structures; all file-format concerns
// live here.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"rnaseqcli/internal/tables"
)

// ReadCountsWorkbook reads an entity x sample count matrix from an xlsx
// sheet. The first row holds sample identifiers, the first column entity
// identifiers. An empty sheetName takes the first sheet.
func ReadCountsWorkbook(filePath, sheetName string) (*tables.Matrix, error) {
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
	matrix, err := countsFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", sheetName, err)
	}
	return matrix, nil
}

// ReadCountsCSV reads the same matrix layout from a delimited stream.
func ReadCountsCSV(r io.Reader, comma rune) (*tables.Matrix, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read counts: %w", err)
	}
	return countsFromRows(rows)
}

func countsFromRows(rows [][]string) (*tables.Matrix, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("count matrix needs a header row and at least one entity row, got %d rows", len(rows))
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("count matrix header needs an id column and at least one sample column")
	}
	samples := make([]string, len(header)-1)
	for i, s := range header[1:] {
		samples[i] = strings.TrimSpace(s)
	}

	entities := make([]string, 0, len(rows)-1)
	values := make([][]float64, 0, len(rows)-1)
	for rowIdx, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		entity := strings.TrimSpace(row[0])
		if entity == "" {
			return nil, fmt.Errorf("row %d: empty entity identifier", rowIdx+2)
		}
		if len(row)-1 != len(samples) {
			return nil, fmt.Errorf("row %d (%s): %d values for %d samples", rowIdx+2, entity, len(row)-1, len(samples))
		}
		counts := make([]float64, len(samples))
		for colIdx, cell := range row[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d (%s), sample %s: non-numeric count %q", rowIdx+2, entity, samples[colIdx], cell)
			}
			if v < 0 {
				return nil, fmt.Errorf("row %d (%s), sample %s: negative count %v", rowIdx+2, entity, samples[colIdx], v)
			}
			counts[colIdx] = v
		}
		entities = append(entities, entity)
		values = append(values, counts)
	}

	return tables.NewMatrix(entities, samples, values)
}
