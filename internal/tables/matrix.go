package tables

import (
	"fmt"

	apperrors "rnaseqcli/internal/errors"
)

// Matrix is a dense entity-by-sample numeric matrix. Entities key the rows
// and samples key the columns. Matrices follow the same immutability
// convention as tables: operations return new matrices.
type Matrix struct {
	entities []string
	samples  []string
	values   [][]float64 // [entity][sample]
}

// NewMatrix creates a matrix from row keys, column keys, and values. The
// value slice must be rectangular with len(entities) rows of len(samples).
func NewMatrix(entities, samples []string, values [][]float64) (*Matrix, error) {
	if len(values) != len(entities) {
		return nil, apperrors.NewShapeMismatchError("value rows vs entities", len(entities), len(values))
	}
	for i, row := range values {
		if len(row) != len(samples) {
			return nil, apperrors.NewShapeMismatchError(
				fmt.Sprintf("row %q length vs samples", entities[i]), len(samples), len(row))
		}
	}
	return &Matrix{entities: entities, samples: samples, values: values}, nil
}

// NEntities returns the number of rows.
func (m *Matrix) NEntities() int { return len(m.entities) }

// NSamples returns the number of columns.
func (m *Matrix) NSamples() int { return len(m.samples) }

// Entities returns a copy of the row keys.
func (m *Matrix) Entities() []string {
	out := make([]string, len(m.entities))
	copy(out, m.entities)
	return out
}

// Samples returns a copy of the column keys.
func (m *Matrix) Samples() []string {
	out := make([]string, len(m.samples))
	copy(out, m.samples)
	return out
}

// Value returns the cell at entity row i, sample column j.
func (m *Matrix) Value(i, j int) float64 { return m.values[i][j] }

// Row returns a copy of entity row i.
func (m *Matrix) Row(i int) []float64 {
	out := make([]float64, len(m.values[i]))
	copy(out, m.values[i])
	return out
}

// EntityIndex returns the row index of the named entity, or -1.
func (m *Matrix) EntityIndex(entity string) int {
	for i, e := range m.entities {
		if e == entity {
			return i
		}
	}
	return -1
}

// LibrarySizes returns the per-sample column sums.
func (m *Matrix) LibrarySizes() []float64 {
	sizes := make([]float64, len(m.samples))
	for _, row := range m.values {
		for j, v := range row {
			sizes[j] += v
		}
	}
	return sizes
}

// SubsetRows returns a new matrix keeping only the rows where mask is true.
// The mask length must equal the entity count.
func (m *Matrix) SubsetRows(mask []bool) (*Matrix, error) {
	if len(mask) != len(m.entities) {
		return nil, apperrors.NewShapeMismatchError("mask length vs entities", len(m.entities), len(mask))
	}
	var entities []string
	var values [][]float64
	for i, keep := range mask {
		if !keep {
			continue
		}
		entities = append(entities, m.entities[i])
		row := make([]float64, len(m.values[i]))
		copy(row, m.values[i])
		values = append(values, row)
	}
	return &Matrix{entities: entities, samples: m.samples, values: values}, nil
}

// SubsetColumns returns a new matrix keeping only the columns where mask is
// true. The mask length must equal the sample count.
func (m *Matrix) SubsetColumns(mask []bool) (*Matrix, error) {
	if len(mask) != len(m.samples) {
		return nil, apperrors.NewShapeMismatchError("mask length vs samples", len(m.samples), len(mask))
	}
	var samples []string
	for j, keep := range mask {
		if keep {
			samples = append(samples, m.samples[j])
		}
	}
	values := make([][]float64, len(m.entities))
	for i, row := range m.values {
		out := make([]float64, 0, len(samples))
		for j, keep := range mask {
			if keep {
				out = append(out, row[j])
			}
		}
		values[i] = out
	}
	return &Matrix{entities: m.entities, samples: samples, values: values}, nil
}

// Map returns a new matrix with f applied to every cell. f receives the
// entity row index, sample column index, and cell value.
func (m *Matrix) Map(f func(i, j int, v float64) float64) *Matrix {
	values := make([][]float64, len(m.values))
	for i, row := range m.values {
		out := make([]float64, len(row))
		for j, v := range row {
			out[j] = f(i, j, v)
		}
		values[i] = out
	}
	return &Matrix{entities: m.entities, samples: m.samples, values: values}
}

// Equal reports whether two matrices have identical keys and values.
func (m *Matrix) Equal(other *Matrix) bool {
	if len(m.entities) != len(other.entities) || len(m.samples) != len(other.samples) {
		return false
	}
	for i := range m.entities {
		if m.entities[i] != other.entities[i] {
			return false
		}
	}
	for j := range m.samples {
		if m.samples[j] != other.samples[j] {
			return false
		}
	}
	for i := range m.values {
		for j := range m.values[i] {
			if m.values[i][j] != other.values[i][j] {
				return false
			}
		}
	}
	return true
}

// ValidateAlignment checks that the matrix sample columns exactly match, in
// identical order, the sample keys of the metadata table. A mismatch is a
// fatal precondition failure.
func (m *Matrix) ValidateAlignment(metadata *Table, sampleColumn string) error {
	col, err := metadata.MustColumn(sampleColumn)
	if err != nil {
		return err
	}
	if col.Len() != len(m.samples) {
		return apperrors.NewShapeMismatchError("matrix columns vs metadata samples", len(m.samples), col.Len())
	}
	for j, s := range m.samples {
		if col.String(j) != s {
			return apperrors.NewIdentityMismatchError("matrix columns vs metadata samples",
				fmt.Sprintf("position %d: %q != %q", j, s, col.String(j)), len(m.samples))
		}
	}
	return nil
}
