package tables

import (
	"fmt"
)

// ToTidy converts a matrix into a long-format table with one row per
// (entity, sample) cell. The row key becomes entityName, the column key
// becomes keyName, and cell values become valueName. Output rows follow the
// matrix's row-major iteration order, so tests may rely on exact equality.
//
// When metadata is non-nil it is left-joined on keyName. The join never
// drops or duplicates rows; samples absent from the metadata keep missing
// cells for the metadata columns.
func ToTidy(m *Matrix, entityName, keyName, valueName string, metadata *Table) (*Table, error) {
	n := m.NEntities() * m.NSamples()
	entities := make([]string, 0, n)
	keys := make([]string, 0, n)
	values := make([]float64, 0, n)

	for i := 0; i < m.NEntities(); i++ {
		for j := 0; j < m.NSamples(); j++ {
			entities = append(entities, m.entities[i])
			keys = append(keys, m.samples[j])
			values = append(values, m.values[i][j])
		}
	}

	tidy, err := NewTable(
		NewStringColumn(entityName, entities),
		NewStringColumn(keyName, keys),
		NewFloatColumn(valueName, values),
	)
	if err != nil {
		return nil, fmt.Errorf("to tidy: %w", err)
	}

	if metadata == nil {
		return tidy, nil
	}
	joined, err := tidy.LeftJoin(metadata, keyName)
	if err != nil {
		return nil, fmt.Errorf("to tidy: join metadata: %w", err)
	}
	return joined, nil
}

// Pivot reconstructs a wide matrix from a tidy table. Row and column keys
// appear in first-occurrence order. Duplicate (entity, key) cells and
// missing values are errors, so ToTidy followed by Pivot round-trips any
// matrix with unique keys exactly.
func Pivot(t *Table, entityName, keyName, valueName string) (*Matrix, error) {
	entCol, err := t.MustColumn(entityName)
	if err != nil {
		return nil, err
	}
	keyCol, err := t.MustColumn(keyName)
	if err != nil {
		return nil, err
	}
	valCol, err := t.MustColumn(valueName)
	if err != nil {
		return nil, err
	}

	var entities, samples []string
	entIdx := make(map[string]int)
	keyIdx := make(map[string]int)
	for i := 0; i < t.NRows(); i++ {
		e := entCol.String(i)
		if _, ok := entIdx[e]; !ok {
			entIdx[e] = len(entities)
			entities = append(entities, e)
		}
		k := keyCol.String(i)
		if _, ok := keyIdx[k]; !ok {
			keyIdx[k] = len(samples)
			samples = append(samples, k)
		}
	}

	values := make([][]float64, len(entities))
	seen := make([][]bool, len(entities))
	for i := range values {
		values[i] = make([]float64, len(samples))
		seen[i] = make([]bool, len(samples))
	}

	for i := 0; i < t.NRows(); i++ {
		if valCol.IsMissing(i) {
			return nil, fmt.Errorf("pivot: missing value at row %d (%s=%q, %s=%q)",
				i, entityName, entCol.String(i), keyName, keyCol.String(i))
		}
		ei := entIdx[entCol.String(i)]
		ki := keyIdx[keyCol.String(i)]
		if seen[ei][ki] {
			return nil, fmt.Errorf("pivot: duplicate cell (%s=%q, %s=%q)",
				entityName, entCol.String(i), keyName, keyCol.String(i))
		}
		seen[ei][ki] = true
		values[ei][ki] = valCol.Float(i)
	}

	for ei, row := range seen {
		for ki, ok := range row {
			if !ok {
				return nil, fmt.Errorf("pivot: no cell for (%s=%q, %s=%q)",
					entityName, entities[ei], keyName, samples[ki])
			}
		}
	}

	return NewMatrix(entities, samples, values)
}
