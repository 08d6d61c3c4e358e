package annotation

import (
	"encoding/csv"
	"fmt"
	"io"

	"rnaseqcli/internal/tables"
)

// LoadAnnotations parses the persisted identifier annotation artifact: a
// tab-delimited file whose header names the identifier namespaces and whose
// rows hold one cross-namespace mapping each. Empty cells stay empty and are
// treated as missing by the mapper. The returned table is read-only at
// analysis time.
func LoadAnnotations(r io.Reader) (*tables.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("load annotations: read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("load annotations: need at least two namespace columns, got %d", len(header))
	}

	cells := make([][]string, len(header))
	row := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load annotations: row %d: %w", row, err)
		}
		for i := range header {
			v := ""
			if i < len(record) {
				v = record[i]
			}
			cells[i] = append(cells[i], v)
		}
		row++
	}

	cols := make([]*tables.Column, len(header))
	for i, name := range header {
		cols[i] = tables.NewStringColumn(name, cells[i])
	}
	return tables.NewTable(cols...)
}
