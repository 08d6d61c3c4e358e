// Package tables provides the in-memory tabular data model for the analysis
// pipeline: dense entity-by-sample matrices, long-format tables with named
// columns, and the reshaping operations between them.
//
// Tables are immutable by convention: every operation returns a new table and
// never mutates its receiver or arguments. Column names are first-class
// string parameters validated against the actual schema at call time.
package tables

import (
	"fmt"

	apperrors "rnaseqcli/internal/errors"
)

// ColumnKind discriminates string columns from numeric columns.
type ColumnKind int

const (
	// KindString marks a column of string cells.
	KindString ColumnKind = iota
	// KindFloat marks a column of float64 cells.
	KindFloat
)

// Column is a single named column with a per-row missing mask.
type Column struct {
	name    string
	kind    ColumnKind
	strs    []string
	vals    []float64
	missing []bool
}

// NewStringColumn creates a string column. All cells are present.
func NewStringColumn(name string, values []string) *Column {
	return &Column{name: name, kind: KindString, strs: values, missing: make([]bool, len(values))}
}

// NewFloatColumn creates a numeric column. All cells are present.
func NewFloatColumn(name string, values []float64) *Column {
	return &Column{name: name, kind: KindFloat, vals: values, missing: make([]bool, len(values))}
}

// NewFloatColumnWithMissing creates a numeric column with an explicit
// missing mask. The mask length must equal the value length.
func NewFloatColumnWithMissing(name string, values []float64, missing []bool) *Column {
	return &Column{name: name, kind: KindFloat, vals: values, missing: missing}
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the column kind.
func (c *Column) Kind() ColumnKind { return c.kind }

// Len returns the number of rows.
func (c *Column) Len() int {
	if c.kind == KindString {
		return len(c.strs)
	}
	return len(c.vals)
}

// IsMissing reports whether the cell at row i is missing.
func (c *Column) IsMissing(i int) bool { return c.missing[i] }

// String returns the string cell at row i. Only valid for string columns.
func (c *Column) String(i int) string { return c.strs[i] }

// Float returns the numeric cell at row i. Only valid for float columns.
func (c *Column) Float(i int) float64 { return c.vals[i] }

// Strings returns a copy of the string cells.
func (c *Column) Strings() []string {
	out := make([]string, len(c.strs))
	copy(out, c.strs)
	return out
}

// Floats returns a copy of the numeric cells.
func (c *Column) Floats() []float64 {
	out := make([]float64, len(c.vals))
	copy(out, c.vals)
	return out
}

// renamed returns a shallow copy of the column under a new name. Cell
// storage is shared; columns are never mutated after construction.
func (c *Column) renamed(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

// subset returns a copy of the column containing only the given row indices.
func (c *Column) subset(idx []int) *Column {
	out := &Column{name: c.name, kind: c.kind, missing: make([]bool, len(idx))}
	if c.kind == KindString {
		out.strs = make([]string, len(idx))
		for j, i := range idx {
			out.strs[j] = c.strs[i]
			out.missing[j] = c.missing[i]
		}
		return out
	}
	out.vals = make([]float64, len(idx))
	for j, i := range idx {
		out.vals[j] = c.vals[i]
		out.missing[j] = c.missing[i]
	}
	return out
}

// missingCell returns a single-row all-missing column matching c's shape.
func missingOf(c *Column, n int) *Column {
	out := &Column{name: c.name, kind: c.kind, missing: make([]bool, n)}
	for i := range out.missing {
		out.missing[i] = true
	}
	if c.kind == KindString {
		out.strs = make([]string, n)
	} else {
		out.vals = make([]float64, n)
	}
	return out
}

// Table is an ordered collection of equal-length named columns.
type Table struct {
	cols []*Column
}

// NewTable creates a table from the given columns. Column names must be
// unique and lengths must agree.
func NewTable(cols ...*Column) (*Table, error) {
	seen := make(map[string]bool, len(cols))
	n := -1
	for _, c := range cols {
		if seen[c.name] {
			return nil, fmt.Errorf("new table: duplicate column %q", c.name)
		}
		seen[c.name] = true
		if n == -1 {
			n = c.Len()
		} else if c.Len() != n {
			return nil, apperrors.NewShapeMismatchError(
				fmt.Sprintf("column %q length vs table rows", c.name), n, c.Len())
		}
	}
	return &Table{cols: cols}, nil
}

// NRows returns the number of rows.
func (t *Table) NRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.name
	}
	return names
}

// Column returns the named column, or false when absent.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.cols {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// MustColumn returns the named column or a ConfigurationError naming the
// valid columns.
func (t *Table) MustColumn(name string) (*Column, error) {
	if c, ok := t.Column(name); ok {
		return c, nil
	}
	return nil, apperrors.NewConfigurationError("column", name, t.ColumnNames())
}

// Select returns a new table containing only the named columns, in the
// requested order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		c, err := t.MustColumn(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return &Table{cols: cols}, nil
}

// Rename returns a new table with the column old renamed to new.
func (t *Table) Rename(old, new string) (*Table, error) {
	if _, err := t.MustColumn(old); err != nil {
		return nil, err
	}
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		if c.name == old {
			cols[i] = c.renamed(new)
		} else {
			cols[i] = c
		}
	}
	return &Table{cols: cols}, nil
}

// Drop returns a new table without the named column. Dropping an absent
// column is not an error.
func (t *Table) Drop(name string) *Table {
	cols := make([]*Column, 0, len(t.cols))
	for _, c := range t.cols {
		if c.name != name {
			cols = append(cols, c)
		}
	}
	return &Table{cols: cols}
}

// FilterRows returns a new table keeping only rows where keep returns true.
func (t *Table) FilterRows(keep func(row int) bool) *Table {
	var idx []int
	for i := 0; i < t.NRows(); i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return t.subsetRows(idx)
}

// subsetRows returns a new table with the given row indices, in order.
func (t *Table) subsetRows(idx []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.subset(idx)
	}
	return &Table{cols: cols}
}

// LeftJoin joins right onto t using key, which must be a string column
// present in both tables. Every left row appears exactly once in the output:
// when the right table has multiple rows for a key, the first occurrence
// wins; when it has none, the joined cells are missing. The key column is
// taken from the left table and the right key column is not duplicated.
func (t *Table) LeftJoin(right *Table, key string) (*Table, error) {
	leftKey, err := t.MustColumn(key)
	if err != nil {
		return nil, err
	}
	rightKey, err := right.MustColumn(key)
	if err != nil {
		return nil, err
	}
	if leftKey.kind != KindString || rightKey.kind != KindString {
		return nil, fmt.Errorf("left join: key column %q must be a string column", key)
	}

	// First occurrence per key on the right side.
	lookup := make(map[string]int, rightKey.Len())
	for i := 0; i < rightKey.Len(); i++ {
		if rightKey.IsMissing(i) {
			continue
		}
		k := rightKey.String(i)
		if _, ok := lookup[k]; !ok {
			lookup[k] = i
		}
	}

	n := t.NRows()
	cols := make([]*Column, 0, len(t.cols)+len(right.cols)-1)
	cols = append(cols, t.cols...)

	for _, rc := range right.cols {
		if rc.name == key {
			continue
		}
		if _, exists := t.Column(rc.name); exists {
			return nil, fmt.Errorf("left join: column %q present in both tables", rc.name)
		}
		joined := missingOf(rc, n)
		for i := 0; i < n; i++ {
			if leftKey.IsMissing(i) {
				continue
			}
			ri, ok := lookup[leftKey.String(i)]
			if !ok || rc.missing[ri] {
				continue
			}
			joined.missing[i] = false
			if rc.kind == KindString {
				joined.strs[i] = rc.strs[ri]
			} else {
				joined.vals[i] = rc.vals[ri]
			}
		}
		cols = append(cols, joined)
	}

	return &Table{cols: cols}, nil
}

// Equal reports whether two tables have identical schemas and cell values,
// including missing masks.
func (t *Table) Equal(other *Table) bool {
	if len(t.cols) != len(other.cols) || t.NRows() != other.NRows() {
		return false
	}
	for i, c := range t.cols {
		o := other.cols[i]
		if c.name != o.name || c.kind != o.kind || c.Len() != o.Len() {
			return false
		}
		for r := 0; r < c.Len(); r++ {
			if c.missing[r] != o.missing[r] {
				return false
			}
			if c.missing[r] {
				continue
			}
			if c.kind == KindString && c.strs[r] != o.strs[r] {
				return false
			}
			if c.kind == KindFloat && c.vals[r] != o.vals[r] {
				return false
			}
		}
	}
	return true
}
