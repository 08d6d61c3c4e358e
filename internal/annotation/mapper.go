// Package annotation translates entity identifiers between namespaces using
// a precomputed cross-species annotation table. The annotation table is
// loaded once by the caller and passed in read-only, so translations are
// pure and safe to run concurrently over the shared table.
package annotation

import (
	"fmt"

	apperrors "rnaseqcli/internal/errors"
	"rnaseqcli/internal/tables"
)

// TranslateIdentifiers translates the idColumn of table from one namespace
// to another via a left join against the annotation table. Annotation rows
// missing a value in either namespace are ignored.
//
// With dropUnmapped false (the default policy) entities without a
// translation keep a missing identifier, preserving the row count so the
// caller decides how to treat gaps; with dropUnmapped true they are removed.
//
// A no-op translation (from == to) returns the input table unchanged.
func TranslateIdentifiers(table, annot *tables.Table, from, to, idColumn string, dropUnmapped bool) (*tables.Table, error) {
	valid := annot.ColumnNames()
	if _, ok := annot.Column(from); !ok {
		return nil, apperrors.NewConfigurationError("from_namespace", from, valid)
	}
	if _, ok := annot.Column(to); !ok {
		return nil, apperrors.NewConfigurationError("to_namespace", to, valid)
	}
	if _, err := table.MustColumn(idColumn); err != nil {
		return nil, err
	}

	if from == to {
		return table, nil
	}

	mapping, err := namespacePairs(annot, from, to)
	if err != nil {
		return nil, err
	}

	originalOrder := table.ColumnNames()

	work, err := table.Rename(idColumn, from)
	if err != nil {
		return nil, fmt.Errorf("translate identifiers: %w", err)
	}
	joined, err := work.LeftJoin(mapping, from)
	if err != nil {
		return nil, fmt.Errorf("translate identifiers: %w", err)
	}
	joined = joined.Drop(from)
	joined, err = joined.Rename(to, idColumn)
	if err != nil {
		return nil, fmt.Errorf("translate identifiers: %w", err)
	}
	// Restore the input column order, with the translated identifiers in
	// the canonical identifier column's place.
	joined, err = joined.Select(originalOrder...)
	if err != nil {
		return nil, fmt.Errorf("translate identifiers: %w", err)
	}

	if dropUnmapped {
		idCol, err := joined.MustColumn(idColumn)
		if err != nil {
			return nil, err
		}
		joined = joined.FilterRows(func(i int) bool {
			return !idCol.IsMissing(i) && idCol.String(i) != ""
		})
	}
	return joined, nil
}

// namespacePairs selects the two requested namespace columns and drops rows
// with a missing value in either.
func namespacePairs(annot *tables.Table, from, to string) (*tables.Table, error) {
	pairs, err := annot.Select(from, to)
	if err != nil {
		return nil, err
	}
	fromCol, _ := pairs.Column(from)
	toCol, _ := pairs.Column(to)
	return pairs.FilterRows(func(i int) bool {
		return !fromCol.IsMissing(i) && fromCol.String(i) != "" &&
			!toCol.IsMissing(i) && toCol.String(i) != ""
	}), nil
}
