// Package errors defines the domain error taxonomy for the analysis
// pipeline. Fatal errors (ConfigurationError, ShapeMismatchError) abort a
// run; non-fatal ones (InsufficientDataError, RegulatorExcludedWarning) are
// collected and reported alongside partial output.
package errors

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid namespace, column, or level request.
// It is fatal and surfaced immediately to the caller.
type ConfigurationError struct {
	Parameter string   // the offending parameter, e.g. "from_namespace"
	Value     string   // the rejected value
	Valid     []string // the accepted values, when enumerable
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if len(e.Valid) > 0 {
		return fmt.Sprintf("configuration: %s %q is not valid (valid: %s)",
			e.Parameter, e.Value, strings.Join(e.Valid, ", "))
	}
	return fmt.Sprintf("configuration: %s %q is not valid", e.Parameter, e.Value)
}

// NewConfigurationError creates a ConfigurationError listing the valid values.
func NewConfigurationError(parameter, value string, valid []string) *ConfigurationError {
	return &ConfigurationError{Parameter: parameter, Value: value, Valid: valid}
}

// ShapeMismatchError reports a sample/column count or identity mismatch
// between a matrix and its metadata, or between group labels and samples.
// It is a fatal precondition failure, checked before normalization proceeds.
type ShapeMismatchError struct {
	Want    int
	Got     int
	Context string // what was being compared, e.g. "group labels vs samples"
	Detail  string // optional identity-level detail, e.g. the first mismatch
}

// Error implements the error interface.
func (e *ShapeMismatchError) Error() string {
	msg := fmt.Sprintf("shape mismatch: %s: want %d, got %d", e.Context, e.Want, e.Got)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// NewShapeMismatchError creates a ShapeMismatchError for a count mismatch.
func NewShapeMismatchError(context string, want, got int) *ShapeMismatchError {
	return &ShapeMismatchError{Context: context, Want: want, Got: got}
}

// NewIdentityMismatchError creates a ShapeMismatchError for an identity
// mismatch where the counts agree but the keys do not.
func NewIdentityMismatchError(context, detail string, n int) *ShapeMismatchError {
	return &ShapeMismatchError{Context: context, Want: n, Got: n, Detail: detail}
}

// InsufficientDataError reports that a single entity lacks enough
// observations for a statistical test. It is isolated to that entity;
// other entities continue independently.
type InsufficientDataError struct {
	Entity string
	Group  string // the group that failed the minimum, empty when global
	Need   int
	Have   int
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	if e.Group != "" {
		return fmt.Sprintf("insufficient data for entity %q: group %q has %d observations, need %d",
			e.Entity, e.Group, e.Have, e.Need)
	}
	return fmt.Sprintf("insufficient data for entity %q: %d observations, need %d",
		e.Entity, e.Have, e.Need)
}

// RegulatorExcludedWarning reports that a single regulator could not be
// scored, typically because its regulon fell below the minimum size. It is
// non-fatal; the regulator is simply absent from the activity table.
type RegulatorExcludedWarning struct {
	Regulator string
	Reason    string
}

// Error implements the error interface.
func (w *RegulatorExcludedWarning) Error() string {
	return fmt.Sprintf("regulator %q excluded: %s", w.Regulator, w.Reason)
}

// WarningList accumulates non-fatal errors in occurrence order so a
// partial-success run is observable by the caller.
type WarningList struct {
	warnings []error
}

// Add appends a warning. Nil warnings are ignored.
func (l *WarningList) Add(err error) {
	if err != nil {
		l.warnings = append(l.warnings, err)
	}
}

// Len returns the number of collected warnings.
func (l *WarningList) Len() int {
	return len(l.warnings)
}

// All returns the collected warnings in occurrence order.
func (l *WarningList) All() []error {
	out := make([]error, len(l.warnings))
	copy(out, l.warnings)
	return out
}

// Merge appends every warning from other onto l.
func (l *WarningList) Merge(other *WarningList) {
	if other == nil {
		return
	}
	l.warnings = append(l.warnings, other.warnings...)
}

// Messages returns the warning texts, for logging and JSON summaries.
func (l *WarningList) Messages() []string {
	msgs := make([]string, len(l.warnings))
	for i, w := range l.warnings {
		msgs[i] = w.Error()
	}
	return msgs
}
