package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationErrorListsValidValues(t *testing.T) {
	err := NewConfigurationError("from_namespace", "bogus", []string{"human_symbol", "mouse_symbol"})
	assert.Contains(t, err.Error(), `"bogus"`)
	assert.Contains(t, err.Error(), "human_symbol")
	assert.Contains(t, err.Error(), "mouse_symbol")
}

func TestShapeMismatchError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ShapeMismatchError
		contains []string
	}{
		{
			name:     "count_mismatch",
			err:      NewShapeMismatchError("group labels vs samples", 6, 4),
			contains: []string{"want 6", "got 4", "group labels"},
		},
		{
			name:     "identity_mismatch",
			err:      NewIdentityMismatchError("matrix columns vs metadata samples", `position 2: "S3" != "S4"`, 5),
			contains: []string{"S3", "S4", "matrix columns"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.contains {
				assert.Contains(t, tt.err.Error(), want)
			}
		})
	}
}

func TestInsufficientDataErrorFormats(t *testing.T) {
	withGroup := &InsufficientDataError{Entity: "STAT1", Group: "severe", Need: 2, Have: 1}
	assert.Contains(t, withGroup.Error(), "STAT1")
	assert.Contains(t, withGroup.Error(), "severe")

	global := &InsufficientDataError{Entity: "STAT1", Need: 2, Have: 1}
	assert.Contains(t, global.Error(), "2")
	assert.NotContains(t, global.Error(), "group")
}

func TestWarningListCollectsInOrder(t *testing.T) {
	var list WarningList
	list.Add(&RegulatorExcludedWarning{Regulator: "FOXP3", Reason: "regulon size 2 below minimum 5"})
	list.Add(nil) // ignored
	list.Add(&InsufficientDataError{Entity: "IRF1", Need: 2, Have: 1})

	require.Equal(t, 2, list.Len())
	msgs := list.Messages()
	assert.Contains(t, msgs[0], "FOXP3")
	assert.Contains(t, msgs[1], "IRF1")

	var other WarningList
	other.Add(&RegulatorExcludedWarning{Regulator: "GATA3", Reason: "scoring failed"})
	list.Merge(&other)
	assert.Equal(t, 3, list.Len())
	assert.Contains(t, list.All()[2].Error(), "GATA3")
}
